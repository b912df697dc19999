package portfolioService

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KotFed0t/trading_assistant/config"
	"github.com/KotFed0t/trading_assistant/data/state"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/service"
	"github.com/KotFed0t/trading_assistant/internal/valuation"
	"github.com/KotFed0t/trading_assistant/utils"
)

const noPortfoliosMessage = "No portfolios found"

type DocumentRepository interface {
	GetInvestmentDocuments(ctx context.Context, email string) ([]model.InvestmentDocument, error)
	SaveValuations(ctx context.Context, docs []model.EnrichedDocument) (int64, error)
}

type StateStore interface {
	GetState(ctx context.Context, email string) (json.RawMessage, error)
	SetState(ctx context.Context, email string, state json.RawMessage) (json.RawMessage, error)
}

type MarketService interface {
	GetQuotes(ctx context.Context, symbols []string) map[string]model.Quote
}

type ReportGenerator interface {
	Generate(ctx context.Context, docs []model.EnrichedDocument, stats *model.Stats) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type PortfolioService struct {
	cfg          *config.Config
	repo         DocumentRepository
	stateStore   StateStore
	market       MarketService
	reporter     ReportGenerator
	cloudStorage CloudStorage
	now          func() time.Time
}

// New builds the service. cloudStorage may be nil, reports are then returned as files.
func New(
	cfg *config.Config,
	repo DocumentRepository,
	stateStore StateStore,
	market MarketService,
	reporter ReportGenerator,
	cloudStorage CloudStorage,
) *PortfolioService {
	return &PortfolioService{
		cfg:          cfg,
		repo:         repo,
		stateStore:   stateStore,
		market:       market,
		reporter:     reporter,
		cloudStorage: cloudStorage,
		now:          time.Now,
	}
}

type valuedPortfolio struct {
	docs    []model.EnrichedDocument
	symbols []string
	quotes  map[string]model.Quote
	now     time.Time
}

// value loads the caller's documents and values them against one shared quote batch.
func (s *PortfolioService) value(ctx context.Context, identity model.Identity) (valuedPortfolio, error) {
	if identity.Email == "" {
		return valuedPortfolio{}, service.ErrUnauthenticated
	}

	docs, err := s.repo.GetInvestmentDocuments(ctx, identity.Email)
	if err != nil {
		return valuedPortfolio{}, fmt.Errorf("get investment documents: %w", err)
	}

	if len(docs) == 0 {
		return valuedPortfolio{}, nil
	}

	symbols := valuation.Tickers(docs)
	quotes := s.market.GetQuotes(ctx, symbols)
	now := s.now()

	return valuedPortfolio{
		docs:    valuation.ValueDocuments(docs, quotes, now),
		symbols: symbols,
		quotes:  quotes,
		now:     now,
	}, nil
}

// GetPortfolio values the caller's investment documents with live quotes and aggregates them.
func (s *PortfolioService) GetPortfolio(ctx context.Context, identity model.Identity) (resp model.PortfolioResponse, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil && !errors.Is(err, service.ErrUnauthenticated) {
			slog.Error("GetPortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	valued, err := s.value(ctx, identity)
	if err != nil {
		return model.PortfolioResponse{}, err
	}

	if len(valued.docs) == 0 {
		return model.PortfolioResponse{
			Message:   noPortfoliosMessage,
			AstraDocs: []model.EnrichedDocument{},
		}, nil
	}

	stats := valuation.Aggregate(valued.docs)

	redisState, err := s.stateStore.GetState(ctx, identity.Email)
	if err != nil {
		return model.PortfolioResponse{}, fmt.Errorf("get state: %w", err)
	}

	resp = model.PortfolioResponse{
		AstraDocs:  valued.docs,
		RedisState: redisState,
		Stats:      stats,
		MarketData: &model.MarketData{
			SymbolsTracked:   valued.symbols,
			PriceSuccessRate: valuation.SuccessRate(valued.symbols, valued.quotes),
			LastUpdated:      valued.now,
		},
	}

	if s.cfg.Portfolio.PersistValuations {
		go s.saveValuations(context.WithoutCancel(ctx), valued.docs)
	}

	return resp, nil
}

func (s *PortfolioService) saveValuations(ctx context.Context, docs []model.EnrichedDocument) {
	updated, err := s.repo.SaveValuations(ctx, docs)
	if err != nil {
		slog.Error("can't persist valuations", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		return
	}
	slog.Debug("valuations persisted", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.Int64("updated", updated))
}

// PersistPortfolio revalues the caller's documents and writes the results back to the store.
func (s *PortfolioService) PersistPortfolio(ctx context.Context, identity model.Identity) (updated int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.PersistPortfolio"

	slog.Debug("PersistPortfolio start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil && !errors.Is(err, service.ErrUnauthenticated) {
			slog.Error("PersistPortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	valued, err := s.value(ctx, identity)
	if err != nil {
		return 0, err
	}

	if len(valued.docs) == 0 {
		return 0, nil
	}

	updated, err = s.repo.SaveValuations(ctx, valued.docs)
	if err != nil {
		return 0, fmt.Errorf("save valuations: %w", err)
	}

	return updated, nil
}

// GenerateReport renders the caller's valued portfolio as a spreadsheet. When cloud storage
// is configured the file is uploaded and only its link is returned.
func (s *PortfolioService) GenerateReport(ctx context.Context, identity model.Identity) (report model.Report, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GenerateReport"

	slog.Debug("GenerateReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil && !errors.Is(err, service.ErrUnauthenticated) && !errors.Is(err, service.ErrNotFound) {
			slog.Error("GenerateReport failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	valued, err := s.value(ctx, identity)
	if err != nil {
		return model.Report{}, err
	}

	if len(valued.docs) == 0 {
		return model.Report{}, service.ErrNotFound
	}

	content, ext, err := s.reporter.Generate(ctx, valued.docs, valuation.Aggregate(valued.docs))
	if err != nil {
		return model.Report{}, fmt.Errorf("generate report: %w", err)
	}

	report = model.Report{
		Filename: fmt.Sprintf("portfolio_%s%s", valued.now.UTC().Format("20060102_150405"), ext),
		Content:  content,
	}

	if s.cloudStorage == nil {
		return report, nil
	}

	link, err := s.cloudStorage.UploadFile(ctx, bytes.NewReader(content), report.Filename)
	if err != nil {
		return model.Report{}, fmt.Errorf("upload report: %w", err)
	}

	report.Link = link
	report.Content = nil

	return report, nil
}

func (s *PortfolioService) GetState(ctx context.Context, identity model.Identity) (json.RawMessage, error) {
	if identity.Email == "" {
		return nil, service.ErrUnauthenticated
	}
	return s.stateStore.GetState(ctx, identity.Email)
}

func (s *PortfolioService) SetState(ctx context.Context, identity model.Identity, newState json.RawMessage) (json.RawMessage, error) {
	if identity.Email == "" {
		return nil, service.ErrUnauthenticated
	}

	stored, err := s.stateStore.SetState(ctx, identity.Email, newState)
	if err != nil {
		if errors.Is(err, state.ErrInvalidState) {
			return nil, fmt.Errorf("%w: %w", service.ErrValidation, err)
		}
		return nil, err
	}

	return stored, nil
}
