package marketService

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/trading_assistant/config"
	"github.com/KotFed0t/trading_assistant/internal/externalApi"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/valuation"
	"github.com/KotFed0t/trading_assistant/utils"
	"golang.org/x/sync/errgroup"
)

type QuoteApi interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
}

type Cache interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]model.Quote, error)
	SetQuotes(ctx context.Context, quotes []model.Quote) error
}

type Repository interface {
	GetTrackedTickers(ctx context.Context) ([]string, error)
}

type MarketService struct {
	cfg      *config.Config
	quoteApi QuoteApi
	cache    Cache
	repo     Repository
	now      func() time.Time
}

func New(cfg *config.Config, quoteApi QuoteApi, cache Cache, repo Repository) *MarketService {
	return &MarketService{
		cfg:      cfg,
		quoteApi: quoteApi,
		cache:    cache,
		repo:     repo,
		now:      time.Now,
	}
}

// GetQuotes resolves one quote per unique normalized symbol. It never fails: a symbol the
// provider cannot price in time is returned with a nil price.
func (s *MarketService) GetQuotes(ctx context.Context, symbols []string) map[string]model.Quote {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketService.GetQuotes"

	symbols = valuation.NormalizeTickers(symbols)
	quotes := make(map[string]model.Quote, len(symbols))
	if len(symbols) == 0 {
		return quotes
	}

	slog.Debug("GetQuotes start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("symbols", symbols))

	cached, err := s.cache.GetQuotes(ctx, symbols)
	if err != nil {
		slog.Warn("can't get quotes from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		cached = nil
	}

	misses := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if quote, ok := cached[symbol]; ok && quote.HasPrice() {
			quotes[symbol] = quote
			continue
		}
		misses = append(misses, symbol)
	}

	fetched := s.fetchQuotes(ctx, misses)
	for _, quote := range fetched {
		quotes[quote.Symbol] = quote
	}

	if len(fetched) > 0 {
		go s.cacheQuotes(context.WithoutCancel(ctx), fetched)
	}

	slog.Debug(
		"GetQuotes completed",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int("cacheHits", len(symbols)-len(misses)),
		slog.Int("fetched", len(misses)),
	)

	return quotes
}

// GetPrices resolves symbols like GetQuotes but keys the result by the spelling the caller used.
func (s *MarketService) GetPrices(ctx context.Context, symbols []string) model.Prices {
	quotes := s.GetQuotes(ctx, symbols)

	prices := make(map[string]model.Quote, len(symbols))
	for _, symbol := range symbols {
		requested := strings.TrimSpace(symbol)
		if requested == "" {
			continue
		}
		if quote, ok := quotes[valuation.NormalizeTicker(requested)]; ok {
			prices[requested] = quote
		}
	}

	return model.Prices{
		Prices:    prices,
		Timestamp: s.now(),
	}
}

// fetchQuotes asks the provider for every symbol concurrently. The result is index-aligned with symbols.
func (s *MarketService) fetchQuotes(ctx context.Context, symbols []string) []model.Quote {
	results := make([]model.Quote, len(symbols))
	if len(symbols) == 0 {
		return results
	}

	g := errgroup.Group{}
	g.SetLimit(max(s.cfg.Quotes.MaxConcurrency, 1))

	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			results[i] = s.fetchQuote(ctx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *MarketService) fetchQuote(ctx context.Context, symbol string) model.Quote {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketService.fetchQuote"

	quoteCtx := ctx
	if s.cfg.Quotes.Timeout > 0 {
		var cancel context.CancelFunc
		quoteCtx, cancel = context.WithTimeout(ctx, s.cfg.Quotes.Timeout)
		defer cancel()
	}

	quote, err := s.quoteApi.GetQuote(quoteCtx, symbol)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			slog.Debug("quote not found", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
		} else {
			slog.Warn("can't get quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		}
		return model.UnavailableQuote(symbol, s.now())
	}

	quote.Symbol = symbol
	if quote.LastUpdated.IsZero() {
		quote.LastUpdated = s.now()
	}

	return quote
}

func (s *MarketService) cacheQuotes(ctx context.Context, quotes []model.Quote) {
	if err := s.cache.SetQuotes(ctx, quotes); err != nil {
		slog.Warn(
			"can't save quotes to cache",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("err", err.Error()),
		)
	}
}

// FillQuoteCache refreshes cached quotes of every ticker held in any stored document.
func (s *MarketService) FillQuoteCache(ctx context.Context) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketService.FillQuoteCache"

	slog.Debug("FillQuoteCache start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("FillQuoteCache failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	tickers, err := s.repo.GetTrackedTickers(ctx)
	if err != nil {
		return err
	}

	symbols := valuation.NormalizeTickers(tickers)
	quotes := s.fetchQuotes(ctx, symbols)

	if err = s.cache.SetQuotes(ctx, quotes); err != nil {
		return err
	}

	resolved := 0
	for _, quote := range quotes {
		if quote.HasPrice() {
			resolved++
		}
	}

	slog.Info("quote cache filled", slog.String("rqID", rqID), slog.Int("symbols", len(symbols)), slog.Int("resolved", resolved))

	return nil
}
