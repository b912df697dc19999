package contentService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/trading_assistant/data/cache"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/service"
	"github.com/KotFed0t/trading_assistant/utils"
)

type Repository interface {
	GetArticles(ctx context.Context) ([]model.Article, error)
	DeleteArticle(ctx context.Context, id int64) (bool, error)
	GetAgentArticles(ctx context.Context, economicTerm string) ([]model.AgentArticle, error)
	GetStockPrices(ctx context.Context, symbol string) ([]model.StockPrice, error)
	InsertCalendarEvent(ctx context.Context, date time.Time, title, url string) (model.CalendarEvent, error)
}

type Cache interface {
	GetArticles(ctx context.Context) ([]model.Article, error)
	SetArticles(ctx context.Context, articles []model.Article) error
	FlushArticles(ctx context.Context) error
}

// ContentService serves the editorial content: articles, data for the trading agents and the calendar.
type ContentService struct {
	repo  Repository
	cache Cache
	now   func() time.Time
}

func New(repo Repository, cache Cache) *ContentService {
	return &ContentService{repo: repo, cache: cache, now: time.Now}
}

func (s *ContentService) GetArticles(ctx context.Context) (articles []model.Article, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ContentService.GetArticles"

	slog.Debug("GetArticles start", slog.String("rqID", rqID), slog.String("op", op))

	articles, err = s.cache.GetArticles(ctx)
	if err == nil {
		slog.Debug("articles returned from cache", slog.String("rqID", rqID), slog.String("op", op))
		return articles, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		slog.Warn("can't get articles from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	articles, err = s.repo.GetArticles(ctx)
	if err != nil {
		slog.Error("got error from repo.GetArticles", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	go s.cacheArticles(context.WithoutCancel(ctx), articles)

	return articles, nil
}

func (s *ContentService) cacheArticles(ctx context.Context, articles []model.Article) {
	if err := s.cache.SetArticles(ctx, articles); err != nil {
		slog.Warn("can't save articles to cache", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
	}
}

// DeleteArticle removes an article for a signed-in caller and drops the cached list.
func (s *ContentService) DeleteArticle(ctx context.Context, identity model.Identity, id int64) (bool, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ContentService.DeleteArticle"

	if identity.Email == "" {
		return false, service.ErrUnauthenticated
	}

	deleted, err := s.repo.DeleteArticle(ctx, id)
	if err != nil {
		slog.Error("got error from repo.DeleteArticle", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return false, err
	}

	if err = s.cache.FlushArticles(ctx); err != nil {
		slog.Warn("can't flush articles cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	slog.Info("article deleted", slog.String("rqID", rqID), slog.Int64("id", id), slog.Bool("deleted", deleted), slog.String("by", identity.Email))

	return deleted, nil
}

// GetAgentData returns articles tagged with economicTerm, plus the stored prices of symbol when it is set.
func (s *ContentService) GetAgentData(ctx context.Context, economicTerm, symbol string) (model.AgentData, error) {
	economicTerm = strings.TrimSpace(economicTerm)
	if economicTerm == "" {
		return model.AgentData{}, fmt.Errorf("%w: economic_term query parameter is required", service.ErrValidation)
	}

	articles, err := s.repo.GetAgentArticles(ctx, economicTerm)
	if err != nil {
		return model.AgentData{}, err
	}

	data := model.AgentData{Articles: articles}

	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return data, nil
	}

	prices, err := s.repo.GetStockPrices(ctx, symbol)
	if err != nil {
		return model.AgentData{}, err
	}
	data.StockPrices = prices

	return data, nil
}

func (s *ContentService) AddCalendarEvent(ctx context.Context, identity model.Identity, title, url string) (model.CalendarEvent, error) {
	if identity.Email == "" {
		return model.CalendarEvent{}, service.ErrUnauthenticated
	}

	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	if title == "" || url == "" {
		return model.CalendarEvent{}, fmt.Errorf("%w: title and url are required", service.ErrValidation)
	}

	return s.repo.InsertCalendarEvent(ctx, s.now(), title, url)
}
