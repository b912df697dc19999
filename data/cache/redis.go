package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/trading_assistant/config"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("not found in cache")

const (
	quoteKeyPrefix = "quote:"
	articlesKey    = "articles:all"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func quoteKey(symbol string) string {
	return quoteKeyPrefix + symbol
}

// SetQuotes caches priced quotes for Cache.QuotesExpiration. Unpriced quotes are not cached.
func (r *RedisCache) SetQuotes(ctx context.Context, quotes []model.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetQuotes start", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	queued := 0
	for _, quote := range quotes {
		if !quote.HasPrice() {
			continue
		}

		quoteJson, err := json.Marshal(quote)
		if err != nil {
			slog.Error(
				"can't marshall quote in SetQuotes",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.String("symbol", quote.Symbol),
			)
			return errors.New("can't marshall quote")
		}

		pipe.Set(ctx, quoteKey(quote.Symbol), quoteJson, r.cfg.Cache.QuotesExpiration)
		queued++
	}

	if queued == 0 {
		return nil
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuotes completed", slog.String("rqID", rqID), slog.Int("count", queued))

	return nil
}

// GetQuotes returns the cached quotes among symbols. Symbols without a cached quote are absent from the result.
func (r *RedisCache) GetQuotes(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuotes start", slog.String("rqID", rqID))

	quotes := make(map[string]model.Quote, len(symbols))
	if len(symbols) == 0 {
		return quotes, nil
	}

	keys := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		keys = append(keys, quoteKey(symbol))
	}

	res, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Error("failed on redis.MGet", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, err
	}

	for i, raw := range res {
		str, ok := raw.(string)
		if !ok {
			continue
		}

		quote := model.Quote{}
		if err = json.Unmarshal([]byte(str), &quote); err != nil {
			slog.Warn(
				"can't unmarshall cached quote",
				slog.String("rqID", rqID),
				slog.String("key", keys[i]),
				slog.String("err", err.Error()),
			)
			continue
		}
		quotes[symbols[i]] = quote
	}

	slog.Debug("GetQuotes completed", slog.String("rqID", rqID), slog.Int("hits", len(quotes)))

	return quotes, nil
}

func (r *RedisCache) SetArticles(ctx context.Context, articles []model.Article) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetArticles start", slog.String("rqID", rqID))

	articlesJson, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("marshal articles: %w", err)
	}

	err = r.redis.Set(ctx, articlesKey, articlesJson, r.cfg.Cache.ArticlesExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetArticles completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetArticles(ctx context.Context) ([]model.Article, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetArticles start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, articlesKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", articlesKey))
		return nil, err
	}

	articles := make([]model.Article, 0)
	if err = json.Unmarshal([]byte(res), &articles); err != nil {
		slog.Error("can't unmarshall articles", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, errors.New("can't unmarshall articles")
	}

	slog.Debug("GetArticles completed", slog.String("rqID", rqID))

	return articles, nil
}

func (r *RedisCache) FlushArticles(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	err := r.redis.Del(ctx, articlesKey).Err()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", articlesKey))
		return err
	}

	return nil
}
