package marketService

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/trading_assistant/config"
	"github.com/KotFed0t/trading_assistant/internal/externalApi"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)

type fakeQuoteApi struct {
	prices map[string]string
	delay  map[string]time.Duration
	calls  atomic.Int32
}

func (f *fakeQuoteApi) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	f.calls.Add(1)
	if d, ok := f.delay[symbol]; ok {
		select {
		case <-ctx.Done():
			return model.Quote{}, ctx.Err()
		case <-time.After(d):
		}
	}

	raw, ok := f.prices[symbol]
	if !ok {
		return model.Quote{}, externalApi.ErrNotFound
	}
	price := decimal.RequireFromString(raw)
	return model.Quote{Symbol: symbol, Price: &price}, nil
}

type fakeCache struct {
	mu     sync.Mutex
	quotes map[string]model.Quote
	getErr error
	sets   chan []model.Quote
}

func newFakeCache() *fakeCache {
	return &fakeCache{quotes: map[string]model.Quote{}, sets: make(chan []model.Quote, 10)}
}

func (c *fakeCache) GetQuotes(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	res := map[string]model.Quote{}
	for _, s := range symbols {
		if q, ok := c.quotes[s]; ok {
			res[s] = q
		}
	}
	return res, nil
}

func (c *fakeCache) SetQuotes(ctx context.Context, quotes []model.Quote) error {
	c.mu.Lock()
	for _, q := range quotes {
		if q.HasPrice() {
			c.quotes[q.Symbol] = q
		}
	}
	c.mu.Unlock()
	c.sets <- quotes
	return nil
}

type repoMock struct {
	mock.Mock
}

func (m *repoMock) GetTrackedTickers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newTestService(api QuoteApi, cache Cache, repo Repository) *MarketService {
	cfg := &config.Config{}
	cfg.Quotes.Timeout = 50 * time.Millisecond
	cfg.Quotes.MaxConcurrency = 4
	s := New(cfg, api, cache, repo)
	s.now = func() time.Time { return testNow }
	return s
}

func waitForSet(t *testing.T, cache *fakeCache) []model.Quote {
	t.Helper()
	select {
	case quotes := <-cache.sets:
		return quotes
	case <-time.After(time.Second):
		t.Fatal("quotes were not cached")
		return nil
	}
}

func TestGetQuotes_PartialFailure(t *testing.T) {
	api := &fakeQuoteApi{prices: map[string]string{"AAPL": "187.25", "MSFT": "410"}}
	cache := newFakeCache()
	s := newTestService(api, cache, nil)

	quotes := s.GetQuotes(context.Background(), []string{"AAPL", "MSFT", "XYZ"})

	require.Len(t, quotes, 3)
	assert.True(t, quotes["AAPL"].Price.Equal(decimal.RequireFromString("187.25")))
	assert.True(t, quotes["MSFT"].HasPrice())
	assert.False(t, quotes["XYZ"].HasPrice())
	assert.Equal(t, testNow, quotes["XYZ"].LastUpdated)

	cached := waitForSet(t, cache)
	assert.Len(t, cached, 3)
}

func TestGetQuotes_SlowSymbolDoesNotBlockOthers(t *testing.T) {
	api := &fakeQuoteApi{
		prices: map[string]string{"AAPL": "187.25", "SLOW": "1"},
		delay:  map[string]time.Duration{"SLOW": 2 * time.Second},
	}
	s := newTestService(api, newFakeCache(), nil)

	started := time.Now()
	quotes := s.GetQuotes(context.Background(), []string{"AAPL", "SLOW"})

	assert.Less(t, time.Since(started), time.Second)
	assert.True(t, quotes["AAPL"].HasPrice())
	assert.False(t, quotes["SLOW"].HasPrice())
}

func TestGetQuotes_UsesCacheAndDeduplicates(t *testing.T) {
	api := &fakeQuoteApi{prices: map[string]string{"MSFT": "410"}}
	cache := newFakeCache()
	cachedPrice := decimal.NewFromInt(180)
	cache.quotes["AAPL"] = model.Quote{Symbol: "AAPL", Price: &cachedPrice}
	s := newTestService(api, cache, nil)

	quotes := s.GetQuotes(context.Background(), []string{"aapl", "AAPL", " msft", "MSFT", ""})

	require.Len(t, quotes, 2)
	assert.True(t, quotes["AAPL"].Price.Equal(cachedPrice))
	assert.Equal(t, int32(1), api.calls.Load())
	waitForSet(t, cache)
}

func TestGetQuotes_CacheFailureFallsBackToProvider(t *testing.T) {
	api := &fakeQuoteApi{prices: map[string]string{"AAPL": "187.25"}}
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	s := newTestService(api, cache, nil)

	quotes := s.GetQuotes(context.Background(), []string{"AAPL"})

	assert.True(t, quotes["AAPL"].HasPrice())
	waitForSet(t, cache)
}

func TestGetQuotes_Empty(t *testing.T) {
	api := &fakeQuoteApi{}
	s := newTestService(api, newFakeCache(), nil)

	assert.Empty(t, s.GetQuotes(context.Background(), nil))
	assert.Equal(t, int32(0), api.calls.Load())
}

func TestGetPrices(t *testing.T) {
	api := &fakeQuoteApi{prices: map[string]string{"AAPL": "187.25"}}
	cache := newFakeCache()
	s := newTestService(api, cache, nil)

	prices := s.GetPrices(context.Background(), []string{"AAPL"})

	assert.Equal(t, testNow, prices.Timestamp)
	assert.Contains(t, prices.Prices, "AAPL")
	waitForSet(t, cache)
}

func TestGetPrices_KeysByRequestedSymbol(t *testing.T) {
	api := &fakeQuoteApi{prices: map[string]string{"AAPL": "187.25"}}
	cache := newFakeCache()
	s := newTestService(api, cache, nil)

	prices := s.GetPrices(context.Background(), []string{"aapl", " AAPL ", "", "zzz"})

	require.Len(t, prices.Prices, 3)
	require.Contains(t, prices.Prices, "aapl")
	require.Contains(t, prices.Prices, "AAPL")
	require.Contains(t, prices.Prices, "zzz")
	assert.True(t, prices.Prices["aapl"].Price.Equal(decimal.RequireFromString("187.25")))
	assert.Equal(t, prices.Prices["aapl"], prices.Prices["AAPL"])
	assert.Nil(t, prices.Prices["zzz"].Price)
	assert.Equal(t, int32(2), api.calls.Load())
	waitForSet(t, cache)
}

func TestFillQuoteCache(t *testing.T) {
	api := &fakeQuoteApi{prices: map[string]string{"AAPL": "187.25", "MSFT": "410"}}
	cache := newFakeCache()
	repo := &repoMock{}
	repo.On("GetTrackedTickers", mock.Anything).Return([]string{"AAPL", "MSFT", "GONE"}, nil)
	s := newTestService(api, cache, repo)

	err := s.FillQuoteCache(context.Background())

	require.NoError(t, err)
	assert.Len(t, cache.quotes, 2)
	assert.Contains(t, cache.quotes, "AAPL")
	repo.AssertExpectations(t)
}

func TestFillQuoteCache_RepositoryError(t *testing.T) {
	repo := &repoMock{}
	repo.On("GetTrackedTickers", mock.Anything).Return(nil, errors.New("db down"))
	s := newTestService(&fakeQuoteApi{}, newFakeCache(), repo)

	err := s.FillQuoteCache(context.Background())

	assert.Error(t, err)
}
