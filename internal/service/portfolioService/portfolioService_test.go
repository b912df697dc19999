package portfolioService

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/KotFed0t/trading_assistant/config"
	"github.com/KotFed0t/trading_assistant/data/state"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)

type repoMock struct {
	mock.Mock
}

func (m *repoMock) GetInvestmentDocuments(ctx context.Context, email string) ([]model.InvestmentDocument, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.InvestmentDocument), args.Error(1)
}

func (m *repoMock) SaveValuations(ctx context.Context, docs []model.EnrichedDocument) (int64, error) {
	args := m.Called(ctx, docs)
	return args.Get(0).(int64), args.Error(1)
}

type stateMock struct {
	mock.Mock
}

func (m *stateMock) GetState(ctx context.Context, email string) (json.RawMessage, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *stateMock) SetState(ctx context.Context, email string, st json.RawMessage) (json.RawMessage, error) {
	args := m.Called(ctx, email, st)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

type marketMock struct {
	mock.Mock
}

func (m *marketMock) GetQuotes(ctx context.Context, symbols []string) map[string]model.Quote {
	args := m.Called(ctx, symbols)
	return args.Get(0).(map[string]model.Quote)
}

type reporterMock struct {
	mock.Mock
}

func (m *reporterMock) Generate(ctx context.Context, docs []model.EnrichedDocument, stats *model.Stats) ([]byte, string, error) {
	args := m.Called(ctx, docs, stats)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

type cloudMock struct {
	mock.Mock
}

func (m *cloudMock) UploadFile(ctx context.Context, reader io.Reader, filename string) (string, error) {
	args := m.Called(ctx, reader, filename)
	return args.String(0), args.Error(1)
}

type deps struct {
	cfg      *config.Config
	repo     *repoMock
	state    *stateMock
	market   *marketMock
	reporter *reporterMock
}

func newDeps() deps {
	return deps{
		cfg:      &config.Config{},
		repo:     &repoMock{},
		state:    &stateMock{},
		market:   &marketMock{},
		reporter: &reporterMock{},
	}
}

func (d deps) service(cloud CloudStorage) *PortfolioService {
	s := New(d.cfg, d.repo, d.state, d.market, d.reporter, cloud)
	s.now = func() time.Time { return testNow }
	return s
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func priced(symbol, price string) model.Quote {
	p := dec(price)
	return model.Quote{Symbol: symbol, Price: &p, LastUpdated: testNow}
}

func doc(id int64, email, budget, risk string, allocations ...model.Allocation) model.InvestmentDocument {
	return model.InvestmentDocument{
		ID:              id,
		UserEmail:       email,
		UserPreferences: model.UserPreferences{Budget: dec(budget), Strategy: "growth", Risk: risk},
		InvestAnalysis:  model.InvestAnalysis{Summary: model.AnalysisSummary{PortfolioAnalysis: allocations}},
	}
}

var alice = model.Identity{Username: "alice", Email: "alice@example.com"}

func TestGetPortfolio_SharedQuoteBatch(t *testing.T) {
	d := newDeps()
	docs := []model.InvestmentDocument{
		doc(1, alice.Email, "2000", "low", model.Allocation{Ticker: "AAPL", Invested: dec("1000"), Shares: dec("5")}),
		doc(2, alice.Email, "1000", "high",
			model.Allocation{Ticker: "aapl", Invested: dec("200"), Shares: dec("1")},
			model.Allocation{Ticker: "MSFT", Invested: dec("300"), Shares: dec("1")},
		),
	}
	quotes := map[string]model.Quote{"AAPL": priced("AAPL", "220"), "MSFT": priced("MSFT", "400")}
	d.repo.On("GetInvestmentDocuments", mock.Anything, alice.Email).Return(docs, nil)
	d.market.On("GetQuotes", mock.Anything, []string{"AAPL", "MSFT"}).Return(quotes).Once()
	d.state.On("GetState", mock.Anything, alice.Email).Return(json.RawMessage(`{"tab":"overview"}`), nil)

	resp, err := d.service(nil).GetPortfolio(context.Background(), alice)

	require.NoError(t, err)
	require.Len(t, resp.AstraDocs, 2)
	assert.Empty(t, resp.Message)
	assert.True(t, resp.AstraDocs[0].InvestAnalysis.Summary.TotalCurrentValue.Equal(dec("1100")))
	assert.True(t, resp.AstraDocs[1].InvestAnalysis.Summary.TotalCurrentValue.Equal(dec("620")))
	assert.JSONEq(t, `{"tab":"overview"}`, string(resp.RedisState))

	require.NotNil(t, resp.Stats)
	assert.Equal(t, 2, resp.Stats.Aggregate.TotalUsers)
	assert.True(t, resp.Stats.Aggregate.TotalInvested.Equal(dec("1500")))
	assert.Equal(t, model.RiskDistribution{Low: 1, High: 1}, resp.Stats.Aggregate.RiskDistribution)

	require.NotNil(t, resp.MarketData)
	assert.Equal(t, []string{"AAPL", "MSFT"}, resp.MarketData.SymbolsTracked)
	assert.True(t, resp.MarketData.PriceSuccessRate.Equal(dec("100")))
	assert.Equal(t, testNow, resp.MarketData.LastUpdated)

	d.market.AssertNumberOfCalls(t, "GetQuotes", 1)
	d.repo.AssertNotCalled(t, "SaveValuations", mock.Anything, mock.Anything)
}

func TestGetPortfolio_PartialQuotes(t *testing.T) {
	d := newDeps()
	docs := []model.InvestmentDocument{
		doc(1, alice.Email, "5000", "medium",
			model.Allocation{Ticker: "AAPL", Invested: dec("1000"), Shares: dec("5")},
			model.Allocation{Ticker: "MSFT", Invested: dec("1000"), Shares: dec("2")},
			model.Allocation{Ticker: "XYZ", Invested: dec("500"), Shares: dec("2")},
		),
	}
	quotes := map[string]model.Quote{
		"AAPL": priced("AAPL", "220"),
		"MSFT": priced("MSFT", "400"),
		"XYZ":  model.UnavailableQuote("XYZ", testNow),
	}
	d.repo.On("GetInvestmentDocuments", mock.Anything, alice.Email).Return(docs, nil)
	d.market.On("GetQuotes", mock.Anything, []string{"AAPL", "MSFT", "XYZ"}).Return(quotes)
	d.state.On("GetState", mock.Anything, alice.Email).Return(nil, nil)

	resp, err := d.service(nil).GetPortfolio(context.Background(), alice)

	require.NoError(t, err)
	assert.Equal(t, "66.67", resp.MarketData.PriceSuccessRate.String())
	assert.Nil(t, resp.RedisState)
	positions := resp.AstraDocs[0].InvestAnalysis.PortfolioAnalysis
	assert.Equal(t, model.StatusPriceUnavailable, positions[2].Status)
	assert.True(t, resp.AstraDocs[0].InvestAnalysis.Summary.TotalInvested.Equal(dec("2500")))
}

func TestGetPortfolio_NoDocuments(t *testing.T) {
	d := newDeps()
	d.repo.On("GetInvestmentDocuments", mock.Anything, alice.Email).Return([]model.InvestmentDocument{}, nil)

	resp, err := d.service(nil).GetPortfolio(context.Background(), alice)

	require.NoError(t, err)
	assert.Equal(t, "No portfolios found", resp.Message)
	assert.NotNil(t, resp.AstraDocs)
	assert.Empty(t, resp.AstraDocs)
	assert.Nil(t, resp.Stats)
	assert.Nil(t, resp.RedisState)
	d.market.AssertNotCalled(t, "GetQuotes", mock.Anything, mock.Anything)
	d.state.AssertNotCalled(t, "GetState", mock.Anything, mock.Anything)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"No portfolios found","astraDocs":[],"redisState":null,"stats":null}`, string(raw))
}

func TestGetPortfolio_Unauthenticated(t *testing.T) {
	d := newDeps()

	_, err := d.service(nil).GetPortfolio(context.Background(), model.Identity{})

	assert.ErrorIs(t, err, service.ErrUnauthenticated)
	d.repo.AssertNotCalled(t, "GetInvestmentDocuments", mock.Anything, mock.Anything)
}

func TestGetPortfolio_DocumentStoreFailure(t *testing.T) {
	d := newDeps()
	storeErr := errors.New("connection refused")
	d.repo.On("GetInvestmentDocuments", mock.Anything, alice.Email).Return(nil, storeErr)

	_, err := d.service(nil).GetPortfolio(context.Background(), alice)

	assert.ErrorIs(t, err, storeErr)
}

func TestGetPortfolio_StateStoreFailure(t *testing.T) {
	d := newDeps()
	d.repo.On("GetInvestmentDocuments", mock.Anything, alice.Email).
		Return([]model.InvestmentDocument{doc(1, alice.Email, "100", "low")}, nil)
	d.market.On("GetQuotes", mock.Anything, []string{}).Return(map[string]model.Quote{})
	d.state.On("GetState", mock.Anything, alice.Email).Return(nil, errors.New("redis down"))

	_, err := d.service(nil).GetPortfolio(context.Background(), alice)

	assert.Error(t, err)
}

func TestGetPortfolio_PersistsInBackground(t *testing.T) {
	d := newDeps()
	d.cfg.Portfolio.PersistValuations = true
	docs := []model.InvestmentDocument{
		doc(1, alice.Email, "2000", "low", model.Allocation{Ticker: "AAPL", Invested: dec("1000"), Shares: dec("5")}),
	}
	saved := make(chan []model.EnrichedDocument, 1)
	d.repo.On("GetInvestmentDocuments", mock.Anything, alice.Email).Return(docs, nil)
	d.repo.On("SaveValuations", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved <- args.Get(1).([]model.EnrichedDocument) }).
		Return(int64(1), nil)
	d.market.On("GetQuotes", mock.Anything, []string{"AAPL"}).Return(map[string]model.Quote{"AAPL": priced("AAPL", "220")})
	d.state.On("GetState", mock.Anything, alice.Email).Return(nil, nil)

	_, err := d.service(nil).GetPortfolio(context.Background(), alice)
	require.NoError(t, err)

	select {
	case docs := <-saved:
		require.Len(t, docs, 1)
		assert.Equal(t, int64(1), docs[0].ID)
	case <-time.After(time.Second):
		t.Fatal("valuations were not persisted")
	}
}

func TestPersistPortfolio(t *testing.T) {
	d := newDeps()
	docs := []model.InvestmentDocument{
		doc(1, alice.Email, "2000", "low", model.Allocation{Ticker: "AAPL", Invested: dec("1000"), Shares: dec("5")}),
	}
	d.repo.On("GetInvestmentDocuments", mock.Anything, alice.Email).Return(docs, nil)
	d.market.On("GetQuotes", mock.Anything, []string{"AAPL"}).Return(map[string]model.Quote{"AAPL": priced("AAPL", "220")})
	d.repo.On("SaveValuations", mock.Anything, mock.MatchedBy(func(docs []model.EnrichedDocument) bool {
		return len(docs) == 1 && docs[0].InvestAnalysis.Summary.TotalCurrentValue.Equal(dec("1100"))
	})).Return(int64(1), nil)

	updated, err := d.service(nil).PersistPortfolio(context.Background(), alice)

	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
}

func TestGenerateReport(t *testing.T) {
	docs := []model.InvestmentDocument{
		doc(1, alice.Email, "2000", "low", model.Allocation{Ticker: "AAPL", Invested: dec("1000"), Shares: dec("5")}),
	}

	t.Run("file", func(t *testing.T) {
		d := newDeps()
		d.repo.On("GetInvestmentDocuments", mock.Anything, alice.Email).Return(docs, nil)
		d.market.On("GetQuotes", mock.Anything, []string{"AAPL"}).Return(map[string]model.Quote{})
		d.reporter.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return([]byte("xlsx"), ".xlsx", nil)

		report, err := d.service(nil).GenerateReport(context.Background(), alice)

		require.NoError(t, err)
		assert.Equal(t, "portfolio_20250314_150000.xlsx", report.Filename)
		assert.Equal(t, []byte("xlsx"), report.Content)
		assert.Empty(t, report.Link)
	})

	t.Run("uploaded", func(t *testing.T) {
		d := newDeps()
		cloud := &cloudMock{}
		d.repo.On("GetInvestmentDocuments", mock.Anything, alice.Email).Return(docs, nil)
		d.market.On("GetQuotes", mock.Anything, []string{"AAPL"}).Return(map[string]model.Quote{})
		d.reporter.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return([]byte("xlsx"), ".xlsx", nil)
		cloud.On("UploadFile", mock.Anything, mock.Anything, "portfolio_20250314_150000.xlsx").
			Return("https://drive.google.com/file/d/abc/view", nil)

		report, err := d.service(cloud).GenerateReport(context.Background(), alice)

		require.NoError(t, err)
		assert.Equal(t, "https://drive.google.com/file/d/abc/view", report.Link)
		assert.Nil(t, report.Content)
	})

	t.Run("no documents", func(t *testing.T) {
		d := newDeps()
		d.repo.On("GetInvestmentDocuments", mock.Anything, alice.Email).Return([]model.InvestmentDocument{}, nil)

		_, err := d.service(nil).GenerateReport(context.Background(), alice)

		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestSetState(t *testing.T) {
	d := newDeps()
	body := json.RawMessage(`{"a":1}`)
	d.state.On("SetState", mock.Anything, alice.Email, body).Return(body, nil)
	d.state.On("SetState", mock.Anything, alice.Email, json.RawMessage(`{`)).Return(nil, state.ErrInvalidState)
	s := d.service(nil)

	stored, err := s.SetState(context.Background(), alice, body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(stored))

	_, err = s.SetState(context.Background(), alice, json.RawMessage(`{`))
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = s.SetState(context.Background(), model.Identity{}, body)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
}
