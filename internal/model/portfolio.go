package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// money travels as plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type AllocationStatus string

const (
	StatusUpdated          AllocationStatus = "Updated"
	StatusNoShares         AllocationStatus = "No shares"
	StatusPriceUnavailable AllocationStatus = "Price unavailable"
)

// Allocation is one traded position of an investment document.
type Allocation struct {
	Ticker   string          `json:"ticker"`
	Invested decimal.Decimal `json:"invested"`
	Shares   decimal.Decimal `json:"shares"`
}

type UserPreferences struct {
	Budget   decimal.Decimal `json:"budget"`
	Strategy string          `json:"strategy,omitempty"`
	Risk     string          `json:"risk,omitempty"`
}

type AnalysisSummary struct {
	PortfolioAnalysis []Allocation `json:"portfolio_analysis"`
}

type InvestAnalysis struct {
	Summary AnalysisSummary `json:"summary"`
}

// InvestmentDocument is the stored analysis written by the trading agent for one user.
type InvestmentDocument struct {
	ID              int64           `json:"_id"`
	UserEmail       string          `json:"user_email"`
	UserPreferences UserPreferences `json:"user_preferences"`
	InvestAnalysis  InvestAnalysis  `json:"invest_analysis"`
}

func (d InvestmentDocument) Allocations() []Allocation {
	return d.InvestAnalysis.Summary.PortfolioAnalysis
}

type ValuedAllocation struct {
	Allocation
	PriceNow     *decimal.Decimal `json:"price_now,omitempty"`
	CurrentValue *decimal.Decimal `json:"current_value,omitempty"`
	Pnl          *decimal.Decimal `json:"pnl,omitempty"`
	PnlPct       *decimal.Decimal `json:"pnl_pct,omitempty"`
	Status       AllocationStatus `json:"status"`
	LastUpdated  time.Time        `json:"last_updated"`
}

// Summary holds valuation totals of one document.
type Summary struct {
	TotalInvested     decimal.Decimal `json:"total_invested"`
	TotalCurrentValue decimal.Decimal `json:"total_current_value"`
	TotalPnl          decimal.Decimal `json:"total_pnl"`
	TotalPnlPct       decimal.Decimal `json:"total_pnl_pct"`
	Budget            decimal.Decimal `json:"budget"`
	BudgetRemaining   decimal.Decimal `json:"budget_remaining"`
	BudgetDeployedPct decimal.Decimal `json:"budget_deployed_pct"`
	LastUpdated       time.Time       `json:"last_updated"`
}

type ValuedAnalysis struct {
	PortfolioAnalysis []ValuedAllocation `json:"portfolio_analysis"`
	Summary           Summary            `json:"summary"`
}

// EnrichedDocument is a valued copy of an InvestmentDocument.
type EnrichedDocument struct {
	ID              int64            `json:"_id"`
	UserEmail       string           `json:"user_email"`
	UserPreferences UserPreferences  `json:"user_preferences"`
	InvestAnalysis  ValuedAnalysis   `json:"invest_analysis"`
	PriceData       map[string]Quote `json:"price_data"`
	LastUpdated     time.Time        `json:"last_updated"`
}

type MarketData struct {
	SymbolsTracked   []string        `json:"symbols_tracked"`
	PriceSuccessRate decimal.Decimal `json:"price_success_rate"`
	LastUpdated      time.Time       `json:"last_updated"`
}

type PortfolioResponse struct {
	Message    string             `json:"message,omitempty"`
	AstraDocs  []EnrichedDocument `json:"astraDocs"`
	RedisState json.RawMessage    `json:"redisState"`
	Stats      *Stats             `json:"stats"`
	MarketData *MarketData        `json:"market_data,omitempty"`
}

type Report struct {
	Filename string
	Content  []byte
	Link     string
}
