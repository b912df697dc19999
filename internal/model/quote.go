package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time market reading. Price is nil when the provider could not resolve the symbol.
type Quote struct {
	Symbol        string           `json:"symbol"`
	Price         *decimal.Decimal `json:"price"`
	Change        decimal.Decimal  `json:"change"`
	ChangePercent decimal.Decimal  `json:"changePercent"`
	LastUpdated   time.Time        `json:"lastUpdated"`
	Error         string           `json:"error,omitempty"`
}

func (q Quote) HasPrice() bool {
	return q.Price != nil
}

func UnavailableQuote(symbol string, now time.Time) Quote {
	return Quote{
		Symbol:      symbol,
		LastUpdated: now,
		Error:       string(StatusPriceUnavailable),
	}
}

type Prices struct {
	Prices    map[string]Quote `json:"prices"`
	Timestamp time.Time        `json:"timestamp"`
}
