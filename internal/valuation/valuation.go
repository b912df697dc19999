// Package valuation recomputes investment documents against live quotes and
// reduces the valued documents into platform statistics.
//
// Nothing here performs I/O or returns errors: a position that cannot be valued
// is reported through its status and contributes nothing to value totals.
package valuation

import (
	"strings"
	"time"

	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// NormalizeTicker is the canonical form used for quote lookups: trimmed and upper-cased.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Tickers returns the deduplicated tickers referenced by docs, in first-seen order.
func Tickers(docs []model.InvestmentDocument) []string {
	raw := make([]string, 0)
	for _, doc := range docs {
		for _, allocation := range doc.Allocations() {
			raw = append(raw, allocation.Ticker)
		}
	}
	return NormalizeTickers(raw)
}

// NormalizeTickers normalizes tickers and drops blanks and repeats, keeping first-seen order.
func NormalizeTickers(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	normalized := make([]string, 0, len(tickers))

	for _, t := range tickers {
		ticker := NormalizeTicker(t)
		if ticker == "" {
			continue
		}
		if _, ok := seen[ticker]; ok {
			continue
		}
		seen[ticker] = struct{}{}
		normalized = append(normalized, ticker)
	}

	return normalized
}

// ValueAllocation values one position with the quote batch.
func ValueAllocation(allocation model.Allocation, quotes map[string]model.Quote, now time.Time) model.ValuedAllocation {
	valued := model.ValuedAllocation{
		Allocation:  allocation,
		Status:      model.StatusPriceUnavailable,
		LastUpdated: now,
	}

	ticker := NormalizeTicker(allocation.Ticker)
	if ticker == "" {
		return valued
	}

	quote, ok := quotes[ticker]
	if !ok || !quote.HasPrice() {
		return valued
	}

	if !allocation.Shares.IsPositive() {
		valued.Status = model.StatusNoShares
		return valued
	}

	price := *quote.Price
	currentValue := allocation.Shares.Mul(price)
	pnl := currentValue.Sub(allocation.Invested)
	pnlPct := decimal.Zero
	if allocation.Invested.IsPositive() {
		pnlPct = pnl.Div(allocation.Invested).Mul(hundred)
	}

	valued.PriceNow = &price
	valued.CurrentValue = &currentValue
	valued.Pnl = &pnl
	valued.PnlPct = &pnlPct
	valued.Status = model.StatusUpdated

	return valued
}

// Summarize folds valued positions into document totals.
func Summarize(allocations []model.ValuedAllocation, budget decimal.Decimal, now time.Time) model.Summary {
	summary := model.Summary{
		Budget:      budget,
		LastUpdated: now,
	}

	for _, allocation := range allocations {
		summary.TotalInvested = summary.TotalInvested.Add(allocation.Invested)

		if allocation.CurrentValue != nil {
			summary.TotalCurrentValue = summary.TotalCurrentValue.Add(*allocation.CurrentValue)
		}
		if allocation.Pnl != nil {
			summary.TotalPnl = summary.TotalPnl.Add(*allocation.Pnl)
		}
	}

	if summary.TotalInvested.IsPositive() {
		summary.TotalPnlPct = summary.TotalPnl.Div(summary.TotalInvested).Mul(hundred)
	}

	summary.BudgetRemaining = budget.Sub(summary.TotalInvested)

	if budget.IsPositive() {
		summary.BudgetDeployedPct = summary.TotalInvested.Div(budget).Mul(hundred)
	}

	return summary
}

// ValueDocument returns a valued copy of doc. doc itself is left untouched.
func ValueDocument(doc model.InvestmentDocument, quotes map[string]model.Quote, now time.Time) model.EnrichedDocument {
	allocations := doc.Allocations()
	valued := make([]model.ValuedAllocation, 0, len(allocations))
	for _, allocation := range allocations {
		valued = append(valued, ValueAllocation(allocation, quotes, now))
	}

	return model.EnrichedDocument{
		ID:              doc.ID,
		UserEmail:       doc.UserEmail,
		UserPreferences: doc.UserPreferences,
		InvestAnalysis: model.ValuedAnalysis{
			PortfolioAnalysis: valued,
			Summary:           Summarize(valued, doc.UserPreferences.Budget, now),
		},
		PriceData:   quotes,
		LastUpdated: now,
	}
}

// ValueDocuments values every document against the same quote batch, preserving order.
func ValueDocuments(docs []model.InvestmentDocument, quotes map[string]model.Quote, now time.Time) []model.EnrichedDocument {
	enriched := make([]model.EnrichedDocument, 0, len(docs))
	for _, doc := range docs {
		enriched = append(enriched, ValueDocument(doc, quotes, now))
	}
	return enriched
}

// SuccessRate is the percentage of symbols with a resolved price, rounded to 2 decimals.
func SuccessRate(symbols []string, quotes map[string]model.Quote) decimal.Decimal {
	if len(symbols) == 0 {
		return decimal.Zero
	}

	resolved := 0
	for _, symbol := range symbols {
		if quote, ok := quotes[symbol]; ok && quote.HasPrice() {
			resolved++
		}
	}

	return decimal.NewFromInt(int64(resolved)).
		Div(decimal.NewFromInt(int64(len(symbols)))).
		Mul(hundred).
		Round(2)
}
