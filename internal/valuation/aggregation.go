package valuation

import (
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/shopspring/decimal"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"

	defaultRisk     = RiskMedium
	defaultStrategy = "unknown"
)

// Row flattens one valued document into its statistics row, applying strategy and risk defaults.
func Row(doc model.EnrichedDocument) model.PortfolioRow {
	prefs := doc.UserPreferences
	summary := doc.InvestAnalysis.Summary

	row := model.PortfolioRow{
		UserEmail:      doc.UserEmail,
		Strategy:       prefs.Strategy,
		RiskLevel:      prefs.Risk,
		Budget:         prefs.Budget,
		Invested:       summary.TotalInvested,
		CurrentValue:   summary.TotalCurrentValue,
		PnlPct:         summary.TotalPnlPct,
		DeploymentPct:  summary.BudgetDeployedPct,
		TotalPositions: len(doc.InvestAnalysis.PortfolioAnalysis),
	}

	if row.Strategy == "" {
		row.Strategy = defaultStrategy
	}
	if row.RiskLevel == "" {
		row.RiskLevel = defaultRisk
	}

	for _, allocation := range doc.InvestAnalysis.PortfolioAnalysis {
		if allocation.Shares.IsPositive() {
			row.ActivePositions++
		}
	}

	return row
}

// Aggregate returns nil when docs is empty so callers can tell "no portfolios"
// apart from a zero rollup.
func Aggregate(docs []model.EnrichedDocument) *model.Stats {
	if len(docs) == 0 {
		return nil
	}

	rows := make([]model.PortfolioRow, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, Row(doc))
	}

	aggregate := model.AggregateStats{TotalUsers: len(rows)}

	deploymentSum := decimal.Zero
	returnSum := decimal.Zero
	for _, row := range rows {
		aggregate.TotalInvested = aggregate.TotalInvested.Add(row.Invested)
		deploymentSum = deploymentSum.Add(row.DeploymentPct)
		returnSum = returnSum.Add(row.PnlPct)

		switch row.RiskLevel {
		case RiskLow:
			aggregate.RiskDistribution.Low++
		case RiskMedium:
			aggregate.RiskDistribution.Medium++
		case RiskHigh:
			aggregate.RiskDistribution.High++
		default:
			aggregate.RiskDistribution.Unknown++
		}
	}

	count := decimal.NewFromInt(int64(len(rows)))
	aggregate.AvgDeploymentPct = deploymentSum.Div(count)
	aggregate.AvgReturnPct = returnSum.Div(count)

	return &model.Stats{
		IndividualPortfolios: rows,
		Aggregate:            aggregate,
	}
}
