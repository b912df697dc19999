package model

import "github.com/shopspring/decimal"

type PortfolioRow struct {
	UserEmail       string          `json:"user_email"`
	Strategy        string          `json:"strategy"`
	RiskLevel       string          `json:"risk_level"`
	Budget          decimal.Decimal `json:"budget"`
	Invested        decimal.Decimal `json:"invested"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	PnlPct          decimal.Decimal `json:"pnl_pct"`
	DeploymentPct   decimal.Decimal `json:"deployment_pct"`
	ActivePositions int             `json:"active_positions"`
	TotalPositions  int             `json:"total_positions"`
}

// RiskDistribution counts rows per risk level. Unknown holds levels outside low/medium/high.
type RiskDistribution struct {
	Low     int `json:"low"`
	Medium  int `json:"medium"`
	High    int `json:"high"`
	Unknown int `json:"unknown"`
}

type AggregateStats struct {
	TotalUsers       int              `json:"total_users"`
	TotalInvested    decimal.Decimal  `json:"total_invested"`
	AvgDeploymentPct decimal.Decimal  `json:"avg_deployment_pct"`
	AvgReturnPct     decimal.Decimal  `json:"avg_return_pct"`
	RiskDistribution RiskDistribution `json:"risk_distribution"`
}

type Stats struct {
	IndividualPortfolios []PortfolioRow `json:"individual_portfolios"`
	Aggregate            AggregateStats `json:"aggregate"`
}
