package xslsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	overviewSheet     = "Overview"
	maxSheetNameRunes = 31

	colorPositions = "#cfe2f3"
	colorSummary   = "#d9ead3"
	colorOverview  = "#f9cb9c"
)

var sheetNameReplacer = strings.NewReplacer(":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

// Generate renders one sheet per valued document, preceded by an overview sheet when stats is set.
func (g *XSLSXGenerator) Generate(ctx context.Context, docs []model.EnrichedDocument, stats *model.Stats) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	if len(docs) == 0 {
		return nil, "", errors.New("empty portfolios")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if stats != nil {
		if err = g.fillOverview(f, stats); err != nil {
			return nil, "", err
		}
	}

	for i, doc := range docs {
		if err = g.fillSheet(f, doc, i+1); err != nil {
			return nil, "", err
		}
	}

	// drop the default sheet created by excelize.NewFile
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func sheetName(doc model.EnrichedDocument, ordinal int) string {
	strategy := doc.UserPreferences.Strategy
	if strategy == "" {
		strategy = "portfolio"
	}

	name := []rune(fmt.Sprintf("%d. %s", ordinal, sheetNameReplacer.Replace(strategy)))
	if len(name) > maxSheetNameRunes {
		name = name[:maxSheetNameRunes]
	}
	return string(name)
}

func (g *XSLSXGenerator) header(f *excelize.File, sheet, from, to, title, color string) error {
	if from != to {
		if err := f.MergeCell(sheet, from, to); err != nil {
			return err
		}
	}

	if err := f.SetCellStr(sheet, from, title); err != nil {
		return err
	}

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	if err = f.SetCellStyle(sheet, from, from, styleID); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	return nil
}

func setDecimal(f *excelize.File, sheet, cell string, value decimal.Decimal) {
	_ = f.SetCellValue(sheet, cell, value.InexactFloat64())
}

func setOptionalDecimal(f *excelize.File, sheet, cell string, value *decimal.Decimal) {
	if value == nil {
		return
	}
	setDecimal(f, sheet, cell, *value)
}

func (g *XSLSXGenerator) fillSheet(f *excelize.File, doc model.EnrichedDocument, ordinal int) error {
	sheet := sheetName(doc, ordinal)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheet, err)
	}

	if err := g.header(f, sheet, "A1", "H1", "Positions", colorPositions); err != nil {
		return err
	}

	_ = f.SetCellStr(sheet, "A2", "ticker")
	_ = f.SetCellStr(sheet, "B2", "invested")
	_ = f.SetCellStr(sheet, "C2", "shares")
	_ = f.SetCellStr(sheet, "D2", "price now")
	_ = f.SetCellStr(sheet, "E2", "current value")
	_ = f.SetCellStr(sheet, "F2", "pnl")
	_ = f.SetCellStr(sheet, "G2", "pnl %")
	_ = f.SetCellStr(sheet, "H2", "status")

	positions := doc.InvestAnalysis.PortfolioAnalysis
	for i, p := range positions {
		row := i + 3
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", row), p.Ticker)
		setDecimal(f, sheet, fmt.Sprintf("B%d", row), p.Invested)
		setDecimal(f, sheet, fmt.Sprintf("C%d", row), p.Shares)
		setOptionalDecimal(f, sheet, fmt.Sprintf("D%d", row), p.PriceNow)
		setOptionalDecimal(f, sheet, fmt.Sprintf("E%d", row), p.CurrentValue)
		setOptionalDecimal(f, sheet, fmt.Sprintf("F%d", row), p.Pnl)
		setOptionalDecimal(f, sheet, fmt.Sprintf("G%d", row), p.PnlPct)
		_ = f.SetCellStr(sheet, fmt.Sprintf("H%d", row), string(p.Status))
	}

	rowNum := len(positions) + 5
	if err := g.header(f, sheet, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("B%d", rowNum), "Summary", colorSummary); err != nil {
		return err
	}

	summary := doc.InvestAnalysis.Summary
	lines := []struct {
		label string
		value decimal.Decimal
	}{
		{"budget", summary.Budget},
		{"total invested", summary.TotalInvested},
		{"total current value", summary.TotalCurrentValue},
		{"total pnl", summary.TotalPnl},
		{"total pnl %", summary.TotalPnlPct},
		{"budget remaining", summary.BudgetRemaining},
		{"budget deployed %", summary.BudgetDeployedPct},
	}
	for _, line := range lines {
		rowNum++
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", rowNum), line.label)
		setDecimal(f, sheet, fmt.Sprintf("B%d", rowNum), line.value)
	}

	rowNum++
	_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", rowNum), "last updated")
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNum), summary.LastUpdated)

	return nil
}

func (g *XSLSXGenerator) fillOverview(f *excelize.File, stats *model.Stats) error {
	if _, err := f.NewSheet(overviewSheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", overviewSheet, err)
	}

	if err := g.header(f, overviewSheet, "A1", "B1", "Overview", colorOverview); err != nil {
		return err
	}

	aggregate := stats.Aggregate
	_ = f.SetCellStr(overviewSheet, "A2", "portfolios")
	_ = f.SetCellInt(overviewSheet, "B2", aggregate.TotalUsers)
	_ = f.SetCellStr(overviewSheet, "A3", "total invested")
	setDecimal(f, overviewSheet, "B3", aggregate.TotalInvested)
	_ = f.SetCellStr(overviewSheet, "A4", "avg deployment %")
	setDecimal(f, overviewSheet, "B4", aggregate.AvgDeploymentPct)
	_ = f.SetCellStr(overviewSheet, "A5", "avg return %")
	setDecimal(f, overviewSheet, "B5", aggregate.AvgReturnPct)

	return nil
}
