package dbConverter

import (
	"encoding/json"
	"fmt"

	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/model/dbModel"
	"github.com/shopspring/decimal"
)

func ConvertUser(dbUser dbModel.User) model.User {
	return model.User{
		Username: dbUser.Username,
		Email:    dbUser.Email,
		Role:     dbUser.Role,
	}
}

func ConvertArticle(dbArticle dbModel.Article) model.Article {
	return model.Article{
		ID:        dbArticle.ID,
		Title:     dbArticle.Title,
		Content:   dbArticle.Content.String,
		CreatedAt: dbArticle.CreatedAt,
	}
}

func ConvertAgentArticle(dbArticle dbModel.AgentArticle) model.AgentArticle {
	return model.AgentArticle{
		ID:            dbArticle.ID,
		Title:         dbArticle.Title,
		Url:           dbArticle.Url,
		EconomicTerms: dbArticle.EconomicTerms,
		Content:       dbArticle.Content.String,
		PublishedAt:   dbArticle.PublishedAt,
	}
}

func ConvertStockPrice(dbPrice dbModel.StockPrice) model.StockPrice {
	return model.StockPrice{
		ID:         dbPrice.ID,
		Symbol:     dbPrice.Symbol,
		Price:      dbPrice.Price,
		RecordedAt: dbPrice.RecordedAt,
	}
}

func ConvertCalendarEvent(dbEvent dbModel.CalendarEvent) model.CalendarEvent {
	return model.CalendarEvent{
		ID:    dbEvent.ID,
		Date:  dbEvent.Date,
		Title: dbEvent.Title,
		Url:   dbEvent.Url,
	}
}

// storedDocument is the JSONB body as written by the agent. Positions and preferences are kept raw
// so a mistyped field costs only that field.
type storedDocument struct {
	UserPreferences map[string]json.RawMessage `json:"user_preferences"`
	InvestAnalysis  struct {
		Summary struct {
			PortfolioAnalysis []json.RawMessage `json:"portfolio_analysis"`
		} `json:"summary"`
	} `json:"invest_analysis"`
}

// ConvertInvestmentDocument decodes the stored JSONB body. Row id and owner come from the table columns.
// Only a body that is not a document at all is an error; a bad position field decodes to its zero value
// and the position stays in the list.
func ConvertInvestmentDocument(dbDoc dbModel.InvestmentDocument) (model.InvestmentDocument, error) {
	stored := storedDocument{}
	if err := json.Unmarshal(dbDoc.Doc, &stored); err != nil {
		return model.InvestmentDocument{}, fmt.Errorf("decode investment document %d: %w", dbDoc.ID, err)
	}

	rawAllocations := stored.InvestAnalysis.Summary.PortfolioAnalysis
	allocations := make([]model.Allocation, 0, len(rawAllocations))
	for _, raw := range rawAllocations {
		allocations = append(allocations, convertAllocation(raw))
	}

	prefs := stored.UserPreferences
	return model.InvestmentDocument{
		ID:        dbDoc.ID,
		UserEmail: dbDoc.UserEmail,
		UserPreferences: model.UserPreferences{
			Budget:   lenientDecimal(prefs["budget"]),
			Strategy: lenientString(prefs["strategy"]),
			Risk:     lenientString(prefs["risk"]),
		},
		InvestAnalysis: model.InvestAnalysis{
			Summary: model.AnalysisSummary{PortfolioAnalysis: allocations},
		},
	}, nil
}

func convertAllocation(raw json.RawMessage) model.Allocation {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.Allocation{}
	}

	return model.Allocation{
		Ticker:   lenientString(fields["ticker"]),
		Invested: lenientDecimal(fields["invested"]),
		Shares:   lenientDecimal(fields["shares"]),
	}
}

// lenientDecimal accepts a JSON number or numeric string. Anything else is zero.
func lenientDecimal(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	d := decimal.Decimal{}
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero
	}
	return d
}

func lenientString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return ""
	}
	return str
}
