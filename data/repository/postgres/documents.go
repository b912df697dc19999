package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/trading_assistant/internal/converter/dbConverter"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/model/dbModel"
	"github.com/KotFed0t/trading_assistant/utils"
)

// GetInvestmentDocuments returns the documents owned by email in insertion order.
// Rows whose body cannot be decoded are skipped.
func (r *Postgres) GetInvestmentDocuments(ctx context.Context, email string) (docs []model.InvestmentDocument, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT id, user_email, doc, dt_update FROM investment_documents WHERE user_email = $1 ORDER BY id`

	slog.Debug("GetInvestmentDocuments start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetInvestmentDocuments failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetInvestmentDocuments completed", slog.String("rqID", rqID), slog.Int("count", len(docs)))
		}
	}()

	dbDocs := make([]dbModel.InvestmentDocument, 0)
	err = r.txOrDb(ctx).SelectContext(ctx, &dbDocs, query, email)
	if err != nil {
		return nil, err
	}

	docs = make([]model.InvestmentDocument, 0, len(dbDocs))
	for _, dbDoc := range dbDocs {
		doc, convErr := dbConverter.ConvertInvestmentDocument(dbDoc)
		if convErr != nil {
			slog.Warn(
				"skip malformed investment document",
				slog.String("rqID", rqID),
				slog.Int64("id", dbDoc.ID),
				slog.String("err", convErr.Error()),
			)
			continue
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// storedAnalysis keeps the valued positions where readers look for them
// (invest_analysis.summary.portfolio_analysis) with the totals next to them.
type storedAnalysis struct {
	Summary storedSummary `json:"summary"`
}

type storedSummary struct {
	PortfolioAnalysis []model.ValuedAllocation `json:"portfolio_analysis"`
	model.Summary
}

// SaveValuations writes enriched analyses back into their documents in one transaction.
// It returns the number of documents updated.
func (r *Postgres) SaveValuations(ctx context.Context, docs []model.EnrichedDocument) (updated int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE investment_documents
		SET doc = jsonb_set(jsonb_set(doc, '{invest_analysis}', $1::jsonb), '{last_updated}', to_jsonb($2::text)),
			dt_update = now()
		WHERE id = $3 AND user_email = $4
		`

	slog.Debug("SaveValuations start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("SaveValuations failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("SaveValuations completed", slog.String("rqID", rqID), slog.Int64("updated", updated))
		}
	}()

	err = r.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, doc := range docs {
			analysis, marshalErr := json.Marshal(storedAnalysis{
				Summary: storedSummary{
					PortfolioAnalysis: doc.InvestAnalysis.PortfolioAnalysis,
					Summary:           doc.InvestAnalysis.Summary,
				},
			})
			if marshalErr != nil {
				return fmt.Errorf("marshal analysis of document %d: %w", doc.ID, marshalErr)
			}

			res, execErr := r.txOrDb(ctx).ExecContext(
				ctx, query, string(analysis), doc.LastUpdated.UTC().Format(time.RFC3339Nano), doc.ID, doc.UserEmail,
			)
			if execErr != nil {
				return fmt.Errorf("update document %d: %w", doc.ID, execErr)
			}

			affected, affErr := res.RowsAffected()
			if affErr != nil {
				return affErr
			}
			updated += affected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return updated, nil
}

// GetTrackedTickers returns every distinct ticker referenced by any stored document.
func (r *Postgres) GetTrackedTickers(ctx context.Context) (tickers []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT DISTINCT upper(trim(a->>'ticker')) AS ticker
		FROM investment_documents d,
			jsonb_array_elements(
				CASE WHEN jsonb_typeof(d.doc #> '{invest_analysis,summary,portfolio_analysis}') = 'array'
					THEN d.doc #> '{invest_analysis,summary,portfolio_analysis}'
					ELSE '[]'::jsonb
				END
			) a
		WHERE coalesce(trim(a->>'ticker'), '') <> ''
		ORDER BY ticker
		`

	slog.Debug("GetTrackedTickers start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTrackedTickers failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTrackedTickers completed", slog.String("rqID", rqID), slog.Int("count", len(tickers)))
		}
	}()

	tickers = make([]string, 0)
	err = r.txOrDb(ctx).SelectContext(ctx, &tickers, query)
	if err != nil {
		return nil, err
	}

	return tickers, nil
}
