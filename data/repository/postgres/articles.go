package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/trading_assistant/internal/converter/dbConverter"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/model/dbModel"
	"github.com/KotFed0t/trading_assistant/utils"
)

func (r *Postgres) GetArticles(ctx context.Context) (articles []model.Article, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT id, title, content, created_at FROM articles ORDER BY id`

	slog.Debug("GetArticles start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetArticles failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetArticles completed", slog.String("rqID", rqID), slog.Int("count", len(articles)))
		}
	}()

	dbArticles := make([]dbModel.Article, 0)
	err = r.txOrDb(ctx).SelectContext(ctx, &dbArticles, query)
	if err != nil {
		return nil, err
	}

	articles = make([]model.Article, 0, len(dbArticles))
	for _, a := range dbArticles {
		articles = append(articles, dbConverter.ConvertArticle(a))
	}

	return articles, nil
}

// DeleteArticle reports whether a row with the id existed.
func (r *Postgres) DeleteArticle(ctx context.Context, id int64) (deleted bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM articles WHERE id = $1`

	slog.Debug("DeleteArticle start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteArticle failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteArticle completed", slog.String("rqID", rqID), slog.Bool("deleted", deleted))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *Postgres) GetAgentArticles(ctx context.Context, economicTerm string) (articles []model.AgentArticle, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT id, title, url, economic_terms, content, published_at
		FROM articles_table
		WHERE economic_terms = $1
		ORDER BY published_at DESC
		`

	slog.Debug("GetAgentArticles start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAgentArticles failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAgentArticles completed", slog.String("rqID", rqID))
		}
	}()

	dbArticles := make([]dbModel.AgentArticle, 0)
	err = r.txOrDb(ctx).SelectContext(ctx, &dbArticles, query, economicTerm)
	if err != nil {
		return nil, err
	}

	articles = make([]model.AgentArticle, 0, len(dbArticles))
	for _, a := range dbArticles {
		articles = append(articles, dbConverter.ConvertAgentArticle(a))
	}

	return articles, nil
}

func (r *Postgres) GetStockPrices(ctx context.Context, symbol string) (prices []model.StockPrice, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT id, symbol, price, recorded_at FROM stock_prices WHERE symbol = $1 ORDER BY recorded_at DESC`

	slog.Debug("GetStockPrices start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetStockPrices failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetStockPrices completed", slog.String("rqID", rqID))
		}
	}()

	dbPrices := make([]dbModel.StockPrice, 0)
	err = r.txOrDb(ctx).SelectContext(ctx, &dbPrices, query, symbol)
	if err != nil {
		return nil, err
	}

	prices = make([]model.StockPrice, 0, len(dbPrices))
	for _, p := range dbPrices {
		prices = append(prices, dbConverter.ConvertStockPrice(p))
	}

	return prices, nil
}
