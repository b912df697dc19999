package yahooApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KotFed0t/trading_assistant/config"
	"github.com/KotFed0t/trading_assistant/internal/externalApi"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/model/yahooModel"
	"github.com/KotFed0t/trading_assistant/utils"
	"github.com/go-resty/resty/v2"
)

const (
	quotePath = "/v7/finance/quote"
	userAgent = "Mozilla/5.0 (compatible; trading-assistant/1.0)"
)

type YahooApi struct {
	client *resty.Client
	now    func() time.Time
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooApi.Url).
		SetHeader("User-Agent", userAgent)
	return &YahooApi{client: client, now: time.Now}
}

// GetQuote resolves the latest market price of symbol. It returns externalApi.ErrNotFound
// when the provider has no positive price for it.
func (a *YahooApi) GetQuote(ctx context.Context, symbol string) (quote model.Quote, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "YahooApi.GetQuote"

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		if err != nil {
			slog.Debug("GetQuote failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetQuote completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
		}
	}()

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("symbols", symbol).
		Get(quotePath)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return model.Quote{}, externalApi.ErrNotFound
	}
	if resp.IsError() {
		return model.Quote{}, fmt.Errorf("%s: status %d: %w", op, resp.StatusCode(), externalApi.ErrBadResponse)
	}

	raw := yahooModel.QuoteResponse{}
	if err = json.Unmarshal(resp.Body(), &raw); err != nil {
		slog.Error("can't unmarshall response into yahooModel.QuoteResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, fmt.Errorf("%s: %w", op, externalApi.ErrBadResponse)
	}

	rawQuote, ok := findQuote(raw.QuoteResponse.Result, symbol)
	if !ok || rawQuote.RegularMarketPrice == nil || !rawQuote.RegularMarketPrice.IsPositive() {
		return model.Quote{}, externalApi.ErrNotFound
	}

	price := *rawQuote.RegularMarketPrice
	return model.Quote{
		Symbol:        symbol,
		Price:         &price,
		Change:        rawQuote.RegularMarketChange,
		ChangePercent: rawQuote.RegularMarketChangePercent,
		LastUpdated:   a.now(),
	}, nil
}

func findQuote(results []yahooModel.RawQuote, symbol string) (yahooModel.RawQuote, bool) {
	for _, q := range results {
		if strings.EqualFold(q.Symbol, symbol) {
			return q, true
		}
	}
	return yahooModel.RawQuote{}, false
}
