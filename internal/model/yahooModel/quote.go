package yahooModel

import "github.com/shopspring/decimal"

type QuoteResponse struct {
	QuoteResponse QuoteResult `json:"quoteResponse"`
}

type QuoteResult struct {
	Result []RawQuote  `json:"result"`
	Error  *QuoteError `json:"error"`
}

type QuoteError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type RawQuote struct {
	Symbol                     string           `json:"symbol"`
	ShortName                  string           `json:"shortName"`
	Currency                   string           `json:"currency"`
	RegularMarketPrice         *decimal.Decimal `json:"regularMarketPrice"`
	RegularMarketChange        decimal.Decimal  `json:"regularMarketChange"`
	RegularMarketChangePercent decimal.Decimal  `json:"regularMarketChangePercent"`
	RegularMarketTime          int64            `json:"regularMarketTime"`
}
