package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Article struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AgentArticle is a row of articles_table used as context by the trading agents.
type AgentArticle struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Url           string    `json:"url"`
	EconomicTerms string    `json:"economic_terms"`
	Content       string    `json:"content,omitempty"`
	PublishedAt   time.Time `json:"published_at"`
}

type StockPrice struct {
	ID         int64           `json:"id"`
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	RecordedAt time.Time       `json:"recorded_at"`
}

type AgentData struct {
	Articles    []AgentArticle `json:"raw1"`
	StockPrices []StockPrice   `json:"raw2,omitempty"`
}

type CalendarEvent struct {
	ID    int64     `json:"id"`
	Date  time.Time `json:"date"`
	Title string    `json:"title"`
	Url   string    `json:"url"`
}

// ChatReply carries the chatbot answer. Data is set when the answer is a JSON payload.
type ChatReply struct {
	Reply string          `json:"reply"`
	Data  json.RawMessage `json:"data,omitempty"`
}
