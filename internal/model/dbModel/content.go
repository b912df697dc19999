package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Article struct {
	ID        int64          `db:"id"`
	Title     string         `db:"title"`
	Content   sql.NullString `db:"content"`
	CreatedAt time.Time      `db:"created_at"`
}

type AgentArticle struct {
	ID            int64          `db:"id"`
	Title         string         `db:"title"`
	Url           string         `db:"url"`
	EconomicTerms string         `db:"economic_terms"`
	Content       sql.NullString `db:"content"`
	PublishedAt   time.Time      `db:"published_at"`
}

type StockPrice struct {
	ID         int64           `db:"id"`
	Symbol     string          `db:"symbol"`
	Price      decimal.Decimal `db:"price"`
	RecordedAt time.Time       `db:"recorded_at"`
}

type CalendarEvent struct {
	ID    int64     `db:"id"`
	Date  time.Time `db:"date"`
	Title string    `db:"title"`
	Url   string    `db:"url"`
}
