package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/KotFed0t/trading_assistant/config"
	"github.com/KotFed0t/trading_assistant/data/repository"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/model/dbModel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPostgres(&config.Config{}, sqlx.NewDb(db, "sqlmock")), mock
}

func TestInsertUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "hash", "user").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))

	id, err := repo.InsertUser(context.Background(), dbModel.User{
		Username: "alice", Email: "alice@example.com", Password: "hash", Role: "user",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUser_UniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.InsertUser(context.Background(), dbModel.User{Username: "alice"})

	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestGetUserByUsername_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE username").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "email", "password", "role", "dt_create"}))

	_, err := repo.GetUserByUsername(context.Background(), "ghost")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetInvestmentDocuments_SkipsMalformed(t *testing.T) {
	repo, mock := newMockRepo(t)
	good := []byte(`{
		"user_preferences": {"budget": 2000, "strategy": "growth", "risk": "low"},
		"invest_analysis": {"summary": {"portfolio_analysis": [{"ticker": "AAPL", "invested": 1000, "shares": 5}]}}
	}`)
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM investment_documents WHERE user_email").
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_email", "doc", "dt_update"}).
			AddRow(1, "a@example.com", good, now).
			AddRow(2, "a@example.com", []byte(`{"invest_analysis": [`), now))

	docs, err := repo.GetInvestmentDocuments(context.Background(), "a@example.com")

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, int64(1), docs[0].ID)
	assert.Equal(t, "a@example.com", docs[0].UserEmail)
	assert.Equal(t, "low", docs[0].UserPreferences.Risk)
	require.Len(t, docs[0].Allocations(), 1)
	assert.True(t, docs[0].Allocations()[0].Shares.Equal(decimal.NewFromInt(5)))
}

func TestGetInvestmentDocuments_KeepsDocumentWithBadAllocation(t *testing.T) {
	repo, mock := newMockRepo(t)
	doc := []byte(`{
		"user_preferences": {"budget": 2000},
		"invest_analysis": {"summary": {"portfolio_analysis": [
			{"ticker": "AAPL", "invested": 1000, "shares": 5},
			{"ticker": "MSFT", "invested": 500, "shares": "N/A"}
		]}}
	}`)
	mock.ExpectQuery("SELECT (.+) FROM investment_documents WHERE user_email").
		WithArgs("a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_email", "doc", "dt_update"}).
			AddRow(1, "a@example.com", doc, time.Now()))

	docs, err := repo.GetInvestmentDocuments(context.Background(), "a@example.com")

	require.NoError(t, err)
	require.Len(t, docs, 1)
	allocations := docs[0].Allocations()
	require.Len(t, allocations, 2)
	assert.Equal(t, "MSFT", allocations[1].Ticker)
	assert.True(t, allocations[1].Invested.Equal(decimal.NewFromInt(500)))
	assert.True(t, allocations[1].Shares.IsZero())
}

func TestSaveValuations_CommitsAll(t *testing.T) {
	repo, mock := newMockRepo(t)
	docs := []model.EnrichedDocument{
		{ID: 1, UserEmail: "a@example.com", LastUpdated: time.Now()},
		{ID: 2, UserEmail: "a@example.com", LastUpdated: time.Now()},
	}
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE investment_documents").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(1), "a@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE investment_documents").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(2), "a@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.SaveValuations(context.Background(), docs)

	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveValuations_RollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE investment_documents").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.SaveValuations(context.Background(), []model.EnrichedDocument{{ID: 1}})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteArticle(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM articles").WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM articles").WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteArticle(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteArticle(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGetStockPrices(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM stock_prices WHERE symbol").
		WithArgs("AAPL").
		WillReturnRows(sqlmock.NewRows([]string{"id", "symbol", "price", "recorded_at"}).
			AddRow(1, "AAPL", "187.25", time.Now()))

	prices, err := repo.GetStockPrices(context.Background(), "AAPL")

	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.True(t, prices[0].Price.Equal(decimal.RequireFromString("187.25")))
}

func TestGetTrackedTickers(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT DISTINCT upper").
		WillReturnRows(sqlmock.NewRows([]string{"ticker"}).AddRow("AAPL").AddRow("MSFT"))

	tickers, err := repo.GetTrackedTickers(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, tickers)
}
