package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tradedesk/src/model"
)

func decimalFromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func transactionRows(returned ...model.Transaction) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"transaction_id", "type", "amount", "symbol", "quantity", "timestamp", "description"})
	for _, txn := range returned {
		rows.AddRow(txn.TransactionID, txn.Type, txn.Amount.String(), txn.Symbol, txn.Quantity, txn.Timestamp, txn.Description)
	}
	return rows
}

func TestTransactionRepositoryList(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &TransactionRepository{db: mockDB}

	ts := time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC)
	cached := []model.Transaction{
		{TransactionID: "t1", Type: model.TransactionTypeDeposit, Amount: decimalFromInt(10000), Timestamp: ts},
		{TransactionID: "t2", Type: model.TransactionTypeBuy, Amount: decimalFromInt(2700), Symbol: "RELIANCE", Quantity: 1, Timestamp: ts.Add(time.Minute), Description: "[BOT] bought RELIANCE"},
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "transactions" ORDER BY timestamp ASC, transaction_id ASC`)).
		WillReturnRows(transactionRows(cached...))

	results, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error listing transactions: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(results))
	}
	if results[0].TransactionID != "t1" || results[1].TransactionID != "t2" {
		t.Fatalf("transactions not returned in append order: %+v", results)
	}
	if !results[1].IsBot() {
		t.Fatalf("expected bot marker preserved through the cache")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestTransactionRepositoryListBot(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &TransactionRepository{db: mockDB}

	ts := time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC)
	bot := model.Transaction{
		TransactionID: "t2",
		Type:          model.TransactionTypeBuy,
		Amount:        decimalFromInt(2700),
		Symbol:        "RELIANCE",
		Quantity:      1,
		Timestamp:     ts,
		Description:   "[BOT] bought RELIANCE",
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "transactions" WHERE description LIKE $1 ORDER BY timestamp ASC, transaction_id ASC`)).
		WithArgs("%[BOT]%").
		WillReturnRows(transactionRows(bot))

	results, err := repo.ListBot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error listing bot transactions: %v", err)
	}
	if len(results) != 1 || results[0].TransactionID != "t2" {
		t.Fatalf("unexpected bot transactions: %+v", results)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestTransactionRepositoryReplaceAll(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &TransactionRepository{db: mockDB}

	ts := time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC)
	fresh := []model.Transaction{
		{TransactionID: "t1", Type: model.TransactionTypeDeposit, Amount: decimalFromInt(10000), Timestamp: ts},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "transactions" WHERE 1 = 1`)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "transactions"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.ReplaceAll(context.Background(), fresh); err != nil {
		t.Fatalf("unexpected error replacing transactions: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestTransactionRepositoryReplaceAllEmptyLog(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &TransactionRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "transactions" WHERE 1 = 1`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := repo.ReplaceAll(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error clearing transactions: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestTransactionRepositoryReplaceAllRollsBackOnFailure(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &TransactionRepository{db: mockDB}

	fresh := []model.Transaction{
		{TransactionID: "t1", Type: model.TransactionTypeDeposit, Amount: decimalFromInt(10000)},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "transactions" WHERE 1 = 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "transactions"`)).
		WillReturnError(gorm.ErrInvalidData)
	mock.ExpectRollback()

	if err := repo.ReplaceAll(context.Background(), fresh); err == nil {
		t.Fatalf("expected error from failed insert")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
