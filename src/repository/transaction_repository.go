package repository

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradedesk/src/database"
	"tradedesk/src/model"
)

// TransactionRepository caches the server's transaction log locally so
// the last-known history stays renderable through server outages.
type TransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a repository bound to the cache database.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{db: database.CacheDB}
}

// WithDB overrides the underlying *gorm.DB instance, for tests or a
// specific session.
func (r *TransactionRepository) WithDB(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ReplaceAll swaps the cached log for a freshly fetched one. Runs in a
// single transaction so a failed replace leaves the prior rows intact.
func (r *TransactionRepository) ReplaceAll(ctx context.Context, transactions []model.Transaction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Transaction{}).Error; err != nil {
			return err
		}
		if len(transactions) == 0 {
			return nil
		}
		return tx.Create(&transactions).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace cached transactions: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "TransactionRepository",
		"op":    "ReplaceAll",
		"count": len(transactions),
	}).Debug("transaction cache refreshed")
	return nil
}

// List returns the cached log in append order.
func (r *TransactionRepository) List(ctx context.Context) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.WithContext(ctx).
		Order("timestamp ASC, transaction_id ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cached transactions: %w", err)
	}
	return transactions, nil
}

// ListBot returns only bot-originated entries, in append order.
func (r *TransactionRepository) ListBot(ctx context.Context) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := r.db.WithContext(ctx).
		Where("description LIKE ?", "%"+model.BotMarker+"%").
		Order("timestamp ASC, transaction_id ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cached bot transactions: %w", err)
	}
	return transactions, nil
}
