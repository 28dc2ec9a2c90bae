package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradedesk/src/database"
	"tradedesk/src/model"
)

// The settings object is a singleton row; the server has exactly one bot.
const botSettingsRowID = 1

// BotSettingsRepository caches the last fetched bot settings locally.
type BotSettingsRepository struct {
	db *gorm.DB
}

func NewBotSettingsRepository() *BotSettingsRepository {
	return &BotSettingsRepository{db: database.CacheDB}
}

func (r *BotSettingsRepository) WithDB(db *gorm.DB) *BotSettingsRepository {
	return &BotSettingsRepository{db: db}
}

// Save upserts the singleton settings row.
func (r *BotSettingsRepository) Save(ctx context.Context, settings model.BotSettings) error {
	settings.ID = botSettingsRowID
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&settings).Error
	if err != nil {
		return fmt.Errorf("failed to cache bot settings: %w", err)
	}
	return nil
}

// Load returns the cached settings, or (nil, nil) when nothing has been
// cached yet.
func (r *BotSettingsRepository) Load(ctx context.Context) (*model.BotSettings, error) {
	var settings model.BotSettings
	err := r.db.WithContext(ctx).First(&settings, botSettingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cached bot settings: %w", err)
	}
	return &settings, nil
}
