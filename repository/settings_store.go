package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/CashierHQ/cashier-sub001/domain"
)

// settingsRowID is the fixed id of C12's singleton settings row.
const settingsRowID = 1

// SettingsStore is the gorm-backed settings.Store the settings.Handle is
// constructed with in production; the goose migrations seed row 1 at
// Operational/no-admins, and Load creates that row itself when it is
// missing (as it is when the schema comes from AutoMigrate).
type SettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Load() (domain.Settings, error) {
	var row domain.Settings
	err := s.db.First(&row, "id = ?", settingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = domain.Settings{ID: settingsRowID, Mode: domain.SettingsModeOperational}
		if err := s.db.Create(&row).Error; err != nil {
			return domain.Settings{}, err
		}
		return row, nil
	}
	if err != nil {
		return domain.Settings{}, err
	}
	return row, nil
}

func (s *SettingsStore) Save(next domain.Settings) error {
	next.ID = settingsRowID
	return s.db.Save(&next).Error
}
