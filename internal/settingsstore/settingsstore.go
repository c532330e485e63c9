// Package settingsstore resolves user-tunable sync settings with the
// precedence: database > environment > default.
package settingsstore

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/database"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/entities"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/syncer"
)

const (
	DefaultStrategy  = syncer.StrategyPrompt
	DefaultTolerance = syncer.DefaultTolerance

	DefaultShelfSyncSchedule = "0 * * * *" // Hourly at :00
)

type SettingsStore struct {
	db *database.Database
}

func New(db *database.Database) *SettingsStore {
	return &SettingsStore{db: db}
}

// SyncStrategy returns the active conflict strategy.
// Implements syncer.Settings.
func (s *SettingsStore) SyncStrategy() syncer.Strategy {
	setting, err := s.db.GetSetting(entities.SettingKeySyncStrategy)
	if err == nil && setting.Value != "" {
		if strategy, err := syncer.ParseStrategy(setting.Value); err == nil {
			return strategy
		}
	}

	if env := os.Getenv("SYNC_STRATEGY"); env != "" {
		if strategy, err := syncer.ParseStrategy(env); err == nil {
			return strategy
		}
	}

	return DefaultStrategy
}

// SetSyncStrategy persists a new strategy after validating it.
func (s *SettingsStore) SetSyncStrategy(raw string) error {
	strategy, err := syncer.ParseStrategy(raw)
	if err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeySyncStrategy, string(strategy))
}

// SyncTolerance returns the relative-difference threshold below which local
// and remote percentages count as equal.
// Implements syncer.Settings.
func (s *SettingsStore) SyncTolerance() float64 {
	setting, err := s.db.GetSetting(entities.SettingKeySyncTolerance)
	if err == nil && setting.Value != "" {
		if tolerance, err := strconv.ParseFloat(setting.Value, 64); err == nil && toleranceValid(tolerance) {
			return tolerance
		}
	}

	if env := os.Getenv("SYNC_TOLERANCE"); env != "" {
		if tolerance, err := strconv.ParseFloat(env, 64); err == nil && toleranceValid(tolerance) {
			return tolerance
		}
	}

	return DefaultTolerance
}

// SetSyncTolerance persists a new tolerance.
func (s *SettingsStore) SetSyncTolerance(tolerance float64) error {
	if !toleranceValid(tolerance) {
		return fmt.Errorf("tolerance %v out of range (0, 1)", tolerance)
	}
	return s.db.SetSetting(entities.SettingKeySyncTolerance, strconv.FormatFloat(tolerance, 'f', -1, 64))
}

func toleranceValid(t float64) bool {
	return t > 0 && t < 1
}

// ShelfSyncConfig holds the background shelf sync settings.
type ShelfSyncConfig struct {
	Enabled  bool
	Schedule string
}

// GetShelfSyncConfig resolves the background sync settings.
func (s *SettingsStore) GetShelfSyncConfig() ShelfSyncConfig {
	cfg := ShelfSyncConfig{
		Enabled:  false,
		Schedule: DefaultShelfSyncSchedule,
	}

	if setting, err := s.db.GetSetting(entities.SettingKeyShelfSyncEnabled); err == nil {
		cfg.Enabled = setting.Value == "true"
	} else if env := os.Getenv("SHELF_SYNC_ENABLED"); env != "" {
		cfg.Enabled = env == "true" || env == "1"
	}

	if setting, err := s.db.GetSetting(entities.SettingKeyShelfSyncSchedule); err == nil && setting.Value != "" {
		cfg.Schedule = setting.Value
	} else if env := os.Getenv("SHELF_SYNC_SCHEDULE"); env != "" {
		cfg.Schedule = env
	}

	return cfg
}

// SetShelfSyncEnabled toggles the background shelf sync.
func (s *SettingsStore) SetShelfSyncEnabled(enabled bool) error {
	return s.db.SetSetting(entities.SettingKeyShelfSyncEnabled, strconv.FormatBool(enabled))
}

// SetShelfSyncSchedule stores a new cron schedule for the shelf sync.
func (s *SettingsStore) SetShelfSyncSchedule(schedule string) error {
	return s.db.SetSetting(entities.SettingKeyShelfSyncSchedule, schedule)
}

// RecordShelfSyncResult stores the outcome of the last background pass for
// display in the settings UI.
func (s *SettingsStore) RecordShelfSyncResult(at, status, message string) {
	_ = s.db.SetSetting(entities.SettingKeyShelfSyncLastAt, at)
	_ = s.db.SetSetting(entities.SettingKeyShelfSyncLastStatus, status)
	_ = s.db.SetSetting(entities.SettingKeyShelfSyncLastMessage, message)
}
