package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Progress sync settings
	SettingKeySyncStrategy  = "sync_strategy"
	SettingKeySyncTolerance = "sync_tolerance"

	// Background shelf sync settings
	SettingKeyShelfSyncEnabled     = "shelf_sync_enabled"
	SettingKeyShelfSyncSchedule    = "shelf_sync_schedule"
	SettingKeyShelfSyncLastAt      = "shelf_sync_last_at"
	SettingKeyShelfSyncLastStatus  = "shelf_sync_last_status"
	SettingKeyShelfSyncLastMessage = "shelf_sync_last_message"
)
