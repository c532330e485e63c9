package entities

import (
	"time"
)

// SyncServer holds the credentials for a KOReader-compatible progress sync
// server. At most one row is active at a time.
type SyncServer struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:100" json:"name,omitempty"`
	URL        string    `gorm:"size:2048" json:"url"`
	Username   string    `gorm:"size:256" json:"username"`
	Password   string    `gorm:"size:256" json:"-"`
	DeviceID   string    `gorm:"size:64" json:"device_id"`
	DeviceName string    `gorm:"size:100" json:"device_name"`
	IsActive   bool      `gorm:"index" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SyncServer) TableName() string {
	return "sync_servers"
}
