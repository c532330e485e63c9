package entities

import (
	"time"
)

type ReadingStatus string

const (
	ReadingStatusUnread   ReadingStatus = "unread"
	ReadingStatusReading  ReadingStatus = "reading"
	ReadingStatusFinished ReadingStatus = "finished"
)

type Book struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"index;size:512" json:"title"`
	Author   string `gorm:"index;size:256" json:"author,omitempty"`
	FilePath string `gorm:"size:1024" json:"file_path"`

	// ImportedAt doubles as the local "last modified" reference when
	// comparing against remote progress timestamps.
	ImportedAt time.Time `json:"imported_at"`

	ProgressPercentage float64       `json:"progress_percentage"` // 0.0-1.0
	ReadingStatus      ReadingStatus `gorm:"size:20;default:'unread'" json:"reading_status"`

	// LastReadCFI is the renderer's own position format and never leaves the
	// device; LastReadXPath is the KOReader-compatible position.
	LastReadCFI   *string `gorm:"size:2048" json:"last_read_cfi,omitempty"`
	LastReadXPath *string `gorm:"column:last_read_xpath;size:2048" json:"last_read_xpath,omitempty"`

	// PartialMD5Checksum caches the binary fingerprint computed at import time.
	PartialMD5Checksum *string `gorm:"index;size:32" json:"partial_md5_checksum,omitempty"`

	// SyncEnabled is tri-state: nil means enabled for records imported before
	// the flag existed.
	SyncEnabled *bool `json:"sync_enabled,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// SyncDisabled reports whether sync was explicitly turned off for this book.
func (b *Book) SyncDisabled() bool {
	return b.SyncEnabled != nil && !*b.SyncEnabled
}

// ProgressPosition carries the positional references written alongside a
// percentage update. A nil field clears the stored value.
type ProgressPosition struct {
	CFI   *string
	XPath *string
}
