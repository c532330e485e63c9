// Package books provides database operations for book records.
//
// The progress-sync engine only reads and updates a fixed subset of the
// record; it never creates or deletes books.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBookByID(123)
package books

import (
	"time"

	"gorm.io/gorm"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/entities"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ListSyncEnabled retrieves all books eligible for progress sync. Records
// predating the sync_enabled column (NULL) count as enabled.
func (r *Repository) ListSyncEnabled() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("sync_enabled IS NULL OR sync_enabled = ?", true).Find(&books).Error
	return books, err
}

// UpdateProgress writes a new reading position. Both positional columns are
// written on every call, so a nil pointer clears the stored reference.
func (r *Repository) UpdateProgress(id uint, percentage float64, status entities.ReadingStatus, pos entities.ProgressPosition) error {
	return r.db.Model(&entities.Book{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"progress_percentage": percentage,
			"reading_status":      status,
			"last_read_cfi":       pos.CFI,
			"last_read_xpath":     pos.XPath,
			"updated_at":          time.Now(),
		}).Error
}

// SetSyncEnabled toggles progress sync for a single book.
func (r *Repository) SetSyncEnabled(id uint, enabled bool) error {
	return r.db.Model(&entities.Book{}).
		Where("id = ?", id).
		Update("sync_enabled", enabled).Error
}

// CachePartialChecksum stores the binary fingerprint so later sync checks
// skip re-reading the file.
func (r *Repository) CachePartialChecksum(id uint, checksum string) error {
	return r.db.Model(&entities.Book{}).
		Where("id = ?", id).
		Update("partial_md5_checksum", checksum).Error
}
