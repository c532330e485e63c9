// Package syncservers provides database operations for progress-sync server
// configurations. The engine follows a single-active-server model: SetActive
// demotes every other row inside one transaction.
package syncservers

import (
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/entities"
)

// Repository handles all sync server database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new sync servers repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetActive returns the active server, or nil when no server is configured.
func (r *Repository) GetActive() (*entities.SyncServer, error) {
	var server entities.SyncServer
	err := r.db.Where("is_active = ?", true).First(&server).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &server, nil
}

// GetByID retrieves a server by its ID.
func (r *Repository) GetByID(id uint) (*entities.SyncServer, error) {
	var server entities.SyncServer
	err := r.db.First(&server, id).Error
	if err != nil {
		return nil, err
	}
	return &server, nil
}

// List retrieves all configured servers.
func (r *Repository) List() ([]entities.SyncServer, error) {
	var servers []entities.SyncServer
	err := r.db.Order("id ASC").Find(&servers).Error
	return servers, err
}

// Create stores a new server. A missing device identity is filled in: the
// device id gets a fresh UUID and the device name falls back to the hostname.
func (r *Repository) Create(server *entities.SyncServer) error {
	if server.DeviceID == "" {
		server.DeviceID = uuid.NewString()
	}
	if server.DeviceName == "" {
		if hostname, err := os.Hostname(); err == nil {
			server.DeviceName = hostname
		} else {
			server.DeviceName = "everbound"
		}
	}
	return r.db.Create(server).Error
}

// Update saves changes to an existing server.
func (r *Repository) Update(server *entities.SyncServer) error {
	return r.db.Save(server).Error
}

// Delete removes a server configuration.
func (r *Repository) Delete(id uint) error {
	return r.db.Delete(&entities.SyncServer{}, id).Error
}

// SetActive marks one server as active and demotes all others.
func (r *Repository) SetActive(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.SyncServer{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		result := tx.Model(&entities.SyncServer{}).
			Where("id = ?", id).
			Update("is_active", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
