package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/settingsstore"
)

// SettingsController exposes the sync strategy and tolerance knobs.
type SettingsController struct {
	settingsStore *settingsstore.SettingsStore
}

func NewSettingsController(store *settingsstore.SettingsStore) *SettingsController {
	return &SettingsController{settingsStore: store}
}

type syncSettingsResponse struct {
	Strategy  string  `json:"strategy"`
	Tolerance float64 `json:"tolerance"`
}

type syncSettingsRequest struct {
	Strategy  *string  `json:"strategy"`
	Tolerance *float64 `json:"tolerance"`
}

// Get returns the effective sync settings.
func (ctrl *SettingsController) Get(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, syncSettingsResponse{
		Strategy:  string(ctrl.settingsStore.SyncStrategy()),
		Tolerance: ctrl.settingsStore.SyncTolerance(),
	})
}

// Update changes the strategy and/or tolerance. Absent fields keep their
// current value.
func (ctrl *SettingsController) Update(c *gin.Context) {
	var req syncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Strategy != nil {
		if err := ctrl.settingsStore.SetSyncStrategy(*req.Strategy); err != nil {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Tolerance != nil {
		if err := ctrl.settingsStore.SetSyncTolerance(*req.Tolerance); err != nil {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	ctrl.Get(c)
}
