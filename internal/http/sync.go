package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/database/books"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/syncer"
)

// SyncController exposes the reading-session surface of the sync engine to
// the host application.
type SyncController struct {
	Coordinator *syncer.Coordinator
	Books       *books.Repository
}

func NewSyncController(coordinator *syncer.Coordinator, booksRepo *books.Repository) *SyncController {
	return &SyncController{
		Coordinator: coordinator,
		Books:       booksRepo,
	}
}

type syncStatusResponse struct {
	BookID   uint                   `json:"book_id"`
	State    syncer.SyncState       `json:"state"`
	Conflict *syncer.ConflictRecord `json:"conflict,omitempty"`
}

type pushRequest struct {
	Progress   string  `json:"progress" binding:"required"`
	Percentage float64 `json:"percentage"`
}

type closeRequest struct {
	Flush bool `json:"flush"`
}

type resolveRequest struct {
	Winner string `json:"winner" binding:"required"` // "local" or "remote"
}

type syncEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// Open starts a sync session for a book and performs the initial check.
func (ctrl *SyncController) Open(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	ctrl.Coordinator.Initialize(bookID)
	ctrl.Coordinator.PerformInitialSync(c.Request.Context(), bookID)
	ctrl.status(c, bookID)
}

// Close ends a book's sync session. The trailing edit is only persisted when
// the caller asks for a flush; cleanup alone discards it.
func (ctrl *SyncController) Close(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	var req closeRequest
	_ = c.ShouldBindJSON(&req)

	if req.Flush {
		ctrl.Coordinator.FlushProgress(bookID)
	}
	ctrl.Coordinator.Cleanup(bookID)
	c.Status(http.StatusNoContent)
}

// Status reports the book's current sync state and conflict, if any.
func (ctrl *SyncController) Status(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	ctrl.status(c, bookID)
}

// Push queues a debounced progress push. Accepted regardless of whether the
// engine ends up suppressing it; the eventual outcome shows up in the state.
func (ctrl *SyncController) Push(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctrl.Coordinator.PushProgress(bookID, req.Progress, req.Percentage)
	c.Status(http.StatusAccepted)
}

// Flush forces the pending push out immediately.
func (ctrl *SyncController) Flush(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	ctrl.Coordinator.FlushProgress(bookID)
	ctrl.status(c, bookID)
}

// Resolve settles a conflict in favor of the local or the remote position.
func (ctrl *SyncController) Resolve(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Winner {
	case "local":
		ctrl.Coordinator.ResolveConflictWithLocal(bookID)
	case "remote":
		if err := ctrl.Coordinator.ResolveConflictWithRemote(bookID); err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	default:
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "winner must be 'local' or 'remote'"})
		return
	}
	ctrl.status(c, bookID)
}

// SetSyncEnabled toggles the per-book sync flag on the record.
func (ctrl *SyncController) SetSyncEnabled(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}

	var req syncEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ctrl.Books.SetSyncEnabled(bookID, req.Enabled); err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (ctrl *SyncController) status(c *gin.Context, bookID uint) {
	c.IndentedJSON(http.StatusOK, syncStatusResponse{
		BookID:   bookID,
		State:    ctrl.Coordinator.State(bookID),
		Conflict: ctrl.Coordinator.Conflict(bookID),
	})
}

func bookIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return 0, false
	}
	return uint(id), true
}
