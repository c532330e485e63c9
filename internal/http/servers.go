package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/database/syncservers"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/entities"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/koreader"
)

// ServersController manages sync server configurations and credential checks.
type ServersController struct {
	Servers *syncservers.Repository
	Client  *koreader.Client
}

func NewServersController(servers *syncservers.Repository, client *koreader.Client) *ServersController {
	return &ServersController{
		Servers: servers,
		Client:  client,
	}
}

type serverRequest struct {
	Name       string `json:"name"`
	URL        string `json:"url" binding:"required"`
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Activate   bool   `json:"activate"`
}

type testConnectionResponse struct {
	Authenticated bool `json:"authenticated"`
}

// List returns all configured servers.
func (ctrl *ServersController) List(c *gin.Context) {
	servers, err := ctrl.Servers.List()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, servers)
}

// GetActive returns the currently active server, or 404 when none is set.
func (ctrl *ServersController) GetActive(c *gin.Context) {
	server, err := ctrl.Servers.GetActive()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if server == nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": "no active sync server"})
		return
	}
	c.IndentedJSON(http.StatusOK, server)
}

// Create stores a new server configuration.
func (ctrl *ServersController) Create(c *gin.Context) {
	var req serverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	server := &entities.SyncServer{
		Name:       req.Name,
		URL:        req.URL,
		Username:   req.Username,
		Password:   req.Password,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
	}
	if err := ctrl.Servers.Create(server); err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if req.Activate {
		if err := ctrl.Servers.SetActive(server.ID); err != nil {
			c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		server.IsActive = true
	}
	c.IndentedJSON(http.StatusCreated, server)
}

// Activate marks a server as the single active one.
func (ctrl *ServersController) Activate(c *gin.Context) {
	id, ok := serverIDParam(c)
	if !ok {
		return
	}
	if err := ctrl.Servers.SetActive(id); err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete removes a server configuration.
func (ctrl *ServersController) Delete(c *gin.Context) {
	id, ok := serverIDParam(c)
	if !ok {
		return
	}
	if err := ctrl.Servers.Delete(id); err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// TestConnection checks the stored credentials against the server's auth
// endpoint. A clean 401 comes back as authenticated=false, not an error.
func (ctrl *ServersController) TestConnection(c *gin.Context) {
	id, ok := serverIDParam(c)
	if !ok {
		return
	}

	server, err := ctrl.Servers.GetByID(id)
	if err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}

	authenticated, err := ctrl.Client.TestConnection(c.Request.Context(), server)
	if err != nil {
		c.IndentedJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, testConnectionResponse{Authenticated: authenticated})
}

func serverIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "invalid server id"})
		return 0, false
	}
	return uint(id), true
}
