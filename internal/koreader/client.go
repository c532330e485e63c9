// Package koreader implements the client side of the KOReader progress sync
// protocol (kosync). The protocol mandates the hex MD5 of the password as the
// auth key; changing that would break compatibility with every other client,
// so it stays as the server defines it.
package koreader

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/entities"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/fingerprint"
)

const (
	authPath     = "/users/auth"
	progressPath = "/syncs/progress"

	acceptMediaType = "application/vnd.koreader.v1+json"

	defaultTimeout = 10 * time.Second
)

// Client talks to a KOReader-compatible sync server.
type Client struct {
	httpClient *http.Client
	method     fingerprint.Method
}

// NewClient creates a client using the binary fingerprint method.
func NewClient() *Client {
	return NewClientWithMethod(fingerprint.MethodBinary)
}

// NewClientWithMethod creates a client with an explicit fingerprint method.
func NewClientWithMethod(method fingerprint.Method) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		method: method,
	}
}

// RemoteProgress is a progress record as stored on the sync server.
type RemoteProgress struct {
	Progress   string   `json:"progress"`
	Percentage *float64 `json:"percentage"`
	Timestamp  int64    `json:"timestamp"`
	Device     string   `json:"device,omitempty"`
	DeviceID   string   `json:"device_id,omitempty"`
}

// PercentageValue returns the percentage, or 0 when the server omitted it.
func (p *RemoteProgress) PercentageValue() float64 {
	if p.Percentage == nil {
		return 0
	}
	return *p.Percentage
}

// Time converts the server epoch-seconds timestamp.
func (p *RemoteProgress) Time() time.Time {
	return time.Unix(p.Timestamp, 0)
}

type updateRequest struct {
	Document   string  `json:"document"`
	Progress   string  `json:"progress"`
	Percentage float64 `json:"percentage"`
	Device     string  `json:"device"`
	DeviceID   string  `json:"device_id"`
}

// RoundPercentage truncates to 4 decimals, matching the server's own rounding
// so both sides agree on the stored precision.
func RoundPercentage(p float64) float64 {
	return math.Floor(p*10000) / 10000
}

// TestConnection checks the configured credentials against the auth endpoint.
// It returns false (without an error) on a 401 and an error on anything that
// is neither success nor a clean rejection.
func (c *Client) TestConnection(ctx context.Context, server *entities.SyncServer) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint(server, authPath), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	setAuthHeaders(req, server)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized:
		return false, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return false, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

// GetProgress fetches the remote progress record for a book. A 404 means the
// server has never seen this document and yields (nil, nil).
func (c *Client) GetProgress(ctx context.Context, server *entities.SyncServer, book *entities.Book) (*RemoteProgress, error) {
	document := fingerprint.DocumentID(book, c.method)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint(server, progressPath)+"/"+document, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setAuthHeaders(req, server)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, nil
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusOK:
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if !isJSONResponse(resp) {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var progress RemoteProgress
	if err := json.NewDecoder(resp.Body).Decode(&progress); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &progress, nil
}

// UpdateProgress pushes a progress record for a book.
func (c *Client) UpdateProgress(ctx context.Context, server *entities.SyncServer, book *entities.Book, progress string, percentage float64) error {
	document := fingerprint.DocumentID(book, c.method)

	payload, err := json.Marshal(updateRequest{
		Document:   document,
		Progress:   progress,
		Percentage: RoundPercentage(percentage),
		Device:     server.DeviceName,
		DeviceID:   server.DeviceID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint(server, progressPath), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	setAuthHeaders(req, server)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func endpoint(server *entities.SyncServer, path string) string {
	return strings.TrimRight(server.URL, "/") + path
}

func setAuthHeaders(req *http.Request, server *entities.SyncServer) {
	key := md5.Sum([]byte(server.Password))
	req.Header.Set("X-Auth-User", server.Username)
	req.Header.Set("X-Auth-Key", hex.EncodeToString(key[:]))
	req.Header.Set("Accept", acceptMediaType)
}

func isJSONResponse(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
