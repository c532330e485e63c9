package koreader

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/entities"
)

const testDocument = "deadbeefdeadbeefdeadbeefdeadbeef"

func testServer(url string) *entities.SyncServer {
	return &entities.SyncServer{
		URL:        url,
		Username:   "alice",
		Password:   "secret",
		DeviceID:   "device-1",
		DeviceName: "everbound-test",
	}
}

func testBook() *entities.Book {
	checksum := testDocument
	return &entities.Book{
		ID:                 1,
		Title:              "Test Book",
		FilePath:           "/library/test.epub",
		PartialMD5Checksum: &checksum,
	}
}

func assertAuthHeaders(t *testing.T, r *http.Request) {
	t.Helper()
	key := md5.Sum([]byte("secret"))
	assert.Equal(t, "alice", r.Header.Get("X-Auth-User"))
	assert.Equal(t, hex.EncodeToString(key[:]), r.Header.Get("X-Auth-Key"))
	assert.Equal(t, "application/vnd.koreader.v1+json", r.Header.Get("Accept"))
}

func TestClient_TestConnection(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       bool
		wantErr    bool
	}{
		{name: "authenticated", statusCode: http.StatusOK, want: true},
		{name: "bad credentials", statusCode: http.StatusUnauthorized, want: false},
		{name: "server error", statusCode: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/users/auth", r.URL.Path)
				assertAuthHeaders(t, r)
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client := NewClient()
			got, err := client.TestConnection(context.Background(), testServer(server.URL))
			if tt.wantErr {
				require.Error(t, err)
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, tt.statusCode, statusErr.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_TestConnection_ConnectionRefused(t *testing.T) {
	client := NewClient()
	_, err := client.TestConnection(context.Background(), testServer("http://127.0.0.1:1"))
	assert.Error(t, err)
}

func TestClient_GetProgress(t *testing.T) {
	t.Run("record found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/syncs/progress/"+testDocument, r.URL.Path)
			assertAuthHeaders(t, r)

			w.Header().Set("Content-Type", "application/vnd.koreader.v1+json")
			pct := 0.42
			json.NewEncoder(w).Encode(RemoteProgress{
				Progress:   "/body/DocFragment[12]/body/p[3]",
				Percentage: &pct,
				Timestamp:  1700000000,
				Device:     "kindle",
			})
		}))
		defer server.Close()

		client := NewClient()
		got, err := client.GetProgress(context.Background(), testServer(server.URL), testBook())
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, "/body/DocFragment[12]/body/p[3]", got.Progress)
		assert.InDelta(t, 0.42, got.PercentageValue(), 1e-9)
		assert.Equal(t, int64(1700000000), got.Time().Unix())
	})

	t.Run("no remote record yields nil without error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient()
		got, err := client.GetProgress(context.Background(), testServer(server.URL), testBook())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("bad credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := NewClient()
		_, err := client.GetProgress(context.Background(), testServer(server.URL), testBook())
		assert.True(t, errors.Is(err, ErrUnauthorized))
	})

	t.Run("non-JSON body is a protocol error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("<html>proxy login</html>"))
		}))
		defer server.Close()

		client := NewClient()
		_, err := client.GetProgress(context.Background(), testServer(server.URL), testBook())
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Contains(t, statusErr.Body, "proxy login")
	})

	t.Run("unexpected status keeps body for diagnostics", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
		}))
		defer server.Close()

		client := NewClient()
		_, err := client.GetProgress(context.Background(), testServer(server.URL), testBook())
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
		assert.Equal(t, "upstream down", statusErr.Body)
	})
}

func TestClient_UpdateProgress(t *testing.T) {
	t.Run("sends the rounded payload", func(t *testing.T) {
		var got updateRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/syncs/progress", r.URL.Path)
			assertAuthHeaders(t, r)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient()
		err := client.UpdateProgress(context.Background(), testServer(server.URL), testBook(), "/body/DocFragment[3]", 0.123456)
		require.NoError(t, err)

		assert.Equal(t, testDocument, got.Document)
		assert.Equal(t, "/body/DocFragment[3]", got.Progress)
		assert.InDelta(t, 0.1234, got.Percentage, 1e-9)
		assert.Equal(t, "everbound-test", got.Device)
		assert.Equal(t, "device-1", got.DeviceID)
	})

	t.Run("created counts as success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := NewClient()
		err := client.UpdateProgress(context.Background(), testServer(server.URL), testBook(), "12", 0.5)
		assert.NoError(t, err)
	})

	t.Run("non-2xx raises", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("nope"))
		}))
		defer server.Close()

		client := NewClient()
		err := client.UpdateProgress(context.Background(), testServer(server.URL), testBook(), "12", 0.5)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	})
}

func TestRoundPercentage(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.123456, 0.1234},
		{1.0, 1.0},
		{0.00009, 0.0},
		{0.99999, 0.9999},
		{0.0, 0.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, RoundPercentage(tt.in), 1e-9, "RoundPercentage(%v)", tt.in)
	}
}
