package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClient_Resolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{
			"display_name": "350 5th Ave, New York, NY, USA",
			"address": {"city": "New York", "state": "New York", "country": "United States"}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	place, err := client.Resolve(context.Background(), 40.7484, -73.9857)
	assert.NoError(t, err)
	assert.Equal(t, "New York", place.City)
	assert.Equal(t, "New York", place.State)
	assert.Equal(t, "United States", place.Country)
	assert.Equal(t, "350 5th Ave, New York, NY, USA", place.Address)
}

func TestClient_Resolve_TownFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name": "x", "address": {"town": "Rhinebeck", "state": "New York"}}`))
	}))
	defer server.Close()

	place, err := NewClient(server.URL).Resolve(context.Background(), 41.9, -73.9)
	assert.NoError(t, err)
	assert.Equal(t, "Rhinebeck", place.City)
}

func TestClient_Resolve_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Resolve(context.Background(), 0, 0)
	assert.Error(t, err)
}

func TestClient_Resolve_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Resolve(ctx, 0, 0)
	assert.Error(t, err)
}
