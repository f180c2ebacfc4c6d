package dialer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-quotes/internal/infra/queue"
)

func TestPlaceCall(t *testing.T) {
	var got callRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calls", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := NewClient(srv.URL+"/", "tok").PlaceCall(context.Background(), queue.CallRoutingPayload{
		LeadID:        "lead-1",
		Name:          "Jane Doe",
		Phone:         "5551234567",
		Email:         "jane@x.com",
		InsuranceType: "life",
	})
	require.NoError(t, err)

	assert.Equal(t, "lead-1", got.ExternalID)
	assert.Equal(t, "quotes-life", got.Queue)
	assert.Equal(t, "jane@x.com", got.Metadata.Email)
}

func TestPlaceCallError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue paused", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").PlaceCall(context.Background(), queue.CallRoutingPayload{LeadID: "lead-1", Phone: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "queue paused")
}
