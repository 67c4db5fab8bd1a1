package igdb_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holos-run/gamescout/internal/igdb"
)

func TestNewHTTPClient_Retries(t *testing.T) {
	tests := []struct {
		name      string
		retryMax  int
		status    int
		wantCalls int32
	}{
		{name: "no retries", retryMax: 0, status: http.StatusServiceUnavailable, wantCalls: 1},
		{name: "retries server errors", retryMax: 2, status: http.StatusServiceUnavailable, wantCalls: 3},
		{name: "retries rate limits", retryMax: 1, status: http.StatusTooManyRequests, wantCalls: 2},
		{name: "client errors are final", retryMax: 2, status: http.StatusBadRequest, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(srv.Close)

			client := igdb.NewHTTPClient(igdb.TransportConfig{
				Timeout:      time.Second,
				RetryMax:     tt.retryMax,
				RetryWaitMin: time.Millisecond,
				RetryWaitMax: 2 * time.Millisecond,
			})

			resp, err := client.Post(srv.URL, "text/plain", nil)
			require.NoError(t, err, "the final response should be handed back")
			resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}
