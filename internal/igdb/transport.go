package igdb

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// TransportConfig holds configuration for the upstream HTTP transport.
type TransportConfig struct {
	// Timeout bounds a single attempt.
	Timeout time.Duration

	// RetryMax is the number of retries for connection errors, 429 and 5xx
	// responses. Zero disables retries.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Logger receives retry diagnostics. Nil disables them.
	Logger *slog.Logger
}

// NewHTTPClient returns an *http.Client that applies the caller's retry
// policy below the token provider and resource client.
func NewHTTPClient(config TransportConfig) *http.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = config.Timeout
	rc.RetryMax = config.RetryMax
	if config.RetryWaitMin > 0 {
		rc.RetryWaitMin = config.RetryWaitMin
	}
	if config.RetryWaitMax > 0 {
		rc.RetryWaitMax = config.RetryWaitMax
	}
	rc.CheckRetry = retryablehttp.DefaultRetryPolicy
	rc.Backoff = retryablehttp.DefaultBackoff
	// Hand the final response back so status codes reach RequestError.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	rc.Logger = nil
	if config.Logger != nil {
		rc.Logger = config.Logger
	}

	return rc.StandardClient()
}
