package igdb

import (
	"fmt"
	"net/http"
)

// AuthError reports a failed credential exchange with the identity endpoint.
// No credential is stored when an AuthError is returned.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("upstream auth failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RequestError reports a single failed request against an upstream resource
// endpoint. Status is zero for transport and decode failures.
type RequestError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream request %s failed: %d %s: %v",
			e.Endpoint, e.Status, http.StatusText(e.Status), e.Err)
	}
	return fmt.Sprintf("upstream request %s failed: %v", e.Endpoint, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
