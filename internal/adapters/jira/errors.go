package jira

import (
    "errors"
    "fmt"
    "net/http"
)

// APIError is a non-2xx answer from Jira.
type APIError struct {
    StatusCode int
    Body       string
}

func (e *APIError) Error() string {
    return fmt.Sprintf("jira api status=%d body=%s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if sent again.
func (e *APIError) Retryable() bool {
    return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

func IsUnauthorized(err error) bool {
    return hasStatus(err, http.StatusUnauthorized) || hasStatus(err, http.StatusForbidden)
}

func hasStatus(err error, code int) bool {
    var apiErr *APIError
    return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
