package api

import (
	"errors"
	"fmt"
)

// ErrNetwork wraps connectivity failures (dial, timeout, broken response).
// Callers may retry; the engine never retries REST calls on its own.
var ErrNetwork = errors.New("network error")

// APIError is a structured rejection from the backend (code != 200).
// It is surfaced verbatim and never retried automatically.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// IsRejection reports whether err is a domain rejection as opposed to a
// transient transport problem.
func IsRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
