package backend

import (
	"errors"
	"fmt"
)

// BackendUnavailableError means the backend has not started yet. It is
// expected during cold start and is never shown to the user.
type BackendUnavailableError struct {
	StatusCode int
}

func (e *BackendUnavailableError) Error() string {
	return "webapp backend not started"
}

// BackendResponseError is a non-2xx answer from a running backend
type BackendResponseError struct {
	StatusCode int
	Body       string
}

func (e *BackendResponseError) Error() string {
	return fmt.Sprintf("Backend error:\n%s.\nCheck backend log for more information.", e.Body)
}

// MalformedResponseError is a 2xx answer whose body is not graph data
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("the backend response is not valid graph data: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is the cold-start condition
func IsTransient(err error) bool {
	var unavailable *BackendUnavailableError
	return errors.As(err, &unavailable)
}
