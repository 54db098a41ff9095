package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrOffline indicates a write was attempted without connectivity and
	// offline queueing is disabled.
	ErrOffline = errors.New("offline")
	// ErrUnknownOperation indicates a pending change whose endpoint and
	// method do not describe any replayable operation.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// RemoteError is a non-2xx response from the remote API.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("remote: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// IsClientError reports whether err is a 4xx RemoteError. Such requests are
// not worth retrying.
func IsClientError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status >= 400 && re.Status < 500
}

// IsServerError reports whether err is a 5xx RemoteError.
func IsServerError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status >= 500
}
