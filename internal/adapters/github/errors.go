package github

import (
	"errors"
	"fmt"
)

// Sentinel kinds for GitHub client errors.
var (
	ErrRequest = errors.New("github request failed")
	ErrStatus  = errors.New("github returned an error status")
	ErrDecode  = errors.New("github response decode failed")
)

// StatusError carries a non-2xx upstream response. It matches ErrStatus.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status code %d: %s", e.Op, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrStatus) match.
func (e *StatusError) Is(target error) bool { return target == ErrStatus }
