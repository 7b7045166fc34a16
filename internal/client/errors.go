package client

import (
	"errors"
	"fmt"
)

// ErrThrottled is returned when the transport governor short-circuits a
// call during its cooldown window. Callers retry on their next cycle; the
// client never retries on its own.
var ErrThrottled = errors.New("too many consecutive controller errors, cooling down")

// ErrNotAdmin is returned by mutation operations when the authenticated
// user lacks camera write permission.
var ErrNotAdmin = errors.New("authenticated user lacks camera write permission")

// ErrFamilyUndetected is returned when neither controller family probe
// succeeded. The controller may simply be rebooting; the condition is
// retryable, not fatal.
var ErrFamilyUndetected = errors.New("controller family could not be determined")

// APIError wraps a non-2xx controller response.
type APIError struct {
	StatusCode int
	Op         string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: controller returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// DecodeError marks a response body that could not be interpreted — wrong
// shape, missing fields, or undecodable JSON. Treated like a transport
// failure, plus a defensive session clear.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: unintelligible controller response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func isAuthError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == 401
}

func isPermissionError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == 403
}

func isDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
