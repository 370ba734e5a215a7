package core

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a missing agent, world or tool. Detected before a
// deployment starts streaming it is fatal; stores wrap it with the entity.
var ErrNotFound = errors.New("not found")

// ActionErrorCode classifies why applying a world action failed. All action
// failures are non-fatal to a deployment; they surface as error-flagged tool
// results, never terminate the stream.
type ActionErrorCode string

const (
	ActionBlocked     ActionErrorCode = "blocked"
	ActionOutOfBounds ActionErrorCode = "out_of_bounds"
	ActionInvalid     ActionErrorCode = "invalid_action"
)

// ActionError is the typed failure returned by action application.
type ActionError struct {
	Code   ActionErrorCode
	Reason string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s: %s", e.Code, e.Reason)
}

// AsActionError unwraps an ActionError from err, if any.
func AsActionError(err error) (*ActionError, bool) {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
