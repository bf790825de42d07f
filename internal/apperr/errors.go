// Package apperr holds the sentinel errors shared by the workspace service
// and its transports. Wrap them with fmt.Errorf and test with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound marks a missing initiative, record, todo or idea.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write that collides with existing state, such as
	// moving an initiative onto a name already used in the target state.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput marks a request rejected before touching disk.
	ErrInvalidInput = errors.New("invalid input")
)
