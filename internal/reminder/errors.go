package reminder

import "errors"

// ErrNotFound is returned when an operation names a reminder ID that is not
// in the collection.
var ErrNotFound = errors.New("reminder not found")

// ErrInvalidSnapshot is returned by Import for a snapshot that cannot be
// restored as a whole.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// ValidationError carries the message shown to the user when a draft is
// rejected.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
