package recognizer

import "errors"

var (
	// ErrEmptyName is returned when registering without a name.
	ErrEmptyName = errors.New("name cannot be empty")
	// ErrRejected is matched by every RejectedError.
	ErrRejected = errors.New("image rejected")
	// ErrNotFound is returned for operations on unknown identities.
	ErrNotFound = errors.New("user not found")
)

// RejectedError carries the reason an image was not accepted for enrollment.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return e.Reason }

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }
