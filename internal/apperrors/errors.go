package apperrors

import "fmt"

// ErrUnknownPlatform means an account references a platform slug no adapter
// is registered for. Never retried.
type ErrUnknownPlatform struct {
	Slug string
}

func (e *ErrUnknownPlatform) Error() string {
	return fmt.Sprintf("no adapter registered for platform %q", e.Slug)
}

// ErrNotThreadable means thread mode was requested on a platform whose
// adapter cannot publish replies. Never retried.
type ErrNotThreadable struct {
	Slug string
}

func (e *ErrNotThreadable) Error() string {
	return fmt.Sprintf("platform %q does not support reply chains", e.Slug)
}

// ErrNotFound covers missing rows: content, account or platform.
type ErrNotFound struct {
	Kind string
	ID   int
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Kind, e.ID)
}

func NewNotFound(kind string, id int) error {
	return &ErrNotFound{Kind: kind, ID: id}
}
