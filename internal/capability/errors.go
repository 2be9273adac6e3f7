package capability

import (
	"errors"
	"fmt"
)

// ErrConfiguration classifies wiring mistakes detected before any task runs.
var ErrConfiguration = errors.New("configuration error")

// InvalidNameError reports a capability name that is not kebab-case.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid capability name %q: must match ^[a-z][a-z0-9-]*$", e.Name)
}

func (e *InvalidNameError) Unwrap() error { return ErrConfiguration }

// DuplicateTypeError reports two capability types registered under one name.
type DuplicateTypeError struct {
	Name string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("capability %q is already registered", e.Name)
}

func (e *DuplicateTypeError) Unwrap() error { return ErrConfiguration }
