package product

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConsentDismissalMiss marks a consent control that could not be found or clicked.
	// It is logged and never ends a run.
	ErrConsentDismissalMiss = errors.New("consent control not dismissed")
	// ErrFieldResolutionMiss marks a list field whose key resolved but whose value did not.
	// The field is skipped.
	ErrFieldResolutionMiss = errors.New("field value not resolved")
)

// NavigationError reports a page that did not reach network quiescence in time.
type NavigationError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s (timeout %s): %v", e.URL, e.Timeout, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ComponentNotFoundError reports that the specification root element never attached.
type ComponentNotFoundError struct {
	Selector string
	Timeout  time.Duration
	Err      error
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component %q not attached within %s: %v", e.Selector, e.Timeout, e.Err)
}

func (e *ComponentNotFoundError) Unwrap() error { return e.Err }

// PersistenceError reports a failed write of an output artifact.
type PersistenceError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s to %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
