package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidDefinition is reported when a catalog entry is missing a required numeric field
// for its declared type or variant.
var ErrInvalidDefinition = errors.New("invalid component definition")

// ErrIncompatibleConnection is returned when two endpoints cannot be connected
// (self-connection, endpoint already in use, width mismatch, unknown connector).
var ErrIncompatibleConnection = errors.New("incompatible connection")

// ErrDanglingReference is returned when an imported layout references a missing item,
// component or track system.
var ErrDanglingReference = errors.New("dangling reference")

// ErrInvalidLayout is returned when an imported layout breaks a structural rule
// (non-finite numbers, reused endpoints, self-connections).
var ErrInvalidLayout = errors.New("invalid layout")

// ErrToleranceExceeded marks an alignment that deviates from exact alignment.
// It is never returned by an operation, only reported as a diagnostic.
var ErrToleranceExceeded = errors.New("alignment tolerance exceeded")

// ErrGrounded is returned when a move or rotation targets a group containing a grounded item.
var ErrGrounded = errors.New("group is grounded")

// ErrItemNotFound is returned when a placed item id is not part of the layout.
var ErrItemNotFound = errors.New("item not found")

// ErrComponentNotFound is returned when a component id is not part of the catalog.
var ErrComponentNotFound = errors.New("component not found")

// ErrLayoutNotFound is returned when a layout ID cannot be found in the store.
var ErrLayoutNotFound = errors.New("layout not found")

// ErrNoPendingDrag is returned when a drag is committed without a preview.
var ErrNoPendingDrag = errors.New("no pending drag")

// DefinitionError describes why a component definition could not be evaluated.
type DefinitionError struct {
	ComponentID string
	Field       string
	Reason      string
}

func (e *DefinitionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("component %q: %s", e.ComponentID, e.Reason)
	}
	return fmt.Sprintf("component %q: field %s %s", e.ComponentID, e.Field, e.Reason)
}

func (e *DefinitionError) Unwrap() error {
	return ErrInvalidDefinition
}
