package quantum

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the estimation core.
// Use errors.Is to check: errors.Is(err, quantum.ErrValidation)
var (
	ErrValidation         = errors.New("validation failed")
	ErrPhysicalConstraint = errors.New("physical constraint violated")
	ErrResourceNotFound   = errors.New("resource not found")
)

// ValidationError reports malformed input shape or type.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError with a formatted reason.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Constraint names reported by ConstraintError.
const (
	ConstraintPositive     = "positive semidefinite"
	ConstraintCompleteness = "completeness"
	ConstraintOrthonormal  = "orthonormality"
)

// ConstraintError reports measurement operators that are not a valid
// measurement. Index is the offending operator, or -1 when the check
// applies to the whole set.
type ConstraintError struct {
	Constraint string
	Index      int
	Reason     string
}

func (e *ConstraintError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s check failed for operator %d: %s", e.Constraint, e.Index, e.Reason)
	}
	return fmt.Sprintf("%s check failed: %s", e.Constraint, e.Reason)
}

// Is matches ErrPhysicalConstraint, and ErrValidation since a bad
// measurement is also rejected input.
func (e *ConstraintError) Is(target error) bool {
	return target == ErrPhysicalConstraint || target == ErrValidation
}

// ResourceNotFoundError reports a missing precomputed resource such as a
// SIC fiducial vector.
type ResourceNotFoundError struct {
	Resource string
	Name     string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Name)
}

func (e *ResourceNotFoundError) Is(target error) bool {
	return target == ErrResourceNotFound
}

// UnknownTagError indicates a tag outside a closed set of values.
type UnknownTagError struct {
	Axis  string
	Value string
	Valid []string
}

func (e *UnknownTagError) Error() string {
	quoted := make([]string, len(e.Valid))
	for i, v := range e.Valid {
		quoted[i] = "'" + v + "'"
	}
	return fmt.Sprintf("%q is not a valid value for %s, supported values are %s", e.Value, e.Axis, strings.Join(quoted, ", "))
}

func (e *UnknownTagError) Is(target error) bool {
	return target == ErrValidation
}
