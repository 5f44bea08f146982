package rbac

import (
	"fmt"

	"github.com/accesshub/accesshub/internal/platform/httpx"
)

// ErrNotFound indicates the referenced role or permission does not exist.
var ErrNotFound = fmt.Errorf("rbac: not found: %w", httpx.ErrNotFound)

// ConflictError reports a uniqueness violation on create or rename.
type ConflictError struct {
	Entity string
	Name   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("rbac: %s %q already exists", e.Entity, e.Name)
}

func (e *ConflictError) Unwrap() error { return httpx.ErrConflict }

// ReferenceError reports which referenced ids did not resolve. The mutation
// that produced it was not applied.
type ReferenceError struct {
	Entity     string
	MissingIDs []int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("rbac: unknown %s ids %v", e.Entity, e.MissingIDs)
}

func (e *ReferenceError) Unwrap() error { return httpx.ErrReference }
