// internal/app/workflows/errors.go
package workflows

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Sentinel errors shared by all workflow packages. Handlers map these to
// HTTP statuses; callers test with errors.Is / errors.As.
var (
	// ErrNotFound means a referenced entity or document is absent.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate means an idempotency guard tripped: the thing being
	// created already exists (pending request, active collaboration).
	ErrDuplicate = errors.New("already exists")
)

// ValidationError reports bad input. Fields holds every violated field with
// a message, not just the first, so forms can show all problems at once.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// Validation builds a ValidationError for a single field.
func Validation(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// InvalidTransitionError means the operation is not legal from the entity's
// current state (e.g. approving an already-approved application).
type InvalidTransitionError struct {
	Entity string
	From   string
	Op     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from status %q", e.Entity, e.Op, e.From)
}

// UnauthorizedError means the caller is not the required actor (self, owner,
// or admin) for the operation.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	if e.Reason == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Reason
}

// StoreError wraps a backing-store failure. The workflow state is left as it
// was before the call; the operation is safe to retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store unavailable during " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStore converts a raw store error into the workflow taxonomy: absent
// documents become ErrNotFound, everything else a StoreError.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &StoreError{Op: op, Err: err}
}
