package domain

import "fmt"

// Error kinds carried by the service layer. The HTTP layer maps kinds to
// status codes; services never touch HTTP status themselves.

// ValidationError marks malformed input (bad interval, missing fields).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError marks an overlapping reservation or a lost transition race.
type ConflictError struct {
	RoomID        string
	ReservationID string // the occupying reservation, when known
	Reason        string
}

func (e *ConflictError) Error() string {
	if e.ReservationID != "" {
		return fmt.Sprintf("conflict: %s (held by reservation %s)", e.Reason, e.ReservationID)
	}
	return fmt.Sprintf("conflict: %s", e.Reason)
}

// PermissionError marks a role or ownership mismatch.
type PermissionError struct {
	Role   string
	Action string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: role %q may not %s", e.Role, e.Action)
}

// InvalidTransitionError marks a status edge outside the lifecycle table.
type InvalidTransitionError struct {
	From ReservationStatus
	To   ReservationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// QuotaExceededError marks a per-user reservation quota violation.
type QuotaExceededError struct {
	UserID string
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: user %s reached the limit of %d active reservations", e.UserID, e.Limit)
}

// NotFoundError marks a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StorageError wraps a transaction or connectivity failure from the
// persistence layer. Critical paths propagate it; non-critical side
// effects log and swallow it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
