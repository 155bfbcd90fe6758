package models

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a collaborator that cannot be reached at all.
var ErrUnavailable = errors.New("backend unavailable")

// ErrStaleWrite reports a conditional update whose row no longer matched
// its conditions when the write landed.
var ErrStaleWrite = errors.New("row changed before the update")

// FetchError is a failed remote call. It is transient: callers keep the
// previous snapshot and surface a warning.
type FetchError struct {
	Kind EntityKind
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFoundError reports an unknown row id.
type NotFoundError struct {
	Kind EntityKind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidTransitionError reports a verification action on a bundle that is
// no longer pending.
type InvalidTransitionError struct {
	ID   string
	From VerificationStatus
	To   VerificationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("verification %s cannot move from %s to %s", e.ID, e.From, e.To)
}

// ValidationError is raised before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewFetchError wraps err unless it already is a typed error the caller
// must see as-is.
func NewFetchError(kind EntityKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	var fe *FetchError
	if errors.As(err, &nf) || errors.As(err, &fe) || errors.Is(err, ErrStaleWrite) {
		return err
	}
	return &FetchError{Kind: kind, Op: op, Err: err}
}
