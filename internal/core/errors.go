package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers any absent participant/room/binding lookup.
	// The debouncer treats it as a silent no-op: the entity may have
	// legitimately been cleaned up already.
	ErrNotFound = errors.New("not found")

	ErrAlreadyOpen      = errors.New("voting round already open")
	ErrNoOpenRound      = errors.New("no open voting round")
	ErrPermissionDenied = errors.New("not enough permissions")
)

// ValidationError reports a malformed or missing inbound field.
// It is sent to the originating connection only, never broadcast.
type ValidationError struct {
	Field string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("Undefined field %s", e.Field)
}

// DependencyFailure wraps a persistence-layer error. The triggering
// event is aborted without a partial broadcast.
type DependencyFailure struct {
	Op  string
	Err error
}

func (e *DependencyFailure) Error() string {
	return fmt.Sprintf("dependency failure in %s: %v", e.Op, e.Err)
}

func (e *DependencyFailure) Unwrap() error { return e.Err }
