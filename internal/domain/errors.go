package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced entity id does not exist.
var ErrNotFound = errors.New("not found")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// InvalidStateTransitionError is returned when an operation is attempted
// from a state that forbids it, e.g. responding to an already decided offer.
type InvalidStateTransitionError struct {
	Entity    string
	ID        string
	From      string
	Attempted string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot %s from state %q", e.Entity, e.ID, e.Attempted, e.From)
}

func NewInvalidTransition(entity, id, from, attempted string) error {
	return &InvalidStateTransitionError{Entity: entity, ID: id, From: from, Attempted: attempted}
}
