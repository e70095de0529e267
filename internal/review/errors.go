package review

import (
	"errors"
	"fmt"

	"github.com/kalambet/rfpdesk/internal/model"
)

var (
	ErrNotFound     = errors.New("validation item not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrValidation   = errors.New("invalid review input")
)

// NotFoundError reports an unknown validation item id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("validation item %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError reports a transition out of a terminal status.
type InvalidStateError struct {
	ID     string
	Status model.ValidationStatus
	Target model.ValidationStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("validation item %s is %s and cannot be %s", e.ID, e.Status, e.Target)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
