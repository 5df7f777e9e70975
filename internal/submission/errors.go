package submission

import (
	"errors"
	"fmt"
)

// DefaultValidationMessage is reported when a payload cannot be read at all.
const DefaultValidationMessage = "驗證錯誤"

// ErrDuplicate is returned when a newsletter address is already subscribed.
var ErrDuplicate = errors.New("email already subscribed")

// ValidationError reports the first constraint a payload violated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// StoreError wraps any failure of the persistence step.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }
