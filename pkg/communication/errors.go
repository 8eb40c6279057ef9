package communication

import (
	"fmt"
)

// ValidationError is returned when a required field is missing or malformed
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError constructs a ValidationError for field
func NewValidationError(field string, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError is returned when a booking would overlap an existing one
type ConflictError struct {
	ScheduleID string
	TaskID     string
	SlotID     string
	Message    string
}

func (e *ConflictError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("schedule conflict: %s", e.Message)
	}

	return fmt.Sprintf("schedule conflict with task %s slot %s: %s", e.TaskID, e.SlotID, e.Message)
}

// NotFoundError is returned when a task, slot or extension request does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StateError is returned when an operation is not allowed in the current state, like resolving a resolved request
type StateError struct {
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}
