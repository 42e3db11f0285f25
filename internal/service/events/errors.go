package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrEventNotFound = errors.New("event not found")

type EventNotFoundError struct {
	EventID uuid.UUID
}

func (e EventNotFoundError) Error() string {
	return fmt.Sprintf("event not found: %s", e.EventID)
}

func (e EventNotFoundError) Unwrap() error { return ErrEventNotFound }

// InvalidRecurrencePatternError carries every validation issue found in a
// recurrence pattern, so the caller can report all of them at once.
type InvalidRecurrencePatternError struct {
	Issues []string
}

func (e InvalidRecurrencePatternError) Error() string {
	return "invalid recurrence pattern: " + strings.Join(e.Issues, "; ")
}
