package httpgin

import (
	"encoding/json"
	"time"

	"github.com/yshvd/bookgo/internal/domain"
)

type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

type CreateEventRequest struct {
	Title             string                    `json:"title" binding:"required"`
	Description       string                    `json:"description"`
	Location          *string                   `json:"location"`
	StartDate         string                    `json:"start_date" binding:"required"`
	EndDate           string                    `json:"end_date" binding:"required"`
	MaxCapacity       int                       `json:"max_capacity"`
	RecurrencePattern *domain.RecurrencePattern `json:"recurrence_pattern"`
}

// UpdateEventRequest distinguishes "field absent" from "field set to its
// zero value" with pointers, and does the same for the recurrence pattern
// with a raw message: absent means keep, JSON null means clear.
type UpdateEventRequest struct {
	Title             *string         `json:"title"`
	Description       *string         `json:"description"`
	Location          *string         `json:"location"`
	StartDate         *string         `json:"start_date"`
	EndDate           *string         `json:"end_date"`
	MaxCapacity       *int            `json:"max_capacity"`
	RecurrencePattern json.RawMessage `json:"recurrence_pattern"`
}

type CreateRegistrationRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	SeatCount int    `json:"seat_count" binding:"required,gte=1,lte=10"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type InvalidPatternResponse struct {
	Error  string   `json:"error"`
	Issues []string `json:"issues"`
}

type ConflictResponse struct {
	Error        string    `json:"error"`
	OccurrenceID string    `json:"occurrence_id"`
	EventTitle   string    `json:"event_title"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
