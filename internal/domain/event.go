package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is the template of a schedulable activity, possibly recurring.
// An event with a recurrence pattern owns a set of materialized occurrences.
type Event struct {
	ID                uuid.UUID          `json:"id"`
	OrganizationID    uuid.UUID          `json:"organization_id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Location          *string            `json:"location,omitempty"`
	StartDate         time.Time          `json:"start_date"`
	EndDate           time.Time          `json:"end_date"`
	MaxCapacity       int                `json:"max_capacity"`
	RecurrencePattern *RecurrencePattern `json:"recurrence_pattern,omitempty"`
	DeletedAt         *time.Time         `json:"deleted_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func NewEvent(
	organizationID uuid.UUID,
	title, description string,
	location *string,
	startDate, endDate time.Time,
	maxCapacity int,
	pattern *RecurrencePattern,
	now time.Time,
) *Event {
	return &Event{
		ID:                uuid.New(),
		OrganizationID:    organizationID,
		Title:             title,
		Description:       description,
		Location:          location,
		StartDate:         startDate,
		EndDate:           endDate,
		MaxCapacity:       maxCapacity,
		RecurrencePattern: pattern,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (e *Event) IsDeleted() bool   { return e.DeletedAt != nil }
func (e *Event) IsRecurring() bool { return e.RecurrencePattern != nil }

func (e *Event) SoftDelete(now time.Time) {
	e.DeletedAt = &now
	e.UpdatedAt = now
}

// EventChanges carries the provided fields of an update. Nil means
// "not provided"; the field keeps its current value.
type EventChanges struct {
	Title             *string
	Description       *string
	Location          *string
	StartDate         *time.Time
	EndDate           *time.Time
	MaxCapacity       *int
	RecurrencePattern *RecurrencePattern
	PatternProvided   bool
}

// Update applies the provided changes and always advances UpdatedAt.
func (e *Event) Update(ch EventChanges, now time.Time) {
	if ch.Title != nil {
		e.Title = *ch.Title
	}
	if ch.Description != nil {
		e.Description = *ch.Description
	}
	if ch.Location != nil {
		e.Location = ch.Location
	}
	if ch.StartDate != nil {
		e.StartDate = *ch.StartDate
	}
	if ch.EndDate != nil {
		e.EndDate = *ch.EndDate
	}
	if ch.MaxCapacity != nil {
		e.MaxCapacity = *ch.MaxCapacity
	}
	if ch.PatternProvided {
		e.RecurrencePattern = ch.RecurrencePattern
	}
	e.UpdatedAt = now
}
