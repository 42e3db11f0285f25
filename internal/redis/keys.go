package redisx

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "bookgo:v1"

func KeyEvent(eventID uuid.UUID) string {
	return fmt.Sprintf("%s:event:%s", ns, eventID)
}

func KeyEventOccurrences(eventID uuid.UUID) string {
	return fmt.Sprintf("%s:event:%s:occurrences", ns, eventID)
}

func KeyOrgEvents(orgID uuid.UUID, cursor string) string {
	return fmt.Sprintf("%s:org:%s:events:%s", ns, orgID, cursor)
}

func KeyUserRegistrations(orgID uuid.UUID, userID, cursor string) string {
	return fmt.Sprintf("%s:org:%s:user:%s:registrations:%s", ns, orgID, userID, cursor)
}

func KeyIdempotency(scope, key string) string {
	return fmt.Sprintf("%s:idem:%s:%s", ns, scope, key)
}

// RateLimitPrefix names the key space a limiter appends caller ids to.
func RateLimitPrefix(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func ChannelEventsChanged() string {
	return ns + ":events:changed"
}
