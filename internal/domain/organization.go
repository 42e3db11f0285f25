package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant every event, occurrence and registration
// belongs to.
type Organization struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugValid        = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// NormalizeSlug lowercases the input and collapses runs of non-alphanumeric
// characters into single hyphens.
func NormalizeSlug(s string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(s))
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if !slugValid.MatchString(slug) {
		return "", fmt.Errorf("invalid slug %q", s)
	}
	return slug, nil
}

func NewOrganization(name, slug string, now time.Time) (*Organization, error) {
	normalized, err := NormalizeSlug(slug)
	if err != nil {
		return nil, err
	}
	return &Organization{
		ID:        uuid.New(),
		Name:      name,
		Slug:      normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (o *Organization) IsDeleted() bool { return o.DeletedAt != nil }
