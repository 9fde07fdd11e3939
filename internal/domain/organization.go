package domain

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// DefaultOrganizationName names the organization users join when they sign
// up without choosing one.
const DefaultOrganizationName = "Default Organization"

type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type OrganizationRepository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id int64) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	// GetOrCreateDefault returns the default organization, creating it on first use.
	GetOrCreateDefault(ctx context.Context) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	List(ctx context.Context) ([]*Organization, error)
	Delete(ctx context.Context, id int64) error
}

// Slugify lowercases name and joins its letter/digit runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "org"
	}
	return b.String()
}
