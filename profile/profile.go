// Package profile defines the data model shared by search extraction,
// full-profile extraction, and the durable archive.
package profile

import (
	"encoding/json"
	"time"
)

// EmailTag classifies how a profile's email field was obtained.
type EmailTag int

const (
	// EmailMissing means no contact email could be located.
	EmailMissing EmailTag = iota
	// EmailFallback means a placeholder was supplied in place of a real
	// address (e.g. a generated contact alias).
	EmailFallback
	// EmailReal means an actual address was extracted from the page.
	EmailReal
)

func (t EmailTag) String() string {
	switch t {
	case EmailFallback:
		return "fallback"
	case EmailReal:
		return "real"
	default:
		return "missing"
	}
}

// Email is a tagged email value. Merge and display logic branch on Tag,
// never on string comparison against a sentinel address.
type Email struct {
	Tag     EmailTag
	Address string // set only when Tag == EmailReal
}

// MissingEmail returns the absent value.
func MissingEmail() Email { return Email{Tag: EmailMissing} }

// FallbackEmail returns the placeholder value.
func FallbackEmail() Email { return Email{Tag: EmailFallback} }

// RealEmail wraps an extracted address.
func RealEmail(addr string) Email { return Email{Tag: EmailReal, Address: addr} }

// IsReal reports whether the value carries an actual address.
func (e Email) IsReal() bool { return e.Tag == EmailReal }

// Candidate is a lightweight profile summary produced by a search-results
// pass, prior to full profile scraping. Transient: never stored as-is.
type Candidate struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Headline   string `json:"headline"`
	Location   string `json:"location"`
	Company    string `json:"company,omitempty"`
	Summary    string `json:"summary,omitempty"`
	URL        string `json:"url"`
	AvatarURL  string `json:"avatar_url,omitempty"`
}

// Experience is one position entry on a profile.
type Experience struct {
	Title   string `json:"title"`
	Company string `json:"company,omitempty"`
	Period  string `json:"period,omitempty"`
}

// Profile is the full extracted profile for one person.
type Profile struct {
	Candidate

	About       string       `json:"about,omitempty"`
	Skills      []string     `json:"skills,omitempty"`
	Posts       []string     `json:"posts,omitempty"`
	Experiences []Experience `json:"experiences,omitempty"`
	Interests   []string     `json:"interests,omitempty"`
	Education   string       `json:"education,omitempty"`
	Email       Email        `json:"-"`
	ScrapedAt   time.Time    `json:"scraped_at"`
}

// MarshalJSON flattens the tagged email into the wire fields "email" and
// "email_is_fallback" so consumers see the extracted address.
func (p Profile) MarshalJSON() ([]byte, error) {
	type plain Profile
	return json.Marshal(struct {
		plain
		EmailAddress    string `json:"email,omitempty"`
		EmailIsFallback bool   `json:"email_is_fallback"`
	}{plain(p), p.Email.Address, p.Email.Tag == EmailFallback})
}
