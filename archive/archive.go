// Package archive is the durable, per-owner collection of scraped profiles.
//
// One row per (owner, normalized URL). Rows are created on first successful
// scrape, mutated only by merges, and never deleted automatically. The merge
// policy is non-regressive: a later scrape that finds less than a previous
// one must not erase what was already known — most importantly a real email.
package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nicksriv/leadflow/profile"
)

// Archived is one durable archive row.
type Archived struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"owner_id"`
	URL           string        `json:"url"` // caller-supplied canonical URL
	NormalizedURL string        `json:"-"`   // equality key only
	Name          string        `json:"name"`
	Headline      string        `json:"headline,omitempty"`
	Location      string        `json:"location,omitempty"`
	Company       string        `json:"company,omitempty"`
	Email         profile.Email `json:"-"`
	Avatar        string        `json:"avatar,omitempty"`
	About         string        `json:"about,omitempty"`
	Skills        []string      `json:"skills,omitempty"`
	ScrapedAt     time.Time     `json:"scraped_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	// Version increments on every merge; the store's conditional update
	// compares it to detect concurrent writers.
	Version int64 `json:"-"`
}

// MarshalJSON flattens the tagged email into the wire fields "email" and
// "email_is_fallback", matching the profile wire shape.
func (a Archived) MarshalJSON() ([]byte, error) {
	type plain Archived
	return json.Marshal(struct {
		plain
		EmailAddress    string `json:"email,omitempty"`
		EmailIsFallback bool   `json:"email_is_fallback"`
	}{plain(a), a.Email.Address, a.Email.Tag == profile.EmailFallback})
}

// ConflictError reports a lost race on one archive key. The store retries
// the merge once against a fresh read before letting this surface.
type ConflictError struct {
	OwnerID string
	URL     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("archive: concurrent update for owner %s url %s", e.OwnerID, e.URL)
}
