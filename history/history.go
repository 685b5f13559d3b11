// Package history records profile-view events and groups them by the
// search intent that led to them.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/nicksriv/leadflow/query"
)

// Entry is one immutable profile-view event.
type Entry struct {
	ID         string         `json:"id"`
	OwnerID    string         `json:"owner_id"`
	ProfileID  string         `json:"profile_id"`
	ProfileURL string         `json:"profile_url"`
	Name       string         `json:"name"`
	Headline   string         `json:"headline,omitempty"`
	Location   string         `json:"location,omitempty"`
	Avatar     string         `json:"avatar,omitempty"`
	Criteria   query.Criteria `json:"criteria"`
	SearchKey  string         `json:"search_key"`
	ViewedAt   time.Time      `json:"viewed_at"`
}

// Group is all views sharing one search key, deduplicated by profile.
type Group struct {
	SearchKey string         `json:"search_key"`
	Criteria  query.Criteria `json:"criteria"`
	Profiles  []Entry        `json:"profiles"`
	Count     int            `json:"count"`
	LatestAt  time.Time      `json:"latest_at"`
}

// Stats summarises an owner's view history.
type Stats struct {
	TotalViews       int       `json:"total_views"`
	DistinctSearches int       `json:"distinct_searches"`
	LastViewedAt     time.Time `json:"last_viewed_at"`
}

// Range bounds a history query; both ends are inclusive. Zero values
// mean unbounded.
type Range struct {
	Start time.Time
	End   time.Time
}

// SearchKey derives the canonical grouping key for search criteria: the
// present, non-empty fields sorted by name and joined as "field:value"
// pairs. Field order and empty fields never affect the key.
func SearchKey(c query.Criteria) string {
	fields := map[string]string{
		"company":   c.Company,
		"industry":  c.Industry,
		"job_title": c.JobTitle,
		"keywords":  c.Keywords,
	}
	var names []string
	for name, v := range fields {
		if strings.TrimSpace(v) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var pairs []string
	for _, name := range names {
		pairs = append(pairs, name+":"+strings.TrimSpace(fields[name]))
	}
	return strings.Join(pairs, "|")
}
