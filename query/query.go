// Package query turns structured search criteria into an executable
// LinkedIn people-search request URL.
package query

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the root of the upstream site.
const DefaultBaseURL = "https://www.linkedin.com/"

// Criteria is a structured people search. All fields are optional.
// Keywords carries free-text location input: the people-search surface has
// no structured location filter we can rely on, so it folds into keywords.
type Criteria struct {
	JobTitle string `json:"job_title,omitempty"`
	Industry string `json:"industry,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	Company  string `json:"company,omitempty"`
}

// Empty reports whether no field carries a value.
func (c Criteria) Empty() bool {
	return strings.TrimSpace(c.JobTitle) == "" &&
		strings.TrimSpace(c.Industry) == "" &&
		strings.TrimSpace(c.Keywords) == "" &&
		strings.TrimSpace(c.Company) == ""
}

// Builder constructs search URLs against a configurable base.
type Builder struct {
	baseURL string
}

// New creates a Builder. An empty base falls back to DefaultBaseURL.
func New(baseURL string) *Builder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Builder{baseURL: baseURL}
}

// Build returns the people-search URL for the given criteria and 1-based
// result page.
//
// A JobTitle of the form "Title - Company" splits into title and company
// when Company is otherwise unset. All non-empty fields are then
// concatenated into a single keyword string and URL-encoded; empty fields
// are omitted.
func (b *Builder) Build(c Criteria, page int) string {
	title := strings.TrimSpace(c.JobTitle)
	company := strings.TrimSpace(c.Company)

	if company == "" {
		if i := strings.Index(title, " - "); i >= 0 {
			company = strings.TrimSpace(title[i+3:])
			title = strings.TrimSpace(title[:i])
		}
	}

	var parts []string
	for _, p := range []string{title, company, strings.TrimSpace(c.Industry), strings.TrimSpace(c.Keywords)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	kw := strings.Join(parts, " ")

	u := fmt.Sprintf("%ssearch/results/people/?keywords=%s&origin=GLOBAL_SEARCH_HEADER",
		b.baseURL, url.QueryEscape(kw))
	if page > 1 {
		u = fmt.Sprintf("%s&page=%d", u, page)
	}
	return u
}

// ProfileURL resolves a profile URL or bare public identifier to an
// absolute profile URL.
func (b *Builder) ProfileURL(urlOrID string) string {
	s := strings.TrimSpace(urlOrID)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return b.baseURL + "in/" + strings.Trim(s, "/") + "/"
}
