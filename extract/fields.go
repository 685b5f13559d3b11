package extract

import (
	"regexp"
	"strings"
)

const (
	// maxPosts caps how many recent posts one profile carries.
	maxPosts = 5
	// postDedupePrefix is how much of a post's text identifies it.
	// Re-rendered feeds repeat the same update with different trailing
	// boilerplate, so only the head of the text is compared.
	postDedupePrefix = 100
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// companyRe captures the employer following " at " or " @ " in a
	// headline, up to a separator or end of string.
	companyRe = regexp.MustCompile(`\s(?:at|@)\s+([^|,·•]+)`)
)

// NormalizeSkills collapses self-duplicated strings and dedupes
// case-insensitively while preserving first-seen order. The upstream skill
// widget renders each name twice inside one node, so "GoGo" means "Go".
func NormalizeSkills(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(collapseSelfDup(s))
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// collapseSelfDup reduces a string equal to two concatenated copies of the
// same substring to a single copy.
func collapseSelfDup(s string) string {
	if n := len(s); n > 0 && n%2 == 0 && s[:n/2] == s[n/2:] {
		return s[:n/2]
	}
	return s
}

// dedupePosts keeps at most maxPosts unique entries, comparing the first
// postDedupePrefix characters. Full text is retained for kept entries.
func dedupePosts(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := p
		if len(key) > postDedupePrefix {
			key = key[:postDedupePrefix]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
		if len(out) == maxPosts {
			break
		}
	}
	return out
}

// CompanyFromHeadline pulls the employer out of a headline such as
// "VP Sales at Acme | SaaS" or "CTO @ Initech". Empty when no marker found.
func CompanyFromHeadline(headline string) string {
	if m := companyRe.FindStringSubmatch(headline); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// firstEmailIn scans visible text for a generic local@domain pattern.
func firstEmailIn(text string) string {
	return emailRe.FindString(text)
}
