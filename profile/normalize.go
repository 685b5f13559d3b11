package profile

import (
	"regexp"
	"strings"
)

// emailShape is a deliberately loose local@domain check. Extraction already
// scopes candidates to visible contact text; this only rejects garbage.
var emailShape = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// NormalizeURL strips the query string, fragment, and trailing slash from a
// profile URL. The result is used only as the archive equality key; the
// caller-supplied URL stays canonical in storage.
func NormalizeURL(raw string) string {
	u := raw
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}

// ResolveEmail maps a raw extracted string to a tagged Email. A string
// matching the basic email shape becomes Real; anything else (including
// empty input) resolves to Missing. Mapping "nothing extracted at all" or
// "known placeholder" to Missing/Fallback is the caller's decision.
func ResolveEmail(raw string) Email {
	raw = strings.TrimSpace(raw)
	if raw == "" || !emailShape.MatchString(raw) {
		return MissingEmail()
	}
	return RealEmail(raw)
}
