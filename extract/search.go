package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/nicksriv/leadflow/profile"
)

var profilePathRe = regexp.MustCompile(`/in/([^/?#]+)`)

// rowStrategy finds search-result rows and maps them to candidates.
type rowStrategy func(doc *html.Node) []profile.Candidate

// searchStrategies is the ordered fallback chain for search-result rows:
// stable data attributes first, legacy class names second, and a generic
// permalink heuristic last.
var searchStrategies = []rowStrategy{
	rowsByDataAttributes,
	rowsByLegacyClasses,
	rowsByPermalinks,
}

// SearchResults extracts candidate records from a rendered people-search
// page. Strategies run in priority order; the first one producing at least
// one usable row wins. A row without both a name and a profile URL is
// dropped. Duplicate profile URLs within a page collapse to the first hit.
func SearchResults(content string) []profile.Candidate {
	doc := parse(content)
	for _, strategy := range searchStrategies {
		if rows := dedupeCandidates(strategy(doc)); len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// rowsByDataAttributes targets the current markup generation, which tags
// result rows and their fields with data-* attributes.
func rowsByDataAttributes(doc *html.Node) []profile.Candidate {
	var out []profile.Candidate
	for _, row := range queryAll(doc, "li[data-chameleon-result-urn]") {
		c := profile.Candidate{
			Name:     textOf(queryOne(row, "span[data-anonymize=person-name]")),
			Headline: textOf(queryOne(row, "div[data-anonymize=headline]")),
			Location: textOf(queryOne(row, "div[data-anonymize=location]")),
			Company:  textOf(queryOne(row, "a[data-anonymize=company-name]")),
		}
		if link := queryOne(row, "a[href*=/in/]"); link != nil {
			c.URL = attr(link, "href")
			if c.Name == "" {
				c.Name = textOf(link)
			}
		}
		if img := queryOne(row, "img[data-anonymize=headshot-photo]"); img != nil {
			c.AvatarURL = attr(img, "src")
		}
		out = append(out, c)
	}
	return out
}

// rowsByLegacyClasses targets the previous markup generation built on
// entity-result class names.
func rowsByLegacyClasses(doc *html.Node) []profile.Candidate {
	rows := queryAll(doc, "li.reusable-search__result-container")
	if len(rows) == 0 {
		rows = queryAll(doc, "div.entity-result")
	}
	var out []profile.Candidate
	for _, row := range rows {
		c := profile.Candidate{
			Headline: textOf(queryOne(row, "div.entity-result__primary-subtitle")),
			Location: textOf(queryOne(row, "div.entity-result__secondary-subtitle")),
			Summary:  textOf(queryOne(row, "p.entity-result__summary")),
		}
		if title := queryOne(row, "span.entity-result__title-text"); title != nil {
			if link := queryOne(title, "a[href*=/in/]"); link != nil {
				c.URL = attr(link, "href")
			}
			c.Name = firstTextLine(title)
		}
		if c.URL == "" {
			if link := queryOne(row, "a[href*=/in/]"); link != nil {
				c.URL = attr(link, "href")
				if c.Name == "" {
					c.Name = firstTextLine(link)
				}
			}
		}
		if img := queryOne(row, "img.presence-entity__image"); img != nil {
			c.AvatarURL = attr(img, "src")
		}
		out = append(out, c)
	}
	return out
}

// rowsByPermalinks is the last-resort heuristic: find any profile permalink,
// climb to the containing block, and read its leading text lines.
func rowsByPermalinks(doc *html.Node) []profile.Candidate {
	var out []profile.Candidate
	for _, link := range queryAll(doc, "a[href*=/in/]") {
		href := attr(link, "href")
		if !profilePathRe.MatchString(href) {
			continue
		}
		c := profile.Candidate{URL: href, Name: firstTextLine(link)}
		block := climb(link, 6, func(n *html.Node) bool {
			return n.Type == html.ElementNode && (n.Data == "li" || n.Data == "article")
		})
		if block != nil {
			lines := textLines(block)
			if c.Name == "" && len(lines) > 0 {
				c.Name = lines[0]
			}
			for _, l := range lines {
				if l != c.Name && len(l) > 3 {
					c.Headline = l
					break
				}
			}
		}
		out = append(out, c)
	}
	return out
}

// dedupeCandidates drops unusable rows, fills external IDs, and collapses
// duplicate URLs (one person frequently has several anchors per row).
func dedupeCandidates(rows []profile.Candidate) []profile.Candidate {
	seen := make(map[string]bool)
	var out []profile.Candidate
	for _, c := range rows {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" || c.URL == "" {
			continue
		}
		key := profile.NormalizeURL(c.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		c.ExternalID = PublicIdentifier(c.URL)
		if c.Company == "" {
			c.Company = CompanyFromHeadline(c.Headline)
		}
		out = append(out, c)
	}
	return out
}

// PublicIdentifier extracts the vanity identifier from a profile URL.
func PublicIdentifier(url string) string {
	if m := profilePathRe.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}
	return ""
}

func firstTextLine(n *html.Node) string {
	if lines := textLines(n); len(lines) > 0 {
		return lines[0]
	}
	return ""
}
