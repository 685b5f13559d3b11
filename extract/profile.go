package extract

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nicksriv/leadflow/profile"
)

// fieldStrategy extracts one scalar field from the page.
type fieldStrategy func(doc *html.Node) string

// listStrategy extracts one repeated field from the page.
type listStrategy func(doc *html.Node) []string

var geoLocationRe = regexp.MustCompile(`"geoLocationName":"([^"]+)"`)

// Profile extracts a full profile from a rendered profile page. Every field
// runs its own fallback chain; a field no strategy can locate is left
// absent and the rest of the extraction continues.
func Profile(content, url string) profile.Profile {
	doc := parse(content)

	p := profile.Profile{
		Candidate: profile.Candidate{
			ExternalID: PublicIdentifier(url),
			URL:        url,
			Name:       firstScalar(doc, nameStrategies),
			Headline:   firstScalar(doc, headlineStrategies),
			Location:   firstScalar(doc, locationStrategies),
			AvatarURL:  firstScalar(doc, avatarStrategies),
		},
		About:     firstScalar(doc, aboutStrategies),
		Skills:    NormalizeSkills(firstList(doc, skillStrategies)),
		Posts:     dedupePosts(firstList(doc, postStrategies)),
		Interests: firstList(doc, interestStrategies),
		Education: firstScalar(doc, educationStrategies),
		ScrapedAt: time.Now().UTC(),
	}
	p.Experiences = experiences(doc)
	p.Company = CompanyFromHeadline(p.Headline)
	if p.Company == "" && len(p.Experiences) > 0 {
		p.Company = p.Experiences[0].Company
	}
	p.Email = resolvePageEmail(doc)
	return p
}

func firstScalar(doc *html.Node, chain []fieldStrategy) string {
	for _, s := range chain {
		if v := strings.TrimSpace(s(doc)); v != "" {
			return v
		}
	}
	return ""
}

func firstList(doc *html.Node, chain []listStrategy) []string {
	for _, s := range chain {
		if v := s(doc); len(v) > 0 {
			return v
		}
	}
	return nil
}

var nameStrategies = []fieldStrategy{
	func(doc *html.Node) string { return textOf(queryOne(doc, "h1[data-anonymize=person-name]")) },
	func(doc *html.Node) string { return textOf(queryOne(doc, "h1.text-heading-xlarge")) },
	func(doc *html.Node) string {
		// og:title carries "Name - Headline | LinkedIn".
		t := metaContent(doc, "og:title")
		for _, sep := range []string{" - ", " | "} {
			if i := strings.Index(t, sep); i > 0 {
				t = t[:i]
			}
		}
		return strings.TrimSpace(t)
	},
}

var headlineStrategies = []fieldStrategy{
	func(doc *html.Node) string { return textOf(queryOne(doc, "div[data-anonymize=headline]")) },
	func(doc *html.Node) string { return textOf(queryOne(doc, "div.text-body-medium.break-words")) },
	func(doc *html.Node) string {
		d := metaContent(doc, "og:description")
		if i := strings.IndexRune(d, '·'); i > 0 {
			d = d[:i]
		}
		return strings.TrimSpace(d)
	},
}

var locationStrategies = []fieldStrategy{
	func(doc *html.Node) string { return textOf(queryOne(doc, "span[data-anonymize=location]")) },
	func(doc *html.Node) string {
		return textOf(queryOne(doc, "span.text-body-small.inline.t-black--light.break-words"))
	},
	func(doc *html.Node) string {
		// Embedded state JSON still carries the geo name when the top
		// card markup has drifted beyond recognition.
		if m := geoLocationRe.FindStringSubmatch(textOf(queryOne(doc, "html"))); len(m) > 1 {
			return m[1]
		}
		return ""
	},
}

var avatarStrategies = []fieldStrategy{
	func(doc *html.Node) string { return attr(queryOne(doc, "img[data-anonymize=headshot-photo]"), "src") },
	func(doc *html.Node) string { return attr(queryOne(doc, "img.pv-top-card-profile-picture__image"), "src") },
	func(doc *html.Node) string { return metaContent(doc, "og:image") },
}

var aboutStrategies = []fieldStrategy{
	func(doc *html.Node) string { return sectionBody(doc, "section[data-section=summary]") },
	func(doc *html.Node) string {
		anchor := queryOne(doc, "div#about")
		sec := climb(anchor, 3, isSection)
		if sec == nil {
			return ""
		}
		return stripHeading(sec, "About")
	},
	func(doc *html.Node) string { return textOf(queryOne(doc, "p.pv-about__summary-text")) },
}

var skillStrategies = []listStrategy{
	func(doc *html.Node) []string {
		return textsOf(queryAll(doc, "section[data-section=skills] a[data-field=skill_card_skill_topic]"))
	},
	func(doc *html.Node) []string {
		return textsOf(queryAll(doc, "span.pv-skill-category-entity__name-text"))
	},
	func(doc *html.Node) []string {
		anchor := queryOne(doc, "div#skills")
		sec := climb(anchor, 3, isSection)
		if sec == nil {
			return nil
		}
		var out []string
		for _, li := range queryAll(sec, "li") {
			out = append(out, firstTextLine(li))
		}
		return out
	},
}

var postStrategies = []listStrategy{
	func(doc *html.Node) []string {
		return textsOf(queryAll(doc, "div[data-urn*=urn:li:activity] span.break-words"))
	},
	func(doc *html.Node) []string {
		return textsOf(queryAll(doc, "div.feed-shared-update-v2 div.update-components-text"))
	},
	func(doc *html.Node) []string {
		return textsOf(queryAll(doc, "div.occludable-update span.break-words"))
	},
}

var interestStrategies = []listStrategy{
	func(doc *html.Node) []string {
		return textsOf(queryAll(doc, "section[data-section=interests] div[data-anonymize=company-name]"))
	},
	func(doc *html.Node) []string {
		var out []string
		for _, n := range queryAll(doc, "div.pv-interests-entity span.entity__name-text") {
			out = append(out, firstTextLine(n))
		}
		return out
	},
}

var educationStrategies = []fieldStrategy{
	func(doc *html.Node) string {
		return textOf(queryOne(doc, "section[data-section=educationsDetails] h3[data-anonymize=education-name]"))
	},
	func(doc *html.Node) string {
		anchor := queryOne(doc, "div#education")
		sec := climb(anchor, 3, isSection)
		if sec == nil {
			return ""
		}
		for _, li := range queryAll(sec, "li") {
			if v := firstTextLine(li); v != "" {
				return v
			}
		}
		return ""
	},
	func(doc *html.Node) string { return textOf(queryOne(doc, "div.pv-education-entity h3")) },
}

// experiences parses the positions list. Each entry keeps the row's leading
// lines: title first, employer second, period third when present.
func experiences(doc *html.Node) []profile.Experience {
	rows := queryAll(doc, "section[data-section=experience] li")
	if len(rows) == 0 {
		if anchor := queryOne(doc, "div#experience"); anchor != nil {
			if sec := climb(anchor, 3, isSection); sec != nil {
				rows = queryAll(sec, "li")
			}
		}
	}
	if len(rows) == 0 {
		rows = queryAll(doc, "li.pv-entity__position-group-pager")
	}

	var out []profile.Experience
	for _, row := range rows {
		lines := textLines(row)
		if len(lines) == 0 {
			continue
		}
		e := profile.Experience{Title: lines[0]}
		if len(lines) > 1 {
			e.Company = lines[1]
		}
		if len(lines) > 2 {
			e.Period = lines[2]
		}
		out = append(out, e)
	}
	return out
}

// resolvePageEmail scans the page (after the caller triggered the contact
// info overlay) for an address. A page that explicitly marks contact info
// as gated resolves to the Fallback tag; no match at all is Missing.
func resolvePageEmail(doc *html.Node) profile.Email {
	scope := queryOne(doc, "section.pv-contact-info")
	if scope == nil {
		scope = doc
	}
	if addr := firstEmailIn(textOf(scope)); addr != "" {
		return profile.ResolveEmail(addr)
	}
	if queryOne(doc, "div[data-test-contact-info-locked]") != nil ||
		queryOne(doc, "div.contact-info__locked") != nil {
		return profile.FallbackEmail()
	}
	return profile.MissingEmail()
}

func isSection(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "section"
}

// sectionBody returns a section's text with its heading line removed.
func sectionBody(doc *html.Node, selector string) string {
	sec := queryOne(doc, selector)
	if sec == nil {
		return ""
	}
	body := textOf(sec)
	if h := textOf(queryOne(sec, "h2")); h != "" {
		body = strings.TrimSpace(strings.TrimPrefix(body, h))
	}
	return body
}

func stripHeading(sec *html.Node, heading string) string {
	body := textOf(sec)
	return strings.TrimSpace(strings.TrimPrefix(body, heading))
}

func textsOf(nodes []*html.Node) []string {
	var out []string
	for _, n := range nodes {
		if t := textOf(n); t != "" {
			out = append(out, t)
		}
	}
	return out
}
