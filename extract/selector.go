// Package extract converts rendered page content into structured records.
//
// Every extractor is a pure function of the page HTML: parse once, then run
// an ordered chain of independent strategies per concern and take the first
// non-empty result. Upstream markup changes unpredictably, so each concern
// carries a stable attribute-based strategy, a legacy class-name strategy,
// and a generic heuristic. A strategy that matches nothing simply yields
// the next one; a field that no strategy finds is absent, never an error.
package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// parse builds the node tree for one rendered page. html.Parse is lenient:
// it never fails on real-world tag soup, only on reader errors.
func parse(content string) *html.Node {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return &html.Node{Type: html.DocumentNode}
	}
	return doc
}

// simpleSelector is one compiled segment of a CSS-subset selector.
type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrKey string
	attrVal string
	attrSub bool // true for [attr*=val] substring match
}

// queryAll returns all nodes matching a selector. Supported subset:
//
//	tag  .class  #id  tag.class.other  tag[attr]  tag[attr=v]  tag[attr*=v]
//
// plus space-separated descendant combinators. This mirrors what the
// fallback chains need; anything fancier belongs in a real engine.
func queryAll(root *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 || root == nil {
		return nil
	}
	matches := matchAll(root, compileSimple(parts[0]))
	for _, part := range parts[1:] {
		sel := compileSimple(part)
		var next []*html.Node
		for _, parent := range matches {
			for c := parent.FirstChild; c != nil; c = c.NextSibling {
				next = append(next, matchAll(c, sel)...)
			}
		}
		matches = next
	}
	return matches
}

// queryOne returns the first match or nil.
func queryOne(root *html.Node, selector string) *html.Node {
	if m := queryAll(root, selector); len(m) > 0 {
		return m[0]
	}
	return nil
}

func matchAll(root *html.Node, sel simpleSelector) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matches(n, sel) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

func compileSimple(raw string) simpleSelector {
	var s simpleSelector

	if i := strings.IndexByte(raw, '['); i >= 0 {
		attr := strings.TrimRight(raw[i+1:], "]")
		raw = raw[:i]
		switch {
		case strings.Contains(attr, "*="):
			kv := strings.SplitN(attr, "*=", 2)
			s.attrKey, s.attrVal, s.attrSub = kv[0], strings.Trim(kv[1], `"'`), true
		case strings.Contains(attr, "="):
			kv := strings.SplitN(attr, "=", 2)
			s.attrKey, s.attrVal = kv[0], strings.Trim(kv[1], `"'`)
		default:
			s.attrKey = attr
		}
	}

	if i := strings.IndexByte(raw, '#'); i >= 0 {
		rest := raw[i+1:]
		if j := strings.IndexByte(rest, '.'); j >= 0 {
			s.id, rest = rest[:j], rest[j:]
			raw = raw[:i] + rest
		} else {
			s.id = rest
			raw = raw[:i]
		}
	}

	if i := strings.IndexByte(raw, '.'); i >= 0 {
		s.classes = strings.Split(raw[i+1:], ".")
		raw = raw[:i]
	}

	s.tag = raw
	return s
}

func matches(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && attr(n, "id") != s.id {
		return false
	}
	if len(s.classes) > 0 {
		have := strings.Fields(attr(n, "class"))
		for _, want := range s.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	if s.attrKey != "" {
		val, ok := lookupAttr(n, s.attrKey)
		switch {
		case !ok:
			return false
		case s.attrSub:
			if !strings.Contains(val, s.attrVal) {
				return false
			}
		case s.attrVal != "":
			if val != s.attrVal {
				return false
			}
		}
	}
	return true
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// textOf collects the visible text of a subtree with runs of whitespace
// collapsed. Script and style subtrees are skipped.
func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// textLines returns the distinct non-empty text lines of a subtree in
// document order. Block-ish boundaries are approximated by element breaks.
func textLines(n *html.Node) []string {
	var lines []string
	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			t := strings.Join(strings.Fields(n.Data), " ")
			if t != "" && !seen[t] {
				seen[t] = true
				lines = append(lines, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return lines
}

// climb walks up from n until pred matches or maxUp ancestors are passed.
func climb(n *html.Node, maxUp int, pred func(*html.Node) bool) *html.Node {
	for cur := n; cur != nil && maxUp >= 0; cur, maxUp = cur.Parent, maxUp-1 {
		if pred(cur) {
			return cur
		}
	}
	return nil
}

// metaContent reads <meta property=...> / <meta name=...> content.
func metaContent(doc *html.Node, property string) string {
	for _, n := range queryAll(doc, "meta") {
		if attr(n, "property") == property || attr(n, "name") == property {
			return strings.TrimSpace(attr(n, "content"))
		}
	}
	return ""
}
