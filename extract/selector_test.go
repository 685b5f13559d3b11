package extract

import (
	"testing"

	"golang.org/x/net/html"
)

const selectorDoc = `<html><body>
<div id="main" class="wrap outer">
  <ul role="list">
    <li class="row first"><a href="/in/abc?x=1" data-test-link>One</a></li>
    <li class="row"><a href="/profile/def">Two</a></li>
  </ul>
  <span class="a b c">multi</span>
</div>
</body></html>`

func TestQueryAllSelectorSubset(t *testing.T) {
	// WHAT: Each supported selector form matches the expected nodes.
	// WHY: Every fallback strategy is expressed in this subset.
	doc := parse(selectorDoc)
	cases := []struct {
		sel  string
		want int
	}{
		{"li", 2},
		{".row", 2},
		{"li.row.first", 1},
		{"#main", 1},
		{"div#main", 1},
		{"ul[role=list]", 1},
		{"a[data-test-link]", 1},
		{"a[href*=/in/]", 1},
		{"ul li a", 2},
		{"div.wrap li.first a[href*=/in/]", 1},
		{"span.a.b.c", 1},
		{"li.missing", 0},
		{"a[href*=/company/]", 0},
	}
	for _, c := range cases {
		if got := len(queryAll(doc, c.sel)); got != c.want {
			t.Errorf("queryAll(%q): got %d, want %d", c.sel, got, c.want)
		}
	}
}

func TestTextOfCollapsesWhitespaceAndSkipsScripts(t *testing.T) {
	// WHAT: Text collection normalizes whitespace and ignores script/style.
	// WHY: Extracted fields must be clean single-line strings.
	doc := parse(`<div>  Hello
		<script>ignored()</script> <b>world</b>  </div>`)
	if got := textOf(queryOne(doc, "div")); got != "Hello world" {
		t.Errorf("textOf: %q", got)
	}
}

func TestClimb(t *testing.T) {
	// WHAT: Ancestor climbing stops at the first matching block within range.
	// WHY: The permalink heuristic locates a row by climbing from its anchor.
	doc := parse(selectorDoc)
	a := queryOne(doc, "a[data-test-link]")
	li := climb(a, 3, func(n *html.Node) bool { return n.Data == "li" })
	if li == nil || attr(li, "class") != "row first" {
		t.Fatal("expected to climb to the li row")
	}
	if climb(a, 0, func(n *html.Node) bool { return n.Data == "li" }) != nil {
		t.Error("zero budget must not climb")
	}
}
