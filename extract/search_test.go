package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nicksriv/leadflow/profile"
)

const modernSearchPage = `<html><body><main><ul>
<li data-chameleon-result-urn="urn:li:fsd_profile:A1">
  <a href="https://www.linkedin.com/in/jane-doe?miniProfile=1">
    <span data-anonymize="person-name">Jane Doe</span>
  </a>
  <div data-anonymize="headline">VP Sales at Acme</div>
  <div data-anonymize="location">Berlin, Germany</div>
  <img data-anonymize="headshot-photo" src="https://cdn.example/jane.jpg">
</li>
<li data-chameleon-result-urn="urn:li:fsd_profile:A2">
  <a href="https://www.linkedin.com/in/bob-roe/">
    <span data-anonymize="person-name">Bob Roe</span>
  </a>
  <div data-anonymize="headline">CTO @ Initech</div>
</li>
</ul></main></body></html>`

const legacySearchPage = `<html><body><div class="search-results-container"><ul>
<li class="reusable-search__result-container">
  <span class="entity-result__title-text">
    <a href="/in/jane-doe?trk=search"><span aria-hidden="true">Jane Doe</span></a>
  </span>
  <div class="entity-result__primary-subtitle">VP Sales at Acme</div>
  <div class="entity-result__secondary-subtitle">Berlin, Germany</div>
  <p class="entity-result__summary">20 years in B2B sales.</p>
</li>
</ul></div></body></html>`

const bareSearchPage = `<html><body><div><ul>
<li><div><a href="/in/carla-m/">Carla M.</a><span>Growth Lead at Hooli</span></div></li>
<li><div><a href="/in/carla-m/">Carla M.</a></div></li>
</ul></div></body></html>`

func TestSearchResultsModernMarkup(t *testing.T) {
	// WHAT: Attribute-tagged rows extract all candidate fields.
	// WHY: Strategy 1 is the primary path against current markup.
	got := SearchResults(modernSearchPage)
	want := []profile.Candidate{
		{
			ExternalID: "jane-doe",
			Name:       "Jane Doe",
			Headline:   "VP Sales at Acme",
			Location:   "Berlin, Germany",
			Company:    "Acme",
			URL:        "https://www.linkedin.com/in/jane-doe?miniProfile=1",
			AvatarURL:  "https://cdn.example/jane.jpg",
		},
		{
			ExternalID: "bob-roe",
			Name:       "Bob Roe",
			Headline:   "CTO @ Initech",
			Company:    "Initech",
			URL:        "https://www.linkedin.com/in/bob-roe/",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchResultsLegacyMarkupFallback(t *testing.T) {
	// WHAT: Markup matching only the legacy selector set still yields rows.
	// WHY: Layout drift must degrade to older strategies, not to zero results.
	got := SearchResults(legacySearchPage)
	if len(got) != 1 {
		t.Fatalf("candidates: got %d, want 1", len(got))
	}
	c := got[0]
	if c.Name != "Jane Doe" {
		t.Errorf("name: %q", c.Name)
	}
	if c.URL == "" {
		t.Error("url must be populated")
	}
	if c.Headline != "VP Sales at Acme" {
		t.Errorf("headline: %q", c.Headline)
	}
	if c.Summary != "20 years in B2B sales." {
		t.Errorf("summary: %q", c.Summary)
	}
}

func TestSearchResultsPermalinkHeuristic(t *testing.T) {
	// WHAT: Pages with neither selector generation fall back to permalink
	// climbing, and duplicate anchors for one person collapse.
	// WHY: The heuristic is the floor under arbitrary markup drift.
	got := SearchResults(bareSearchPage)
	if len(got) != 1 {
		t.Fatalf("candidates: got %d, want 1", len(got))
	}
	if got[0].Name != "Carla M." {
		t.Errorf("name: %q", got[0].Name)
	}
	if got[0].Headline != "Growth Lead at Hooli" {
		t.Errorf("headline: %q", got[0].Headline)
	}
}

func TestSearchResultsEmptyPage(t *testing.T) {
	// WHAT: A page with no profile links yields no candidates and no error.
	// WHY: Zero matches is an ordinary outcome, not a failure.
	if got := SearchResults(`<html><body><p>No results.</p></body></html>`); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
