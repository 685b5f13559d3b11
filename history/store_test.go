package history

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nicksriv/leadflow/dbopen"
	"github.com/nicksriv/leadflow/profile"
	"github.com/nicksriv/leadflow/query"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return NewStore(db, nil)
}

func candidate(id string) profile.Candidate {
	return profile.Candidate{
		ExternalID: id,
		Name:       "Jane Doe",
		Headline:   "VP Sales at Acme",
		URL:        "https://x/in/" + id,
	}
}

func TestSearchKeyIsOrderAndGapInvariant(t *testing.T) {
	// WHAT: The key depends only on which fields carry values, sorted by
	// field name; empty fields never contribute.
	// WHY: The same search intent must always land in the same group.
	a := query.Criteria{JobTitle: "CTO", Company: "Acme"}
	b := query.Criteria{Company: "Acme", JobTitle: "CTO", Keywords: "  "}
	if SearchKey(a) != SearchKey(b) {
		t.Errorf("keys differ: %q vs %q", SearchKey(a), SearchKey(b))
	}
	if got, want := SearchKey(a), "company:Acme|job_title:CTO"; got != want {
		t.Errorf("key: got %q, want %q", got, want)
	}
	if SearchKey(query.Criteria{}) != "" {
		t.Error("empty criteria must yield an empty key")
	}
}

func TestGroupedDedupesProfilesPerSearch(t *testing.T) {
	// WHAT: Views group by search key; a profile viewed twice under one
	// search appears once with its latest timestamp.
	// WHY: The grouped view answers "who did this search surface",
	// not "how many clicks happened".
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	cto := query.Criteria{JobTitle: "CTO"}
	sales := query.Criteria{JobTitle: "VP Sales", Company: "Acme"}

	s.Record(ctx, "o1", cto, candidate("p1"), base)
	s.Record(ctx, "o1", cto, candidate("p2"), base.Add(time.Minute))
	s.Record(ctx, "o1", cto, candidate("p1"), base.Add(2*time.Minute)) // repeat view
	s.Record(ctx, "o1", sales, candidate("p3"), base.Add(3*time.Minute))

	groups, err := s.Grouped(ctx, "o1", Range{})
	if err != nil {
		t.Fatalf("grouped: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups: got %d, want 2", len(groups))
	}
	// Newest group first.
	if groups[0].SearchKey != SearchKey(sales) {
		t.Errorf("first group: %q", groups[0].SearchKey)
	}

	ctoGroup := groups[1]
	if ctoGroup.Count != 2 || len(ctoGroup.Profiles) != 2 {
		t.Fatalf("cto group: count=%d profiles=%d", ctoGroup.Count, len(ctoGroup.Profiles))
	}
	// p1's surviving entry is its latest view.
	if got := ctoGroup.Profiles[0]; got.ProfileID != "p1" || !got.ViewedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("latest p1 view: id=%q at=%v", got.ProfileID, got.ViewedAt)
	}
	if ctoGroup.Criteria.JobTitle != "CTO" {
		t.Errorf("criteria round-trip: %+v", ctoGroup.Criteria)
	}
}

func TestGroupedRespectsRange(t *testing.T) {
	// WHAT: Only views inside the closed interval [Start, End] are
	// grouped; a view timestamped exactly at End is included.
	// WHY: The UI queries day and week windows.
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := query.Criteria{Keywords: "golang"}

	s.Record(ctx, "o1", c, candidate("p1"), base.Add(-48*time.Hour))
	s.Record(ctx, "o1", c, candidate("p2"), base)

	groups, err := s.Grouped(ctx, "o1", Range{Start: base.Add(-time.Hour)})
	if err != nil {
		t.Fatalf("grouped: %v", err)
	}
	if len(groups) != 1 || groups[0].Count != 1 || groups[0].Profiles[0].ProfileID != "p2" {
		t.Fatalf("ranged result: %+v", groups)
	}

	// End exactly on p1's timestamp: p1 stays in, p2 stays out.
	groups, _ = s.Grouped(ctx, "o1", Range{End: base.Add(-48 * time.Hour)})
	if len(groups) != 1 || groups[0].Count != 1 || groups[0].Profiles[0].ProfileID != "p1" {
		t.Fatalf("end-bounded result: %+v", groups)
	}
}

func TestStats(t *testing.T) {
	// WHAT: Stats counts raw views, distinct search keys, and the most
	// recent view time; an empty history yields zeros.
	s := openTestStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx, "o1")
	if err != nil {
		t.Fatalf("empty stats: %v", err)
	}
	if st.TotalViews != 0 || st.DistinctSearches != 0 || !st.LastViewedAt.IsZero() {
		t.Fatalf("empty stats: %+v", st)
	}

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	s.Record(ctx, "o1", query.Criteria{JobTitle: "CTO"}, candidate("p1"), base)
	s.Record(ctx, "o1", query.Criteria{JobTitle: "CTO"}, candidate("p1"), base.Add(time.Minute))
	s.Record(ctx, "o1", query.Criteria{Company: "Acme"}, candidate("p2"), base.Add(2*time.Minute))
	s.Record(ctx, "o2", query.Criteria{Company: "Acme"}, candidate("p2"), base)

	st, err = s.Stats(ctx, "o1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalViews != 3 {
		t.Errorf("total: %d", st.TotalViews)
	}
	if st.DistinctSearches != 2 {
		t.Errorf("distinct: %d", st.DistinctSearches)
	}
	if !st.LastViewedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("last: %v", st.LastViewedAt)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	// WHAT: Retention removes only rows before the cutoff, only for the
	// given owner, and reports the dropped count.
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := query.Criteria{Keywords: "golang"}

	s.Record(ctx, "o1", c, candidate("p1"), base.Add(-72*time.Hour))
	s.Record(ctx, "o1", c, candidate("p2"), base.Add(-48*time.Hour))
	s.Record(ctx, "o1", c, candidate("p3"), base)
	s.Record(ctx, "o2", c, candidate("p4"), base.Add(-72*time.Hour))

	n, err := s.DeleteOlderThan(ctx, "o1", base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Errorf("dropped: got %d, want 2", n)
	}

	st, _ := s.Stats(ctx, "o1")
	if st.TotalViews != 1 {
		t.Errorf("o1 remaining: %d", st.TotalViews)
	}
	st, _ = s.Stats(ctx, "o2")
	if st.TotalViews != 1 {
		t.Errorf("o2 must be untouched: %d", st.TotalViews)
	}
}

func TestPruneOlderThanCrossesOwners(t *testing.T) {
	// WHAT: The retention job's prune drops old rows for every owner.
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := query.Criteria{Keywords: "golang"}

	s.Record(ctx, "o1", c, candidate("p1"), base.Add(-72*time.Hour))
	s.Record(ctx, "o2", c, candidate("p2"), base.Add(-72*time.Hour))
	s.Record(ctx, "o1", c, candidate("p3"), base)

	n, err := s.PruneOlderThan(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned: got %d, want 2", n)
	}
}
