package model

import (
	"testing"
	"time"
)

func TestRecomputeIgnoresStoredTotal(t *testing.T) {
	p := &Property{LandValuation: 30000000, ConstructionValuation: 45000000, TotalValuation: 1}
	p.Recompute()
	if p.TotalValuation != 75000000 {
		t.Fatalf("TotalValuation = %v, want 75000000", p.TotalValuation)
	}
}

func TestApplyFromKeepsIdentity(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dst := &Property{ID: "keep", RollNumber: "1-1", ImageURL: "foto.jpg", CreatedAt: created}
	src := &Property{ID: "other", RollNumber: "1-1", Address: "Nueva 1", LandValuation: 10, ConstructionValuation: 5}

	dst.ApplyFrom(src)

	if dst.ID != "keep" || !dst.CreatedAt.Equal(created) {
		t.Fatalf("identity changed: %+v", dst)
	}
	if dst.Address != "Nueva 1" || dst.TotalValuation != 15 {
		t.Fatalf("fields not applied: %+v", dst)
	}
	if dst.ImageURL != "foto.jpg" {
		t.Fatalf("empty image must not clear the existing one, got %q", dst.ImageURL)
	}
}

func TestSearchFiltersMatch(t *testing.T) {
	p := &Property{RollNumber: "123-45", Address: "Avenida Santa María 1200", Use: "HABITACIONAL", TotalValuation: 75}
	lo, hi := 50.0, 100.0
	tooHigh := 80.0

	tests := []struct {
		name string
		f    SearchFilters
		want bool
	}{
		{"empty", SearchFilters{}, true},
		{"rol substring", SearchFilters{RollNumber: "23-4"}, true},
		{"rol is case sensitive", SearchFilters{RollNumber: "X"}, false},
		{"address ignores case", SearchFilters{Address: "santa"}, true},
		{"use exact", SearchFilters{Use: "HABITACIONAL"}, true},
		{"use mismatch", SearchFilters{Use: "COMERCIO"}, false},
		{"valuation range", SearchFilters{MinValuation: &lo, MaxValuation: &hi}, true},
		{"below minimum", SearchFilters{MinValuation: &tooHigh}, false},
	}
	for _, tt := range tests {
		if got := tt.f.Match(p); got != tt.want {
			t.Errorf("%s: Match = %v, want %v", tt.name, got, tt.want)
		}
	}
	if !(SearchFilters{}).Empty() || (SearchFilters{Use: "x"}).Empty() {
		t.Errorf("Empty reports wrong result")
	}
}

func TestBatchSummaryTotal(t *testing.T) {
	s := &BatchSummary{Created: 2, Updated: 3, Errors: []BatchError{{Index: 1}}}
	if s.ErrorCount() != 1 || s.Total() != 6 {
		t.Fatalf("ErrorCount=%d Total=%d", s.ErrorCount(), s.Total())
	}
	if m, ok := ParseImportMode(""); !ok || m != ModeUpdate {
		t.Fatalf("empty mode should default to update")
	}
	if _, ok := ParseImportMode("merge"); ok {
		t.Fatalf("unknown mode accepted")
	}
}
