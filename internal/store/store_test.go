package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"rolmap/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "rolmap.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testProperty(rol, address string) *model.Property {
	return &model.Property{
		RollNumber:            rol,
		Address:               address,
		Use:                   "Habitacional",
		OwnerName:             "Juan Pérez",
		OwnerTaxID:            "12.345.678-9",
		LandArea:              120.5,
		ConstructionArea:      80,
		LandValuation:         30000000,
		ConstructionValuation: 45000000,
		TotalValuation:        1,
		Latitude:              -18.4783,
		Longitude:             -70.3126,
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Create(ctx, testProperty("001-001", "Calle 1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.RollNumber != "001-001" || got.OwnerName != "Juan Pérez" {
		t.Errorf("unexpected record %+v", got)
	}
	if got.TotalValuation != 75000000 {
		t.Errorf("TotalValuation = %v, want 75000000", got.TotalValuation)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestCreateDuplicateRollNumber(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Create(ctx, testProperty("001-001", "Calle 1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, err := s.Create(ctx, testProperty("001-001", "Calle 2"))
	if !errors.Is(err, model.ErrDuplicateRollNumber) {
		t.Errorf("Create(duplicate) error = %v, want ErrDuplicateRollNumber", err)
	}
}

func TestFindByRollNumber(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.FindByRollNumber(ctx, "nope")
	if err != nil || got != nil {
		t.Fatalf("FindByRollNumber(absent) = %v, %v; want nil, nil", got, err)
	}

	id, _ := s.Create(ctx, testProperty("A-1", "Calle 1"))
	got, err = s.FindByRollNumber(ctx, "A-1")
	if err != nil {
		t.Fatalf("FindByRollNumber() error = %v", err)
	}
	if got == nil || got.ID != id {
		t.Fatalf("FindByRollNumber() = %v, want id %s", got, id)
	}

	if got, _ := s.FindByRollNumber(ctx, "a-1"); got != nil {
		t.Error("FindByRollNumber should be case-sensitive")
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, _ := s.Create(ctx, testProperty("001-001", "Calle 1"))
	_, _ = s.Create(ctx, testProperty("001-002", "Calle 2"))

	next := testProperty("001-001", "Avenida Siempre Viva")
	next.LandValuation = 10
	if err := s.Update(ctx, id, next); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := s.Get(ctx, id)
	if got.Address != "Avenida Siempre Viva" {
		t.Errorf("Address = %s", got.Address)
	}
	if got.TotalValuation != 45000010 {
		t.Errorf("TotalValuation = %v, want 45000010", got.TotalValuation)
	}

	if err := s.Update(ctx, id, testProperty("001-002", "x")); !errors.Is(err, model.ErrDuplicateRollNumber) {
		t.Errorf("Update(taken rol) error = %v", err)
	}
	if err := s.Update(ctx, "missing", next); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Update(missing) error = %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, _ := s.Create(ctx, testProperty("001-001", "Calle 1"))
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Delete(again) error = %v", err)
	}
}

func TestReplaceAllIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 50; i++ {
		_, _ = s.Create(ctx, testProperty(fmt.Sprintf("OLD-%02d", i), "Calle"))
	}

	// 批次内重复 ROL 使事务失败，原有记录保持不变
	err := s.ReplaceAll(ctx, []*model.Property{testProperty("N-1", "a"), testProperty("N-1", "b")})
	if !errors.Is(err, model.ErrDuplicateRollNumber) {
		t.Fatalf("ReplaceAll(duplicate) error = %v", err)
	}
	if n, _ := s.Count(ctx); n != 50 {
		t.Fatalf("Count after failed replace = %d, want 50", n)
	}

	if err := s.ReplaceAll(ctx, []*model.Property{testProperty("N-1", "a"), testProperty("N-2", "b")}); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 2 || all[0].RollNumber != "N-1" || all[1].RollNumber != "N-2" {
		t.Errorf("GetAll() = %v", all)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, _ = s.Create(ctx, testProperty("A", "a"))
	_, _ = s.Create(ctx, testProperty("B", "b"))
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := testProperty("100-001", "Avenida Santa María 1200")
	b := testProperty("100-002", "Calle Sotomayor 45")
	b.Use = "Comercial"
	b.LandValuation = 200000000
	c := testProperty("200-001", "Pasaje 100%")
	for _, p := range []*model.Property{a, b, c} {
		if _, err := s.Create(ctx, p); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	min := 100000000.0
	tests := []struct {
		name    string
		filters model.SearchFilters
		want    []string
	}{
		{"all", model.SearchFilters{}, []string{"100-001", "100-002", "200-001"}},
		{"rol substring", model.SearchFilters{RollNumber: "100-"}, []string{"100-001", "100-002"}},
		{"address case-insensitive", model.SearchFilters{Address: "SOTOMAYOR"}, []string{"100-002"}},
		{"like metachar", model.SearchFilters{Address: "100%"}, []string{"200-001"}},
		{"use", model.SearchFilters{Use: "Comercial"}, []string{"100-002"}},
		{"min valuation", model.SearchFilters{MinValuation: &min}, []string{"100-002"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.Search(ctx, QueryOptions{Filters: tt.filters})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if total != len(tt.want) || len(got) != len(tt.want) {
				t.Fatalf("Search() = %d records (total %d), want %d", len(got), total, len(tt.want))
			}
			for i, p := range got {
				if p.RollNumber != tt.want[i] {
					t.Errorf("record %d = %s, want %s", i, p.RollNumber, tt.want[i])
				}
			}
		})
	}

	page, total, err := s.Search(ctx, QueryOptions{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Search(page) error = %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].RollNumber != "100-002" {
		t.Errorf("Search(page) = %v (total %d)", page, total)
	}
}

func TestImportLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if last, err := s.LastImport(ctx); err != nil || last != nil {
		t.Fatalf("LastImport() on empty = %v, %v", last, err)
	}

	id, err := s.CreateImportLog(ctx, "avaluos.xlsx", 2048, "abc123", "update")
	if err != nil {
		t.Fatalf("CreateImportLog() error = %v", err)
	}
	if last, _ := s.LastImport(ctx); last != nil {
		t.Error("unfinished import should not be reported")
	}

	err = s.UpdateImportLog(ctx, id, ImportLogResult{
		TotalRows: 10, SkippedRows: 2, Created: 5, Updated: 3, Status: "success",
	})
	if err != nil {
		t.Fatalf("UpdateImportLog() error = %v", err)
	}

	last, err := s.LastImport(ctx)
	if err != nil || last == nil {
		t.Fatalf("LastImport() = %v, %v", last, err)
	}
	if last.Filename != "avaluos.xlsx" || last.Created != 5 || last.SkippedRows != 2 || last.CompletedAt == nil {
		t.Errorf("LastImport() = %+v", last)
	}

	prev, found, err := s.FindImportByHash(ctx, "abc123")
	if err != nil || !found || prev != id {
		t.Errorf("FindImportByHash() = %d, %v, %v", prev, found, err)
	}
}

func TestConfig(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	v, err := s.GetConfig(ctx, ConfigSelectedProperty)
	if err != nil || v != "" {
		t.Fatalf("GetConfig(unset) = %q, %v", v, err)
	}
	if err := s.SetConfig(ctx, ConfigSelectedProperty, "id-1"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := s.SetConfig(ctx, ConfigSelectedProperty, "id-2"); err != nil {
		t.Fatalf("SetConfig(overwrite) error = %v", err)
	}
	v, _ = s.GetConfig(ctx, ConfigSelectedProperty)
	if v != "id-2" {
		t.Errorf("GetConfig() = %q, want id-2", v)
	}
	if err := s.DeleteConfig(ctx, ConfigSelectedProperty); err != nil {
		t.Fatalf("DeleteConfig() error = %v", err)
	}
	v, _ = s.GetConfig(ctx, ConfigSelectedProperty)
	if v != "" {
		t.Errorf("GetConfig() after delete = %q", v)
	}
}
