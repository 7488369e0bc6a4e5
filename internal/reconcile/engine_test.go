package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolmap/internal/model"
	"rolmap/internal/reconcile"
	"rolmap/internal/service/store"
)

func batchOf(n int) []*model.Property {
	out := make([]*model.Property, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &model.Property{
			RollNumber:            fmt.Sprintf("%03d-%03d", i, i),
			Address:               fmt.Sprintf("Calle %d", i),
			LandValuation:         30000000,
			ConstructionValuation: 45000000,
			Latitude:              -18.47,
			Longitude:             -70.30,
		})
	}
	return out
}

func seed(t *testing.T, s *store.MemoryStore, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := s.Create(ctx, &model.Property{
			RollNumber: fmt.Sprintf("OLD-%d", i),
			Address:    "Antigua",
		})
		require.NoError(t, err)
	}
}

func TestUpdateCreatesNewRecords(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, 2)
	engine := reconcile.NewEngine(s)

	res, err := engine.Reconcile(ctx, batchOf(3), nil, reconcile.Options{Mode: model.ModeUpdate})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Summary.Created)
	assert.Equal(t, 0, res.Summary.Updated)
	assert.Empty(t, res.Summary.Errors)

	n, _ := s.Count(ctx)
	assert.Equal(t, 5, n)
}

func TestUpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, 2)
	engine := reconcile.NewEngine(s)

	_, err := engine.Reconcile(ctx, batchOf(3), nil, reconcile.Options{Mode: model.ModeUpdate})
	require.NoError(t, err)

	res, err := engine.Reconcile(ctx, batchOf(3), nil, reconcile.Options{Mode: model.ModeUpdate})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Summary.Created)
	assert.Equal(t, 3, res.Summary.Updated)
	assert.Empty(t, res.Summary.Errors)

	n, _ := s.Count(ctx)
	assert.Equal(t, 5, n)
}

func TestUpdatePreservesIdentity(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	engine := reconcile.NewEngine(s)

	_, err := engine.Reconcile(ctx, batchOf(1), nil, reconcile.Options{})
	require.NoError(t, err)
	before, err := s.FindByRollNumber(ctx, "001-001")
	require.NoError(t, err)
	require.NotNil(t, before)

	changed := batchOf(1)
	changed[0].Address = "Avenida Nueva"
	changed[0].LandValuation = 1
	changed[0].ID = "ignored-id"
	_, err = engine.Reconcile(ctx, changed, nil, reconcile.Options{})
	require.NoError(t, err)

	after, err := s.FindByRollNumber(ctx, "001-001")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "Avenida Nueva", after.Address)
	assert.Equal(t, float64(45000001), after.TotalValuation)
}

func TestUpdateNeverDuplicatesRollNumber(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	engine := reconcile.NewEngine(s)

	// 文件内重复的 ROL：第二次出现按更新处理
	batch := append(batchOf(2), batchOf(2)...)
	res, err := engine.Reconcile(ctx, batch, nil, reconcile.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.Created)
	assert.Equal(t, 2, res.Summary.Updated)

	for i := 0; i < 3; i++ {
		_, err = engine.Reconcile(ctx, batchOf(4), nil, reconcile.Options{})
		require.NoError(t, err)
	}

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, p := range all {
		assert.False(t, seen[p.RollNumber], "duplicate rol %s", p.RollNumber)
		seen[p.RollNumber] = true
	}
	assert.Len(t, all, 4)
}

func TestDerivedTotalIgnoresInput(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	engine := reconcile.NewEngine(s)

	batch := batchOf(2)
	batch[0].TotalValuation = 1
	batch[1].TotalValuation = 999
	_, err := engine.Reconcile(ctx, batch, nil, reconcile.Options{})
	require.NoError(t, err)

	all, _ := s.GetAll(ctx)
	for _, p := range all {
		assert.Equal(t, p.LandValuation+p.ConstructionValuation, p.TotalValuation)
	}
}

func TestUpdateIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	s.FailOn(func(op, rol string) error {
		if op == "create" && rol == "002-002" {
			return errors.New("disk full")
		}
		return nil
	})
	engine := reconcile.NewEngine(s)

	res, err := engine.Reconcile(ctx, batchOf(3), []int{2, 3, 4}, reconcile.Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.Created)
	require.Len(t, res.Summary.Errors, 1)
	assert.Equal(t, 2, res.Summary.Errors[0].Index)
	assert.Equal(t, "002-002", res.Summary.Errors[0].RollNumber)
	assert.Contains(t, res.Summary.Errors[0].Error, "disk full")
	assert.Equal(t, 3, res.Summary.Total())

	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, model.OutcomeFailed, res.Outcomes[1].Kind)
	assert.Equal(t, 3, res.Outcomes[1].Row)
}

func TestUpdateLookupFailureCountsAsError(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	s.FailOn(func(op, rol string) error {
		if op == "find" {
			return errors.New("timeout")
		}
		return nil
	})
	engine := reconcile.NewEngine(s)

	res, err := engine.Reconcile(ctx, batchOf(4), nil, reconcile.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Summary.Created)
	assert.Len(t, res.Summary.Errors, 4)
	assert.Equal(t, 4, res.Summary.Total())
}

func TestUpdateCancelledCountsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := store.NewMemoryStore()
	s.FailOn(func(op, rol string) error {
		// 第二条记录写入后取消
		if op == "create" && rol == "002-002" {
			cancel()
		}
		return nil
	})
	engine := reconcile.NewEngine(s)

	res, err := engine.Reconcile(ctx, batchOf(5), nil, reconcile.Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)

	assert.Equal(t, 2, res.Summary.Created)
	assert.Len(t, res.Summary.Errors, 3)
	assert.Equal(t, 5, res.Summary.Total())
}

func TestReplaceDiscardsUnmatched(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, 50)
	engine := reconcile.NewEngine(s)

	res, err := engine.Reconcile(ctx, batchOf(2), nil, reconcile.Options{Mode: model.ModeReplace})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.Created)
	assert.Equal(t, 50, res.Removed)
	assert.Equal(t, []string{"001-001", "002-002"}, s.RollNumbers())
}

func TestReplaceCollapsesDuplicates(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	engine := reconcile.NewEngine(s)

	batch := batchOf(2)
	last := batchOf(1)[0]
	last.Address = "Última"
	batch = append(batch, last)

	res, err := engine.Reconcile(ctx, batch, nil, reconcile.Options{Mode: model.ModeReplace})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.Created)
	assert.Equal(t, 1, res.Summary.Updated)
	assert.Equal(t, 3, res.Summary.Total())

	got, _ := s.FindByRollNumber(ctx, "001-001")
	require.NotNil(t, got)
	assert.Equal(t, "Última", got.Address)
}

func TestReplaceRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, 10)
	engine := reconcile.NewEngine(s)

	opts := reconcile.Options{Mode: model.ModeReplace, ReplaceThreshold: 5}
	_, err := engine.Reconcile(ctx, batchOf(1), nil, opts)
	require.ErrorIs(t, err, reconcile.ErrReplaceNotConfirmed)

	n, _ := s.Count(ctx)
	assert.Equal(t, 10, n, "store must be untouched")

	opts.ConfirmReplace = true
	_, err = engine.Reconcile(ctx, batchOf(1), nil, opts)
	require.NoError(t, err)
	n, _ = s.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestReplaceStoreFailureLeavesData(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	seed(t, s, 3)
	s.FailOn(func(op, rol string) error {
		if op == "replaceAll" {
			return errors.New("locked")
		}
		return nil
	})
	engine := reconcile.NewEngine(s)

	_, err := engine.Reconcile(ctx, batchOf(2), nil, reconcile.Options{Mode: model.ModeReplace})
	require.Error(t, err)
	n, _ := s.Count(ctx)
	assert.Equal(t, 3, n)
}

func TestUnknownMode(t *testing.T) {
	engine := reconcile.NewEngine(store.NewMemoryStore())
	_, err := engine.Reconcile(context.Background(), nil, nil, reconcile.Options{Mode: "merge"})
	assert.Error(t, err)
}
