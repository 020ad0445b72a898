package movable_test

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/movable"
)

func newItems(ranks ...int) []movable.Item {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := make([]movable.Item, len(ranks))
	for i, r := range ranks {
		created := base.Add(time.Duration(i) * time.Minute)
		items[i] = movable.Item{ID: idwrap.NewAt(created), Rank: r, Tiebreak: created.UnixMilli()}
	}
	return items
}

func ranksByID(plan movable.Plan) map[idwrap.IDWrap]int {
	out := make(map[idwrap.IDWrap]int, len(plan.Ordered))
	for _, it := range plan.Ordered {
		out[it.ID] = it.Rank
	}
	return out
}

func requireContiguous(t *testing.T, items []movable.Item) {
	t.Helper()
	seen := make(map[int]bool, len(items))
	for _, it := range items {
		require.GreaterOrEqual(t, it.Rank, 1)
		require.LessOrEqual(t, it.Rank, len(items))
		require.False(t, seen[it.Rank], "rank %d assigned twice", it.Rank)
		seen[it.Rank] = true
	}
	require.Len(t, seen, len(items))
}

func TestNormalize_TiebreakScenario(t *testing.T) {
	t1 := int64(1000)
	t2 := int64(2000)
	t3 := int64(3000)
	item1 := movable.Item{ID: idwrap.NewNow(), Rank: 5, Tiebreak: t2}
	item2 := movable.Item{ID: idwrap.NewNow(), Rank: 5, Tiebreak: t1}
	item3 := movable.Item{ID: idwrap.NewNow(), Rank: 1, Tiebreak: t3}

	plan := movable.Normalize([]movable.Item{item1, item2, item3})

	require.Equal(t, 3, plan.Count())
	got := ranksByID(plan)
	assert.Equal(t, 1, got[item3.ID])
	assert.Equal(t, 2, got[item2.ID])
	assert.Equal(t, 3, got[item1.ID])

	// item3 already held rank 1, so only the other two are written.
	require.Len(t, plan.Updates, 2)
	for _, u := range plan.Updates {
		assert.NotEqual(t, item3.ID, u.ID)
	}
}

func TestNormalize_Inputs(t *testing.T) {
	tests := []struct {
		name        string
		ranks       []int
		wantUpdates int
	}{
		{name: "empty", ranks: nil, wantUpdates: 0},
		{name: "already contiguous", ranks: []int{1, 2, 3, 4}, wantUpdates: 0},
		{name: "gaps", ranks: []int{2, 7, 9}, wantUpdates: 3},
		{name: "all unranked", ranks: []int{0, 0, 0}, wantUpdates: 3},
		{name: "negative", ranks: []int{-3, -1, 2}, wantUpdates: 3},
		{name: "duplicates", ranks: []int{1, 1, 1}, wantUpdates: 2},
		{name: "reversed input order", ranks: []int{3, 2, 1}, wantUpdates: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := movable.Normalize(newItems(tt.ranks...))
			requireContiguous(t, plan.Ordered)
			assert.Len(t, plan.Updates, tt.wantUpdates)
			assert.NoError(t, movable.Validate(plan.Ordered))
		})
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	items := newItems(4, 4, 9)
	_ = movable.Normalize(items)
	assert.Equal(t, []int{4, 4, 9}, []int{items[0].Rank, items[1].Rank, items[2].Rank})
}

func TestNormalize_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 200; round++ {
		n := rng.IntN(25)
		items := make([]movable.Item, n)
		for i := range items {
			items[i] = movable.Item{
				ID:       idwrap.NewNow(),
				Rank:     rng.IntN(10) - 3,
				Tiebreak: int64(rng.IntN(5)),
			}
		}

		first := movable.Normalize(items)
		requireContiguous(t, first.Ordered)

		// Order preservation against the (rank, tiebreak, id) tuple.
		got := ranksByID(first)
		for _, a := range items {
			for _, b := range items {
				if movable.Compare(a, b) < 0 {
					require.Less(t, got[a.ID], got[b.ID])
				}
			}
		}

		// Idempotence.
		second := movable.Normalize(first.Ordered)
		require.Empty(t, second.Updates)
		require.Equal(t, got, ranksByID(second))
	}
}

func TestMove_ToFirst(t *testing.T) {
	items := newItems(1, 2, 3)
	a, b, c := items[0], items[1], items[2]

	plan, err := movable.Move(items, c.ID, 1)
	require.NoError(t, err)

	got := ranksByID(plan)
	assert.Equal(t, 1, got[c.ID])
	assert.Equal(t, 2, got[a.ID])
	assert.Equal(t, 3, got[b.ID])
	assert.Len(t, plan.Updates, 3)
}

func TestMove_Directions(t *testing.T) {
	tests := []struct {
		name    string
		from    int
		to      int
		wantIDs []int // original indexes in final order
	}{
		{name: "down", from: 0, to: 3, wantIDs: []int{1, 2, 0, 3}},
		{name: "up", from: 3, to: 2, wantIDs: []int{0, 3, 1, 2}},
		{name: "to last", from: 1, to: 4, wantIDs: []int{0, 2, 3, 1}},
		{name: "same rank", from: 2, to: 3, wantIDs: []int{0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := newItems(1, 2, 3, 4)
			plan, err := movable.Move(items, items[tt.from].ID, tt.to)
			require.NoError(t, err)
			requireContiguous(t, plan.Ordered)

			for pos, idx := range tt.wantIDs {
				assert.Equal(t, items[idx].ID, plan.Ordered[pos].ID, "position %d", pos+1)
			}
			if tt.name == "same rank" {
				assert.Empty(t, plan.Updates)
			}
		})
	}
}

func TestMove_HealsDrift(t *testing.T) {
	items := newItems(10, 10, 30)
	plan, err := movable.Move(items, items[2].ID, 2)
	require.NoError(t, err)
	requireContiguous(t, plan.Ordered)
	assert.Equal(t, items[2].ID, plan.Ordered[1].ID)
}

func TestMove_Errors(t *testing.T) {
	items := newItems(1, 2, 3)

	_, err := movable.Move(items, items[0].ID, 0)
	require.ErrorIs(t, err, movable.ErrInvalidRank)

	_, err = movable.Move(items, items[0].ID, 4)
	require.ErrorIs(t, err, movable.ErrInvalidRank)

	_, err = movable.Move(items, idwrap.NewNow(), 1)
	require.ErrorIs(t, err, movable.ErrItemNotFound)

	// A missing item is reported as such even when the rank is also out of
	// range for the smaller scope.
	_, err = movable.Move(items[:2], items[2].ID, 3)
	require.ErrorIs(t, err, movable.ErrItemNotFound)
	require.NotErrorIs(t, err, movable.ErrInvalidRank)

	_, err = movable.Move(items, idwrap.IDWrap{}, 1)
	require.ErrorIs(t, err, movable.ErrEmptyItemID)
}

func TestInspect(t *testing.T) {
	rep := movable.Inspect(newItems(1, 3, 3, 6, 0))
	assert.Equal(t, 5, rep.Count)
	assert.Equal(t, []int{3}, rep.Duplicates)
	assert.Equal(t, []movable.Gap{{Start: 2, End: 2}, {Start: 4, End: 5}}, rep.Gaps)
	assert.Equal(t, 1, rep.NonPositive)
	assert.Equal(t, 6, rep.MaxRank)
	assert.False(t, rep.Contiguous())

	assert.True(t, movable.Inspect(newItems(2, 1, 3)).Contiguous())
	assert.True(t, movable.Inspect(nil).Contiguous())
}

func TestValidate(t *testing.T) {
	require.NoError(t, movable.Validate(newItems(1, 2, 3)))

	for _, ranks := range [][]int{{0, 1}, {1, 1}, {1, 3}} {
		err := movable.Validate(newItems(ranks...))
		require.ErrorIs(t, err, movable.ErrInvalidRank, "ranks %v", ranks)
	}
}

func TestAppendRank(t *testing.T) {
	assert.Equal(t, 1, movable.AppendRank(nil))
	assert.Equal(t, 4, movable.AppendRank(newItems(1, 2, 3)))
	assert.Equal(t, 8, movable.AppendRank(newItems(1, 7)))
	assert.Equal(t, 3, movable.AppendRank(newItems(0, 0)))
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		kind     movable.Kind
	}{
		{movable.NewValidationError("move", movable.ErrInvalidRank), movable.ErrValidation, movable.KindValidation},
		{movable.NewNotFoundError("move", "x", nil), movable.ErrNotFound, movable.KindNotFound},
		{movable.NewConflictError("normalize", "plans:1", movable.ErrVersionMismatch), movable.ErrConflict, movable.KindConflict},
		{movable.NewPersistenceError("normalize", "plans:1", "x", 2, errors.New("disk")), movable.ErrPersistence, movable.KindPersistence},
	}

	for _, tt := range tests {
		wrapped := errors.Join(errors.New("outer"), tt.err)
		assert.ErrorIs(t, wrapped, tt.sentinel)
		assert.Equal(t, tt.kind, movable.KindOf(wrapped))
		for _, other := range []error{movable.ErrValidation, movable.ErrNotFound, movable.ErrConflict, movable.ErrPersistence} {
			if other != tt.sentinel {
				assert.NotErrorIs(t, tt.err, other)
			}
		}
	}

	err := movable.NewValidationError("move", movable.ErrInvalidRank)
	assert.ErrorIs(t, err, movable.ErrInvalidRank)
	assert.Contains(t, err.Error(), "move validation: rank out of range")

	var merr *movable.Error
	require.ErrorAs(t, movable.NewPersistenceError("normalize", "s", "id", 2, errors.New("disk")), &merr)
	assert.Equal(t, 2, merr.Applied)
}
