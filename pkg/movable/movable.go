// Package movable holds the pure ranking rules shared by every orderable
// list: normalization to a contiguous 1..N sequence and single-item moves.
// Nothing in here touches storage.
package movable

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/israelwong/zen-sub001/pkg/idwrap"
)

// Item is the ordering view of a row.
type Item struct {
	ID       idwrap.IDWrap
	Rank     int
	Tiebreak int64 // creation time in unix millis
}

// RankUpdate is a single write needed to reach the planned order.
type RankUpdate struct {
	ID      idwrap.IDWrap
	OldRank int
	NewRank int
}

// Plan is the outcome of a ranking computation. Ordered holds every item
// with its final rank; Updates holds only the items whose rank changed.
type Plan struct {
	Ordered []Item
	Updates []RankUpdate
}

func (p Plan) Count() int { return len(p.Ordered) }

// Compare orders by rank, then tiebreak, then ID.
func Compare(a, b Item) int {
	if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Tiebreak, b.Tiebreak); c != 0 {
		return c
	}
	return a.ID.Compare(b.ID)
}

// Sorted returns a copy of items in (rank, tiebreak, id) order.
func Sorted(items []Item) []Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, Compare)
	return out
}

// Normalize assigns rank = index+1 over the sorted order. Any input is
// accepted: unranked, duplicated or negative ranks all come out as 1..N.
func Normalize(items []Item) Plan {
	return assign(Sorted(items))
}

// Move takes the item out of the sorted order and reinserts it so it ends up
// holding newRank. The rest of the scope keeps its relative order and is
// renumbered 1..N, which also heals any drift present before the move.
func Move(items []Item, id idwrap.IDWrap, newRank int) (Plan, error) {
	if id.IsZero() {
		return Plan{}, ErrEmptyItemID
	}
	ordered := Sorted(items)
	idx := slices.IndexFunc(ordered, func(it Item) bool { return it.ID.Compare(id) == 0 })
	if idx < 0 {
		return Plan{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if err := ValidateRank(newRank, len(items)); err != nil {
		return Plan{}, err
	}

	moved := ordered[idx]
	ordered = slices.Delete(ordered, idx, idx+1)
	ordered = slices.Insert(ordered, newRank-1, moved)
	return assign(ordered), nil
}

// ValidateRank checks that rank is a valid 1-based position in a scope of n
// items.
func ValidateRank(rank, n int) error {
	if rank < 1 || rank > n {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidRank, rank, n)
	}
	return nil
}

func assign(ordered []Item) Plan {
	plan := Plan{Ordered: ordered}
	for i := range ordered {
		want := i + 1
		if ordered[i].Rank != want {
			plan.Updates = append(plan.Updates, RankUpdate{
				ID:      ordered[i].ID,
				OldRank: ordered[i].Rank,
				NewRank: want,
			})
			ordered[i].Rank = want
		}
	}
	return plan
}
