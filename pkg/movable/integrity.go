package movable

import (
	"fmt"
	"slices"
)

// Gap is a run of missing ranks between two stored ranks.
type Gap struct {
	Start int
	End   int
}

func (g Gap) Size() int { return g.End - g.Start + 1 }

// Report describes how far a scope has drifted from 1..N.
type Report struct {
	Count       int
	Gaps        []Gap
	Duplicates  []int // ranks held by more than one item
	NonPositive int   // items with rank <= 0
	MaxRank     int
}

// Contiguous reports whether the ranks are exactly 1..Count.
func (r Report) Contiguous() bool {
	if r.Count == 0 {
		return true
	}
	return len(r.Gaps) == 0 && len(r.Duplicates) == 0 && r.NonPositive == 0 && r.MaxRank == r.Count
}

// Inspect scans the stored ranks without changing them.
func Inspect(items []Item) Report {
	rep := Report{Count: len(items)}
	if len(items) == 0 {
		return rep
	}

	ranks := make([]int, 0, len(items))
	for _, it := range items {
		if it.Rank <= 0 {
			rep.NonPositive++
			continue
		}
		ranks = append(ranks, it.Rank)
	}
	slices.Sort(ranks)
	if len(ranks) == 0 {
		return rep
	}
	rep.MaxRank = ranks[len(ranks)-1]

	prev := 0
	for i, r := range ranks {
		if i > 0 && r == ranks[i-1] {
			if len(rep.Duplicates) == 0 || rep.Duplicates[len(rep.Duplicates)-1] != r {
				rep.Duplicates = append(rep.Duplicates, r)
			}
			continue
		}
		if r > prev+1 {
			rep.Gaps = append(rep.Gaps, Gap{Start: prev + 1, End: r - 1})
		}
		prev = r
	}
	return rep
}

// Validate returns a validation error describing the first kind of drift
// found, or nil when the ranks are already 1..N.
func Validate(items []Item) error {
	rep := Inspect(items)
	switch {
	case rep.Contiguous():
		return nil
	case rep.NonPositive > 0:
		return fmt.Errorf("%w: %d items without a positive rank", ErrInvalidRank, rep.NonPositive)
	case len(rep.Duplicates) > 0:
		return fmt.Errorf("%w: duplicated ranks %v", ErrInvalidRank, rep.Duplicates)
	case len(rep.Gaps) > 0:
		return fmt.Errorf("%w: %d gaps, first at %d", ErrInvalidRank, len(rep.Gaps), rep.Gaps[0].Start)
	default:
		return fmt.Errorf("%w: max rank %d for %d items", ErrInvalidRank, rep.MaxRank, rep.Count)
	}
}

// AppendRank is the rank a new item gets so it sorts last, even when the
// stored ranks have gaps.
func AppendRank(items []Item) int {
	last := len(items)
	for _, it := range items {
		last = max(last, it.Rank)
	}
	return last + 1
}
