// Package rank derives dense competition ranks from elapsed times.
//
// Every function is pure: it reads its arguments, allocates its own
// result and keeps no state between calls, so the same input always
// yields the same ranks.
package rank

import (
	"cmp"
	"fmt"
	"slices"
)

// Entry is the minimal ranking input: a unique id and a time.
type Entry struct {
	ID     string `json:"id"`
	TimeMs int    `json:"timeMs"`
}

// AssignDense ranks entries by ascending time. Equal times share a rank
// and the next distinct time takes the following rank (1, 1, 2, 3, 3, 4).
// The result holds exactly one rank per id; duplicate ids are rejected.
func AssignDense(entries []Entry) (map[string]int, error) {
	ranks := make(map[string]int, len(entries))
	if len(entries) == 0 {
		return ranks, nil
	}

	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b Entry) int {
		if c := cmp.Compare(a.TimeMs, b.TimeMs); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	current := 0
	for i, e := range sorted {
		if _, dup := ranks[e.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, e.ID)
		}
		if i == 0 || e.TimeMs != sorted[i-1].TimeMs {
			current++
		}
		ranks[e.ID] = current
	}
	return ranks, nil
}
