package rank

import (
	"cmp"
	"fmt"
	"slices"
)

// Scope selects how sources are bucketed before dense ranking.
type Scope int

const (
	// ScopeMonthlyClass buckets by (month, title, distance, style, grade, gender).
	ScopeMonthlyClass Scope = iota
	// ScopeMonthlyOverall buckets by (month, title, distance, style, gender)
	// across grades.
	ScopeMonthlyOverall
	// ScopeAllTimeClass buckets by (title, distance, style, grade, gender).
	ScopeAllTimeClass
)

func (s Scope) String() string {
	switch s {
	case ScopeMonthlyClass:
		return "monthly_class"
	case ScopeMonthlyOverall:
		return "monthly_overall"
	case ScopeAllTimeClass:
		return "all_time_class"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// collapses reports whether repeat swims by one athlete keep only the best.
func (s Scope) collapses() bool {
	return s == ScopeMonthlyClass || s == ScopeMonthlyOverall
}

const anyGrade = -1

type bucketKey struct {
	month string
	class EventClassKey
}

func (s Scope) bucketOf(src Source) bucketKey {
	switch s {
	case ScopeMonthlyOverall:
		class := src.Class
		class.Grade = anyGrade
		return bucketKey{month: monthKey(src.HeldOn), class: class}
	case ScopeAllTimeClass:
		return bucketKey{class: src.Class}
	default:
		return bucketKey{month: monthKey(src.HeldOn), class: src.Class}
	}
}

// Stat is a rank with its bucket size. TopPercent is
// ceil(Rank*100/Total), so 1 of 3 is 34 and 2 of 3 is 67.
type Stat struct {
	Rank       int `json:"rank"`
	Total      int `json:"total"`
	TopPercent int `json:"topPercent"`
}

// TopPercent computes ceil(rank*100/total) in integer arithmetic.
func TopPercent(rank, total int) int {
	if total <= 0 || rank <= 0 {
		return 0
	}
	p := (rank*100 + total - 1) / total
	return min(p, 100)
}

// Ranks ranks sources within each bucket of scope. In monthly scopes a
// repeat swim by the same athlete in the same bucket is dropped in favour
// of the athlete's fastest (ties: earlier date, then lower id); dropped
// ids get no rank.
func Ranks(scope Scope, sources []Source) (map[string]int, error) {
	stats, err := Stats(scope, sources)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(stats))
	for id, st := range stats {
		out[id] = st.Rank
	}
	return out, nil
}

// Stats is Ranks with bucket totals. Dropped repeat swims do not count
// towards Total.
func Stats(scope Scope, sources []Source) (map[string]Stat, error) {
	if err := checkUnique(sources); err != nil {
		return nil, err
	}

	buckets := make(map[bucketKey][]Source)
	order := make([]bucketKey, 0)
	for _, src := range sources {
		k := scope.bucketOf(src)
		if _, ok := buckets[k]; !ok {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], src)
	}

	out := make(map[string]Stat, len(sources))
	for _, k := range order {
		members := buckets[k]
		if scope.collapses() {
			members = bestPerAthlete(members)
		}
		entries := make([]Entry, len(members))
		for i, m := range members {
			entries[i] = Entry{ID: m.ID, TimeMs: m.TimeMs}
		}
		ranks, err := AssignDense(entries)
		if err != nil {
			return nil, err
		}
		total := len(entries)
		for id, r := range ranks {
			out[id] = Stat{Rank: r, Total: total, TopPercent: TopPercent(r, total)}
		}
	}
	return out, nil
}

// MonthlyClass ranks within (month, event class).
func MonthlyClass(sources []Source) (map[string]int, error) {
	return Ranks(ScopeMonthlyClass, sources)
}

// MonthlyOverall ranks within (month, event base, style, gender) across grades.
func MonthlyOverall(sources []Source) (map[string]int, error) {
	return Ranks(ScopeMonthlyOverall, sources)
}

// AllTimeClass ranks within the event class over all dates.
func AllTimeClass(sources []Source) (map[string]int, error) {
	return Ranks(ScopeAllTimeClass, sources)
}

// AllTimeClassStatsUpTo ranks every target against the pool rows of its
// class dated on or before the target's own HeldOn, giving the rank the
// target held when it was swum. A target missing from pool competes as
// part of its own pool.
func AllTimeClassStatsUpTo(targets, pool []Source) (map[string]Stat, error) {
	if err := checkUnique(pool); err != nil {
		return nil, err
	}

	byClass := make(map[EventClassKey][]Source)
	inPool := make(map[string]struct{}, len(pool))
	for _, src := range pool {
		byClass[src.Class] = append(byClass[src.Class], src)
		inPool[src.ID] = struct{}{}
	}

	out := make(map[string]Stat, len(targets))
	for _, target := range targets {
		candidates := make([]Entry, 0, len(byClass[target.Class])+1)
		for _, src := range byClass[target.Class] {
			if !src.HeldOn.After(target.HeldOn) {
				candidates = append(candidates, Entry{ID: src.ID, TimeMs: src.TimeMs})
			}
		}
		if _, ok := inPool[target.ID]; !ok {
			candidates = append(candidates, Entry{ID: target.ID, TimeMs: target.TimeMs})
		}
		ranks, err := AssignDense(candidates)
		if err != nil {
			return nil, err
		}
		r := ranks[target.ID]
		out[target.ID] = Stat{Rank: r, Total: len(candidates), TopPercent: TopPercent(r, len(candidates))}
	}
	return out, nil
}

func bestPerAthlete(members []Source) []Source {
	best := make(map[string]int, len(members))
	kept := make([]Source, 0, len(members))
	for _, m := range members {
		if m.Athlete == "" {
			kept = append(kept, m)
			continue
		}
		idx, seen := best[m.Athlete]
		if !seen {
			best[m.Athlete] = len(kept)
			kept = append(kept, m)
			continue
		}
		if faster(m, kept[idx]) {
			kept[idx] = m
		}
	}
	return kept
}

func faster(a, b Source) bool {
	if c := cmp.Compare(a.TimeMs, b.TimeMs); c != 0 {
		return c < 0
	}
	if !a.HeldOn.Equal(b.HeldOn) {
		return a.HeldOn.Before(b.HeldOn)
	}
	return a.ID < b.ID
}

func checkUnique(sources []Source) error {
	ids := make([]string, len(sources))
	for i, s := range sources {
		ids[i] = s.ID
	}
	slices.Sort(ids)
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			return fmt.Errorf("%w: %q", ErrDuplicateID, ids[i])
		}
	}
	return nil
}
