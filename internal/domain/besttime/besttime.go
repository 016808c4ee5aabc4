// Package besttime picks an athlete's personal best per race.
package besttime

import (
	"cmp"
	"slices"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/rank"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

// Select keeps the fastest row per event base (normalized title plus
// distance), so the same race swum across grade promotions is compared.
// Equal times prefer the later meet, then the lower id. The result is
// ordered by title, distance, then newest meet first.
func Select(rows []model.ResultRow) []model.ResultRow {
	best := make(map[rank.EventBaseKey]int, len(rows))
	out := make([]model.ResultRow, 0, len(rows))
	for _, r := range rows {
		key := rank.NewEventBaseKey(r.EventTitle, r.DistanceM)
		idx, ok := best[key]
		if !ok {
			best[key] = len(out)
			out = append(out, r)
			continue
		}
		if replaces(out[idx], r) {
			out[idx] = r
		}
	}

	slices.SortStableFunc(out, func(a, b model.ResultRow) int {
		if c := textnorm.Compare(a.EventTitle, b.EventTitle); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DistanceM, b.DistanceM); c != 0 {
			return c
		}
		return b.HeldOn.Compare(a.HeldOn)
	})
	return out
}

func replaces(current, candidate model.ResultRow) bool {
	if candidate.TimeMs != current.TimeMs {
		return candidate.TimeMs < current.TimeMs
	}
	if !candidate.HeldOn.Equal(current.HeldOn) {
		return candidate.HeldOn.After(current.HeldOn)
	}
	return candidate.ID < current.ID
}
