package report

import "strconv"

// TableRow is one printed rank line; Entry is nil for an empty slot.
type TableRow struct {
	RankLabel string        `json:"rankLabel"`
	Entry     *RankingEntry `json:"entry"`
}

// TableOptions bounds the printed ranks. Zero values default to 1..3.
type TableOptions struct {
	MinRank int
	MaxRank int
}

const (
	defaultTableMinRank = 1
	defaultTableMaxRank = 3
)

// ChallengeTableRows prints one row per rank in range. A rank with no
// entry prints an empty slot and tied entries print one row each.
func ChallengeTableRows(entries []RankingEntry, opts TableOptions) []TableRow {
	lo, hi := opts.MinRank, opts.MaxRank
	if lo <= 0 {
		lo = defaultTableMinRank
	}
	if hi <= 0 {
		hi = defaultTableMaxRank
	}

	rows := make([]TableRow, 0, hi-lo+1)
	for r := lo; r <= hi; r++ {
		label := strconv.Itoa(r) + "位"
		found := false
		for i := range entries {
			if entries[i].Rank != r {
				continue
			}
			e := entries[i]
			rows = append(rows, TableRow{RankLabel: label, Entry: &e})
			found = true
		}
		if !found {
			rows = append(rows, TableRow{RankLabel: label})
		}
	}
	return rows
}
