// Package certificate builds the data behind printed record certificates
// and first-prize awards.
package certificate

import (
	"cmp"
	"slices"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/grade"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/meetctx"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

// MaxDisplayEntries is how many events fit on one certificate.
const MaxDisplayEntries = 6

const overflowMarker = "..."

// Issue fixes the issue month. A nil *Issue uses each row's meet month.
type Issue struct {
	Year  int
	Month int
}

func (i *Issue) label(heldOn time.Time) string {
	if i != nil {
		return meetctx.MonthLabel(time.Date(i.Year, time.Month(i.Month), 1, 0, 0, 0, 0, time.UTC))
	}
	return meetctx.MonthLabel(heldOn)
}

// AthleteInfo is the printed athlete block.
type AthleteInfo struct {
	FullName     string       `json:"fullName"`
	FullNameKana string       `json:"fullNameKana"`
	Grade        int          `json:"grade"`
	Gender       model.Gender `json:"gender"`
}

func athleteInfo(r model.ResultRow) AthleteInfo {
	kana := textnorm.CollapseSpace(r.FullNameKana)
	if kana == "" {
		kana = r.FullName
	}
	return AthleteInfo{FullName: r.FullName, FullNameKana: kana, Grade: r.Grade, Gender: r.Gender}
}

// Entry is one event line. TimeMs is zero on the overflow marker.
type Entry struct {
	EventTitle string `json:"eventTitle"`
	TimeText   string `json:"timeText"`
	TimeMs     int    `json:"timeMs,omitempty"`
}

// RecordCertificate lists an athlete's best time per event.
type RecordCertificate struct {
	Athlete    AthleteInfo `json:"athlete"`
	Entries    []Entry     `json:"entries"`
	IssueLabel string      `json:"issueLabel"`
	FileName   string      `json:"fileName"`
}

// DisplayEntries caps entries at MaxDisplayEntries and appends a "..."
// line when some were cut.
func DisplayEntries(entries []Entry) []Entry {
	if len(entries) <= MaxDisplayEntries {
		return entries
	}
	out := slices.Clone(entries[:MaxDisplayEntries])
	return append(out, Entry{EventTitle: overflowMarker, TimeText: overflowMarker})
}

// BuildRecordCertificates makes one certificate per athlete holding the
// fastest row of each event. File names are reserved in first-seen
// athlete order; certificates are returned by name, grade and issue.
func BuildRecordCertificates(rows []model.ResultRow, issue *Issue) ([]RecordCertificate, error) {
	type acc struct {
		first  model.ResultRow
		events []string
		best   map[string]model.ResultRow
	}

	index := make(map[string]int)
	athletes := make([]*acc, 0)
	for _, r := range rows {
		i, ok := index[r.AthleteID]
		if !ok {
			i = len(athletes)
			index[r.AthleteID] = i
			athletes = append(athletes, &acc{first: r, best: make(map[string]model.ResultRow)})
		}
		a := athletes[i]
		cur, seen := a.best[r.EventID]
		if !seen {
			a.events = append(a.events, r.EventID)
		}
		if !seen || r.TimeMs < cur.TimeMs {
			a.best[r.EventID] = r
		}
	}

	namer := NewNamer()
	out := make([]RecordCertificate, 0, len(athletes))
	for _, a := range athletes {
		entries := make([]Entry, 0, len(a.events))
		for _, id := range a.events {
			b := a.best[id]
			entries = append(entries, Entry{EventTitle: b.EventTitle, TimeText: b.TimeText, TimeMs: b.TimeMs})
		}
		slices.SortStableFunc(entries, func(x, y Entry) int {
			return textnorm.Compare(x.EventTitle, y.EventTitle)
		})

		label := issue.label(a.first.HeldOn)
		name, err := namer.Unique(joinFileName(SanitizePart(a.first.FullName), SanitizePart(label), "record"))
		if err != nil {
			return nil, err
		}
		out = append(out, RecordCertificate{
			Athlete:    athleteInfo(a.first),
			Entries:    DisplayEntries(entries),
			IssueLabel: label,
			FileName:   name,
		})
	}

	slices.SortStableFunc(out, func(x, y RecordCertificate) int {
		if c := textnorm.Compare(x.Athlete.FullName, y.Athlete.FullName); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Athlete.Grade, y.Athlete.Grade); c != 0 {
			return c
		}
		return textnorm.Compare(x.IssueLabel, y.IssueLabel)
	})
	return out, nil
}

// FirstPrizeAward is one award sheet; tied winners get one each.
type FirstPrizeAward struct {
	Athlete    AthleteInfo `json:"athlete"`
	EventTitle string      `json:"eventTitle"`
	TimeText   string      `json:"timeText"`
	TimeMs     int         `json:"timeMs"`
	IssueLabel string      `json:"issueLabel"`
	FileName   string      `json:"fileName"`
}

// BuildFirstPrizeAwards makes one award per row, keeping row order.
func BuildFirstPrizeAwards(rows []model.ResultRow, issue *Issue) ([]FirstPrizeAward, error) {
	namer := NewNamer()
	out := make([]FirstPrizeAward, 0, len(rows))
	for _, r := range rows {
		label := issue.label(r.HeldOn)
		base := joinFileName(
			SanitizePart(r.FullName),
			SanitizePart(r.EventTitle),
			SanitizePart(grade.Label(r.Grade)),
			SanitizePart(r.Gender.Label()),
			SanitizePart(label),
			"first_prize",
		)
		name, err := namer.Unique(base)
		if err != nil {
			return nil, err
		}
		out = append(out, FirstPrizeAward{
			Athlete:    athleteInfo(r),
			EventTitle: r.EventTitle,
			TimeText:   r.TimeText,
			TimeMs:     r.TimeMs,
			IssueLabel: label,
			FileName:   name,
		})
	}
	return out, nil
}
