package report

import (
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/grade"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
)

// ScopeLabels are the column headers of the rank-stat table.
type ScopeLabels struct {
	ProfileScopeLabel    string `json:"profileScopeLabel,omitempty"`
	MonthlyClassHeader   string `json:"monthlyClassHeader"`
	MonthlyOverallHeader string `json:"monthlyOverallHeader"`
	AllTimeClassHeader   string `json:"allTimeClassHeader"`
}

const sameClassHeader = "同学年・同性別"

// AthleteScopeLabels labels scopes for one grade, e.g. "小5女子".
func AthleteScopeLabels(g int, gender model.Gender) ScopeLabels {
	profile := grade.ShortLabel(g) + gender.Label()
	return ScopeLabels{
		ProfileScopeLabel:    profile,
		MonthlyClassHeader:   profile,
		MonthlyOverallHeader: overallHeader(gender),
		AllTimeClassHeader:   profile,
	}
}

// ChildHistoryScopeLabels labels scopes for a history spanning grades.
func ChildHistoryScopeLabels(gender model.Gender) ScopeLabels {
	return ScopeLabels{
		MonthlyClassHeader:   sameClassHeader,
		MonthlyOverallHeader: overallHeader(gender),
		AllTimeClassHeader:   sameClassHeader,
	}
}

func overallHeader(gender model.Gender) string {
	return gender.Label() + "・全学年"
}
