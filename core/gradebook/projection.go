package gradebook

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

const DefaultLocale = "en"

// LocalFilter narrows down the cached grades without a server round-trip.
// Zero fields match everything.
type LocalFilter struct {
	StudentID int
	Type      string // assignment or exam type
	Search    string // case-insensitive, over student name and feedback
}

func (f LocalFilter) IsZero() bool {
	return f.StudentID == 0 && f.Type == "" && strings.TrimSpace(f.Search) == ""
}

type SortKey string

const (
	SortNone         SortKey = ""
	SortByName       SortKey = "name"
	SortByPercentage SortKey = "percentage"
	SortByScore      SortKey = "score"
	SortByDate       SortKey = "date"
)

var SortKeys = []SortKey{SortByName, SortByPercentage, SortByScore, SortByDate}

// Sort orders grades by Key in its natural order: names A to Z, numbers highest first, newest first.
// Reverse flips it.
type Sort struct {
	Key     SortKey
	Reverse bool
	Locale  string // BCP 47 tag used to collate names; DefaultLocale when empty
}

// ApplyLocalFilters returns the grades matching f, in their original order.
// grades is never modified.
func ApplyLocalFilters(grades []grade.Grade, f LocalFilter) []grade.Grade {
	search := strings.TrimSpace(f.Search)
	res := make([]grade.Grade, 0, len(grades))
	for _, g := range grades {
		if f.StudentID != 0 && g.Student.ID != f.StudentID {
			continue
		}
		if f.Type != "" && g.Type() != f.Type {
			continue
		}
		if search != "" && !core.ContainsFold(g.Student.Name, search) && !core.ContainsFold(g.Feedback, search) {
			continue
		}
		res = append(res, g)
	}
	return res
}

// SortGrades returns a sorted copy of grades. Equal elements keep their relative order.
func SortGrades(grades []grade.Grade, s Sort) []grade.Grade {
	res := make([]grade.Grade, len(grades))
	copy(res, grades)

	var less func(a, b grade.Grade) bool
	switch s.Key {
	case SortByName:
		locale := s.Locale
		if locale == "" {
			locale = DefaultLocale
		}
		// collators are not safe for concurrent use
		coll := collate.New(language.Make(locale))
		less = func(a, b grade.Grade) bool { return coll.CompareString(a.Student.Name, b.Student.Name) < 0 }
	case SortByPercentage:
		less = func(a, b grade.Grade) bool { return a.Percentage() > b.Percentage() }
	case SortByScore:
		less = func(a, b grade.Grade) bool { return a.Score > b.Score }
	case SortByDate:
		less = func(a, b grade.Grade) bool { return a.GradedAt.After(b.GradedAt) }
	default:
		return res
	}

	sort.SliceStable(res, func(i, j int) bool {
		if s.Reverse {
			return less(res[j], res[i])
		}
		return less(res[i], res[j])
	})
	return res
}

// Project derives the displayed grades: filtered, then sorted.
func Project(grades []grade.Grade, f LocalFilter, s Sort) []grade.Grade {
	return SortGrades(ApplyLocalFilters(grades, f), s)
}

// OptimisticUpdate returns a copy of grades with the record matching id patched with ug.
// The percentage, being derived, follows the patched score and max score.
func OptimisticUpdate(grades []grade.Grade, id int, ug grade.UpdateGrade) []grade.Grade {
	res := make([]grade.Grade, len(grades))
	for i, g := range grades {
		if g.ID == id {
			g = ug.Apply(g)
		}
		res[i] = g
	}
	return res
}

// RemoveLocal returns a copy of grades without the record matching id.
func RemoveLocal(grades []grade.Grade, id int) []grade.Grade {
	res := make([]grade.Grade, 0, len(grades))
	for _, g := range grades {
		if g.ID != id {
			res = append(res, g)
		}
	}
	return res
}

// ParseSortKey accepts the SortKeys values; anything else is SortNone.
func ParseSortKey(s string) SortKey {
	s = core.CleanString(s, true /* lower */)
	for _, key := range SortKeys {
		if string(key) == s {
			return key
		}
	}
	return SortNone
}
