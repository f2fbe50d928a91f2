package grade

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

// Assignment types
const (
	AssignmentHomework  = "homework"
	AssignmentClasswork = "classwork"
	AssignmentQuiz      = "quiz"
	AssignmentProject   = "project"
	AssignmentLab       = "lab"
)

// Exam types
const (
	ExamMidterm = "midterm"
	ExamFinal   = "final"
	ExamMock    = "mock"
	ExamTest    = "test"
)

var (
	AssignmentTypes = []string{AssignmentHomework, AssignmentClasswork, AssignmentQuiz, AssignmentProject, AssignmentLab}
	ExamTypes       = []string{ExamMidterm, ExamFinal, ExamMock, ExamTest}
)

type Student struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Grade is one scored assessment for one student in one subject.
type Grade struct {
	ID             int       `json:"id"`
	Student        Student   `json:"student"`
	Subject        string    `json:"subject"`
	AssignmentType string    `json:"assignment_type,omitempty"`
	ExamType       string    `json:"exam_type,omitempty"`
	Score          float64   `json:"score"`
	MaxScore       float64   `json:"max_score"`
	Feedback       string    `json:"feedback"`
	GradedAt       time.Time `json:"graded_at"` // UTC
}

// Percentage is always derived from Score and MaxScore.
func (g Grade) Percentage() float64 {
	if g.MaxScore <= 0 {
		return 0
	}
	return g.Score / g.MaxScore * 100
}

// Type returns the classification tag of the grade, whichever of AssignmentType or ExamType is set.
func (g Grade) Type() string {
	if g.AssignmentType != "" {
		return g.AssignmentType
	}
	return g.ExamType
}

// IsWellFormed checks the record invariants on data received from elsewhere.
func (g Grade) IsWellFormed() bool {
	oneTag := (g.AssignmentType == "") != (g.ExamType == "")
	return g.MaxScore > 0 && !math.IsInf(g.MaxScore, 0) && g.Score >= 0 && g.Score <= g.MaxScore && oneTag
}

func (g Grade) MarshalJSON() ([]byte, error) {
	type alias Grade
	return json.Marshal(struct {
		alias
		Percentage float64 `json:"percentage"`
	}{alias(g), g.Percentage()})
}

func (g Grade) String() string {
	return "#" + strconv.Itoa(g.ID) + " " + g.Student.Name + " " + g.Subject + "/" + g.Type()
}

// NewGrade contains information needed to create a new Grade.
type NewGrade struct {
	StudentID      int      `json:"student_id" validate:"required,gt=0"`
	Subject        string   `json:"subject" validate:"required,notblank"`
	AssignmentType string   `json:"assignment_type,omitempty" validate:"omitempty,assignment_type"`
	ExamType       string   `json:"exam_type,omitempty" validate:"omitempty,exam_type"`
	Score          *float64 `json:"score" validate:"required"`
	MaxScore       float64  `json:"max_score" validate:"gt=0"`
	Feedback       string   `json:"feedback"`
}

func (ng *NewGrade) Clean() {
	ng.Subject = core.CleanString(ng.Subject)
	ng.AssignmentType = core.CleanString(ng.AssignmentType, true /* lower */)
	ng.ExamType = core.CleanString(ng.ExamType, true /* lower */)
	ng.Feedback = core.CleanString(ng.Feedback)
}

// Validate cleans then validates the payload; score bounds and classification are checked at struct level.
func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Clean()
	return validate.Struct(ng)
}

// UpdateGrade defines what information may be provided to modify an existing Grade.
// nil fields are left untouched.
type UpdateGrade struct {
	Score    *float64 `json:"score,omitempty"`
	MaxScore *float64 `json:"max_score,omitempty"`
	Feedback *string  `json:"feedback,omitempty"`
}

func (ug UpdateGrade) IsEmpty() bool {
	return ug.Score == nil && ug.MaxScore == nil && ug.Feedback == nil
}

func (ug UpdateGrade) HasScoreFields() bool {
	return ug.Score != nil || ug.MaxScore != nil
}

// Apply returns a copy of g patched with the set fields.
func (ug UpdateGrade) Apply(g Grade) Grade {
	if ug.Score != nil {
		g.Score = *ug.Score
	}
	if ug.MaxScore != nil {
		g.MaxScore = *ug.MaxScore
	}
	if ug.Feedback != nil {
		g.Feedback = *ug.Feedback
	}
	return g
}

// Validate checks that the update is not empty and that origGrd patched with it still respects the score bounds.
func (ug *UpdateGrade) Validate(origGrd Grade) error {
	if ug.IsEmpty() {
		return core.NewValidationError(errEmptyUpdate)
	}
	if ug.Feedback != nil {
		fb := core.CleanString(*ug.Feedback)
		ug.Feedback = &fb
	}
	if !ug.HasScoreFields() {
		return nil
	}

	patched := ug.Apply(origGrd)
	var flds []core.FieldError
	switch {
	case math.IsInf(patched.MaxScore, 0):
		flds = append(flds, core.FieldError{Field: "max_score", Error: maxScoreFiniteText})
	case !(patched.MaxScore > 0):
		flds = append(flds, core.FieldError{Field: "max_score", Error: maxScoreText})
	}
	if !scoreInRange(patched.Score, patched.MaxScore) {
		flds = append(flds, core.FieldError{Field: "score", Error: scoreRangeText})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// QueryFilter holds the server side filters of a grades query.
type QueryFilter struct {
	Subject        string `query:"subject"`
	StudentID      int    `query:"student_id"`
	AssignmentType string `query:"assignment_type"`
	ExamType       string `query:"exam_type"`
}

func (qf *QueryFilter) Clean() {
	qf.Subject = core.CleanString(qf.Subject)
	qf.AssignmentType = core.CleanString(qf.AssignmentType, true /* lower */)
	qf.ExamType = core.CleanString(qf.ExamType, true /* lower */)
}

// Match reports whether g satisfies every set field of the filter.
func (qf QueryFilter) Match(g Grade) bool {
	if qf.Subject != "" && g.Subject != qf.Subject {
		return false
	}
	if qf.StudentID != 0 && g.Student.ID != qf.StudentID {
		return false
	}
	if qf.AssignmentType != "" && g.AssignmentType != qf.AssignmentType {
		return false
	}
	if qf.ExamType != "" && g.ExamType != qf.ExamType {
		return false
	}
	return true
}
