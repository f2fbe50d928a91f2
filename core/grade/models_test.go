package grade

import (
	"encoding/json"
	"math"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/gradebook/core"
)

func newValidate() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

func fPtr(f float64) *float64 { return &f }
func sPtr(s string) *string   { return &s }

func TestGrade_Percentage(t *testing.T) {
	tests := []struct {
		name string
		grd  Grade
		want float64
	}{
		{name: "full marks", grd: Grade{Score: 100, MaxScore: 100}, want: 100},
		{name: "partial", grd: Grade{Score: 80, MaxScore: 100}, want: 80},
		{name: "fraction", grd: Grade{Score: 7, MaxScore: 20}, want: 35},
		{name: "zero score", grd: Grade{Score: 0, MaxScore: 50}, want: 0},
		{name: "invalid max score", grd: Grade{Score: 5, MaxScore: 0}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.grd.Percentage(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Percentage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGrade_IsWellFormed(t *testing.T) {
	tests := []struct {
		name string
		grd  Grade
		want bool
	}{
		{name: "assignment", grd: Grade{Score: 8, MaxScore: 10, AssignmentType: AssignmentQuiz}, want: true},
		{name: "exam", grd: Grade{Score: 10, MaxScore: 10, ExamType: ExamFinal}, want: true},
		{name: "both tags", grd: Grade{Score: 8, MaxScore: 10, AssignmentType: AssignmentQuiz, ExamType: ExamFinal}},
		{name: "no tag", grd: Grade{Score: 8, MaxScore: 10}},
		{name: "score above max", grd: Grade{Score: 11, MaxScore: 10, ExamType: ExamFinal}},
		{name: "negative score", grd: Grade{Score: -1, MaxScore: 10, ExamType: ExamFinal}},
		{name: "zero max", grd: Grade{Score: 0, MaxScore: 0, ExamType: ExamFinal}},
		{name: "NaN score", grd: Grade{Score: math.NaN(), MaxScore: 10, ExamType: ExamFinal}},
		{name: "infinite scores", grd: Grade{Score: math.Inf(1), MaxScore: math.Inf(1), ExamType: ExamFinal}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.grd.IsWellFormed(); got != tt.want {
				t.Errorf("IsWellFormed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGrade_MarshalJSON(t *testing.T) {
	grd := Grade{ID: 3, Student: Student{ID: 1, Name: "Alice"}, Subject: "Math", ExamType: ExamMidterm, Score: 45, MaxScore: 50}
	data, err := json.Marshal(grd)
	if err != nil {
		t.Fatalf("json.Marshal() failed: %v", err)
	}
	var got map[string]interface{}
	if err = json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	assert.Equal(t, 90.0, got["percentage"])
	assert.Equal(t, "midterm", got["exam_type"])
	assert.NotContains(t, got, "assignment_type")

	// an incoming percentage never overrides score/max_score
	var decoded Grade
	if err = json.Unmarshal([]byte(`{"id":3,"score":45,"max_score":50,"percentage":12}`), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v", err)
	}
	assert.Equal(t, 90.0, decoded.Percentage())
}

func TestNewGrade_Validate(t *testing.T) {
	validate, translator := newValidate()

	valid := func() NewGrade {
		return NewGrade{
			StudentID:      1,
			Subject:        " Math ",
			AssignmentType: " Quiz",
			Score:          fPtr(8),
			MaxScore:       10,
			Feedback:       " good ",
		}
	}

	tests := []struct {
		name       string
		ng         func() NewGrade
		wantFields map[string]string
	}{
		{name: "valid", ng: valid},
		{
			name: "score above max score",
			ng: func() NewGrade {
				ng := valid()
				ng.Score = fPtr(150)
				ng.MaxScore = 100
				return ng
			},
			wantFields: map[string]string{"score": scoreRangeText},
		},
		{
			name: "negative score",
			ng: func() NewGrade {
				ng := valid()
				ng.Score = fPtr(-1)
				return ng
			},
			wantFields: map[string]string{"score": scoreRangeText},
		},
		{
			name: "zero score",
			ng: func() NewGrade {
				ng := valid()
				ng.Score = fPtr(0)
				return ng
			},
		},
		{
			name: "missing score",
			ng: func() NewGrade {
				ng := valid()
				ng.Score = nil
				return ng
			},
			wantFields: map[string]string{"score": "this field is required"},
		},
		{
			name: "zero max score",
			ng: func() NewGrade {
				ng := valid()
				ng.Score = fPtr(0)
				ng.MaxScore = 0
				return ng
			},
			wantFields: map[string]string{"max_score": "max_score must be greater than 0"},
		},
		{
			name: "NaN score",
			ng: func() NewGrade {
				ng := valid()
				ng.Score = fPtr(math.NaN())
				return ng
			},
			wantFields: map[string]string{"score": scoreRangeText},
		},
		{
			name: "infinite score",
			ng: func() NewGrade {
				ng := valid()
				ng.Score = fPtr(math.Inf(1))
				return ng
			},
			wantFields: map[string]string{"score": scoreRangeText},
		},
		{
			name: "infinite score and max score",
			ng: func() NewGrade {
				ng := valid()
				ng.Score = fPtr(math.Inf(1))
				ng.MaxScore = math.Inf(1)
				return ng
			},
			wantFields: map[string]string{
				"max_score": maxScoreFiniteText,
				"score":     scoreRangeText,
			},
		},
		{
			name: "NaN max score",
			ng: func() NewGrade {
				ng := valid()
				ng.MaxScore = math.NaN()
				return ng
			},
			wantFields: map[string]string{"max_score": "max_score must be greater than 0"},
		},
		{
			name: "blank subject",
			ng: func() NewGrade {
				ng := valid()
				ng.Subject = "   "
				return ng
			},
			wantFields: map[string]string{"subject": "this field is required"},
		},
		{
			name: "no student",
			ng: func() NewGrade {
				ng := valid()
				ng.StudentID = 0
				return ng
			},
			wantFields: map[string]string{"student_id": "this field is required"},
		},
		{
			name: "both classifications",
			ng: func() NewGrade {
				ng := valid()
				ng.ExamType = ExamFinal
				return ng
			},
			wantFields: map[string]string{
				"assignment_type": oneClassificationText,
				"exam_type":       oneClassificationText,
			},
		},
		{
			name: "no classification",
			ng: func() NewGrade {
				ng := valid()
				ng.AssignmentType = ""
				return ng
			},
			wantFields: map[string]string{
				"assignment_type": oneClassificationText,
				"exam_type":       oneClassificationText,
			},
		},
		{
			name: "unknown exam type",
			ng: func() NewGrade {
				ng := valid()
				ng.AssignmentType = ""
				ng.ExamType = "oral"
				return ng
			},
			wantFields: map[string]string{"exam_type": examTypeText},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ng := tt.ng()
			err := core.TranslateValidation(ng.Validate(validate), translator)
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				assert.Equal(t, "Math", ng.Subject)
				assert.Equal(t, AssignmentQuiz, ng.AssignmentType)
				assert.Equal(t, "good", ng.Feedback)
				return
			}
			vErr, ok := err.(*core.ValidationError)
			if !ok {
				t.Fatalf("Validate() error = %v, want *core.ValidationError", err)
			}
			assert.Equal(t, tt.wantFields, vErr.FieldMap())
		})
	}
}

func TestUpdateGrade_Validate(t *testing.T) {
	orig := Grade{ID: 1, Score: 80, MaxScore: 100, ExamType: ExamMidterm, Feedback: "ok"}

	tests := []struct {
		name       string
		ug         UpdateGrade
		wantErr    bool
		wantFields map[string]string
	}{
		{name: "empty", ug: UpdateGrade{}, wantErr: true},
		{name: "feedback only", ug: UpdateGrade{Feedback: sPtr(" great ")}},
		{name: "score within bounds", ug: UpdateGrade{Score: fPtr(95)}},
		{name: "score equals max", ug: UpdateGrade{Score: fPtr(100)}},
		{
			name:       "score above existing max",
			ug:         UpdateGrade{Score: fPtr(120)},
			wantErr:    true,
			wantFields: map[string]string{"score": scoreRangeText},
		},
		{name: "score and larger max", ug: UpdateGrade{Score: fPtr(120), MaxScore: fPtr(150)}},
		{
			name:       "max below existing score",
			ug:         UpdateGrade{MaxScore: fPtr(50)},
			wantErr:    true,
			wantFields: map[string]string{"score": scoreRangeText},
		},
		{
			name:    "zero max",
			ug:      UpdateGrade{Score: fPtr(0), MaxScore: fPtr(0)},
			wantErr: true,
			wantFields: map[string]string{
				"max_score": maxScoreText,
			},
		},
		{
			name:       "negative score",
			ug:         UpdateGrade{Score: fPtr(-5)},
			wantErr:    true,
			wantFields: map[string]string{"score": scoreRangeText},
		},
		{
			name:       "NaN score",
			ug:         UpdateGrade{Score: fPtr(math.NaN())},
			wantErr:    true,
			wantFields: map[string]string{"score": scoreRangeText},
		},
		{
			name:       "infinite score",
			ug:         UpdateGrade{Score: fPtr(math.Inf(1))},
			wantErr:    true,
			wantFields: map[string]string{"score": scoreRangeText},
		},
		{
			name:       "infinite max",
			ug:         UpdateGrade{MaxScore: fPtr(math.Inf(1))},
			wantErr:    true,
			wantFields: map[string]string{"max_score": maxScoreFiniteText},
		},
		{
			name:       "NaN max",
			ug:         UpdateGrade{MaxScore: fPtr(math.NaN())},
			wantErr:    true,
			wantFields: map[string]string{"max_score": maxScoreText},
		},
		{
			name:    "infinite score and max",
			ug:      UpdateGrade{Score: fPtr(math.Inf(1)), MaxScore: fPtr(math.Inf(1))},
			wantErr: true,
			wantFields: map[string]string{
				"max_score": maxScoreFiniteText,
				"score":     scoreRangeText,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ug.Validate(orig)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			if !core.IsValidation(err) {
				t.Errorf("Validate() error = %v, want a validation error", err)
			}
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, err.(*core.ValidationError).FieldMap())
			}
		})
	}

	ug := UpdateGrade{Feedback: sPtr("  trimmed  ")}
	_ = ug.Validate(orig)
	assert.Equal(t, "trimmed", *ug.Feedback)
}

func TestUpdateGrade_Apply(t *testing.T) {
	orig := Grade{ID: 1, Score: 80, MaxScore: 100, ExamType: ExamMidterm, Feedback: "ok"}
	got := UpdateGrade{Score: fPtr(95)}.Apply(orig)

	assert.Equal(t, 95.0, got.Score)
	assert.Equal(t, 95.0, got.Percentage())
	assert.Equal(t, "ok", got.Feedback)
	assert.Equal(t, 80.0, orig.Score, "Apply() must not modify its input")
}

func TestQueryFilter_Match(t *testing.T) {
	grd := Grade{Student: Student{ID: 2, Name: "Bob"}, Subject: "Math", AssignmentType: AssignmentHomework}

	tests := []struct {
		name   string
		filter QueryFilter
		want   bool
	}{
		{name: "empty", filter: QueryFilter{}, want: true},
		{name: "subject", filter: QueryFilter{Subject: "Math"}, want: true},
		{name: "other subject", filter: QueryFilter{Subject: "Physics"}},
		{name: "student", filter: QueryFilter{Subject: "Math", StudentID: 2}, want: true},
		{name: "other student", filter: QueryFilter{StudentID: 3}},
		{name: "assignment type", filter: QueryFilter{AssignmentType: AssignmentHomework}, want: true},
		{name: "exam type", filter: QueryFilter{ExamType: ExamFinal}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(grd); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}
