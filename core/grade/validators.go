package grade

import (
	"errors"
	"math"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

var (
	assignmentTypeTag  = "assignment_type"
	assignmentTypeText = "unknown assignment type"

	examTypeTag  = "exam_type"
	examTypeText = "unknown exam type"

	scoreRangeTag  = "score_range"
	scoreRangeText = "score must be between 0 and max_score"

	maxScoreText = "max_score must be greater than 0"

	finiteTag          = "finite"
	maxScoreFiniteText = "max_score must be a finite number"

	oneClassificationTag  = "one_classification"
	oneClassificationText = "exactly one of assignment_type or exam_type is required"

	errEmptyUpdate = errors.New("nothing to update")
)

// InitValidators registers the grade validators on validate. core.InitValidators must be called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(assignmentTypeTag, oneOfValidation(AssignmentTypes))
	core.RegisterCustomTranslation(validate, translator, assignmentTypeTag, assignmentTypeText)

	_ = validate.RegisterValidation(examTypeTag, oneOfValidation(ExamTypes))
	core.RegisterCustomTranslation(validate, translator, examTypeTag, examTypeText)

	validate.RegisterStructValidation(newGradeStructValidation, NewGrade{})
	core.RegisterCustomTranslation(validate, translator, scoreRangeTag, scoreRangeText)
	core.RegisterCustomTranslation(validate, translator, finiteTag, maxScoreFiniteText)
	core.RegisterCustomTranslation(validate, translator, oneClassificationTag, oneClassificationText)
}

// Custom Validators

func oneOfValidation(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, a := range allowed {
			if val == a {
				return true
			}
		}
		return false
	}
}

// newGradeStructValidation does NewGrade's struct level validation:
// - finite max_score (NaN and -Inf already fail gt=0)
// - 0 <= score <= max_score, score finite
// - exactly one of assignment_type or exam_type
func newGradeStructValidation(sl validator.StructLevel) {
	ng, ok := sl.Current().Interface().(NewGrade)
	if !ok {
		return
	}

	if math.IsInf(ng.MaxScore, 1) {
		sl.ReportError(ng.MaxScore, "max_score", "MaxScore", finiteTag, "")
	}
	if ng.Score != nil && !scoreInRange(*ng.Score, ng.MaxScore) {
		sl.ReportError(ng.Score, "score", "Score", scoreRangeTag, "")
	}

	hasAssignment := ng.AssignmentType != ""
	hasExam := ng.ExamType != ""
	if hasAssignment == hasExam {
		sl.ReportError(ng.AssignmentType, "assignment_type", "AssignmentType", oneClassificationTag, "")
		sl.ReportError(ng.ExamType, "exam_type", "ExamType", oneClassificationTag, "")
	}
}

// scoreInRange is written so that NaN fails every bound. The upper bound is only
// checked against a usable max score, which is reported on its own otherwise.
func scoreInRange(score, maxScore float64) bool {
	if !isFinite(score) || !(score >= 0) {
		return false
	}
	if !isFinite(maxScore) || !(maxScore > 0) {
		return true
	}
	return score <= maxScore
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
