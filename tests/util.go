package testutil

import (
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

// NewValidate returns a validator with every validator of the app registered.
func NewValidate() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	grade.InitValidators(validate, translator)
	return validate, translator
}

func FloatPtr(f float64) *float64 { return &f }
func StringPtr(s string) *string  { return &s }

// NewGrade builds a well-formed grade; typ may be an assignment or an exam type.
func NewGrade(id int, student grade.Student, subject, typ string, score, maxScore float64, feedback string) grade.Grade {
	grd := grade.Grade{
		ID:       id,
		Student:  student,
		Subject:  subject,
		Score:    score,
		MaxScore: maxScore,
		Feedback: feedback,
		GradedAt: time.Date(2021, 1, 10, 9, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
	}
	if isExamType(typ) {
		grd.ExamType = typ
	} else {
		grd.AssignmentType = typ
	}
	return grd
}

func isExamType(typ string) bool {
	for _, t := range grade.ExamTypes {
		if t == typ {
			return true
		}
	}
	return false
}

func CreateStudent(t *testing.T, repo grade.Repository, name string, subjects ...string) grade.EnrolledStudent {
	student := grade.EnrolledStudent{Name: name, Subjects: []grade.EnrolledSubject{}}
	for _, sub := range subjects {
		student.Subjects = append(student.Subjects, grade.EnrolledSubject{Subject: sub, GradeLevel: "10"})
	}
	student, err := repo.SaveStudent(bgCtx(), student)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return student
}

func CreateGrade(
	t *testing.T,
	repo grade.Repository,
	student grade.EnrolledStudent,
	subject, typ string,
	score, maxScore float64,
	feedback string,
	gradedAt ...time.Time,
) grade.Grade {
	tstamp := time.Now().UTC()
	if len(gradedAt) > 0 {
		tstamp = gradedAt[0].UTC()
	}
	grd := NewGrade(0, student.Ref(), subject, typ, score, maxScore, feedback)
	grd.GradedAt = tstamp
	grd, err := repo.CreateGrade(bgCtx(), grd)
	if err != nil {
		t.Fatalf("CreateGrade() failed: %v", err)
	}
	return grd
}
