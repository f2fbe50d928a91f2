package grade

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/gradebook/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound        = errors.New("grade not found")
	ErrStudentNotFound = errors.New("student not found")
)

type (
	Repository interface {
		// QueryGrades applies AND operation on the set QueryFilter fields; results are ordered by GradedAt, then ID.
		QueryGrades(ctx context.Context, filter QueryFilter) ([]Grade, error)
		GetGrade(ctx context.Context, id int) (Grade, error)
		CreateGrade(ctx context.Context, grd Grade) (Grade, error)
		// UpdateGrade saves Score, MaxScore and Feedback of grd.
		UpdateGrade(ctx context.Context, grd Grade) (Grade, error)
		DeleteGrade(ctx context.Context, id int) error

		QueryStudents(ctx context.Context) ([]EnrolledStudent, error)
		GetStudent(ctx context.Context, id int) (EnrolledStudent, error)
		// SaveStudent creates the student if its ID is not set, otherwise replaces it.
		SaveStudent(ctx context.Context, student EnrolledStudent) (EnrolledStudent, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Grade, error) {
	filter.Clean()
	return svc.repo.QueryGrades(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Grade, error) {
	return svc.repo.GetGrade(ctx, id)
}

// CheckEnrolment returns a *core.ValidationError if the student does not exist or does not take subject.
func (svc *Service) CheckEnrolment(ctx context.Context, studentID int, subject string) (EnrolledStudent, error) {
	student, err := svc.repo.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, ErrStudentNotFound) {
			return EnrolledStudent{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return EnrolledStudent{}, err
	}
	if !student.IsEnrolledIn(subject) {
		return EnrolledStudent{}, core.NewValidationError(nil, core.FieldError{
			Field: "student_id",
			Error: "student is not enrolled in " + subject,
		})
	}
	return student, nil
}

// Create saves a new Grade. ng must have been validated.
func (svc *Service) Create(ctx context.Context, ng NewGrade) (Grade, error) {
	student, err := svc.CheckEnrolment(ctx, ng.StudentID, ng.Subject)
	if err != nil {
		return Grade{}, err
	}
	grd := Grade{
		Student:        student.Ref(),
		Subject:        ng.Subject,
		AssignmentType: ng.AssignmentType,
		ExamType:       ng.ExamType,
		Score:          *ng.Score,
		MaxScore:       ng.MaxScore,
		Feedback:       ng.Feedback,
		GradedAt:       NowFunc().UTC(),
	}
	return svc.repo.CreateGrade(ctx, grd)
}

// Update validates then applies ug on the Grade matching id.
func (svc *Service) Update(ctx context.Context, id int, ug UpdateGrade) (Grade, error) {
	grd, err := svc.repo.GetGrade(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	if err = ug.Validate(grd); err != nil {
		return Grade{}, err
	}
	return svc.repo.UpdateGrade(ctx, ug.Apply(grd))
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteGrade(ctx, id)
}

func (svc *Service) Students(ctx context.Context) ([]EnrolledStudent, error) {
	return svc.repo.QueryStudents(ctx)
}

func (svc *Service) AddStudent(ctx context.Context, student EnrolledStudent) (EnrolledStudent, error) {
	student.Name = core.CleanString(student.Name)
	if student.Name == "" {
		return EnrolledStudent{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}
	return svc.repo.SaveStudent(ctx, student.Normalize())
}
