package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/gradebook/core/grade"
)

func bgCtx() context.Context { return context.Background() }

// gateway operations
const (
	OpFetch    = "fetch"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpStudents = "students"
)

// FakeGateway is an in-memory grade.Gateway counting its calls.
type FakeGateway struct {
	mu       sync.Mutex
	grades   []grade.Grade
	students []grade.EnrolledStudent
	lastID   int
	calls    map[string]int
	errs     map[string]error
	hooks    map[string]func(ctx context.Context) error
}

var _ grade.Gateway = (*FakeGateway)(nil)

func NewFakeGateway(grades ...grade.Grade) *FakeGateway {
	gw := &FakeGateway{
		calls: make(map[string]int),
		errs:  make(map[string]error),
		hooks: make(map[string]func(ctx context.Context) error),
	}
	gw.SetGrades(grades...)
	return gw
}

func (gw *FakeGateway) SetGrades(grades ...grade.Grade) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	gw.grades = append([]grade.Grade{}, grades...)
	for _, g := range grades {
		if g.ID > gw.lastID {
			gw.lastID = g.ID
		}
	}
}

func (gw *FakeGateway) SetStudents(students ...grade.EnrolledStudent) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.students = append([]grade.EnrolledStudent{}, students...)
}

// Fail makes every following call of op return err; a nil err clears it.
func (gw *FakeGateway) Fail(op string, err error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.errs[op] = err
}

// Hook runs fn at the start of every call of op; a non nil error is returned by the call.
func (gw *FakeGateway) Hook(op string, fn func(ctx context.Context) error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.hooks[op] = fn
}

func (gw *FakeGateway) Calls(op string) int {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return gw.calls[op]
}

func (gw *FakeGateway) Stored() []grade.Grade {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return append([]grade.Grade{}, gw.grades...)
}

func (gw *FakeGateway) enter(ctx context.Context, op string) error {
	gw.mu.Lock()
	gw.calls[op]++
	hook, err := gw.hooks[op], gw.errs[op]
	gw.mu.Unlock()

	if hook != nil {
		if hErr := hook(ctx); hErr != nil {
			return hErr
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (gw *FakeGateway) FetchGrades(ctx context.Context, filter grade.QueryFilter) ([]grade.Grade, error) {
	if err := gw.enter(ctx, OpFetch); err != nil {
		return nil, err
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()

	res := make([]grade.Grade, 0)
	for _, g := range gw.grades {
		if filter.Match(g) {
			res = append(res, g)
		}
	}
	return res, nil
}

func (gw *FakeGateway) CreateGrade(ctx context.Context, ng grade.NewGrade) (grade.Grade, error) {
	if err := gw.enter(ctx, OpCreate); err != nil {
		return grade.Grade{}, err
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()

	student := grade.Student{ID: ng.StudentID}
	if s, ok := grade.FindStudent(gw.students, ng.StudentID); ok {
		student = s.Ref()
	}
	gw.lastID++
	grd := grade.Grade{
		ID:             gw.lastID,
		Student:        student,
		Subject:        ng.Subject,
		AssignmentType: ng.AssignmentType,
		ExamType:       ng.ExamType,
		Score:          *ng.Score,
		MaxScore:       ng.MaxScore,
		Feedback:       ng.Feedback,
		GradedAt:       time.Now().UTC(),
	}
	gw.grades = append(gw.grades, grd)
	return grd, nil
}

func (gw *FakeGateway) UpdateGrade(ctx context.Context, id int, ug grade.UpdateGrade) (grade.Grade, error) {
	if err := gw.enter(ctx, OpUpdate); err != nil {
		return grade.Grade{}, err
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()

	for i, g := range gw.grades {
		if g.ID == id {
			gw.grades[i] = ug.Apply(g)
			return gw.grades[i], nil
		}
	}
	return grade.Grade{}, grade.ErrNotFound
}

func (gw *FakeGateway) DeleteGrade(ctx context.Context, id int) error {
	if err := gw.enter(ctx, OpDelete); err != nil {
		return err
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()

	for i, g := range gw.grades {
		if g.ID == id {
			gw.grades = append(gw.grades[:i:i], gw.grades[i+1:]...)
			return nil
		}
	}
	return grade.ErrNotFound
}

func (gw *FakeGateway) FetchStudents(ctx context.Context) ([]grade.EnrolledStudent, error) {
	if err := gw.enter(ctx, OpStudents); err != nil {
		return nil, err
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return append([]grade.EnrolledStudent{}, gw.students...), nil
}
