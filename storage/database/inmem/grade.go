package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/gradebook/core/grade"
)

type gradeRepository struct {
	grades   *gradeTable
	students *studentTable
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{grades: db.grades, students: db.students}
}

func (repo *gradeRepository) QueryGrades(_ context.Context, filter grade.QueryFilter) ([]grade.Grade, error) {
	repo.grades.mutex.RLock()
	defer repo.grades.mutex.RUnlock()

	grades := make([]grade.Grade, 0)
	for _, g := range repo.grades.table {
		if filter.Match(*g) {
			grades = append(grades, *g)
		}
	}
	sort.Slice(grades, func(i, j int) bool {
		if grades[i].GradedAt.Equal(grades[j].GradedAt) {
			return grades[i].ID < grades[j].ID
		}
		return grades[i].GradedAt.Before(grades[j].GradedAt)
	})
	return grades, nil
}

func (repo *gradeRepository) GetGrade(_ context.Context, id int) (grade.Grade, error) {
	repo.grades.mutex.RLock()
	defer repo.grades.mutex.RUnlock()

	if g, ok := repo.grades.table[id]; ok {
		return *g, nil
	}
	return grade.Grade{}, grade.ErrNotFound
}

func (repo *gradeRepository) CreateGrade(_ context.Context, grd grade.Grade) (grade.Grade, error) {
	repo.grades.mutex.Lock()
	defer repo.grades.mutex.Unlock()

	repo.grades.pkCount++
	grd.ID = repo.grades.pkCount
	repo.grades.table[grd.ID] = &grd
	return grd, nil
}

func (repo *gradeRepository) UpdateGrade(_ context.Context, grd grade.Grade) (grade.Grade, error) {
	repo.grades.mutex.Lock()
	defer repo.grades.mutex.Unlock()

	// only save mutable fields
	origGrd, ok := repo.grades.table[grd.ID]
	if !ok {
		return grade.Grade{}, grade.ErrNotFound
	}
	origGrd.Score = grd.Score
	origGrd.MaxScore = grd.MaxScore
	origGrd.Feedback = grd.Feedback
	return *origGrd, nil
}

func (repo *gradeRepository) DeleteGrade(_ context.Context, id int) error {
	repo.grades.mutex.Lock()
	defer repo.grades.mutex.Unlock()

	if _, ok := repo.grades.table[id]; !ok {
		return grade.ErrNotFound
	}
	delete(repo.grades.table, id)
	return nil
}

func (repo *gradeRepository) QueryStudents(_ context.Context) ([]grade.EnrolledStudent, error) {
	repo.students.mutex.RLock()
	defer repo.students.mutex.RUnlock()

	students := make([]grade.EnrolledStudent, 0, len(repo.students.table))
	for _, s := range repo.students.table {
		students = append(students, copyStudent(*s))
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *gradeRepository) GetStudent(_ context.Context, id int) (grade.EnrolledStudent, error) {
	repo.students.mutex.RLock()
	defer repo.students.mutex.RUnlock()

	if s, ok := repo.students.table[id]; ok {
		return copyStudent(*s), nil
	}
	return grade.EnrolledStudent{}, grade.ErrStudentNotFound
}

func (repo *gradeRepository) SaveStudent(_ context.Context, student grade.EnrolledStudent) (grade.EnrolledStudent, error) {
	repo.students.mutex.Lock()
	defer repo.students.mutex.Unlock()

	student = copyStudent(student.Normalize())
	if student.ID == 0 {
		repo.students.pkCount++
		student.ID = repo.students.pkCount
	} else if _, ok := repo.students.table[student.ID]; !ok {
		return grade.EnrolledStudent{}, grade.ErrStudentNotFound
	}
	repo.students.table[student.ID] = &student
	return copyStudent(student), nil
}

func copyStudent(s grade.EnrolledStudent) grade.EnrolledStudent {
	s.Subjects = append([]grade.EnrolledSubject{}, s.Subjects...)
	return s
}
