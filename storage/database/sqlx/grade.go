package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core/grade"
)

type (
	gradeRow struct {
		ID             int         `db:"id"`
		StudentID      int         `db:"student_id"`
		StudentName    string      `db:"student_name"`
		Subject        string      `db:"subject"`
		AssignmentType null.String `db:"assignment_type"`
		ExamType       null.String `db:"exam_type"`
		Score          float64     `db:"score"`
		MaxScore       float64     `db:"max_score"`
		Feedback       string      `db:"feedback"`
		GradedAt       time.Time   `db:"graded_at"`
	}

	subjectRow struct {
		StudentID  int         `db:"student_id"`
		Position   int         `db:"position"`
		Subject    string      `db:"subject"`
		GradeLevel string      `db:"grade_level"`
		Stream     null.String `db:"stream"`
	}

	studentRow struct {
		ID   int    `db:"id"`
		Name string `db:"name"`
	}
)

const selectGrades = `
SELECT g.id, g.student_id, s.name AS student_name, g.subject, g.assignment_type, g.exam_type,
       g.score, g.max_score, g.feedback, g.graded_at
FROM grade g
JOIN student s ON s.id = g.student_id`

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *sqlx.DB) grade.Repository {
	return &gradeRepository{db: db}
}

func boil(g grade.Grade) gradeRow {
	return gradeRow{
		ID:             g.ID,
		StudentID:      g.Student.ID,
		StudentName:    g.Student.Name,
		Subject:        g.Subject,
		AssignmentType: null.NewString(g.AssignmentType, g.AssignmentType != ""),
		ExamType:       null.NewString(g.ExamType, g.ExamType != ""),
		Score:          g.Score,
		MaxScore:       g.MaxScore,
		Feedback:       g.Feedback,
		GradedAt:       g.GradedAt,
	}
}

func unboil(r gradeRow) grade.Grade {
	return grade.Grade{
		ID:             r.ID,
		Student:        grade.Student{ID: r.StudentID, Name: r.StudentName},
		Subject:        r.Subject,
		AssignmentType: r.AssignmentType.String,
		ExamType:       r.ExamType.String,
		Score:          r.Score,
		MaxScore:       r.MaxScore,
		Feedback:       r.Feedback,
		GradedAt:       r.GradedAt.UTC(),
	}
}

func trapNoRowsErr(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, filter grade.QueryFilter) ([]grade.Grade, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, cond+" = $"+strconv.Itoa(len(args)))
	}
	if filter.Subject != "" {
		add("g.subject", filter.Subject)
	}
	if filter.StudentID != 0 {
		add("g.student_id", filter.StudentID)
	}
	if filter.AssignmentType != "" {
		add("g.assignment_type", filter.AssignmentType)
	}
	if filter.ExamType != "" {
		add("g.exam_type", filter.ExamType)
	}

	q := selectGrades
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY g.graded_at, g.id"

	var rows []gradeRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]grade.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, unboil(r))
	}
	return grades, nil
}

func (repo *gradeRepository) GetGrade(ctx context.Context, id int) (grade.Grade, error) {
	var r gradeRow
	if err := repo.db.GetContext(ctx, &r, selectGrades+" WHERE g.id = $1", id); err != nil {
		return grade.Grade{}, trapNoRowsErr(err, grade.ErrNotFound)
	}
	return unboil(r), nil
}

func (repo *gradeRepository) CreateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	q := `
INSERT INTO grade (student_id, subject, assignment_type, exam_type, score, max_score, feedback, graded_at)
VALUES (:student_id, :subject, :assignment_type, :exam_type, :score, :max_score, :feedback, :graded_at)
RETURNING id`
	stmt, err := repo.db.PrepareNamedContext(ctx, q)
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "preparing grade insert")
	}
	defer func() { _ = stmt.Close() }()

	if err = stmt.GetContext(ctx, &grd.ID, boil(grd)); err != nil {
		return grade.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return grd, nil
}

func (repo *gradeRepository) UpdateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	// only save mutable fields
	q := `UPDATE grade SET score = :score, max_score = :max_score, feedback = :feedback WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, boil(grd))
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "updating grade")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return grade.Grade{}, grade.ErrNotFound
	}
	return repo.GetGrade(ctx, grd.ID)
}

func (repo *gradeRepository) DeleteGrade(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM grade WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return grade.ErrNotFound
	}
	return nil
}

func (repo *gradeRepository) QueryStudents(ctx context.Context) ([]grade.EnrolledStudent, error) {
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT id, name FROM student ORDER BY id"); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	var subjects []subjectRow
	q := "SELECT student_id, position, subject, grade_level, stream FROM student_subject ORDER BY student_id, position"
	if err := repo.db.SelectContext(ctx, &subjects, q); err != nil {
		return nil, errors.Wrap(err, "querying student subjects")
	}

	bySID := make(map[int][]grade.EnrolledSubject)
	for _, sr := range subjects {
		bySID[sr.StudentID] = append(bySID[sr.StudentID], unboilSubject(sr))
	}
	students := make([]grade.EnrolledStudent, 0, len(rows))
	for _, r := range rows {
		s := grade.EnrolledStudent{ID: r.ID, Name: r.Name, Subjects: bySID[r.ID]}
		students = append(students, s.Normalize())
	}
	return students, nil
}

func (repo *gradeRepository) GetStudent(ctx context.Context, id int) (grade.EnrolledStudent, error) {
	var r studentRow
	if err := repo.db.GetContext(ctx, &r, "SELECT id, name FROM student WHERE id = $1", id); err != nil {
		return grade.EnrolledStudent{}, trapNoRowsErr(err, grade.ErrStudentNotFound)
	}
	var subjects []subjectRow
	q := "SELECT student_id, position, subject, grade_level, stream FROM student_subject WHERE student_id = $1 ORDER BY position"
	if err := repo.db.SelectContext(ctx, &subjects, q, id); err != nil {
		return grade.EnrolledStudent{}, errors.Wrap(err, "querying student subjects")
	}
	s := grade.EnrolledStudent{ID: r.ID, Name: r.Name}
	for _, sr := range subjects {
		s.Subjects = append(s.Subjects, unboilSubject(sr))
	}
	return s.Normalize(), nil
}

func (repo *gradeRepository) SaveStudent(ctx context.Context, student grade.EnrolledStudent) (grade.EnrolledStudent, error) {
	student = student.Normalize()
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return grade.EnrolledStudent{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if student.ID == 0 {
		if err = tx.GetContext(ctx, &student.ID, "INSERT INTO student (name) VALUES ($1) RETURNING id", student.Name); err != nil {
			return grade.EnrolledStudent{}, errors.Wrap(err, "inserting student")
		}
	} else {
		res, err := tx.ExecContext(ctx, "UPDATE student SET name = $1 WHERE id = $2", student.Name, student.ID)
		if err != nil {
			return grade.EnrolledStudent{}, errors.Wrap(err, "updating student")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return grade.EnrolledStudent{}, grade.ErrStudentNotFound
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM student_subject WHERE student_id = $1", student.ID); err != nil {
			return grade.EnrolledStudent{}, errors.Wrap(err, "clearing student subjects")
		}
	}

	q := `
INSERT INTO student_subject (student_id, position, subject, grade_level, stream)
VALUES (:student_id, :position, :subject, :grade_level, :stream)`
	for i, es := range student.Subjects {
		sr := subjectRow{
			StudentID:  student.ID,
			Position:   i,
			Subject:    es.Subject,
			GradeLevel: es.GradeLevel,
			Stream:     null.NewString(es.Stream, es.Stream != ""),
		}
		if _, err = tx.NamedExecContext(ctx, q, sr); err != nil {
			return grade.EnrolledStudent{}, errors.Wrap(err, "inserting student subject")
		}
	}

	if err = tx.Commit(); err != nil {
		return grade.EnrolledStudent{}, errors.Wrap(err, "committing student")
	}
	return student, nil
}

func unboilSubject(sr subjectRow) grade.EnrolledSubject {
	return grade.EnrolledSubject{Subject: sr.Subject, GradeLevel: sr.GradeLevel, Stream: sr.Stream.String}
}
