// Package boltdb is a single file grade.Repository backed by bbolt.
package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/trezcool/gradebook/core/grade"
)

const (
	bGrades   = "grades"
	bStudents = "students"

	defaultTO = 2 * time.Second
)

type (
	// Store is a bbolt backed implementation of grade.Repository.
	Store struct {
		db *bolt.DB
	}

	gradeRecord struct {
		ID             int       `json:"id"`
		StudentID      int       `json:"student_id"`
		Subject        string    `json:"subject"`
		AssignmentType string    `json:"assignment_type,omitempty"`
		ExamType       string    `json:"exam_type,omitempty"`
		Score          float64   `json:"score"`
		MaxScore       float64   `json:"max_score"`
		Feedback       string    `json:"feedback"`
		GradedAt       time.Time `json:"graded_at"`
	}
)

var _ grade.Repository = (*Store)(nil)

// Open opens (or creates) a bbolt database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating db dir")
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: defaultTO})
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt db")
	}

	s := &Store{db: db}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bGrades, bStudents} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating buckets")
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) QueryGrades(ctx context.Context, filter grade.QueryFilter) ([]grade.Grade, error) {
	grades := make([]grade.Grade, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		names := studentNames(tx)
		return tx.Bucket([]byte(bGrades)).ForEach(func(_, raw []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec gradeRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return errors.Wrap(err, "decoding grade")
			}
			if g := rec.unboil(names); filter.Match(g) {
				grades = append(grades, g)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(grades, func(i, j int) bool {
		if grades[i].GradedAt.Equal(grades[j].GradedAt) {
			return grades[i].ID < grades[j].ID
		}
		return grades[i].GradedAt.Before(grades[j].GradedAt)
	})
	return grades, nil
}

func (s *Store) GetGrade(_ context.Context, id int) (grade.Grade, error) {
	var grd grade.Grade
	err := s.db.View(func(tx *bolt.Tx) error {
		rec, err := getGrade(tx, id)
		if err != nil {
			return err
		}
		grd = rec.unboil(studentNames(tx))
		return nil
	})
	return grd, err
}

func (s *Store) CreateGrade(_ context.Context, grd grade.Grade) (grade.Grade, error) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bGrades))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		grd.ID = int(seq)
		return putJSON(b, grd.ID, boil(grd))
	})
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "creating grade")
	}
	return grd, nil
}

func (s *Store) UpdateGrade(_ context.Context, grd grade.Grade) (grade.Grade, error) {
	var saved grade.Grade
	err := s.db.Update(func(tx *bolt.Tx) error {
		rec, err := getGrade(tx, grd.ID)
		if err != nil {
			return err
		}
		// only save mutable fields
		rec.Score = grd.Score
		rec.MaxScore = grd.MaxScore
		rec.Feedback = grd.Feedback
		if err = putJSON(tx.Bucket([]byte(bGrades)), rec.ID, rec); err != nil {
			return err
		}
		saved = rec.unboil(studentNames(tx))
		return nil
	})
	return saved, err
}

func (s *Store) DeleteGrade(_ context.Context, id int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bGrades))
		if b.Get(itob(id)) == nil {
			return grade.ErrNotFound
		}
		return b.Delete(itob(id))
	})
}

func (s *Store) QueryStudents(_ context.Context) ([]grade.EnrolledStudent, error) {
	students := make([]grade.EnrolledStudent, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		// big-endian keys iterate in id order
		return tx.Bucket([]byte(bStudents)).ForEach(func(_, raw []byte) error {
			var st grade.EnrolledStudent
			if err := json.Unmarshal(raw, &st); err != nil {
				return errors.Wrap(err, "decoding student")
			}
			students = append(students, st.Normalize())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (s *Store) GetStudent(_ context.Context, id int) (grade.EnrolledStudent, error) {
	var st grade.EnrolledStudent
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bStudents)).Get(itob(id))
		if raw == nil {
			return grade.ErrStudentNotFound
		}
		return json.Unmarshal(raw, &st)
	})
	return st.Normalize(), err
}

func (s *Store) SaveStudent(_ context.Context, student grade.EnrolledStudent) (grade.EnrolledStudent, error) {
	student = student.Normalize()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bStudents))
		if student.ID == 0 {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			student.ID = int(seq)
		} else if b.Get(itob(student.ID)) == nil {
			return grade.ErrStudentNotFound
		}
		return putJSON(b, student.ID, student)
	})
	if err != nil {
		return grade.EnrolledStudent{}, err
	}
	return student, nil
}

func boil(g grade.Grade) gradeRecord {
	return gradeRecord{
		ID:             g.ID,
		StudentID:      g.Student.ID,
		Subject:        g.Subject,
		AssignmentType: g.AssignmentType,
		ExamType:       g.ExamType,
		Score:          g.Score,
		MaxScore:       g.MaxScore,
		Feedback:       g.Feedback,
		GradedAt:       g.GradedAt.UTC(),
	}
}

func (rec gradeRecord) unboil(names map[int]string) grade.Grade {
	return grade.Grade{
		ID:             rec.ID,
		Student:        grade.Student{ID: rec.StudentID, Name: names[rec.StudentID]},
		Subject:        rec.Subject,
		AssignmentType: rec.AssignmentType,
		ExamType:       rec.ExamType,
		Score:          rec.Score,
		MaxScore:       rec.MaxScore,
		Feedback:       rec.Feedback,
		GradedAt:       rec.GradedAt.UTC(),
	}
}

func getGrade(tx *bolt.Tx, id int) (gradeRecord, error) {
	var rec gradeRecord
	raw := tx.Bucket([]byte(bGrades)).Get(itob(id))
	if raw == nil {
		return rec, grade.ErrNotFound
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, errors.Wrap(err, "decoding grade")
	}
	return rec, nil
}

func studentNames(tx *bolt.Tx) map[int]string {
	names := make(map[int]string)
	_ = tx.Bucket([]byte(bStudents)).ForEach(func(k, raw []byte) error {
		var st grade.EnrolledStudent
		if err := json.Unmarshal(raw, &st); err == nil {
			names[btoi(k)] = st.Name
		}
		return nil
	})
	return names
}

func putJSON(b *bolt.Bucket, id int, v interface{}) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(itob(id), val)
}

func itob(id int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(id))
	return k
}

func btoi(k []byte) int {
	if len(k) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(k))
}
