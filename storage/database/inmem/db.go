package inmemdb

import (
	"sync"

	"github.com/trezcool/gradebook/core/grade"
)

type (
	DB struct {
		grades   *gradeTable
		students *studentTable
	}

	gradeTable struct {
		mutex   sync.RWMutex
		table   map[int]*grade.Grade
		pkCount int
	}

	studentTable struct {
		mutex   sync.RWMutex
		table   map[int]*grade.EnrolledStudent
		pkCount int
	}
)

func Open() (*DB, error) {
	db := &DB{
		grades:   &gradeTable{table: make(map[int]*grade.Grade)},
		students: &studentTable{table: make(map[int]*grade.EnrolledStudent)},
	}
	return db, nil
}
