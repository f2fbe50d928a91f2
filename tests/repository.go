package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core/grade"
)

// RunRepositoryTests runs the behaviour every grade.Repository must share against fresh repositories from newRepo.
func RunRepositoryTests(t *testing.T, newRepo func(t *testing.T) grade.Repository) {
	t0 := time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("students", func(t *testing.T) {
		repo := newRepo(t)
		alice := CreateStudent(t, repo, "Alice", "Math", "Physics")
		bob := CreateStudent(t, repo, "Bob")

		assert.NotZero(t, alice.ID)
		assert.NotEqual(t, alice.ID, bob.ID)
		assert.NotNil(t, bob.Subjects)

		students, err := repo.QueryStudents(bgCtx())
		require.NoError(t, err)
		require.Len(t, students, 2)
		assert.Equal(t, alice, students[0])
		assert.Equal(t, bob, students[1])

		got, err := repo.GetStudent(bgCtx(), alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Math", "Physics"}, []string{got.Subjects[0].Subject, got.Subjects[1].Subject})

		alice.Subjects = append(alice.Subjects, grade.EnrolledSubject{Subject: "Chemistry", GradeLevel: "11", Stream: "science"})
		saved, err := repo.SaveStudent(bgCtx(), alice)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, saved.ID)
		got, err = repo.GetStudent(bgCtx(), alice.ID)
		require.NoError(t, err)
		require.Len(t, got.Subjects, 3)
		assert.Equal(t, "science", got.Subjects[2].Stream)

		_, err = repo.GetStudent(bgCtx(), 9999)
		assert.True(t, errors.Is(err, grade.ErrStudentNotFound))
		_, err = repo.SaveStudent(bgCtx(), grade.EnrolledStudent{ID: 9999, Name: "Ghost"})
		assert.True(t, errors.Is(err, grade.ErrStudentNotFound))
	})

	t.Run("grades", func(t *testing.T) {
		repo := newRepo(t)
		alice := CreateStudent(t, repo, "Alice", "Math", "Physics")
		bob := CreateStudent(t, repo, "Bob", "Math")

		g3 := CreateGrade(t, repo, bob, "Math", grade.ExamFinal, 40, 50, "", t0.Add(2*time.Hour))
		g1 := CreateGrade(t, repo, alice, "Math", grade.AssignmentHomework, 8, 10, "good", t0)
		g2 := CreateGrade(t, repo, alice, "Physics", grade.AssignmentLab, 15, 20, "", t0.Add(time.Hour))

		assert.Equal(t, "Alice", g1.Student.Name)
		assert.NotEqual(t, g1.ID, g2.ID)

		tests := []struct {
			name   string
			filter grade.QueryFilter
			want   []grade.Grade
		}{
			{name: "all, ordered by graded at", filter: grade.QueryFilter{}, want: []grade.Grade{g1, g2, g3}},
			{name: "by subject", filter: grade.QueryFilter{Subject: "Math"}, want: []grade.Grade{g1, g3}},
			{name: "by student", filter: grade.QueryFilter{StudentID: alice.ID}, want: []grade.Grade{g1, g2}},
			{name: "by exam type", filter: grade.QueryFilter{ExamType: grade.ExamFinal}, want: []grade.Grade{g3}},
			{
				name:   "combined",
				filter: grade.QueryFilter{Subject: "Math", AssignmentType: grade.AssignmentHomework},
				want:   []grade.Grade{g1},
			},
			{name: "no match", filter: grade.QueryFilter{Subject: "Art"}, want: []grade.Grade{}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				got, err := repo.QueryGrades(bgCtx(), tc.filter)
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			})
		}

		got, err := repo.GetGrade(bgCtx(), g2.ID)
		require.NoError(t, err)
		assert.Equal(t, g2, got)

		// only score, max score and feedback are saved
		patched := g1
		patched.Score = 9
		patched.MaxScore = 12
		patched.Feedback = "better"
		patched.Subject = "Physics"
		updated, err := repo.UpdateGrade(bgCtx(), patched)
		require.NoError(t, err)
		assert.Equal(t, 9.0, updated.Score)
		assert.Equal(t, 12.0, updated.MaxScore)
		assert.Equal(t, "better", updated.Feedback)
		assert.Equal(t, "Math", updated.Subject)

		require.NoError(t, repo.DeleteGrade(bgCtx(), g3.ID))
		_, err = repo.GetGrade(bgCtx(), g3.ID)
		assert.True(t, errors.Is(err, grade.ErrNotFound))
		assert.True(t, errors.Is(repo.DeleteGrade(bgCtx(), g3.ID), grade.ErrNotFound))
		_, err = repo.UpdateGrade(bgCtx(), g3)
		assert.True(t, errors.Is(err, grade.ErrNotFound))
	})
}
