package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrolledStudent(t *testing.T) {
	alice := EnrolledStudent{ID: 1, Name: "Alice", Subjects: []EnrolledSubject{
		{Subject: "Math", GradeLevel: "10"},
		{Subject: "Physics", GradeLevel: "10", Stream: "science"},
	}}
	bob := EnrolledStudent{ID: 2, Name: "Bob"}

	assert.True(t, alice.IsEnrolledIn("math "))
	assert.False(t, alice.IsEnrolledIn("History"))
	assert.False(t, bob.IsEnrolledIn("Math"))

	assert.Nil(t, bob.Subjects)
	assert.Equal(t, []EnrolledSubject{}, bob.Normalize().Subjects)
	assert.Equal(t, Student{ID: 1, Name: "Alice"}, alice.Ref())

	students := []EnrolledStudent{alice, bob, {ID: 3, Name: "Carol", Subjects: []EnrolledSubject{{Subject: "MATH"}, {Subject: "Art"}}}}

	got, ok := FindStudent(students, 2)
	assert.True(t, ok)
	assert.Equal(t, "Bob", got.Name)
	_, ok = FindStudent(students, 9)
	assert.False(t, ok)

	assert.Equal(t, []string{"Math", "Physics", "Art"}, SubjectsOf(students))
}
