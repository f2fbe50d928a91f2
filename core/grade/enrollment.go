package grade

import "strings"

// EnrolledSubject is one subject enrolment of a student.
type EnrolledSubject struct {
	Subject    string `json:"subject"`
	GradeLevel string `json:"grade_level"`
	Stream     string `json:"stream,omitempty"`
}

// EnrolledStudent is a student visible to the current instructor.
type EnrolledStudent struct {
	ID       int               `json:"id"`
	Name     string            `json:"name"`
	Subjects []EnrolledSubject `json:"subjects"` // never nil
}

// Normalize makes sure Subjects is never nil.
func (s EnrolledStudent) Normalize() EnrolledStudent {
	if s.Subjects == nil {
		s.Subjects = []EnrolledSubject{}
	}
	return s
}

// IsEnrolledIn reports whether the student takes subject (case-insensitive).
func (s EnrolledStudent) IsEnrolledIn(subject string) bool {
	subject = strings.TrimSpace(subject)
	for _, es := range s.Subjects {
		if strings.EqualFold(es.Subject, subject) {
			return true
		}
	}
	return false
}

func (s EnrolledStudent) Ref() Student {
	return Student{ID: s.ID, Name: s.Name}
}

// FindStudent returns the student with the given id from students.
func FindStudent(students []EnrolledStudent, id int) (EnrolledStudent, bool) {
	for _, s := range students {
		if s.ID == id {
			return s, true
		}
	}
	return EnrolledStudent{}, false
}

// SubjectsOf returns the distinct subjects the students are enrolled in, in first seen order.
func SubjectsOf(students []EnrolledStudent) []string {
	seen := make(map[string]bool)
	subjects := make([]string, 0)
	for _, s := range students {
		for _, es := range s.Subjects {
			key := strings.ToLower(es.Subject)
			if !seen[key] {
				seen[key] = true
				subjects = append(subjects, es.Subject)
			}
		}
	}
	return subjects
}
