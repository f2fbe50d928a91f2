package gatewaysvc

import (
	"encoding/json"

	"github.com/trezcool/gradebook/core/grade"
)

// studentPayload accepts both the current and the legacy shape of a student:
// subjects may come as "subjects" or "courses", each keyed by "subject" or "name".
type studentPayload struct {
	ID       int              `json:"id"`
	Name     string           `json:"name"`
	Subjects []subjectPayload `json:"subjects"`
	Courses  []subjectPayload `json:"courses"`
}

type subjectPayload struct {
	Subject    string     `json:"subject"`
	Name       string     `json:"name"`
	GradeLevel flexString `json:"grade_level"`
	Stream     string     `json:"stream"`
}

func (sp studentPayload) normalize() grade.EnrolledStudent {
	items := sp.Subjects
	if items == nil {
		items = sp.Courses
	}
	student := grade.EnrolledStudent{ID: sp.ID, Name: sp.Name, Subjects: make([]grade.EnrolledSubject, 0, len(items))}
	for _, item := range items {
		subject := item.Subject
		if subject == "" {
			subject = item.Name
		}
		if subject == "" {
			continue
		}
		student.Subjects = append(student.Subjects, grade.EnrolledSubject{
			Subject:    subject,
			GradeLevel: string(item.GradeLevel),
			Stream:     item.Stream,
		})
	}
	return student
}

// flexString decodes a JSON string or number.
type flexString string

func (fs *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*fs = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*fs = flexString(n.String())
	return nil
}
