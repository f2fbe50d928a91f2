package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/gradebook/apps"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

// addStudent enrols a new student in the subjects listed in subjectList.
func (cli *commandLine) addStudent(name, subjectList string) error {
	subjects, err := parseSubjects(subjectList)
	if err != nil {
		return err
	}
	student, err := cli.svc.AddStudent(context.Background(), grade.EnrolledStudent{Name: name, Subjects: subjects})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "student #%d %s enrolled in %d subject(s)\n", student.ID, student.Name, len(student.Subjects))
	return nil
}

// parseSubjects reads SUBJECT[:GRADE_LEVEL[:STREAM]] items separated by commas.
func parseSubjects(subjectList string) ([]grade.EnrolledSubject, error) {
	subjects := make([]grade.EnrolledSubject, 0)
	for _, item := range strings.Split(subjectList, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) > 3 {
			return nil, apps.NewArgumentError("subjects", fmt.Sprintf("%q: too many parts", item))
		}
		es := grade.EnrolledSubject{Subject: core.CleanString(parts[0])}
		if es.Subject == "" {
			return nil, apps.NewArgumentError("subjects", fmt.Sprintf("%q: missing subject", item))
		}
		if len(parts) > 1 {
			es.GradeLevel = core.CleanString(parts[1])
		}
		if len(parts) > 2 {
			es.Stream = core.CleanString(parts[2], true /* lower */)
		}
		subjects = append(subjects, es)
	}
	return subjects, nil
}
