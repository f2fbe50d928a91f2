package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradebook"
)

func (cli *commandLine) add(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("add")
	studentID := fs.Int("student", 0, "The student id.")
	subject := fs.String("subject", "", "The subject.")
	typ := fs.String("type", "", "An assignment type (homework, classwork, quiz, project, lab) or an exam type (midterm, final, mock, test).")
	score := fs.Float64("score", 0, "The score.")
	maxScore := fs.Float64("max", 0, "The maximum score.")
	feedback := fs.String("feedback", "", "Optional feedback.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *studentID <= 0 || *subject == "" || *typ == "" || !isSet(fs, "score") {
		fs.Usage()
		return errHelp
	}

	ng := grade.NewGrade{
		StudentID: *studentID,
		Subject:   *subject,
		Score:     score,
		MaxScore:  *maxScore,
		Feedback:  *feedback,
	}
	if isExamType(*typ) {
		ng.ExamType = *typ
	} else {
		ng.AssignmentType = *typ
	}

	view, err := cli.newView(grade.QueryFilter{}, false, 0)
	if err != nil {
		return err
	}
	defer view.Close()

	// enrolments are checked locally once loaded
	if _, err = view.LoadStudents(ctx); err != nil {
		return err
	}
	grd, err := view.Create(ctx, ng)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "grade #%d recorded\n", grd.ID)
	return nil
}

func (cli *commandLine) set(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("set")
	id := fs.Int("id", 0, "The grade id.")
	score := fs.Float64("score", 0, "The new score.")
	maxScore := fs.Float64("max", 0, "The new maximum score.")
	feedback := fs.String("feedback", "", "The new feedback.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := parseIDFlag(fs, *id); err != nil {
		return err
	}

	var ug grade.UpdateGrade
	if isSet(fs, "score") {
		ug.Score = score
	}
	if isSet(fs, "max") {
		ug.MaxScore = maxScore
	}
	if isSet(fs, "feedback") {
		ug.Feedback = feedback
	}

	view, err := cli.newView(grade.QueryFilter{}, false, 0)
	if err != nil {
		return err
	}
	defer view.Close()

	if err = view.Load(ctx); err != nil {
		return err
	}
	grd, err := view.Update(ctx, *id, ug)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "grade #%d is now %s/%s (%.1f%%)\n", grd.ID, formatScore(grd.Score), formatScore(grd.MaxScore), grd.Percentage())
	return nil
}

func (cli *commandLine) delete(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("delete")
	id := fs.Int("id", 0, "The grade id.")
	yes := fs.Bool("yes", false, "Do not ask for confirmation.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := parseIDFlag(fs, *id); err != nil {
		return err
	}

	view, err := cli.newView(grade.QueryFilter{}, false, 0)
	if err != nil {
		return err
	}
	defer view.Close()

	if err = view.Load(ctx); err != nil {
		return err
	}
	var confirmer gradebook.Confirmer = gradebook.ConfirmFunc(cli.confirm)
	if *yes {
		confirmer = gradebook.ConfirmFunc(func(context.Context, string) bool { return true })
	}
	if err = view.Delete(ctx, *id, confirmer); err != nil {
		if errors.Is(err, gradebook.ErrNotConfirmed) {
			fmt.Fprintln(cli.out, "cancelled")
			return nil
		}
		return err
	}
	return nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	var found bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
