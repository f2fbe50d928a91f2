package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/apps"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradebook"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf       *core.Config
	gateway    grade.Gateway
	notifier   core.Notifier
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	clock      clock.Clock // real clock when nil
	in         *bufio.Reader
	out        io.Writer
}

// viewFlags are shared by the list and watch commands.
type viewFlags struct {
	subject string
	student int
	typ     string
	search  string
	sortKey string
	reverse bool
}

func (vf *viewFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&vf.subject, "subject", "", "Only load the grades of this subject.")
	fs.IntVar(&vf.student, "student", 0, "Only show the grades of this student id.")
	fs.StringVar(&vf.typ, "type", "", "Only show grades of this assignment or exam type.")
	fs.StringVar(&vf.search, "search", "", "Only show grades whose student name or feedback contains this text.")
	fs.StringVar(&vf.sortKey, "sort", "", "Sort by name, percentage, score or date.")
	fs.BoolVar(&vf.reverse, "reverse", false, "Reverse the sort order.")
}

func (vf *viewFlags) validate() error {
	if vf.sortKey != "" && gradebook.ParseSortKey(vf.sortKey) == gradebook.SortNone {
		return apps.NewArgumentError("sort", fmt.Sprintf("unknown sort key %q", vf.sortKey))
	}
	return nil
}

func (vf *viewFlags) query() grade.QueryFilter {
	return grade.QueryFilter{Subject: vf.subject}
}

func (vf *viewFlags) apply(view *gradebook.View) {
	view.SetLocalFilter(gradebook.LocalFilter{
		StudentID: vf.student,
		Type:      core.CleanString(vf.typ, true /* lower */),
		Search:    vf.search,
	})
	view.SetSort(gradebook.Sort{Key: gradebook.ParseSortKey(vf.sortKey), Reverse: vf.reverse})
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  list [-subject S] [-student ID] [-type T] [-search Q] [-sort KEY] [-reverse] - print the grades")
	fmt.Fprintln(cli.out, "  watch [list flags] [-refresh=BOOL] [-interval D] - print the grades again whenever they change")
	fmt.Fprintln(cli.out, "  add -student ID -subject S -type T -score X -max Y [-feedback F] - record a grade")
	fmt.Fprintln(cli.out, "  set -id ID [-score X] [-max Y] [-feedback F] - change a grade")
	fmt.Fprintln(cli.out, "  delete -id ID [-yes] - delete a grade")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "list":
		return cli.list(ctx, args[2:])
	case "watch":
		return cli.watch(ctx, args[2:])
	case "add":
		return cli.add(ctx, args[2:])
	case "set":
		return cli.set(ctx, args[2:])
	case "delete":
		return cli.delete(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) newView(query grade.QueryFilter, autoRefresh bool, interval time.Duration) (*gradebook.View, error) {
	return gradebook.NewView(
		gradebook.Deps{
			Gateway:    cli.gateway,
			Notifier:   cli.notifier,
			Logger:     cli.logger,
			Validate:   cli.validate,
			Translator: cli.translator,
			Clock:      cli.clock,
			Locale:     cli.conf.Locale,
		},
		gradebook.Options{
			Query:           query,
			AutoRefresh:     autoRefresh,
			RefreshInterval: interval,
		},
	)
}

// confirm asks prompt on the terminal; only y or yes confirms.
func (cli *commandLine) confirm(_ context.Context, prompt string) bool {
	fmt.Fprint(cli.out, prompt+" [y/N]: ")
	line, err := cli.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := core.CleanString(line, true /* lower */)
	return answer == "y" || answer == "yes"
}

func parseIDFlag(fs *flag.FlagSet, id int) error {
	if id <= 0 {
		fs.Usage()
		return errHelp
	}
	return nil
}

func isExamType(typ string) bool {
	for _, t := range grade.ExamTypes {
		if strings.EqualFold(t, typ) {
			return true
		}
	}
	return false
}
