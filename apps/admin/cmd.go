package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/trezcool/gradebook/apps/shared"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf  *core.Config
	store *shared.Store
	svc   *grade.Service
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [VERSION] - run the database migrations (postgres engine only)")
	fmt.Fprintln(cli.out, "      commands: up, up-by-one, up-to VERSION, down, down-to VERSION, redo")
	fmt.Fprintln(cli.out, "  addstudent -name NAME -subjects SUBJECTS - enrol a new student")
	fmt.Fprintln(cli.out, "      SUBJECTS: comma separated SUBJECT[:GRADE_LEVEL[:STREAM]], e.g. Math:10,Physics:11:science")
	fmt.Fprintln(cli.out, "  token -id ID -name NAME [-admin] - issue an API token to an instructor")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addStudentCmd := flag.NewFlagSet("addstudent", flag.ContinueOnError)
	addStudentCmd.SetOutput(cli.out)
	addStudentName := addStudentCmd.String("name", "", "The student's full name.")
	addStudentSubjects := addStudentCmd.String("subjects", "", "The subjects the student takes.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenID := tokenCmd.Int("id", 0, "The instructor's id.")
	tokenName := tokenCmd.String("name", "", "The instructor's name.")
	tokenAdmin := tokenCmd.Bool("admin", false, "Allow the instructor to enrol students.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addstudent":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStudentName == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		return cli.addStudent(*addStudentName, *addStudentSubjects)

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenID <= 0 || *tokenName == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(core.Instructor{ID: *tokenID, Name: *tokenName, IsAdmin: *tokenAdmin})

	default:
		cli.printUsage()
		return errHelp
	}
}

func parseVersion(arg string) (int64, error) {
	v, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("version must be a number (got '%s')", arg)
	}
	return v, nil
}
