package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/apps/shared"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/storage/database/inmem"
)

func setup(t *testing.T, withDB bool) (*commandLine, *bytes.Buffer) {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	store := &shared.Store{Repository: inmemdb.NewGradeRepository(db)}
	if withDB {
		// sqlx.Open does not connect
		store.DB, err = sqlx.Open("postgres", "postgres://localhost/gradebook?sslmode=disable")
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.DB.Close() })
	}

	out := new(bytes.Buffer)
	conf := &core.Config{
		AppName:   "Gradebook",
		SecretKey: "secret",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		Database:  core.DatabaseConfig{Engine: "inmem"},
	}
	return &commandLine{conf: conf, store: store, svc: grade.NewService(store), out: out}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, want an error")
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t, true)

	var calls []string
	migrateFunc = func(db *sql.DB, command string, version int64) error {
		calls = append(calls, fmt.Sprintf("%s %d", command, version))
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no command", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown command", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: migrate up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: migrate down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
	})
	assert.Equal(t, []string{"up 0", "up-by-one 0", "up-to 2", "down 0", "down-to 1", "redo 0"}, calls)

	inmemCLI, _ := setup(t, false)
	err := inmemCLI.run([]string{"admin", "migrate", "up"})
	assert.EqualError(t, err, `migrate: the "inmem" engine has no migrations`)
}

func Test_commandLine_addStudent(t *testing.T) {
	cli, out := setup(t, false)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no name", args: []string{"addstudent", "-subjects", "Math"}, wantErr: errHelp},
		{name: "bad subjects", args: []string{"addstudent", "-name", "Bob", "-subjects", "Math:10:x:y"}, wantErrStr: `-subjects: "Math:10:x:y": too many parts`},
		{name: "missing subject", args: []string{"addstudent", "-name", "Bob", "-subjects", ":10"}, wantErrStr: `-subjects: ":10": missing subject`},
		{name: "blank name", args: []string{"addstudent", "-name", "  "}, wantErrStr: "name: this field is required"},
		{name: "ok", args: []string{"addstudent", "-name", "Alice ", "-subjects", "Math:10, Physics:11:Science,"}},
	})

	students, err := cli.svc.Students(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, grade.EnrolledStudent{
		ID:   1,
		Name: "Alice",
		Subjects: []grade.EnrolledSubject{
			{Subject: "Math", GradeLevel: "10"},
			{Subject: "Physics", GradeLevel: "11", Stream: "science"},
		},
	}, students[0])
	assert.Contains(t, out.String(), "student #1 Alice enrolled in 2 subject(s)")
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t, false)

	runCLITests(t, cli, []cliTest{
		{name: "no id", args: []string{"token", "-name", "Mr. T"}, wantErr: errHelp},
		{name: "no name", args: []string{"token", "-id", "3"}, wantErr: errHelp},
		{name: "ok", args: []string{"token", "-id", "3", "-name", "Mr. T", "-admin"}},
	})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	raw := lines[len(lines)-1]
	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, core.Instructor{ID: 3, Name: "Mr. T", IsAdmin: true}, claims.Instructor())
}
