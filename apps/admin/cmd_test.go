package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	env := testutil.NewEnv(t)
	out := new(bytes.Buffer)

	// start CLI
	return &commandLine{
		conf:     env.Conf,
		dir:      env.Directory,
		profiles: env.Profiles,
		records:  env.Records,
		validate: env.Validate,
		out:      out,
	}, env, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantKind   auth.ErrorKind
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantKind != auth.KindUnknown:
		if kind := auth.KindOf(err); kind != tt.wantKind {
			t.Errorf("cli.run() error = %v, wantKind %v", err, tt.wantKind)
		}
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "adduser: no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "adduser: unknown flag", args: []string{"adduser", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
		{name: "resetpassword: no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "disableuser: no args", args: []string{"disableuser"}, wantErr: errHelp},
		{name: "migrate: no args", args: []string{"migrate"}, wantErr: errHelp},
		{name: "seed: no args", args: []string{"seed"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
	assert.Contains(t, out.String(), "Usage:")
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no password", args: []string{"adduser", "-email", "a@test.test", "-name", "A", "-role", "admin"}, extra: extra{}, wantErr: errHelp},
		{name: "weak password", args: []string{"adduser", "-email", "a@test.test", "-name", "A", "-role", "admin"}, extra: extra{pwd: "123"}, wantKind: auth.KindWeakPassword},
		{name: "admin", args: []string{"adduser", "-email", "Admin@Test.test", "-name", "Admin", "-role", "admin"}, extra: extra{pwd: testutil.Password}},
		{name: "student", args: []string{"adduser", "-email", "student@test.test", "-name", "Student", "-role", "STUDENT"}, extra: extra{pwd: testutil.Password}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.extra.(extra).pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	mockPassword(testutil.Password)
	err := cli.run([]string{"admin", "adduser", "-email", "student@test.test", "-name", "Again", "-role", "student"})
	assert.Equal(t, auth.KindEmailInUse, auth.KindOf(err))

	admin, err := env.AuthService().SignIn(ctx, "admin@test.test", testutil.Password)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	student, err := env.AuthService().SignIn(ctx, "student@test.test", testutil.Password)
	require.NoError(t, err)
	assert.True(t, student.IsStudent())

	// students are enrolled in the starter courses
	courses, err := env.Records.Courses.ByStudent(ctx, student.UID)
	require.NoError(t, err)
	assert.Len(t, courses, 2)
	assert.Contains(t, out.String(), "created student student@test.test")
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env, _ := setup(t)
	ctx := context.Background()
	prof := env.CreateUser(t, "awe@test.test", "Awe", user.RoleFaculty, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.test"}, extra: extra{}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.test"}, extra: extra{pwd: "N3w!Secret"}, wantKind: auth.KindNotFound},
		{name: "weak password", args: []string{"resetpassword", "-email", prof.Email}, extra: extra{pwd: "lol"}, wantKind: auth.KindWeakPassword},
		{name: "reset", args: []string{"resetpassword", "-email", "AWE@test.test"}, extra: extra{pwd: "N3w!Secret"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPassword(tt.extra.(extra).pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	_, err := env.Directory.Authenticate(ctx, prof.Email, "N3w!Secret")
	assert.NoError(t, err)
}

func Test_commandLine_disableUser(t *testing.T) {
	cli, env, _ := setup(t)
	ctx := context.Background()
	prof := env.CreateUser(t, "awe@test.test", "Awe", user.RoleStudent, true)

	require.NoError(t, cli.run([]string{"admin", "disableuser", "-email", prof.Email}))
	_, err := env.AuthService().SignIn(ctx, prof.Email, testutil.Password)
	assert.Equal(t, auth.KindUserDisabled, auth.KindOf(err))
	stored, _, err := env.Profiles.Get(ctx, prof.UID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	require.NoError(t, cli.run([]string{"admin", "disableuser", "-email", prof.Email, "-enable"}))
	_, err = env.AuthService().SignIn(ctx, prof.Email, testutil.Password)
	assert.NoError(t, err)
	stored, _, err = env.Profiles.Get(ctx, prof.UID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	err := cli.run([]string{"admin", "migrate", "up"})
	assert.Equal(t, errNoSQLDatabase, err)

	cli.openDB = func() (*sql.DB, error) {
		db, mock, err := sqlmock.New()
		if err != nil {
			return nil, err
		}
		mock.ExpectClose()
		return db, nil
	}
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

const seedYAML = `
departments:
  - id: cs
    name: Computer Science
    code: CS
programs:
  - name: BSc Computer Science
    code: BCS
    department: cs
    duration: 4
courses:
  - code: CS201
    name: Data Structures
    credits: 4
    department: cs
calendars:
  - academicYear: 2024-2025
    events:
      - title: Fall semester
        type: class_start
        startDate: 2024-09-02T00:00:00Z
        endDate: 2024-09-02T00:00:00Z
`

func Test_commandLine_seed(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()

	file := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(file, []byte(seedYAML), 0o600))

	require.NoError(t, cli.run([]string{"admin", "seed", "-file", file}))
	assert.Contains(t, out.String(), "seeded 4 records")

	progs, err := env.Records.Programs.ByDepartment(ctx, "cs")
	require.NoError(t, err)
	require.Len(t, progs, 1)
	assert.Equal(t, "BCS", progs[0].Code)
	_, found, err := env.Records.Calendars.ByYear(ctx, "2024-2025")
	require.NoError(t, err)
	assert.True(t, found)

	// the catalogue is not empty anymore
	require.NoError(t, cli.run([]string{"admin", "seed", "-mock"}))
	assert.Contains(t, out.String(), "mock courses skipped")

	require.NoError(t, cli.run([]string{"admin", "seed", "-student", "s1"}))
	courses, err := env.Records.Courses.ByStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	err = cli.run([]string{"admin", "seed", "-file", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
