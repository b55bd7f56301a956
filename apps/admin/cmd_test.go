package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/session"
	"github.com/trezcool/ktx/core/student"
	emailsvc "github.com/trezcool/ktx/services/email"
	"github.com/trezcool/ktx/storage/gateway"
	"github.com/trezcool/ktx/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	conf := testutil.Config()
	gw, _, _ := testutil.PrepareGateway(t)

	var out bytes.Buffer
	cli := &commandLine{gw: gw, out: &out}
	cli.students = student.NewService(gateway.NewStudentRepository(gw), testutil.Validator(), emailsvc.NewConsoleServiceMock(conf), conf)
	cli.rooms = room.NewRegistry(gateway.NewRoomRepository(gw), cli.students, conf)

	var err error
	cli.sessions, err = session.NewServiceFromConfig(gateway.NewSessionRepository(gw), cli.students, conf)
	require.NoError(t, err)
	return cli, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: "Usage:"},
		{name: "import: no file", args: []string{"import"}, wantErr: errHelp},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out := setup(t)

	var gotDir string
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		gotDir = dir
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

	runCLITests(t, cli, out, []cliTest{
		{name: "no database", args: []string{"migrate", "up"}, wantErr: errNoDatabase},
	})

	cli.db = new(sql.DB)
	runCLITests(t, cli, out, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "index_kv_updated_at", "sql"}},
	})
	assert.Equal(t, "migrations", gotDir)
}

func Test_commandLine_seed(t *testing.T) {
	cli, out := setup(t)

	runCLITests(t, cli, out, []cliTest{
		{name: "first run", args: []string{"seed"}, wantOut: "5 rooms, 5 facility types"},
		{name: "second run", args: []string{"seed"}, wantOut: "5 rooms, 5 facility types"},
	})

	rooms, err := cli.rooms.Rooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, rooms, 5)
}

func Test_commandLine_export(t *testing.T) {
	cli, out := setup(t)
	an := testutil.CreateStudent(t, cli.students, "An", "1", "an@test.vn", "101")
	require.NoError(t, cli.rooms.EnsureSample(context.Background()))

	t.Run("students to stdout", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "export"}))

		var got []student.Student
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, []student.Student{an}, got)
	})

	t.Run("all to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ktx.json")
		require.NoError(t, cli.run([]string{"admin", "export", "-all", "-o", path}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var got exportData
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, []student.Student{an}, got.Students)
		assert.Len(t, got.Rooms, 5)
		assert.Len(t, got.Inventory, 5)
	})
}

func Test_commandLine_import(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateStudent(t, cli.students, "An", "1", "an@test.vn", "101")

	path := filepath.Join(t.TempDir(), "students.json")
	data := `[{"name": "An Nguyen", "mssv": "1", "email": "an@test.vn"}, {"name": "Binh", "mssv": "2", "email": "binh@test.vn"}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	invalidPath := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(invalidPath, []byte(`{"lol"`), 0o600))

	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, cli.run([]string{"admin", "import", "-i", filepath.Join(t.TempDir(), "nope.json")}))
	})
	t.Run("invalid json", func(t *testing.T) {
		assert.Error(t, cli.run([]string{"admin", "import", "-i", invalidPath}))
	})
	t.Run("strict", func(t *testing.T) {
		assert.Error(t, cli.run([]string{"admin", "import", "-strict", "-i", path}))
	})

	t.Run("dry run", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "import", "-dry-run", "-i", path}))
		assert.Contains(t, out.String(), "--- current")
		assert.Contains(t, out.String(), "+++ imported")
		assert.Contains(t, out.String(), `+    "name": "Binh",`)

		students, err := cli.students.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, students, 1)
	})

	t.Run("import", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "import", "-i", path}))
		assert.Equal(t, "imported 2 records, 2 students registered\n", out.String())

		students, err := cli.students.List(context.Background())
		require.NoError(t, err)
		require.Len(t, students, 2)
		assert.Equal(t, "An Nguyen", students[0].Name)
		assert.Equal(t, "101", students[0].Room)
	})

	t.Run("dry run without changes", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "import", "-dry-run", "-i", path}))
		assert.Equal(t, "no changes\n", out.String())
	})
}

func Test_commandLine_clear(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateStudent(t, cli.students, "An", "1", "an@test.vn")
	require.NoError(t, cli.rooms.EnsureSample(context.Background()))

	mockPassword := func(pwd string) {
		readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	}

	mockPassword("")
	runCLITests(t, cli, out, []cliTest{{name: "no password", args: []string{"clear"}, wantErr: errInvalidPassword}})
	mockPassword("lol")
	runCLITests(t, cli, out, []cliTest{{name: "wrong password", args: []string{"clear"}, wantErr: errInvalidPassword}})

	students, err := cli.students.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, students, 1, "nothing is cleared without the admin password")

	mockPassword("admin123")
	runCLITests(t, cli, out, []cliTest{{name: "cleared", args: []string{"clear"}, wantOut: "all data cleared"}})

	students, err = cli.students.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, students)
	rooms, err := cli.rooms.Rooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
