package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/session"
	"github.com/trezcool/ktx/core/student"
	"github.com/trezcool/ktx/storage/gateway"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp            = errors.New("help provided")
	errNoDatabase      = errors.New("migrate requires the postgres store backend")
	errInvalidPassword = errors.New("invalid admin password")
)

type commandLine struct {
	db       *sql.DB // nil unless the store backend is postgres
	gw       *gateway.Gateway
	students *student.Service
	rooms    *room.Registry
	sessions *session.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command against the key-value table (postgres store)")
	fmt.Fprintln(cli.out, "  seed - create the sample rooms and facility inventory when missing")
	fmt.Fprintln(cli.out, "  export [-o FILE] [-all] - export the students (or all data) as JSON")
	fmt.Fprintln(cli.out, "  import -i FILE [-strict] [-dry-run] - import students from a JSON file")
	fmt.Fprintln(cli.out, "  clear - delete all data; the admin password is prompted")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportOut := exportCmd.String("o", "", "Output file. Defaults to stdout.")
	exportAll := exportCmd.Bool("all", false, "Export rooms and inventory along with the students.")

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importIn := importCmd.String("i", "", "JSON file holding an array of students.")
	importStrict := importCmd.Bool("strict", false, "Fail when a student's MSSV is already registered.")
	importDryRun := importCmd.Bool("dry-run", false, "Print the changes without saving them.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seed":
		return cli.seed()
	case "export":
		exportCmd.SetOutput(cli.out)
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.export(*exportOut, *exportAll)
	case "import":
		importCmd.SetOutput(cli.out)
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importIn == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*importIn, *importStrict, *importDryRun)
	case "clear":
		fmt.Fprint(cli.out, "Enter admin password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 || !cli.sessions.CheckAdminPassword(string(pwd)) {
			return errInvalidPassword
		}
		return cli.clear()
	default:
		cli.printUsage()
		return errHelp
	}
}
