package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/identity/local"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	dir      *local.Directory
	profiles *user.Accessor
	records  *academic.Records
	validate *validator.Validate
	openDB   func() (*sql.DB, error) // postgres only, for migrations
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME -role admin|faculty|student - create a user; the password is prompted")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  disableuser -email EMAIL [-enable] - disable (or re-enable) a user")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run goose migrations (postgres only)")
	fmt.Fprintln(cli.out, "  seed [-student UID] [-file seed.yaml] [-mock] - seed academic records")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := cli.newFlagSet("adduser")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's display name.")
	addUserRole := addUserCmd.String("role", "", "One of admin, faculty or student.")

	resetPasswordCmd := cli.newFlagSet("resetpassword")
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	disableUserCmd := cli.newFlagSet("disableuser")
	disableUserEmail := disableUserCmd.String("email", "", "The user's email.")
	disableUserEnable := disableUserCmd.Bool("enable", false, "Re-enable the user instead.")

	seedCmd := cli.newFlagSet("seed")
	seedStudent := seedCmd.String("student", "", "Enroll the student UID in the starter courses.")
	seedFile := seedCmd.String("file", "", "A YAML file of departments, programs, courses and calendars.")
	seedMock := seedCmd.Bool("mock", false, "Insert the mock courses when there are none.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserEmail, *addUserName, *addUserRole, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)
	case "disableuser":
		if err := disableUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *disableUserEmail == "" {
			disableUserCmd.Usage()
			return errHelp
		}
		return cli.disableUser(*disableUserEmail, !*disableUserEnable)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedStudent == "" && *seedFile == "" && !*seedMock {
			seedCmd.Usage()
			return errHelp
		}
		return cli.seed(*seedStudent, *seedFile, *seedMock)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
