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

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/faculty"
	"github.com/profpay/profpay/core/payer"
	"github.com/profpay/profpay/core/user"
	remindersvc "github.com/profpay/profpay/services/reminder"
	"github.com/profpay/profpay/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sql.DB
	out       io.Writer
	validate  *validator.Validate
	usrSvc    *user.Service
	faculties *faculty.Service
	payers    *payer.Service
	reminder  *remindersvc.Service
	mailSvc   core.EmailService
	seeder    database.Seeder
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a migration command (up, down, status, redo, version...)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-name FULL_NAME] [-role admin|operator|viewer] - create or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  seed - create the admin user, sample faculties and this year's payment settings")
	fmt.Fprintln(cli.out, "  remind [-faculty ID] - email the debtors a payment reminder")
	fmt.Fprintln(cli.out, "  export -out FILE [-faculty ID] [-group ID] [-status STATUS] [-mail EMAIL] - export payers to an Excel file")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name. Defaults to the username.")
	addUserRole := addUserCmd.String("role", user.RoleAdmin, "The user's role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	remindCmd := flag.NewFlagSet("remind", flag.ContinueOnError)
	remindCmd.SetOutput(cli.out)
	remindFaculty := remindCmd.Int("faculty", 0, "Only remind the debtors of this faculty.")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportCmd.SetOutput(cli.out)
	exportOut := exportCmd.String("out", "", "The file to write.")
	exportFaculty := exportCmd.String("faculty", "", "Only export the payers of this faculty.")
	exportGroup := exportCmd.String("group", "", "Only export the payers of this group.")
	exportStatus := exportCmd.String("status", "", "Only export the payers with this status.")
	exportMail := exportCmd.String("mail", "", "Also email the workbook to this address.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" || *addUserEmail == "" {
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
		return cli.addUser(*addUserUname, *addUserEmail, *addUserName, pwd, *addUserRole)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
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
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "seed":
		return cli.seed()

	case "remind":
		if err := remindCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.remind(*remindFaculty)

	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(*exportOut, *exportMail, map[string]string{
			"faculty_id": *exportFaculty,
			"group_id":   *exportGroup,
			"status":     *exportStatus,
		})

	default:
		cli.printUsage()
		return errHelp
	}
}
