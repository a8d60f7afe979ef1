package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB
	usrRepo   user.Repository
	classRepo school.ClassLevelRepository
	subjRepo  school.SubjectRepository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Println("  adduser -username USERNAME -name FULL_NAME [-email EMAIL] [-role ROLE] - create or update a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  seed -file FILE - load class levels, users and subjects from a YAML file")
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Println()
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
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", user.RoleAdmin, "The user's role: admin, teacher or student.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedFile := seedCmd.String("file", "", "Path to the YAML file describing the school.")

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
		if *addUserUname == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		_, err = cli.addUser(newAccount{
			Username: *addUserUname,
			FullName: *addUserName,
			Email:    *addUserEmail,
			Role:     *addUserRole,
			Password: pwd,
		})
		return err

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *seedFile == "" {
			seedCmd.Usage()
			return errHelp
		}
		return cli.seed(*seedFile)

	default:
		cli.printUsage()
		return errHelp
	}
}
