package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/tutorhub/core/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type authenticator interface {
	Login(ctx context.Context, role session.Role, email, password string) (*session.Identity, string, error)
}

type commandLine struct {
	db    *sql.DB // set only for the migrate command
	store session.Store
	auth  authenticator
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command against the postgres session store")
	fmt.Fprintln(cli.out, "  sessions list - list the stored sessions and who is signed in")
	fmt.Fprintln(cli.out, "  sessions purge -id SID | -all | -expired - drop stored sessions")
	fmt.Fprintln(cli.out, "  login -role ROLE -email EMAIL - check credentials against the backend")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	purgeCmd := flag.NewFlagSet("sessions purge", flag.ContinueOnError)
	purgeCmd.SetOutput(cli.out)
	purgeID := purgeCmd.String("id", "", "The session id to drop.")
	purgeAll := purgeCmd.Bool("all", false, "Drop every session.")
	purgeExpired := purgeCmd.Bool("expired", false, "Drop expired sessions (postgres store only).")

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginCmd.SetOutput(cli.out)
	loginRole := loginCmd.String("role", string(session.RoleStudent), "student, tutor or admin.")
	loginEmail := loginCmd.String("email", "", "The account email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "sessions":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		switch args[2] {
		case "list":
			return cli.listSessions()
		case "purge":
			if err := purgeCmd.Parse(args[3:]); err != nil {
				return errHelp
			}
			if *purgeID == "" && !*purgeAll && !*purgeExpired {
				purgeCmd.Usage()
				return errHelp
			}
			return cli.purgeSessions(*purgeID, *purgeAll, *purgeExpired)
		default:
			cli.printUsage()
			return errHelp
		}

	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		role := session.Role(*loginRole)
		if *loginEmail == "" || !role.Valid() {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(role, *loginEmail, string(pwd))

	default:
		cli.printUsage()
		return errHelp
	}
}
