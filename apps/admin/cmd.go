package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/trezcool/campusboard/core"
	"github.com/trezcool/campusboard/core/auth"
	"github.com/trezcool/campusboard/core/policy"
	"github.com/trezcool/campusboard/core/user"
	"github.com/trezcool/campusboard/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	gooseRunFunc     = database.Migrate  // mockable
	nowFunc          = time.Now          // mockable

	errHelp         = errors.New("help provided")
	errNoMigrations = errors.New("migrations only apply to the postgres engine")
)

type commandLine struct {
	conf    *core.Config
	repos   *database.Repositories
	usrSvc  *user.Service
	authSvc *auth.Service
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                         - run a goose command (up, down, status, ...) against the postgres schema")
	_, _ = fmt.Fprintln(cli.out, "  adduser -username USERNAME [-email EMAIL] [-admin] - create a student (or admin) account")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL        - reset user's password")
	_, _ = fmt.Fprintln(cli.out, "  deleteuser -username USERNAME|EMAIL           - delete a user and end their sessions")
	_, _ = fmt.Fprintln(cli.out, "  purgesessions                                 - delete revoked and expired sessions")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email (optional).")
	addUserAdmin := addUserCmd.Bool("admin", false, "Create an admin account instead of a student one.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	deleteUserCmd := flag.NewFlagSet("deleteuser", flag.ContinueOnError)
	deleteUserUname := deleteUserCmd.String("username", "", "The user's username or email.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, deleteUserCmd} {
		fs.SetOutput(cli.out)
	}

	ctx := context.Background()
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
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, confirm, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserUname, *addUserEmail, pwd, confirm, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, confirm, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordUname, pwd, confirm)

	case "deleteuser":
		if err := deleteUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *deleteUserUname == "" {
			deleteUserCmd.Usage()
			return errHelp
		}
		return cli.deleteUser(ctx, *deleteUserUname)

	case "purgesessions":
		return cli.purgeSessions(ctx)

	default:
		cli.printUsage()
		return errHelp
	}
}

// promptPassword reads the password twice without echoing it.
func (cli *commandLine) promptPassword() (string, string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", "", err
	}
	if len(pwd) == 0 {
		return "", "", nil
	}

	_, _ = fmt.Fprint(cli.out, "Confirm password:")
	confirm, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", "", err
	}
	return string(pwd), string(confirm), nil
}

func (cli *commandLine) migrate(args []string) error {
	if cli.conf.Database.Engine != core.EnginePostgres {
		return errNoMigrations
	}
	return gooseRunFunc(cli.repos.SQL, args[0], args[1:]...)
}

func (cli *commandLine) addUser(ctx context.Context, uname, email, pwd, confirm string, isAdmin bool) error {
	role := policy.RoleStudent
	if isAdmin {
		role = policy.RoleAdmin
	}
	usr, err := cli.usrSvc.Create(ctx, user.NewUser{
		Username:        uname,
		Email:           email,
		Role:            role,
		Password:        pwd,
		PasswordConfirm: confirm,
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%s %q created (id: %s)\n", usr.Role, usr.Username, usr.ID)
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd, confirm string) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if _, err := cli.usrSvc.SetPassword(ctx, usr, pwd, confirm); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "password of %q reset\n", usr.Username)
	return nil
}

func (cli *commandLine) deleteUser(ctx context.Context, uname string) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if err := cli.usrSvc.DeleteByOperator(ctx, usr.ID); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%q deleted\n", usr.Username)
	return nil
}

func (cli *commandLine) purgeSessions(ctx context.Context) error {
	n, err := cli.authSvc.PurgeSessions(ctx, nowFunc())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%d sessions purged\n", n)
	return nil
}

// printErr writes err to w, one line per invalid field.
func printErr(w io.Writer, err error) {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) && len(vErr.Fields) > 0 {
		_, _ = fmt.Fprintln(w, "\ninvalid input:")
		for _, f := range vErr.Fields {
			_, _ = fmt.Fprintf(w, "  %s: %s\n", f.Field, f.Error)
		}
		return
	}
	_, _ = fmt.Fprintf(w, "\nerror: %s\n", err)
}
