// Package admincli implements the vaultadmin operator tool: account
// bootstrap and deactivation straight against the store, for environments
// where the consuming transport is not up yet.
package admincli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/vaultkeep/vaultkeep/internal/common"
	"github.com/vaultkeep/vaultkeep/internal/flagx"
	"github.com/vaultkeep/vaultkeep/internal/server/models"
)

// Authenticator is the slice of the auth service the CLI needs.
type Authenticator interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Deactivate(ctx context.Context, userID int64) error
}

// App dispatches vaultadmin subcommands.
type App struct {
	auth Authenticator
	in   *bufio.Reader
	out  io.Writer
}

// NewApp constructs the CLI over the given service and streams.
func NewApp(auth Authenticator, in io.Reader, out io.Writer) *App {
	return &App{auth: auth, in: bufio.NewReader(in), out: out}
}

// Run executes the subcommand named by args (e.g. ["create-user", "-u", "alice"]).
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: vaultadmin <create-user|deactivate-user> [flags]")
	}

	switch args[0] {
	case "create-user":
		return a.createUser(ctx, args[1:])
	case "deactivate-user":
		return a.deactivateUser(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *App) createUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-u", "-e"})); err != nil {
		return err
	}

	var err error
	if *username == "" {
		if *username, err = getSimpleText(a.in, "Username", a.out); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = getSimpleText(a.in, "Email", a.out); err != nil {
			return err
		}
	}

	password, err := getPassword("Enter password: ", a.out)
	if err != nil {
		return err
	}
	confirm, err := getPassword("Repeat password: ", a.out)
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	user, err := a.auth.Register(ctx, *username, *email, password)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return fmt.Errorf("user %q already exists", *username)
		}
		return err
	}

	fmt.Fprintf(a.out, "created user %s (id %d)\n", user.Username, user.ID)
	return nil
}

func (a *App) deactivateUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deactivate-user", flag.ContinueOnError)
	id := fs.Int64("id", 0, "user id")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-id"})); err != nil {
		return err
	}
	if *id == 0 {
		return errors.New("deactivate-user requires -id")
	}

	if err := a.auth.Deactivate(ctx, *id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("no user with id %d", *id)
		}
		return err
	}

	fmt.Fprintf(a.out, "deactivated user %d\n", *id)
	return nil
}
