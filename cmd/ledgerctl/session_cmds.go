package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type loginCmd struct {
	email    string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in and store the session" }
func (*loginCmd) Usage() string {
	return `ledgerctl login -email <email> [-password <password>]

  Signs in to the gateway. The password falls back to $LEDGER_PASSWORD.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Account email")
	f.StringVar(&c.password, "password", "", "Account password")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.password == "" {
		c.password = os.Getenv("LEDGER_PASSWORD")
	}
	return withApp(func(a *app) subcommands.ExitStatus {
		if err := a.svc.Login(ctx, c.email, c.password); err != nil {
			return report(err)
		}
		me, err := a.svc.Me(ctx)
		if err != nil {
			return report(err)
		}
		fmt.Fprintf(a.out, "Signed in as %s\n", me.Email)
		return subcommands.ExitSuccess
	})
}

type logoutCmd struct{}

func (*logoutCmd) Name() string           { return "logout" }
func (*logoutCmd) Synopsis() string       { return "forget the stored session" }
func (*logoutCmd) Usage() string          { return "ledgerctl logout\n" }
func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (*logoutCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app) subcommands.ExitStatus {
		a.svc.Logout()
		fmt.Fprintln(a.out, "Signed out")
		return subcommands.ExitSuccess
	})
}
