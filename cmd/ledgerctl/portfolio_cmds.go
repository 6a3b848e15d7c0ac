package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	lerrors "github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
)

// resolvePortfolio returns id, or the only portfolio when id is empty
func resolvePortfolio(ctx context.Context, a *app, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	list, err := a.svc.ListPortfolios(ctx)
	if err != nil {
		return "", err
	}
	if len(list) != 1 {
		return "", lerrors.NewValidationError("portfolio", "Choose a portfolio with -p")
	}
	return list[0].ID, nil
}

type portfoliosCmd struct {
	create string
	emoji  string
	public bool
	clone  string
	delete string
	rename string
	id     string
}

func (*portfoliosCmd) Name() string     { return "portfolios" }
func (*portfoliosCmd) Synopsis() string { return "list, create, clone, rename or delete portfolios" }
func (*portfoliosCmd) Usage() string {
	return `ledgerctl portfolios [-create <name> [-emoji <e>] [-public]] [-clone <id>] [-delete <id>] [-rename <name> -id <id>]

  Applies the requested change, then lists the portfolios.
`
}

func (c *portfoliosCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.create, "create", "", "Create a personal portfolio with this name")
	f.StringVar(&c.emoji, "emoji", "", "Emoji for -create or -rename")
	f.BoolVar(&c.public, "public", false, "Make the created portfolio public")
	f.StringVar(&c.clone, "clone", "", "Clone the public portfolio with this id")
	f.StringVar(&c.delete, "delete", "", "Delete the portfolio with this id")
	f.StringVar(&c.rename, "rename", "", "New name for the portfolio given by -id")
	f.StringVar(&c.id, "id", "", "Portfolio to rename")
}

func (c *portfoliosCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(func(a *app) subcommands.ExitStatus {
		var emoji *string
		if c.emoji != "" {
			emoji = &c.emoji
		}

		switch {
		case c.create != "":
			vis := types.VisibilityPrivate
			if c.public {
				vis = types.VisibilityPublic
			}
			if _, err := a.svc.CreatePortfolio(ctx, models.PortfolioDraft{Name: c.create, Emoji: emoji, Visibility: vis}); err != nil {
				return report(err)
			}
		case c.clone != "":
			if _, err := a.svc.ClonePortfolio(ctx, c.clone); err != nil {
				return report(err)
			}
		case c.delete != "":
			if err := a.svc.DeletePortfolio(ctx, c.delete); err != nil {
				return report(err)
			}
		case c.rename != "" || (c.id != "" && emoji != nil):
			if !requireFlag("id", c.id) {
				return subcommands.ExitUsageError
			}
			var name *string
			if c.rename != "" {
				name = &c.rename
			}
			if _, err := a.svc.UpdatePortfolio(ctx, c.id, name, emoji); err != nil {
				return report(err)
			}
		}

		list, err := a.svc.ListPortfolios(ctx)
		if err != nil {
			return report(err)
		}
		a.printMarkdown(portfoliosMarkdown(list, a.cfg.Quote.Currency))
		return subcommands.ExitSuccess
	})
}

type visibilityCmd struct {
	portfolio string
}

func (*visibilityCmd) Name() string     { return "visibility" }
func (*visibilityCmd) Synopsis() string { return "make a personal portfolio public or private" }
func (*visibilityCmd) Usage() string {
	return `ledgerctl visibility [-p <portfolio>] public|private
`
}

func (c *visibilityCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id")
}

func (c *visibilityCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	vis := types.Visibility(f.Arg(0))

	return withApp(func(a *app) subcommands.ExitStatus {
		pid, err := resolvePortfolio(ctx, a, c.portfolio)
		if err != nil {
			return report(err)
		}
		// loads the portfolio so its kind is known
		if err := a.svc.SelectPortfolio(ctx, pid); err != nil {
			return report(err)
		}
		if err := a.svc.UpdatePortfolioVisibility(ctx, pid, vis); err != nil {
			return report(err)
		}
		fmt.Fprintf(a.out, "Portfolio is now %s\n", vis)
		return subcommands.ExitSuccess
	})
}

type importBybitCmd struct {
	portfolio string
	key       string
	secret    string
}

func (*importBybitCmd) Name() string     { return "import-bybit" }
func (*importBybitCmd) Synopsis() string { return "import exchange balances with read-only API keys" }
func (*importBybitCmd) Usage() string {
	return `ledgerctl import-bybit [-p <portfolio>] -key <api key> [-secret <api secret>]

  The secret falls back to $BYBIT_API_SECRET.
`
}

func (c *importBybitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolio, "p", "", "Portfolio id")
	f.StringVar(&c.key, "key", "", "API key")
	f.StringVar(&c.secret, "secret", "", "API secret")
}

func (c *importBybitCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.secret == "" {
		c.secret = os.Getenv("BYBIT_API_SECRET")
	}
	return withApp(func(a *app) subcommands.ExitStatus {
		pid, err := resolvePortfolio(ctx, a, c.portfolio)
		if err != nil {
			return report(err)
		}
		if err := a.svc.SelectPortfolio(ctx, pid); err != nil {
			return report(err)
		}
		if _, err := a.svc.ImportExternalKeys(ctx, pid, models.ExternalKeys{APIKey: c.key, APISecret: c.secret}); err != nil {
			return report(err)
		}
		a.printMarkdown(assetsMarkdown(a.svc.Cache().Assets(), ""))
		return subcommands.ExitSuccess
	})
}
