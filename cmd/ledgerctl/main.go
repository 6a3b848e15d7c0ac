// Package main provides ledgerctl, a command line front end for the ledger engine.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&loginCmd{}, "session")
	commander.Register(&logoutCmd{}, "session")

	commander.Register(&portfoliosCmd{}, "portfolios")
	commander.Register(&visibilityCmd{}, "portfolios")
	commander.Register(&importBybitCmd{}, "portfolios")

	commander.Register(&assetsCmd{}, "assets")
	commander.Register(&addAssetCmd{}, "assets")
	commander.Register(&holdingsCmd{}, "assets")

	commander.Register(&addTxCmd{}, "transactions")
	commander.Register(&editTxCmd{}, "transactions")
	commander.Register(&rmTxCmd{}, "transactions")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
