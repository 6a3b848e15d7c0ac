package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/ledger-sync/internal/config"
	lerrors "github.com/ledger-sync/internal/errors"
	"github.com/ledger-sync/internal/gateway"
	"github.com/ledger-sync/internal/logging"
	"github.com/ledger-sync/internal/service"
	"github.com/ledger-sync/internal/session"
	"github.com/ledger-sync/internal/types"
)

var (
	sessionFile = flag.String("session-file", defaultSessionFile(), "File holding the bearer token between invocations")
	verbose     = flag.Bool("v", false, "Log every gateway call")
	plain       = flag.Bool("plain", false, "Print raw markdown instead of rendering it")
)

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".ledgerctl-session"
	}
	return filepath.Join(dir, "ledgerctl", "session")
}

// app bundles what every subcommand needs
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	svc    *service.LedgerService
	out    io.Writer
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	if !*verbose {
		logger.SetLevel(logging.LevelError)
	}

	// SESSION_TOKEN wins over the stored session and is never written to disk
	var holder session.Holder
	if cfg.Session.Token != "" {
		holder = session.NewMemoryHolder(cfg.Session.Token)
	} else {
		fh, err := session.NewFileHolder(*sessionFile)
		if err != nil {
			return nil, fmt.Errorf("reading session file: %w", err)
		}
		holder = fh
	}
	sess := session.NewContext(holder, func() {
		fmt.Fprintln(os.Stderr, "Session expired, run `ledgerctl login` again.")
	})

	client, err := gateway.NewClient(&gateway.ClientConfig{
		BaseURL:        cfg.Gateway.BaseURL,
		HTTPClient:     &http.Client{Timeout: cfg.Gateway.HTTPTimeout},
		Session:        sess,
		RateLimitRPS:   cfg.Gateway.RateLimitRPS,
		RateLimitBurst: cfg.Gateway.RateLimitBurst,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		svc:    service.NewLedgerService(client, sess, types.QuoteCategory(cfg.Quote.Category), logger),
		out:    os.Stdout,
	}, nil
}

// withApp builds the app or reports why it could not
func withApp(run func(a *app) subcommands.ExitStatus) subcommands.ExitStatus {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return run(a)
}

// report prints err inline and picks the exit status
func report(err error) subcommands.ExitStatus {
	result := service.Outcome(err)
	if result.OK {
		return subcommands.ExitSuccess
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", result.Message)
	if lerrors.IsValidation(err) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

func (a *app) printMarkdown(md string) {
	if *plain {
		fmt.Fprint(a.out, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Fprint(a.out, md)
		return
	}
	rendered, err := r.Render(md)
	if err != nil {
		fmt.Fprint(a.out, md)
		return
	}
	fmt.Fprint(a.out, rendered)
}

func requireFlag(name, value string) bool {
	if value == "" {
		fmt.Fprintf(os.Stderr, "Error: -%s is required\n", name)
		return false
	}
	return true
}
