// Package main runs the in-memory stub of the ledger gateway for local development.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledger-sync/internal/api"
	"github.com/ledger-sync/internal/config"
	"github.com/ledger-sync/internal/logging"
	"github.com/ledger-sync/internal/models"
	"github.com/ledger-sync/internal/types"
	"github.com/shopspring/decimal"
)

const version = "0.1.0"

// seedTickers gives a fresh stub something to price against
var seedTickers = []struct {
	symbol string
	last   string
	pcnt   string
}{
	{"BTCUSDT", "64250.5", "0.0125"},
	{"ETHUSDT", "3120.75", "-0.0087"},
	{"SOLUSDT", "148.32", "0.034"},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()

	store := api.NewStore(cfg.StubGateway.DefaultPassword)
	for _, t := range seedTickers {
		store.SetTicker(types.CategorySpot, models.Quote{
			Symbol:       t.symbol,
			LastPrice:    decimal.RequireFromString(t.last),
			Price24hPcnt: decimal.RequireFromString(t.pcnt),
		})
	}
	if cfg.StubGateway.DemoEmail != "" && cfg.StubGateway.DemoPassword != "" {
		store.AddUser(cfg.StubGateway.DemoEmail, cfg.StubGateway.DemoPassword)
		logger.WithField("email", cfg.StubGateway.DemoEmail).Info("Demo user seeded")
	}

	serverConfig := &api.ServerConfig{
		Host:            cfg.StubGateway.Host,
		Port:            cfg.StubGateway.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    cfg.StubGateway.RateLimitRPS,
		RateLimitBurst:  cfg.StubGateway.RateLimitBurst,
		TokenTTL:        cfg.StubGateway.TokenTTL,
		Version:         version,
	}
	server := api.NewServer(serverConfig, store, logger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Stub gateway failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Stub gateway forced to shutdown")
	}
	logger.Info("Stub gateway exited")
}
