// Command expco-fetcher runs the experiment coordinator's S3I inbox
// daemon: it authenticates the configured Thing against the S3I
// identity provider and periodically drains its message and event
// queues into a local inbox database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HomerusJa/experiment-coordinator-dashboard/internal/config"
	"github.com/HomerusJa/experiment-coordinator-dashboard/internal/fetcher"
	"github.com/HomerusJa/experiment-coordinator-dashboard/internal/logging"
	"github.com/HomerusJa/experiment-coordinator-dashboard/internal/store"
	"github.com/HomerusJa/experiment-coordinator-dashboard/s3i"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting expco-fetcher",
		"version", Version,
		"client_id", cfg.ClientID,
		"fetch_interval", cfg.FetchInterval,
		"store_path", cfg.StorePath,
	)

	// One transport shared by the authenticator and the broker client.
	// Owned here, released on shutdown.
	httpClient := &http.Client{Timeout: 30 * time.Second}
	defer httpClient.CloseIdleConnections()

	thing := s3i.NewThing(logger, cfg.ClientID, cfg.ClientSecret, cfg.MessageQueue, cfg.EventQueue)

	auth := s3i.NewAuthenticator(
		s3i.ClientCredentialsGrant{ID: thing.ID, Secret: thing.Secret},
		httpClient,
		cfg.IdPURL,
		logger,
	)

	broker := s3i.NewBrokerClient(thing, auth, httpClient, cfg.BrokerURL, logger)

	inbox, err := store.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("opening inbox store: %w", err)
	}
	defer inbox.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	f := fetcher.New(broker, inbox, logger)

	g.Go(func() error {
		return f.Run(ctx, cfg.FetchInterval)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetch loop: %w", err)
	}

	logger.Info("expco-fetcher stopped")

	return nil
}
