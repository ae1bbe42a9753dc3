package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semdex/indexer"
	"github.com/c360studio/semdex/query"
	"github.com/c360studio/semdex/server"
)

func serveCmd(app *appEnv) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP and NATS",
		Long: `Serve the query API.

The vault is indexed at startup. With watching enabled the index follows
file changes. NATS endpoints and identifier snapshot persistence
activate when nats.url is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.setup(); err != nil {
				return err
			}
			if cmd.Flags().Changed("watch") {
				app.cfg.Watch.Enabled = watch
			}
			return runServe(cmd.Context(), app)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Watch the vault for changes (overrides config)")

	return cmd
}

func runServe(parent context.Context, app *appEnv) error {
	// Print banner
	printBanner()

	cfg := app.cfg
	logger := app.logger

	// Setup signal handling
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := query.NewService(query.WithLogger(logger))
	ix := indexer.New(svc, cfg.Vault, logger)

	// Restore the identifier snapshot before the rebuild so a fresh scan
	// always wins over persisted state.
	var natsServer *server.NATSServer
	if cfg.NATS.URL != "" {
		var err error
		natsServer, err = server.NewNATSServer(svc, cfg.NATS.URL, cfg.NATS.SnapshotBucket, logger)
		if err != nil {
			return err
		}
		if err := natsServer.Start(ctx); err != nil {
			return err
		}
	}

	errCh := make(chan error, 2)

	if cfg.Watch.Enabled {
		w, err := indexer.NewWatcher(cfg.Watch, cfg.Vault.Path, logger)
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		go func() {
			errCh <- ix.Run(ctx, w)
		}()
	} else {
		result, err := ix.Rebuild(ctx)
		if err != nil {
			return err
		}
		logger.Info("Vault indexed",
			"documents", result.Documents,
			"triples", result.Triples,
			"identifiers", result.Identifiers)
	}

	httpServer := server.NewHTTP(svc, cfg.HTTP.Addr, logger)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info("Semdex ready",
		"version", Version,
		"vault", cfg.Vault.Path,
		"http_addr", cfg.HTTP.Addr,
		"watch", cfg.Watch.Enabled,
		"nats", cfg.NATS.URL != "")

	// Block until shutdown signal or server failure
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Server failed", "error", err)
			runErr = err
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown failed", "error", err)
	}
	if natsServer != nil {
		if err := natsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("NATS shutdown failed", "error", err)
		}
	}

	logger.Info("Semdex shutdown complete")
	return runErr
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║              Semdex v" + Version + "                    ║")
	fmt.Println("║          Vault Query Engine                   ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}
