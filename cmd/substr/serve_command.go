package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/Negr087/substr/internal/logging"
	"github.com/Negr087/substr/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: "Serve the viewer-facing HTTP API: the same-origin video proxy, the\n" +
			"transcription endpoint, session status, and caption history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			lockPath := filepath.Join(cfg.Logging.Dir, "substr.lock")
			lock := flock.New(lockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock %s: %w", lockPath, err)
			}
			if !locked {
				return errors.New("another substr server is already running")
			}
			defer func() { _ = lock.Unlock() }()

			bundle, err := ctx.newSession(cfg, logger)
			if err != nil {
				return err
			}
			defer bundle.close()

			bind := cfg.Server.Bind
			if bindFlag != "" {
				bind = bindFlag
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(bind, bundle.session, bundle.transcriber, logger)
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "substr API listening on http://%s\n", srv.Addr())

			<-runCtx.Done()
			logger.Info("shutting down", logging.String("reason", "signal"))
			srv.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&bindFlag, "bind", "", "Listen address (overrides the configured server.bind)")
	return cmd
}
