package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Negr087/substr/internal/capture"
	"github.com/Negr087/substr/internal/services"
)

// captionPollInterval is how often the watch loop re-evaluates the active
// caption against the simulated playback position.
const captionPollInterval = 250 * time.Millisecond

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var startOffset float64

	cmd := &cobra.Command{
		Use:   "watch <identifier>",
		Short: "Resolve an identifier and stream live captions to the terminal",
		Long: "Resolve the identifier, capture the video's audio from the given offset in\n" +
			"real time, and print each caption as it becomes active. Stop with Ctrl-C.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}
			bundle, err := ctx.newSession(cfg, logger)
			if err != nil {
				return err
			}
			defer bundle.close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := bundle.session.Search(runCtx, args[0])
			if err != nil {
				if !services.HaltsSearch(err) {
					return fmt.Errorf("%w (transient; retrying may succeed)", err)
				}
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (kind %d via %s)\n", result.MediaURL, result.EventKind, result.Relay)
			fmt.Fprintf(out, "Captions in %s; Ctrl-C to stop.\n\n", cfg.TargetLanguageName())

			handle := capture.NewClockHandle(startOffset)
			if _, err := bundle.session.Play(handle); err != nil {
				return err
			}
			defer handle.Halt()

			ticker := time.NewTicker(captionPollInterval)
			defer ticker.Stop()

			var lastShown string
			for {
				select {
				case <-runCtx.Done():
					fmt.Fprintln(out)
					return nil
				case <-ticker.C:
					text, ok := bundle.session.ActiveCaption(handle.Position())
					if !ok || text == lastShown {
						continue
					}
					lastShown = text
					fmt.Fprintf(out, "[%8.1fs] %s\n", handle.Position(), text)
				}
			}
		},
	}

	cmd.Flags().Float64Var(&startOffset, "start", 0, "Playback offset in seconds to begin capturing from")
	return cmd
}
