package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Negr087/substr/internal/media"
	"github.com/Negr087/substr/internal/nostr"
)

type resolveOutput struct {
	EventID  string `json:"event_id"`
	Kind     int    `json:"kind"`
	Relay    string `json:"relay"`
	MediaURL string `json:"media_url,omitempty"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "resolve <identifier>",
		Short: "Resolve a note1/nevent1/hex identifier to its video URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			id, err := nostr.DecodeIdentifier(args[0])
			if err != nil {
				return err
			}

			event, relay, err := ctx.newResolver(cfg, logger).Resolve(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			mediaURL, hasMedia := media.Locate(event)
			if jsonOutput {
				payload := resolveOutput{
					EventID:  event.ID,
					Kind:     event.Kind,
					Relay:    relay,
					MediaURL: mediaURL,
				}
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(payload)
			}

			fmt.Fprintf(out, "Event:    %s\n", event.ID)
			fmt.Fprintf(out, "Kind:     %d\n", event.Kind)
			fmt.Fprintf(out, "Relay:    %s\n", relay)
			if hasMedia {
				fmt.Fprintf(out, "Video:    %s\n", mediaURL)
			} else {
				fmt.Fprintln(out, "Video:    none found in this event")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the result as JSON")
	return cmd
}
