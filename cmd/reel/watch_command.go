package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reel/internal/api"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var since uint64
	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow a project's progress events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.streamClient()
			if err != nil {
				return err
			}
			cursor := since
			for {
				page, err := client.Events(cmd.Context(), args[0], cursor, 100, true)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				for _, evt := range page.Events {
					if ctx.jsonOutput() {
						if err := writeJSON(cmd, evt); err != nil {
							return err
						}
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), formatEvent(evt))
					}
					if terminalEvent(evt.Type) {
						return nil
					}
				}
				cursor = page.Next
			}
		},
	}
	cmd.Flags().Uint64Var(&since, "since", 0, "Resume after this sequence number")
	return cmd
}

func terminalEvent(eventType string) bool {
	return eventType == "completed" || eventType == "failed"
}

func formatEvent(evt api.ProgressEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  #%d %s", evt.Timestamp, evt.Sequence, evt.Type)
	if evt.JobKind != "" {
		fmt.Fprintf(&b, " (%s)", evt.JobKind)
	}
	switch evt.Type {
	case "prompt-completed":
		fmt.Fprintf(&b, " prompt %d", evt.PromptIndex)
		if evt.PromptCount > 0 {
			fmt.Fprintf(&b, " [%d/%d]", evt.CompletedPrompts, evt.PromptCount)
		}
		if len(evt.Paths) > 0 {
			fmt.Fprintf(&b, " -> %s", strings.Join(evt.Paths, ", "))
		}
	case "prompt-failed":
		fmt.Fprintf(&b, " prompt %d", evt.PromptIndex)
		if evt.Error != "" {
			fmt.Fprintf(&b, ": %s", evt.Error)
		}
	case "completed":
		if evt.OutputPath != "" {
			fmt.Fprintf(&b, " -> %s", evt.OutputPath)
		} else if len(evt.Paths) > 0 {
			fmt.Fprintf(&b, " -> %d clip(s)", len(evt.Paths))
		}
	case "failed":
		if evt.Error != "" {
			fmt.Fprintf(&b, ": %s", evt.Error)
		}
	}
	return b.String()
}
