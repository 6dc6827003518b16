package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"reel/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd, status)
			return nil
		},
	}
	return cmd
}

func renderStatus(cmd *cobra.Command, status api.DaemonStatus) {
	out := cmd.OutOrStdout()
	state := "stopped"
	if status.Running {
		state = fmt.Sprintf("running (pid %d)", status.PID)
	}
	fmt.Fprintf(out, "Daemon:    %s\n", state)
	fmt.Fprintf(out, "Database:  %s\n", status.DatabasePath)
	fmt.Fprintf(out, "Lock file: %s\n", status.LockFilePath)
	dispatcher := "local"
	if status.RedisEnabled {
		dispatcher = "redis"
	}
	fmt.Fprintf(out, "Dispatch:  %s\n", dispatcher)
	if db := status.Database; db.Error != "" {
		fmt.Fprintf(out, "Health:    degraded (%s)\n", db.Error)
	} else if !status.Database.IntegrityCheck {
		fmt.Fprintln(out, "Health:    integrity check failed")
	} else {
		fmt.Fprintln(out, "Health:    ok")
	}
	if len(status.ProjectCounts) == 0 {
		return
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		rows := statusRows(status.ProjectCounts)
		fmt.Fprintln(out, renderTable([]string{"Status", "Projects"}, rows, 1))
		return
	}
	for _, row := range statusRows(status.ProjectCounts) {
		fmt.Fprintf(out, "%s\t%s\n", row[0], row[1])
	}
}

func statusRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		if key == "total" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys)+1)
	for _, key := range keys {
		rows = append(rows, []string{key, strconv.Itoa(counts[key])})
	}
	rows = append(rows, []string{"total", strconv.Itoa(counts["total"])})
	return rows
}
