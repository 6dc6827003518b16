package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reel/internal/api"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage production projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newProjectListCommand(ctx))
	cmd.AddCommand(newProjectCreateCommand(ctx))
	cmd.AddCommand(newProjectShowCommand(ctx))
	cmd.AddCommand(newProjectEditCommand(ctx))
	cmd.AddCommand(newProjectRemoveCommand(ctx))
	return cmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			projects, err := client.ListProjects(cmd.Context(), statusFilters...)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects.")
				return nil
			}
			rows := make([][]string, 0, len(projects))
			for _, proj := range projects {
				rows = append(rows, []string{
					proj.ID,
					proj.Title,
					proj.Orientation,
					proj.Status,
					strconv.Itoa(len(proj.Prompts)),
					strconv.Itoa(len(proj.ClipPaths)),
					proj.OutputPath,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Orientation", "Status", "Prompts", "Clips", "Output"},
				rows, 4, 5,
			))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (repeatable)")
	return cmd
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	var orientation string
	var prompts []string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a draft project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			proj, err := client.CreateProject(cmd.Context(), api.CreateProjectRequest{
				Title:       args[0],
				Orientation: orientation,
				Prompts:     prompts,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, proj)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", proj.ID, proj.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&orientation, "orientation", "", "Orientation: landscape, portrait, or square")
	cmd.Flags().StringArrayVar(&prompts, "prompt", nil, "Add a scene prompt (repeatable)")
	return cmd
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project with live job state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}
			renderProjectView(cmd, view)
			return nil
		},
	}
	return cmd
}

func renderProjectView(cmd *cobra.Command, view api.ProjectView) {
	out := cmd.OutOrStdout()
	proj := view.Project
	fmt.Fprintf(out, "%s  [%s]\n", proj.Title, proj.Status)
	fmt.Fprintf(out, "  ID:          %s\n", proj.ID)
	fmt.Fprintf(out, "  Owner:       %s\n", proj.Owner)
	fmt.Fprintf(out, "  Orientation: %s\n", proj.Orientation)
	fmt.Fprintf(out, "  Prompts:     %d\n", len(proj.Prompts))
	fmt.Fprintf(out, "  Clips:       %d\n", len(proj.ClipPaths))
	if proj.OutputPath != "" {
		fmt.Fprintf(out, "  Output:      %s\n", proj.OutputPath)
	}
	if proj.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:       %s\n", proj.ErrorMessage)
	}
	if view.ActiveGenerationJobID != "" {
		fmt.Fprintf(out, "  Generating:  job %s\n", view.ActiveGenerationJobID)
	}
	if view.ActiveStitchJobID != "" {
		fmt.Fprintf(out, "  Stitching:   job %s\n", view.ActiveStitchJobID)
	}
	if view.Interrupted {
		fmt.Fprintln(out, "  Interrupted: previous work was lost; run `reel generate` to resume")
	}
	if report := view.Reconciliation; report != nil && report.Action == "corrected" {
		fmt.Fprintf(out, "  Reconciled:  %s -> %s (%d missing clip(s))\n",
			report.OriginalStatus, report.CorrectedStatus, len(report.MissingPaths))
	}
}

func newProjectEditCommand(ctx *commandContext) *cobra.Command {
	var title string
	var orientation string
	var prompts []string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a draft project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.UpdateProjectRequest{}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("orientation") {
				req.Orientation = &orientation
			}
			if cmd.Flags().Changed("prompt") {
				req.Prompts = &prompts
			}
			if req.Title == nil && req.Orientation == nil && req.Prompts == nil {
				return fmt.Errorf("nothing to edit; pass --title, --orientation, or --prompt")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			proj, err := client.UpdateProject(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, proj)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s\n", proj.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&orientation, "orientation", "", "New orientation")
	cmd.Flags().StringArrayVar(&prompts, "prompt", nil, "Replace the prompt list (repeatable)")
	return cmd
}

func newProjectRemoveCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a project record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.RemoveProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed project %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var prompts []string
	cmd := &cobra.Command{
		Use:   "generate <id>",
		Short: "Start (or resume) clip generation for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Generate(cmd.Context(), args[0], prompts)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			if resp.Existing {
				fmt.Fprintf(cmd.OutOrStdout(), "Generation already running (job %s)\n", resp.JobID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Generation started (job %s)\n", resp.JobID)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&prompts, "prompt", nil, "Scene prompt (repeatable; defaults to the stored prompts)")
	return cmd
}

func newStitchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stitch <id>",
		Short: "Assemble a project's clips into the final output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.Stitch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			if resp.Existing {
				fmt.Fprintf(cmd.OutOrStdout(), "Stitch already running (job %s)\n", resp.JobID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Stitch started (job %s)\n", resp.JobID)
			}
			return nil
		},
	}
	return cmd
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs <id>",
		Short: "Show a project's active jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			jobs, err := client.Jobs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active jobs.")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				progress := ""
				if job.Kind == "render" {
					progress = fmt.Sprintf("%d/%d", job.CompletedPrompts, job.PromptCount)
				} else {
					progress = fmt.Sprintf("%d clips", job.ClipCount)
				}
				rows = append(rows, []string{job.ID, job.Kind, job.Status, progress})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Job", "Kind", "Status", "Progress"}, rows, 3,
			))
			return nil
		},
	}
	return cmd
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <id>",
		Short: "Verify a project's artifacts and correct its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			report, err := client.Reconcile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			if report.Action == "no-change" {
				fmt.Fprintf(out, "Project %s is consistent (%d clip(s) verified)\n",
					report.ProjectID, report.VerifiedClipCount)
				return nil
			}
			fmt.Fprintf(out, "Project %s corrected: %s -> %s\n",
				report.ProjectID, report.OriginalStatus, report.CorrectedStatus)
			if len(report.MissingPaths) > 0 {
				fmt.Fprintf(out, "Missing artifacts:\n  %s\n", strings.Join(report.MissingPaths, "\n  "))
			}
			return nil
		},
	}
	return cmd
}
