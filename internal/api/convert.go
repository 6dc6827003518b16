package api

import (
	"errors"
	"strings"

	"reel/internal/dispatch"
	"reel/internal/events"
	"reel/internal/project"
	"reel/internal/reconcile"
	"reel/internal/render"
	"reel/internal/stitch"
	"reel/internal/workflow"
)

// FromProject converts a project record to its API representation.
func FromProject(proj *project.Project) Project {
	if proj == nil {
		return Project{}
	}
	dto := Project{
		ID:           proj.ID,
		Owner:        proj.Owner,
		Title:        proj.Title,
		Orientation:  string(proj.Orientation),
		Status:       string(proj.Status),
		Prompts:      append([]string(nil), proj.Prompts...),
		ClipPaths:    append([]string(nil), proj.ClipPaths...),
		OutputPath:   proj.OutputPath,
		ErrorMessage: proj.ErrorMessage,
	}
	if !proj.CreatedAt.IsZero() {
		dto.CreatedAt = proj.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !proj.UpdatedAt.IsZero() {
		dto.UpdatedAt = proj.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromProjects converts a slice of project records into API DTOs.
func FromProjects(projects []*project.Project) []Project {
	if len(projects) == 0 {
		return nil
	}
	out := make([]Project, 0, len(projects))
	for _, proj := range projects {
		out = append(out, FromProject(proj))
	}
	return out
}

// FromView converts a reconciled workflow view.
func FromView(view *workflow.ProjectView) ProjectView {
	if view == nil {
		return ProjectView{}
	}
	dto := ProjectView{
		Project:               FromProject(view.Project),
		ActiveGenerationJobID: view.ActiveGenerationJobID,
		ActiveStitchJobID:     view.ActiveStitchJobID,
		Interrupted:           view.Interrupted,
	}
	if view.Reconciled != nil {
		report := FromReport(*view.Reconciled)
		dto.Reconciliation = &report
	}
	return dto
}

// FromRenderJob converts a generation job record.
func FromRenderJob(job render.Job) Job {
	dto := Job{
		ID:               job.ID,
		ProjectID:        job.ProjectID,
		Kind:             string(dispatch.KindRender),
		Status:           string(job.Status),
		PromptCount:      job.PromptCount,
		CompletedPrompts: job.CompletedPrompts,
		FailedPrompts:    job.FailedPrompts,
		Error:            job.Error,
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromStitchJob converts a stitch job record.
func FromStitchJob(job stitch.Job) Job {
	dto := Job{
		ID:         job.ID,
		ProjectID:  job.ProjectID,
		Kind:       string(dispatch.KindStitch),
		Status:     string(job.Status),
		ClipCount:  job.ClipCount,
		OutputPath: job.OutputPath,
		Error:      job.Error,
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromReport converts a reconciliation report.
func FromReport(report reconcile.Report) ReconciliationReport {
	return ReconciliationReport{
		ProjectID:         report.ProjectID,
		OriginalStatus:    report.OriginalStatus,
		CorrectedStatus:   report.CorrectedStatus,
		ClaimedClipCount:  report.ClaimedClipCount,
		VerifiedClipCount: report.VerifiedClipCount,
		MissingPaths:      append([]string(nil), report.MissingPaths...),
		Action:            string(report.Action),
	}
}

// FromReports converts a reconciliation sweep.
func FromReports(reports []reconcile.Report) []ReconciliationReport {
	if len(reports) == 0 {
		return nil
	}
	out := make([]ReconciliationReport, 0, len(reports))
	for _, report := range reports {
		out = append(out, FromReport(report))
	}
	return out
}

// FromProgressEvent converts a stream event.
func FromProgressEvent(evt events.ProgressEvent) ProgressEvent {
	dto := ProgressEvent{
		Sequence:         evt.Sequence,
		Type:             evt.Type,
		ProjectID:        evt.ProjectID,
		JobID:            evt.JobID,
		JobKind:          evt.JobKind,
		PromptIndex:      evt.PromptIndex,
		PromptCount:      evt.PromptCount,
		CompletedPrompts: evt.CompletedPrompts,
		FailedPrompts:    evt.FailedPrompts,
		Paths:            append([]string(nil), evt.Paths...),
		OutputPath:       evt.OutputPath,
		Error:            evt.Error,
	}
	if !evt.Timestamp.IsZero() {
		dto.Timestamp = evt.Timestamp.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromProgressEvents converts a page of stream events.
func FromProgressEvents(evts []events.ProgressEvent) []ProgressEvent {
	if len(evts) == 0 {
		return nil
	}
	out := make([]ProgressEvent, 0, len(evts))
	for _, evt := range evts {
		out = append(out, FromProgressEvent(evt))
	}
	return out
}

// FromHealth converts store diagnostics.
func FromHealth(health project.DatabaseHealth) DatabaseHealth {
	return DatabaseHealth{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		TableExists:      health.TableExists,
		IntegrityCheck:   health.IntegrityCheck,
		TotalProjects:    health.TotalProjects,
		Error:            health.Error,
	}
}

// StatCounts flattens a stats summary into named counts.
func StatCounts(stats project.StatsSummary) map[string]int {
	return map[string]int{
		"total":      stats.Total,
		"draft":      stats.Draft,
		"generating": stats.Generating,
		"ready":      stats.Ready,
		"stitching":  stats.Stitching,
		"completed":  stats.Completed,
		"errored":    stats.Errored,
	}
}

// ToJobEvent validates an HTTP-ingested event and converts it to the inbox
// envelope.
func ToJobEvent(req IngestEventRequest) (dispatch.Event, error) {
	eventType, ok := dispatch.ParseEventType(req.Type)
	if !ok {
		return dispatch.Event{}, errors.New("unknown event type " + strings.TrimSpace(req.Type))
	}
	kind := dispatch.JobKind(strings.TrimSpace(req.Kind))
	if kind != dispatch.KindRender && kind != dispatch.KindStitch {
		return dispatch.Event{}, errors.New("unknown job kind " + string(kind))
	}
	if strings.TrimSpace(req.JobID) == "" || strings.TrimSpace(req.ProjectID) == "" {
		return dispatch.Event{}, errors.New("jobId and projectId are required")
	}
	return dispatch.Event{
		Type:             eventType,
		JobID:            strings.TrimSpace(req.JobID),
		Kind:             kind,
		ProjectID:        strings.TrimSpace(req.ProjectID),
		PromptIndex:      req.PromptIndex,
		PromptCount:      req.PromptCount,
		CompletedPrompts: req.CompletedPrompts,
		FailedPrompts:    req.FailedPrompts,
		Paths:            req.Paths,
		OutputPath:       strings.TrimSpace(req.OutputPath),
		Error:            strings.TrimSpace(req.Error),
	}, nil
}
