package events

import (
	"time"

	"reel/internal/dispatch"
)

// ProgressEvent is one entry on a project's progress stream.
type ProgressEvent struct {
	Sequence         uint64            `json:"seq"`
	Timestamp        time.Time         `json:"ts"`
	Type             string            `json:"type"`
	ProjectID        string            `json:"project_id"`
	JobID            string            `json:"job_id"`
	JobKind          string            `json:"job_kind,omitempty"`
	PromptIndex      int               `json:"prompt_index,omitempty"`
	PromptCount      int               `json:"prompt_count,omitempty"`
	CompletedPrompts int               `json:"completed_prompts,omitempty"`
	FailedPrompts    int               `json:"failed_prompts,omitempty"`
	Paths            []string          `json:"paths,omitempty"`
	OutputPath       string            `json:"output_path,omitempty"`
	Error            string            `json:"error,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// Terminal reports whether the event ends its job.
func (e ProgressEvent) Terminal() bool {
	return e.Type == string(dispatch.EventCompleted) || e.Type == string(dispatch.EventFailed)
}

// FromJobEvent converts an inbox lifecycle event into a progress event.
func FromJobEvent(event dispatch.Event) ProgressEvent {
	return ProgressEvent{
		Timestamp:        event.OccurredAt,
		Type:             string(event.Type),
		ProjectID:        event.ProjectID,
		JobID:            event.JobID,
		JobKind:          string(event.Kind),
		PromptIndex:      event.PromptIndex,
		PromptCount:      event.PromptCount,
		CompletedPrompts: event.CompletedPrompts,
		FailedPrompts:    event.FailedPrompts,
		Paths:            event.Paths,
		OutputPath:       event.OutputPath,
		Error:            event.Error,
	}
}
