package workflow

import (
	"context"
	"errors"
	"fmt"

	"reel/internal/dispatch"
	"reel/internal/events"
	"reel/internal/logging"
	"reel/internal/project"
	"reel/internal/render"
	"reel/internal/stitch"
)

// Run consumes the worker event inbox until the context ends. Safe to call
// once per manager; redeliveries are absorbed by the trackers.
func (m *Manager) Run(ctx context.Context) error {
	if m.inbox == nil {
		return errors.New("workflow: no inbox configured")
	}
	m.logger.Info("event consumer started")
	go m.broker.Run(ctx)
	err := m.inbox.Consume(ctx, m.HandleEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume events: %w", err)
	}
	return nil
}

// HandleEvent folds one worker lifecycle event into orchestration state.
// It takes the project lock, updates the matching tracker, persists the
// resulting project changes, and republishes the event on the broker.
// Unknown jobs and terminal replays are absorbed silently, so at-least-once
// delivery is safe.
func (m *Manager) HandleEvent(ctx context.Context, event dispatch.Event) error {
	if event.ProjectID == "" || event.JobID == "" {
		return errors.New("workflow: event missing project or job id")
	}

	lock := m.projectLock(event.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	m.logger.Debug("worker event",
		logging.String(logging.FieldProjectID, event.ProjectID),
		logging.String(logging.FieldJobID, event.JobID),
		logging.String(logging.FieldEventType, string(event.Type)))

	var err error
	switch event.Kind {
	case dispatch.KindRender:
		err = m.applyRenderEvent(ctx, event)
	case dispatch.KindStitch:
		err = m.applyStitchEvent(ctx, event)
	default:
		return fmt.Errorf("workflow: unknown job kind %q", event.Kind)
	}
	if err != nil {
		return err
	}

	m.broker.Publish(event.ProjectID, events.FromJobEvent(event))
	return nil
}

func (m *Manager) applyRenderEvent(ctx context.Context, event dispatch.Event) error {
	wasTerminal := false
	if existing, ok := m.renders.Get(event.JobID); ok {
		wasTerminal = existing.Status.Terminal()
	}

	job, err := m.renders.Apply(event)
	if errors.Is(err, render.ErrJobNotFound) {
		m.logger.Warn("event for unknown generation job",
			logging.String(logging.FieldProjectID, event.ProjectID),
			logging.String(logging.FieldJobID, event.JobID))
		return nil
	}
	if err != nil {
		return err
	}
	if wasTerminal {
		return nil
	}

	proj, err := m.store.GetByID(ctx, event.ProjectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			m.logger.Warn("event for deleted project",
				logging.String(logging.FieldProjectID, event.ProjectID))
			return nil
		}
		return err
	}

	changed := false
	if added := proj.MergeClipPaths(job.ProducedPaths); added > 0 {
		changed = true
	}

	switch event.Type {
	case dispatch.EventCompleted:
		if proj.Status == project.StatusGenerating {
			proj.Status = project.StatusReady
			proj.ErrorMessage = ""
			changed = true
		}
	case dispatch.EventFailed:
		if proj.Status == project.StatusGenerating {
			proj.SetFailed(failureMessage("generation", job.Error))
			changed = true
		}
	}

	if changed {
		if err := m.store.Update(ctx, proj); err != nil {
			return err
		}
	}

	switch {
	case event.Type == dispatch.EventCompleted && proj.Status == project.StatusReady:
		m.notify(ctx, proj.ID, func(ctx context.Context) error {
			return m.notifier.NotifyGenerationCompleted(ctx, proj.Title, len(proj.ClipPaths))
		})
		m.maybeAutoStitch(ctx, proj)
	case event.Type == dispatch.EventFailed && proj.Status == project.StatusError:
		m.notify(ctx, proj.ID, func(ctx context.Context) error {
			return m.notifier.NotifyProjectFailed(ctx, proj.Title, proj.ErrorMessage)
		})
	}
	return nil
}

func (m *Manager) applyStitchEvent(ctx context.Context, event dispatch.Event) error {
	wasTerminal := false
	if existing, ok := m.stitches.Get(event.JobID); ok {
		wasTerminal = existing.Status.Terminal()
	}

	job, err := m.stitches.Apply(event)
	if errors.Is(err, stitch.ErrJobNotFound) {
		m.logger.Warn("event for unknown stitch job",
			logging.String(logging.FieldProjectID, event.ProjectID),
			logging.String(logging.FieldJobID, event.JobID))
		return nil
	}
	if err != nil {
		return err
	}
	if wasTerminal || !event.Type.IsTerminal() {
		return nil
	}

	proj, err := m.store.GetByID(ctx, event.ProjectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return nil
		}
		return err
	}
	if proj.Status != project.StatusStitching {
		return nil
	}

	switch event.Type {
	case dispatch.EventCompleted:
		if job.OutputPath == "" {
			proj.SetFailed("stitch completed without an output path")
		} else {
			proj.Status = project.StatusReadyWithOutput
			proj.OutputPath = job.OutputPath
			proj.ErrorMessage = ""
		}
	case dispatch.EventFailed:
		proj.SetFailed(failureMessage("stitch", job.Error))
	}
	if err := m.store.Update(ctx, proj); err != nil {
		return err
	}

	if proj.Status == project.StatusReadyWithOutput {
		m.notify(ctx, proj.ID, func(ctx context.Context) error {
			return m.notifier.NotifyOutputReady(ctx, proj.Title, proj.OutputPath)
		})
	} else {
		m.notify(ctx, proj.ID, func(ctx context.Context) error {
			return m.notifier.NotifyProjectFailed(ctx, proj.Title, proj.ErrorMessage)
		})
	}
	return nil
}

// maybeAutoStitch fires a stitch after a successful generation when the
// policy allows. Each project gets at most one automatic attempt per daemon
// session; a failed automatic stitch is not retried, the user decides.
func (m *Manager) maybeAutoStitch(ctx context.Context, proj *project.Project) {
	if !m.cfg.Workflow.AutoStitch {
		return
	}
	if len(proj.ClipPaths) < m.cfg.Workflow.MinStitchClips || proj.OutputPath != "" {
		return
	}

	m.mu.Lock()
	if _, done := m.attempted[proj.ID]; done {
		m.mu.Unlock()
		return
	}
	m.attempted[proj.ID] = struct{}{}
	m.mu.Unlock()

	jobID, existing, err := m.startStitchLocked(ctx, "", proj.ID)
	if err != nil {
		m.logger.Warn("auto-stitch not started",
			logging.String(logging.FieldProjectID, proj.ID),
			logging.Error(err))
		return
	}
	if !existing {
		m.logger.Info("auto-stitch dispatched",
			logging.String(logging.FieldProjectID, proj.ID),
			logging.String(logging.FieldJobID, jobID))
	}
}

// notify delivers a best-effort push notification. Delivery failures are
// logged and never block event handling.
func (m *Manager) notify(ctx context.Context, projectID string, send func(context.Context) error) {
	if err := send(ctx); err != nil {
		m.logger.Warn("notification failed",
			logging.String(logging.FieldProjectID, projectID),
			logging.Error(err))
	}
}

func failureMessage(stage, detail string) string {
	if detail == "" {
		return stage + " failed"
	}
	return stage + " failed: " + detail
}
