package workflow

import (
	"context"

	"reel/internal/logging"
	"reel/internal/project"
	"reel/internal/reconcile"
	"reel/internal/render"
	"reel/internal/stitch"
)

// ActiveRenderJob returns the project's in-flight generation job, if any.
func (m *Manager) ActiveRenderJob(projectID string) (render.Job, bool) {
	return m.renders.Active(projectID)
}

// ActiveStitchJob returns the project's in-flight stitch job, if any.
func (m *Manager) ActiveStitchJob(projectID string) (stitch.Job, bool) {
	return m.stitches.Active(projectID)
}

// ProjectView is a project snapshot enriched with live orchestration state.
type ProjectView struct {
	Project               *project.Project
	ActiveGenerationJobID string
	ActiveStitchJobID     string
	// Interrupted marks a project whose persisted status claims in-flight
	// work this daemon session knows nothing about, typically after a
	// crash. The user must resume explicitly.
	Interrupted bool
	Reconciled  *reconcile.Report
}

// LoadProject returns a reconciled view of the project. Projects claiming
// clips or in-flight work are verified against the artifact store before
// being reported, so the caller never sees phantom artifacts.
func (m *Manager) LoadProject(ctx context.Context, owner, projectID string) (*ProjectView, error) {
	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	proj, err := m.store.GetOwned(ctx, owner, projectID)
	if err != nil {
		return nil, err
	}

	view := &ProjectView{Project: proj}
	if job, ok := m.renders.Active(projectID); ok {
		view.ActiveGenerationJobID = job.ID
	}
	if job, ok := m.stitches.Active(projectID); ok {
		view.ActiveStitchJobID = job.ID
	}

	// While a live job runs, claimed state is in flux and the tracker owns
	// the truth; reconciliation waits for the terminal event.
	liveJob := view.ActiveGenerationJobID != "" || view.ActiveStitchJobID != ""
	needsReconcile := !liveJob && (len(proj.ClipPaths) > 0 || proj.OutputPath != "" ||
		proj.Status == project.StatusGenerating ||
		proj.Status == project.StatusStitching)
	if needsReconcile {
		report, err := m.reconciler.Run(ctx, projectID)
		if err != nil {
			return nil, err
		}
		view.Reconciled = &report
		if report.Changed() {
			proj, err = m.store.GetByID(ctx, projectID)
			if err != nil {
				return nil, err
			}
			view.Project = proj
		}
	}

	view.Interrupted = (proj.Status == project.StatusGenerating && view.ActiveGenerationJobID == "") ||
		(proj.Status == project.StatusStitching && view.ActiveStitchJobID == "")
	return view, nil
}

// RemoveProject deletes the project record and drops every piece of session
// state held for it: active-job slots, the auto-stitch guard, and the
// progress event hub. Reports whether a record was removed.
func (m *Manager) RemoveProject(ctx context.Context, owner, projectID string) (bool, error) {
	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	removed, err := m.store.Remove(ctx, owner, projectID)
	if err != nil || !removed {
		return removed, err
	}

	m.renders.Forget(projectID)
	m.stitches.Forget(projectID)
	m.broker.Drop(projectID)
	m.mu.Lock()
	delete(m.attempted, projectID)
	m.mu.Unlock()
	return true, nil
}

// Reconcile runs a verification pass for one project under its lock. A
// project with a live job is reported as-is without verification, so a
// concurrent reconcile request never rewinds in-flight work.
func (m *Manager) Reconcile(ctx context.Context, projectID string) (reconcile.Report, error) {
	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	_, renderBusy := m.renders.Active(projectID)
	_, stitchBusy := m.stitches.Active(projectID)
	if renderBusy || stitchBusy {
		proj, err := m.store.GetByID(ctx, projectID)
		if err != nil {
			return reconcile.Report{}, err
		}
		return reconcile.Report{
			ProjectID:         proj.ID,
			OriginalStatus:    string(proj.Status),
			CorrectedStatus:   string(proj.Status),
			ClaimedClipCount:  len(proj.ClipPaths),
			VerifiedClipCount: len(proj.ClipPaths),
			Action:            reconcile.ActionNoChange,
		}, nil
	}

	return m.reconciler.Run(ctx, projectID)
}

// ReconcileAll sweeps every project, taking each project's lock in turn.
// Per-project failures are logged and skipped so one unreachable artifact
// set does not abort the sweep.
func (m *Manager) ReconcileAll(ctx context.Context) ([]reconcile.Report, error) {
	projects, err := m.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]reconcile.Report, 0, len(projects))
	for _, proj := range projects {
		report, err := m.Reconcile(ctx, proj.ID)
		if err != nil {
			m.logger.Warn("reconcile sweep skipped project",
				logging.String(logging.FieldProjectID, proj.ID),
				logging.Error(err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}
