package workflow

import (
	"context"
	"errors"
	"testing"

	"reel/internal/artifact"
	"reel/internal/config"
	"reel/internal/dispatch"
	"reel/internal/project"
	"reel/internal/reconcile"
	"reel/internal/testsupport"
)

type testHarness struct {
	cfg     *config.Config
	store   *project.Store
	local   *dispatch.LocalDispatcher
	manager *Manager
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *testHarness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	local := dispatch.NewLocalDispatcher(64)
	manager, err := NewManager(Options{
		Config:   cfg,
		Store:    store,
		Verifier: artifact.NewFSVerifier(cfg.Paths.MediaDir),
		Gateway:  local,
		Inbox:    local,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return &testHarness{cfg: cfg, store: store, local: local, manager: manager}
}

func (h *testHarness) createProject(t *testing.T, owner string) *project.Project {
	t.Helper()
	proj, err := h.store.Create(context.Background(), owner, "Test reel", project.OrientationLandscape)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return proj
}

func (h *testHarness) writeClip(t *testing.T, rel string) string {
	t.Helper()
	return testsupport.WriteClip(t, h.cfg, rel)
}

func TestStartGenerationRequiresPrompt(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	_, _, err := h.manager.StartGeneration(context.Background(), "alice", proj.ID, []string{"", "   "})
	if !errors.Is(err, ErrNoPrompts) {
		t.Fatalf("expected ErrNoPrompts, got %v", err)
	}
}

func TestStartGenerationDispatchesAndJoins(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	jobID, existing, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"sunrise", "sunset"})
	if err != nil {
		t.Fatalf("start generation: %v", err)
	}
	if existing || jobID == "" {
		t.Fatalf("unexpected result: jobID=%q existing=%v", jobID, existing)
	}

	stored, err := h.store.GetByID(ctx, proj.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != project.StatusGenerating {
		t.Fatalf("expected generating, got %q", stored.Status)
	}
	if len(stored.Prompts) != 2 {
		t.Fatalf("prompts not persisted: %v", stored.Prompts)
	}

	joined, existing, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"other"})
	if err != nil {
		t.Fatalf("join generation: %v", err)
	}
	if !existing || joined != jobID {
		t.Fatalf("expected join on %q, got %q existing=%v", jobID, joined, existing)
	}

	if got := len(h.local.Dispatched()); got != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", got)
	}
}

func TestStartGenerationRejectsForeignOwner(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	_, _, err := h.manager.StartGeneration(context.Background(), "mallory", proj.ID, []string{"steal"})
	if !errors.Is(err, project.ErrOwnerMismatch) {
		t.Fatalf("expected owner mismatch, got %v", err)
	}
}

func TestHandleEventMergesClipsAndCompletes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	jobID, _, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b"})
	if err != nil {
		t.Fatalf("start generation: %v", err)
	}

	events := []dispatch.Event{
		{Type: dispatch.EventAccepted, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptCount: 2},
		{Type: dispatch.EventPromptCompleted, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 0, Paths: []string{"clips/a.mp4"}},
		{Type: dispatch.EventPromptCompleted, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 0, Paths: []string{"clips/a.mp4"}},
		{Type: dispatch.EventPromptCompleted, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 1, Paths: []string{"clips/b.mp4"}},
		{Type: dispatch.EventCompleted, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, CompletedPrompts: 2},
	}
	for _, evt := range events {
		if err := h.manager.HandleEvent(ctx, evt); err != nil {
			t.Fatalf("handle %s: %v", evt.Type, err)
		}
	}

	stored, err := h.store.GetByID(ctx, proj.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != project.StatusReady {
		t.Fatalf("expected ready, got %q", stored.Status)
	}
	if len(stored.ClipPaths) != 2 {
		t.Fatalf("duplicate delivery inflated clips: %v", stored.ClipPaths)
	}

	hub := h.manager.Broker().Peek(proj.ID)
	if hub == nil {
		t.Fatal("expected progress events on the broker")
	}
	streamed, _ := hub.Tail(0)
	if len(streamed) != len(events) {
		t.Fatalf("expected %d streamed events, got %d", len(events), len(streamed))
	}
}

func TestHandleEventFailureKeepsPartialClips(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	jobID, _, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("start generation: %v", err)
	}

	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 0, Paths: []string{"clips/a.mp4"}})
	if err := h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventFailed, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, CompletedPrompts: 1, FailedPrompts: 2, Error: "backend unavailable"}); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	stored, err := h.store.GetByID(ctx, proj.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != project.StatusError {
		t.Fatalf("expected error status, got %q", stored.Status)
	}
	if len(stored.ClipPaths) != 1 {
		t.Fatalf("partial clips lost: %v", stored.ClipPaths)
	}
	if stored.ErrorMessage == "" {
		t.Fatal("expected error message")
	}
}

func TestRegenerationFromErrorIsAdditive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	jobID, _, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b"})
	if err != nil {
		t.Fatalf("start generation: %v", err)
	}
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 0, Paths: []string{"clips/a.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventFailed, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, Error: "boom"})

	retryID, existing, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b"})
	if err != nil {
		t.Fatalf("retry generation: %v", err)
	}
	if existing || retryID == jobID {
		t.Fatalf("expected a fresh job, got %q existing=%v", retryID, existing)
	}

	stored, err := h.store.GetByID(ctx, proj.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != project.StatusGenerating {
		t.Fatalf("expected generating, got %q", stored.Status)
	}
	if len(stored.ClipPaths) != 1 {
		t.Fatalf("existing clips dropped on retry: %v", stored.ClipPaths)
	}
	if stored.ErrorMessage != "" {
		t.Fatalf("stale error message survived: %q", stored.ErrorMessage)
	}
}

func TestStartStitchValidations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	jobID, _, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b"})
	if err != nil {
		t.Fatalf("start generation: %v", err)
	}

	// Still generating: only one clip so far.
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 0, Paths: []string{"clips/a.mp4"}})
	if _, _, err := h.manager.StartStitch(ctx, "alice", proj.ID); !errors.Is(err, ErrNotEnoughClips) {
		t.Fatalf("expected ErrNotEnoughClips, got %v", err)
	}

	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 1, Paths: []string{"clips/b.mp4"}})
	if _, _, err := h.manager.StartStitch(ctx, "alice", proj.ID); !errors.Is(err, project.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition while generating, got %v", err)
	}
}

func TestStitchLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	genID, _, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b"})
	if err != nil {
		t.Fatalf("start generation: %v", err)
	}
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 0, Paths: []string{"clips/a.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 1, Paths: []string{"clips/b.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID})

	stitchID, existing, err := h.manager.StartStitch(ctx, "alice", proj.ID)
	if err != nil {
		t.Fatalf("start stitch: %v", err)
	}
	if existing {
		t.Fatal("unexpected join on first stitch")
	}

	joined, existing, err := h.manager.StartStitch(ctx, "alice", proj.ID)
	if err != nil {
		t.Fatalf("join stitch: %v", err)
	}
	if !existing || joined != stitchID {
		t.Fatalf("expected join on %q, got %q existing=%v", stitchID, joined, existing)
	}

	if err := h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventCompleted, JobID: stitchID, Kind: dispatch.KindStitch, ProjectID: proj.ID, OutputPath: "outputs/final.mp4"}); err != nil {
		t.Fatalf("handle stitch completed: %v", err)
	}

	stored, err := h.store.GetByID(ctx, proj.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != project.StatusReadyWithOutput {
		t.Fatalf("expected ready_with_output, got %q", stored.Status)
	}
	if stored.OutputPath != "outputs/final.mp4" {
		t.Fatalf("output path not recorded: %q", stored.OutputPath)
	}
	if len(stored.ClipPaths) != 2 {
		t.Fatalf("clips must survive stitching: %v", stored.ClipPaths)
	}
}

func TestStitchFailureSetsError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	genID, _, _ := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b"})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 0, Paths: []string{"clips/a.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 1, Paths: []string{"clips/b.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID})

	stitchID, _, err := h.manager.StartStitch(ctx, "alice", proj.ID)
	if err != nil {
		t.Fatalf("start stitch: %v", err)
	}
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventFailed, JobID: stitchID, Kind: dispatch.KindStitch, ProjectID: proj.ID, Error: "concat failed"})

	stored, _ := h.store.GetByID(ctx, proj.ID)
	if stored.Status != project.StatusError || stored.OutputPath != "" {
		t.Fatalf("unexpected state after stitch failure: %+v", stored)
	}

	// Stitching again from error is an explicit user action and allowed.
	retryID, existing, err := h.manager.StartStitch(ctx, "alice", proj.ID)
	if err != nil {
		t.Fatalf("retry stitch: %v", err)
	}
	if existing || retryID == stitchID {
		t.Fatalf("expected fresh stitch job, got %q existing=%v", retryID, existing)
	}
}

func TestAutoStitchFiresOncePerSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testsupport.WithAutoStitch(true))
	proj := h.createProject(t, "alice")

	genID, _, _ := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b"})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 0, Paths: []string{"clips/a.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 1, Paths: []string{"clips/b.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID})

	messages := h.local.Dispatched()
	if len(messages) != 2 {
		t.Fatalf("expected render + auto stitch dispatches, got %d", len(messages))
	}
	if messages[1].Kind != dispatch.KindStitch {
		t.Fatalf("expected stitch dispatch, got %q", messages[1].Kind)
	}
	stitchID := messages[1].JobID

	stored, _ := h.store.GetByID(ctx, proj.ID)
	if stored.Status != project.StatusStitching {
		t.Fatalf("expected stitching, got %q", stored.Status)
	}

	// The automatic stitch fails; the policy must not fire again.
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventFailed, JobID: stitchID, Kind: dispatch.KindStitch, ProjectID: proj.ID, Error: "concat failed"})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID})

	if got := len(h.local.Dispatched()); got != 2 {
		t.Fatalf("auto-stitch re-fired after failure, %d dispatches", got)
	}
}

func TestAutoStitchRearmsOnFreshGeneration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, testsupport.WithAutoStitch(true))
	proj := h.createProject(t, "alice")

	genID, _, _ := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b"})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 0, Paths: []string{"clips/a.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 1, Paths: []string{"clips/b.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID})

	messages := h.local.Dispatched()
	stitchID := messages[len(messages)-1].JobID
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventFailed, JobID: stitchID, Kind: dispatch.KindStitch, ProjectID: proj.ID, Error: "concat failed"})

	// A fresh generation request clears the once-per-session guard.
	retryID, _, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("retry generation: %v", err)
	}
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: retryID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 2, Paths: []string{"clips/c.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventCompleted, JobID: retryID, Kind: dispatch.KindRender, ProjectID: proj.ID})

	messages = h.local.Dispatched()
	last := messages[len(messages)-1]
	if last.Kind != dispatch.KindStitch || last.JobID == stitchID {
		t.Fatalf("expected a fresh auto stitch, got %+v", last)
	}
}

func TestLoadProjectDetectsInterruption(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	// Simulate a crashed session: claimed clips and in-flight status, but
	// this manager has no live job for the project.
	kept := h.writeClip(t, "clips/a.mp4")
	proj.Prompts = []string{"a", "b", "c"}
	proj.ClipPaths = []string{kept, "clips/b.mp4", "clips/c.mp4"}
	proj.Status = project.StatusGenerating
	if err := h.store.Update(ctx, proj); err != nil {
		t.Fatalf("update: %v", err)
	}

	view, err := h.manager.LoadProject(ctx, "alice", proj.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !view.Interrupted {
		t.Fatal("expected interruption flag")
	}
	if view.Reconciled == nil || view.Reconciled.Action != "corrected" {
		t.Fatalf("expected reconciliation, got %+v", view.Reconciled)
	}
	if len(view.Project.ClipPaths) != 1 || view.Project.ClipPaths[0] != kept {
		t.Fatalf("phantom clips survived load: %v", view.Project.ClipPaths)
	}
}

func TestLoadProjectWithActiveJobIsNotInterrupted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	jobID, _, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b"})
	if err != nil {
		t.Fatalf("start generation: %v", err)
	}

	view, err := h.manager.LoadProject(ctx, "alice", proj.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if view.Interrupted {
		t.Fatal("live generation flagged as interrupted")
	}
	if view.ActiveGenerationJobID != jobID {
		t.Fatalf("expected active job %q, got %q", jobID, view.ActiveGenerationJobID)
	}
}

func TestHandleEventTerminalReplayDoesNotRegress(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	genID, _, _ := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b"})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 0, Paths: []string{"clips/a.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 1, Paths: []string{"clips/b.mp4"}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID})

	// A redelivered failure for the finished job must not flip the project.
	if err := h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventFailed, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, Error: "late"}); err != nil {
		t.Fatalf("replay: %v", err)
	}

	stored, _ := h.store.GetByID(ctx, proj.ID)
	if stored.Status != project.StatusReady {
		t.Fatalf("terminal replay regressed status to %q", stored.Status)
	}
}

func TestReconcileLeavesLiveGenerationAlone(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	genID, _, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a", "b"})
	if err != nil {
		t.Fatalf("start generation: %v", err)
	}
	clipA := h.writeClip(t, "clips/a.mp4")
	clipB := h.writeClip(t, "clips/b.mp4")
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 0, Paths: []string{clipA}})
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventPromptCompleted, JobID: genID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptIndex: 1, Paths: []string{clipB}})

	// Every clip verifies on disk, but the job has not finished. The
	// promotion to ready belongs to the terminal event, not reconciliation.
	report, err := h.manager.Reconcile(ctx, proj.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Action != reconcile.ActionNoChange {
		t.Fatalf("expected no change for a live job, got %+v", report)
	}

	stored, err := h.store.GetByID(ctx, proj.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != project.StatusGenerating {
		t.Fatalf("live generation rewritten to %q", stored.Status)
	}
}

func TestRemoveProjectClearsSessionState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	proj := h.createProject(t, "alice")

	jobID, _, err := h.manager.StartGeneration(ctx, "alice", proj.ID, []string{"a"})
	if err != nil {
		t.Fatalf("start generation: %v", err)
	}
	h.manager.HandleEvent(ctx, dispatch.Event{Type: dispatch.EventAccepted, JobID: jobID, Kind: dispatch.KindRender, ProjectID: proj.ID, PromptCount: 1})

	removed, err := h.manager.RemoveProject(ctx, "alice", proj.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}
	if _, err := h.store.GetByID(ctx, proj.ID); !errors.Is(err, project.ErrNotFound) {
		t.Fatalf("record survived removal: %v", err)
	}
	if _, ok := h.manager.ActiveRenderJob(proj.ID); ok {
		t.Fatal("active job slot survived removal")
	}
	if h.manager.Broker().Peek(proj.ID) != nil {
		t.Fatal("event hub survived removal")
	}

	removed, err = h.manager.RemoveProject(ctx, "alice", proj.ID)
	if err != nil || removed {
		t.Fatalf("second removal: removed=%v err=%v", removed, err)
	}
}
