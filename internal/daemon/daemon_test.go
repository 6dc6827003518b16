package daemon

import (
	"context"
	"testing"

	"reel/internal/artifact"
	"reel/internal/dispatch"
	"reel/internal/project"
	"reel/internal/testsupport"
	"reel/internal/workflow"
)

func newTestDaemon(t *testing.T) (*Daemon, *project.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	local := dispatch.NewLocalDispatcher(16)
	manager, err := workflow.NewManager(workflow.Options{
		Config:   cfg,
		Store:    store,
		Verifier: artifact.NewFSVerifier(cfg.Paths.MediaDir),
		Gateway:  local,
		Inbox:    local,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	d, err := New(cfg, store, manager, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if d.Addr() == "" {
		t.Fatal("expected api listen address")
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running status")
	}
	if status.DatabasePath == "" || status.LockFilePath == "" {
		t.Fatalf("incomplete status: %+v", status)
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected stopped status")
	}
}

func TestDaemonSecondStartFails(t *testing.T) {
	d, _ := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}
}

func TestDaemonStartRepairsDrift(t *testing.T) {
	d, store := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A previous session died mid-generation: the record claims clips that
	// were never written.
	proj, err := store.Create(ctx, "alice", "Stale reel", project.OrientationLandscape)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	proj.Prompts = []string{"a", "b"}
	proj.ClipPaths = []string{"clips/a.mp4", "clips/b.mp4"}
	proj.Status = project.StatusGenerating
	if err := store.Update(ctx, proj); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	repaired, err := store.GetByID(ctx, proj.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if repaired.Status != project.StatusDraft {
		t.Fatalf("expected draft after startup sweep, got %q", repaired.Status)
	}
	if len(repaired.ClipPaths) != 0 {
		t.Fatalf("phantom clips survived startup: %v", repaired.ClipPaths)
	}
}
