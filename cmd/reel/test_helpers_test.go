package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"reel/internal/artifact"
	"reel/internal/daemon"
	"reel/internal/dispatch"
	"reel/internal/testsupport"
	"reel/internal/workflow"
)

type cliTestEnv struct {
	addr       string
	dispatcher *dispatch.LocalDispatcher
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
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

	d, err := daemon.New(cfg, store, manager, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})

	return &cliTestEnv{addr: d.Addr(), dispatcher: local}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--owner", "tester"}
	if env != nil {
		flags = append(flags, "--server", env.addr)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
