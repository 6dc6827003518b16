package artifact_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reel/internal/artifact"
)

func newStore(t *testing.T, files ...string) *artifact.FSVerifier {
	t.Helper()
	root := t.TempDir()
	for _, rel := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return artifact.NewFSVerifier(root)
}

func TestExists(t *testing.T) {
	verifier := newStore(t, "proj-1/clips/a.mp4")
	ctx := context.Background()

	ok, err := verifier.Exists(ctx, "proj-1/clips/a.mp4")
	if err != nil || !ok {
		t.Fatalf("expected clip to exist: ok=%v err=%v", ok, err)
	}
	ok, err = verifier.Exists(ctx, "proj-1/clips/missing.mp4")
	if err != nil || ok {
		t.Fatalf("expected clip to be missing: ok=%v err=%v", ok, err)
	}
	// A directory is not an artifact.
	ok, err = verifier.Exists(ctx, "proj-1/clips")
	if err != nil || ok {
		t.Fatalf("directory should not count as artifact: ok=%v err=%v", ok, err)
	}
}

func TestListReturnsSortedRelativePaths(t *testing.T) {
	verifier := newStore(t,
		"proj-1/clips/b.mp4",
		"proj-1/clips/a.mp4",
		"proj-2/clips/c.mp4",
	)

	paths, err := verifier.List(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"proj-1/clips/a.mp4", "proj-1/clips/b.mp4"}
	if len(paths) != len(want) {
		t.Fatalf("unexpected paths: %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, paths)
		}
	}
}

func TestListMissingPrefixIsEmpty(t *testing.T) {
	verifier := newStore(t)
	paths, err := verifier.List(context.Background(), "absent")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected empty list, got %v", paths)
	}
}

func TestRejectsEscapingPaths(t *testing.T) {
	verifier := newStore(t)
	ctx := context.Background()

	if _, err := verifier.Exists(ctx, "../outside"); !errors.Is(err, artifact.ErrPathOutsideStore) {
		t.Fatalf("expected ErrPathOutsideStore, got %v", err)
	}
	if _, err := verifier.List(ctx, "/etc"); !errors.Is(err, artifact.ErrPathOutsideStore) {
		t.Fatalf("expected ErrPathOutsideStore, got %v", err)
	}
}
