package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reel/internal/config"
	"reel/internal/project"
)

// MustOpenStore opens a project store against the test config and registers
// cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *project.Store {
	t.Helper()

	store, err := project.Open(cfg)
	if err != nil {
		t.Fatalf("open project store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// WriteClip creates a clip file under the config media dir and returns its
// store-relative path.
func WriteClip(t testing.TB, cfg *config.Config, rel string) string {
	t.Helper()

	full := filepath.Join(cfg.Paths.MediaDir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", full, err)
	}
	if err := os.WriteFile(full, []byte("clip"), 0o644); err != nil {
		t.Fatalf("write clip %s: %v", full, err)
	}
	return rel
}
