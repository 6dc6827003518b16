package preflight_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"reel/internal/preflight"
	"reel/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	res := preflight.CheckDirectoryAccess("Media directory", dir)
	if !res.Passed {
		t.Fatalf("expected writable temp dir to pass, got %+v", res)
	}

	res = preflight.CheckDirectoryAccess("Media directory", filepath.Join(dir, "missing"))
	if res.Passed {
		t.Fatalf("expected missing dir to fail, got %+v", res)
	}
}

func TestCheckNtfy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	res := preflight.CheckNtfy(context.Background(), server.URL)
	if !res.Passed {
		t.Fatalf("expected reachable endpoint to pass, got %+v", res)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such topic", http.StatusNotFound)
	}))
	defer failing.Close()

	res = preflight.CheckNtfy(context.Background(), failing.URL)
	if res.Passed {
		t.Fatalf("expected 404 endpoint to fail, got %+v", res)
	}
}

func TestRunAllSkipsDisabledFeatures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Dispatch.RedisAddr = ""
	cfg.Notifications.NtfyTopic = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := preflight.RunAll(context.Background(), cfg)
	if len(results) != 3 {
		t.Fatalf("expected only the three directory checks, got %d: %+v", len(results), results)
	}
	if failed := preflight.Failed(results); len(failed) != 0 {
		t.Fatalf("expected all directory checks to pass, got %+v", failed)
	}
}
