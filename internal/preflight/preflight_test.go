package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reawwise/internal/connection"
	"reawwise/internal/services"
	"reawwise/internal/testsupport"
	"reawwise/internal/waapi"
	"reawwise/internal/workstation"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckWAAPI_OK(t *testing.T) {
	fake := testsupport.NewFakeWAAPI("")
	router := testsupport.NewRouter(t, fake)

	result := CheckWAAPI(context.Background(), waapi.Options{URL: router.URL(), Serializer: "json"})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "paste properties") {
		t.Fatalf("expected capabilities in detail, got %q", result.Detail)
	}
}

func TestCheckWAAPI_Unreachable(t *testing.T) {
	router := testsupport.NewRouter(t, testsupport.NewFakeWAAPI(""))
	router.SetAccepting(false)

	result := CheckWAAPI(context.Background(), waapi.Options{URL: router.URL(), Serializer: "json"})
	if result.Passed {
		t.Fatal("expected failure when the router refuses connections")
	}
}

func TestCheckWAAPI_MissingURL(t *testing.T) {
	if result := CheckWAAPI(context.Background(), waapi.Options{}); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.yaml")
	if result := CheckManifest(context.Background(), path); result.Passed {
		t.Fatal("expected failure for missing manifest")
	}

	if err := workstation.WriteManifest(path, workstation.Manifest{Session: "drums"}); err != nil {
		t.Fatal(err)
	}
	if result := CheckManifest(context.Background(), path); result.Passed {
		t.Fatal("expected failure for manifest without targets")
	}

	if err := workstation.WriteManifest(path, workstation.Manifest{
		Session: "drums",
		Targets: []workstation.Target{{File: "kick.wav"}},
	}); err != nil {
		t.Fatal(err)
	}
	result := CheckManifest(context.Background(), path)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, `"drums"`) {
		t.Fatalf("expected session name in detail, got %q", result.Detail)
	}
}

func TestCheckRenderCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "render.yaml")
	manifest := workstation.Manifest{Session: "drums", Targets: []workstation.Target{{File: "kick.wav"}}}
	if err := workstation.WriteManifest(path, manifest); err != nil {
		t.Fatal(err)
	}
	if result := CheckRenderCommand(context.Background(), path); !result.Passed {
		t.Fatalf("expected pass without a render command, got: %s", result.Detail)
	}

	manifest.RenderCommand = []string{"./render.sh", "--all"}
	if err := workstation.WriteManifest(path, manifest); err != nil {
		t.Fatal(err)
	}
	if result := CheckRenderCommand(context.Background(), path); result.Passed {
		t.Fatal("expected failure for missing render script")
	}

	if err := os.WriteFile(filepath.Join(dir, "render.sh"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	result := CheckRenderCommand(context.Background(), path)
	if !result.Passed {
		t.Fatalf("expected pass once the script exists, got: %s", result.Detail)
	}
	if result.Detail != filepath.Join(dir, "render.sh") {
		t.Fatalf("unexpected resolved command %q", result.Detail)
	}
}

func TestForTransfer(t *testing.T) {
	dir := t.TempDir()
	kick := filepath.Join(dir, "kick.wav")
	if err := os.WriteFile(kick, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	items := []workstation.Item{{AudioFile: kick}}

	results := ForTransfer(dir, items, false)
	if len(results) != 2 {
		t.Fatalf("expected originals and files checks, got %d", len(results))
	}
	if err := Failed(results); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}

	if results := ForTransfer(filepath.Join(dir, "missing"), items, true); len(results) != 1 {
		t.Fatalf("embedded transfers skip the originals check, got %d results", len(results))
	}

	items = append(items, workstation.Item{AudioFile: filepath.Join(dir, "snare.wav")})
	err := Failed(ForTransfer(dir, items, false))
	if err == nil || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unreadable file, got %v", err)
	}
	if !strings.Contains(err.Error(), "snare.wav") {
		t.Fatalf("expected missing file in error, got %v", err)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_Config(t *testing.T) {
	router := testsupport.NewRouter(t, testsupport.NewFakeWAAPI(""))
	cfg := testsupport.NewConfig(t, testsupport.WithRouter(router))
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.Session.Manifest = ""

	results := RunAll(context.Background(), cfg)
	// Should have the state directory and WAAPI checks
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestConnectionStatus(t *testing.T) {
	connected := ConnectionStatus(connection.Snapshot{
		State:   connection.Connected,
		Address: "ws://127.0.0.1:8080/waapi",
		Info:    waapi.Info{Version: waapi.Version{DisplayName: "v2023.1.0"}},
		Project: waapi.ProjectInfo{Name: "Game"},
	})
	if !connected.Passed || !strings.Contains(connected.Detail, "project Game") {
		t.Fatalf("unexpected connected status %+v", connected)
	}

	down := ConnectionStatus(connection.Snapshot{
		State:     connection.Disconnected,
		Address:   "ws://127.0.0.1:8080/waapi",
		Failures:  3,
		RetryIn:   4 * time.Second,
		LastError: "connection refused",
	})
	if down.Passed {
		t.Fatal("expected disconnected status to fail")
	}
	for _, want := range []string{"3 attempts", "4s", "connection refused"} {
		if !strings.Contains(down.Detail, want) {
			t.Fatalf("detail %q missing %q", down.Detail, want)
		}
	}
}
