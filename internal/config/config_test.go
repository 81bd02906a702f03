package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", FileName, err)
	}
	return path
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, root, `
[filter]
color = "off"
arch = "arm64"
target = "/tmp/build.lock"
excluded_suffixes = [".pch"]

[server]
socket = "/tmp/build.sock"
expect = 4
max_conns = 2
journal = "build.journal"
`)

	file, found, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !found {
		t.Fatalf("expected config to be found")
	}
	if file.Root != root {
		t.Errorf("Root = %q, want %q", file.Root, root)
	}
	cfg := file.Config
	if cfg.Filter.Arch != "arm64" || cfg.Filter.Color != "off" || cfg.Filter.Target != "/tmp/build.lock" {
		t.Errorf("unexpected filter config: %+v", cfg.Filter)
	}
	if len(cfg.Filter.ExcludedSuffixes) != 1 || cfg.Filter.ExcludedSuffixes[0] != ".pch" {
		t.Errorf("unexpected suffixes: %v", cfg.Filter.ExcludedSuffixes)
	}
	if cfg.Server.Socket != "/tmp/build.sock" || cfg.Server.Expect != 4 || cfg.Server.MaxConns != 2 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestDiscoverNotFound(t *testing.T) {
	_, found, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	// A stray outmux.toml above the temp dir would make this flaky; accept
	// either outcome but never an error.
	_ = found
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[server]\nsokcet = \"/tmp/x\"\n")

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "sokcet") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadRejectsNegativeExpect(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[server]\nexpect = -1\n")

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for negative expect")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[server\n")

	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
