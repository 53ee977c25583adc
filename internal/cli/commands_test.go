package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyike/StockScout/config"
)

func TestRootCmdLoadsConfigThroughManager(t *testing.T) {
	dir := t.TempDir()
	contents := fmt.Sprintf(`{
  "project_dir": %q,
  "data_dir": %q,
  "data_cache_dir": %q,
  "server_host": "127.0.0.1",
  "server_port": 9321,
  "llm_base_url": "https://api.openai.com/v1",
  "default_max_iterations": 2,
  "default_timeout_seconds": 15,
  "max_concurrent_tickers": 3,
  "news_max_articles": 5,
  "conversation_ttl_minutes": 10,
  "sweep_interval_seconds": 30,
  "event_buffer_size": 64,
  "drain_window_seconds": 2
}`, dir, filepath.Join(dir, "data"), filepath.Join(dir, "data", "cache"))
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config-dir", dir, "version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	got := config.Get()
	if got.ServerPort != 9321 {
		t.Fatalf("expected port 9321 from config.json, got %d", got.ServerPort)
	}
	if got.DefaultTimeoutSeconds != 15 || got.MaxConcurrentTickers != 3 {
		t.Fatalf("expected file-backed analysis defaults, got %+v", got)
	}
	if got.DataDir != filepath.Join(dir, "data") {
		t.Fatalf("expected data dir inside %s, got %s", dir, got.DataDir)
	}
}

func TestRootCmdSeedsConfigFileOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PROJECT_DIR", dir)
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("DATA_CACHE_DIR", filepath.Join(dir, "data", "cache"))

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config-dir", dir, "version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("expected config.json to be created: %v", err)
	}
}
