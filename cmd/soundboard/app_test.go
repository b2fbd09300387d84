package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"soundboard-gateway/config"
	"soundboard-gateway/control"

	"github.com/alicebob/miniredis/v2"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Recency.Backend = config.BackendFile
	cfg.Recency.Path = filepath.Join(t.TempDir(), "recent.json")
	cfg.Server.AccessLog = false
	return cfg
}

func TestBuildApp_ServesStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body["server"] != "running" {
		t.Fatalf("unexpected status response: %d %v", resp.StatusCode, body)
	}
}

func TestBuildApp_SQLiteBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recency.Backend = config.BackendSQLite
	cfg.Recency.Path = filepath.Join(t.TempDir(), "soundboard.db")

	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := a.recents.Record(context.Background(), "a.mp3"); err != nil {
		t.Fatalf("record: %v", err)
	}
	a.Close()

	b, err := buildApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	defer b.Close()
	if got := b.recents.Snapshot(); got.Count != 1 || got.Sounds[0].Filename != "a.mp3" {
		t.Fatalf("expected persisted entry after restart, got %+v", got)
	}
}

func TestBuildApp_RedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Recency.Backend = config.BackendRedis
	cfg.Stats.Backend = config.BackendRedis
	cfg.Redis.Addr = mr.Addr()

	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	if _, err := a.recents.Record(context.Background(), "a.mp3"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !mr.Exists(cfg.Recency.RedisKey) {
		t.Fatalf("expected recent list in redis")
	}
}

func TestBuildApp_RedisUnreachableFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Stats.Backend = config.BackendRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	if _, err := buildApp(context.Background(), cfg); err == nil {
		t.Fatalf("expected redis ping error")
	}
}

func TestApp_ToggleFileDrivesQuota(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.ToggleFile = filepath.Join(t.TempDir(), "ratelimit.toggle")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := control.WriteToggle(cfg.RateLimit.ToggleFile, false); err != nil {
		t.Fatalf("write toggle: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for a.quotas.Enabled() {
		if time.Now().After(deadline) {
			t.Fatalf("expected quota to be disabled by toggle file")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "soundboard ") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	t.Setenv("SOUNDBOARD_RATE_MAX_REQUESTS", "-1")
	cmd := newRootCommand()
	cmd.SetArgs([]string{"serve", "--config", filepath.Join(t.TempDir(), "missing.toml")})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected config error")
	}
}
