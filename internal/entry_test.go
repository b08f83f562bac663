package internal

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/geocore/internal/testutil"
	"github.com/starford/geocore/internal/uploader"
)

func watchConfig(t *testing.T, api *testutil.Server) *Config {
	t.Helper()
	cfg := validConfig()
	cfg.Geocore.BaseURL = api.URL
	cfg.Geocore.DeviceID = "device-1"
	cfg.Uploader.Dir = filepath.Join(t.TempDir(), "uploads")
	cfg.Uploader.ObjectID = "PLA-1"
	return cfg
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestRun_UnknownMode(t *testing.T) {
	err := Run(context.Background(), WithConfig(validConfig()), WithMode("serve"), WithLogOutput(io.Discard))
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Fatalf("err = %v, want unknown mode", err)
	}
}

func TestRun_WatchNeedsObjectID(t *testing.T) {
	api := testutil.NewServer(t)
	cfg := watchConfig(t, api)
	cfg.Uploader.ObjectID = ""

	err := Run(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard))
	if err == nil || !strings.HasPrefix(err.Error(), "uploader:") {
		t.Fatalf("err = %v, want uploader validation error", err)
	}
	if n := len(api.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestRun_WatchLoginFailure(t *testing.T) {
	api := testutil.NewServer(t)
	api.Handle(http.MethodPost, "/auth", testutil.Failure("Auth.0002", "bad password"))

	err := Run(context.Background(), WithConfig(watchConfig(t, api)), WithLogOutput(io.Discard))
	if err == nil || !strings.HasPrefix(err.Error(), "login:") {
		t.Fatalf("err = %v, want login error", err)
	}
}

func TestRun_WatchUploadsExistingFiles(t *testing.T) {
	api := testutil.NewServer(t)
	api.Handle(http.MethodPost, "/auth", testutil.Success(map[string]any{"token": "tok-1"}))
	api.Handle(http.MethodPost, "/objs/{id}/bins/{key}", testutil.Success(map[string]any{"key": "menu"}))

	cfg := watchConfig(t, api)
	if err := os.MkdirAll(cfg.Uploader.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Uploader.Dir, "menu.txt"), []byte("coffee"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan uploader.Result, 4)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx,
			WithConfig(cfg),
			WithMode(ModeWatch),
			WithLogOutput(io.Discard),
			WithUploadCallback(func(r uploader.Result) { results <- r }),
		)
	}()

	select {
	case r := <-results:
		if r.Err != nil {
			t.Fatalf("upload failed: %v", r.Err)
		}
		if r.Key != "menu" {
			t.Errorf("key = %q, want menu", r.Key)
		}
	case err := <-done:
		t.Fatalf("run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no upload within 5s")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}

	last := api.Last(t)
	if last.Path != "/objs/PLA-1/bins/menu" {
		t.Errorf("path = %q", last.Path)
	}
	if tok := last.Header.Get("Geocore-Access-Token"); tok != "tok-1" {
		t.Errorf("token header = %q", tok)
	}
}
