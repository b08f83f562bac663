package uploader

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/geocore/internal/testutil"
	"github.com/starford/geocore/pkg/geocore"
)

type fakeDownloader struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeDownloader) Download(_ context.Context, _ geocore.BinaryRef) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func TestFetch_WritesAndSkipsUnchanged(t *testing.T) {
	dir, store := uploaderTestEnv(t)
	d := &fakeDownloader{data: []byte("menu v1")}

	written, err := Fetch(context.Background(), d, store, "PLA-1", "menu", filepath.Join("docs", "menu.pdf"))
	if err != nil || !written {
		t.Fatalf("first fetch: written=%v err=%v", written, err)
	}
	got, _ := os.ReadFile(filepath.Join(dir, "docs", "menu.pdf"))
	if string(got) != "menu v1" {
		t.Errorf("content = %q", got)
	}

	written, err = Fetch(context.Background(), d, store, "PLA-1", "menu", filepath.Join("docs", "menu.pdf"))
	if err != nil || written {
		t.Errorf("unchanged fetch: written=%v err=%v", written, err)
	}

	d.data = []byte("menu v2")
	written, err = Fetch(context.Background(), d, store, "PLA-1", "menu", filepath.Join("docs", "menu.pdf"))
	if err != nil || !written {
		t.Errorf("changed fetch: written=%v err=%v", written, err)
	}
}

func TestFetch_DownloadErrorWritesNothing(t *testing.T) {
	dir, store := uploaderTestEnv(t)
	d := &fakeDownloader{err: errors.New("offline")}

	if _, err := Fetch(context.Background(), d, store, "PLA-1", "menu", "menu.pdf"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(filepath.Join(dir, "menu.pdf")); !os.IsNotExist(err) {
		t.Errorf("file written after failed download: %v", err)
	}
}

func TestFetch_RejectsEscape(t *testing.T) {
	_, store := uploaderTestEnv(t)
	d := &fakeDownloader{data: []byte("x")}

	if _, err := Fetch(context.Background(), d, store, "PLA-1", "k", filepath.Join("..", "out.bin")); err == nil {
		t.Error("expected traversal to be rejected")
	}
}

func TestFetch_ThroughClient(t *testing.T) {
	dir, store := uploaderTestEnv(t)

	srv := testutil.NewServer(t)
	srv.Handle(http.MethodGet, "/objs/{id}/bins/{key}/url", testutil.Success(map[string]any{"url": srv.URL + "/files/logo.png"}))
	srv.Handle(http.MethodGet, "/files/logo.png", testutil.Raw(http.StatusOK, "png-bytes"))
	client, err := geocore.New(geocore.Config{BaseURL: srv.URL, ProjectID: "PRO-TEST"}, geocore.WithLogger(testLogger()))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Fetch(context.Background(), client.Binaries, store, "PLA-1", "logo", "logo.png"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	got, _ := os.ReadFile(filepath.Join(dir, "logo.png"))
	if string(got) != "png-bytes" {
		t.Errorf("content = %q", got)
	}
}
