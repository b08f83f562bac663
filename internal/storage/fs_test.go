package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/geocore/internal/checksum"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte{0x89, 'P', 'N', 'G'}
	if err := s.Write("logo.png", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("logo.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("a/b/c.jpg", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.jpg")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("a.png", []byte("a"))
	_ = s.Write("sub/b.png", []byte("b"))
	_ = s.Write("readme.txt", []byte("text"))

	all, err := s.List("", nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3", len(all))
	}

	pngs, err := s.List("", func(p string) bool { return strings.HasSuffix(p, ".png") })
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pngs) != 2 {
		t.Fatalf("len = %d, want 2", len(pngs))
	}
	for _, f := range pngs {
		if f.Checksum == "" || f.Size != 1 {
			t.Errorf("incomplete metadata: %+v", f)
		}
	}
}

func TestListSkipsTempFiles(t *testing.T) {
	s := tempRoot(t)
	_ = os.WriteFile(filepath.Join(s.Root(), ".geocore-tmp-123"), []byte("partial"), 0o644)

	files, err := s.List("", nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("temp file listed: %+v", files)
	}
}

func TestStat(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("sub/x.bin", []byte("xyz"))

	f, err := s.Stat("sub/x.bin")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if f.Path != filepath.Join("sub", "x.bin") {
		t.Errorf("path = %q", f.Path)
	}
	if f.Checksum != checksum.Sum([]byte("xyz")) {
		t.Errorf("checksum = %q", f.Checksum)
	}
	if _, err := s.Stat("sub"); err == nil {
		t.Error("expected error for directory")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.png",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.png", []byte("original"))

	if err := s.Write("atomic.png", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.png")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, tempPattern))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	_ = os.WriteFile(f, nil, 0o644)
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}
