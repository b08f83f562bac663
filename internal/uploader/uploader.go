// Package uploader mirrors a local directory into the binaries of one
// Geocore object, and fetches binaries back into it.
package uploader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/geocore/internal/checksum"
	"github.com/starford/geocore/internal/storage"
	"github.com/starford/geocore/pkg/geocore"
)

const settleDelay = 200 * time.Millisecond

// Binaries is the part of the SDK the uploader needs.
// *geocore.BinaryService satisfies it.
type Binaries interface {
	Upload(ctx context.Context, ref geocore.BinaryRef, data []byte) (*geocore.BinaryInfo, error)
}

// Result reports one upload attempt.
type Result struct {
	Path string
	Key  string
	Info *geocore.BinaryInfo
	Err  error
}

// Callback is called after every upload attempt.
type Callback func(Result)

// Options selects what is uploaded and where.
type Options struct {
	ObjectID  string
	KeyPrefix string
	// Extensions limits uploads to these extensions, compared case
	// insensitively. Empty means every file.
	Extensions []string
}

// Uploader uploads new and changed files under a storage root.
type Uploader struct {
	binaries Binaries
	store    storage.Provider
	opts     Options
	sums     *checksum.Set
	log      *slog.Logger

	mu     sync.Mutex
	owners map[string]string // key -> first path uploaded under it
	cb       Callback
}

// New creates an Uploader. cb may be nil.
func New(b Binaries, store storage.Provider, opts Options, logger *slog.Logger, cb Callback) *Uploader {
	exts := make([]string, 0, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts = append(exts, strings.ToLower(e))
	}
	opts.Extensions = exts
	return &Uploader{
		binaries: b,
		store:    store,
		opts:     opts,
		sums:     checksum.NewSet(),
		owners:   make(map[string]string),
		log:      logger.With(slog.String("component", "uploader")),
		cb:       cb,
	}
}

// Key maps a relative path to its binary key: separators become "_" and
// the extension is dropped. "photos/2024/a.png" is "photos_2024_a".
func (u *Uploader) Key(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return u.opts.KeyPrefix + strings.ReplaceAll(rel, "/", "_")
}

// Match reports whether rel has an accepted extension.
func (u *Uploader) Match(rel string) bool {
	if strings.HasPrefix(filepath.Base(rel), ".") {
		return false
	}
	if len(u.opts.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(rel))
	for _, e := range u.opts.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// MimeType guesses the MIME type from the extension, then from content.
func MimeType(rel string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(rel)); t != "" {
		return t
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return geocore.DefaultMimeType
}

// Reconcile uploads every matching file whose content was not uploaded
// yet. Upload failures are reported through the callback and do not stop
// the pass.
func (u *Uploader) Reconcile(ctx context.Context) error {
	files, err := u.store.List("", u.Match)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	for _, f := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		u.uploadIfChanged(ctx, f.Path)
	}
	u.log.Debug("reconciled",
		slog.Int("files", len(files)),
		slog.Int("tracked", u.sums.Len()))
	return nil
}

// UploadFile uploads rel unless its content is unchanged since the last
// successful upload. It reports whether an upload happened.
func (u *Uploader) UploadFile(ctx context.Context, rel string) (bool, error) {
	res, uploaded := u.uploadIfChanged(ctx, rel)
	return uploaded, res.Err
}

func (u *Uploader) uploadIfChanged(ctx context.Context, rel string) (Result, bool) {
	res := Result{Path: rel, Key: u.Key(rel)}

	if owner, ok := u.claim(res.Key, rel); !ok {
		res.Err = fmt.Errorf("key %q already used by %s", res.Key, owner)
		u.report(res)
		return res, false
	}

	data, err := u.store.Read(rel)
	if err != nil {
		res.Err = err
		u.report(res)
		return res, false
	}
	sum := checksum.Sum(data)
	if !u.sums.Changed(res.Key, sum) {
		return res, false
	}

	ref := geocore.ObjectBinary(u.opts.ObjectID, res.Key)
	ref.MimeType = MimeType(rel, data)
	res.Info, res.Err = u.binaries.Upload(ctx, ref, data)
	if res.Err == nil {
		u.sums.Record(res.Key, sum)
		u.log.Info("uploaded",
			slog.String("path", rel),
			slog.String("key", res.Key),
			slog.Int("bytes", len(data)))
	}
	u.report(res)
	return res, res.Err == nil
}

// claim binds key to rel. A key stays with the first path that used it,
// so files differing only in extension do not overwrite each other.
func (u *Uploader) claim(key, rel string) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if owner, ok := u.owners[key]; ok && owner != rel {
		return owner, false
	}
	u.owners[key] = rel
	return rel, true
}

func (u *Uploader) report(res Result) {
	if res.Err != nil {
		u.log.Warn("upload failed",
			slog.String("path", res.Path),
			slog.String("key", res.Key),
			slog.String("error", res.Err.Error()))
	}
	if u.cb != nil {
		u.cb(res)
	}
}

// Watch reconciles the root, then uploads files as they are created or
// written until ctx is cancelled. New directories are watched as they
// appear. Removed files are left on the server.
func (u *Uploader) Watch(ctx context.Context) error {
	root, err := u.store.Abs("")
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	if err := u.Reconcile(ctx); err != nil {
		return err
	}

	u.log.Info("watcher: started", slog.String("root", root))

	// Writes arrive in bursts; a path is uploaded once it has been quiet
	// for settleDelay.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settleDelay / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.log.Info("watcher: stopped")
			return nil

		case now := <-ticker.C:
			for rel, at := range pending {
				if now.Sub(at) >= settleDelay {
					delete(pending, rel)
					u.uploadIfChanged(ctx, rel)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						u.log.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					u.queueDir(root, ev.Name, pending)
					continue
				}
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || !u.Match(rel) {
				continue
			}
			pending[rel] = time.Now()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			u.log.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// queueDir schedules files that landed in a new directory before it was
// watched.
func (u *Uploader) queueDir(root, dir string, pending map[string]time.Time) {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			u.log.Warn("watcher: scan new dir failed",
				slog.String("path", p),
				slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr == nil && u.Match(rel) {
			pending[rel] = time.Now()
		}
		return nil
	})
	if err != nil {
		u.log.Warn("watcher: scan new dir failed",
			slog.String("path", dir),
			slog.String("error", err.Error()))
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
