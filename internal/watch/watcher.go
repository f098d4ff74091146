package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	derrors "git.home.luguber.info/inful/docsite/internal/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
)

// Watcher monitors the docs tree and the manifest file for changes and
// relays relevant paths to a notify callback. fsnotify watches are not
// recursive, so every directory under the docs root is registered
// individually and new directories are added as they appear.
type Watcher struct {
	fsw          *fsnotify.Watcher
	docsDir      string
	manifestPath string
	notify       func(path string)
}

// NewWatcher registers watches for docsDir (recursively) and the directory
// holding the manifest. Watching the directory rather than the file itself
// survives editors that replace files on save.
func NewWatcher(docsDir, manifestPath string, notify func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryWatch, "failed to create file watcher")
	}
	absManifest, err := filepath.Abs(manifestPath)
	if err != nil {
		fsw.Close()
		return nil, derrors.WrapError(err, derrors.CategoryWatch, "failed to resolve manifest path")
	}
	absDocs, err := filepath.Abs(docsDir)
	if err != nil {
		fsw.Close()
		return nil, derrors.WrapError(err, derrors.CategoryWatch, "failed to resolve docs directory")
	}

	w := &Watcher{
		fsw:          fsw,
		docsDir:      absDocs,
		manifestPath: absManifest,
		notify:       notify,
	}
	if err := w.addRecursive(absDocs); err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absManifest)); err != nil {
		fsw.Close()
		return nil, derrors.WrapError(err, derrors.CategoryWatch, "failed to watch manifest directory")
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		return w.fsw.Add(path)
	})
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryWatch, "failed to watch docs tree")
	}
	return nil
}

// Run relays filesystem events until ctx is done or the watcher closes.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
		}
	}
	if !w.relevant(event) {
		return
	}
	slog.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
	w.notify(event.Name)
}

// relevant filters noise: only content-affecting operations on the manifest
// or files inside the docs tree count, and editor droppings are ignored.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	if event.Name == w.manifestPath {
		return true
	}
	rel, err := filepath.Rel(w.docsDir, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	return true
}

// Close shuts down the underlying fsnotify watcher; Run exits afterwards.
func (w *Watcher) Close() error { return w.fsw.Close() }
