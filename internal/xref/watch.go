package xref

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/gorewood/cadence/internal/output"
)

// Watch invalidates cache entries as files change, until ctx is canceled.
// Every directory under the root is watched; new directories are added as
// they appear. onChange, if non-nil, is called with the changed path after
// invalidation.
func (ix *Index) Watch(ctx context.Context, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return output.NewSystemErrorWithCause("creating file watcher", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := ix.addWatches(watcher, ix.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			ix.handleEvent(watcher, event, onChange)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are transient (overflow, races with deletes);
			// the next full Scan repairs anything missed.
			_ = err
		}
	}
}

func (ix *Index) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event, onChange func(string)) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = ix.addWatches(watcher, event.Name)
			return
		}
	}

	ix.Invalidate(event.Name)
	if onChange != nil {
		onChange(event.Name)
	}
}

// addWatches registers root and every non-skipped directory below it.
func (ix *Index) addWatches(watcher *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return output.NewSystemErrorWithCause("watching source tree", err)
	}
	return nil
}
