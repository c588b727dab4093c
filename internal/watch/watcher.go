package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher feeds filesystem events from the recordings tree to an Uploader.
// fsnotify does not watch recursively, so every subdirectory is registered
// explicitly, including ones created while running.
type Watcher struct {
	dir      string
	uploader *Uploader
}

// NewWatcher creates a watcher over dir.
func NewWatcher(dir string, uploader *Uploader) *Watcher {
	return &Watcher{dir: dir, uploader: uploader}
}

// Run blocks until ctx is cancelled, processing each finished recording as
// it appears. airband writes .tmp files and renames them to .mp3 once
// complete, so a .mp3 create event always refers to a fully written file.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %v", err)
	}
	defer fsw.Close()

	if err := addRecursive(fsw, w.dir); err != nil {
		return err
	}
	log.Printf("[sync] Watcher started on %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}

			info, err := os.Stat(ev.Name)
			if err != nil {
				continue // rename source, or already gone
			}

			if info.IsDir() {
				if err := addRecursive(fsw, ev.Name); err != nil {
					log.Printf("[sync] ERROR watching new directory %s: %v", ev.Name, err)
				}
				continue
			}

			if !isRecording(ev.Name) {
				continue
			}
			log.Printf("[sync] New recording: %s", ev.Name)
			if err := w.uploader.Process(ctx, ev.Name); err != nil {
				log.Printf("[sync] ERROR failed to process %s: %v", ev.Name, err)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[sync] Watcher error: %v", err)
		}
	}
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
