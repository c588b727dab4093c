// Package watch implements the realtime uploader: it watches the airband
// recordings directory, ships finished recordings to object storage, and
// notifies the API so they enter the transcription queue.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atcscribe/asr-worker/internal/api"
	"github.com/atcscribe/asr-worker/internal/storage"
)

// Notifier announces an uploaded recording to the API.
type Notifier interface {
	Ingest(ctx context.Context, objectKey string, sizeBytes int64, durationSec *float64) (*api.IngestResponse, error)
}

// Uploader processes one recording end to end: derive the object key, probe
// duration, upload, notify the API, and record the upload in the ledger.
type Uploader struct {
	baseDir     string
	prefix      string
	store       ObjectStore
	notifier    Notifier
	ledger      *storage.Ledger
	ffprobePath string // empty: skip duration probing
}

// NewUploader wires an uploader to its collaborators.
func NewUploader(baseDir, prefix string, store ObjectStore, notifier Notifier, ledger *storage.Ledger, ffprobePath string) *Uploader {
	return &Uploader{
		baseDir:     baseDir,
		prefix:      prefix,
		store:       store,
		notifier:    notifier,
		ledger:      ledger,
		ffprobePath: ffprobePath,
	}
}

// ObjectKey maps a recording path to its bucket key: the path relative to
// the watch root in forward-slash form, under the optional prefix.
func (u *Uploader) ObjectKey(filePath string) (string, error) {
	rel, err := filepath.Rel(u.baseDir, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("file %s is not under %s", filePath, u.baseDir)
	}

	key := filepath.ToSlash(rel)
	if u.prefix != "" {
		key = u.prefix + "/" + key
	}
	return key, nil
}

// Process uploads one recording. Recordings already present in the ledger
// are skipped, which makes Process safe to call from both the filesystem
// watcher and the startup catch-up scan.
func (u *Uploader) Process(ctx context.Context, filePath string) error {
	objectKey, err := u.ObjectKey(filePath)
	if err != nil {
		return err
	}

	if done, err := u.ledger.Has(objectKey); err != nil {
		return err
	} else if done {
		return nil
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("stat %s: %v", filePath, err)
	}
	sizeBytes := info.Size()

	var durationSec *float64
	if u.ffprobePath != "" {
		durationSec, err = ProbeDuration(ctx, u.ffprobePath, filePath)
		if err != nil {
			log.Printf("[sync] WARN ffprobe error for %s: %v", filePath, err)
		}
	}

	log.Printf("[sync] Uploading %s (%d bytes)", objectKey, sizeBytes)
	if err := u.store.Upload(ctx, objectKey, filePath); err != nil {
		return fmt.Errorf("upload %s: %v", objectKey, err)
	}

	resp, err := u.notifier.Ingest(ctx, objectKey, sizeBytes, durationSec)
	if err != nil {
		return fmt.Errorf("notify API for %s: %v", objectKey, err)
	}
	if resp.Created {
		log.Printf("[sync] Created transmission ID %d", resp.ID)
	} else {
		log.Printf("[sync] Already exists (ID %d)", resp.ID)
	}

	if err := u.ledger.Record(objectKey, sizeBytes, durationSec, resp.ID); err != nil {
		return err
	}

	if durationSec != nil {
		log.Printf("[sync] Processed %s (%d bytes, %.2fs)", objectKey, sizeBytes, *durationSec)
	} else {
		log.Printf("[sync] Processed %s (%d bytes)", objectKey, sizeBytes)
	}
	return nil
}

// CatchUp walks the watch root for recordings that never made it into the
// ledger (created while the watcher was down) and processes them.
func (u *Uploader) CatchUp(ctx context.Context) error {
	var pending []string
	err := filepath.WalkDir(u.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !isRecording(path) {
			return nil
		}

		key, kerr := u.ObjectKey(path)
		if kerr != nil {
			return nil
		}
		done, lerr := u.ledger.Has(key)
		if lerr != nil {
			return lerr
		}
		if !done {
			pending = append(pending, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		return nil
	}
	log.Printf("[sync] Catch-up: %d recording(s) to upload", len(pending))

	for _, path := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := u.Process(ctx, path); err != nil {
			log.Printf("[sync] ERROR catch-up failed for %s: %v", path, err)
		}
	}
	return nil
}

// isRecording matches finished recordings only; airband writes .tmp files
// and renames them to .mp3 when complete.
func isRecording(path string) bool {
	return strings.HasSuffix(path, ".mp3")
}
