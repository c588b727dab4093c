package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atcscribe/asr-worker/internal/types"
)

// AudioCache downloads job audio into a local cache directory. Entries are
// keyed by the job's storage key so repeated fetches of the same object are
// served from disk, including across process restarts.
type AudioCache struct {
	dir  string
	http *http.Client
}

// NewAudioCache creates the cache directory if needed.
func NewAudioCache(dir string, timeout time.Duration) (*AudioCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %v", err)
	}
	return &AudioCache{
		dir:  dir,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// Dir returns the cache directory, for the pruning scheduler.
func (c *AudioCache) Dir() string {
	return c.dir
}

// Path derives the cache entry path for a job: the basename of its object
// key, or a synthesized job-<id> name when the key is absent.
func (c *AudioCache) Path(job types.Job) string {
	key := job.ObjectKey
	if key == "" {
		key = fmt.Sprintf("job-%d", job.ID)
	}
	base := path.Base(key)
	if !strings.Contains(base, ".") {
		base += ".bin"
	}
	return filepath.Join(c.dir, base)
}

// Fetch streams the job's audio to its cache path and returns that path.
// An existing non-empty entry is reused without touching the network. The
// download goes through a uniquely named partial file so a crashed fetch
// never leaves a truncated cache entry behind.
func (c *AudioCache) Fetch(ctx context.Context, job types.Job) (string, error) {
	if job.AudioURL == "" {
		return "", fmt.Errorf("job %d missing audio_url", job.ID)
	}

	dest := c.Path(job)
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.AudioURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %d", job.AudioURL, resp.StatusCode)
	}

	partial := dest + ".partial-" + uuid.New().String()
	f, err := os.Create(partial)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(partial)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(partial)
		return "", err
	}

	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return "", err
	}
	return dest, nil
}
