// Package cleanup prunes old entries from the audio cache so the worker's
// disk usage stays bounded across long runs.
package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler periodically deletes cached audio older than a configured age,
// including stale partial downloads left by a crashed fetch.
type Scheduler struct {
	cacheDir string
	interval time.Duration
	maxAge   time.Duration
	stopChan chan struct{}
}

// NewScheduler creates a pruning scheduler for cacheDir.
func NewScheduler(cacheDir string, interval, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		cacheDir: cacheDir,
		interval: interval,
		maxAge:   maxAge,
		stopChan: make(chan struct{}),
	}
}

// Start runs one pruning pass immediately and then keeps pruning on the
// configured interval until Stop.
func (s *Scheduler) Start() {
	s.Prune()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Prune()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("[worker] Cache pruning started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop halts periodic pruning.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

// Prune removes cache entries older than the configured age.
func (s *Scheduler) Prune() {
	now := time.Now()

	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.cacheDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		if age := now.Sub(info.ModTime()); age > s.maxAge {
			size := info.Size()
			if err := os.Remove(path); err != nil {
				log.Printf("[worker] Failed to delete cached audio %s: %v", path, err)
			} else {
				deletedCount++
				deletedSize += size
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[worker] Error during cache pruning: %v", err)
	}

	if deletedCount > 0 {
		log.Printf("[worker] Cache pruned: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}
