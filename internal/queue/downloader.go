package queue

import (
	"context"
	"log"
	"time"

	"github.com/atcscribe/asr-worker/internal/transcription"
	"github.com/atcscribe/asr-worker/internal/types"
)

// backpressureDelay is how long the downloader waits before rechecking a
// full queue.
const backpressureDelay = 200 * time.Millisecond

// Source hands out at most one job per call; a nil job means none are
// available right now.
type Source interface {
	NextJob(ctx context.Context) (*types.Job, error)
}

// Fetcher retrieves a job's audio to local storage and returns the path.
type Fetcher interface {
	Fetch(ctx context.Context, job types.Job) (string, error)
}

// Reporter posts terminal outcomes back to the job source. Both calls are
// best-effort: callers log errors and move on, never retry.
type Reporter interface {
	SubmitSuccess(ctx context.Context, jobID int64, model string, s transcription.Summary) error
	SubmitFailure(ctx context.Context, jobID int64, category, message string) error
}

// Downloader polls the job source, downloads audio, and feeds the queue.
// It throttles itself against queue fullness and an empty source, and
// treats every source error as transient.
type Downloader struct {
	source   Source
	fetcher  Fetcher
	reporter Reporter
	queue    *Queue
	stats    *Stats
	idle     time.Duration
}

// NewDownloader wires a downloader to its collaborators.
func NewDownloader(source Source, fetcher Fetcher, reporter Reporter, q *Queue, stats *Stats, idle time.Duration) *Downloader {
	return &Downloader{
		source:   source,
		fetcher:  fetcher,
		reporter: reporter,
		queue:    q,
		stats:    stats,
		idle:     idle,
	}
}

// Run loops until ctx is cancelled. Cancellation is only observed between
// jobs: once a job has been assigned, its download, failure report, or
// enqueue runs to completion so an assigned job is never silently dropped.
func (d *Downloader) Run(ctx context.Context) {
	log.Printf("[worker] Downloader loop started")

	for ctx.Err() == nil {
		if d.queue.Full() {
			sleep(ctx, backpressureDelay)
			continue
		}

		job, err := d.source.NextJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[worker] Error polling next job: %v", err)
			sleep(ctx, d.idle)
			continue
		}
		if job == nil {
			sleep(ctx, d.idle)
			continue
		}

		d.handle(context.WithoutCancel(ctx), *job)
	}

	log.Printf("[worker] Downloader loop stopping (shutdown requested)")
}

func (d *Downloader) handle(ctx context.Context, job types.Job) {
	path, err := d.fetcher.Fetch(ctx, job)
	if err != nil {
		log.Printf("[worker] Error downloading audio for job %d: %v", job.ID, err)
		d.stats.downloadFailed.Add(1)
		if rerr := d.reporter.SubmitFailure(ctx, job.ID, types.FailureDownload, ""); rerr != nil {
			log.Printf("[worker] Failed to submit failure for job %d: %v", job.ID, rerr)
			d.stats.reportingErrors.Add(1)
		}
		return
	}

	// Sole blocking point: another push may have raced the Full check.
	if err := d.queue.Push(ctx, types.QueuedJob{Job: job, AudioPath: path}); err != nil {
		log.Printf("[worker] Failed to enqueue job %d: %v", job.ID, err)
		return
	}
	d.stats.queued.Add(1)
	log.Printf("[worker] Queued job %d (queue=%d)", job.ID, d.queue.Len())
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
