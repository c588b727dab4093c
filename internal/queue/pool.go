package queue

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/atcscribe/asr-worker/internal/transcription"
	"github.com/atcscribe/asr-worker/internal/types"
)

// popTimeout bounds how long an idle worker blocks on the queue before
// rechecking for shutdown.
const popTimeout = 500 * time.Millisecond

// Pool is a fixed set of transcription workers draining the queue. Workers
// keep draining after shutdown is requested and exit only once the queue
// has gone quiet, so every downloaded job still gets a reported outcome.
type Pool struct {
	queue     *Queue
	engine    transcription.Engine
	reporter  Reporter
	stats     *Stats
	modelName string
	size      int
	wg        sync.WaitGroup
}

// NewPool creates a pool of size workers; they do not run until Start.
func NewPool(size int, q *Queue, engine transcription.Engine, modelName string, reporter Reporter, stats *Stats) *Pool {
	return &Pool{
		queue:     q,
		engine:    engine,
		reporter:  reporter,
		stats:     stats,
		modelName: modelName,
		size:      size,
	}
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	log.Printf("[worker] Starting worker pool with %d workers", p.size)
	for i := 0; i < p.size; i++ {
		name := fmt.Sprintf("w%d", i+1)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx, name)
		}()
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, name string) {
	log.Printf("[worker:%s] Worker started", name)

	for {
		item, ok := p.queue.Pop(popTimeout)
		if !ok {
			if ctx.Err() != nil {
				break
			}
			continue
		}

		// An item taken off the queue is processed to completion even
		// during shutdown; only a second signal abandons it.
		p.process(context.WithoutCancel(ctx), name, item)
	}

	log.Printf("[worker:%s] Worker exiting (shutdown or idle)", name)
}

// process runs one job through the engine and reports exactly one terminal
// outcome, success or failure. Errors never escape: a failed transcription
// retires the job and the worker moves on.
func (p *Pool) process(ctx context.Context, name string, item types.QueuedJob) {
	jobID := item.Job.ID
	reported := false

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[worker:%s] PANIC processing job %d: %v\n%s", name, jobID, r, debug.Stack())
			if !reported {
				p.fail(ctx, jobID, fmt.Sprintf("panic: %v", r))
			}
		}
	}()

	start := time.Now()
	res, err := p.engine.Transcribe(ctx, item.AudioPath)
	if err != nil {
		log.Printf("[worker:%s] Error processing job %d: %v", name, jobID, err)
		reported = true
		p.fail(ctx, jobID, err.Error())
		return
	}

	summary := transcription.Summarize(res, time.Since(start))
	log.Printf("[worker:%s] Job %d done (dur=%s, rtf=%s)", name, jobID,
		floatLabel(summary.DurationSec, "%.2fs"), floatLabel(summary.RTF, "%.2fx"))

	reported = true
	p.stats.processed.Add(1)
	if err := p.reporter.SubmitSuccess(ctx, jobID, p.modelName, summary); err != nil {
		log.Printf("[worker:%s] Failed to submit result for job %d: %v", name, jobID, err)
		p.stats.reportingErrors.Add(1)
	}
}

func (p *Pool) fail(ctx context.Context, jobID int64, message string) {
	p.stats.failed.Add(1)
	if err := p.reporter.SubmitFailure(ctx, jobID, types.FailureTranscription, message); err != nil {
		log.Printf("[worker] Failed to submit failure for job %d: %v", jobID, err)
		p.stats.reportingErrors.Add(1)
	}
}

func floatLabel(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}
