package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atcscribe/asr-worker/internal/transcription"
	"github.com/atcscribe/asr-worker/internal/types"
)

// fakeSource hands out a fixed list of jobs, one per call, then none.
type fakeSource struct {
	mu    sync.Mutex
	jobs  []*types.Job
	calls int
	err   error
}

func (s *fakeSource) NextJob(ctx context.Context) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.jobs) == 0 {
		return nil, nil
	}
	job := s.jobs[0]
	s.jobs = s.jobs[1:]
	return job, nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeFetcher struct {
	calls atomic.Int64
	fail  bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, job types.Job) (string, error) {
	f.calls.Add(1)
	if f.fail {
		return "", errors.New("connection reset")
	}
	return fmt.Sprintf("/tmp/audio-%d.mp3", job.ID), nil
}

type reportedFailure struct {
	jobID    int64
	category string
	message  string
}

type reportedSuccess struct {
	jobID   int64
	model   string
	summary transcription.Summary
}

type fakeReporter struct {
	mu        sync.Mutex
	failures  []reportedFailure
	successes []reportedSuccess
	err       error
}

func (r *fakeReporter) SubmitSuccess(ctx context.Context, jobID int64, model string, s transcription.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, reportedSuccess{jobID, model, s})
	return r.err
}

func (r *fakeReporter) SubmitFailure(ctx context.Context, jobID int64, category, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, reportedFailure{jobID, category, message})
	return r.err
}

func (r *fakeReporter) counts() (successes, failures int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.successes), len(r.failures)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func runDownloader(t *testing.T, d *Downloader) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestDownloaderEnqueuesFetchedJob(t *testing.T) {
	source := &fakeSource{jobs: []*types.Job{{ID: 1, AudioURL: "http://x/1.mp3"}}}
	fetcher := &fakeFetcher{}
	reporter := &fakeReporter{}
	q := New(4)

	d := NewDownloader(source, fetcher, reporter, q, &Stats{}, 10*time.Millisecond)
	runDownloader(t, d)

	waitFor(t, func() bool { return q.Len() == 1 }, "job never enqueued")

	item, ok := q.Pop(time.Second)
	if !ok || item.Job.ID != 1 {
		t.Fatalf("popped %+v, ok=%v", item, ok)
	}
	if item.AudioPath == "" {
		t.Error("queued job has no audio path")
	}
	if _, failures := reporter.counts(); failures != 0 {
		t.Errorf("unexpected failure reports: %d", failures)
	}
}

func TestDownloaderReportsDownloadFailure(t *testing.T) {
	source := &fakeSource{jobs: []*types.Job{{ID: 42, AudioURL: "http://x/42.mp3"}}}
	fetcher := &fakeFetcher{fail: true}
	reporter := &fakeReporter{}
	q := New(4)

	d := NewDownloader(source, fetcher, reporter, q, &Stats{}, 10*time.Millisecond)
	runDownloader(t, d)

	waitFor(t, func() bool { _, f := reporter.counts(); return f >= 1 }, "failure never reported")

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	if len(reporter.failures) != 1 {
		t.Fatalf("got %d failure reports, want exactly 1", len(reporter.failures))
	}
	got := reporter.failures[0]
	if got.jobID != 42 || got.category != types.FailureDownload {
		t.Errorf("failure = %+v", got)
	}
	if q.Len() != 0 {
		t.Error("failed download must never enter the queue")
	}
}

func TestDownloaderIdlesWhenSourceEmpty(t *testing.T) {
	source := &fakeSource{}
	fetcher := &fakeFetcher{}
	q := New(4)

	d := NewDownloader(source, fetcher, &fakeReporter{}, q, &Stats{}, 5*time.Millisecond)
	runDownloader(t, d)

	waitFor(t, func() bool { return source.callCount() >= 3 }, "source never polled")

	if n := fetcher.calls.Load(); n != 0 {
		t.Errorf("fetcher called %d times with no jobs available", n)
	}
	if q.Len() != 0 {
		t.Error("queue should stay empty")
	}
}

func TestDownloaderBackpressure(t *testing.T) {
	source := &fakeSource{jobs: []*types.Job{{ID: 9, AudioURL: "http://x/9.mp3"}}}
	q := New(1)
	q.Push(context.Background(), types.QueuedJob{Job: types.Job{ID: 1}})

	d := NewDownloader(source, &fakeFetcher{}, &fakeReporter{}, q, &Stats{}, 5*time.Millisecond)
	runDownloader(t, d)

	// While the queue is full the source must not be consumed.
	time.Sleep(50 * time.Millisecond)
	if n := source.callCount(); n != 0 {
		t.Fatalf("source polled %d times while queue full", n)
	}

	// Freeing a slot lets the downloader pull and enqueue the next job.
	q.Pop(time.Second)
	waitFor(t, func() bool { return q.Len() == 1 }, "job never enqueued after slot freed")
}

func TestDownloaderSurvivesSourceErrors(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}

	d := NewDownloader(source, &fakeFetcher{}, &fakeReporter{}, New(4), &Stats{}, 5*time.Millisecond)
	runDownloader(t, d)

	waitFor(t, func() bool { return source.callCount() >= 3 }, "downloader stopped retrying after source error")
}
