package queue

import "sync/atomic"

// Stats counts pipeline outcomes, shared between the downloader, the pool,
// and the status server.
type Stats struct {
	queued          atomic.Int64
	processed       atomic.Int64
	failed          atomic.Int64
	downloadFailed  atomic.Int64
	reportingErrors atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Queued          int64 `json:"queued"`
	Processed       int64 `json:"processed"`
	Failed          int64 `json:"failed"`
	DownloadFailed  int64 `json:"download_failed"`
	ReportingErrors int64 `json:"reporting_errors"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Queued:          s.queued.Load(),
		Processed:       s.processed.Load(),
		Failed:          s.failed.Load(),
		DownloadFailed:  s.downloadFailed.Load(),
		ReportingErrors: s.reportingErrors.Load(),
	}
}
