package types

// Failure categories reported back to the API
const (
	FailureDownload      = "download_failed"
	FailureTranscription = "transcription_failed"
)

// Job is one transmission assigned by the API for transcription.
// Immutable once assigned; metadata fields are carried through for
// logging only and never written back.
type Job struct {
	ID           int64    `json:"id"`
	AudioURL     string   `json:"audio_url"`
	ObjectKey    string   `json:"object_key,omitempty"`
	ChannelLabel string   `json:"channel_label,omitempty"`
	FreqHz       *float64 `json:"freq_hz,omitempty"`
	StartedAt    string   `json:"started_at,omitempty"`
}

// QueuedJob is a Job whose audio has already been downloaded. It exists
// only between download and pickup, and is handed to exactly one worker.
type QueuedJob struct {
	Job       Job
	AudioPath string
}
