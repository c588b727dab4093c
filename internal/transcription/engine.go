package transcription

import "context"

// Engine runs speech-to-text over a local audio file. Implementations must
// be safe for concurrent use by all workers in the pool.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// Result is the raw engine output for one audio file. Optional metrics are
// nil when the engine did not produce them.
type Result struct {
	Text                string    `json:"text"`
	Language            string    `json:"language,omitempty"`
	LanguageProbability *float64  `json:"language_probability,omitempty"`
	Duration            *float64  `json:"duration"`
	Segments            []Segment `json:"segments"`
}

// Segment is one decoded span of audio.
type Segment struct {
	ID               int      `json:"id"`
	Start            float64  `json:"start"`
	End              float64  `json:"end"`
	Text             string   `json:"text"`
	AvgLogprob       *float64 `json:"avg_logprob,omitempty"`
	CompressionRatio *float64 `json:"compression_ratio,omitempty"`
	NoSpeechProb     *float64 `json:"no_speech_prob,omitempty"`
	Words            []Word   `json:"words,omitempty"`
}

// Word is a word-level timestamp, only present when word timestamps were
// requested (sandbox runs).
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}
