package transcription

import (
	"strings"
	"time"
)

// Summary is the derived per-job report: aggregate quality scalars only,
// no per-segment detail. Nil means the metric was not observable.
type Summary struct {
	Text              string
	DurationSec       *float64
	AvgLogprob        *float64
	CompressionRatio  *float64
	NoSpeechProb      *float64
	SpeechDurationSec float64
	SpeechRatio       *float64
	ElapsedMS         int64
	RTF               *float64 // real-time factor, for logs only
}

// Summarize reduces an engine result to the reporting contract:
// mean avg-logprob and mean compression ratio over segments that carry the
// metric, max no-speech probability, summed speech time, and speech ratio
// (nil when total duration is zero or unknown).
func Summarize(res *Result, elapsed time.Duration) Summary {
	var (
		speechDuration float64
		logprobSum     float64
		logprobCount   int
		ratioSum       float64
		ratioCount     int
		maxNoSpeech    *float64
		texts          []string
	)

	for _, seg := range res.Segments {
		texts = append(texts, seg.Text)

		if dur := seg.End - seg.Start; dur > 0 {
			speechDuration += dur
		}
		if seg.AvgLogprob != nil {
			logprobSum += *seg.AvgLogprob
			logprobCount++
		}
		if seg.CompressionRatio != nil {
			ratioSum += *seg.CompressionRatio
			ratioCount++
		}
		if seg.NoSpeechProb != nil {
			if maxNoSpeech == nil || *seg.NoSpeechProb > *maxNoSpeech {
				v := *seg.NoSpeechProb
				maxNoSpeech = &v
			}
		}
	}

	s := Summary{
		Text:              strings.TrimSpace(strings.Join(texts, "")),
		DurationSec:       res.Duration,
		NoSpeechProb:      maxNoSpeech,
		SpeechDurationSec: speechDuration,
		ElapsedMS:         elapsed.Milliseconds(),
	}

	if logprobCount > 0 {
		v := logprobSum / float64(logprobCount)
		s.AvgLogprob = &v
	}
	if ratioCount > 0 {
		v := ratioSum / float64(ratioCount)
		s.CompressionRatio = &v
	}
	if res.Duration != nil && *res.Duration > 0 {
		v := speechDuration / *res.Duration
		s.SpeechRatio = &v

		if secs := elapsed.Seconds(); secs > 0 {
			rtf := *res.Duration / secs
			s.RTF = &rtf
		}
	}

	return s
}
