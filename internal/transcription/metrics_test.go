package transcription

import (
	"math"
	"testing"
	"time"
)

func fp(v float64) *float64 { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarizeAveragesSkipMissingMetrics(t *testing.T) {
	res := &Result{
		Duration: fp(10),
		Segments: []Segment{
			{Start: 0, End: 2, Text: " one", AvgLogprob: fp(-0.1), CompressionRatio: fp(1.0), NoSpeechProb: fp(0.1)},
			{Start: 2, End: 4, Text: " two", AvgLogprob: fp(-0.3), CompressionRatio: fp(2.0), NoSpeechProb: fp(0.4)},
			{Start: 4, End: 6, Text: " three"}, // no metrics
		},
	}

	s := Summarize(res, 2*time.Second)

	if s.AvgLogprob == nil || !almostEqual(*s.AvgLogprob, -0.2) {
		t.Errorf("AvgLogprob = %v, want -0.2", s.AvgLogprob)
	}
	if s.CompressionRatio == nil || !almostEqual(*s.CompressionRatio, 1.5) {
		t.Errorf("CompressionRatio = %v, want 1.5", s.CompressionRatio)
	}
	if s.NoSpeechProb == nil || !almostEqual(*s.NoSpeechProb, 0.4) {
		t.Errorf("NoSpeechProb = %v, want max 0.4", s.NoSpeechProb)
	}
	if s.Text != "one two three" {
		t.Errorf("Text = %q, want stitched trimmed text", s.Text)
	}
}

func TestSummarizeSpeechRatio(t *testing.T) {
	res := &Result{
		Duration: fp(10),
		Segments: []Segment{
			{Start: 0, End: 4},
			{Start: 5, End: 7},
		},
	}

	s := Summarize(res, time.Second)

	if !almostEqual(s.SpeechDurationSec, 6) {
		t.Errorf("SpeechDurationSec = %v, want 6", s.SpeechDurationSec)
	}
	if s.SpeechRatio == nil || !almostEqual(*s.SpeechRatio, 0.6) {
		t.Errorf("SpeechRatio = %v, want 0.6", s.SpeechRatio)
	}
}

func TestSummarizeSpeechRatioUnknownDuration(t *testing.T) {
	for name, dur := range map[string]*float64{"unknown": nil, "zero": fp(0)} {
		res := &Result{
			Duration: dur,
			Segments: []Segment{{Start: 0, End: 3}},
		}
		if s := Summarize(res, time.Second); s.SpeechRatio != nil {
			t.Errorf("%s duration: SpeechRatio = %v, want nil", name, s.SpeechRatio)
		}
	}
}

func TestSummarizeNoMetricsPresent(t *testing.T) {
	res := &Result{
		Duration: fp(5),
		Segments: []Segment{{Start: 0, End: 1, Text: "hi"}},
	}

	s := Summarize(res, time.Second)

	if s.AvgLogprob != nil {
		t.Errorf("AvgLogprob = %v, want nil when no segment carries it", s.AvgLogprob)
	}
	if s.CompressionRatio != nil {
		t.Errorf("CompressionRatio = %v, want nil", s.CompressionRatio)
	}
	if s.NoSpeechProb != nil {
		t.Errorf("NoSpeechProb = %v, want nil", s.NoSpeechProb)
	}
}

func TestSummarizeIgnoresNegativeSegmentDurations(t *testing.T) {
	res := &Result{
		Duration: fp(10),
		Segments: []Segment{
			{Start: 4, End: 2}, // malformed
			{Start: 0, End: 5},
		},
	}

	if s := Summarize(res, time.Second); !almostEqual(s.SpeechDurationSec, 5) {
		t.Errorf("SpeechDurationSec = %v, want 5", s.SpeechDurationSec)
	}
}

func TestSummarizeRealTimeFactor(t *testing.T) {
	res := &Result{Duration: fp(10)}

	s := Summarize(res, 5*time.Second)
	if s.RTF == nil || !almostEqual(*s.RTF, 2.0) {
		t.Errorf("RTF = %v, want 2.0", s.RTF)
	}
	if s.ElapsedMS != 5000 {
		t.Errorf("ElapsedMS = %d, want 5000", s.ElapsedMS)
	}
}
