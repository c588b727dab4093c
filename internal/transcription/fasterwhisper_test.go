package transcription

import "testing"

func TestParseEngineOutput(t *testing.T) {
	data := []byte(`{
		"text": "cleared for takeoff",
		"language": "en",
		"language_probability": 0.98,
		"duration": 4.5,
		"segments": [
			{"id": 0, "start": 0.0, "end": 2.1, "text": "cleared for",
			 "avg_logprob": -0.15, "compression_ratio": 1.1, "no_speech_prob": 0.02,
			 "words": [{"start": 0.0, "end": 0.9, "word": "cleared"}]},
			{"id": 1, "start": 2.1, "end": 4.2, "text": " takeoff"}
		]
	}`)

	res, err := parseEngineOutput(data)
	if err != nil {
		t.Fatalf("parseEngineOutput: %v", err)
	}

	if res.Text != "cleared for takeoff" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Duration == nil || *res.Duration != 4.5 {
		t.Errorf("Duration = %v, want 4.5", res.Duration)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(res.Segments))
	}

	first := res.Segments[0]
	if first.AvgLogprob == nil || *first.AvgLogprob != -0.15 {
		t.Errorf("segment 0 AvgLogprob = %v", first.AvgLogprob)
	}
	if len(first.Words) != 1 || first.Words[0].Word != "cleared" {
		t.Errorf("segment 0 words = %v", first.Words)
	}

	second := res.Segments[1]
	if second.AvgLogprob != nil || second.CompressionRatio != nil || second.NoSpeechProb != nil {
		t.Errorf("segment 1 should have nil metrics, got %+v", second)
	}
}

func TestParseEngineOutputRejectsGarbage(t *testing.T) {
	if _, err := parseEngineOutput([]byte("Traceback (most recent call last):")); err == nil {
		t.Fatal("expected error for non-JSON output")
	}
}
