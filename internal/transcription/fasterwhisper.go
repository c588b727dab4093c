package transcription

import (
	"context"
	"encoding/json"
	_ "embed"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

//go:embed assets/faster_whisper.py
var helperScript []byte

// Options configures the faster-whisper engine.
type Options struct {
	Model          string
	Device         string // cpu|cuda|auto
	ComputeType    string // int8, float16, ...
	Language       string // empty: auto-detect
	CPUThreads     int    // 0: let faster-whisper decide
	WordTimestamps bool   // sandbox only; off in production
}

// FasterWhisper invokes the faster-whisper model through an embedded Python
// helper. Each call spawns its own process, so a single instance is safe for
// concurrent use by any number of workers.
type FasterWhisper struct {
	opts       Options
	python     string
	scriptPath string
}

// NewFasterWhisper materializes the helper script and returns an engine.
// The model itself is not loaded until Warmup or the first Transcribe.
func NewFasterWhisper(opts Options) (*FasterWhisper, error) {
	scriptPath := filepath.Join(os.TempDir(), "asr_faster_whisper.py")
	if err := os.WriteFile(scriptPath, helperScript, 0o755); err != nil {
		return nil, fmt.Errorf("write helper script: %v", err)
	}

	python := os.Getenv("ASR_PYTHON")
	if python == "" {
		python = "python3"
	}

	return &FasterWhisper{opts: opts, python: python, scriptPath: scriptPath}, nil
}

// ModelName reports the configured model, for result payloads.
func (e *FasterWhisper) ModelName() string {
	return e.opts.Model
}

// Warmup loads the model once and discards it, so a missing or broken model
// fails the process at startup instead of on the first job.
func (e *FasterWhisper) Warmup(ctx context.Context) error {
	log.Printf("[worker] Loading model='%s' device='%s' compute_type='%s' cpu_threads=%s",
		e.opts.Model, e.opts.Device, e.opts.ComputeType, threadsLabel(e.opts.CPUThreads))

	cmd := exec.CommandContext(ctx, e.python, append(e.baseArgs(), "--warmup")...)
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("model load failed: %s", execErrDetail(err, out))
	}
	return nil
}

// Transcribe runs the helper over one audio file and parses its JSON output.
func (e *FasterWhisper) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	args := append(e.baseArgs(), "--audio", audioPath)
	if e.opts.WordTimestamps {
		args = append(args, "--word-timestamps")
	}

	cmd := exec.CommandContext(ctx, e.python, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("faster-whisper failed: %s", execErrDetail(err, out))
	}

	return parseEngineOutput(out)
}

func (e *FasterWhisper) baseArgs() []string {
	args := []string{
		e.scriptPath,
		"--model", e.opts.Model,
		"--device", e.opts.Device,
		"--compute-type", e.opts.ComputeType,
	}
	if e.opts.Language != "" {
		args = append(args, "--language", e.opts.Language)
	}
	if e.opts.CPUThreads > 0 {
		args = append(args, "--cpu-threads", strconv.Itoa(e.opts.CPUThreads))
	}
	return args
}

func threadsLabel(n int) string {
	if n <= 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

func execErrDetail(err error, out []byte) string {
	if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
		return strings.TrimSpace(string(ee.Stderr))
	}
	if len(out) > 0 {
		return fmt.Sprintf("%v: %s", err, strings.TrimSpace(string(out)))
	}
	return err.Error()
}

// helperOutput matches the helper's JSON document.
type helperOutput struct {
	Text                string   `json:"text"`
	Language            string   `json:"language"`
	LanguageProbability *float64 `json:"language_probability"`
	Duration            *float64 `json:"duration"`
	Segments            []struct {
		ID               int      `json:"id"`
		Start            float64  `json:"start"`
		End              float64  `json:"end"`
		Text             string   `json:"text"`
		AvgLogprob       *float64 `json:"avg_logprob"`
		CompressionRatio *float64 `json:"compression_ratio"`
		NoSpeechProb     *float64 `json:"no_speech_prob"`
		Words            []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Word  string  `json:"word"`
		} `json:"words"`
	} `json:"segments"`
}

func parseEngineOutput(data []byte) (*Result, error) {
	var parsed helperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse helper output: %v", err)
	}

	res := &Result{
		Text:                parsed.Text,
		Language:            parsed.Language,
		LanguageProbability: parsed.LanguageProbability,
		Duration:            parsed.Duration,
	}
	for _, s := range parsed.Segments {
		seg := Segment{
			ID:               s.ID,
			Start:            s.Start,
			End:              s.End,
			Text:             s.Text,
			AvgLogprob:       s.AvgLogprob,
			CompressionRatio: s.CompressionRatio,
			NoSpeechProb:     s.NoSpeechProb,
		}
		for _, w := range s.Words {
			seg.Words = append(seg.Words, Word{Start: w.Start, End: w.End, Word: w.Word})
		}
		res.Segments = append(res.Segments, seg)
	}
	return res, nil
}
