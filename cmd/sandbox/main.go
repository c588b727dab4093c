// The sandbox benchmarks several whisper models against one sample job.
// Unlike the production worker it keeps full per-segment and per-word
// detail, prints a comparison, and archives each run as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/atcscribe/asr-worker/internal/api"
	"github.com/atcscribe/asr-worker/internal/config"
	"github.com/atcscribe/asr-worker/internal/storage"
	"github.com/atcscribe/asr-worker/internal/transcription"
)

// modelRun is one model's full sandbox result, segments and all.
type modelRun struct {
	Model             string                  `json:"model"`
	Text              string                  `json:"text"`
	DurationSec       *float64                `json:"duration_sec"`
	Language          string                  `json:"language,omitempty"`
	Segments          []transcription.Segment `json:"segments"`
	AvgLogprob        *float64                `json:"asr_avg_logprob"`
	CompressionRatio  *float64                `json:"asr_compression_ratio"`
	NoSpeechProb      *float64                `json:"asr_no_speech_prob"`
	SpeechDurationSec float64                 `json:"asr_speech_duration_sec"`
	SpeechRatio       *float64                `json:"asr_speech_ratio"`
	ElapsedMS         int64                   `json:"elapsed_ms"`
	RTF               *float64                `json:"rtf"`
}

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[sandbox] %v", err)
	}
	if os.Getenv("AUDIO_CACHE_DIR") == "" {
		cfg.AudioCacheDir = ".asr_sandbox_cache"
	}
	outputDir := os.Getenv("SANDBOX_OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "sandbox_reports"
	}

	models := config.SandboxModels()
	log.Printf("[sandbox] Using API base: %s", cfg.APIBase)
	log.Printf("[sandbox] Models under test: %v", models)

	ctx := context.Background()
	client := api.NewClient(cfg.APIBase, cfg.APIToken, cfg.HTTPTimeout)

	job, err := client.SampleJob(ctx)
	if err != nil {
		log.Fatalf("[sandbox] ERROR fetching sample job: %v", err)
	}
	if job == nil {
		log.Printf("[sandbox] No sample job available.")
		return
	}

	log.Printf("[sandbox] Got sample job %d (object_key=%s channel=%s)",
		job.ID, job.ObjectKey, job.ChannelLabel)
	if job.AudioURL != "" {
		log.Printf("[sandbox] Audio URL (for listening): %s", job.AudioURL)
	}

	cache, err := storage.NewAudioCache(cfg.AudioCacheDir, cfg.HTTPTimeout)
	if err != nil {
		log.Fatalf("[sandbox] %v", err)
	}
	audioPath, err := cache.Fetch(ctx, *job)
	if err != nil {
		log.Fatalf("[sandbox] ERROR downloading audio: %v", err)
	}
	log.Printf("[sandbox] Audio cached at %s", audioPath)

	reports := storage.NewReportStore(outputDir)
	var runs []modelRun

	for _, model := range models {
		engine, err := transcription.NewFasterWhisper(transcription.Options{
			Model:          model,
			Device:         cfg.WhisperDevice,
			ComputeType:    cfg.WhisperCompute,
			Language:       cfg.WhisperLanguage,
			CPUThreads:     cfg.CPUThreads,
			WordTimestamps: true,
		})
		if err != nil {
			log.Fatalf("[sandbox:%s] %v", model, err)
		}

		log.Printf("[sandbox:%s] Transcribing %s", model, audioPath)
		start := time.Now()
		res, err := engine.Transcribe(ctx, audioPath)
		if err != nil {
			log.Printf("[sandbox:%s] ERROR during transcription: %v", model, err)
			continue
		}

		summary := transcription.Summarize(res, time.Since(start))
		run := modelRun{
			Model:             model,
			Text:              summary.Text,
			DurationSec:       summary.DurationSec,
			Language:          res.Language,
			Segments:          res.Segments,
			AvgLogprob:        summary.AvgLogprob,
			CompressionRatio:  summary.CompressionRatio,
			NoSpeechProb:      summary.NoSpeechProb,
			SpeechDurationSec: summary.SpeechDurationSec,
			SpeechRatio:       summary.SpeechRatio,
			ElapsedMS:         summary.ElapsedMS,
			RTF:               summary.RTF,
		}
		runs = append(runs, run)
		printRun(run)
	}

	if len(runs) == 0 {
		log.Printf("[sandbox] No successful runs.")
		return
	}

	name := fmt.Sprintf("job-%d", job.ID)
	if path, err := reports.Save(name, runs); err != nil {
		log.Printf("[sandbox] ERROR saving report: %v", err)
	} else {
		log.Printf("[sandbox] Report saved: %s", path)
	}

	fmt.Println("\n=== SUMMARY ACROSS MODELS ===")
	for _, r := range runs {
		fmt.Printf("%-20s elapsed=%6dms rtf=%s logprob=%s speech_ratio=%s\n",
			r.Model, r.ElapsedMS, floatLabel(r.RTF, "%.2fx"),
			floatLabel(r.AvgLogprob, "%.3f"), floatLabel(r.SpeechRatio, "%.2f"))
	}
}

func printRun(r modelRun) {
	fmt.Printf("\n=== %s: TRANSCRIPTION PREVIEW ===\n", r.Model)
	preview := r.Text
	if len(preview) > 500 {
		preview = preview[:500] + " ..."
	}
	if preview == "" {
		preview = "[no text]"
	}
	fmt.Println(preview)

	metrics := map[string]any{
		"duration_sec":        r.DurationSec,
		"elapsed_ms":          r.ElapsedMS,
		"rtf_x_real_time":     floatLabel(r.RTF, "%.2fx"),
		"speech_duration_sec": r.SpeechDurationSec,
		"speech_ratio":        r.SpeechRatio,
		"avg_logprob":         r.AvgLogprob,
		"no_speech_prob_max":  r.NoSpeechProb,
		"segment_count":       len(r.Segments),
	}
	out, _ := json.MarshalIndent(metrics, "", "  ")
	fmt.Printf("=== %s: METRICS ===\n%s\n", r.Model, out)
}

func floatLabel(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}
