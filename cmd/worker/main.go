// The worker daemon pulls transcription jobs from the ATC API, downloads
// their audio, runs faster-whisper over them with a fixed pool of workers,
// and reports results back. It shuts down cleanly on the first signal and
// immediately on a second.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/atcscribe/asr-worker/internal/api"
	"github.com/atcscribe/asr-worker/internal/cleanup"
	"github.com/atcscribe/asr-worker/internal/config"
	"github.com/atcscribe/asr-worker/internal/queue"
	"github.com/atcscribe/asr-worker/internal/status"
	"github.com/atcscribe/asr-worker/internal/storage"
	"github.com/atcscribe/asr-worker/internal/transcription"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[worker] %v", err)
	}

	log.Printf("[worker] Starting ASR worker: api_base=%s model=%s device=%s compute=%s workers=%d queue=%d",
		cfg.APIBase, cfg.WhisperModel, cfg.WhisperDevice, cfg.WhisperCompute,
		cfg.WorkerConcurrency, cfg.MaxQueueSize)

	client := api.NewClient(cfg.APIBase, cfg.APIToken, cfg.HTTPTimeout)

	cache, err := storage.NewAudioCache(cfg.AudioCacheDir, cfg.HTTPTimeout)
	if err != nil {
		log.Fatalf("[worker] %v", err)
	}

	engine, err := transcription.NewFasterWhisper(transcription.Options{
		Model:       cfg.WhisperModel,
		Device:      cfg.WhisperDevice,
		ComputeType: cfg.WhisperCompute,
		Language:    cfg.WhisperLanguage,
		CPUThreads:  cfg.CPUThreads,
	})
	if err != nil {
		log.Fatalf("[worker] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal cancels the context; every loop drains and exits on its
	// own. A second signal is the dead man's switch.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[worker] Received signal %v, initiating graceful shutdown...", sig)
		cancel()
		<-sigCh
		log.Printf("[worker] Second signal received, exiting now.")
		os.Exit(1)
	}()

	if err := engine.Warmup(ctx); err != nil {
		log.Fatalf("[worker] Failed to load model: %v", err)
	}

	q := queue.New(cfg.MaxQueueSize)
	stats := &queue.Stats{}

	pruner := cleanup.NewScheduler(cache.Dir(), cfg.CleanInterval, cfg.CacheMaxAge)
	pruner.Start()
	defer pruner.Stop()

	if cfg.StatusAddr != "" {
		srv := status.NewServer(cfg.StatusAddr, q, stats, engine.ModelName())
		srv.Start()
		defer srv.Shutdown()
	}

	downloader := queue.NewDownloader(client, cache, client, q, stats, cfg.PollIdle)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		downloader.Run(ctx)
	}()

	pool := queue.NewPool(cfg.WorkerConcurrency, q, engine, engine.ModelName(), client, stats)
	pool.Start(ctx)

	pool.Wait()
	wg.Wait()
	log.Printf("[worker] ASR worker stopped.")
}
