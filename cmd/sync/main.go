// The sync utility runs on the recording host: it watches the airband
// recordings directory, uploads finished files to R2, and notifies the API
// so they get transcribed. A SQLite ledger makes uploads idempotent and
// lets a restart pick up recordings it missed while down.
package main

import (
	"context"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/atcscribe/asr-worker/internal/api"
	"github.com/atcscribe/asr-worker/internal/config"
	"github.com/atcscribe/asr-worker/internal/storage"
	"github.com/atcscribe/asr-worker/internal/watch"
)

func main() {
	godotenv.Load()

	cfg, err := config.LoadSync()
	if err != nil {
		log.Fatalf("[sync] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("[sync] Stopping watcher...")
		cancel()
	}()

	store, err := watch.NewR2Store(ctx, cfg.R2Endpoint, cfg.R2AccessKey, cfg.R2SecretKey, cfg.R2Bucket)
	if err != nil {
		log.Fatalf("[sync] %v", err)
	}

	ledger, err := storage.OpenLedger(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("[sync] %v", err)
	}
	defer ledger.Close()

	ffprobePath := cfg.FFprobePath
	if ffprobePath == "" {
		if found, err := exec.LookPath("ffprobe"); err == nil {
			ffprobePath = found
		} else {
			log.Printf("[sync] WARN ffprobe not found - duration will not be included")
		}
	}

	client := api.NewClient(cfg.APIBase, cfg.APIToken, cfg.HTTPTimeout)
	uploader := watch.NewUploader(cfg.RecordingsDir, cfg.R2Prefix, store, client, ledger, ffprobePath)

	count, _ := ledger.Count()
	log.Printf("[sync] Airband realtime sync starting: dir=%s bucket=%s prefix=%q ledger=%d upload(s)",
		cfg.RecordingsDir, cfg.R2Bucket, cfg.R2Prefix, count)

	if err := uploader.CatchUp(ctx); err != nil && ctx.Err() == nil {
		log.Printf("[sync] ERROR catch-up scan: %v", err)
	}

	watcher := watch.NewWatcher(cfg.RecordingsDir, uploader)
	if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("[sync] %v", err)
	}
	log.Printf("[sync] Stopped.")
}
