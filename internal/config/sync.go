package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SyncConfig holds the realtime uploader configuration.
type SyncConfig struct {
	RecordingsDir string

	R2Endpoint  string
	R2Bucket    string
	R2AccessKey string
	R2SecretKey string
	R2Prefix    string

	APIBase  string
	APIToken string

	FFprobePath string // empty: search PATH
	LedgerPath  string
	HTTPTimeout time.Duration
}

// LoadSync builds the uploader configuration from the environment.
// All R2 and API settings are required.
func LoadSync() (*SyncConfig, error) {
	home, _ := os.UserHomeDir()
	cfg := &SyncConfig{
		RecordingsDir: filepath.Join(home, "airband-recordings"),
		HTTPTimeout:   30 * time.Second,
	}

	if v := os.Getenv("AIRBAND_RECORDINGS_DIR"); v != "" {
		cfg.RecordingsDir = v
	}

	cfg.R2Endpoint = os.Getenv("R2_ENDPOINT")
	cfg.R2Bucket = os.Getenv("R2_BUCKET")
	cfg.R2AccessKey = os.Getenv("R2_ACCESS_KEY_ID")
	cfg.R2SecretKey = os.Getenv("R2_SECRET_ACCESS_KEY")
	cfg.R2Prefix = strings.Trim(os.Getenv("R2_PREFIX"), "/")

	for _, req := range []struct{ key, val string }{
		{"R2_ENDPOINT", cfg.R2Endpoint},
		{"R2_BUCKET", cfg.R2Bucket},
		{"R2_ACCESS_KEY_ID", cfg.R2AccessKey},
		{"R2_SECRET_ACCESS_KEY", cfg.R2SecretKey},
	} {
		if req.val == "" {
			return nil, fmt.Errorf("%s environment variable is required", req.key)
		}
	}

	cfg.APIBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if cfg.APIBase == "" {
		return nil, fmt.Errorf("API_BASE_URL environment variable is required")
	}
	cfg.APIToken = os.Getenv("ASR_WORKER_TOKEN")
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("ASR_WORKER_TOKEN environment variable is required")
	}

	cfg.FFprobePath = os.Getenv("FFPROBE_PATH")
	cfg.LedgerPath = os.Getenv("SYNC_LEDGER_PATH")
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = filepath.Join(cfg.RecordingsDir, ".sync-ledger.db")
	}

	info, err := os.Stat(cfg.RecordingsDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory does not exist: %s", cfg.RecordingsDir)
	}

	return cfg, nil
}

// SandboxModels returns the model list for the benchmark tool.
// WHISPER_MODELS="medium,large-v3,distil-large-v3" overrides the default set.
func SandboxModels() []string {
	v := os.Getenv("WHISPER_MODELS")
	if v == "" {
		return []string{"medium", "large-v3", "distil-large-v3"}
	}
	var models []string
	for _, m := range strings.Split(v, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}
