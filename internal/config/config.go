package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the worker daemon configuration. Values come from the
// environment, with an optional YAML file (ASR_CONFIG) applied first so
// deployments can keep tuning in one place and still override per-process.
type Config struct {
	APIBase  string
	APIToken string

	// Concurrency / queue
	WorkerConcurrency int
	MaxQueueSize      int
	PollIdle          time.Duration

	// ASR / model
	WhisperModel    string
	WhisperDevice   string
	WhisperCompute  string
	WhisperLanguage string
	CPUThreads      int // 0 lets faster-whisper decide

	// I/O
	AudioCacheDir string
	HTTPTimeout   time.Duration

	// Cache pruning
	CleanInterval time.Duration
	CacheMaxAge   time.Duration

	// Ops surface; empty disables the status server
	StatusAddr string
}

// fileConfig mirrors the optional YAML overlay.
type fileConfig struct {
	Whisper struct {
		Model      string `yaml:"model"`
		Device     string `yaml:"device"`
		Compute    string `yaml:"compute_type"`
		Language   string `yaml:"language"`
		CPUThreads int    `yaml:"cpu_threads"`
	} `yaml:"whisper"`

	Workers struct {
		Count     int `yaml:"count"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"workers"`

	Storage struct {
		CacheDir string `yaml:"cache_dir"`
	} `yaml:"storage"`

	Status struct {
		Addr string `yaml:"addr"`
	} `yaml:"status"`
}

// Load builds the worker configuration from the environment. The API token
// is required; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		APIBase:           "http://localhost:3000",
		WorkerConcurrency: 2,
		MaxQueueSize:      8,
		PollIdle:          5 * time.Second,
		WhisperModel:      "large-v3",
		WhisperDevice:     "cpu",
		WhisperCompute:    "int8",
		WhisperLanguage:   "en",
		AudioCacheDir:     ".asr_cache",
		HTTPTimeout:       30 * time.Second,
		CleanInterval:     30 * time.Minute,
		CacheMaxAge:       24 * time.Hour,
	}

	if path := os.Getenv("ASR_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("config file %s: %v", path, err)
		}
	}

	if v := os.Getenv("ATC_API_BASE"); v != "" {
		cfg.APIBase = strings.TrimRight(v, "/")
	}
	cfg.APIToken = os.Getenv("ASR_WORKER_TOKEN")
	if cfg.APIToken == "" {
		cfg.APIToken = os.Getenv("ATC_API_TOKEN")
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("missing ASR_WORKER_TOKEN / ATC_API_TOKEN in env")
	}

	var err error
	if cfg.WorkerConcurrency, err = envInt("WORKER_CONCURRENCY", cfg.WorkerConcurrency); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be >= 1")
	}
	if cfg.MaxQueueSize, err = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize); err != nil {
		return nil, err
	}
	if cfg.MaxQueueSize < 1 {
		return nil, fmt.Errorf("MAX_QUEUE_SIZE must be >= 1")
	}
	if cfg.PollIdle, err = envSeconds("POLL_IDLE_SECONDS", cfg.PollIdle); err != nil {
		return nil, err
	}

	if v := os.Getenv("WHISPER_MODEL"); v != "" {
		cfg.WhisperModel = v
	}
	if v := os.Getenv("WHISPER_DEVICE"); v != "" {
		cfg.WhisperDevice = v
	}
	if v := os.Getenv("WHISPER_COMPUTE_TYPE"); v != "" {
		cfg.WhisperCompute = v
	}
	if v, ok := os.LookupEnv("WHISPER_LANGUAGE"); ok {
		cfg.WhisperLanguage = v
	}
	if cfg.CPUThreads, err = envInt("WHISPER_CPU_THREADS", cfg.CPUThreads); err != nil {
		return nil, err
	}

	if v := os.Getenv("AUDIO_CACHE_DIR"); v != "" {
		cfg.AudioCacheDir = v
	}
	if cfg.HTTPTimeout, err = envSeconds("ATC_API_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.CleanInterval, err = envMinutes("CACHE_CLEAN_INTERVAL_MINUTES", cfg.CleanInterval); err != nil {
		return nil, err
	}
	if cfg.CacheMaxAge, err = envHours("CACHE_MAX_AGE_HOURS", cfg.CacheMaxAge); err != nil {
		return nil, err
	}
	if v := os.Getenv("ASR_STATUS_ADDR"); v != "" {
		cfg.StatusAddr = v
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.Whisper.Model != "" {
		c.WhisperModel = fc.Whisper.Model
	}
	if fc.Whisper.Device != "" {
		c.WhisperDevice = fc.Whisper.Device
	}
	if fc.Whisper.Compute != "" {
		c.WhisperCompute = fc.Whisper.Compute
	}
	if fc.Whisper.Language != "" {
		c.WhisperLanguage = fc.Whisper.Language
	}
	if fc.Whisper.CPUThreads > 0 {
		c.CPUThreads = fc.Whisper.CPUThreads
	}
	if fc.Workers.Count > 0 {
		c.WorkerConcurrency = fc.Workers.Count
	}
	if fc.Workers.QueueSize > 0 {
		c.MaxQueueSize = fc.Workers.QueueSize
	}
	if fc.Storage.CacheDir != "" {
		c.AudioCacheDir = fc.Storage.CacheDir
	}
	if fc.Status.Addr != "" {
		c.StatusAddr = fc.Status.Addr
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func envSeconds(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func envMinutes(key string, def time.Duration) (time.Duration, error) {
	n, err := envInt(key, 0)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return def, nil
	}
	return time.Duration(n) * time.Minute, nil
}

func envHours(key string, def time.Duration) (time.Duration, error) {
	n, err := envInt(key, 0)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return def, nil
	}
	return time.Duration(n) * time.Hour, nil
}
