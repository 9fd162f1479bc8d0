package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Workflow contains orchestrator timing and concurrency settings.
type Workflow struct {
	WorkerCount        int `toml:"worker_count"`
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Retry contains backoff policy settings for failed job attempts.
type Retry struct {
	BaseSeconds             int `toml:"base_seconds"`
	MaxSeconds              int `toml:"max_seconds"`
	MaxAttempts             int `toml:"max_attempts"`
	FingerprintFailureLimit int `toml:"fingerprint_failure_limit"`
}

// Dedup contains near-duplicate detection thresholds.
type Dedup struct {
	HashDistanceThreshold    int     `toml:"hash_distance_threshold"`
	DurationToleranceSeconds float64 `toml:"duration_tolerance_seconds"`
	FrameOffsetFraction      float64 `toml:"frame_offset_fraction"`
}

// Download contains settings for the yt-dlp platform gateway.
type Download struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription contains settings for the whisper.cpp speech-to-text capability.
type Transcription struct {
	Binary             string `toml:"binary"`
	ModelPath          string `toml:"model_path"`
	FallbackLanguage   string `toml:"fallback_language"`
	MinTranscriptChars int    `toml:"min_transcript_chars"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
}

// OCR contains settings for on-screen text recognition.
type OCR struct {
	Binary         string `toml:"binary"`
	Languages      string `toml:"languages"`
	MinSamples     int    `toml:"min_samples"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Vision contains settings for the optional visual description extractor.
type Vision struct {
	Enabled      bool `toml:"enabled"`
	UrgentOnly   bool `toml:"urgent_only"`
	FrameSamples int  `toml:"frame_samples"`
}

// LLM contains connection settings for the vision-description model endpoint.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the classifier pipeline.
//
// Configuration sections by subsystem:
//   - Paths: data, staging, and log directories
//   - Workflow: worker pool size and poll intervals
//   - Retry: exponential backoff policy
//   - Dedup: perceptual-hash matching thresholds
//   - Download: yt-dlp gateway settings
//   - Transcription: whisper.cpp speech-to-text settings
//   - OCR: tesseract on-screen text settings
//   - Vision: optional frame-description extractor
//   - LLM: model endpoint for visual descriptions
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	Retry         Retry         `toml:"retry"`
	Dedup         Dedup         `toml:"dedup"`
	Download      Download      `toml:"download"`
	Transcription Transcription `toml:"transcription"`
	OCR           OCR           `toml:"ocr"`
	Vision        Vision        `toml:"vision"`
	LLM           LLM           `toml:"llm"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/gazaclass/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gazaclass.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio and frame extraction.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
