package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("file does not exist, exists must be false")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}

	defaults := config.Default()
	if cfg.Workflow.WorkerCount != defaults.Workflow.WorkerCount {
		t.Fatalf("expected default worker count %d, got %d", defaults.Workflow.WorkerCount, cfg.Workflow.WorkerCount)
	}
	if cfg.Download.Binary != "yt-dlp" {
		t.Fatalf("unexpected default download binary %q", cfg.Download.Binary)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[workflow]
worker_count = 4

[retry]
base_seconds = 60
max_seconds = 1800

[transcription]
fallback_language = "AR"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists true for a real file")
	}
	if cfg.Workflow.WorkerCount != 4 {
		t.Fatalf("override not applied, worker_count %d", cfg.Workflow.WorkerCount)
	}
	if cfg.Retry.BaseSeconds != 60 || cfg.Retry.MaxSeconds != 1800 {
		t.Fatalf("retry overrides not applied: %+v", cfg.Retry)
	}
	if cfg.Transcription.FallbackLanguage != "ar" {
		t.Fatalf("fallback language not normalized, got %q", cfg.Transcription.FallbackLanguage)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[workflow]
worker_count = 0

[retry]
base_seconds = 300
max_seconds = 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "workflow.worker_count") || !strings.Contains(msg, "retry.max_seconds") {
		t.Fatalf("validation should name every problem, got: %v", err)
	}
}

func TestValidateDedupBounds(t *testing.T) {
	cfg := config.Default()
	cfg.Dedup.HashDistanceThreshold = 65
	if err := cfg.Validate(); err == nil {
		t.Fatal("hash distance above 64 bits must be rejected")
	}

	cfg = config.Default()
	cfg.Dedup.FrameOffsetFraction = 1.0
	if err := cfg.Validate(); err == nil {
		t.Fatal("frame offset fraction of 1.0 must be rejected")
	}
}

func TestValidateVisionNeedsModel(t *testing.T) {
	cfg := config.Default()
	cfg.Vision.Enabled = true
	cfg.LLM.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("vision without a model must be rejected")
	}
}

func TestCreateSampleParsesBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config must load cleanly: %v", err)
	}
	if !exists {
		t.Fatal("sample config file not found after CreateSample")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config must validate: %v", err)
	}
}
