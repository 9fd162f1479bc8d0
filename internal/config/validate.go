package config

import (
	"errors"
	"fmt"
	"strings"
)

// normalize expands path fields and fills derived defaults in place.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Transcription.ModelPath, err = expandPath(c.Transcription.ModelPath); err != nil {
		return err
	}
	c.Download.Binary = strings.TrimSpace(c.Download.Binary)
	c.Transcription.Binary = strings.TrimSpace(c.Transcription.Binary)
	c.Transcription.FallbackLanguage = strings.ToLower(strings.TrimSpace(c.Transcription.FallbackLanguage))
	c.OCR.Binary = strings.TrimSpace(c.OCR.Binary)
	c.OCR.Languages = strings.TrimSpace(c.OCR.Languages)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	return nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures deep inside the pipeline.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.DataDir == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if c.Paths.StagingDir == "" {
		problems = append(problems, "paths.staging_dir must be set")
	}
	if c.Workflow.WorkerCount < 1 {
		problems = append(problems, "workflow.worker_count must be at least 1")
	}
	if c.Workflow.QueuePollInterval < 1 {
		problems = append(problems, "workflow.queue_poll_interval must be at least 1 second")
	}
	if c.Retry.BaseSeconds < 1 {
		problems = append(problems, "retry.base_seconds must be at least 1")
	}
	if c.Retry.MaxSeconds < c.Retry.BaseSeconds {
		problems = append(problems, "retry.max_seconds must not be below retry.base_seconds")
	}
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry.max_attempts must be at least 1")
	}
	if c.Retry.FingerprintFailureLimit < 1 {
		problems = append(problems, "retry.fingerprint_failure_limit must be at least 1")
	}
	if c.Dedup.HashDistanceThreshold < 0 || c.Dedup.HashDistanceThreshold > 64 {
		problems = append(problems, "dedup.hash_distance_threshold must be between 0 and 64")
	}
	if c.Dedup.DurationToleranceSeconds < 0 {
		problems = append(problems, "dedup.duration_tolerance_seconds must not be negative")
	}
	if c.Dedup.FrameOffsetFraction <= 0 || c.Dedup.FrameOffsetFraction >= 1 {
		problems = append(problems, "dedup.frame_offset_fraction must be between 0 and 1 exclusive")
	}
	if c.Download.Binary == "" {
		problems = append(problems, "download.binary must be set")
	}
	if c.OCR.MinSamples < 5 {
		problems = append(problems, "ocr.min_samples must be at least 5")
	}
	if c.Vision.Enabled && c.LLM.Model == "" {
		problems = append(problems, "llm.model must be set when vision is enabled")
	}
	if format := strings.ToLower(strings.TrimSpace(c.Logging.Format)); format != "" {
		switch format {
		case "auto", "console", "json":
		default:
			problems = append(problems, fmt.Sprintf("logging.format %q is not one of auto, console, json", c.Logging.Format))
		}
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
