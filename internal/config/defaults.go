package config

// Default returns the baseline configuration applied before any file values.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    "~/.local/share/gazaclass",
			StagingDir: "~/.local/share/gazaclass/staging",
			LogDir:     "~/.local/share/gazaclass/logs",
		},
		Workflow: Workflow{
			WorkerCount:        2,
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
		},
		Retry: Retry{
			BaseSeconds:             30,
			MaxSeconds:              900,
			MaxAttempts:             5,
			FingerprintFailureLimit: 2,
		},
		Dedup: Dedup{
			HashDistanceThreshold:    10,
			DurationToleranceSeconds: 2.0,
			FrameOffsetFraction:      0.25,
		},
		Download: Download{
			Binary:         "yt-dlp",
			TimeoutSeconds: 600,
		},
		Transcription: Transcription{
			Binary:             "whisper-cli",
			ModelPath:          "~/.local/share/gazaclass/models/ggml-base.bin",
			FallbackLanguage:   "ar",
			MinTranscriptChars: 24,
			TimeoutSeconds:     1800,
		},
		OCR: OCR{
			Binary:         "tesseract",
			Languages:      "ara+eng",
			MinSamples:     5,
			TimeoutSeconds: 120,
		},
		Vision: Vision{
			Enabled:      false,
			UrgentOnly:   true,
			FrameSamples: 3,
		},
		LLM: LLM{
			BaseURL:        "http://localhost:11434/v1/chat/completions",
			Model:          "deepseek-v3.1:671b-cloud",
			TimeoutSeconds: 120,
		},
		Logging: Logging{
			Format: "auto",
			Level:  "info",
		},
	}
}
