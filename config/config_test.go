package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FFMPEG_PATH", "")
	t.Setenv("FFPROBE_PATH", "")
	t.Setenv("CLIP_TMP_DIR", "")
	t.Setenv("CLIP_TIMEOUT", "")
	t.Setenv("CLIP_MAX_ATTEMPTS", "")
	t.Setenv("CLIP_RETRY_DELAY", "")
	t.Setenv("MAX_CONCURRENT_CLIPS", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("DB_DSN", "")
	t.Setenv("HTTP_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FFmpegPath != "ffmpeg" || cfg.FFprobePath != "ffprobe" {
		t.Errorf("engine paths = %q/%q, want ffmpeg/ffprobe", cfg.FFmpegPath, cfg.FFprobePath)
	}
	if cfg.ClipTimeout != 10*time.Minute {
		t.Errorf("ClipTimeout = %v, want 10m", cfg.ClipTimeout)
	}
	if cfg.ClipMaxAttempts != 3 {
		t.Errorf("ClipMaxAttempts = %d, want 3", cfg.ClipMaxAttempts)
	}
	if cfg.ClipRetryDelay != 2*time.Second {
		t.Errorf("ClipRetryDelay = %v, want 2s", cfg.ClipRetryDelay)
	}
	if cfg.MaxConcurrentClips != 2 {
		t.Errorf("MaxConcurrentClips = %d, want 2", cfg.MaxConcurrentClips)
	}
	if cfg.TmpDir == "" {
		t.Error("TmpDir should default to a temp root")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CLIP_TIMEOUT", "90s")
	t.Setenv("CLIP_MAX_ATTEMPTS", "5")
	t.Setenv("CLIP_RETRY_DELAY", "500ms")
	t.Setenv("MAX_CONCURRENT_CLIPS", "8")
	t.Setenv("CLIP_TMP_DIR", "/mnt/scratch/clips")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ClipTimeout != 90*time.Second {
		t.Errorf("ClipTimeout = %v, want 90s", cfg.ClipTimeout)
	}
	if cfg.ClipMaxAttempts != 5 {
		t.Errorf("ClipMaxAttempts = %d, want 5", cfg.ClipMaxAttempts)
	}
	if cfg.ClipRetryDelay != 500*time.Millisecond {
		t.Errorf("ClipRetryDelay = %v, want 500ms", cfg.ClipRetryDelay)
	}
	if cfg.MaxConcurrentClips != 8 {
		t.Errorf("MaxConcurrentClips = %d, want 8", cfg.MaxConcurrentClips)
	}
	if cfg.TmpDir != "/mnt/scratch/clips" {
		t.Errorf("TmpDir = %q", cfg.TmpDir)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"CLIP_TIMEOUT":         "soon",
		"CLIP_MAX_ATTEMPTS":    "0",
		"CLIP_RETRY_DELAY":     "-1s",
		"MAX_CONCURRENT_CLIPS": "none",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, val)
			}
		})
	}
}
