package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var envVars = []string{
	"CUTUP_HPM", "CUTUP_SEED", "CUTUP_WEIGHTS", "CUTUP_CROSSFADE",
	"CUTUP_WINDOW_MIN", "CUTUP_WINDOW_MAX", "CUTUP_JITTER",
	"CUTUP_STEREOIFY", "CUTUP_OUTPUT", "CUTUP_FFMPEG",
	"CUTUP_LISTEN", "CUTUP_VERBOSE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		// Register restore first, then unset.
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HitsPerMinute != 180 {
		t.Errorf("HitsPerMinute = %v, want 180", cfg.HitsPerMinute)
	}
	if cfg.Seed != -1 {
		t.Errorf("Seed = %d, want -1", cfg.Seed)
	}
	if cfg.Weights != "" {
		t.Errorf("Weights = %q, want empty default", cfg.Weights)
	}
	if cfg.CrossfadeFrames != 256 {
		t.Errorf("CrossfadeFrames = %d, want 256", cfg.CrossfadeFrames)
	}
	if cfg.WindowMin != 0.25 || cfg.WindowMax != 1.0 {
		t.Errorf("Window = %v..%v, want 0.25..1", cfg.WindowMin, cfg.WindowMax)
	}
	if !cfg.Jitter {
		t.Error("Jitter = false, want true")
	}
	if cfg.Stereoify {
		t.Error("Stereoify = true, want false")
	}
	if cfg.Output != "output.wav" {
		t.Errorf("Output = %q, want 'output.wav'", cfg.Output)
	}
	if cfg.FFmpeg != "ffmpeg" {
		t.Errorf("FFmpeg = %q, want 'ffmpeg'", cfg.FFmpeg)
	}
	if cfg.Listen != "" {
		t.Errorf("Listen = %q, want empty default", cfg.Listen)
	}
	if cfg.Verbose {
		t.Error("Verbose = true, want false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CUTUP_HPM", "90.5")
	t.Setenv("CUTUP_SEED", "1234567890123")
	t.Setenv("CUTUP_WEIGHTS", "reverse=1,silence=0")
	t.Setenv("CUTUP_CROSSFADE", "0")
	t.Setenv("CUTUP_WINDOW_MIN", "0.1")
	t.Setenv("CUTUP_WINDOW_MAX", "0.5")
	t.Setenv("CUTUP_JITTER", "false")
	t.Setenv("CUTUP_STEREOIFY", "yes")
	t.Setenv("CUTUP_OUTPUT", "/tmp/collage.wav")
	t.Setenv("CUTUP_FFMPEG", "/usr/local/bin/ffmpeg")
	t.Setenv("CUTUP_LISTEN", ":8080")
	t.Setenv("CUTUP_VERBOSE", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HitsPerMinute != 90.5 {
		t.Errorf("HitsPerMinute = %v, want 90.5", cfg.HitsPerMinute)
	}
	if cfg.Seed != 1234567890123 {
		t.Errorf("Seed = %d, want 1234567890123", cfg.Seed)
	}
	if cfg.Weights != "reverse=1,silence=0" {
		t.Errorf("Weights = %q, want env override", cfg.Weights)
	}
	if cfg.CrossfadeFrames != 0 {
		t.Errorf("CrossfadeFrames = %d, want 0", cfg.CrossfadeFrames)
	}
	if cfg.WindowMin != 0.1 || cfg.WindowMax != 0.5 {
		t.Errorf("Window = %v..%v, want 0.1..0.5", cfg.WindowMin, cfg.WindowMax)
	}
	if cfg.Jitter {
		t.Error("Jitter = true, want false")
	}
	if !cfg.Stereoify {
		t.Error("Stereoify = false, want true")
	}
	if cfg.Output != "/tmp/collage.wav" {
		t.Errorf("Output = %q, want env override", cfg.Output)
	}
	if cfg.FFmpeg != "/usr/local/bin/ffmpeg" {
		t.Errorf("FFmpeg = %q, want env override", cfg.FFmpeg)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want ':8080'", cfg.Listen)
	}
	if !cfg.Verbose {
		t.Error("Verbose = false, want true")
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	clearEnv(t)
	t.Setenv("CUTUP_CROSSFADE", "not-a-number")
	t.Setenv("CUTUP_HPM", "fast")
	t.Setenv("CUTUP_JITTER", "maybe")
	t.Setenv("CUTUP_SEED", "7")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load succeeded with malformed values")
	}
	for _, key := range []string{"CUTUP_CROSSFADE", "CUTUP_HPM", "CUTUP_JITTER"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not name %v", err, key)
		}
	}
	if strings.Contains(err.Error(), "CUTUP_SEED") {
		t.Errorf("error %q names a well-formed variable", err)
	}

	// The offenders keep their defaults.
	if cfg.CrossfadeFrames != 256 || cfg.HitsPerMinute != 180 || !cfg.Jitter {
		t.Errorf("cfg = %+v, want defaults for malformed values", cfg)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7", cfg.Seed)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CUTUP_OUTPUT", "kept.wav")

	path := filepath.Join(t.TempDir(), ".env")
	data := "CUTUP_HPM=45\nCUTUP_OUTPUT=ignored.wav\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("CUTUP_HPM") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HitsPerMinute != 45 {
		t.Errorf("HitsPerMinute = %v, want 45 from file", cfg.HitsPerMinute)
	}
	if cfg.Output != "kept.wav" {
		t.Errorf("Output = %q, existing env should win over file", cfg.Output)
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing file: err = %v, want nil", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("empty path: err = %v, want nil", err)
	}
}
