package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.OpenAI.APIKey != "env-key" {
		t.Fatalf("expected api key from environment, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Capture.ChunkSeconds != defaultChunkSeconds {
		t.Fatalf("expected default chunk seconds, got %d", cfg.Capture.ChunkSeconds)
	}
	if cfg.Corpus.ScoreFloor != defaultScoreFloor {
		t.Fatalf("expected default score floor, got %v", cfg.Corpus.ScoreFloor)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	path := writeConfig(t, `
[openai]
api_key = "file-key"
classifier_model = "test-nano"

[capture]
chunk_seconds = 15

[corpus]
score_floor = 0.5
`)
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to load, got %s exists=%v", path, resolved, exists)
	}
	if cfg.OpenAI.APIKey != "file-key" {
		t.Fatalf("unexpected api key %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.ClassifierModel != "test-nano" {
		t.Fatalf("unexpected classifier model %q", cfg.OpenAI.ClassifierModel)
	}
	if cfg.Capture.ChunkSeconds != 15 {
		t.Fatalf("unexpected chunk seconds %d", cfg.Capture.ChunkSeconds)
	}
	if cfg.Corpus.ScoreFloor != 0.5 {
		t.Fatalf("unexpected score floor %v", cfg.Corpus.ScoreFloor)
	}
	// Unspecified sections keep defaults.
	if cfg.OpenAI.VerifierModel != defaultVerifierModel {
		t.Fatalf("unexpected verifier model %q", cfg.OpenAI.VerifierModel)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, _, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error when api key is absent")
	}
	if !strings.Contains(err.Error(), "openai.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsBadChunkSeconds(t *testing.T) {
	path := writeConfig(t, `
[openai]
api_key = "k"

[capture]
chunk_seconds = 500
`)
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for chunk_seconds out of range")
	}
}

func TestLoadRejectsOverlapNotSmallerThanChunk(t *testing.T) {
	path := writeConfig(t, `
[openai]
api_key = "k"

[corpus]
chunk_chars = 100
overlap_chars = 100
`)
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for overlap >= chunk size")
	}
}

func TestLoadRejectsScoreFloorAboveOne(t *testing.T) {
	path := writeConfig(t, `
[openai]
api_key = "k"

[corpus]
score_floor = 1.5
`)
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for score floor above 1")
	}
}

func TestCacheAndLockPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataDir = "/tmp/fsdata"
	if got := cfg.CacheDBPath(); got != filepath.Join("/tmp/fsdata", "embeddings.db") {
		t.Fatalf("unexpected cache path %s", got)
	}
	if got := cfg.LockFilePath(); got != filepath.Join("/tmp/fsdata", "factstreamd.lock") {
		t.Fatalf("unexpected lock path %s", got)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample returned error: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error for existing config")
	}
}

func TestSampleConfigParses(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample returned error: %v", err)
	}
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}
