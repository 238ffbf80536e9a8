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

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	ReferenceDir string `toml:"reference_dir"`
	LogDir       string `toml:"log_dir"`
	APIBind      string `toml:"api_bind"`
}

// OpenAI contains connection settings for the OpenAI-compatible APIs used by
// transcription, classification, verification, and embedding.
type OpenAI struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	WhisperModel    string `toml:"whisper_model"`
	ClassifierModel string `toml:"classifier_model"`
	VerifierModel   string `toml:"verifier_model"`
	EmbeddingModel  string `toml:"embedding_model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	Language        string `toml:"language"`
}

// Capture contains configuration for stream resolution and audio chunking.
type Capture struct {
	ChunkSeconds          int    `toml:"chunk_seconds"`
	FFmpegBinary          string `toml:"ffmpeg_binary"`
	YtDlpBinary           string `toml:"ytdlp_binary"`
	CookiesFile           string `toml:"cookies_file"`
	URLRefreshChunks      int    `toml:"url_refresh_chunks"`
	ResolveTimeoutSeconds int    `toml:"resolve_timeout_seconds"`
}

// Corpus contains configuration for reference document chunking and retrieval.
type Corpus struct {
	ChunkChars     int     `toml:"chunk_chars"`
	OverlapChars   int     `toml:"overlap_chars"`
	EmbedBatchSize int     `toml:"embed_batch_size"`
	ScoreFloor     float64 `toml:"score_floor"`
	TopK           int     `toml:"top_k"`
}

// Pipeline contains configuration for stage queue depths and retry behavior.
type Pipeline struct {
	QueueDepth         int `toml:"queue_depth"`
	TranscribeAttempts int `toml:"transcribe_attempts"`
	RetryBaseMillis    int `toml:"retry_base_millis"`
	VerifyConcurrency  int `toml:"verify_concurrency"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for factstream.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - OpenAI: API connection and model selection
//   - Capture: stream resolution and ffmpeg chunking
//   - Corpus: reference chunking, embedding batches, retrieval thresholds
//   - Pipeline: stage queue depths, retries, verification concurrency
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	OpenAI   OpenAI   `toml:"openai"`
	Capture  Capture  `toml:"capture"`
	Corpus   Corpus   `toml:"corpus"`
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/factstream/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// config file was found on disk.
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
		if _, err := os.Stat(expanded); err != nil {
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

	projectPath, err := filepath.Abs("factstream.toml")
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

// WriteSample writes the embedded sample configuration to the provided path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ReferenceDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CacheDBPath returns the location of the embedding cache database.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.Paths.DataDir, "embeddings.db")
}

// LockFilePath returns the location of the daemon's single-instance lock file.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.DataDir, "factstreamd.lock")
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, trimmed[2:])
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}
