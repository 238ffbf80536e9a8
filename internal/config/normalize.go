package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeOpenAI(); err != nil {
		return err
	}
	if err := c.normalizeCapture(); err != nil {
		return err
	}
	c.normalizeCorpus()
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.ReferenceDir, err = expandPath(c.Paths.ReferenceDir); err != nil {
		return fmt.Errorf("paths.reference_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeOpenAI() error {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeCapture() error {
	var err error
	if c.Capture.CookiesFile, err = expandPath(c.Capture.CookiesFile); err != nil {
		return fmt.Errorf("capture.cookies_file: %w", err)
	}
	if strings.TrimSpace(c.Capture.FFmpegBinary) == "" {
		c.Capture.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(c.Capture.YtDlpBinary) == "" {
		c.Capture.YtDlpBinary = "yt-dlp"
	}
	if c.Capture.ChunkSeconds <= 0 {
		c.Capture.ChunkSeconds = defaultChunkSeconds
	}
	if c.Capture.URLRefreshChunks <= 0 {
		c.Capture.URLRefreshChunks = defaultURLRefreshChunks
	}
	if c.Capture.ResolveTimeoutSeconds <= 0 {
		c.Capture.ResolveTimeoutSeconds = defaultResolveTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeCorpus() {
	if c.Corpus.ChunkChars <= 0 {
		c.Corpus.ChunkChars = defaultChunkChars
	}
	if c.Corpus.OverlapChars < 0 {
		c.Corpus.OverlapChars = defaultOverlapChars
	}
	if c.Corpus.EmbedBatchSize <= 0 {
		c.Corpus.EmbedBatchSize = defaultEmbedBatchSize
	}
	if c.Corpus.ScoreFloor < 0 {
		c.Corpus.ScoreFloor = 0
	}
	if c.Corpus.TopK <= 0 {
		c.Corpus.TopK = defaultTopK
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.QueueDepth <= 0 {
		c.Pipeline.QueueDepth = defaultQueueDepth
	}
	if c.Pipeline.TranscribeAttempts <= 0 {
		c.Pipeline.TranscribeAttempts = defaultTranscribeAttempts
	}
	if c.Pipeline.RetryBaseMillis <= 0 {
		c.Pipeline.RetryBaseMillis = defaultRetryBaseMillis
	}
	if c.Pipeline.VerifyConcurrency <= 0 {
		c.Pipeline.VerifyConcurrency = defaultVerifyConcurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
