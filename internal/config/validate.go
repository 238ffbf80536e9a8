package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateCorpus(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.ReferenceDir == "" {
		return errors.New("paths.reference_dir must be set")
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	if c.OpenAI.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/factstream/config.toml"
		}
		return fmt.Errorf("openai.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'factstream config init')", defaultPath)
	}
	if c.OpenAI.WhisperModel == "" || c.OpenAI.ClassifierModel == "" || c.OpenAI.VerifierModel == "" || c.OpenAI.EmbeddingModel == "" {
		return errors.New("openai model names must not be empty")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.ChunkSeconds < 2 || c.Capture.ChunkSeconds > 120 {
		return errors.New("capture.chunk_seconds must be between 2 and 120")
	}
	return nil
}

func (c *Config) validateCorpus() error {
	if c.Corpus.OverlapChars >= c.Corpus.ChunkChars {
		return errors.New("corpus.overlap_chars must be smaller than corpus.chunk_chars")
	}
	if c.Corpus.ScoreFloor < 0 || c.Corpus.ScoreFloor > 1 {
		return errors.New("corpus.score_floor must be between 0 and 1")
	}
	return nil
}
