// Package daemonrun wires the daemon's dependency graph and owns its process
// lifecycle: config, logger, embedding cache, corpus loader, pipeline, and
// API server, torn down in reverse order on SIGINT/SIGTERM.
package daemonrun

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"factstream/internal/capture"
	"factstream/internal/checker"
	"factstream/internal/config"
	"factstream/internal/daemon"
	"factstream/internal/deps"
	"factstream/internal/logging"
	"factstream/internal/pipeline"
	"factstream/internal/refcache"
	"factstream/internal/retrieval"
	"factstream/internal/services/openai"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the factstream daemon runtime loop and blocks until the process
// receives a termination signal.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	if strings.TrimSpace(opts.LogLevel) != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	client := openai.NewClient(openai.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		TimeoutSeconds: cfg.OpenAI.TimeoutSeconds,
	})

	store, err := refcache.Open(cfg.CacheDBPath())
	if err != nil {
		return fmt.Errorf("open embedding cache: %w", err)
	}
	defer store.Close()

	embedder := embedAdapter{client: client, model: cfg.OpenAI.EmbeddingModel}
	index := retrieval.NewIndex(embedder, cfg.Corpus.ScoreFloor)
	loader := retrieval.NewLoader(store, embedder, index, logger, retrieval.LoaderOptions{
		ReferenceDir:   cfg.Paths.ReferenceDir,
		ChunkChars:     cfg.Corpus.ChunkChars,
		OverlapChars:   cfg.Corpus.OverlapChars,
		EmbedBatchSize: cfg.Corpus.EmbedBatchSize,
	})

	captureCfg := capture.Config{
		ChunkSeconds:          cfg.Capture.ChunkSeconds,
		FFmpegBinary:          cfg.Capture.FFmpegBinary,
		YtDlpBinary:           cfg.Capture.YtDlpBinary,
		CookiesFile:           cfg.Capture.CookiesFile,
		URLRefreshChunks:      cfg.Capture.URLRefreshChunks,
		ResolveTimeoutSeconds: cfg.Capture.ResolveTimeoutSeconds,
	}
	for _, status := range deps.Check(deps.CaptureRequirements(captureCfg)) {
		if status.Available {
			logger.Debug("capture tool found",
				logging.String("tool", status.Name),
				logging.String("command", status.Command))
			continue
		}
		if status.Optional {
			logger.Warn("optional tool missing",
				logging.String("tool", status.Name),
				logging.String("detail", status.Detail))
			continue
		}
		return fmt.Errorf("required tool %s unavailable: %s", status.Name, status.Detail)
	}

	resolver := capture.NewResolver(captureCfg, logger)
	recorder := capture.NewRecorder(captureCfg, resolver, logger)

	hub := pipeline.NewHub(0)
	manager := pipeline.NewManager(
		pipeline.Config{
			QueueDepth:         cfg.Pipeline.QueueDepth,
			TranscribeAttempts: cfg.Pipeline.TranscribeAttempts,
			RetryBase:          time.Duration(cfg.Pipeline.RetryBaseMillis) * time.Millisecond,
			VerifyConcurrency:  cfg.Pipeline.VerifyConcurrency,
			TopK:               cfg.Corpus.TopK,
		},
		hub,
		recorder,
		sttAdapter{client: client, model: cfg.OpenAI.WhisperModel, language: cfg.OpenAI.Language},
		checker.NewRefiner(client, cfg.OpenAI.ClassifierModel, logger),
		checker.NewClassifier(client, cfg.OpenAI.ClassifierModel, logger),
		checker.NewVerifier(client, client, cfg.OpenAI.VerifierModel, logger),
		loader,
		logger,
	)

	d, err := daemon.New(cfg, store, loader, manager, hub, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	// Build the corpus in the background so the API comes up immediately;
	// searches before the warm load finishes just see a smaller index.
	go func() {
		chunks, err := loader.WarmLoad(signalCtx)
		if err != nil && signalCtx.Err() == nil {
			logger.Warn("corpus warm load failed", logging.Error(err))
			return
		}
		logger.Info("corpus ready", logging.Int("chunks", chunks))
	}()

	<-signalCtx.Done()
	logger.Info("factstream daemon shutting down")
	return nil
}

type sttAdapter struct {
	client   *openai.Client
	model    string
	language string
}

func (a sttAdapter) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return a.client.Transcribe(ctx, openai.TranscribeRequest{
		Model:    a.model,
		Audio:    audio,
		Filename: filename,
		Language: a.language,
	})
}

type embedAdapter struct {
	client *openai.Client
	model  string
}

func (a embedAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return a.client.EmbedBatch(ctx, a.model, texts)
}
