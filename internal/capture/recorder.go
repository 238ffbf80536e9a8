package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"factstream/internal/logging"
)

// minChunkBytes guards against ffmpeg succeeding but writing a header-only
// file when the stream stalls.
const minChunkBytes = 1000

// Recorder runs the chunk extraction loop against a resolved stream URL.
type Recorder struct {
	cfg      Config
	resolver *Resolver
	run      CommandRunner
	logger   *slog.Logger
}

// NewRecorder constructs a recorder that re-resolves through resolver when
// the stream URL's token expires.
func NewRecorder(cfg Config, resolver *Resolver, logger *slog.Logger) *Recorder {
	return &Recorder{
		cfg:      cfg,
		resolver: resolver,
		run:      runCommand,
		logger:   logging.NewComponentLogger(logger, "capture"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *Recorder) WithCommandRunner(run CommandRunner) {
	if run != nil {
		r.run = run
	}
}

// Run records fixed-duration chunks and sends them on out until the context
// is cancelled or the capture fails. The caller owns out and may rely on Run
// never closing it. Returns nil on cancellation, ErrSourceUnavailable if the
// initial resolve fails, and ErrCaptureLost if recording dies mid-session.
func (r *Recorder) Run(ctx context.Context, sourceURL string, out chan<- Chunk) error {
	streamURL, err := r.resolver.Resolve(ctx, sourceURL)
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp("", "factstream-capture-")
	if err != nil {
		return fmt.Errorf("create capture work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	duration := r.cfg.ChunkSeconds
	refreshEvery := r.cfg.URLRefreshChunks

	for index := 0; ; index++ {
		if ctx.Err() != nil {
			return nil
		}

		// The resolved URL embeds an expiring token; refresh it periodically.
		if refreshEvery > 0 && index > 0 && index%refreshEvery == 0 {
			if fresh, resolveErr := r.resolver.Resolve(ctx, sourceURL); resolveErr == nil {
				streamURL = fresh
			} else if ctx.Err() != nil {
				return nil
			} else {
				r.logger.Warn("stream url refresh failed; continuing with previous url", logging.Error(resolveErr))
			}
		}

		chunkPath := filepath.Join(workDir, fmt.Sprintf("chunk_%04d.wav", index))
		data, recErr := r.recordChunk(ctx, streamURL, chunkPath, duration)
		_ = os.Remove(chunkPath)
		if recErr != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: chunk %d: %s", ErrCaptureLost, index, recErr)
		}

		chunk := Chunk{
			Index:    index,
			StartSec: float64(index * duration),
			Data:     data,
		}
		select {
		case out <- chunk:
			r.logger.Debug("chunk captured",
				logging.Int("index", index),
				logging.Int("bytes", len(data)),
			)
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Recorder) recordChunk(ctx context.Context, streamURL, dest string, duration int) ([]byte, error) {
	// Live HLS reads can stall well past the nominal chunk length before
	// ffmpeg gives up; allow generous headroom, then kill.
	recordCtx, cancel := context.WithTimeout(ctx, time.Duration(duration*12+60)*time.Second)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "warning",
		"-i", streamURL,
		"-t", fmt.Sprintf("%d", duration),
		"-vn",
		"-ac", "1", "-ar", "16000",
		"-acodec", "pcm_s16le",
		"-y", dest,
	}
	_, stderr, err := r.run(recordCtx, r.cfg.FFmpegBinary, args...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: %s", errSnippet(stderr, err))
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		return nil, fmt.Errorf("read chunk file: %w", err)
	}
	if len(data) < minChunkBytes {
		return nil, fmt.Errorf("chunk too small (%d bytes)", len(data))
	}
	return data, nil
}
