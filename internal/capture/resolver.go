package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"factstream/internal/logging"
)

// ytdlpFormat selects the lowest-quality stream that still carries audio;
// resolution is much faster and we discard the video anyway.
const ytdlpFormat = "91"

// Resolver turns a source URL into a direct media stream URL via yt-dlp.
type Resolver struct {
	cfg    Config
	run    CommandRunner
	logger *slog.Logger
}

// NewResolver constructs a resolver.
func NewResolver(cfg Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		cfg:    cfg,
		run:    runCommand,
		logger: logging.NewComponentLogger(logger, "capture"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *Resolver) WithCommandRunner(run CommandRunner) {
	if run != nil {
		r.run = run
	}
}

// Resolve extracts the direct stream URL for a source. Failures map to
// ErrSourceUnavailable; callers must not retry automatically.
func (r *Resolver) Resolve(ctx context.Context, sourceURL string) (string, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return "", fmt.Errorf("%w: empty source url", ErrSourceUnavailable)
	}

	timeout := time.Duration(r.cfg.ResolveTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	resolveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-f", ytdlpFormat, "-g"}
	if r.cfg.CookiesFile != "" {
		args = append(args, "--cookies", r.cfg.CookiesFile)
	}
	args = append(args, sourceURL)

	r.logger.Info("resolving stream url", logging.String("source", sourceURL))
	stdout, stderr, err := r.run(resolveCtx, r.cfg.YtDlpBinary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: yt-dlp: %s", ErrSourceUnavailable, errSnippet(stderr, err))
	}

	streamURL := strings.TrimSpace(string(stdout))
	if streamURL == "" {
		return "", fmt.Errorf("%w: yt-dlp returned empty url", ErrSourceUnavailable)
	}
	if idx := strings.IndexByte(streamURL, '\n'); idx >= 0 {
		streamURL = strings.TrimSpace(streamURL[:idx])
	}

	r.logger.Info("stream url resolved", logging.Int("url_length", len(streamURL)))
	return streamURL, nil
}

func errSnippet(stderr []byte, err error) string {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return err.Error()
	}
	const maxLen = 300
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
