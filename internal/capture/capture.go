package capture

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// Chunk is one fixed-duration window of captured audio.
type Chunk struct {
	Index    int
	StartSec float64
	Data     []byte
}

// Config carries the subprocess settings for resolution and recording.
type Config struct {
	ChunkSeconds          int
	FFmpegBinary          string
	YtDlpBinary           string
	CookiesFile           string
	URLRefreshChunks      int
	ResolveTimeoutSeconds int
}

// killGrace bounds how long a cancelled subprocess may linger before SIGKILL.
const killGrace = 5 * time.Second

// CommandRunner executes a subprocess and returns its stdout and stderr.
// Injectable so tests never spawn real processes.
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.WaitDelay = killGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
