package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"factstream/internal/logging"
)

func testConfig() Config {
	return Config{
		ChunkSeconds:          2,
		FFmpegBinary:          "ffmpeg",
		YtDlpBinary:           "yt-dlp",
		URLRefreshChunks:      20,
		ResolveTimeoutSeconds: 5,
	}
}

func TestResolveReturnsFirstLine(t *testing.T) {
	resolver := NewResolver(testConfig(), logging.NewNop())
	resolver.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		if name != "yt-dlp" {
			t.Fatalf("unexpected binary %s", name)
		}
		if args[0] != "-f" || args[1] != "91" || args[2] != "-g" {
			t.Fatalf("unexpected args %v", args)
		}
		return []byte("https://stream.example/video.m3u8\nhttps://stream.example/audio.m3u8\n"), nil, nil
	})

	url, err := resolver.Resolve(context.Background(), "https://youtube.example/watch?v=abc")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if url != "https://stream.example/video.m3u8" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestResolvePassesCookies(t *testing.T) {
	cfg := testConfig()
	cfg.CookiesFile = "/tmp/cookies.txt"
	resolver := NewResolver(cfg, logging.NewNop())

	var sawCookies bool
	resolver.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
		for i, arg := range args {
			if arg == "--cookies" && i+1 < len(args) && args[i+1] == "/tmp/cookies.txt" {
				sawCookies = true
			}
		}
		return []byte("https://stream.example/audio.m3u8\n"), nil, nil
	})

	if _, err := resolver.Resolve(context.Background(), "https://youtube.example/watch?v=abc"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !sawCookies {
		t.Fatal("expected --cookies flag to be passed")
	}
}

func TestResolveFailureMapsToSourceUnavailable(t *testing.T) {
	resolver := NewResolver(testConfig(), logging.NewNop())
	resolver.WithCommandRunner(func(context.Context, string, ...string) ([]byte, []byte, error) {
		return nil, []byte("ERROR: This video is unavailable"), errors.New("exit status 1")
	})

	_, err := resolver.Resolve(context.Background(), "https://youtube.example/watch?v=gone")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestRunResolveFailureSpawnsNoFFmpeg(t *testing.T) {
	cfg := testConfig()
	resolver := NewResolver(cfg, logging.NewNop())
	resolver.WithCommandRunner(func(context.Context, string, ...string) ([]byte, []byte, error) {
		return nil, nil, errors.New("exit status 1")
	})

	recorder := NewRecorder(cfg, resolver, logging.NewNop())
	var ffmpegCalls atomic.Int32
	recorder.WithCommandRunner(func(context.Context, string, ...string) ([]byte, []byte, error) {
		ffmpegCalls.Add(1)
		return nil, nil, nil
	})

	out := make(chan Chunk, 1)
	err := recorder.Run(context.Background(), "https://youtube.example/watch?v=abc", out)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if ffmpegCalls.Load() != 0 {
		t.Fatalf("ffmpeg must not run when resolution fails, got %d calls", ffmpegCalls.Load())
	}
}

func writeChunkFile(t *testing.T, args []string, size int) {
	t.Helper()
	dest := args[len(args)-1]
	if err := os.WriteFile(dest, bytes.Repeat([]byte{0x42}, size), 0o644); err != nil {
		t.Fatalf("write chunk file: %v", err)
	}
}

func TestRunEmitsChunksUntilCancelled(t *testing.T) {
	cfg := testConfig()
	resolver := NewResolver(cfg, logging.NewNop())
	resolver.WithCommandRunner(func(context.Context, string, ...string) ([]byte, []byte, error) {
		return []byte("https://stream.example/audio.m3u8\n"), nil, nil
	})

	recorder := NewRecorder(cfg, resolver, logging.NewNop())
	recorder.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
		if name != "ffmpeg" {
			t.Fatalf("unexpected binary %s", name)
		}
		writeChunkFile(t, args, 4096)
		return nil, nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Chunk)
	done := make(chan error, 1)
	go func() { done <- recorder.Run(ctx, "https://youtube.example/watch?v=abc", out) }()

	for i := 0; i < 3; i++ {
		select {
		case chunk := <-out:
			if chunk.Index != i {
				t.Fatalf("expected chunk index %d, got %d", i, chunk.Index)
			}
			if chunk.StartSec != float64(i*cfg.ChunkSeconds) {
				t.Fatalf("unexpected start offset %v for chunk %d", chunk.StartSec, i)
			}
			if len(chunk.Data) != 4096 {
				t.Fatalf("unexpected chunk size %d", len(chunk.Data))
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for chunk")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancellation, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for Run to exit")
	}
}

func TestRunMidSessionFailureIsCaptureLost(t *testing.T) {
	cfg := testConfig()
	resolver := NewResolver(cfg, logging.NewNop())
	resolver.WithCommandRunner(func(context.Context, string, ...string) ([]byte, []byte, error) {
		return []byte("https://stream.example/audio.m3u8\n"), nil, nil
	})

	recorder := NewRecorder(cfg, resolver, logging.NewNop())
	var calls atomic.Int32
	recorder.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
		if calls.Add(1) > 2 {
			return nil, []byte("Connection reset"), errors.New("exit status 1")
		}
		writeChunkFile(t, args, 4096)
		return nil, nil, nil
	})

	out := make(chan Chunk, 8)
	err := recorder.Run(context.Background(), "https://youtube.example/watch?v=abc", out)
	if !errors.Is(err, ErrCaptureLost) {
		t.Fatalf("expected ErrCaptureLost, got %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 chunks before failure, got %d", len(out))
	}
}

func TestRunRejectsTinyChunks(t *testing.T) {
	cfg := testConfig()
	resolver := NewResolver(cfg, logging.NewNop())
	resolver.WithCommandRunner(func(context.Context, string, ...string) ([]byte, []byte, error) {
		return []byte("https://stream.example/audio.m3u8\n"), nil, nil
	})

	recorder := NewRecorder(cfg, resolver, logging.NewNop())
	recorder.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
		writeChunkFile(t, args, 10) // header-only stub
		return nil, nil, nil
	})

	out := make(chan Chunk, 1)
	err := recorder.Run(context.Background(), "https://youtube.example/watch?v=abc", out)
	if !errors.Is(err, ErrCaptureLost) {
		t.Fatalf("expected ErrCaptureLost for tiny chunk, got %v", err)
	}
}

func TestRunRefreshesStreamURL(t *testing.T) {
	cfg := testConfig()
	cfg.URLRefreshChunks = 2
	resolver := NewResolver(cfg, logging.NewNop())
	var resolves atomic.Int32
	resolver.WithCommandRunner(func(context.Context, string, ...string) ([]byte, []byte, error) {
		n := resolves.Add(1)
		return []byte(fmt.Sprintf("https://stream.example/audio-%d.m3u8\n", n)), nil, nil
	})

	recorder := NewRecorder(cfg, resolver, logging.NewNop())
	var urls []string
	recorder.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
		for i, arg := range args {
			if arg == "-i" && i+1 < len(args) {
				urls = append(urls, args[i+1])
			}
		}
		writeChunkFile(t, args, 4096)
		return nil, nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Chunk)
	done := make(chan error, 1)
	go func() { done <- recorder.Run(ctx, "https://youtube.example/watch?v=abc", out) }()

	for i := 0; i < 3; i++ {
		select {
		case <-out:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for chunk")
		}
	}
	cancel()
	<-done

	if resolves.Load() < 2 {
		t.Fatalf("expected a url refresh after %d chunks, got %d resolves", cfg.URLRefreshChunks, resolves.Load())
	}
	if len(urls) < 3 || urls[0] != "https://stream.example/audio-1.m3u8" || urls[2] != "https://stream.example/audio-2.m3u8" {
		t.Fatalf("recording did not switch to refreshed url: %v", urls)
	}
}
