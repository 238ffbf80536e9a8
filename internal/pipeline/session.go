package pipeline

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the pipeline lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Session is one live capture run. A session is created running and reaches
// its end exactly once, whether by explicit stop or by capture failure.
type Session struct {
	ID        string
	SourceURL string
	StartedAt time.Time

	chunks atomic.Int64
	done   chan struct{}
}

func newSession(sourceURL string) *Session {
	return &Session{
		ID:        newID(),
		SourceURL: sourceURL,
		StartedAt: time.Now().UTC(),
		done:      make(chan struct{}),
	}
}

// ChunksProcessed reports how many audio chunks capture has emitted so far.
func (s *Session) ChunksProcessed() int64 {
	if s == nil {
		return 0
	}
	return s.chunks.Load()
}

// Done is closed when the session has fully drained and the pipeline is idle
// again.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// newID returns a short random identifier for sessions and statements.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
