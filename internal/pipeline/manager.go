// Package pipeline orchestrates the live fact-checking flow: capture feeds
// transcription, transcription feeds classification, and claims that survive
// screening fan out to bounded concurrent verification. Results are published
// to an event hub that transports subscribe to.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"factstream/internal/capture"
	"factstream/internal/checker"
	"factstream/internal/logging"
	"factstream/internal/retrieval"
)

// ErrStopping is returned by Start while a previous session is still
// draining.
var ErrStopping = errors.New("pipeline: session is stopping, retry shortly")

// Capturer produces audio chunks for a source URL until cancelled.
type Capturer interface {
	Run(ctx context.Context, sourceURL string, out chan<- capture.Chunk) error
}

// Transcriber converts one audio chunk to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Refiner cleans raw transcript text. Implementations must degrade to the
// input on failure rather than erroring.
type Refiner interface {
	Refine(ctx context.Context, raw string) string
}

// ClaimClassifier screens statements for checkable claims.
type ClaimClassifier interface {
	Classify(ctx context.Context, statementID, text string) (checker.Classification, error)
}

// ClaimVerifier produces a verdict for one statement.
type ClaimVerifier interface {
	Verify(ctx context.Context, statementID, text string, evidence []retrieval.Match) (checker.Result, error)
}

// EvidenceSearcher retrieves reference chunks relevant to a statement.
type EvidenceSearcher interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.Match, error)
}

// Config carries the orchestration knobs.
type Config struct {
	QueueDepth         int
	TranscribeAttempts int
	RetryBase          time.Duration
	VerifyConcurrency  int
	TopK               int
}

func (c Config) withDefaults() Config {
	if c.QueueDepth <= 0 {
		c.QueueDepth = 8
	}
	if c.TranscribeAttempts <= 0 {
		c.TranscribeAttempts = 3
	}
	if c.RetryBase <= 0 {
		c.RetryBase = time.Second
	}
	if c.VerifyConcurrency <= 0 {
		c.VerifyConcurrency = 3
	}
	if c.TopK <= 0 {
		c.TopK = retrieval.DefaultTopK
	}
	return c
}

// Manager owns the single live session and its stage goroutines.
type Manager struct {
	cfg        Config
	hub        *Hub
	capturer   Capturer
	stt        Transcriber
	refiner    Refiner
	classifier ClaimClassifier
	verifier   ClaimVerifier
	search     EvidenceSearcher
	logger     *slog.Logger

	mu      sync.Mutex
	state   State
	session *Session
	cancel  context.CancelFunc
}

// NewManager wires the pipeline stages together. refiner may be nil to skip
// transcript refinement.
func NewManager(cfg Config, hub *Hub, capturer Capturer, stt Transcriber, refiner Refiner, classifier ClaimClassifier, verifier ClaimVerifier, search EvidenceSearcher, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:        cfg.withDefaults(),
		hub:        hub,
		capturer:   capturer,
		stt:        stt,
		refiner:    refiner,
		classifier: classifier,
		verifier:   verifier,
		search:     search,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		state:      StateIdle,
	}
}

// Status is a point-in-time snapshot of the pipeline.
type Status struct {
	State           State  `json:"state"`
	SessionID       string `json:"session_id,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
	ChunksProcessed int64  `json:"chunks_processed"`
}

// Status reports the current lifecycle state and session, if any.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := Status{State: m.state}
	if m.session != nil {
		status.SessionID = m.session.ID
		status.SourceURL = m.session.SourceURL
		status.ChunksProcessed = m.session.ChunksProcessed()
	}
	return status
}

// Start begins a session for sourceURL. ctx must be the daemon's long-lived
// context, not a request context; the session outlives any one subscriber.
//
// Starting the URL that is already running is a no-op. Starting a different
// URL stops the current session first, then starts the new one.
func (m *Manager) Start(ctx context.Context, sourceURL string) error {
	m.mu.Lock()
	switch m.state {
	case StateRunning:
		if m.session != nil && m.session.SourceURL == sourceURL {
			m.mu.Unlock()
			m.logger.Info("start ignored, session already running",
				logging.String("source_url", sourceURL))
			return nil
		}
		m.mu.Unlock()
		m.Stop()
		m.mu.Lock()
	case StateStopping:
		m.mu.Unlock()
		return ErrStopping
	}
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrStopping
	}

	sess := newSession(sourceURL)
	runCtx, cancel := context.WithCancel(ctx)
	m.state = StateRunning
	m.session = sess
	m.cancel = cancel
	m.mu.Unlock()

	m.logger.Info("session starting",
		logging.String("session_id", sess.ID),
		logging.String("source_url", sourceURL))
	m.hub.Publish(newStatusEvent("running", sess, 0))

	go m.run(runCtx, sess)
	return nil
}

// Stop cancels the live session and blocks until every in-flight statement
// has drained. A no-op when nothing is running.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state != StateRunning || m.session == nil {
		m.mu.Unlock()
		return
	}
	m.state = StateStopping
	sess := m.session
	cancel := m.cancel
	m.mu.Unlock()

	m.logger.Info("session stopping", logging.String("session_id", sess.ID))
	cancel()
	<-sess.Done()
}

// finalize publishes the terminal status, records a capture failure if one
// ended the session, and returns the pipeline to idle. It runs exactly once
// per session, after every stage has drained.
func (m *Manager) finalize(ctx context.Context, sess *Session, captureErr error) {
	if captureErr != nil && ctx.Err() == nil {
		m.logger.Error("capture ended session",
			logging.String("session_id", sess.ID),
			logging.Error(captureErr))
		m.hub.Publish(newErrorEvent(fmt.Sprintf("capture failed: %v", captureErr), -1, ""))
	}

	chunks := sess.ChunksProcessed()
	m.hub.Publish(newStatusEvent("stopped", sess, chunks))
	m.logger.Info("session finished",
		logging.String("session_id", sess.ID),
		logging.Int64("chunks_processed", chunks))

	m.mu.Lock()
	m.state = StateIdle
	m.session = nil
	m.cancel = nil
	m.mu.Unlock()
	close(sess.done)
}
