package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"factstream/internal/capture"
	"factstream/internal/checker"
	"factstream/internal/logging"
	"factstream/internal/textutil"
)

// statement is one transcribed utterance flowing through the stages.
type statement struct {
	id         string
	chunkIndex int
	startSec   float64
	text       string
	claimType  checker.ClaimType
}

// run executes the stage graph for one session and blocks until every stage
// has drained, then finalizes. Channel closes propagate shutdown downstream:
// capture closes chunks, transcription closes statements, classification
// closes the check queue.
func (m *Manager) run(ctx context.Context, sess *Session) {
	chunks := make(chan capture.Chunk, m.cfg.QueueDepth)
	statements := make(chan statement, m.cfg.QueueDepth)
	checkQueue := make(chan statement, m.cfg.QueueDepth)

	var captureErr error
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		defer close(chunks)
		captureErr = m.capturer.Run(ctx, sess.SourceURL, chunks)
	}()
	go func() {
		defer wg.Done()
		defer close(statements)
		m.transcribeLoop(ctx, sess, chunks, statements)
	}()
	go func() {
		defer wg.Done()
		defer close(checkQueue)
		m.classifyLoop(ctx, statements, checkQueue)
	}()

	m.verifyLoop(ctx, checkQueue)
	wg.Wait()
	m.finalize(ctx, sess, captureErr)
}

// transcribeLoop converts chunks to statements. A chunk whose transcription
// keeps failing is dropped with an error event; the session continues.
func (m *Manager) transcribeLoop(ctx context.Context, sess *Session, chunks <-chan capture.Chunk, out chan<- statement) {
	for chunk := range chunks {
		sess.chunks.Add(1)
		if ctx.Err() != nil {
			continue
		}

		text, err := m.transcribeWithRetry(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			m.logger.Warn("dropping chunk after transcription failures",
				logging.Int("chunk_index", chunk.Index),
				logging.Error(err))
			m.hub.Publish(newErrorEvent(
				fmt.Sprintf("transcription failed for chunk %d: %v", chunk.Index, err),
				chunk.Index, ""))
			continue
		}

		text = textutil.NormalizeTranscript(text)
		if strings.TrimSpace(text) == "" {
			m.logger.Debug("silent chunk skipped", logging.Int("chunk_index", chunk.Index))
			continue
		}
		if m.refiner != nil {
			text = m.refiner.Refine(ctx, text)
		}

		st := statement{
			id:         newID(),
			chunkIndex: chunk.Index,
			startSec:   chunk.StartSec,
			text:       text,
		}
		m.hub.Publish(newTranscriptionEvent(st))

		select {
		case out <- st:
		case <-ctx.Done():
		}
	}
}

func (m *Manager) transcribeWithRetry(ctx context.Context, chunk capture.Chunk) (string, error) {
	filename := fmt.Sprintf("chunk_%04d.wav", chunk.Index)
	var lastErr error
	for attempt := 0; attempt < m.cfg.TranscribeAttempts; attempt++ {
		if attempt > 0 {
			delay := m.cfg.RetryBase << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		text, err := m.stt.Transcribe(ctx, chunk.Data, filename)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", lastErr
		}
		m.logger.Warn("transcription attempt failed",
			logging.Int("chunk_index", chunk.Index),
			logging.Int("attempt", attempt+1),
			logging.Error(err))
	}
	return "", lastErr
}

// classifyLoop screens statements and forwards checkable claims. Screening
// fails open: when the classifier errors the statement is still checked.
func (m *Manager) classifyLoop(ctx context.Context, in <-chan statement, out chan<- statement) {
	for st := range in {
		if ctx.Err() != nil {
			continue
		}

		cls, err := m.classifier.Classify(ctx, st.id, st.text)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			m.logger.Warn("classification failed, checking anyway",
				logging.String("statement_id", st.id),
				logging.Error(err))
			m.hub.Publish(newErrorEvent(
				fmt.Sprintf("classification failed for statement %s: %v", st.id, err),
				st.chunkIndex, st.id))
		}
		m.hub.Publish(newClassificationEvent(cls))
		if !cls.NeedsCheck {
			continue
		}

		st.claimType = cls.ClaimType
		select {
		case out <- st:
		case <-ctx.Done():
		}
	}
}

// verifyLoop fans statements out to bounded concurrent verification and
// returns once the queue is closed and every in-flight verification is done.
func (m *Manager) verifyLoop(ctx context.Context, in <-chan statement) {
	sem := make(chan struct{}, m.cfg.VerifyConcurrency)
	var wg sync.WaitGroup
	for st := range in {
		if ctx.Err() != nil {
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			continue
		}
		wg.Add(1)
		go func(st statement) {
			defer wg.Done()
			defer func() { <-sem }()
			m.verifyOne(ctx, st)
		}(st)
	}
	wg.Wait()
}

func (m *Manager) verifyOne(ctx context.Context, st statement) {
	evidence, err := m.search.Search(ctx, st.text, m.cfg.TopK)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("evidence retrieval failed, verifying without context",
			logging.String("statement_id", st.id),
			logging.Error(err))
		m.hub.Publish(newErrorEvent(
			fmt.Sprintf("evidence retrieval failed for statement %s: %v", st.id, err),
			st.chunkIndex, st.id))
		evidence = nil
	}

	result, err := m.verifier.Verify(ctx, st.id, st.text, evidence)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Verify degrades to an unverifiable result; publish it so the
		// statement is not silently lost.
		m.logger.Warn("verification degraded",
			logging.String("statement_id", st.id),
			logging.Error(err))
	}
	m.hub.Publish(newFactCheckEvent(st, result))
}
