package pipeline

import (
	"time"

	"factstream/internal/checker"
)

// EventType tags the payload carried by an Event.
type EventType string

const (
	EventTranscription  EventType = "transcription"
	EventClassification EventType = "classification"
	EventFactCheck      EventType = "fact_check"
	EventStatus         EventType = "status"
	EventError          EventType = "error"
)

// Event is one pipeline result pushed to subscribers. Sequence and Timestamp
// are assigned by the hub at publish time.
type Event struct {
	Type      EventType `json:"type"`
	Sequence  uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Data      any       `json:"data"`
}

// TranscriptionData announces a statement extracted from one audio chunk.
// The statement id is keyed "id" and the capture offset "timestamp" on the
// wire; connected clients correlate on those names.
type TranscriptionData struct {
	StatementID string  `json:"id"`
	ChunkIndex  int     `json:"chunk_index"`
	Text        string  `json:"text"`
	StartSec    float64 `json:"timestamp"`
}

// ClassificationData is the screening decision for a statement.
type ClassificationData struct {
	StatementID string `json:"statement_id"`
	NeedsCheck  bool   `json:"needs_check"`
	ClaimType   string `json:"claim_type"`
	Reason      string `json:"reason,omitempty"`
}

// FactCheckData is the verdict for a checked statement.
type FactCheckData struct {
	StatementID string   `json:"statement_id"`
	Text        string   `json:"text"`
	Verdict     string   `json:"verdict"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	SourceType  string   `json:"source_type"`
	Sources     []string `json:"sources,omitempty"`
}

// StatusData reports a session lifecycle transition.
type StatusData struct {
	Status          string `json:"status"`
	SessionID       string `json:"session_id,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
	ChunksProcessed int64  `json:"chunks_processed,omitempty"`
}

// ErrorData reports a recoverable pipeline failure. ChunkIndex is -1 when the
// error is not scoped to a chunk.
type ErrorData struct {
	Message     string `json:"message"`
	ChunkIndex  int    `json:"chunk_index"`
	StatementID string `json:"statement_id,omitempty"`
}

func newTranscriptionEvent(st statement) Event {
	return Event{
		Type: EventTranscription,
		Data: TranscriptionData{
			StatementID: st.id,
			ChunkIndex:  st.chunkIndex,
			Text:        st.text,
			StartSec:    st.startSec,
		},
	}
}

func newClassificationEvent(cls checker.Classification) Event {
	return Event{
		Type: EventClassification,
		Data: ClassificationData{
			StatementID: cls.StatementID,
			NeedsCheck:  cls.NeedsCheck,
			ClaimType:   string(cls.ClaimType),
			Reason:      cls.Reason,
		},
	}
}

func newFactCheckEvent(st statement, result checker.Result) Event {
	return Event{
		Type: EventFactCheck,
		Data: FactCheckData{
			StatementID: result.StatementID,
			Text:        st.text,
			Verdict:     string(result.Verdict),
			Confidence:  result.Confidence,
			Explanation: result.Explanation,
			SourceType:  string(result.SourceType),
			Sources:     result.Sources,
		},
	}
}

func newStatusEvent(status string, sess *Session, chunks int64) Event {
	data := StatusData{Status: status}
	if sess != nil {
		data.SessionID = sess.ID
		data.SourceURL = sess.SourceURL
	}
	data.ChunksProcessed = chunks
	return Event{Type: EventStatus, Data: data}
}

func newErrorEvent(message string, chunkIndex int, statementID string) Event {
	return Event{
		Type: EventError,
		Data: ErrorData{
			Message:     message,
			ChunkIndex:  chunkIndex,
			StatementID: statementID,
		},
	}
}
