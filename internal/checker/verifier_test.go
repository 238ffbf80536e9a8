package checker

import (
	"context"
	"errors"
	"testing"

	"factstream/internal/logging"
	"factstream/internal/refcache"
	"factstream/internal/retrieval"
	"factstream/internal/services/openai"
)

// stubWeb returns a canned web-search answer or error.
type stubWeb struct {
	answer openai.WebAnswer
	err    error
	calls  int
}

func (s *stubWeb) AnswerWithWebSearch(context.Context, string, string, string) (openai.WebAnswer, error) {
	s.calls++
	return s.answer, s.err
}

func evidence(text string) []retrieval.Match {
	return []retrieval.Match{{
		Chunk: refcache.ReferenceChunk{Path: "/corpus/a.txt", Seq: 0, Text: text},
		Score: 0.9,
	}}
}

func TestVerifyWithReferenceEvidence(t *testing.T) {
	web := &stubWeb{answer: openai.WebAnswer{
		Text: `{"verdict": "fact", "confidence": 0.92, "explanation": "matches the record", "source_type": "reference", "sources": []}`,
	}}
	verifier := NewVerifier(&stubChat{}, web, "demo-model", logging.NewNop())

	result, err := verifier.Verify(context.Background(), "st-1", "the law passed in 2019", evidence("the law passed in 2019"))
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Verdict != VerdictFact {
		t.Fatalf("unexpected verdict %q", result.Verdict)
	}
	if result.Confidence != 0.92 {
		t.Fatalf("unexpected confidence %v", result.Confidence)
	}
	if result.SourceType != SourceReference {
		t.Fatalf("unexpected source type %q", result.SourceType)
	}
}

func TestVerifyIgnoresReferenceClaimWithoutEvidence(t *testing.T) {
	web := &stubWeb{answer: openai.WebAnswer{
		Text: `{"verdict": "fact", "confidence": 0.8, "explanation": "", "source_type": "reference", "sources": []}`,
	}}
	verifier := NewVerifier(&stubChat{}, web, "demo-model", logging.NewNop())

	// The model claims reference evidence but none was supplied; the claim is
	// discounted and the verdict rests on the model alone.
	result, err := verifier.Verify(context.Background(), "st-1", "claim", nil)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.SourceType != SourceLLM {
		t.Fatalf("unexpected source type %q", result.SourceType)
	}
}

func TestVerifyRecordsWebSearchUse(t *testing.T) {
	web := &stubWeb{answer: openai.WebAnswer{
		Text:     `{"verdict": "false", "confidence": 0.7, "explanation": "contradicted", "source_type": "llm", "sources": []}`,
		Searched: true,
		Sources:  []string{"https://example.org/article"},
	}}
	verifier := NewVerifier(&stubChat{}, web, "demo-model", logging.NewNop())

	result, err := verifier.Verify(context.Background(), "st-1", "claim", nil)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.SourceType != SourceWebLLM {
		t.Fatalf("expected web_search+llm, got %q", result.SourceType)
	}
	if len(result.Sources) != 1 || result.Sources[0] != "https://example.org/article" {
		t.Fatalf("cited URLs not merged: %v", result.Sources)
	}
}

func TestVerifyFallsBackToChatWhenWebSearchUnavailable(t *testing.T) {
	web := &stubWeb{err: errors.New("responses endpoint not supported")}
	chat := &stubChat{payload: `{"verdict": "partial", "confidence": 0.5, "explanation": "half right", "source_type": "llm", "sources": []}`}
	verifier := NewVerifier(chat, web, "demo-model", logging.NewNop())

	result, err := verifier.Verify(context.Background(), "st-1", "claim", nil)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if chat.calls != 1 {
		t.Fatalf("expected chat fallback, got %d chat calls", chat.calls)
	}
	if result.Verdict != VerdictPartial {
		t.Fatalf("unexpected verdict %q", result.Verdict)
	}
	if result.SourceType != SourceLLM {
		t.Fatalf("unexpected source type %q", result.SourceType)
	}
}

func TestVerifyDegradesToUnverifiableOnTotalFailure(t *testing.T) {
	web := &stubWeb{err: errors.New("down")}
	chat := &stubChat{err: errors.New("also down")}
	verifier := NewVerifier(chat, web, "demo-model", logging.NewNop())

	result, err := verifier.Verify(context.Background(), "st-1", "claim", nil)
	if err == nil {
		t.Fatal("expected error to be surfaced")
	}
	if result.Verdict != VerdictUnverifiable {
		t.Fatalf("expected unverifiable fallback, got %q", result.Verdict)
	}
	if result.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", result.Confidence)
	}
	if result.SourceType != SourceLLM {
		t.Fatalf("unexpected source type %q", result.SourceType)
	}
	if result.StatementID != "st-1" {
		t.Fatalf("fallback lost statement id: %q", result.StatementID)
	}
}

func TestVerifyClampsConfidence(t *testing.T) {
	web := &stubWeb{answer: openai.WebAnswer{
		Text: `{"verdict": "fact", "confidence": 1.7, "explanation": "", "source_type": "llm", "sources": []}`,
	}}
	verifier := NewVerifier(&stubChat{}, web, "demo-model", logging.NewNop())

	result, err := verifier.Verify(context.Background(), "st-1", "claim", nil)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %v", result.Confidence)
	}
}

func TestVerifyNormalizesUnknownVerdict(t *testing.T) {
	web := &stubWeb{answer: openai.WebAnswer{
		Text: `{"verdict": "mostly-true", "confidence": 0.6, "explanation": "", "source_type": "llm", "sources": []}`,
	}}
	verifier := NewVerifier(&stubChat{}, web, "demo-model", logging.NewNop())

	result, err := verifier.Verify(context.Background(), "st-1", "claim", nil)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.Verdict != VerdictUnverifiable {
		t.Fatalf("unknown verdict should map to unverifiable, got %q", result.Verdict)
	}
}
