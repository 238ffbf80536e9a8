package checker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"factstream/internal/logging"
	"factstream/internal/retrieval"
	"factstream/internal/services/openai"
)

// WebAnswerer is the slice of the API client verification needs for
// web-search-grounded calls.
type WebAnswerer interface {
	AnswerWithWebSearch(ctx context.Context, model, instructions, input string) (openai.WebAnswer, error)
}

// Result is the verdict for one checked statement.
type Result struct {
	StatementID string
	Verdict     Verdict
	Confidence  float64
	Explanation string
	SourceType  SourceType
	Sources     []string
}

// Verifier produces verdicts by merging reference evidence, web search, and
// model knowledge.
type Verifier struct {
	chat   ChatCompleter
	web    WebAnswerer
	model  string
	logger *slog.Logger
}

// NewVerifier constructs a verifier using the given chat model. web may be nil
// to disable search-grounded calls entirely.
func NewVerifier(chat ChatCompleter, web WebAnswerer, model string, logger *slog.Logger) *Verifier {
	return &Verifier{
		chat:   chat,
		web:    web,
		model:  model,
		logger: logging.NewComponentLogger(logger, "verifier"),
	}
}

// Verify fact-checks one statement against its retrieved evidence. It never
// fails hard: every error path degrades to an unverifiable Result, with the
// error returned alongside for observability.
func (v *Verifier) Verify(ctx context.Context, statementID, text string, evidence []retrieval.Match) (Result, error) {
	userPrompt := v.buildUserPrompt(text, evidence)

	raw, searched, citedURLs, callErr := v.answer(ctx, userPrompt)
	if callErr != nil {
		return fallbackResult(statementID), fmt.Errorf("verify %s: %w", statementID, callErr)
	}

	var parsed struct {
		Verdict     string   `json:"verdict"`
		Confidence  float64  `json:"confidence"`
		Explanation string   `json:"explanation"`
		SourceType  string   `json:"source_type"`
		Sources     []string `json:"sources"`
	}
	if err := openai.DecodeJSON(raw, &parsed); err != nil {
		return fallbackResult(statementID), fmt.Errorf("verify %s: parse payload: %w", statementID, err)
	}

	claimedRef, claimedWeb, claimedLLM := parseSourceClaims(parsed.SourceType)
	usedReference := claimedRef && len(evidence) > 0
	usedWeb := searched || claimedWeb
	usedLLM := claimedLLM || (!usedReference && !usedWeb)

	result := Result{
		StatementID: statementID,
		Verdict:     ParseVerdict(parsed.Verdict),
		Confidence:  clampConfidence(parsed.Confidence),
		Explanation: strings.TrimSpace(parsed.Explanation),
		SourceType:  ComposeSourceType(usedReference, usedWeb, usedLLM),
		Sources:     mergeSources(parsed.Sources, citedURLs),
	}

	v.logger.Info("statement verified",
		logging.String("statement_id", statementID),
		logging.String("verdict", string(result.Verdict)),
		logging.Float64("confidence", result.Confidence),
		logging.String("source_type", string(result.SourceType)),
	)
	return result, nil
}

// answer tries the web-search-grounded responses call first and falls back to
// a plain chat completion when that endpoint is unavailable.
func (v *Verifier) answer(ctx context.Context, userPrompt string) (raw string, searched bool, citedURLs []string, err error) {
	if v.web != nil {
		answer, webErr := v.web.AnswerWithWebSearch(ctx, v.model, verifierSystemPrompt, userPrompt)
		if webErr == nil {
			return answer.Text, answer.Searched, answer.Sources, nil
		}
		if ctx.Err() != nil {
			return "", false, nil, webErr
		}
		v.logger.Warn("web-search call failed; falling back to chat completion", logging.Error(webErr))
	}

	raw, err = v.chat.CompleteJSON(ctx, v.model, verifierSystemPrompt, userPrompt)
	return raw, false, nil, err
}

func (v *Verifier) buildUserPrompt(text string, evidence []retrieval.Match) string {
	if len(evidence) == 0 {
		return fmt.Sprintf(verifierUserPrompt, text)
	}
	var context strings.Builder
	for i, match := range evidence {
		if i > 0 {
			context.WriteString("\n\n")
		}
		fmt.Fprintf(&context, "[%s] %s", match.Chunk.ID(), match.Chunk.Text)
	}
	return fmt.Sprintf(verifierUserPromptWithContext, text, context.String())
}

func fallbackResult(statementID string) Result {
	return Result{
		StatementID: statementID,
		Verdict:     VerdictUnverifiable,
		Confidence:  0,
		Explanation: "verification call failed",
		SourceType:  SourceLLM,
	}
}

func clampConfidence(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func mergeSources(declared, cited []string) []string {
	seen := make(map[string]struct{}, len(declared)+len(cited))
	var merged []string
	for _, source := range append(append([]string{}, declared...), cited...) {
		trimmed := strings.TrimSpace(source)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		merged = append(merged, trimmed)
	}
	return merged
}
