package checker

import (
	"context"
	"log/slog"
	"strings"

	"factstream/internal/logging"
)

// Completer is the free-text completion slice used by refinement.
type Completer interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// Refiner cleans raw speech-to-text output with a fast LLM pass before it
// enters classification.
type Refiner struct {
	chat   Completer
	model  string
	logger *slog.Logger
}

// NewRefiner constructs a refiner using the given (fast, cheap) chat model.
func NewRefiner(chat Completer, model string, logger *slog.Logger) *Refiner {
	return &Refiner{
		chat:   chat,
		model:  model,
		logger: logging.NewComponentLogger(logger, "refiner"),
	}
}

// minRefineLength skips refinement for fragments too short to benefit.
const minRefineLength = 5

// Refine returns a cleaned version of raw transcript text. On any failure, or
// when the model's output shrinks suspiciously (content was dropped, not
// cleaned), the original text is returned unchanged.
func (r *Refiner) Refine(ctx context.Context, raw string) string {
	if len([]rune(raw)) < minRefineLength {
		return raw
	}

	refined, err := r.chat.Complete(ctx, r.model, refinerSystemPrompt, raw)
	if err != nil {
		r.logger.Warn("transcript refinement failed; using raw text", logging.Error(err))
		return raw
	}

	refined = strings.TrimSpace(refined)
	if refined == "" || len([]rune(refined)) < len([]rune(raw))*3/10 {
		r.logger.Warn("refined transcript too short; using raw text",
			logging.Int("raw_chars", len([]rune(raw))),
			logging.Int("refined_chars", len([]rune(refined))),
		)
		return raw
	}
	return refined
}
