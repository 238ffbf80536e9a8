package checker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"factstream/internal/logging"
	"factstream/internal/services/openai"
)

// ChatCompleter is the slice of the API client classification needs.
type ChatCompleter interface {
	CompleteJSON(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// Classification is the screening decision for one statement.
type Classification struct {
	StatementID string
	NeedsCheck  bool
	ClaimType   ClaimType
	Reason      string
}

// Classifier screens statements for checkable factual claims.
type Classifier struct {
	chat   ChatCompleter
	model  string
	logger *slog.Logger
}

// NewClassifier constructs a classifier using the given chat model.
func NewClassifier(chat ChatCompleter, model string, logger *slog.Logger) *Classifier {
	return &Classifier{
		chat:   chat,
		model:  model,
		logger: logging.NewComponentLogger(logger, "classifier"),
	}
}

// Classify decides whether a statement needs fact-checking. It fails open:
// on any error the statement is marked as needing a check, and the error is
// returned so the caller can surface it without halting the pipeline.
func (c *Classifier) Classify(ctx context.Context, statementID, text string) (Classification, error) {
	failOpen := Classification{StatementID: statementID, NeedsCheck: true, ClaimType: ClaimOther}

	raw, err := c.chat.CompleteJSON(ctx, c.model, classifierSystemPrompt, fmt.Sprintf(classifierUserPrompt, text))
	if err != nil {
		return failOpen, fmt.Errorf("classify %s: %w", statementID, err)
	}

	var parsed struct {
		NeedsCheck bool   `json:"needs_check"`
		ClaimType  string `json:"claim_type"`
		Reason     string `json:"reason"`
	}
	if err := openai.DecodeJSON(raw, &parsed); err != nil {
		return failOpen, fmt.Errorf("classify %s: parse payload: %w", statementID, err)
	}

	result := Classification{
		StatementID: statementID,
		NeedsCheck:  parsed.NeedsCheck,
		ClaimType:   ParseClaimType(parsed.ClaimType),
		Reason:      strings.TrimSpace(parsed.Reason),
	}

	c.logger.Debug("statement classified",
		logging.String("statement_id", statementID),
		logging.Bool("needs_check", result.NeedsCheck),
		logging.String("claim_type", string(result.ClaimType)),
	)
	return result, nil
}
