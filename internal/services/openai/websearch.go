package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// WebAnswer is the output of a web-search-grounded responses call.
type WebAnswer struct {
	Text     string
	Searched bool
	Sources  []string
}

type responsesRequest struct {
	Model        string          `json:"model"`
	Instructions string          `json:"instructions,omitempty"`
	Input        string          `json:"input"`
	Tools        []responsesTool `json:"tools,omitempty"`
}

type responsesTool struct {
	Type              string `json:"type"`
	SearchContextSize string `json:"search_context_size,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type        string `json:"type"`
			Text        string `json:"text"`
			Annotations []struct {
				Type string `json:"type"`
				URL  string `json:"url"`
			} `json:"annotations"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// AnswerWithWebSearch issues a responses-API call with the web_search tool
// enabled. The returned answer records whether the model actually searched and
// which URLs it cited, so callers can attribute provenance honestly.
func (c *Client) AnswerWithWebSearch(ctx context.Context, model, instructions, input string) (WebAnswer, error) {
	var empty WebAnswer
	if strings.TrimSpace(input) == "" {
		return empty, errors.New("web answer: input required")
	}
	if c.cfg.APIKey == "" {
		return empty, errors.New("web answer: api key required")
	}

	payload := responsesRequest{
		Model:        model,
		Instructions: instructions,
		Input:        input,
		Tools:        []responsesTool{{Type: "web_search", SearchContextSize: "medium"}},
	}

	var answer WebAnswer
	err := c.withRetry(ctx, func() error {
		var opErr error
		answer, opErr = c.sendResponsesOnce(ctx, payload)
		return opErr
	}, "web answer")
	return answer, err
}

func (c *Client) sendResponsesOnce(ctx context.Context, payload responsesRequest) (WebAnswer, error) {
	var answer WebAnswer

	encoded, err := json.Marshal(payload)
	if err != nil {
		return answer, fmt.Errorf("web answer: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/responses"), bytes.NewReader(encoded))
	if err != nil {
		return answer, fmt.Errorf("web answer: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return answer, fmt.Errorf("web answer: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return answer, fmt.Errorf("web answer: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return answer, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var decoded responsesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return answer, fmt.Errorf("web answer: decode response: %w", err)
	}
	if decoded.Error != nil {
		return answer, fmt.Errorf("web answer: api error: %s", strings.TrimSpace(decoded.Error.Message))
	}

	var text strings.Builder
	for _, item := range decoded.Output {
		if item.Type == "web_search_call" {
			answer.Searched = true
			continue
		}
		for _, content := range item.Content {
			if content.Text != "" {
				text.WriteString(content.Text)
			}
			for _, annotation := range content.Annotations {
				if annotation.URL != "" {
					answer.Sources = append(answer.Sources, annotation.URL)
				}
			}
		}
	}
	answer.Text = strings.TrimSpace(text.String())
	if answer.Text == "" {
		return answer, errors.New("web answer: empty output")
	}
	return answer, nil
}
