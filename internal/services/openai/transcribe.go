package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// TranscribeRequest describes one audio chunk to transcribe.
type TranscribeRequest struct {
	Model    string
	Audio    []byte
	Filename string
	Language string
}

// Transcribe uploads a WAV chunk to the audio transcription endpoint and
// returns the recognized text. Silent audio yields an empty string, not an
// error.
func (c *Client) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	if len(req.Audio) == 0 {
		return "", errors.New("transcribe: audio required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("transcribe: api key required")
	}
	if req.Filename == "" {
		req.Filename = "chunk.wav"
	}

	var text string
	err := c.withRetry(ctx, func() error {
		var opErr error
		text, opErr = c.sendTranscribeOnce(ctx, req)
		return opErr
	}, "transcribe")
	return text, err
}

func (c *Client) sendTranscribeOnce(ctx context.Context, req TranscribeRequest) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", req.Filename)
	if err != nil {
		return "", fmt.Errorf("transcribe: build form: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return "", fmt.Errorf("transcribe: write audio: %w", err)
	}
	fields := map[string]string{
		"model":           req.Model,
		"response_format": "text",
	}
	if req.Language != "" {
		fields["language"] = req.Language
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("transcribe: write field %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("transcribe: close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/audio/transcriptions"), &body)
	if err != nil {
		return "", fmt.Errorf("transcribe: new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("transcribe: http error: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("transcribe: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
			RetryAfter: retryAfter,
		}
	}
	return strings.TrimSpace(string(payload)), nil
}
