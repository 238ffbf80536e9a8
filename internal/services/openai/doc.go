// Package openai wraps the OpenAI-compatible HTTP APIs the pipeline depends
// on: chat completions (classification, verification, transcript refinement),
// audio transcription, embeddings, and the responses endpoint with web search.
//
// All calls share one retry policy: bounded attempts with exponential backoff,
// honoring Retry-After, retrying only on 408/429/5xx and transport timeouts.
// Context cancellation always wins over a pending retry.
package openai
