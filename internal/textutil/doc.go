// Package textutil provides text processing utilities for corpus chunking and
// transcript cleanup.
//
// The primary use cases are:
//   - Splitting reference documents into overlapping character windows for embedding
//   - Normalizing transcribed speech before it enters the pipeline
//
// Chunking operates on runes, not bytes, so multi-byte scripts (the reference
// corpus is largely Korean) never get split mid-character.
package textutil
