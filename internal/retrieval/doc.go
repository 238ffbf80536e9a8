// Package retrieval maintains an in-memory similarity index over the embedded
// reference corpus and keeps it consistent with the on-disk embedding cache.
//
// The index is read-heavy: pipeline searches take a shared lock while corpus
// rebuilds do their slow work (file parsing, embedding calls) outside any lock
// and only take the exclusive section for the final per-file swap.
package retrieval
