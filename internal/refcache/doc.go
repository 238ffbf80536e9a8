// Package refcache persists reference-chunk embeddings in SQLite so corpus
// files are only parsed and embedded when their content changes.
//
// Each file is keyed by absolute path and guarded by a fingerprint derived
// from size and mtime. Replacing a file's chunks happens in one transaction,
// so concurrent readers observe either the fully-old or fully-new entry.
package refcache
