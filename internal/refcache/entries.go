package refcache

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// Lookup returns the cached chunks for path when the stored fingerprint
// matches. A mismatched or missing entry returns ok=false with no chunks.
func (s *Store) Lookup(ctx context.Context, path, fingerprint string) ([]ReferenceChunk, bool, error) {
	ctx = ensureContext(ctx)

	var stored string
	err := s.db.QueryRowContext(ctx, "SELECT fingerprint FROM files WHERE path = ?", path).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup file %s: %w", path, err)
	}
	if stored != fingerprint {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, text, embedding FROM chunks WHERE path = ? ORDER BY seq", path)
	if err != nil {
		return nil, false, fmt.Errorf("load chunks %s: %w", path, err)
	}
	defer rows.Close()

	var chunks []ReferenceChunk
	for rows.Next() {
		chunk := ReferenceChunk{Path: path, Fingerprint: stored}
		var blob []byte
		if err := rows.Scan(&chunk.Seq, &chunk.Text, &blob); err != nil {
			return nil, false, fmt.Errorf("scan chunk %s: %w", path, err)
		}
		chunk.Embedding, err = decodeVector(blob)
		if err != nil {
			return nil, false, fmt.Errorf("decode embedding %s#%d: %w", path, chunk.Seq, err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate chunks %s: %w", path, err)
	}
	return chunks, true, nil
}

// Replace atomically swaps the cache entry for path: old rows are deleted and
// the new fingerprint and chunks are written in a single transaction.
func (s *Store) Replace(ctx context.Context, path, fingerprint string, chunks []ReferenceChunk) error {
	ctx = ensureContext(ctx)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin replace tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE path = ?", path); err != nil {
			return fmt.Errorf("delete old chunks %s: %w", path, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO files (path, fingerprint, chunk_count, updated_at) VALUES (?, ?, ?, ?) "+
				"ON CONFLICT(path) DO UPDATE SET fingerprint = excluded.fingerprint, chunk_count = excluded.chunk_count, updated_at = excluded.updated_at",
			path, fingerprint, len(chunks), time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("upsert file %s: %w", path, err)
		}
		for _, chunk := range chunks {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO chunks (path, seq, text, embedding) VALUES (?, ?, ?, ?)",
				path, chunk.Seq, chunk.Text, encodeVector(chunk.Embedding),
			); err != nil {
				return fmt.Errorf("insert chunk %s#%d: %w", path, chunk.Seq, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit replace %s: %w", path, err)
		}
		return nil
	})
}

// Paths lists every file path with a cache entry.
func (s *Store) Paths(ctx context.Context) ([]string, error) {
	ctx = ensureContext(ctx)

	rows, err := s.db.QueryContext(ctx, "SELECT path FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("list cached paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan cached path: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// DeleteStale removes cache entries for files that are no longer part of the
// corpus, returning the removed paths.
func (s *Store) DeleteStale(ctx context.Context, keep map[string]struct{}) ([]string, error) {
	ctx = ensureContext(ctx)

	cached, err := s.Paths(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, path := range cached {
		if _, ok := keep[path]; ok {
			continue
		}
		err := retryOnBusy(ctx, func() error {
			_, execErr := s.db.ExecContext(ctx, "DELETE FROM files WHERE path = ?", path)
			return execErr
		})
		if err != nil {
			return removed, fmt.Errorf("delete stale entry %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}

// encodeVector packs float32 embeddings as little-endian blobs. JSON would
// also work but is ~4x larger and measurably slower to load at startup.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, value := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(value))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
