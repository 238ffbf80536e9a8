package refcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "embeddings.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleChunks(path, fingerprint string, n int) []ReferenceChunk {
	chunks := make([]ReferenceChunk, 0, n)
	for seq := 0; seq < n; seq++ {
		chunks = append(chunks, ReferenceChunk{
			Path:        path,
			Seq:         seq,
			Text:        "chunk text",
			Embedding:   []float32{float32(seq), 0.5, -1.25},
			Fingerprint: fingerprint,
		})
	}
	return chunks
}

func TestLookupMissReturnsNotOK(t *testing.T) {
	store := openTestStore(t)
	_, ok, err := store.Lookup(context.Background(), "/corpus/a.txt", "fp")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if ok {
		t.Fatal("expected miss for empty store")
	}
}

func TestReplaceThenLookupRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	path := "/corpus/a.txt"

	if err := store.Replace(ctx, path, "fp1", sampleChunks(path, "fp1", 3)); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	chunks, ok, err := store.Lookup(ctx, path, "fp1")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for seq, chunk := range chunks {
		if chunk.Seq != seq {
			t.Fatalf("chunks out of order: got seq %d at position %d", chunk.Seq, seq)
		}
		if len(chunk.Embedding) != 3 || chunk.Embedding[0] != float32(seq) {
			t.Fatalf("embedding round trip failed for seq %d: %v", seq, chunk.Embedding)
		}
	}
}

func TestLookupFingerprintMismatchIsMiss(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	path := "/corpus/a.txt"

	if err := store.Replace(ctx, path, "fp1", sampleChunks(path, "fp1", 2)); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}
	_, ok, err := store.Lookup(ctx, path, "fp2")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if ok {
		t.Fatal("expected miss for changed fingerprint")
	}
}

func TestReplaceSwapsChunksAtomically(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	path := "/corpus/a.txt"

	if err := store.Replace(ctx, path, "fp1", sampleChunks(path, "fp1", 5)); err != nil {
		t.Fatalf("first Replace returned error: %v", err)
	}
	if err := store.Replace(ctx, path, "fp2", sampleChunks(path, "fp2", 2)); err != nil {
		t.Fatalf("second Replace returned error: %v", err)
	}

	chunks, ok, err := store.Lookup(ctx, path, "fp2")
	if err != nil || !ok {
		t.Fatalf("Lookup after swap: ok=%v err=%v", ok, err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected old chunks gone, got %d", len(chunks))
	}
}

func TestDeleteStaleCascadesChunks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Replace(ctx, "/corpus/keep.txt", "fp", sampleChunks("/corpus/keep.txt", "fp", 1)); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}
	if err := store.Replace(ctx, "/corpus/gone.txt", "fp", sampleChunks("/corpus/gone.txt", "fp", 1)); err != nil {
		t.Fatalf("Replace returned error: %v", err)
	}

	removed, err := store.DeleteStale(ctx, map[string]struct{}{"/corpus/keep.txt": {}})
	if err != nil {
		t.Fatalf("DeleteStale returned error: %v", err)
	}
	if len(removed) != 1 || removed[0] != "/corpus/gone.txt" {
		t.Fatalf("unexpected removed paths %v", removed)
	}

	paths, err := store.Paths(ctx)
	if err != nil {
		t.Fatalf("Paths returned error: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/corpus/keep.txt" {
		t.Fatalf("unexpected remaining paths %v", paths)
	}
	if _, ok, _ := store.Lookup(ctx, "/corpus/gone.txt", "fp"); ok {
		t.Fatal("expected chunks for deleted file to be gone")
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump schema version: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("expected schema mismatch error")
	}
}

func TestFingerprintTracksSizeAndMtime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.txt")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	first, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint returned error: %v", err)
	}
	second, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint returned error: %v", err)
	}
	if first != second {
		t.Fatal("fingerprint not stable for unchanged file")
	}

	if err := os.WriteFile(path, []byte("changed!"), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	changed, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint returned error: %v", err)
	}
	if changed == first {
		t.Fatal("fingerprint unchanged after modification")
	}
}
