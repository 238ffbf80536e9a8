package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"factstream/internal/refcache"
)

// DefaultTopK is the number of matches returned when the caller asks for none.
const DefaultTopK = 3

// Embedder produces one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Match pairs a reference chunk with its similarity to a query.
type Match struct {
	Chunk refcache.ReferenceChunk
	Score float64
}

// Index is an in-memory cosine-similarity index over all cached reference
// chunks. Single writer (the corpus loader), many concurrent readers.
type Index struct {
	embedder   Embedder
	scoreFloor float64

	mu    sync.RWMutex
	files map[string][]refcache.ReferenceChunk
	order []string
}

// NewIndex constructs an empty index. Matches scoring below floor are dropped
// from search results.
func NewIndex(embedder Embedder, floor float64) *Index {
	return &Index{
		embedder:   embedder,
		scoreFloor: floor,
		files:      make(map[string][]refcache.ReferenceChunk),
	}
}

// ReplaceFile atomically swaps the chunk set for one file.
func (idx *Index) ReplaceFile(path string, chunks []refcache.ReferenceChunk) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.files[path]; !ok {
		idx.order = append(idx.order, path)
		sort.Strings(idx.order)
	}
	idx.files[path] = chunks
}

// RemoveFile drops a file's chunks from the index.
func (idx *Index) RemoveFile(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.files[path]; !ok {
		return
	}
	delete(idx.files, path)
	for i, known := range idx.order {
		if known == path {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			break
		}
	}
}

// Len returns the total number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	total := 0
	for _, chunks := range idx.files {
		total += len(chunks)
	}
	return total
}

// Search embeds the query and returns the top-k chunks by cosine similarity,
// descending, ties broken by corpus order (path, then chunk sequence). An
// empty corpus yields an empty result without any embedding call.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Match, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if idx.Len() == 0 {
		return nil, nil
	}

	vectors, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}
	queryVec := vectors[0]

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	// Candidates are gathered in corpus order so the stable sort below
	// preserves that order among equal scores.
	var matches []Match
	for _, path := range idx.order {
		for _, chunk := range idx.files[path] {
			score := cosineSimilarity(queryVec, chunk.Embedding)
			if score < idx.scoreFloor {
				continue
			}
			matches = append(matches, Match{Chunk: chunk, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
