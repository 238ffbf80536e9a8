package retrieval

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"factstream/internal/logging"
	"factstream/internal/refcache"
	"factstream/internal/textutil"
)

// refreshInterval throttles opportunistic staleness scans triggered by
// searches. Fingerprint checks are cheap stats, but there is no point
// re-statting the corpus for every statement.
const refreshInterval = 30 * time.Second

var loadableExtensions = map[string]struct{}{
	".txt": {},
	".md":  {},
	".csv": {},
}

// LoaderOptions configures corpus loading.
type LoaderOptions struct {
	ReferenceDir   string
	ChunkChars     int
	OverlapChars   int
	EmbedBatchSize int
}

// Loader keeps the embedding cache and the in-memory index in sync with the
// reference directory.
type Loader struct {
	store   *refcache.Store
	emb     Embedder
	index   *Index
	logger  *slog.Logger
	opts    LoaderOptions
	buildMu sync.Mutex

	refreshMu   sync.Mutex
	lastRefresh time.Time
}

// NewLoader constructs a corpus loader that feeds the provided index.
func NewLoader(store *refcache.Store, embedder Embedder, index *Index, logger *slog.Logger, opts LoaderOptions) *Loader {
	if opts.ChunkChars <= 0 {
		opts.ChunkChars = textutil.DefaultChunkChars
	}
	if opts.OverlapChars < 0 {
		opts.OverlapChars = textutil.DefaultOverlapChars
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = 100
	}
	return &Loader{
		store:  store,
		emb:    embedder,
		index:  index,
		logger: logging.NewComponentLogger(logger, "corpus"),
		opts:   opts,
	}
}

// ScanDir enumerates loadable corpus files, sorted by path. Dotfiles and
// unsupported extensions are skipped.
func (l *Loader) ScanDir() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(l.opts.ReferenceDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			return nil
		}
		if _, ok := loadableExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			l.logger.Debug("skipping unsupported reference file", logging.String("path", path))
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan reference dir: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// GetOrBuild returns the reference chunks for one file, rebuilding the cache
// entry only when the file's fingerprint no longer matches. A cache hit makes
// zero embedding calls.
func (l *Loader) GetOrBuild(ctx context.Context, path string) ([]refcache.ReferenceChunk, error) {
	fingerprint, err := refcache.Fingerprint(path)
	if err != nil {
		return nil, err
	}

	chunks, ok, err := l.store.Lookup(ctx, path, fingerprint)
	if err != nil {
		return nil, err
	}
	if ok {
		return chunks, nil
	}

	// One rebuild at a time: embedding batches are the expensive part, and
	// parallel rebuilds of the same file would waste API calls.
	l.buildMu.Lock()
	defer l.buildMu.Unlock()

	// Re-check under the lock; another caller may have just rebuilt it.
	chunks, ok, err = l.store.Lookup(ctx, path, fingerprint)
	if err != nil {
		return nil, err
	}
	if ok {
		return chunks, nil
	}

	return l.rebuild(ctx, path, fingerprint)
}

func (l *Loader) rebuild(ctx context.Context, path, fingerprint string) ([]refcache.ReferenceChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}

	spans := textutil.ChunkText(string(data), l.opts.ChunkChars, l.opts.OverlapChars)
	chunks := make([]refcache.ReferenceChunk, 0, len(spans))
	for seq, span := range spans {
		chunks = append(chunks, refcache.ReferenceChunk{
			Path:        path,
			Seq:         seq,
			Text:        span,
			Fingerprint: fingerprint,
		})
	}

	for start := 0; start < len(chunks); start += l.opts.EmbedBatchSize {
		end := start + l.opts.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Text)
		}
		vectors, err := l.emb.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed %s batch %d: %w", filepath.Base(path), start/l.opts.EmbedBatchSize, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embed %s: got %d vectors for %d chunks", filepath.Base(path), len(vectors), len(texts))
		}
		for i, vector := range vectors {
			chunks[start+i].Embedding = vector
		}
	}

	if err := l.store.Replace(ctx, path, fingerprint, chunks); err != nil {
		return nil, err
	}
	l.index.ReplaceFile(path, chunks)

	l.logger.Info("reference file embedded",
		logging.String("path", path),
		logging.Int("chunks", len(chunks)),
	)
	return chunks, nil
}

// WarmLoad builds or loads every corpus file, prunes cache entries for files
// that disappeared, and populates the index. Per-file failures are logged and
// skipped; that file's chunks stay out of retrieval until the next successful
// rebuild.
func (l *Loader) WarmLoad(ctx context.Context) (int, error) {
	paths, err := l.ScanDir()
	if err != nil {
		return 0, err
	}

	keep := make(map[string]struct{}, len(paths))
	total := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		keep[path] = struct{}{}
		chunks, err := l.GetOrBuild(ctx, path)
		if err != nil {
			l.logger.Warn("reference file rebuild failed; omitting from retrieval",
				logging.String("path", path),
				logging.Error(err),
			)
			continue
		}
		l.index.ReplaceFile(path, chunks)
		total += len(chunks)
	}

	removed, err := l.store.DeleteStale(ctx, keep)
	if err != nil {
		l.logger.Warn("stale cache cleanup failed", logging.Error(err))
	}
	for _, path := range removed {
		l.index.RemoveFile(path)
		l.logger.Info("removed stale cache entry", logging.String("path", path))
	}

	l.markRefreshed()
	return total, nil
}

// RefreshIfStale re-scans the corpus when the throttle window has elapsed.
// Unchanged files are fingerprint-matched and cost nothing.
func (l *Loader) RefreshIfStale(ctx context.Context) {
	l.refreshMu.Lock()
	due := time.Since(l.lastRefresh) >= refreshInterval
	l.refreshMu.Unlock()
	if !due {
		return
	}
	if _, err := l.WarmLoad(ctx); err != nil && ctx.Err() == nil {
		l.logger.Warn("corpus refresh failed", logging.Error(err))
	}
}

func (l *Loader) markRefreshed() {
	l.refreshMu.Lock()
	l.lastRefresh = time.Now()
	l.refreshMu.Unlock()
}

// IndexLen reports how many chunks are currently searchable.
func (l *Loader) IndexLen() int {
	return l.index.Len()
}

// Search refreshes opportunistically and queries the index.
func (l *Loader) Search(ctx context.Context, query string, k int) ([]Match, error) {
	l.RefreshIfStale(ctx)
	return l.index.Search(ctx, query, k)
}
