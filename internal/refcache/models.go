package refcache

// ReferenceChunk is one embedded span of a reference document.
type ReferenceChunk struct {
	Path        string
	Seq         int
	Text        string
	Embedding   []float32
	Fingerprint string
}

// ID returns a stable identifier for the chunk, unique within the corpus.
func (c ReferenceChunk) ID() string {
	return chunkID(c.Path, c.Seq)
}
