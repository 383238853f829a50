// Package vectorindex provides the semantic search index over book text.
//
// Vectors are unit-normalized, so inner product equals cosine similarity.
// Vector ids are dense integers assigned in insertion order; the id map links
// each vector id to the owning book record id.
package vectorindex

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
)

// persistEvery is how many successful adds trigger a background persist.
const persistEvery = 10

// Embedder produces fixed-length unit-normalized vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Result is a search hit: the owning record id and its similarity score.
type Result struct {
	OwnerID string  `json:"owner_id"`
	Score   float32 `json:"score"`
}

// Entry is one (text, owner) pair for a full rebuild.
type Entry struct {
	Text    string
	OwnerID string
}

// Index owns the embedding handle, the flat vector store and the
// vector-id to record-id mapping.
//
// Invariant outside an in-flight add: nextID == len(vectors), and every
// vector position has exactly one id map entry.
type Index struct {
	embedder  Embedder
	dimension int
	batchSize int

	indexPath string
	mapPath   string

	mu      sync.RWMutex
	vectors [][]float32
	idMap   map[int64]string
	nextID  int64
}

// New creates the index, loading persisted state from indexDir when present.
func New(embedder Embedder, dimension, batchSize int, indexDir string) (*Index, error) {
	if batchSize <= 0 {
		batchSize = 32
	}
	ix := &Index{
		embedder:  embedder,
		dimension: dimension,
		batchSize: batchSize,
		indexPath: filepath.Join(indexDir, "index.gob"),
		mapPath:   filepath.Join(indexDir, "idmap.gob"),
		idMap:     make(map[int64]string),
	}
	if err := ix.load(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Size returns the number of indexed vectors.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Add encodes text and appends it to the index, returning the assigned
// vector id. Every tenth successful addition persists in the background.
func (ix *Index) Add(ctx context.Context, text, ownerID string) (int64, error) {
	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("encode text: %w", err)
	}
	if len(vec) != ix.dimension {
		return 0, fmt.Errorf("dimension mismatch: got %d, want %d", len(vec), ix.dimension)
	}

	ix.mu.Lock()
	vectorID := ix.nextID
	ix.vectors = append(ix.vectors, vec)
	ix.idMap[vectorID] = ownerID
	ix.nextID++
	shouldPersist := ix.nextID%persistEvery == 0
	ix.mu.Unlock()

	if shouldPersist {
		go func() {
			if err := ix.Persist(); err != nil {
				slog.Error("background index persist failed", "error", err)
			}
		}()
	}

	return vectorID, nil
}

// Search returns up to topK owners ranked by descending similarity to the
// query. An empty index yields an empty result without error.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	ix.mu.RLock()
	empty := len(ix.vectors) == 0
	ix.mu.RUnlock()
	if empty || topK <= 0 {
		return []Result{}, nil
	}

	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	k := topK
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}

	// Min-heap keeps the best k while scanning every vector.
	h := &resultHeap{}
	heap.Init(h)
	for i, v := range ix.vectors {
		score := dot(vec, v)
		entry := scored{vectorID: int64(i), score: score}
		if h.Len() < k {
			heap.Push(h, entry)
		} else if score > (*h)[0].score {
			heap.Pop(h)
			heap.Push(h, entry)
		}
	}

	// Drain ascending, fill descending, dropping ids missing from the map.
	ordered := make([]scored, h.Len())
	for i := len(ordered) - 1; i >= 0; i-- {
		ordered[i] = heap.Pop(h).(scored)
	}
	results := make([]Result, 0, len(ordered))
	for _, s := range ordered {
		owner, ok := ix.idMap[s.vectorID]
		if !ok {
			slog.Warn("vector id missing from id map", "vector_id", s.vectorID)
			continue
		}
		results = append(results, Result{OwnerID: owner, Score: s.score})
	}
	return results, nil
}

// Rebuild discards all state and re-encodes the given entries in batches,
// assigning vector ids sequentially in input order, then persists.
func (ix *Index) Rebuild(ctx context.Context, entries []Entry) error {
	slog.Info("rebuilding vector index", "entries", len(entries))

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.vectors = nil
	ix.idMap = make(map[int64]string)
	ix.nextID = 0

	for start := 0; start < len(entries); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]

		texts := make([]string, len(batch))
		for i, e := range batch {
			texts[i] = e.Text
		}
		vecs, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("encode batch at %d: %w", start, err)
		}

		for i, v := range vecs {
			if len(v) != ix.dimension {
				return fmt.Errorf("dimension mismatch at %d: got %d, want %d", start+i, len(v), ix.dimension)
			}
			ix.vectors = append(ix.vectors, v)
			ix.idMap[ix.nextID] = batch[i].OwnerID
			ix.nextID++
		}
	}

	if err := ix.persistLocked(); err != nil {
		return fmt.Errorf("persist rebuilt index: %w", err)
	}
	slog.Info("vector index rebuilt", "vectors", len(ix.vectors))
	return nil
}

// Persist writes the index and id map to disk.
func (ix *Index) Persist() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.persistLocked()
}

type scored struct {
	vectorID int64
	score    float32
}

// resultHeap is a min-heap by score.
type resultHeap []scored

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)         { *h = append(*h, x.(scored)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
