package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"docquery/internal/cache"
	"docquery/internal/domain"
	"docquery/internal/index"
	"docquery/internal/planner"
	"docquery/internal/port"
	"docquery/internal/registry"
	"docquery/internal/store"
)

// Options tunes the retrieval service.
type Options struct {
	PreviewChars int           // excerpt length in query results
	CacheSize    int           // single-document query cache entries
	CacheTTL     time.Duration // single-document query cache lifetime
}

// DefaultOptions returns the tuning the original system shipped with.
func DefaultOptions() Options {
	return Options{
		PreviewChars: 200,
		CacheSize:    100,
		CacheTTL:     5 * time.Minute,
	}
}

// Service is the retrieval API boundary. It owns an explicit id-to-index map
// and the registry; every call goes through this context, there is no hidden
// process-wide state.
//
// Indexes for distinct ids are independent and safely queried in parallel.
// Builds for the same id are serialized against its queries by a per-id
// RWMutex: a query either waits out a rebuild or sees the previous complete
// index, never a half-built one.
type Service struct {
	embedder port.Embedder
	store    *store.BoltStore
	registry *registry.Registry
	planner  *planner.Planner
	cache    *cache.QueryCache
	opts     Options

	mu     sync.Mutex
	locks  map[string]*sync.RWMutex
	loaded map[string]*index.Index
	metas  map[string]domain.IndexMeta
}

func New(embedder port.Embedder, st *store.BoltStore, reg *registry.Registry, opts Options) *Service {
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = DefaultOptions().PreviewChars
	}
	s := &Service{
		embedder: embedder,
		store:    st,
		registry: reg,
		cache:    cache.NewQueryCache(opts.CacheSize, opts.CacheTTL),
		opts:     opts,
		locks:    make(map[string]*sync.RWMutex),
		loaded:   make(map[string]*index.Index),
		metas:    make(map[string]domain.IndexMeta),
	}
	s.planner = planner.New(embedder, s, reg)
	return s
}

func (s *Service) lockFor(id string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[id] = l
	}
	return l
}

// BuildIndex embeds the chunks, builds a fresh index and persists it, then
// publishes it to the in-memory map. Rebuilding replaces the document's index
// wholly. Returns the chunk count.
func (s *Service) BuildIndex(ctx context.Context, id, name string, chunks []string) (int, error) {
	if id == "" {
		return 0, fmt.Errorf("%w: document id is empty", domain.ErrEmptyInput)
	}

	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	ix, err := index.Build(ctx, s.embedder, chunks)
	if err != nil {
		return 0, err
	}

	if err := s.store.Save(id, name, ix, s.embedder.ModelName()); err != nil {
		return 0, fmt.Errorf("save index %s: %w", id, err)
	}

	meta, err := s.store.Meta(id)
	if err != nil {
		return 0, fmt.Errorf("read back metadata %s: %w", id, err)
	}

	s.mu.Lock()
	s.loaded[id] = ix
	s.metas[id] = meta
	s.mu.Unlock()

	s.cache.Invalidate()
	return ix.Len(), nil
}

// Acquire returns the document's index, loading it from the store on a cache
// miss. It blocks while a build for the same id is in flight. Implements
// planner.IndexSource.
func (s *Service) Acquire(ctx context.Context, id string) (*index.Index, domain.IndexMeta, error) {
	l := s.lockFor(id)
	l.RLock()
	defer l.RUnlock()

	s.mu.Lock()
	ix, ok := s.loaded[id]
	meta := s.metas[id]
	s.mu.Unlock()
	if ok {
		return ix, meta, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, domain.IndexMeta{}, err
	}

	ix, meta, err := s.store.Load(id, s.embedder.Dimension())
	if err != nil {
		return nil, domain.IndexMeta{}, err
	}

	s.mu.Lock()
	s.loaded[id] = ix
	s.metas[id] = meta
	s.mu.Unlock()

	return ix, meta, nil
}

// SingleQuery searches one document and returns up to k attributed results.
func (s *Service) SingleQuery(ctx context.Context, text, id string, k int) ([]domain.QueryResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query text is blank", domain.ErrEmptyInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidK, k)
	}

	if results, hit := s.cache.Get(id, text, k); hit {
		return results, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for one query", domain.ErrProvider, len(vectors))
	}
	query := vectors[0]
	index.Normalize(query)

	ix, meta, err := s.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}

	hits, err := ix.Search(query, k)
	if err != nil {
		return nil, err
	}

	results := make([]domain.QueryResult, len(hits))
	for i, h := range hits {
		results[i] = s.toQueryResult(h.Chunk, h.Score, id, meta.Name)
	}

	s.cache.Put(id, text, k, results)
	return results, nil
}

// MultiQuery searches across the collection (or an explicit subset) and
// returns the global top kTotal results.
func (s *Service) MultiQuery(ctx context.Context, text string, ids []string, kTotal int) ([]domain.QueryResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query text is blank", domain.ErrEmptyInput)
	}

	merged, err := s.planner.Query(ctx, text, ids, kTotal)
	if err != nil {
		return nil, err
	}

	results := make([]domain.QueryResult, len(merged))
	for i, r := range merged {
		name := ""
		if meta, err := s.metaFor(r.DocID); err == nil {
			name = meta.Name
		}
		results[i] = s.toQueryResult(r.Chunk, r.Score, r.DocID, name)
	}
	return results, nil
}

// AddToCollection registers an indexed document for multi-document queries.
func (s *Service) AddToCollection(id string) error {
	return s.registry.Add(id)
}

// RemoveFromCollection drops collection membership; absent ids are a no-op.
func (s *Service) RemoveFromCollection(id string) error {
	return s.registry.Remove(id)
}

// ListCollection returns the collection members in insertion order.
func (s *Service) ListCollection() ([]domain.CollectionEntry, error) {
	return s.registry.List()
}

// DeleteIndex removes the persisted record, the collection membership and the
// in-memory index. Membership goes first so an in-flight multi-document query
// does not pick the document up mid-delete.
func (s *Service) DeleteIndex(id string) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	if err := s.registry.Remove(id); err != nil {
		return fmt.Errorf("remove %s from collection: %w", id, err)
	}
	if err := s.store.Delete(id); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}

	s.mu.Lock()
	delete(s.loaded, id)
	delete(s.metas, id)
	s.mu.Unlock()

	s.cache.Invalidate()
	return nil
}

// IndexInfo returns metadata for one persisted index.
func (s *Service) IndexInfo(id string) (domain.IndexMeta, error) {
	return s.metaFor(id)
}

// ListDocuments returns metadata for every persisted index.
func (s *Service) ListDocuments() ([]domain.IndexMeta, error) {
	return s.store.ListMeta()
}

func (s *Service) metaFor(id string) (domain.IndexMeta, error) {
	s.mu.Lock()
	meta, ok := s.metas[id]
	s.mu.Unlock()
	if ok {
		return meta, nil
	}
	return s.store.Meta(id)
}

func (s *Service) toQueryResult(c domain.Chunk, score float64, docID, docName string) domain.QueryResult {
	return domain.QueryResult{
		ChunkIndex:   c.Seq,
		Preview:      preview(c.Text, s.opts.PreviewChars),
		Relevance:    clamp01(score),
		DocumentID:   docID,
		DocumentName: docName,
	}
}

func preview(text string, n int) string {
	if len(text) <= n {
		return text
	}
	// Back up to a rune boundary so the excerpt is never invalid UTF-8.
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n] + "..."
}

// clamp01 maps cosine similarity onto the [0, 1] relevance range exposed at
// the API boundary; negative similarity means irrelevant.
func clamp01(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
