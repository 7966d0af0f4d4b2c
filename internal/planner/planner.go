package planner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docquery/internal/domain"
	"docquery/internal/index"
	"docquery/internal/port"
)

// IndexSource resolves a document id to its similarity index, loading it from
// durable storage when it is not already in memory.
type IndexSource interface {
	Acquire(ctx context.Context, id string) (*index.Index, domain.IndexMeta, error)
}

// Membership is the collection registry view the planner needs.
type Membership interface {
	Has(id string) bool
	IDs() []string
}

// Planner merges per-document search results into one globally ranked,
// attributed result list.
type Planner struct {
	embedder port.Embedder
	source   IndexSource
	registry Membership
}

func New(embedder port.Embedder, source IndexSource, registry Membership) *Planner {
	return &Planner{
		embedder: embedder,
		source:   source,
		registry: registry,
	}
}

// candidate carries the local rank alongside the hit so the merge order is a
// pure function of the collected result lists.
type candidate struct {
	hit   index.Hit
	docID string
	rank  int
}

// Query embeds text exactly once and fans out a local search per
// participating document, over-fetching up to kTotal locally, then merges all
// local lists by descending score and truncates to kTotal. Merging the full
// local lists guarantees the true global top-k: a fixed per-document quota
// could discard a stronger chunk from a document with many good matches.
//
// When ids is empty, all collection members participate. Each explicit id
// must be a member.
func (p *Planner) Query(ctx context.Context, text string, ids []string, kTotal int) ([]domain.SearchResult, error) {
	if kTotal <= 0 {
		return nil, fmt.Errorf("%w: kTotal must be positive, got %d", domain.ErrInvalidK, kTotal)
	}

	participants := ids
	if len(participants) == 0 {
		participants = p.registry.IDs()
	} else {
		for _, id := range participants {
			if !p.registry.Has(id) {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDocument, id)
			}
		}
	}
	if len(participants) == 0 {
		return nil, domain.ErrEmptyCollection
	}

	vectors, err := p.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for one query", domain.ErrProvider, len(vectors))
	}
	query := vectors[0]
	index.Normalize(query)

	// One slot per participant: local searches run concurrently but land in
	// fixed positions, so the merge never depends on completion order.
	type local struct {
		hits []index.Hit
		err  error
	}
	locals := make([]local, len(participants))

	var wg sync.WaitGroup
	for i, id := range participants {
		wg.Add(1)
		go func(slot int, id string) {
			defer wg.Done()
			ix, _, err := p.source.Acquire(ctx, id)
			if err != nil {
				locals[slot].err = fmt.Errorf("document %s: %w", id, err)
				return
			}
			hits, err := ix.Search(query, kTotal)
			if err != nil {
				locals[slot].err = fmt.Errorf("document %s: %w", id, err)
				return
			}
			locals[slot].hits = hits
		}(i, id)
	}
	wg.Wait()

	// A cancelled query must not surface partial results as final.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, l := range locals {
		if l.err != nil {
			return nil, l.err
		}
	}

	candidates := make([]candidate, 0, len(participants)*kTotal)
	for i, l := range locals {
		for rank, hit := range l.hits {
			candidates = append(candidates, candidate{hit: hit, docID: participants[i], rank: rank})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.hit.Score != b.hit.Score {
			return a.hit.Score > b.hit.Score
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.docID != b.docID {
			return a.docID < b.docID
		}
		return a.hit.Chunk.Seq < b.hit.Chunk.Seq
	})

	if len(candidates) > kTotal {
		candidates = candidates[:kTotal]
	}

	results := make([]domain.SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = domain.SearchResult{
			Chunk: c.hit.Chunk,
			Score: c.hit.Score,
			DocID: c.docID,
		}
	}
	return results, nil
}
