package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"docquery/internal/domain"
	"docquery/internal/store"
)

var (
	bucketCollection = []byte("collection")
	keyMembers       = []byte("members")
)

// Registry tracks which indexed documents participate in multi-document
// queries. Membership is insertion ordered, survives restarts, and never
// copies vector or chunk data.
type Registry struct {
	db    *bbolt.DB
	store *store.BoltStore

	mu      sync.RWMutex
	members []string
}

// NewRegistry opens the collection bucket in the store's database and loads
// the persisted member list.
func NewRegistry(st *store.BoltStore) (*Registry, error) {
	r := &Registry{db: st.DB(), store: st}

	err := r.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketCollection)
		if err != nil {
			return fmt.Errorf("failed to create collection bucket: %w", err)
		}
		if data := b.Get(keyMembers); data != nil {
			return json.Unmarshal(data, &r.members)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Add makes the document a collection member. A document must be fully
// indexed first; adding an existing member is a no-op.
func (r *Registry) Add(id string) error {
	exists, err := r.store.Exists(id)
	if err != nil {
		return fmt.Errorf("check index record: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrNotIndexed, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m == id {
			return nil
		}
	}
	r.members = append(r.members, id)
	return r.persist()
}

// Remove drops the document from the collection. Removing an absent member
// is a no-op.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.members[:0]
	removed := false
	for _, m := range r.members {
		if m == id {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	if !removed {
		return nil
	}
	r.members = kept
	return r.persist()
}

// Has reports collection membership.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m == id {
			return true
		}
	}
	return false
}

// IDs returns the member ids in insertion order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.members))
	copy(ids, r.members)
	return ids
}

// List returns the members in insertion order with display metadata only.
func (r *Registry) List() ([]domain.CollectionEntry, error) {
	ids := r.IDs()

	entries := make([]domain.CollectionEntry, 0, len(ids))
	for _, id := range ids {
		meta, err := r.store.Meta(id)
		if err != nil {
			return nil, fmt.Errorf("collection member %s: %w", id, err)
		}
		entries = append(entries, domain.CollectionEntry{
			DocID:      id,
			Name:       meta.Name,
			ChunkCount: meta.ChunkCount,
		})
	}
	return entries, nil
}

// persist writes the member list. Callers hold r.mu.
func (r *Registry) persist() error {
	data, err := json.Marshal(r.members)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollection).Put(keyMembers, data)
	})
}
