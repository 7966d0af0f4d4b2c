package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.etcd.io/bbolt"

	"docquery/internal/domain"
	"docquery/internal/index"
)

// RecordVersion is the persisted record format version. Increment on breaking
// changes to the on-disk layout.
const RecordVersion = 1

var (
	bucketVectors = []byte("index_vectors")
	bucketChunks  = []byte("index_chunks")
	bucketMeta    = []byte("index_meta")
)

const (
	maxAttempts  = 3
	retryBackoff = 50 * time.Millisecond
)

// BoltStore persists document indexes as three-part records in BoltDB:
// a raw N x D float32 vector blob, an ordered chunk list, and metadata. All
// three parts are written in one transaction, so a reader never observes a
// partial record.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens the store at path, creating buckets as needed.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketVectors, bucketChunks, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// DB exposes the underlying handle so the registry can share the same file.
func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

type metaRecord struct {
	Version    int    `json:"version"`
	Name       string `json:"name"`
	Model      string `json:"model_name"`
	Dimension  int    `json:"dimension"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  int64  `json:"created_at"`
}

type chunkRecord struct {
	Seq   int    `json:"seq"`
	Text  string `json:"text"`
	Chars int    `json:"chars"`
}

// Save writes the three-part record for a document index in one transaction.
func (s *BoltStore) Save(id, name string, ix *index.Index, model string) error {
	if id == "" {
		return fmt.Errorf("%w: document id is empty", domain.ErrEmptyInput)
	}
	return s.withRetry(func() error { return s.save(id, name, ix, model) })
}

func (s *BoltStore) save(id, name string, ix *index.Index, model string) error {
	chunks := ix.Chunks()
	records := make([]chunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = chunkRecord{Seq: c.Seq, Text: c.Text, Chars: c.Chars}
	}
	chunkData, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}

	meta := metaRecord{
		Version:    RecordVersion,
		Name:       name,
		Model:      model,
		Dimension:  ix.Dim(),
		ChunkCount: ix.Len(),
		CreatedAt:  time.Now().Unix(),
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	blob := encodeVectors(ix.Vectors(), ix.Dim())

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketVectors).Put([]byte(id), blob); err != nil {
			return err
		}
		if err := tx.Bucket(bucketChunks).Put([]byte(id), chunkData); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put([]byte(id), metaData)
	})
}

// Load reconstructs the document index for id. It fails with ErrNotFound when
// no record exists, ErrCorruptIndex when the record parts disagree, and
// ErrModelMismatch when the stored dimension differs from activeDim.
func (s *BoltStore) Load(id string, activeDim int) (*index.Index, domain.IndexMeta, error) {
	var ix *index.Index
	var meta domain.IndexMeta
	err := s.withRetry(func() error {
		var err error
		ix, meta, err = s.load(id, activeDim)
		return err
	})
	return ix, meta, err
}

func (s *BoltStore) load(id string, activeDim int) (*index.Index, domain.IndexMeta, error) {
	var ix *index.Index
	var meta domain.IndexMeta

	err := s.db.View(func(tx *bbolt.Tx) error {
		metaData := tx.Bucket(bucketMeta).Get([]byte(id))
		chunkData := tx.Bucket(bucketChunks).Get([]byte(id))
		blob := tx.Bucket(bucketVectors).Get([]byte(id))

		if metaData == nil && chunkData == nil && blob == nil {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		if metaData == nil || chunkData == nil || blob == nil {
			return fmt.Errorf("%w: record for %s is missing parts", domain.ErrCorruptIndex, id)
		}

		var rec metaRecord
		if err := json.Unmarshal(metaData, &rec); err != nil {
			return fmt.Errorf("%w: unreadable metadata for %s: %v", domain.ErrCorruptIndex, id, err)
		}
		if rec.Version != RecordVersion {
			return fmt.Errorf("%w: record version %d for %s, want %d", domain.ErrCorruptIndex, rec.Version, id, RecordVersion)
		}

		var records []chunkRecord
		if err := json.Unmarshal(chunkData, &records); err != nil {
			return fmt.Errorf("%w: unreadable chunk list for %s: %v", domain.ErrCorruptIndex, id, err)
		}
		if len(records) != rec.ChunkCount {
			return fmt.Errorf("%w: %s has %d stored chunks, metadata says %d", domain.ErrCorruptIndex, id, len(records), rec.ChunkCount)
		}

		vectors, err := decodeVectors(blob, rec.ChunkCount, rec.Dimension)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrCorruptIndex, id, err)
		}

		chunks := make([]domain.Chunk, len(records))
		for i, r := range records {
			if r.Seq != i {
				return fmt.Errorf("%w: %s has chunk sequence %d at position %d", domain.ErrCorruptIndex, id, r.Seq, i)
			}
			chunks[i] = domain.Chunk{Seq: r.Seq, Text: r.Text, Chars: r.Chars}
		}

		if rec.Dimension != activeDim {
			return fmt.Errorf("%w: %s stored with dimension %d, active model uses %d", domain.ErrModelMismatch, id, rec.Dimension, activeDim)
		}

		ix = index.FromParts(rec.Dimension, chunks, vectors)
		meta = domain.IndexMeta{
			DocID:      id,
			Name:       rec.Name,
			Model:      rec.Model,
			Dimension:  rec.Dimension,
			ChunkCount: rec.ChunkCount,
			CreatedAt:  time.Unix(rec.CreatedAt, 0),
		}
		return nil
	})
	if err != nil {
		return nil, domain.IndexMeta{}, err
	}
	return ix, meta, nil
}

// Delete removes all three record parts. Deleting an absent record is a no-op.
func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketVectors).Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketChunks).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Delete([]byte(id))
	})
}

// Exists reports whether a persisted record exists for id.
func (s *BoltStore) Exists(id string) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketMeta).Get([]byte(id)) != nil
		return nil
	})
	return found, err
}

// Meta returns the metadata part of the record for id.
func (s *BoltStore) Meta(id string) (domain.IndexMeta, error) {
	var meta domain.IndexMeta
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		var rec metaRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("%w: unreadable metadata for %s: %v", domain.ErrCorruptIndex, id, err)
		}
		meta = domain.IndexMeta{
			DocID:      id,
			Name:       rec.Name,
			Model:      rec.Model,
			Dimension:  rec.Dimension,
			ChunkCount: rec.ChunkCount,
			CreatedAt:  time.Unix(rec.CreatedAt, 0),
		}
		return nil
	})
	return meta, err
}

// ListMeta returns metadata for every persisted record, in key order.
func (s *BoltStore) ListMeta() ([]domain.IndexMeta, error) {
	var metas []domain.IndexMeta
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).ForEach(func(k, v []byte) error {
			var rec metaRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("%w: unreadable metadata for %s: %v", domain.ErrCorruptIndex, k, err)
			}
			metas = append(metas, domain.IndexMeta{
				DocID:      string(k),
				Name:       rec.Name,
				Model:      rec.Model,
				Dimension:  rec.Dimension,
				ChunkCount: rec.ChunkCount,
				CreatedAt:  time.Unix(rec.CreatedAt, 0),
			})
			return nil
		})
	})
	return metas, err
}

// withRetry retries transient I/O failures with a short backoff. Typed domain
// errors are persistent conditions and are returned immediately.
func (s *BoltStore) withRetry(op func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(retryBackoff)
		}
		err = op()
		if err == nil || isPermanent(err) {
			return err
		}
	}
	return err
}

func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrCorruptIndex) ||
		errors.Is(err, domain.ErrModelMismatch) ||
		errors.Is(err, domain.ErrEmptyInput)
}

// encodeVectors flattens unit vectors into a little-endian float32 blob in
// insertion order.
func encodeVectors(vectors [][]float32, dim int) []byte {
	blob := make([]byte, 0, len(vectors)*dim*4)
	var buf [4]byte
	for _, vec := range vectors {
		for _, x := range vec {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(x))
			blob = append(blob, buf[:]...)
		}
	}
	return blob
}

func decodeVectors(blob []byte, n, dim int) ([][]float32, error) {
	if want := n * dim * 4; len(blob) != want {
		return nil, fmt.Errorf("vector blob is %d bytes, want %d (%d x %d floats)", len(blob), want, n, dim)
	}
	vectors := make([][]float32, n)
	off := 0
	for i := 0; i < n; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(blob[off:]))
			off += 4
		}
		vectors[i] = vec
	}
	return vectors, nil
}
