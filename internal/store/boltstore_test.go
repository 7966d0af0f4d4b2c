package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"go.etcd.io/bbolt"

	"docquery/internal/domain"
	"docquery/internal/index"
)

func tempStore(t *testing.T) *BoltStore {
	t.Helper()
	st, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testIndex() *index.Index {
	chunks := []domain.Chunk{
		{Seq: 0, Text: "the first chunk of the document", Chars: 31},
		{Seq: 1, Text: "the second chunk of the document", Chars: 32},
	}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	}
	return index.FromParts(4, chunks, vectors)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := tempStore(t)
	src := testIndex()

	if err := st.Save("doc1", "report.txt", src, "stub-model"); err != nil {
		t.Fatal(err)
	}

	ix, meta, err := st.Load("doc1", 4)
	if err != nil {
		t.Fatal(err)
	}

	if ix.Len() != src.Len() {
		t.Fatalf("loaded %d chunks, want %d", ix.Len(), src.Len())
	}
	if ix.Dim() != src.Dim() {
		t.Fatalf("loaded dimension %d, want %d", ix.Dim(), src.Dim())
	}
	for i, c := range ix.Chunks() {
		want := src.Chunks()[i]
		if c != want {
			t.Errorf("chunk %d = %+v, want %+v", i, c, want)
		}
	}
	for i, vec := range ix.Vectors() {
		for j, x := range vec {
			if x != src.Vectors()[i][j] {
				t.Errorf("vector %d[%d] = %f, want %f", i, j, x, src.Vectors()[i][j])
			}
		}
	}

	if meta.DocID != "doc1" || meta.Name != "report.txt" || meta.Model != "stub-model" {
		t.Errorf("meta = %+v", meta)
	}
	if meta.ChunkCount != 2 || meta.Dimension != 4 {
		t.Errorf("meta counts = %+v", meta)
	}
	if meta.CreatedAt.IsZero() {
		t.Error("meta.CreatedAt is zero")
	}
}

func TestSaveEmptyID(t *testing.T) {
	st := tempStore(t)
	if err := st.Save("", "x", testIndex(), "m"); !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("Save with empty id error = %v, want ErrEmptyInput", err)
	}
}

func TestLoadNotFound(t *testing.T) {
	st := tempStore(t)
	if _, _, err := st.Load("missing", 4); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLoadModelMismatch(t *testing.T) {
	st := tempStore(t)
	if err := st.Save("doc1", "x", testIndex(), "m"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := st.Load("doc1", 1536); !errors.Is(err, domain.ErrModelMismatch) {
		t.Errorf("Load with wrong dim error = %v, want ErrModelMismatch", err)
	}
}

func TestLoadCorruptChunkCount(t *testing.T) {
	st := tempStore(t)
	if err := st.Save("doc1", "x", testIndex(), "m"); err != nil {
		t.Fatal(err)
	}

	// Drop one chunk from the stored list so it disagrees with the metadata.
	err := st.db.Update(func(tx *bbolt.Tx) error {
		var records []chunkRecord
		if err := json.Unmarshal(tx.Bucket(bucketChunks).Get([]byte("doc1")), &records); err != nil {
			return err
		}
		data, err := json.Marshal(records[:1])
		if err != nil {
			return err
		}
		return tx.Bucket(bucketChunks).Put([]byte("doc1"), data)
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := st.Load("doc1", 4); !errors.Is(err, domain.ErrCorruptIndex) {
		t.Errorf("Load with tampered chunks error = %v, want ErrCorruptIndex", err)
	}
}

func TestLoadCorruptMissingPart(t *testing.T) {
	st := tempStore(t)
	if err := st.Save("doc1", "x", testIndex(), "m"); err != nil {
		t.Fatal(err)
	}

	err := st.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).Delete([]byte("doc1"))
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := st.Load("doc1", 4); !errors.Is(err, domain.ErrCorruptIndex) {
		t.Errorf("Load with missing vectors error = %v, want ErrCorruptIndex", err)
	}
}

func TestLoadCorruptBlobSize(t *testing.T) {
	st := tempStore(t)
	if err := st.Save("doc1", "x", testIndex(), "m"); err != nil {
		t.Fatal(err)
	}

	err := st.db.Update(func(tx *bbolt.Tx) error {
		blob := tx.Bucket(bucketVectors).Get([]byte("doc1"))
		return tx.Bucket(bucketVectors).Put([]byte("doc1"), blob[:len(blob)-4])
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := st.Load("doc1", 4); !errors.Is(err, domain.ErrCorruptIndex) {
		t.Errorf("Load with truncated blob error = %v, want ErrCorruptIndex", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	st := tempStore(t)
	if err := st.Save("doc1", "x", testIndex(), "m"); err != nil {
		t.Fatal(err)
	}

	if err := st.Delete("doc1"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := st.Load("doc1", 4); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Load after delete error = %v, want ErrNotFound", err)
	}

	// Deleting again is a no-op.
	if err := st.Delete("doc1"); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
	if err := st.Delete("never-existed"); err != nil {
		t.Errorf("delete of absent id failed: %v", err)
	}
}

func TestExists(t *testing.T) {
	st := tempStore(t)

	found, err := st.Exists("doc1")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("Exists(doc1) = true before save")
	}

	if err := st.Save("doc1", "x", testIndex(), "m"); err != nil {
		t.Fatal(err)
	}
	found, err = st.Exists("doc1")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Error("Exists(doc1) = false after save")
	}
}

func TestListMeta(t *testing.T) {
	st := tempStore(t)
	for _, id := range []string{"b", "a", "c"} {
		if err := st.Save(id, "doc-"+id, testIndex(), "m"); err != nil {
			t.Fatal(err)
		}
	}

	metas, err := st.ListMeta()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 3 {
		t.Fatalf("got %d metas, want 3", len(metas))
	}
	// Bolt iterates in key order.
	want := []string{"a", "b", "c"}
	for i, m := range metas {
		if m.DocID != want[i] {
			t.Errorf("meta %d id = %s, want %s", i, m.DocID, want[i])
		}
	}
}

func TestRebuildReplacesRecord(t *testing.T) {
	st := tempStore(t)
	if err := st.Save("doc1", "v1", testIndex(), "m"); err != nil {
		t.Fatal(err)
	}

	bigger := index.FromParts(4,
		[]domain.Chunk{
			{Seq: 0, Text: "a", Chars: 1},
			{Seq: 1, Text: "b", Chars: 1},
			{Seq: 2, Text: "c", Chars: 1},
		},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}})
	if err := st.Save("doc1", "v2", bigger, "m"); err != nil {
		t.Fatal(err)
	}

	ix, meta, err := st.Load("doc1", 4)
	if err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 3 || meta.ChunkCount != 3 || meta.Name != "v2" {
		t.Errorf("rebuild not fully replaced: len=%d meta=%+v", ix.Len(), meta)
	}
}
