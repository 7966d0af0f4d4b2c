package embedding

import (
	"context"
	"testing"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, []string{"the quick brown fox"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, []string{"the quick brown fox"})
	if err != nil {
		t.Fatal(err)
	}

	if len(a[0]) != 64 {
		t.Fatalf("dimension = %d, want 64", len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("same text embedded differently at %d", i)
		}
	}
}

func TestMockEmbedderIgnoresCaseAndPunctuation(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()

	vecs, err := e.Embed(ctx, []string{"France.", "france", "FRANCE!"})
	if err != nil {
		t.Fatal(err)
	}
	for v := 1; v < len(vecs); v++ {
		for i := range vecs[0] {
			if vecs[v][i] != vecs[0][i] {
				t.Fatalf("variant %d differs at %d", v, i)
			}
		}
	}
}

func TestMockEmbedderDefaults(t *testing.T) {
	e := NewMockEmbedder(0)
	if e.Dimension() != 64 {
		t.Errorf("default dimension = %d, want 64", e.Dimension())
	}
	if e.ModelName() != "mock" {
		t.Errorf("model name = %s", e.ModelName())
	}
}
