package embedding

import "testing"

func TestBatchSizeConfiguration(t *testing.T) {
	cases := []struct {
		name string
		in   int
		want int
	}{
		{"explicit", 25, 25},
		{"zero falls back to default", 0, defaultBatch},
		{"negative falls back to default", -5, defaultBatch},
	}
	for _, tc := range cases {
		e, err := NewOllamaEmbedder("nomic-embed-text", "", tc.in)
		if err != nil {
			t.Fatal(err)
		}
		if e.batch != tc.want {
			t.Errorf("%s: batch = %d, want %d", tc.name, e.batch, tc.want)
		}
	}
}

func TestOpenAIEmbedderRequiresKey(t *testing.T) {
	t.Setenv("DOCQUERY_TEST_KEY", "")
	if _, err := NewOpenAICompatibleEmbedder("DOCQUERY_TEST_KEY", "text-embedding-3-small", "", 0); err == nil {
		t.Error("expected error for missing API key")
	}

	t.Setenv("DOCQUERY_TEST_KEY", "sk-test")
	e, err := NewOpenAICompatibleEmbedder("DOCQUERY_TEST_KEY", "text-embedding-3-small", "", 40)
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimension() != 1536 {
		t.Errorf("dimension = %d, want 1536", e.Dimension())
	}
	if e.batch != 40 {
		t.Errorf("batch = %d, want 40", e.batch)
	}
}
