package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkMatchesPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "b.md", "beta")
	writeFile(t, root, "c.go", "package main")
	writeFile(t, root, "docs/d.txt", "delta")
	writeFile(t, root, "node_modules/e.txt", "ignored")

	w := NewWalker([]string{"**/*.txt", "**/*.md"}, []string{"**/node_modules/**"})
	files, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	got := make(map[string]bool)
	for _, f := range files {
		got[filepath.ToSlash(f.Name)] = true
		if !filepath.IsAbs(f.Path) {
			t.Errorf("path %s is not absolute", f.Path)
		}
	}

	want := []string{"a.txt", "b.md", "docs/d.txt"}
	if len(got) != len(want) {
		t.Fatalf("matched %v, want %v", got, want)
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("missing %s", name)
		}
	}
	if got["c.go"] {
		t.Error("matched file outside include patterns")
	}
	if got["node_modules/e.txt"] {
		t.Error("matched excluded file")
	}
}

func TestWalkDefaultIncludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "b.bin", "binary")

	w := NewWalker(nil, nil)
	files, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "a.txt" {
		t.Errorf("files = %+v, want just a.txt", files)
	}
	if files[0].Size != 5 {
		t.Errorf("size = %d, want 5", files[0].Size)
	}
}

func TestWalkEmptyDir(t *testing.T) {
	w := NewWalker(nil, nil)
	files, err := w.Walk(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files in empty dir", len(files))
	}
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha content")

	text, err := ReadFile(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if text != "alpha content" {
		t.Errorf("content = %q", text)
	}

	if _, err := ReadFile(filepath.Join(root, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
