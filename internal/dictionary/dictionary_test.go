package dictionary

import (
	"os"
	"path/filepath"
	"testing"
)

type fixedRand struct{ n int }

func (f fixedRand) Next(n int) int { return f.n }

func TestLoadFileFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dict.txt")
	content := "# a comment\n" +
		"\"hello\"\n" +
		"name=\"wor\\x6cd\"\n" +
		"\n" +
		"not a dictionary line\n" +
		"\"hello\"\n" // duplicate, should be deduplicated
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	d := New()
	if err := d.Load(path); err != nil {
		t.Fatal(err)
	}
	if d.Len() != 2 {
		t.Fatalf("got %d tokens, want 2", d.Len())
	}

	word, ok := d.GetWord(fixedRand{0})
	if !ok {
		t.Fatal("expected a word")
	}
	if string(word) != "hello" && string(word) != "world" {
		t.Fatalf("unexpected token %q", word)
	}
}

func TestLoadDirectoryFormat(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name+"-token"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	d := New()
	if err := d.Load(dir); err != nil {
		t.Fatal(err)
	}
	if d.Len() != 2 {
		t.Fatalf("got %d tokens, want 2", d.Len())
	}
}

func TestLoadMissingPathIsNotAnError(t *testing.T) {
	d := New()
	if err := d.Load(filepath.Join(t.TempDir(), "does-not-exist")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Len() != 0 {
		t.Fatalf("expected empty dictionary, got %d tokens", d.Len())
	}
}

func TestGetWordEmptyDictionary(t *testing.T) {
	d := New()
	if _, ok := d.GetWord(fixedRand{0}); ok {
		t.Fatal("expected GetWord to report false on an empty dictionary")
	}
}

func TestGetWordNilDictionary(t *testing.T) {
	var d *Dictionary
	if _, ok := d.GetWord(fixedRand{0}); ok {
		t.Fatal("expected GetWord to report false on a nil dictionary")
	}
}
