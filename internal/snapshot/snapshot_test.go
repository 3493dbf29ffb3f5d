package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corefuzz/corefuzz/internal/similarity"
)

func TestUpdateAndQueryInMemory(t *testing.T) {
	rec := NewRecorder("")
	if err := rec.Update(Stats{CorpusLength: 7, UpdatedAtUnix: 1000}); err != nil {
		t.Fatal(err)
	}

	result, err := rec.Query("corpus_length")
	if err != nil {
		t.Fatal(err)
	}
	if result.Int() != 7 {
		t.Fatalf("corpus_length = %d, want 7", result.Int())
	}
}

func TestUpdatePersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	rec := NewRecorder(path)
	if err := rec.Update(Stats{CorpusLength: 3}); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) == 0 {
		t.Fatal("expected non-empty JSON bytes")
	}
}

func TestQueryNearDuplicatesCount(t *testing.T) {
	rec := NewRecorder("")
	_ = rec.Update(Stats{
		NearDuplicates: []similarity.Duplicate{{IndexA: 0, IndexB: 1, Distance: 5}},
	})

	result, err := rec.Query("near_duplicates.#")
	if err != nil {
		t.Fatal(err)
	}
	if result.Int() != 1 {
		t.Fatalf("near_duplicates count = %d, want 1", result.Int())
	}
}
