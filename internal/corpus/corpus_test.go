package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/corefuzz/corefuzz/internal/mutator"
)

func TestSeedPhaseDispensesBeforeMutation(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed1")
	if err := os.WriteFile(seed, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := New(Options{
		Dirs:         []string{dir},
		MaxInputSize: 4096,
		Rand:         mutator.NewSeededRand(1),
	})
	if err != nil {
		t.Fatal(err)
	}

	first := c.GenerateInput()
	if string(first) != "hello" {
		t.Fatalf("first dispensed input = %q, want the loaded seed verbatim", first)
	}
	second := c.GenerateInput()
	if string(second) != "" {
		t.Fatalf("second dispensed input = %q, want the zero-length seed", second)
	}
}

func TestEmptyCorpusStillDispensesZeroLengthSeed(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Options{
		Dirs:         []string{dir},
		MaxInputSize: 4096,
		Rand:         mutator.NewSeededRand(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	first := c.GenerateInput()
	if len(first) != 0 {
		t.Fatalf("expected the zero-length seed first, got %d bytes", len(first))
	}
}

func TestMaxInputSizeZeroClampsEveryInput(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Options{
		Dirs:         []string{dir},
		MaxInputSize: 0,
		Rand:         mutator.NewSeededRand(2),
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		if n := len(c.GenerateInput()); n != 0 {
			t.Fatalf("iteration %d: got input of length %d, want 0", i, n)
		}
	}
}

func TestPutGrowsCorpusAndPersists(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Options{
		Dirs:         []string{dir},
		MaxInputSize: 4096,
		Rand:         mutator.NewSeededRand(3),
	})
	if err != nil {
		t.Fatal(err)
	}
	before := c.Length()
	if err := c.Put([]byte("interesting")); err != nil {
		t.Fatal(err)
	}
	if c.Length() != before+1 {
		t.Fatalf("corpus length = %d, want %d", c.Length(), before+1)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("expected Put to persist a file under the save directory")
	}
}

func TestNoMutatorsMatchIsAConfigurationError(t *testing.T) {
	dir := t.TempDir()
	_, err := New(Options{
		Dirs:           []string{dir},
		MaxInputSize:   4096,
		MutatorsFilter: "this-tag-matches-nothing",
		Rand:           mutator.NewSeededRand(4),
	})
	if err != ErrNoMutatorsMatch {
		t.Fatalf("got %v, want ErrNoMutatorsMatch", err)
	}
}
