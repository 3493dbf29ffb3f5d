package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteUsesShaHexName(t *testing.T) {
	dir := t.TempDir()
	buf := []byte("crashing input")
	sum := sha256.Sum256(buf)
	want := filepath.Join(dir, "crash-") + hex.EncodeToString(sum[:])

	path, err := Write(discardLogger(), buf, filepath.Join(dir, "crash-"), "")
	if err != nil {
		t.Fatal(err)
	}
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(buf) {
		t.Fatalf("file contents = %q, want %q", got, buf)
	}
}

func TestWriteHonorsExactArtifactPath(t *testing.T) {
	dir := t.TempDir()
	exact := filepath.Join(dir, "my-crash.bin")

	path, err := Write(discardLogger(), []byte("x"), filepath.Join(dir, "crash-"), exact)
	if err != nil {
		t.Fatal(err)
	}
	if path != exact {
		t.Fatalf("path = %q, want %q", path, exact)
	}
	if _, err := os.Stat(exact); err != nil {
		t.Fatal(err)
	}
}
