// Package snapshot writes a periodic JSON view of the run so external
// tooling can inspect progress without parsing log lines, and queries
// that view with gjson path expressions.
package snapshot

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/corefuzz/corefuzz/internal/corpus"
	"github.com/corefuzz/corefuzz/internal/similarity"
)

// scanInterval is how often WatchNearDuplicates rescans the corpus. A
// fuzzing corpus grows slowly relative to executions per second, so this
// stays coarse on purpose.
const scanInterval = 5 * time.Second

// Stats is the JSON-serializable view of corpus-side diagnostics.
type Stats struct {
	CorpusLength   int                    `json:"corpus_length"`
	NearDuplicates []similarity.Duplicate `json:"near_duplicates"`
	UpdatedAtUnix  int64                  `json:"updated_at_unix"`
}

// Recorder guards the latest Stats and the path it's mirrored to on disk.
type Recorder struct {
	mu    sync.RWMutex
	path  string
	stats Stats
}

// NewRecorder returns a Recorder that mirrors itself to path on every
// Update. An empty path disables the disk mirror; Query still works
// in-memory.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Update replaces the recorded stats and, if a path was configured,
// rewrites the snapshot file. Errors writing the file are returned but are
// not fatal to the caller's run.
func (r *Recorder) Update(s Stats) error {
	r.mu.Lock()
	r.stats = s
	r.mu.Unlock()

	if r.path == "" {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, b, 0o644)
}

// Bytes returns the current stats marshaled as JSON.
func (r *Recorder) Bytes() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return json.Marshal(r.stats)
}

// Query runs a gjson path expression against the current snapshot, e.g.
// "corpus_length" or "near_duplicates.#".
func (r *Recorder) Query(path string) (gjson.Result, error) {
	b, err := r.Bytes()
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(b, path), nil
}

// WatchNearDuplicates periodically rescans c's entries for near-duplicate
// seeds and logs what it finds, until ctx is done. It is started as a
// background goroutine and never blocks the fuzzing loop: a slow or
// failing scan simply skips that tick.
func WatchNearDuplicates(ctx context.Context, logger *slog.Logger, c *corpus.Corpus) {
	rec := NewRecorder("")
	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries := c.Entries()
			dups := similarity.Scan(entries)
			_ = rec.Update(Stats{
				CorpusLength:   len(entries),
				NearDuplicates: dups,
				UpdatedAtUnix:  time.Now().Unix(),
			})
			if len(dups) > 0 {
				logger.Info("near-duplicate corpus entries detected", "count", len(dups))
			}
		}
	}
}
