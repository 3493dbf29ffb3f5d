// Package corpus implements the seed/mutation engine: the in-memory pool
// of interesting inputs, seed loading from disk, persistence of newly
// interesting inputs, and the mutate-a-random-corpus-entry algorithm that
// drives input generation once the seed phase is exhausted.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/corefuzz/corefuzz/internal/dictionary"
	"github.com/corefuzz/corefuzz/internal/mutator"
)

// ErrNoMutatorsMatch is returned when a mutator filter excludes every
// registered operator, leaving nothing to mutate with.
var ErrNoMutatorsMatch = errors.New("corpus: no mutators match the configured filter")

// Corpus holds every input discovered or seeded so far, plus the state
// needed to dispense seeds before switching to mutation-driven generation.
type Corpus struct {
	mu sync.Mutex

	dirs    []string
	saveDir string
	save    bool

	entries [][]byte

	seedRunFinished bool
	seedIdx         int

	maxInputSize int

	dict     *dictionary.Dictionary
	mutators []mutator.Mutator
	rand     mutator.Rand
}

// Options configures New.
type Options struct {
	Dirs           []string
	MaxInputSize   int
	MutatorsFilter string
	DictPath       string
	Rand           mutator.Rand
}

// New constructs a Corpus: it loads every seed file under Options.Dirs
// (concurrently, via a small worker pool), always injects one zero-length
// seed, loads the optional dictionary, and builds the filtered mutator
// catalog. It fails if the dictionary or a seed path cannot be read, or
// if the configured filter excludes every mutator.
func New(opts Options) (*Corpus, error) {
	c := &Corpus{
		dirs:         opts.Dirs,
		maxInputSize: opts.MaxInputSize,
		rand:         opts.Rand,
	}
	if c.maxInputSize < 0 {
		c.maxInputSize = 4096
	}

	dict := dictionary.New()
	if opts.DictPath != "" {
		if err := dict.Load(opts.DictPath); err != nil {
			return nil, err
		}
	}
	c.dict = dict

	if err := c.loadSeeds(); err != nil {
		return nil, err
	}

	// The zero-length seed is injected here, before seedRunFinished is
	// computed, so an otherwise-empty corpus still goes through a (very
	// short) seed phase dispensing it once rather than jumping straight
	// to mutation.
	c.entries = append(c.entries, []byte{})
	c.seedRunFinished = false

	reg := mutator.NewRegistry()
	mutator.Register17(reg, dict)
	filter := mutator.ParseFilter(opts.MutatorsFilter)
	c.mutators = reg.Filtered(filter)
	if len(c.mutators) == 0 {
		return nil, ErrNoMutatorsMatch
	}

	return c, nil
}

// loadSeeds walks c.dirs: the first entry gets created if missing and, if
// it is (or becomes) a directory, doubles as the save directory for newly
// interesting inputs. Every directory is scanned one level deep; files
// are loaded directly.
func (c *Corpus) loadSeeds() error {
	var files []string
	for i, path := range c.dirs {
		if i == 0 {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := os.Mkdir(path, 0o755); err != nil {
					return err
				}
			}
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		if i == 0 {
			c.saveDir = path
			c.save = true
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil
	}

	loaded := make([][]byte, len(files))
	var loadErr error
	var errMu sync.Mutex
	var wg sync.WaitGroup

	pool, err := ants.NewPoolWithFunc(16, func(arg interface{}) {
		defer wg.Done()
		idx := arg.(int)
		b, err := os.ReadFile(files[idx])
		if err != nil {
			errMu.Lock()
			if loadErr == nil {
				loadErr = err
			}
			errMu.Unlock()
			return
		}
		loaded[idx] = b
	})
	if err != nil {
		return err
	}
	defer pool.Release()

	for i := range files {
		wg.Add(1)
		if err := pool.Invoke(i); err != nil {
			wg.Done()
			return err
		}
	}
	wg.Wait()
	if loadErr != nil {
		return loadErr
	}

	c.entries = append(c.entries, loaded...)
	return nil
}

// Length returns the number of inputs currently in the corpus, including
// the always-present zero-length seed.
func (c *Corpus) Length() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns a shallow snapshot of every corpus entry. Callers must
// not mutate the returned slices.
func (c *Corpus) Entries() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.entries))
	copy(out, c.entries)
	return out
}

// Put adds buf to the corpus. If the first configured directory exists, it
// is also persisted there under its sha256 hex digest, so an identical
// input is never written twice.
func (c *Corpus) Put(buf []byte) error {
	c.mu.Lock()
	c.entries = append(c.entries, buf)
	save, dir := c.save, c.saveDir
	c.mu.Unlock()

	if !save {
		return nil
	}
	sum := sha256.Sum256(buf)
	name := filepath.Join(dir, hex.EncodeToString(sum[:]))
	return os.WriteFile(name, buf, 0o644)
}

// GenerateInput returns the next input to execute: one of the seeds in
// order while the seed phase lasts, then a mutation of a randomly chosen
// existing corpus entry.
func (c *Corpus) GenerateInput() []byte {
	c.mu.Lock()
	if !c.seedRunFinished {
		next := c.entries[c.seedIdx]
		c.seedIdx++
		if c.seedIdx >= len(c.entries) {
			c.seedRunFinished = true
		}
		c.mu.Unlock()
		return next
	}
	buf := c.entries[c.rand.Next(len(c.entries))]
	c.mu.Unlock()
	return c.Mutate(buf)
}

// Mutate applies a random number of mutation rounds to buf (biased toward
// few rounds via rand_exp), trying up to 20 mutators per round before
// giving up on that round, and clamps the result to maxInputSize.
func (c *Corpus) Mutate(buf []byte) []byte {
	res := make([]byte, len(buf))
	copy(res, buf)

	rounds := mutator.RandExp(c.rand)
	for i := 0; i < rounds; i++ {
		var newres []byte
		var ok bool
		for attempt := 0; attempt < 20; attempt++ {
			m := c.mutators[c.rand.Next(len(c.mutators))]
			newres, ok = m.Mutate(c.rand, res)
			if ok {
				break
			}
		}
		if ok {
			res = newres
		}
	}

	if len(res) > c.maxInputSize {
		res = res[:c.maxInputSize]
	}
	return res
}

// Dictionary returns the loaded dictionary, or an empty one if none was
// configured.
func (c *Corpus) Dictionary() *dictionary.Dictionary {
	return c.dict
}
