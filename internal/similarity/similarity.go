// Package similarity flags near-duplicate corpus entries using TLSH fuzzy
// hashing. This is pure diagnostics: it never blocks or rejects a corpus
// entry, so it cannot interfere with the corpus's append-only growth.
package similarity

import (
	"github.com/glaslos/tlsh"
)

// minInputSize is the library's own floor for a meaningful hash.
const minInputSize = 50

// highSimilarityThreshold: a diff distance at or below this is reported
// as "very similar".
const highSimilarityThreshold = 30

// Duplicate describes one flagged pair of near-identical corpus entries.
type Duplicate struct {
	IndexA, IndexB int
	Distance       int
}

// Scan computes a TLSH digest for every entry of at least minInputSize
// bytes and reports all pairs within highSimilarityThreshold of each
// other. Entries too small to hash are silently skipped, not flagged.
func Scan(entries [][]byte) []Duplicate {
	type digest struct {
		index int
		hash  *tlsh.TLSH
	}

	var digests []digest
	for i, e := range entries {
		if len(e) < minInputSize {
			continue
		}
		h, err := tlsh.HashBytes(e)
		if err != nil {
			continue
		}
		digests = append(digests, digest{index: i, hash: h})
	}

	var dups []Duplicate
	for i := 0; i < len(digests); i++ {
		for j := i + 1; j < len(digests); j++ {
			d := digests[i].hash.Diff(digests[j].hash)
			if d <= highSimilarityThreshold {
				dups = append(dups, Duplicate{
					IndexA:   digests[i].index,
					IndexB:   digests[j].index,
					Distance: d,
				})
			}
		}
	}
	return dups
}
