package corefuzz

import (
	"os"
	"strconv"
	"time"
)

// seedFromEnv returns the PRNG seed to drive a run: COREFUZZ_SEED if set
// (for a reproducible replay), otherwise a fresh seed derived from the
// current time.
func seedFromEnv() int64 {
	if v := os.Getenv("COREFUZZ_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return time.Now().UnixNano()
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
