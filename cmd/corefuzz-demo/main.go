// Command corefuzz-demo is a minimal, deliberately buggy fuzz target used
// to exercise the engine end to end: it parses a tiny length-prefixed
// record format and panics on a record claiming a length longer than the
// bytes actually available.
package main

import (
	"encoding/binary"
	"fmt"

	"github.com/corefuzz/corefuzz"
)

func decodeRecord(buf []byte) error {
	if len(buf) < 4 {
		panic(fmt.Sprintf("decodeRecord: record too short to hold a length header (%d bytes)", len(buf)))
	}
	n := binary.BigEndian.Uint32(buf[:4])
	body := buf[4:]
	if int(n) > len(body) {
		panic(fmt.Sprintf("decodeRecord: declared length %d exceeds available body of %d bytes", n, len(body)))
	}
	return nil
}

func main() {
	corefuzz.Fuzz("corefuzz-demo", func(data []byte) error {
		decodeRecord(data)
		return nil
	})
}
