// Package channel implements the length-prefixed duplex framing the
// supervisor and worker processes use to exchange test cases and results
// over a pair of OS pipes (file descriptors 3 and 4 in the worker),
// standing in for the original's multiprocessing.Pipe.
package channel

import (
	"encoding/binary"
	"fmt"
	"io"
)

// replyKind tags a worker reply frame.
type replyKind byte

const (
	replyCoverage replyKind = 'I'
	replyFault    replyKind = 'E'
)

// Writer sends length-prefixed request frames: a request frame is a 4-byte
// big-endian length followed by that many raw bytes.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteInput sends buf as a single request frame.
func (c *Writer) WriteInput(buf []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(buf)))
	if _, err := c.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := c.w.Write(buf)
	return err
}

// Reader reads length-prefixed request frames.
type Reader struct {
	r io.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadInput blocks until a full request frame is available, or returns the
// underlying read error (io.EOF when the peer has closed its end).
func (c *Reader) ReadInput() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(c.r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReplyWriter sends tagged reply frames from the worker back to the
// supervisor.
type ReplyWriter struct {
	w io.Writer
}

// NewReplyWriter wraps w.
func NewReplyWriter(w io.Writer) *ReplyWriter {
	return &ReplyWriter{w: w}
}

// WriteCoverage sends a successful-execution reply carrying the worker's
// current cumulative coverage count.
func (c *ReplyWriter) WriteCoverage(coverage int64) error {
	var frame [9]byte
	frame[0] = byte(replyCoverage)
	binary.BigEndian.PutUint64(frame[1:], uint64(coverage))
	_, err := c.w.Write(frame[:])
	return err
}

// WriteFault sends a failed-execution reply carrying the panic/error
// message observed while running the target.
func (c *ReplyWriter) WriteFault(msg string) error {
	body := []byte(msg)
	frame := make([]byte, 1+4+len(body))
	frame[0] = byte(replyFault)
	binary.BigEndian.PutUint32(frame[1:5], uint32(len(body)))
	copy(frame[5:], body)
	_, err := c.w.Write(frame)
	return err
}

// Reply is a decoded worker reply: either Coverage is valid (Fault empty)
// or Fault is valid (Coverage meaningless).
type Reply struct {
	Coverage int64
	Fault    string
	IsFault  bool
}

// ReplyReader reads tagged reply frames.
type ReplyReader struct {
	r io.Reader
}

// NewReplyReader wraps r.
func NewReplyReader(r io.Reader) *ReplyReader {
	return &ReplyReader{r: r}
}

// ReadReply blocks until a full reply frame is available.
func (c *ReplyReader) ReadReply() (Reply, error) {
	var tag [1]byte
	if _, err := io.ReadFull(c.r, tag[:]); err != nil {
		return Reply{}, err
	}
	switch replyKind(tag[0]) {
	case replyCoverage:
		var body [8]byte
		if _, err := io.ReadFull(c.r, body[:]); err != nil {
			return Reply{}, err
		}
		return Reply{Coverage: int64(binary.BigEndian.Uint64(body[:]))}, nil
	case replyFault:
		var lenBuf [4]byte
		if _, err := io.ReadFull(c.r, lenBuf[:]); err != nil {
			return Reply{}, err
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		body := make([]byte, n)
		if _, err := io.ReadFull(c.r, body); err != nil {
			return Reply{}, err
		}
		return Reply{Fault: string(body), IsFault: true}, nil
	default:
		return Reply{}, fmt.Errorf("channel: unknown reply tag %q", tag[0])
	}
}
