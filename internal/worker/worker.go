// Package worker implements the fuzzing worker: the process (or, in
// tests, the goroutine) that actually invokes the target function against
// each generated input under coverage observation.
package worker

import (
	"fmt"
	"io"
	"os"

	"github.com/corefuzz/corefuzz/internal/channel"
	"github.com/corefuzz/corefuzz/internal/tracer"
)

// CloseFDMask bits, matching the --close-fd-mask flag: bit 0 silences
// stdout, bit 1 silences stderr. Both are applied to the worker process
// only, never the supervisor.
const (
	CloseStdout = 1 << 0
	CloseStderr = 1 << 1
)

// Run drives the worker loop: optionally silence the target's own
// stdout/stderr, install the coverage tracer, then repeatedly read one
// input frame from in, invoke target, and write back a coverage or fault
// reply on out. It returns nil right after writing a fault reply, and
// returns the error when reading the next input frame fails (the
// supervisor closed its end of the pipe) or a coverage reply cannot be
// written.
func Run(target func([]byte) error, in io.Reader, out io.Writer, closeFDMask int) error {
	if closeFDMask&CloseStdout != 0 {
		if devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0); err == nil {
			os.Stdout = devnull
		}
	}
	if closeFDMask&CloseStderr != 0 {
		if devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0); err == nil {
			os.Stderr = devnull
		}
	}

	t := tracer.New()
	stop := t.Install(0)
	defer stop()

	reader := channel.NewReader(in)
	replies := channel.NewReplyWriter(out)

	for {
		buf, err := reader.ReadInput()
		if err != nil {
			return err
		}

		if err := invoke(target, buf); err != nil {
			_ = replies.WriteFault(err.Error())
			return nil
		}
		if err := replies.WriteCoverage(int64(t.Coverage())); err != nil {
			return err
		}
	}
}

// invoke calls target against buf, converting a recovered panic into an
// error so a crashing target looks exactly like one that returned an
// error: both end the worker loop and are reported as a fault.
func invoke(target func([]byte) error, buf []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return target(buf)
}
