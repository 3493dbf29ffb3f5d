package worker

import (
	"bytes"
	"errors"
	"testing"

	"github.com/corefuzz/corefuzz/internal/channel"
)

func TestRunReportsCoverageOnSuccess(t *testing.T) {
	var in bytes.Buffer
	w := channel.NewWriter(&in)
	if err := w.WriteInput([]byte("ok")); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := Run(func([]byte) error { return nil }, &in, &out, 0)
	if err == nil {
		t.Fatal("expected Run to return an error once the input stream is exhausted")
	}

	r := channel.NewReplyReader(&out)
	reply, err := r.ReadReply()
	if err != nil {
		t.Fatal(err)
	}
	if reply.IsFault {
		t.Fatal("expected a coverage reply, got a fault")
	}
}

func TestRunReportsFaultOnTargetError(t *testing.T) {
	var in bytes.Buffer
	w := channel.NewWriter(&in)
	if err := w.WriteInput([]byte("bad")); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := Run(func([]byte) error { return errors.New("boom") }, &in, &out, 0)
	if err != nil {
		t.Fatalf("expected Run to return nil after reporting a fault, got %v", err)
	}

	r := channel.NewReplyReader(&out)
	reply, err := r.ReadReply()
	if err != nil {
		t.Fatal(err)
	}
	if !reply.IsFault {
		t.Fatal("expected a fault reply")
	}
	if reply.Fault != "boom" {
		t.Fatalf("fault = %q, want %q", reply.Fault, "boom")
	}
}

func TestRunReportsFaultOnPanic(t *testing.T) {
	var in bytes.Buffer
	w := channel.NewWriter(&in)
	if err := w.WriteInput([]byte("panic")); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := Run(func([]byte) error { panic("kaboom") }, &in, &out, 0)
	if err != nil {
		t.Fatalf("expected Run to return nil after reporting a fault, got %v", err)
	}

	r := channel.NewReplyReader(&out)
	reply, err := r.ReadReply()
	if err != nil {
		t.Fatal(err)
	}
	if !reply.IsFault {
		t.Fatal("expected a fault reply")
	}
}
