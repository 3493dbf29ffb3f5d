package channel

import (
	"bytes"
	"testing"
)

func TestInputRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteInput([]byte("hello fuzzing")); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteInput(nil); err != nil {
		t.Fatal(err)
	}

	r := NewReader(&buf)
	got, err := r.ReadInput()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello fuzzing" {
		t.Fatalf("got %q", got)
	}

	got2, err := r.ReadInput()
	if err != nil {
		t.Fatal(err)
	}
	if len(got2) != 0 {
		t.Fatalf("expected an empty frame, got %v", got2)
	}
}

func TestReplyRoundTripCoverage(t *testing.T) {
	var buf bytes.Buffer
	w := NewReplyWriter(&buf)
	if err := w.WriteCoverage(42); err != nil {
		t.Fatal(err)
	}

	r := NewReplyReader(&buf)
	reply, err := r.ReadReply()
	if err != nil {
		t.Fatal(err)
	}
	if reply.IsFault {
		t.Fatal("unexpected fault reply")
	}
	if reply.Coverage != 42 {
		t.Fatalf("got coverage %d, want 42", reply.Coverage)
	}
}

func TestReplyRoundTripFault(t *testing.T) {
	var buf bytes.Buffer
	w := NewReplyWriter(&buf)
	if err := w.WriteFault("boom"); err != nil {
		t.Fatal(err)
	}

	r := NewReplyReader(&buf)
	reply, err := r.ReadReply()
	if err != nil {
		t.Fatal(err)
	}
	if !reply.IsFault {
		t.Fatal("expected a fault reply")
	}
	if reply.Fault != "boom" {
		t.Fatalf("got fault %q, want %q", reply.Fault, "boom")
	}
}
