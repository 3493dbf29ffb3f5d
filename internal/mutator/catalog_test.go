package mutator

import "testing"

// scriptedRand replays a fixed sequence of Next() results, in order,
// regardless of the n each call passes — this is what lets a test drive
// the exact deterministic mutation scenarios described for this engine.
type scriptedRand struct {
	values []int
	pos    int
}

func (s *scriptedRand) Next(n int) int {
	if s.pos >= len(s.values) {
		panic("scriptedRand: ran out of scripted values")
	}
	v := s.values[s.pos]
	s.pos++
	return v
}

func (s *scriptedRand) Uint32() uint32 { return 0 }

func TestRemoveRangeDeterministic(t *testing.T) {
	r := &scriptedRand{values: []int{2, 0, 3}}
	out, ok := removeRange{}.Mutate(r, []byte("1234567890"))
	if !ok {
		t.Fatal("expected removeRange to apply")
	}
	if string(out) != "127890" {
		t.Fatalf("got %q, want %q", out, "127890")
	}
}

func TestInsertBytesDeterministic(t *testing.T) {
	r := &scriptedRand{values: []int{2, 0, 3, 65, 66, 67, 68}}
	out, ok := insertBytes{}.Mutate(r, []byte("123456789"))
	if !ok {
		t.Fatal("expected insertBytes to apply")
	}
	if string(out) != "12ABCD3456789" {
		t.Fatalf("got %q, want %q", out, "12ABCD3456789")
	}
}

func TestBitFlipDeterministic(t *testing.T) {
	r := &scriptedRand{values: []int{4, 3}}
	out, ok := bitFlip{}.Mutate(r, []byte("123456789"))
	if !ok {
		t.Fatal("expected bitFlip to apply")
	}
	if string(out) != "1234=6789" {
		t.Fatalf("got %q, want %q", out, "1234=6789")
	}
}

func TestReplaceDigitDeterministic(t *testing.T) {
	r := &scriptedRand{values: []int{0, 5}}
	out, ok := replaceDigit{}.Mutate(r, []byte("there are 4 lights"))
	if !ok {
		t.Fatal("expected replaceDigit to apply")
	}
	if string(out) != "there are 5 lights" {
		t.Fatalf("got %q, want %q", out, "there are 5 lights")
	}
}

func TestReplaceDigitNoDigits(t *testing.T) {
	r := &scriptedRand{}
	_, ok := replaceDigit{}.Mutate(r, []byte("wibble"))
	if ok {
		t.Fatal("expected replaceDigit to decline input with no digits")
	}
}

func TestMutatorsLeaveInputUnchangedOnDecline(t *testing.T) {
	cases := []struct {
		name string
		m    Mutator
		in   []byte
	}{
		{"removeRange", removeRange{}, []byte("a")},
		{"duplicateBytes", duplicateBytes{}, []byte("a")},
		{"copyBytes", copyBytes{}, []byte("a")},
		{"bitFlip", bitFlip{}, nil},
		{"randomiseByte", randomiseByte{}, nil},
		{"swapBytes", swapBytes{}, []byte("a")},
		{"addSubByte", addSubByte{}, nil},
		{"addSubShort", addSubShort{}, []byte("a")},
		{"addSubLong", addSubLong{}, []byte("abc")},
		{"addSubLongLong", addSubLongLong{}, []byte("abcdefg")},
		{"replaceByte", replaceByte{}, nil},
		{"replaceShort", replaceShort{}, []byte("a")},
		{"replaceLong", replaceLong{}, []byte("abc")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			original := append([]byte(nil), tc.in...)
			r := &scriptedRand{values: make([]int, 0)}
			out, ok := tc.m.Mutate(r, tc.in)
			if ok {
				t.Fatalf("expected %s to decline on precondition failure", tc.name)
			}
			if out != nil {
				t.Fatalf("expected nil result on decline, got %v", out)
			}
			if string(tc.in) != string(original) {
				t.Fatalf("input mutated in place: got %v, want %v", tc.in, original)
			}
		})
	}
}

func TestInsertBytesNeverDeclines(t *testing.T) {
	// pos=0, choose_len's x=0 (<90 branch), its own inner draw=0 (n=1),
	// then one byte value for the single inserted byte.
	r := &scriptedRand{values: []int{0, 0, 0, 0}}
	_, ok := insertBytes{}.Mutate(r, nil)
	if !ok {
		t.Fatal("insertBytes must apply even to an empty input")
	}
}

func TestDictionaryMutatorsDeclineWithoutDictionary(t *testing.T) {
	r := &scriptedRand{}
	if _, ok := (dictionaryWordInsert{}).Mutate(r, []byte("x")); ok {
		t.Fatal("expected dictionaryWordInsert to decline without a dictionary")
	}
	if _, ok := (dictionaryWordAppend{}).Mutate(r, []byte("x")); ok {
		t.Fatal("expected dictionaryWordAppend to decline without a dictionary")
	}
}
