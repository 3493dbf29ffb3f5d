package mutator

import "github.com/corefuzz/corefuzz/internal/dictionary"

// INTERESTING8 holds edge-of-range int8 values worth trying verbatim.
var INTERESTING8 = []int{-128, -1, 0, 1, 16, 32, 64, 100, 127}

// INTERESTING16 holds edge-of-range uint16 values worth trying verbatim.
var INTERESTING16 = []int{0, 128, 255, 256, 512, 1000, 1024, 4096, 32767, 65535}

// INTERESTING32 holds edge-of-range uint32 values worth trying verbatim.
var INTERESTING32 = []int{0, 1, 32768, 65535, 65536, 100663045, 2147483647, 4294967295}

// copyOverlap copies min(len(src)-startSrc, len(dst)-startDst) bytes from
// src[startSrc:] into dst[startDst:]. dst and src may be the same slice and
// the ranges may overlap; it behaves like Go's builtin copy in that regard.
func copyOverlap(dst, src []byte, startDst, startSrc int) {
	n := len(src) - startSrc
	if m := len(dst) - startDst; m < n {
		n = m
	}
	copy(dst[startDst:startDst+n], src[startSrc:startSrc+n])
}

func bigEndian(r Rand) bool {
	return r.Next(2) == 1
}

// Register17 registers the full built-in operator catalog on reg. dict may
// be nil, in which case the two dictionary-backed operators always decline
// to apply.
func Register17(reg *Registry, dict *dictionary.Dictionary) {
	reg.Register(removeRange{})
	reg.Register(insertBytes{})
	reg.Register(duplicateBytes{})
	reg.Register(copyBytes{})
	reg.Register(bitFlip{})
	reg.Register(randomiseByte{})
	reg.Register(swapBytes{})
	reg.Register(addSubByte{})
	reg.Register(addSubShort{})
	reg.Register(addSubLong{})
	reg.Register(addSubLongLong{})
	reg.Register(replaceByte{})
	reg.Register(replaceShort{})
	reg.Register(replaceLong{})
	reg.Register(replaceDigit{})
	reg.Register(dictionaryWordInsert{dict: dict})
	reg.Register(dictionaryWordAppend{dict: dict})
}

type removeRange struct{}

func (removeRange) Name() string { return "Remove a range of bytes" }
func (removeRange) Tags() TagSet { return NewTagSet(TagByte, TagRemove) }
func (removeRange) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) < 2 {
		return nil, false
	}
	pos0 := r.Next(len(input))
	n := ChooseLen(r, len(input)-pos0)
	pos1 := pos0 + n
	out := make([]byte, len(input))
	copy(out, input)
	copyOverlap(out, out, pos0, pos1)
	return out[:len(input)-n], true
}

type insertBytes struct{}

func (insertBytes) Name() string { return "Insert a range of random bytes" }
func (insertBytes) Tags() TagSet { return NewTagSet(TagByte, TagInsert) }
func (insertBytes) Mutate(r Rand, input []byte) ([]byte, bool) {
	pos := r.Next(len(input) + 1)
	n := ChooseLen(r, 10)
	out := make([]byte, len(input)+n)
	copy(out, input)
	copyOverlap(out, out, pos+n, pos)
	for k := 0; k < n; k++ {
		out[pos+k] = byte(r.Next(256))
	}
	return out, true
}

type duplicateBytes struct{}

func (duplicateBytes) Name() string { return "Duplicate a range of bytes" }
func (duplicateBytes) Tags() TagSet { return NewTagSet(TagByte, TagDuplicate) }
func (duplicateBytes) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) <= 1 {
		return nil, false
	}
	src := r.Next(len(input))
	dst := r.Next(len(input))
	for src == dst {
		dst = r.Next(len(input))
	}
	n := ChooseLen(r, len(input)-src)
	tmp := make([]byte, n)
	copy(tmp, input[src:src+n])
	out := make([]byte, len(input)+n)
	copy(out, input)
	copyOverlap(out, out, dst+n, dst)
	copy(out[dst:dst+n], tmp)
	return out, true
}

type copyBytes struct{}

func (copyBytes) Name() string { return "Copy a range of bytes" }
func (copyBytes) Tags() TagSet { return NewTagSet(TagByte, TagCopy) }
func (copyBytes) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) <= 1 {
		return nil, false
	}
	src := r.Next(len(input))
	dst := r.Next(len(input))
	for src == dst {
		dst = r.Next(len(input))
	}
	n := ChooseLen(r, len(input)-src)
	out := make([]byte, len(input))
	copy(out, input)
	// The range starting at dst is overwritten with the bytes starting at
	// src, clipped to whatever is left of the input past dst. n is already
	// bounded by len(input)-src (ChooseLen's own argument above), so that
	// bound never needs to be applied a second time here.
	byteToCopy := n
	if m := len(out) - dst; m < byteToCopy {
		byteToCopy = m
	}
	copy(out[dst:dst+byteToCopy], out[src:src+byteToCopy])
	return out, true
}

type bitFlip struct{}

func (bitFlip) Name() string { return "Bit flip" }
func (bitFlip) Tags() TagSet { return NewTagSet(TagBit, TagReplace) }
func (bitFlip) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) == 0 {
		return nil, false
	}
	pos := r.Next(len(input))
	out := make([]byte, len(input))
	copy(out, input)
	out[pos] ^= 1 << uint(r.Next(8))
	return out, true
}

type randomiseByte struct{}

func (randomiseByte) Name() string { return "Set a byte to a random value." }
func (randomiseByte) Tags() TagSet { return NewTagSet(TagByte, TagReplace) }
func (randomiseByte) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) == 0 {
		return nil, false
	}
	pos := r.Next(len(input))
	out := make([]byte, len(input))
	copy(out, input)
	out[pos] ^= byte(r.Next(255) + 1)
	return out, true
}

type swapBytes struct{}

func (swapBytes) Name() string { return "Swap 2 bytes" }
func (swapBytes) Tags() TagSet { return NewTagSet(TagByte, TagSwap) }
func (swapBytes) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) <= 1 {
		return nil, false
	}
	src := r.Next(len(input))
	dst := r.Next(len(input))
	for src == dst {
		dst = r.Next(len(input))
	}
	out := make([]byte, len(input))
	copy(out, input)
	out[src], out[dst] = out[dst], out[src]
	return out, true
}

type addSubByte struct{}

func (addSubByte) Name() string { return "Add/subtract from a byte" }
func (addSubByte) Tags() TagSet { return NewTagSet(TagByte, TagAddSub) }
func (addSubByte) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) == 0 {
		return nil, false
	}
	pos := r.Next(len(input))
	v := r.Next(256)
	out := make([]byte, len(input))
	copy(out, input)
	out[pos] = byte((int(out[pos]) + v) % 256)
	return out, true
}

// packWidth draws a w-byte uniform value split across w single Next(256)
// draws (so the value's magnitude never needs more than an int to hold) and
// lays the bytes out big- or little-endian with equal probability.
func packWidth(r Rand, w int) []byte {
	raw := make([]byte, w)
	for i := range raw {
		raw[i] = byte(r.Next(256))
	}
	if bigEndian(r) {
		be := make([]byte, w)
		for i := 0; i < w; i++ {
			be[i] = raw[w-1-i]
		}
		return be
	}
	return raw
}

type addSubShort struct{}

func (addSubShort) Name() string { return "Add/subtract from a uint16" }
func (addSubShort) Tags() TagSet { return NewTagSet(TagShort, TagAddSub) }
func (addSubShort) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) < 2 {
		return nil, false
	}
	pos := r.Next(len(input) - 1)
	v := packWidth(r, 2)
	out := make([]byte, len(input))
	copy(out, input)
	out[pos] = byte((int(out[pos]) + int(v[0])) % 256)
	out[pos+1] = byte((int(out[pos+1]) + int(v[1])) % 256)
	return out, true
}

type addSubLong struct{}

func (addSubLong) Name() string { return "Add/subtract from a uint32" }
func (addSubLong) Tags() TagSet { return NewTagSet(TagLong, TagAddSub) }
func (addSubLong) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) < 4 {
		return nil, false
	}
	pos := r.Next(len(input) - 3)
	v := packWidth(r, 4)
	out := make([]byte, len(input))
	copy(out, input)
	for i := 0; i < 4; i++ {
		out[pos+i] = byte((int(out[pos+i]) + int(v[i])) % 256)
	}
	return out, true
}

type addSubLongLong struct{}

func (addSubLongLong) Name() string { return "Add/subtract from a uint64" }
func (addSubLongLong) Tags() TagSet { return NewTagSet(TagLongLong, TagAddSub) }
func (addSubLongLong) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) < 8 {
		return nil, false
	}
	pos := r.Next(len(input) - 7)
	v := packWidth(r, 8)
	out := make([]byte, len(input))
	copy(out, input)
	for i := 0; i < 8; i++ {
		out[pos+i] = byte((int(out[pos+i]) + int(v[i])) % 256)
	}
	return out, true
}

type replaceByte struct{}

func (replaceByte) Name() string { return "Replace a byte with an interesting value" }
func (replaceByte) Tags() TagSet { return NewTagSet(TagByte, TagReplace) }
func (replaceByte) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) == 0 {
		return nil, false
	}
	pos := r.Next(len(input))
	v := INTERESTING8[r.Next(len(INTERESTING8))]
	out := make([]byte, len(input))
	copy(out, input)
	out[pos] = byte(((v % 256) + 256) % 256)
	return out, true
}

// packValueWidth lays a non-negative integer value out across w bytes, randomly
// big- or little-endian.
func packValueWidth(r Rand, v int, w int) []byte {
	raw := make([]byte, w)
	for i := 0; i < w; i++ {
		shift := uint(8 * i)
		raw[i] = byte((v >> shift) & 0xff)
	}
	if bigEndian(r) {
		be := make([]byte, w)
		for i := 0; i < w; i++ {
			be[i] = raw[w-1-i]
		}
		return be
	}
	return raw
}

type replaceShort struct{}

func (replaceShort) Name() string { return "Replace an uint16 with an interesting value" }
func (replaceShort) Tags() TagSet { return NewTagSet(TagShort, TagReplace) }
func (replaceShort) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) < 2 {
		return nil, false
	}
	pos := r.Next(len(input) - 1)
	v := INTERESTING16[r.Next(len(INTERESTING16))]
	b := packValueWidth(r, v, 2)
	out := make([]byte, len(input))
	copy(out, input)
	out[pos] = b[0]
	out[pos+1] = b[1]
	return out, true
}

type replaceLong struct{}

func (replaceLong) Name() string { return "Replace an uint32 with an interesting value" }
func (replaceLong) Tags() TagSet { return NewTagSet(TagLong, TagReplace) }
func (replaceLong) Mutate(r Rand, input []byte) ([]byte, bool) {
	if len(input) < 4 {
		return nil, false
	}
	pos := r.Next(len(input) - 3)
	v := INTERESTING32[r.Next(len(INTERESTING32))]
	b := packValueWidth(r, v, 4)
	out := make([]byte, len(input))
	copy(out, input)
	copy(out[pos:pos+4], b)
	return out, true
}

type replaceDigit struct{}

func (replaceDigit) Name() string { return "Replace an ascii digit with another digit" }
func (replaceDigit) Tags() TagSet { return NewTagSet(TagByte, TagASCII, TagReplace) }
func (replaceDigit) Mutate(r Rand, input []byte) ([]byte, bool) {
	var digits []int
	for k, b := range input {
		if b >= '0' && b <= '9' {
			digits = append(digits, k)
		}
	}
	if len(digits) == 0 {
		return nil, false
	}
	pos := digits[r.Next(len(digits))]
	out := make([]byte, len(input))
	copy(out, input)
	was := out[pos]
	now := was
	for was == now {
		now = byte(r.Next(10)) + '0'
	}
	out[pos] = now
	return out, true
}

type dictionaryWordInsert struct {
	dict *dictionary.Dictionary
}

func (dictionaryWordInsert) Name() string { return "Insert a word at a random position" }
func (dictionaryWordInsert) Tags() TagSet { return NewTagSet(TagText, TagDictionary) }
func (d dictionaryWordInsert) Mutate(r Rand, input []byte) ([]byte, bool) {
	if d.dict == nil {
		return nil, false
	}
	word, ok := d.dict.GetWord(r)
	if !ok {
		return nil, false
	}
	pos := r.Next(len(input) + 1)
	out := make([]byte, len(input)+len(word))
	copy(out, input)
	copyOverlap(out, out, pos+len(word), pos)
	copy(out[pos:pos+len(word)], word)
	return out, true
}

type dictionaryWordAppend struct {
	dict *dictionary.Dictionary
}

func (dictionaryWordAppend) Name() string { return "Append a word" }
func (dictionaryWordAppend) Tags() TagSet { return NewTagSet(TagDictionary, TagAppend) }
func (d dictionaryWordAppend) Mutate(r Rand, input []byte) ([]byte, bool) {
	if d.dict == nil {
		return nil, false
	}
	word, ok := d.dict.GetWord(r)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(input)+len(word))
	copy(out, input)
	copy(out[len(input):], word)
	return out, true
}
