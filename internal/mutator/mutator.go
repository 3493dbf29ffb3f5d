// Package mutator provides the catalog of byte-level mutation operators and
// the registry that selects among them. Mutators are stateless with respect
// to input history: a Mutator only ever reads the bytes it is given and
// either returns a freshly allocated result or reports that it does not
// apply.
package mutator

import (
	"sort"
	"strings"
)

// Tag is a categorical label attached to a mutator for selective filtering
// (e.g. "byte", "bit", "dictionary").
type Tag string

// Tag values used by the built-in catalog.
const (
	TagByte       Tag = "byte"
	TagBit        Tag = "bit"
	TagShort      Tag = "short"
	TagLong       Tag = "long"
	TagLongLong   Tag = "longlong"
	TagASCII      Tag = "ascii"
	TagDictionary Tag = "dictionary"
	TagText       Tag = "text"
	TagAddSub     Tag = "addsub"
	TagReplace    Tag = "replace"
	TagInsert     Tag = "insert"
	TagRemove     Tag = "remove"
	TagDuplicate  Tag = "duplicate"
	TagCopy       Tag = "copy"
	TagSwap       Tag = "swap"
	TagAppend     Tag = "append"
)

// TagSet is an unordered set of Tags.
type TagSet map[Tag]struct{}

// NewTagSet builds a TagSet from the given tags.
func NewTagSet(tags ...Tag) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether t is a member of the set.
func (s TagSet) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

// Rand is the minimal PRNG surface mutators and the corpus mutation
// algorithm need: Next(n) returns a uniform value in [0,n), 0 when n<=1,
// and Uint32 backs rand_exp's leading-zero trick. Keeping this as a narrow
// interface rather than calling math/rand's package-level functions
// directly is what lets a test drive the engine with a scripted sequence
// of values and get a reproducible mutation out the other end.
type Rand interface {
	Next(n int) int
	Uint32() uint32
}

// Mutator is a single byte-level transformation. Mutate must never modify
// input in place: on success it returns a new slice; on failure (the
// precondition for this operator was not met) it returns (nil, false) and
// leaves input byte-for-byte unchanged.
type Mutator interface {
	Name() string
	Tags() TagSet
	Mutate(r Rand, input []byte) ([]byte, bool)
}

// Filter is a parsed whitespace-separated tag expression: each token is
// either a required tag or, with a leading '!', a negated one. A mutator
// qualifies iff every required tag is present and no negated tag is.
type Filter struct {
	required []Tag
	negated  []Tag
	any      bool
}

// ParseFilter parses a mutator filter string. An empty expr admits every
// mutator.
func ParseFilter(expr string) Filter {
	fields := strings.Fields(expr)
	if len(fields) == 0 {
		return Filter{any: true}
	}
	f := Filter{}
	for _, tok := range fields {
		if strings.HasPrefix(tok, "!") {
			f.negated = append(f.negated, Tag(tok[1:]))
		} else {
			f.required = append(f.required, Tag(tok))
		}
	}
	return f
}

// Accepts reports whether a mutator with the given tags qualifies under f.
func (f Filter) Accepts(tags TagSet) bool {
	if f.any {
		return true
	}
	for _, t := range f.required {
		if !tags.Has(t) {
			return false
		}
	}
	for _, t := range f.negated {
		if tags.Has(t) {
			return false
		}
	}
	return true
}

// Registry stores the built-in catalog in order-stable fashion: iteration
// order matches registration order, so a scripted PRNG deterministically
// selects the same operator run after run.
type Registry struct {
	mutators []Mutator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends m to the catalog.
func (r *Registry) Register(m Mutator) {
	r.mutators = append(r.mutators, m)
}

// All returns every registered mutator in registration order.
func (r *Registry) All() []Mutator {
	out := make([]Mutator, len(r.mutators))
	copy(out, r.mutators)
	return out
}

// Filtered returns the mutators accepted by f, preserving registration
// order.
func (r *Registry) Filtered(f Filter) []Mutator {
	var out []Mutator
	for _, m := range r.mutators {
		if f.Accepts(m.Tags()) {
			out = append(out, m)
		}
	}
	return out
}

// Describe renders the catalog for --list-mutators: every registered
// mutator's name and tags, with a leading '-' on any mutator the given
// filter excludes.
func (r *Registry) Describe(f Filter) []string {
	lines := make([]string, 0, len(r.mutators))
	for _, m := range r.mutators {
		indicator := " "
		if !f.Accepts(m.Tags()) {
			indicator = "-"
		}
		tags := make([]string, 0, len(m.Tags()))
		for t := range m.Tags() {
			tags = append(tags, string(t))
		}
		sort.Strings(tags)
		lines = append(lines, indicator+m.Name()+" ["+strings.Join(tags, ", ")+"]")
	}
	return lines
}
