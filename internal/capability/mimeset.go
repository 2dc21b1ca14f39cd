package capability

import (
	"sort"
	"strings"
)

// IntegrationID identifies one office-editing integration (e.g. "richdocuments").
type IntegrationID string

// MimeSet is an immutable, deduplicated set of MIME types.
// The zero value is an empty set.
type MimeSet struct {
	m map[string]struct{}
}

// NewMimeSet builds a set from mimes. Entries are trimmed and lowercased;
// empty entries are dropped.
func NewMimeSet(mimes ...string) MimeSet {
	s := MimeSet{m: make(map[string]struct{}, len(mimes))}
	for _, mime := range mimes {
		if n := normalizeMime(mime); n != "" {
			s.m[n] = struct{}{}
		}
	}
	return s
}

// Has reports whether mime is in the set.
func (s MimeSet) Has(mime string) bool {
	_, ok := s.m[normalizeMime(mime)]
	return ok
}

// Len returns the number of MIME types.
func (s MimeSet) Len() int {
	return len(s.m)
}

// Empty reports whether the set has no members.
func (s MimeSet) Empty() bool {
	return len(s.m) == 0
}

// Union returns a new set containing the members of both sets.
func (s MimeSet) Union(o MimeSet) MimeSet {
	out := MimeSet{m: make(map[string]struct{}, len(s.m)+len(o.m))}
	for k := range s.m {
		out.m[k] = struct{}{}
	}
	for k := range o.m {
		out.m[k] = struct{}{}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s MimeSet) Sorted() []string {
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeMime(mime string) string {
	return strings.ToLower(strings.TrimSpace(mime))
}
