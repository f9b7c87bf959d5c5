package bake

import (
	"iter"
	"strings"
)

// Reserved metadata keys.
const (
	// MetaSchema identifies the schema convention of an object (for example
	// "PolyMesh" or "Xform").
	MetaSchema = "schema"

	// MetaWrittenBy records the name of the library that wrote the archive.
	MetaWrittenBy = "writtenBy"

	// MetaLibraryVersion records the version of the library that wrote the
	// archive.
	MetaLibraryVersion = "libraryVersion"

	// MetaInterpretation hints how a property's elements should be read
	// (for example "point", "normal", "vector").
	MetaInterpretation = "interpretation"
)

// Metadata is an ordered string map attached to objects and properties.
//
// Insertion order is preserved on disk. The zero value is an empty map.
type Metadata struct {
	entries []metaEntry
}

type metaEntry struct {
	key, value string
}

// NewMetadata returns metadata holding the given alternating key, value pairs.
func NewMetadata(pairs ...string) Metadata {
	var m Metadata
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// Set stores value under key, replacing any previous value.
func (m *Metadata) Set(key, value string) {
	for i := range m.entries {
		if m.entries[i].key == key {
			m.entries[i].value = value
			return
		}
	}
	m.entries = append(m.entries, metaEntry{key: key, value: value})
}

// Get returns the value stored under key.
func (m Metadata) Get(key string) (string, bool) {
	for _, e := range m.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m Metadata) Len() int { return len(m.entries) }

// All iterates over entries in insertion order.
func (m Metadata) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, e := range m.entries {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// Clone returns an independent copy of m.
func (m Metadata) Clone() Metadata {
	return Metadata{entries: append([]metaEntry(nil), m.entries...)}
}

// Schema returns the value of the reserved schema key.
func (m Metadata) Schema() string {
	v, _ := m.Get(MetaSchema)
	return v
}

// Encode serializes the metadata as escaped "key=value;key=value" text.
func (m Metadata) Encode() string {
	var sb strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			sb.WriteByte(';')
		}
		escapeMeta(&sb, e.key)
		sb.WriteByte('=')
		escapeMeta(&sb, e.value)
	}
	return sb.String()
}

// ParseMetadata decodes metadata from its encoded text form. Entries without
// a key are dropped.
func ParseMetadata(s string) Metadata {
	var m Metadata
	if s == "" {
		return m
	}
	for _, part := range splitMeta(s, ';') {
		kv := splitMeta(part, '=')
		if len(kv) < 2 || kv[0] == "" {
			continue
		}
		// A literal '=' inside a value stays escaped, so kv has exactly
		// two parts for well-formed input.
		m.Set(unescapeMeta(kv[0]), unescapeMeta(kv[1]))
	}
	return m
}

func escapeMeta(sb *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '=', ';', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
}

func unescapeMeta(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// splitMeta splits on sep, honoring backslash escapes.
func splitMeta(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
