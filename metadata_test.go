package bake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewMetadata(
		MetaSchema, "PolyMesh",
		"artist", "someone",
		"note", "",
	)
	out := ParseMetadata(m.Encode())
	assert.Equal(t, 3, out.Len())
	v, ok := out.Get(MetaSchema)
	assert.True(t, ok)
	assert.Equal(t, "PolyMesh", v)
	v, ok = out.Get("note")
	assert.True(t, ok)
	assert.Equal(t, "", v)
	assert.Equal(t, "PolyMesh", out.Schema())
}

func TestMetadataEscaping(t *testing.T) {
	t.Parallel()

	m := NewMetadata(
		"a=b", "c;d",
		"back\\slash", "x=y;z\\w",
	)
	out := ParseMetadata(m.Encode())
	v, ok := out.Get("a=b")
	assert.True(t, ok)
	assert.Equal(t, "c;d", v)
	v, ok = out.Get("back\\slash")
	assert.True(t, ok)
	assert.Equal(t, "x=y;z\\w", v)
}

func TestMetadataOrderPreserved(t *testing.T) {
	t.Parallel()

	m := NewMetadata("z", "1", "a", "2", "m", "3")
	var keys []string
	for k := range m.All() {
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)
}

func TestMetadataSetReplaces(t *testing.T) {
	t.Parallel()

	var m Metadata
	m.Set("k", "1")
	m.Set("k", "2")
	assert.Equal(t, 1, m.Len())
	v, _ := m.Get("k")
	assert.Equal(t, "2", v)
}

func TestMetadataEmpty(t *testing.T) {
	t.Parallel()

	var m Metadata
	assert.Equal(t, "", m.Encode())
	out := ParseMetadata("")
	assert.Equal(t, 0, out.Len())
	assert.False(t, out.Has("anything"))
}
