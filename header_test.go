package bake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata3d/bake/internal/wire"
)

func TestPropertyHeadersRoundTrip(t *testing.T) {
	t.Parallel()

	headers := []PropertyHeader{
		{Name: "P", Kind: KindArray, DataType: V3fType, Scope: ScopeVertex},
		{Name: ".core", Kind: KindScalar, DataType: DataType{Pod: PodFloat64, Extent: 16}, Scope: ScopeConstant, TimeSampling: 1},
		{Name: ".geom", Kind: KindCompound, Metadata: NewMetadata("schema", "PolyMesh")},
	}
	got, err := decodePropertyHeaders(encodePropertyHeaders(headers))
	require.NoError(t, err)
	require.Len(t, got, len(headers))
	for i := range headers {
		assert.Equal(t, headers[i].Name, got[i].Name)
		assert.Equal(t, headers[i].Kind, got[i].Kind)
		assert.Equal(t, headers[i].DataType, got[i].DataType)
		assert.Equal(t, headers[i].Scope, got[i].Scope)
		assert.Equal(t, headers[i].TimeSampling, got[i].TimeSampling)
	}
}

// A corrupted count prefix must fail cleanly before any allocation sized
// from it.
func TestPropertyHeadersForgedCount(t *testing.T) {
	t.Parallel()

	var buf wire.Buffer
	buf.U32(0xbfffffff)
	buf.String("P")
	_, err := decodePropertyHeaders(buf.Bytes())
	require.ErrorIs(t, err, ErrFormat)
}

func TestObjectHeadersForgedCount(t *testing.T) {
	t.Parallel()

	var buf wire.Buffer
	buf.U32(0xbfffffff)
	buf.String("child")
	buf.String("")
	_, err := decodeObjectHeaders(buf.Bytes())
	require.ErrorIs(t, err, ErrFormat)
}

func TestPropertyHeadersTruncated(t *testing.T) {
	t.Parallel()

	raw := encodePropertyHeaders([]PropertyHeader{
		{Name: "P", Kind: KindArray, DataType: V3fType, Scope: ScopeVertex},
	})
	_, err := decodePropertyHeaders(raw[:len(raw)-3])
	require.ErrorIs(t, err, ErrFormat)

	_, err = decodePropertyHeaders([]byte{1, 0})
	require.ErrorIs(t, err, ErrFormat)
}
