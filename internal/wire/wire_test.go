package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	var buf Buffer
	buf.U8(0xAB)
	buf.U16(0x1234)
	buf.U32(0xDEADBEEF)
	buf.U64(0x0102030405060708)
	buf.F32(1.5)
	buf.F64(-2.25)
	buf.String("hello")
	buf.String("")
	buf.F64s([]float64{0, 0.5, 1})

	d := NewDecoder(buf.Bytes())
	assert.Equal(t, uint8(0xAB), d.U8())
	assert.Equal(t, uint16(0x1234), d.U16())
	assert.Equal(t, uint32(0xDEADBEEF), d.U32())
	assert.Equal(t, uint64(0x0102030405060708), d.U64())
	assert.Equal(t, float32(1.5), d.F32())
	assert.Equal(t, -2.25, d.F64())
	assert.Equal(t, "hello", d.String())
	assert.Equal(t, "", d.String())
	assert.Equal(t, []float64{0, 0.5, 1}, d.F64s(3))
	require.NoError(t, d.Err())
	assert.Equal(t, 0, d.Remaining())
}

func TestDecoderShortBuffer(t *testing.T) {
	t.Parallel()

	d := NewDecoder([]byte{0x01, 0x02})
	_ = d.U32()
	require.ErrorIs(t, d.Err(), ErrShortBuffer)

	// The error is sticky and later reads return zero values.
	assert.Equal(t, uint8(0), d.U8())
	require.ErrorIs(t, d.Err(), ErrShortBuffer)
}

func TestDecoderStringLengthBeyondBuffer(t *testing.T) {
	t.Parallel()

	var buf Buffer
	buf.U32(1 << 30)
	d := NewDecoder(buf.Bytes())
	assert.Equal(t, "", d.String())
	require.ErrorIs(t, d.Err(), ErrShortBuffer)
}

func TestDecoderF64sCountBeyondBuffer(t *testing.T) {
	t.Parallel()

	var buf Buffer
	buf.F64(1)
	d := NewDecoder(buf.Bytes())
	assert.Nil(t, d.F64s(1<<40))
	require.ErrorIs(t, d.Err(), ErrShortBuffer)

	// Counts big enough that n*8 wraps around must still fail, not
	// allocate.
	d = NewDecoder(buf.Bytes())
	assert.Nil(t, d.F64s(1<<61))
	require.ErrorIs(t, d.Err(), ErrShortBuffer)

	d = NewDecoder(buf.Bytes())
	assert.Nil(t, d.F64s(-1))
	require.ErrorIs(t, d.Err(), ErrShortBuffer)
}
