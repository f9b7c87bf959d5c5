// Package wire implements the little-endian primitives shared by the
// container layer and the property system: fixed-width integers and floats,
// length-prefixed strings, and packed element slices.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortBuffer is returned when a decode runs past the end of its input.
var ErrShortBuffer = errors.New("wire: short buffer")

// Buffer accumulates encoded fields in write order.
//
// The zero value is ready to use.
type Buffer struct {
	b []byte
}

// Bytes returns the encoded bytes. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.b }

// Len returns the number of encoded bytes.
func (b *Buffer) Len() int { return len(b.b) }

// Reset truncates the buffer for reuse.
func (b *Buffer) Reset() { b.b = b.b[:0] }

func (b *Buffer) U8(v uint8)   { b.b = append(b.b, v) }
func (b *Buffer) U16(v uint16) { b.b = binary.LittleEndian.AppendUint16(b.b, v) }
func (b *Buffer) U32(v uint32) { b.b = binary.LittleEndian.AppendUint32(b.b, v) }
func (b *Buffer) U64(v uint64) { b.b = binary.LittleEndian.AppendUint64(b.b, v) }
func (b *Buffer) F64(v float64) {
	b.b = binary.LittleEndian.AppendUint64(b.b, math.Float64bits(v))
}
func (b *Buffer) F32(v float32) {
	b.b = binary.LittleEndian.AppendUint32(b.b, math.Float32bits(v))
}

// Raw appends v without a length prefix.
func (b *Buffer) Raw(v []byte) { b.b = append(b.b, v...) }

// String appends a u32 length prefix followed by the UTF-8 bytes of v.
func (b *Buffer) String(v string) {
	b.U32(uint32(len(v)))
	b.b = append(b.b, v...)
}

// F64s appends each element of v without a count prefix.
func (b *Buffer) F64s(v []float64) {
	for _, f := range v {
		b.F64(f)
	}
}

// Decoder reads fields from a byte slice in write order.
//
// Errors are sticky: after the first short read every subsequent call
// returns a zero value, and Err reports the failure. Callers check Err
// once after decoding a record.
type Decoder struct {
	b   []byte
	off int
	err error
}

// NewDecoder returns a Decoder over b. The decoder aliases b.
func NewDecoder(b []byte) *Decoder { return &Decoder{b: b} }

// Err returns the first decode error, or nil.
func (d *Decoder) Err() error { return d.err }

// Remaining returns the number of undecoded bytes.
func (d *Decoder) Remaining() int { return len(d.b) - d.off }

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.b)-d.off < n {
		d.err = ErrShortBuffer
		return nil
	}
	v := d.b[d.off : d.off+n]
	d.off += n
	return v
}

func (d *Decoder) U8() uint8 {
	v := d.take(1)
	if v == nil {
		return 0
	}
	return v[0]
}

func (d *Decoder) U16() uint16 {
	v := d.take(2)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(v)
}

func (d *Decoder) U32() uint32 {
	v := d.take(4)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(v)
}

func (d *Decoder) U64() uint64 {
	v := d.take(8)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(v)
}

func (d *Decoder) F32() float32 {
	return math.Float32frombits(d.U32())
}

func (d *Decoder) F64() float64 {
	return math.Float64frombits(d.U64())
}

// Raw returns the next n bytes. The slice aliases the input.
func (d *Decoder) Raw(n int) []byte { return d.take(n) }

// String decodes a u32 length prefix followed by that many UTF-8 bytes.
func (d *Decoder) String() string {
	n := d.U32()
	v := d.take(int(n))
	if v == nil {
		return ""
	}
	return string(v)
}

// F64s decodes n consecutive float64 values.
func (d *Decoder) F64s(n int) []float64 {
	if d.err != nil {
		return nil
	}
	// Bound n by the bytes left before allocating; n*8 can overflow int
	// for a hostile count.
	if n < 0 || n > d.Remaining()/8 {
		d.err = ErrShortBuffer
		return nil
	}
	out := make([]float64, 0, n)
	for range n {
		out = append(out, d.F64())
	}
	return out
}
