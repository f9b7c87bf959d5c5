package bake

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/strata3d/bake/internal/wire"
)

// Sample holds the decoded value(s) of a property at one sample index.
//
// A sample stores count elements of the property's data type as a flat
// packed value sequence; accessors decode it into typed slices. Accessing a
// sample with the wrong typed accessor returns ErrTypeMismatch.
type Sample struct {
	dt    DataType
	count int
	raw   []byte
}

// DataType returns the element type of the sample.
func (s *Sample) DataType() DataType { return s.dt }

// Count returns the number of elements in the sample. For an element extent
// greater than one, each element spans extent plain values.
func (s *Sample) Count() int { return s.count }

// Values returns the number of plain values, count times extent.
func (s *Sample) Values() int { return s.count * s.dt.Values() }

func (s *Sample) check(pod Pod) error {
	if s.dt.Pod != pod {
		return fmt.Errorf("%w: sample holds %s, not %s", ErrTypeMismatch, s.dt, pod)
	}
	return nil
}

// Bools decodes a bool sample.
func (s *Sample) Bools() ([]bool, error) {
	if err := s.check(PodBool); err != nil {
		return nil, err
	}
	out := make([]bool, s.Values())
	for i := range out {
		out[i] = s.raw[i] != 0
	}
	return out, nil
}

// Int8s decodes an int8 sample.
func (s *Sample) Int8s() ([]int8, error) {
	if err := s.check(PodInt8); err != nil {
		return nil, err
	}
	out := make([]int8, s.Values())
	for i := range out {
		out[i] = int8(s.raw[i])
	}
	return out, nil
}

// Uint8s decodes a uint8 sample.
func (s *Sample) Uint8s() ([]uint8, error) {
	if err := s.check(PodUint8); err != nil {
		return nil, err
	}
	out := make([]uint8, s.Values())
	copy(out, s.raw)
	return out, nil
}

// Int16s decodes an int16 sample.
func (s *Sample) Int16s() ([]int16, error) {
	if err := s.check(PodInt16); err != nil {
		return nil, err
	}
	out := make([]int16, s.Values())
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(s.raw[i*2:]))
	}
	return out, nil
}

// Uint16s decodes a uint16 sample.
func (s *Sample) Uint16s() ([]uint16, error) {
	if err := s.check(PodUint16); err != nil {
		return nil, err
	}
	out := make([]uint16, s.Values())
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(s.raw[i*2:])
	}
	return out, nil
}

// Int32s decodes an int32 sample.
func (s *Sample) Int32s() ([]int32, error) {
	if err := s.check(PodInt32); err != nil {
		return nil, err
	}
	out := make([]int32, s.Values())
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(s.raw[i*4:]))
	}
	return out, nil
}

// Uint32s decodes a uint32 sample.
func (s *Sample) Uint32s() ([]uint32, error) {
	if err := s.check(PodUint32); err != nil {
		return nil, err
	}
	out := make([]uint32, s.Values())
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(s.raw[i*4:])
	}
	return out, nil
}

// Int64s decodes an int64 sample.
func (s *Sample) Int64s() ([]int64, error) {
	if err := s.check(PodInt64); err != nil {
		return nil, err
	}
	out := make([]int64, s.Values())
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(s.raw[i*8:]))
	}
	return out, nil
}

// Uint64s decodes a uint64 sample.
func (s *Sample) Uint64s() ([]uint64, error) {
	if err := s.check(PodUint64); err != nil {
		return nil, err
	}
	out := make([]uint64, s.Values())
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(s.raw[i*8:])
	}
	return out, nil
}

// Float16s decodes a float16 sample, widening each value to float32.
func (s *Sample) Float16s() ([]float32, error) {
	if err := s.check(PodFloat16); err != nil {
		return nil, err
	}
	out := make([]float32, s.Values())
	for i := range out {
		out[i] = float16to32(binary.LittleEndian.Uint16(s.raw[i*2:]))
	}
	return out, nil
}

// Float32s decodes a float32 sample.
func (s *Sample) Float32s() ([]float32, error) {
	if err := s.check(PodFloat32); err != nil {
		return nil, err
	}
	out := make([]float32, s.Values())
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(s.raw[i*4:]))
	}
	return out, nil
}

// Float64s decodes a float64 sample.
func (s *Sample) Float64s() ([]float64, error) {
	if err := s.check(PodFloat64); err != nil {
		return nil, err
	}
	out := make([]float64, s.Values())
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(s.raw[i*8:]))
	}
	return out, nil
}

// Strings decodes a string sample.
func (s *Sample) Strings() ([]string, error) {
	if err := s.check(PodString); err != nil {
		return nil, err
	}
	d := wire.NewDecoder(s.raw)
	out := make([]string, 0, s.count)
	for range s.count {
		out = append(out, d.String())
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: truncated string sample", ErrFormat)
	}
	return out, nil
}

// encodeSample packs v into a sample payload for the given type: a u64
// element count followed by the packed values.
//
// v must be a slice of the plain Go type matching dt.Pod whose length is a
// multiple of the extent; for extent 1 a single plain value is also
// accepted.
func encodeSample(dt DataType, v any) ([]byte, error) {
	var buf wire.Buffer
	switch dt.Pod {
	case PodBool:
		vs, err := asSlice[bool](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs) / dt.Values()))
		for _, b := range vs {
			if b {
				buf.U8(1)
			} else {
				buf.U8(0)
			}
		}
	case PodInt8:
		vs, err := asSlice[int8](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs) / dt.Values()))
		for _, x := range vs {
			buf.U8(uint8(x))
		}
	case PodUint8:
		vs, err := asSlice[uint8](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs) / dt.Values()))
		buf.Raw(vs)
	case PodInt16:
		vs, err := asSlice[int16](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs) / dt.Values()))
		for _, x := range vs {
			buf.U16(uint16(x))
		}
	case PodUint16, PodFloat16:
		vs, err := asSlice[uint16](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs) / dt.Values()))
		for _, x := range vs {
			buf.U16(x)
		}
	case PodInt32:
		vs, err := asSlice[int32](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs) / dt.Values()))
		for _, x := range vs {
			buf.U32(uint32(x))
		}
	case PodUint32:
		vs, err := asSlice[uint32](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs) / dt.Values()))
		for _, x := range vs {
			buf.U32(x)
		}
	case PodInt64:
		vs, err := asSlice[int64](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs) / dt.Values()))
		for _, x := range vs {
			buf.U64(uint64(x))
		}
	case PodUint64:
		vs, err := asSlice[uint64](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs) / dt.Values()))
		for _, x := range vs {
			buf.U64(x)
		}
	case PodFloat32:
		vs, err := asSlice[float32](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs) / dt.Values()))
		for _, x := range vs {
			buf.F32(x)
		}
	case PodFloat64:
		vs, err := asSlice[float64](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs) / dt.Values()))
		for _, x := range vs {
			buf.F64(x)
		}
	case PodString:
		vs, err := asSlice[string](dt, v)
		if err != nil {
			return nil, err
		}
		buf.U64(uint64(len(vs)))
		for _, x := range vs {
			buf.String(x)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported element type %s", ErrTypeMismatch, dt)
	}
	return buf.Bytes(), nil
}

// asSlice coerces v to []T, accepting a single T when the extent is 1, and
// checks the length against the extent.
func asSlice[T any](dt DataType, v any) ([]T, error) {
	var vs []T
	switch x := v.(type) {
	case []T:
		vs = x
	case T:
		if dt.Extent != 1 {
			return nil, fmt.Errorf("%w: %s sample needs %d values per element", ErrTypeMismatch, dt, dt.Extent)
		}
		vs = []T{x}
	default:
		return nil, fmt.Errorf("%w: cannot use %T as %s sample", ErrTypeMismatch, v, dt)
	}
	if dt.Values() > 0 && len(vs)%dt.Values() != 0 {
		return nil, fmt.Errorf("%w: %d values do not divide into %s elements", ErrTypeMismatch, len(vs), dt)
	}
	return vs, nil
}

// decodeSample parses a sample payload written by encodeSample.
func decodeSample(dt DataType, payload []byte) (*Sample, error) {
	if len(payload) == 0 {
		// Empty data marker: a sample with zero elements.
		return &Sample{dt: dt}, nil
	}
	if len(payload) < 8 {
		return nil, fmt.Errorf("%w: truncated sample payload", ErrFormat)
	}
	count := binary.LittleEndian.Uint64(payload)
	raw := payload[8:]

	if count > uint64(math.MaxInt32) {
		return nil, fmt.Errorf("%w: sample claims %d elements", ErrFormat, count)
	}
	if size := dt.Pod.ByteSize(); size > 0 {
		want := count * uint64(dt.Values()) * uint64(size)
		if uint64(len(raw)) != want {
			return nil, fmt.Errorf("%w: sample payload holds %d bytes, want %d for %d %s elements",
				ErrFormat, len(raw), want, count, dt)
		}
	} else if count*uint64(dt.Values()) > uint64(len(raw))/4 {
		// Every encoded string carries a 4-byte length prefix, so the
		// count is bounded by the payload size.
		return nil, fmt.Errorf("%w: sample payload holds %d bytes, too short for %d string elements",
			ErrFormat, len(raw), count)
	}
	return &Sample{dt: dt, count: int(count), raw: raw}, nil
}

// float16to32 widens an IEEE 754 binary16 value to float32.
func float16to32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h & 0x3ff)

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: normalize.
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		return math.Float32frombits(sign | e<<23 | frac<<13)
	case 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | frac<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | frac<<13)
	}
}
