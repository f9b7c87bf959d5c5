package bake

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/strata3d/bake/internal/wire"
)

// TimeSamplingKind discriminates the supported sampling variants.
type TimeSamplingKind uint8

const (
	// SamplingUniform places samples at Start + i*Period.
	SamplingUniform TimeSamplingKind = iota
	// SamplingCyclic repeats a pattern of per-cycle offsets every Period.
	SamplingCyclic
	// SamplingAcyclic lists the absolute time of every sample explicitly.
	SamplingAcyclic

	samplingKindCount
)

var samplingKindNames = [...]string{
	SamplingUniform: "uniform",
	SamplingCyclic:  "cyclic",
	SamplingAcyclic: "acyclic",
}

func (k TimeSamplingKind) String() string {
	if k >= samplingKindCount {
		return fmt.Sprintf("sampling(%d)", uint8(k))
	}
	return samplingKindNames[k]
}

// TimeSampling maps a property's sample indices to playback times.
//
// Sample time is a pure function of the sample index: Uniform samplings
// evaluate Start + i*Period, Cyclic samplings evaluate
// Start + (i/k)*Period + Times[i%k] for k per-cycle offsets, and Acyclic
// samplings look the time up in Times directly.
type TimeSampling struct {
	Kind TimeSamplingKind

	// Start is the time of sample 0 (uniform) or the base of the first
	// cycle (cyclic). Unused for acyclic samplings.
	Start float64

	// Period is the time between consecutive samples (uniform) or between
	// cycle starts (cyclic). Unused for acyclic samplings.
	Period float64

	// Times holds the per-cycle offsets (cyclic) or the absolute sample
	// times (acyclic). Unused for uniform samplings.
	Times []float64
}

// UniformSampling returns a sampling with a fixed period starting at start.
func UniformSampling(start, period float64) TimeSampling {
	return TimeSampling{Kind: SamplingUniform, Start: start, Period: period}
}

// IdentitySampling is the sampling every archive registers at index 0:
// uniform, one sample per unit of time, starting at zero.
func IdentitySampling() TimeSampling {
	return UniformSampling(0, 1)
}

// CyclicSampling returns a sampling repeating the given in-cycle offsets
// every period, starting at start.
func CyclicSampling(start, period float64, offsets ...float64) TimeSampling {
	return TimeSampling{Kind: SamplingCyclic, Start: start, Period: period, Times: offsets}
}

// AcyclicSampling returns a sampling with the given explicit sample times.
func AcyclicSampling(times ...float64) TimeSampling {
	return TimeSampling{Kind: SamplingAcyclic, Times: times}
}

// Validate reports whether ts is internally consistent: positive periods,
// at least one cyclic offset, and non-decreasing acyclic times.
func (ts TimeSampling) Validate() error {
	switch ts.Kind {
	case SamplingUniform:
		if ts.Period <= 0 {
			return fmt.Errorf("%w: uniform sampling needs a positive period", ErrValidation)
		}
	case SamplingCyclic:
		if ts.Period <= 0 {
			return fmt.Errorf("%w: cyclic sampling needs a positive period", ErrValidation)
		}
		if len(ts.Times) == 0 {
			return fmt.Errorf("%w: cyclic sampling needs at least one offset", ErrValidation)
		}
		for i, off := range ts.Times {
			if i > 0 && off < ts.Times[i-1] {
				return fmt.Errorf("%w: cyclic offsets must be non-decreasing", ErrValidation)
			}
			if off < 0 || off >= ts.Period {
				return fmt.Errorf("%w: cyclic offsets must lie within one period", ErrValidation)
			}
		}
	case SamplingAcyclic:
		if len(ts.Times) == 0 {
			return fmt.Errorf("%w: acyclic sampling needs at least one time", ErrValidation)
		}
		for i := 1; i < len(ts.Times); i++ {
			if ts.Times[i] < ts.Times[i-1] {
				return fmt.Errorf("%w: acyclic times must be non-decreasing", ErrValidation)
			}
		}
	default:
		return fmt.Errorf("%w: unknown sampling kind %d", ErrValidation, ts.Kind)
	}
	return nil
}

// Equal reports structural equality between ts and other.
func (ts TimeSampling) Equal(other TimeSampling) bool {
	return ts.Kind == other.Kind &&
		ts.Start == other.Start &&
		ts.Period == other.Period &&
		slices.Equal(ts.Times, other.Times)
}

// TimeOf returns the time of sample index i.
//
// Acyclic samplings clamp i to their recorded range; other kinds
// extrapolate, since their formula is total.
func (ts TimeSampling) TimeOf(i int) float64 {
	if i < 0 {
		i = 0
	}
	switch ts.Kind {
	case SamplingCyclic:
		k := len(ts.Times)
		if k == 0 {
			return ts.Start
		}
		return ts.Start + float64(i/k)*ts.Period + ts.Times[i%k]
	case SamplingAcyclic:
		if len(ts.Times) == 0 {
			return 0
		}
		if i >= len(ts.Times) {
			i = len(ts.Times) - 1
		}
		return ts.Times[i]
	default:
		return ts.Start + float64(i)*ts.Period
	}
}

// FloorIndex returns the greatest sample index whose time is at or before t,
// together with that sample's time. Queries outside the range of the first
// numSamples samples clamp to the bounds.
func (ts TimeSampling) FloorIndex(t float64, numSamples int) (int, float64) {
	if numSamples <= 0 {
		return 0, ts.TimeOf(0)
	}

	if ts.Kind == SamplingUniform {
		if t <= ts.Start {
			return 0, ts.Start
		}
		idx := int(math.Floor((t - ts.Start) / ts.Period))
		// Division can land a hair under an exact sample time; bump when
		// the next sample is at t within rounding error.
		if ts.TimeOf(idx+1)-t <= ts.Period*1e-9 {
			idx++
		}
		if idx > numSamples-1 {
			idx = numSamples - 1
		}
		return idx, ts.TimeOf(idx)
	}

	// Cyclic and acyclic sample times are non-decreasing in the index, so
	// binary search applies.
	n := sort.Search(numSamples, func(i int) bool {
		return ts.TimeOf(i) > t
	})
	idx := n - 1
	if idx < 0 {
		idx = 0
	}
	return idx, ts.TimeOf(idx)
}

// CeilIndex returns the smallest sample index whose time is at or after t,
// together with that sample's time, clamped to the recorded range.
func (ts TimeSampling) CeilIndex(t float64, numSamples int) (int, float64) {
	if numSamples <= 0 {
		return 0, ts.TimeOf(0)
	}
	idx, tm := ts.FloorIndex(t, numSamples)
	if tm >= t || idx == numSamples-1 {
		return idx, tm
	}
	return idx + 1, ts.TimeOf(idx + 1)
}

// NearIndex returns the sample index whose time is closest to t, clamped to
// the recorded range. Ties resolve to the earlier sample.
func (ts TimeSampling) NearIndex(t float64, numSamples int) (int, float64) {
	if numSamples <= 0 {
		return 0, ts.TimeOf(0)
	}
	lo, loTime := ts.FloorIndex(t, numSamples)
	if lo == numSamples-1 {
		return lo, loTime
	}
	hiTime := ts.TimeOf(lo + 1)
	if math.Abs(t-loTime) <= math.Abs(hiTime-t) {
		return lo, loTime
	}
	return lo + 1, hiTime
}

// encode appends the wire form of ts to buf.
func (ts TimeSampling) encode(buf *wire.Buffer) {
	buf.U8(uint8(ts.Kind))
	buf.F64(ts.Start)
	buf.F64(ts.Period)
	buf.U64(uint64(len(ts.Times)))
	buf.F64s(ts.Times)
}

// decodeTimeSampling reads one sampling in wire form.
func decodeTimeSampling(d *wire.Decoder) (TimeSampling, error) {
	var ts TimeSampling
	ts.Kind = TimeSamplingKind(d.U8())
	ts.Start = d.F64()
	ts.Period = d.F64()
	n := d.U64()
	ts.Times = d.F64s(int(n))
	if err := d.Err(); err != nil {
		return TimeSampling{}, fmt.Errorf("%w: truncated time sampling table", ErrFormat)
	}
	if ts.Kind >= samplingKindCount {
		return TimeSampling{}, fmt.Errorf("%w: unknown sampling kind %d", ErrFormat, ts.Kind)
	}
	return ts, nil
}

// encodeSamplingTable serializes the registry's descriptor table.
func encodeSamplingTable(samplings []TimeSampling) []byte {
	var buf wire.Buffer
	buf.U32(uint32(len(samplings)))
	for _, ts := range samplings {
		ts.encode(&buf)
	}
	return buf.Bytes()
}

// decodeSamplingTable parses the registry's descriptor table.
func decodeSamplingTable(raw []byte) ([]TimeSampling, error) {
	d := wire.NewDecoder(raw)
	n := d.U32()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: truncated time sampling table", ErrFormat)
	}
	// Each encoded sampling takes at least 25 bytes (kind, start, period,
	// acyclic time count).
	if int(n) > d.Remaining()/25 {
		return nil, fmt.Errorf("%w: time sampling table claims %d entries in %d bytes",
			ErrFormat, n, d.Remaining())
	}
	out := make([]TimeSampling, 0, n)
	for range n {
		ts, err := decodeTimeSampling(d)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, nil
}
