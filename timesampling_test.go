package bake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata3d/bake/internal/wire"
)

func TestUniformSampling(t *testing.T) {
	t.Parallel()

	ts := UniformSampling(1.0, 1.0/24)
	require.NoError(t, ts.Validate())

	assert.Equal(t, 1.0, ts.TimeOf(0))
	assert.InDelta(t, 1.0+10.0/24, ts.TimeOf(10), 1e-12)

	// Inverse law: floor of a sample's own time is the sample.
	for i := range 100 {
		got, at := ts.FloorIndex(ts.TimeOf(i), 100)
		assert.Equal(t, i, got)
		assert.Equal(t, ts.TimeOf(i), at)
	}

	// Between samples floor and ceil straddle, near picks the closer one.
	mid := ts.TimeOf(3) + 0.3/24
	fi, _ := ts.FloorIndex(mid, 100)
	ci, _ := ts.CeilIndex(mid, 100)
	ni, _ := ts.NearIndex(mid, 100)
	assert.Equal(t, 3, fi)
	assert.Equal(t, 4, ci)
	assert.Equal(t, 3, ni)

	// Out of range clamps.
	fi, _ = ts.FloorIndex(-100, 100)
	assert.Equal(t, 0, fi)
	ci, _ = ts.CeilIndex(1e9, 100)
	assert.Equal(t, 99, ci)
}

func TestCyclicSampling(t *testing.T) {
	t.Parallel()

	// Two samples per cycle of length 1: a shutter open/close pattern.
	ts := CyclicSampling(0, 1.0, 0.0, 0.5)
	require.NoError(t, ts.Validate())

	assert.Equal(t, 0.0, ts.TimeOf(0))
	assert.Equal(t, 0.5, ts.TimeOf(1))
	assert.Equal(t, 1.0, ts.TimeOf(2))
	assert.Equal(t, 1.5, ts.TimeOf(3))
	assert.Equal(t, 2.0, ts.TimeOf(4))

	for i := range 20 {
		got, _ := ts.FloorIndex(ts.TimeOf(i), 20)
		assert.Equal(t, i, got)
	}

	ni, _ := ts.NearIndex(0.6, 20)
	assert.Equal(t, 1, ni)
}

func TestAcyclicSampling(t *testing.T) {
	t.Parallel()

	times := []float64{0, 0.1, 0.15, 1.0, 2.5}
	ts := AcyclicSampling(times...)
	require.NoError(t, ts.Validate())

	for i, want := range times {
		assert.Equal(t, want, ts.TimeOf(i))
		got, _ := ts.FloorIndex(want, len(times))
		assert.Equal(t, i, got)
	}

	// Indices beyond the table clamp to the last time.
	assert.Equal(t, 2.5, ts.TimeOf(100))

	fi, _ := ts.FloorIndex(0.12, len(times))
	assert.Equal(t, 1, fi)
	ci, _ := ts.CeilIndex(0.12, len(times))
	assert.Equal(t, 2, ci)
}

func TestNearIndexTieBreaksEarlier(t *testing.T) {
	t.Parallel()

	ts := UniformSampling(0, 1)
	ni, _ := ts.NearIndex(0.5, 10)
	assert.Equal(t, 0, ni)
}

func TestTimeSamplingValidate(t *testing.T) {
	t.Parallel()

	assert.Error(t, UniformSampling(0, 0).Validate())
	assert.Error(t, UniformSampling(0, -1).Validate())
	assert.Error(t, CyclicSampling(0, 1, 0.2, 0.1).Validate())
	assert.Error(t, CyclicSampling(0, 1, 0.0, 1.5).Validate())
	assert.Error(t, AcyclicSampling(1, 0).Validate())
	assert.Error(t, AcyclicSampling().Validate())
	assert.NoError(t, IdentitySampling().Validate())
}

func TestTimeSamplingEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, UniformSampling(0, 1).Equal(UniformSampling(0, 1)))
	assert.False(t, UniformSampling(0, 1).Equal(UniformSampling(0, 2)))
	assert.True(t, CyclicSampling(0, 1, 0, 0.5).Equal(CyclicSampling(0, 1, 0, 0.5)))
	assert.False(t, CyclicSampling(0, 1, 0, 0.5).Equal(CyclicSampling(0, 1, 0, 0.25)))
	assert.False(t, UniformSampling(0, 1).Equal(AcyclicSampling(0, 1)))
}

func TestSamplingTableRoundTrip(t *testing.T) {
	t.Parallel()

	in := []TimeSampling{
		IdentitySampling(),
		UniformSampling(1, 1.0/24),
		CyclicSampling(0, 1, 0, 0.5),
		AcyclicSampling(0, 0.4, 2),
	}
	out, err := decodeSamplingTable(encodeSamplingTable(in))
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.True(t, in[i].Equal(out[i]), "sampling %d", i)
	}
}

func TestSamplingTableForgedCount(t *testing.T) {
	t.Parallel()

	raw := encodeSamplingTable([]TimeSampling{IdentitySampling()})
	raw[0] = 0xff
	raw[1] = 0xff
	raw[2] = 0xff
	_, err := decodeSamplingTable(raw)
	require.ErrorIs(t, err, ErrFormat)

	// An acyclic sampling claiming more times than the payload holds
	// must fail before allocating.
	var buf wire.Buffer
	buf.U32(1)
	buf.U8(uint8(SamplingAcyclic))
	buf.F64(0)
	buf.F64(0)
	buf.U64(1 << 62)
	_, err = decodeSamplingTable(buf.Bytes())
	require.ErrorIs(t, err, ErrFormat)
}
