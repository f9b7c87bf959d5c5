package bake

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func archivePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.bake")
}

func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	path := archivePath(t)
	w, err := Create(path)
	require.NoError(t, err)
	w.SetMetadata("scene", "kitchen")

	tsIndex, err := w.AddTimeSampling(UniformSampling(1, 1.0/24))
	require.NoError(t, err)

	child, err := w.Root().CreateChild("geo", NewMetadata("note", "group"))
	require.NoError(t, err)
	grand, err := child.CreateChild("cube", Metadata{})
	require.NoError(t, err)

	positions, err := grand.Properties().CreateArray("P", V3fType, ScopeVertex, tsIndex, Metadata{})
	require.NoError(t, err)
	require.NoError(t, positions.AddSample([]float32{0, 0, 0, 1, 1, 1}))
	require.NoError(t, positions.AddSample([]float32{0, 0, 0, 2, 2, 2}))

	mass, err := grand.Properties().CreateScalar("mass", Float64Type, ScopeConstant, 0, Metadata{})
	require.NoError(t, err)
	require.NoError(t, mass.AddSample(12.5))

	user, err := grand.Properties().CreateCompound("user", Metadata{})
	require.NoError(t, err)
	tag, err := user.CreateScalar("tag", StringType, ScopeConstant, 0, Metadata{})
	require.NoError(t, err)
	require.NoError(t, tag.AddSample("hero"))

	require.NoError(t, w.Close())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	meta, err := a.Metadata()
	require.NoError(t, err)
	v, _ := meta.Get("scene")
	assert.Equal(t, "kitchen", v)
	v, _ = meta.Get(MetaWrittenBy)
	assert.NotEmpty(t, v)

	n, err := a.NumTimeSamplings()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	ts, err := a.TimeSamplingAt(tsIndex)
	require.NoError(t, err)
	assert.True(t, ts.Equal(UniformSampling(1, 1.0/24)))

	root, err := a.Root()
	require.NoError(t, err)
	assert.Equal(t, "/", root.FullName())

	geo, err := root.ChildByName("geo")
	require.NoError(t, err)
	assert.Equal(t, "/geo", geo.FullName())
	v, _ = geo.Metadata().Get("note")
	assert.Equal(t, "group", v)

	cube, err := geo.ChildByName("cube")
	require.NoError(t, err)
	assert.Equal(t, "/geo/cube", cube.FullName())

	props, err := cube.Properties()
	require.NoError(t, err)
	assert.Equal(t, 3, props.Len())

	p, err := props.Array("P")
	require.NoError(t, err)
	assert.Equal(t, ScopeVertex, p.Header().Scope)
	count, err := p.SampleCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	s, err := p.Sample(1)
	require.NoError(t, err)
	vals, err := s.Float32s()
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 2, 2, 2}, vals)

	m, err := props.Scalar("mass")
	require.NoError(t, err)
	s, err = m.Sample(0)
	require.NoError(t, err)
	fv, err := s.Float64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{12.5}, fv)

	uc, err := props.Compound("user")
	require.NoError(t, err)
	inner, err := uc.Properties()
	require.NoError(t, err)
	tp, err := inner.Scalar("tag")
	require.NoError(t, err)
	s, err = tp.Sample(0)
	require.NoError(t, err)
	sv, err := s.Strings()
	require.NoError(t, err)
	assert.Equal(t, []string{"hero"}, sv)

	// Kind confusion is a type mismatch, not a lookup failure.
	_, err = props.Array("mass")
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, err = props.Scalar("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveDedupIdempotence(t *testing.T) {
	t.Parallel()

	const numSamples = 240

	path := archivePath(t)
	w, err := Create(path)
	require.NoError(t, err)

	p, err := w.Root().Properties().CreateArray("P", V3fType, ScopeVertex, 0, Metadata{})
	require.NoError(t, err)
	payload := []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}
	for range numSamples {
		require.NoError(t, p.AddSample(payload))
	}

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.DedupedBlocks, numSamples-1)
	require.NoError(t, w.Close())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	root, err := a.Root()
	require.NoError(t, err)
	props, err := root.Properties()
	require.NoError(t, err)
	ap, err := props.Array("P")
	require.NoError(t, err)

	count, err := ap.SampleCount()
	require.NoError(t, err)
	assert.Equal(t, numSamples, count)

	constant, err := ap.IsConstant()
	require.NoError(t, err)
	assert.True(t, constant, "identical samples should share one block")

	s, err := ap.Sample(numSamples - 1)
	require.NoError(t, err)
	vals, err := s.Float32s()
	require.NoError(t, err)
	assert.Equal(t, payload, vals)
}

func TestArchiveSampleAtTime(t *testing.T) {
	t.Parallel()

	path := archivePath(t)
	w, err := Create(path)
	require.NoError(t, err)

	tsIndex, err := w.AddTimeSampling(UniformSampling(0, 0.5))
	require.NoError(t, err)
	p, err := w.Root().Properties().CreateScalar("value", Int32Type, ScopeConstant, tsIndex, Metadata{})
	require.NoError(t, err)
	for i := int32(0); i < 4; i++ {
		require.NoError(t, p.AddSample(i*10))
	}
	require.NoError(t, w.Close())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	root, err := a.Root()
	require.NoError(t, err)
	props, err := root.Properties()
	require.NoError(t, err)
	sp, err := props.Scalar("value")
	require.NoError(t, err)

	// 1.2 falls between samples 2 (t=1.0) and 3 (t=1.5); near picks 2.
	s, err := sp.SampleAtTime(1.2)
	require.NoError(t, err)
	vals, err := s.Int32s()
	require.NoError(t, err)
	assert.Equal(t, []int32{20}, vals)
}

func TestArchiveTimeSamplingRegistryDedup(t *testing.T) {
	t.Parallel()

	w, err := Create(archivePath(t))
	require.NoError(t, err)
	defer w.Abort()

	// Index 0 is the identity sampling.
	i0, err := w.AddTimeSampling(IdentitySampling())
	require.NoError(t, err)
	assert.Equal(t, uint32(0), i0)

	i1, err := w.AddTimeSampling(UniformSampling(1, 1.0/24))
	require.NoError(t, err)
	i2, err := w.AddTimeSampling(UniformSampling(1, 1.0/24))
	require.NoError(t, err)
	assert.Equal(t, i1, i2)
	assert.Equal(t, 2, w.NumTimeSamplings())

	_, err = w.AddTimeSampling(UniformSampling(0, -1))
	require.ErrorIs(t, err, ErrValidation)
}

func TestArchiveWriterValidation(t *testing.T) {
	t.Parallel()

	w, err := Create(archivePath(t))
	require.NoError(t, err)
	defer w.Abort()

	_, err = w.Root().CreateChild("", Metadata{})
	require.ErrorIs(t, err, ErrValidation)
	_, err = w.Root().CreateChild("a/b", Metadata{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = w.Root().CreateChild("dup", Metadata{})
	require.NoError(t, err)
	_, err = w.Root().CreateChild("dup", Metadata{})
	require.ErrorIs(t, err, ErrExists)

	props := w.Root().Properties()
	_, err = props.CreateScalar("p", Float32Type, ScopeConstant, 99, Metadata{})
	require.ErrorIs(t, err, ErrValidation)
	_, err = props.CreateScalar("p", DataType{Pod: Pod(200), Extent: 1}, ScopeConstant, 0, Metadata{})
	require.ErrorIs(t, err, ErrTypeMismatch)

	sp, err := props.CreateScalar("p", Float32Type, ScopeConstant, 0, Metadata{})
	require.NoError(t, err)
	_, err = props.CreateArray("p", Float32Type, ScopeConstant, 0, Metadata{})
	require.ErrorIs(t, err, ErrExists)

	// A scalar sample is exactly one element.
	require.ErrorIs(t, sp.AddSample([]float32{1, 2}), ErrTypeMismatch)
	require.ErrorIs(t, sp.AddSample([]int32{1}), ErrTypeMismatch)
	require.NoError(t, sp.AddSample(float32(1)))
}

func TestArchiveWriteAfterClose(t *testing.T) {
	t.Parallel()

	path := archivePath(t)
	w, err := Create(path)
	require.NoError(t, err)
	p, err := w.Root().Properties().CreateScalar("v", Int32Type, ScopeConstant, 0, Metadata{})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.ErrorIs(t, p.AddSample(int32(1)), ErrFrozen)
	_, err = w.Root().CreateChild("late", Metadata{})
	require.ErrorIs(t, err, ErrFrozen)
}

func TestArchiveAbort(t *testing.T) {
	t.Parallel()

	path := archivePath(t)
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestArchiveRejectsUnclosed(t *testing.T) {
	t.Parallel()

	path := archivePath(t)
	w, err := Create(path)
	require.NoError(t, err)
	_, err = w.Root().CreateChild("geo", Metadata{})
	require.NoError(t, err)
	// Never closed: the file is not frozen.

	_, err = Open(path)
	require.ErrorIs(t, err, ErrFormat)
	require.NoError(t, w.Abort())
}

func TestArchiveEmpty(t *testing.T) {
	t.Parallel()

	path := archivePath(t)
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	root, err := a.Root()
	require.NoError(t, err)
	n, err := root.NumChildren()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	props, err := root.Properties()
	require.NoError(t, err)
	assert.Equal(t, 0, props.Len())
	require.NoError(t, a.Verify(context.Background()))
}

func TestArchiveVerify(t *testing.T) {
	t.Parallel()

	path := archivePath(t)
	w, err := Create(path)
	require.NoError(t, err)
	for _, name := range []string{"a", "b", "c"} {
		child, err := w.Root().CreateChild(name, Metadata{})
		require.NoError(t, err)
		p, err := child.Properties().CreateArray("data", Float64Type, ScopeConstant, 0, Metadata{})
		require.NoError(t, err)
		require.NoError(t, p.AddSample([]float64{1, 2, 3}))
	}
	require.NoError(t, w.Close())

	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.Verify(context.Background()))
	require.NoError(t, a.Close())

	// Flip bytes in the middle of the file and verify again.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for i := len(data) / 2; i < len(data)/2+8 && i < len(data); i++ {
		data[i] ^= 0xFF
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	a, err = Open(path)
	if err != nil {
		return // corruption already detected at open
	}
	defer a.Close()
	require.Error(t, a.Verify(context.Background()))
}

func TestArchiveObjectLookupErrors(t *testing.T) {
	t.Parallel()

	path := archivePath(t)
	w, err := Create(path)
	require.NoError(t, err)
	_, err = w.Root().CreateChild("only", Metadata{})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	root, err := a.Root()
	require.NoError(t, err)
	_, err = root.ChildByName("nope")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = root.Child(5)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	only, err := root.ChildByName("only")
	require.NoError(t, err)
	props, err := only.Properties()
	require.NoError(t, err)
	_, err = props.PropertyAt(3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestArchiveSampleIndexOutOfRange(t *testing.T) {
	t.Parallel()

	path := archivePath(t)
	w, err := Create(path)
	require.NoError(t, err)
	p, err := w.Root().Properties().CreateScalar("v", Int32Type, ScopeConstant, 0, Metadata{})
	require.NoError(t, err)
	require.NoError(t, p.AddSample(int32(7)))
	require.NoError(t, w.Close())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	root, err := a.Root()
	require.NoError(t, err)
	props, err := root.Properties()
	require.NoError(t, err)
	sp, err := props.Scalar("v")
	require.NoError(t, err)
	_, err = sp.Sample(1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = sp.Sample(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestArchiveConcurrentReads(t *testing.T) {
	t.Parallel()

	path := archivePath(t)
	w, err := Create(path)
	require.NoError(t, err)
	for _, name := range []string{"a", "b", "c", "d"} {
		child, err := w.Root().CreateChild(name, Metadata{})
		require.NoError(t, err)
		p, err := child.Properties().CreateArray("data", Int32Type, ScopeConstant, 0, Metadata{})
		require.NoError(t, err)
		require.NoError(t, p.AddSample([]int32{1, 2, 3, 4}))
	}
	require.NoError(t, w.Close())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	done := make(chan error, 8)
	for range 8 {
		go func() {
			root, err := a.Root()
			if err != nil {
				done <- err
				return
			}
			children, err := root.Children()
			if err != nil {
				done <- err
				return
			}
			for _, c := range children {
				props, err := c.Properties()
				if err != nil {
					done <- err
					return
				}
				ap, err := props.Array("data")
				if err != nil {
					done <- err
					return
				}
				if _, err := ap.Sample(0); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()
	}
	for range 8 {
		require.NoError(t, <-done)
	}
}
