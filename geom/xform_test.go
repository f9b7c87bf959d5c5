package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata3d/bake"
)

func matricesEqual(t *testing.T, want, got M44d, tol float64) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "element %d", i)
	}
}

func TestXformCompositionOrder(t *testing.T) {
	t.Parallel()

	// A translate followed by a rotate must evaluate to T * Rz, not
	// Rz * T: the op written first is applied to points first.
	s := XformSample{Ops: []XformOp{Translate(1, 0, 0), RotateZ(90)}}

	want := translateMatrix(1, 0, 0).Mul(rotateZMatrix(90))
	matricesEqual(t, want, s.Matrix(), 1e-12)

	// The reversed stack gives a different matrix.
	rev := XformSample{Ops: []XformOp{RotateZ(90), Translate(1, 0, 0)}}
	notWant := rotateZMatrix(90).Mul(translateMatrix(1, 0, 0))
	matricesEqual(t, notWant, rev.Matrix(), 1e-12)
	assert.NotEqual(t, s.Matrix(), rev.Matrix())

	// Check the translation row directly: the point (0,0,0) under T then
	// Rz lands at (0,1,0).
	m := s.Matrix()
	assert.InDelta(t, 0, m[12], 1e-12)
	assert.InDelta(t, 1, m[13], 1e-12)
	assert.InDelta(t, 0, m[14], 1e-12)
}

func TestXformOpMatrices(t *testing.T) {
	t.Parallel()

	matricesEqual(t, Identity(), (&XformSample{}).Matrix(), 0)

	s := XformSample{Ops: []XformOp{Scale(2, 3, 4)}}
	m := s.Matrix()
	assert.Equal(t, 2.0, m[0])
	assert.Equal(t, 3.0, m[5])
	assert.Equal(t, 4.0, m[10])

	// Axis-angle about Z matches the dedicated Z rotation.
	matricesEqual(t, rotateZMatrix(30), axisAngleMatrix(0, 0, 1, 30), 1e-12)

	// Rotating (1,0,0) by 90 degrees about Z gives (0,1,0).
	rz := rotateZMatrix(90)
	x, y := rz[0], rz[1]
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 1, y, 1e-12)

	// Explicit matrix op passes through.
	custom := translateMatrix(5, 6, 7)
	matricesEqual(t, custom, (&XformSample{Ops: []XformOp{Matrix(custom)}}).Matrix(), 0)

	// Single-axis ops agree with their three-axis forms.
	a := XformSample{Ops: []XformOp{
		{Type: OpTranslateX, Values: []float64{2}},
		{Type: OpTranslateY, Values: []float64{3}},
	}}
	b := XformSample{Ops: []XformOp{Translate(2, 3, 0)}}
	matricesEqual(t, b.Matrix(), a.Matrix(), 1e-12)
}

func TestXformRoundTrip(t *testing.T) {
	t.Parallel()

	w, path := createArchive(t)
	tsIndex, err := w.AddTimeSampling(bake.UniformSampling(0, 1.0/24))
	require.NoError(t, err)
	xw, err := CreateXform(w.Root(), "root_xform", tsIndex)
	require.NoError(t, err)

	for i := range 3 {
		s := XformSample{
			Ops:      []XformOp{Translate(float64(i), 0, 0), RotateZ(90)},
			Inherits: true,
		}
		require.NoError(t, xw.WriteSample(s))
	}
	require.NoError(t, w.Close())

	a := openArchive(t, path)
	root, err := a.Root()
	require.NoError(t, err)
	obj, err := root.ChildByName("root_xform")
	require.NoError(t, err)
	assert.Equal(t, KindXform, KindOf(obj))

	x, err := NewXform(obj)
	require.NoError(t, err)
	count, err := x.SampleCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	s, err := x.Sample(2)
	require.NoError(t, err)
	assert.True(t, s.Inherits)
	require.Len(t, s.Ops, 2)
	assert.Equal(t, OpTranslate, s.Ops[0].Type)
	assert.Equal(t, []float64{2, 0, 0}, s.Ops[0].Values)
	assert.Equal(t, OpRotateZ, s.Ops[1].Type)

	want := translateMatrix(2, 0, 0).Mul(rotateZMatrix(90))
	matricesEqual(t, want, s.Matrix(), 1e-12)

	ts, err := x.TimeSampling()
	require.NoError(t, err)
	assert.InDelta(t, 1.0/24, ts.TimeOf(1)-ts.TimeOf(0), 1e-12)

	_, err = x.Sample(3)
	require.ErrorIs(t, err, bake.ErrIndexOutOfRange)
}

func TestXformValidation(t *testing.T) {
	t.Parallel()

	w, _ := createArchive(t)
	defer w.Abort()
	xw, err := CreateXform(w.Root(), "x", 0)
	require.NoError(t, err)

	err = xw.WriteSample(XformSample{Ops: []XformOp{{Type: OpTranslate, Values: []float64{1}}}})
	require.ErrorIs(t, err, bake.ErrValidation)
	err = xw.WriteSample(XformSample{Ops: []XformOp{{Type: XformOpType(42), Values: []float64{1}}}})
	require.ErrorIs(t, err, bake.ErrValidation)
}

func TestXformChainEvaluation(t *testing.T) {
	t.Parallel()

	// Two nested transforms: the child-to-parent product carries a point
	// through both.
	parent := XformSample{Ops: []XformOp{Translate(0, 5, 0)}}
	child := XformSample{Ops: []XformOp{RotateZ(90)}}

	// Row-vector convention: local point times child matrix, then parent.
	world := child.Matrix().Mul(parent.Matrix())
	px, py := 1.0, 0.0
	wx := px*world[0] + py*world[4] + world[12]
	wy := px*world[1] + py*world[5] + world[13]
	assert.InDelta(t, 0, wx, 1e-12)
	assert.InDelta(t, 6, wy, 1e-12)
}
