package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata3d/bake"
)

func TestCameraRoundTrip(t *testing.T) {
	t.Parallel()

	w, path := createArchive(t)
	cw, err := CreateCamera(w.Root(), "shotCam", 0)
	require.NoError(t, err)

	s := NewCameraSample()
	s.FocalLength = 50
	s.FocusDistance = 3.2
	require.NoError(t, cw.WriteSample(s))
	require.NoError(t, w.Close())

	a := openArchive(t, path)
	root, err := a.Root()
	require.NoError(t, err)
	obj, err := root.ChildByName("shotCam")
	require.NoError(t, err)
	assert.Equal(t, KindCamera, KindOf(obj))

	cam, err := NewCamera(obj)
	require.NoError(t, err)
	got, err := cam.Sample(0)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestCameraDefaults(t *testing.T) {
	t.Parallel()

	s := NewCameraSample()
	require.NoError(t, s.validate())
	assert.Equal(t, 35.0, s.FocalLength)
	assert.Equal(t, 1.0, s.LensSqueezeRatio)

	// 36mm film back behind a 35mm lens is just over 54 degrees across.
	assert.InDelta(t, 54.43, s.FieldOfViewHorizontal(), 0.01)
	assert.Less(t, s.FieldOfViewVertical(), s.FieldOfViewHorizontal())
}

func TestCameraValidation(t *testing.T) {
	t.Parallel()

	w, _ := createArchive(t)
	defer w.Abort()
	cw, err := CreateCamera(w.Root(), "bad", 0)
	require.NoError(t, err)

	s := NewCameraSample()
	s.FocalLength = 0
	require.ErrorIs(t, cw.WriteSample(s), bake.ErrValidation)

	s = NewCameraSample()
	s.FarClippingPlane = s.NearClippingPlane / 2
	require.ErrorIs(t, cw.WriteSample(s), bake.ErrValidation)
}
