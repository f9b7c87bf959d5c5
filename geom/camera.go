package geom

import (
	"fmt"
	"math"

	"github.com/strata3d/bake"
)

const propCameraCore = ".core"

// cameraCoreValues is the fixed layout of the packed camera sample.
const cameraCoreValues = 16

// CameraSample is one time sample of a camera. Focal length is in
// millimeters, apertures and film offsets in centimeters, clipping planes
// and focus distance in scene units, shutter times in seconds.
type CameraSample struct {
	FocalLength          float64
	HorizontalAperture   float64
	HorizontalFilmOffset float64
	VerticalAperture     float64
	VerticalFilmOffset   float64
	LensSqueezeRatio     float64
	OverScanLeft         float64
	OverScanRight        float64
	OverScanTop          float64
	OverScanBottom       float64
	FStop                float64
	FocusDistance        float64
	ShutterOpen          float64
	ShutterClose         float64
	NearClippingPlane    float64
	FarClippingPlane     float64
}

// NewCameraSample returns a camera sample with conventional film-back
// defaults: 35mm focal length on a 3.6cm by 2.4cm aperture.
func NewCameraSample() CameraSample {
	return CameraSample{
		FocalLength:        35,
		HorizontalAperture: 3.6,
		VerticalAperture:   2.4,
		LensSqueezeRatio:   1,
		FStop:              5.6,
		FocusDistance:      5,
		ShutterClose:       1.0 / 48,
		NearClippingPlane:  0.1,
		FarClippingPlane:   100000,
	}
}

// FieldOfViewHorizontal returns the horizontal field of view in degrees.
func (s CameraSample) FieldOfViewHorizontal() float64 {
	// Aperture is in cm, focal length in mm.
	return 2 * math.Atan(s.HorizontalAperture*10/(2*s.FocalLength)) * 180 / math.Pi
}

// FieldOfViewVertical returns the vertical field of view in degrees.
func (s CameraSample) FieldOfViewVertical() float64 {
	return 2 * math.Atan(s.VerticalAperture*10/(2*s.FocalLength)) * 180 / math.Pi
}

func (s CameraSample) validate() error {
	if s.FocalLength <= 0 {
		return fmt.Errorf("%w: focal length %v", bake.ErrValidation, s.FocalLength)
	}
	if s.HorizontalAperture <= 0 || s.VerticalAperture <= 0 {
		return fmt.Errorf("%w: aperture %vx%v", bake.ErrValidation, s.HorizontalAperture, s.VerticalAperture)
	}
	if s.NearClippingPlane <= 0 || s.FarClippingPlane <= s.NearClippingPlane {
		return fmt.Errorf("%w: clipping planes %v..%v", bake.ErrValidation, s.NearClippingPlane, s.FarClippingPlane)
	}
	return nil
}

func (s CameraSample) pack() []float64 {
	return []float64{
		s.FocalLength,
		s.HorizontalAperture,
		s.HorizontalFilmOffset,
		s.VerticalAperture,
		s.VerticalFilmOffset,
		s.LensSqueezeRatio,
		s.OverScanLeft,
		s.OverScanRight,
		s.OverScanTop,
		s.OverScanBottom,
		s.FStop,
		s.FocusDistance,
		s.ShutterOpen,
		s.ShutterClose,
		s.NearClippingPlane,
		s.FarClippingPlane,
	}
}

func unpackCameraSample(v []float64) (CameraSample, error) {
	if len(v) != cameraCoreValues {
		return CameraSample{}, fmt.Errorf("%w: camera sample has %d values, want %d",
			bake.ErrFormat, len(v), cameraCoreValues)
	}
	return CameraSample{
		FocalLength:          v[0],
		HorizontalAperture:   v[1],
		HorizontalFilmOffset: v[2],
		VerticalAperture:     v[3],
		VerticalFilmOffset:   v[4],
		LensSqueezeRatio:     v[5],
		OverScanLeft:         v[6],
		OverScanRight:        v[7],
		OverScanTop:          v[8],
		OverScanBottom:       v[9],
		FStop:                v[10],
		FocusDistance:        v[11],
		ShutterOpen:          v[12],
		ShutterClose:         v[13],
		NearClippingPlane:    v[14],
		FarClippingPlane:     v[15],
	}, nil
}

var cameraCoreType = bake.DataType{Pod: bake.PodFloat64, Extent: cameraCoreValues}

// CameraWriter writes camera samples onto an object.
type CameraWriter struct {
	obj  *bake.ObjectWriter
	core *bake.ScalarWriter
}

// CreateCamera creates a child object of parent carrying the camera schema,
// sampled on the time sampling at tsIndex.
func CreateCamera(parent *bake.ObjectWriter, name string, tsIndex uint32) (*CameraWriter, error) {
	obj, props, err := createGeomObject(parent, name, SchemaCamera)
	if err != nil {
		return nil, err
	}
	w := &CameraWriter{obj: obj}
	if w.core, err = props.CreateScalar(propCameraCore, cameraCoreType, bake.ScopeConstant, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	return w, nil
}

// Object exposes the underlying object writer.
func (w *CameraWriter) Object() *bake.ObjectWriter { return w.obj }

// WriteSample validates the sample and appends it.
func (w *CameraWriter) WriteSample(s CameraSample) error {
	if err := s.validate(); err != nil {
		return err
	}
	return w.core.AddSample(s.pack())
}

// Camera is a read view over an object carrying the camera schema.
type Camera struct {
	obj  *bake.Object
	core *bake.ScalarProperty
}

// NewCamera validates the object against the camera schema and returns a
// typed view.
func NewCamera(o *bake.Object) (*Camera, error) {
	c, err := geomProperties(o, SchemaCamera)
	if err != nil {
		return nil, err
	}
	cam := &Camera{obj: o}
	if cam.core, err = requireScalar(c, propCameraCore, cameraCoreType); err != nil {
		return nil, err
	}
	return cam, nil
}

// Object returns the underlying object.
func (c *Camera) Object() *bake.Object { return c.obj }

// SampleCount returns the number of camera samples.
func (c *Camera) SampleCount() (int, error) { return c.core.SampleCount() }

// TimeSampling returns the camera's time sampling.
func (c *Camera) TimeSampling() (bake.TimeSampling, error) { return c.core.TimeSampling() }

// Sample reads the camera sample at index i.
func (c *Camera) Sample(i int) (CameraSample, error) {
	s, err := c.core.Sample(i)
	if err != nil {
		return CameraSample{}, err
	}
	vals, err := s.Float64s()
	if err != nil {
		return CameraSample{}, err
	}
	return unpackCameraSample(vals)
}
