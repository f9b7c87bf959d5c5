package geom

import (
	"fmt"

	"github.com/strata3d/bake"
)

const (
	propNumVertices  = "nVertices"
	propCurvesBasis  = "curveBasisAndType"
	propCurvesWidths = "width"
)

// CurveType distinguishes linear from cubic curves.
type CurveType uint8

const (
	CurveLinear CurveType = iota
	CurveCubic
)

// CurveWrap distinguishes open from periodic curves.
type CurveWrap uint8

const (
	WrapNonPeriodic CurveWrap = iota
	WrapPeriodic
)

// CurveBasis names the basis matrix of cubic curves. Linear curves ignore
// it.
type CurveBasis uint8

const (
	BasisNone CurveBasis = iota
	BasisBezier
	BasisBSpline
	BasisCatmullRom
	BasisHermite
	BasisPower
)

// CurvesSample is one time sample of a curve batch. Positions holds the
// control points of all curves back to back; NumVertices holds the control
// point count of each curve.
type CurvesSample struct {
	Positions   []V3f
	NumVertices []int32

	Type  CurveType
	Wrap  CurveWrap
	Basis CurveBasis

	// Widths is optional; when present it carries one width per control
	// point.
	Widths     []float32
	Velocities []V3f
	UVs        []V2f
}

func (s *CurvesSample) validate() error {
	if len(s.Positions) == 0 {
		return fmt.Errorf("%w: curves sample has no positions", bake.ErrValidation)
	}
	minVerts := int32(2)
	if s.Type == CurveCubic {
		minVerts = 4
	}
	var total int
	for _, n := range s.NumVertices {
		if n < minVerts {
			return fmt.Errorf("%w: curve with %d control points, want at least %d",
				bake.ErrValidation, n, minVerts)
		}
		total += int(n)
	}
	if total != len(s.Positions) {
		return fmt.Errorf("%w: curve vertex counts sum to %d but %d positions given",
			bake.ErrValidation, total, len(s.Positions))
	}
	if s.Type > CurveCubic {
		return fmt.Errorf("%w: unknown curve type %d", bake.ErrValidation, s.Type)
	}
	if s.Wrap > WrapPeriodic {
		return fmt.Errorf("%w: unknown curve wrap %d", bake.ErrValidation, s.Wrap)
	}
	if s.Basis > BasisPower {
		return fmt.Errorf("%w: unknown curve basis %d", bake.ErrValidation, s.Basis)
	}
	if n := len(s.Widths); n != 0 && n != len(s.Positions) {
		return fmt.Errorf("%w: %d widths for %d positions", bake.ErrValidation, n, len(s.Positions))
	}
	if n := len(s.Velocities); n != 0 && n != len(s.Positions) {
		return fmt.Errorf("%w: %d velocities for %d positions", bake.ErrValidation, n, len(s.Positions))
	}
	if n := len(s.UVs); n != 0 && n != len(s.Positions) {
		return fmt.Errorf("%w: %d uvs for %d positions", bake.ErrValidation, n, len(s.Positions))
	}
	return nil
}

// CurvesWriter writes curve batch samples onto an object.
type CurvesWriter struct {
	obj     *bake.ObjectWriter
	props   *bake.CompoundWriter
	tsIndex uint32

	positions   *bake.ArrayWriter
	numVertices *bake.ArrayWriter
	basis       *bake.ScalarWriter
	widths      *bake.ArrayWriter
	velocities  *bake.ArrayWriter
	uvs         *bake.ArrayWriter
}

// CreateCurves creates a child object of parent carrying the curves schema,
// sampled on the time sampling at tsIndex.
func CreateCurves(parent *bake.ObjectWriter, name string, tsIndex uint32) (*CurvesWriter, error) {
	obj, props, err := createGeomObject(parent, name, SchemaCurves)
	if err != nil {
		return nil, err
	}
	w := &CurvesWriter{obj: obj, props: props, tsIndex: tsIndex}
	if w.positions, err = props.CreateArray(propPositions, bake.V3fType, bake.ScopeVertex, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	if w.numVertices, err = props.CreateArray(propNumVertices, bake.Int32Type, bake.ScopeUniform, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	if w.basis, err = props.CreateScalar(propCurvesBasis, bake.DataType{Pod: bake.PodUint8, Extent: 3}, bake.ScopeConstant, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	return w, nil
}

// Object exposes the underlying object writer.
func (w *CurvesWriter) Object() *bake.ObjectWriter { return w.obj }

// WriteSample validates the sample and appends it.
func (w *CurvesWriter) WriteSample(s CurvesSample) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := w.positions.AddSample(flatten3(s.Positions)); err != nil {
		return err
	}
	if err := w.numVertices.AddSample(s.NumVertices); err != nil {
		return err
	}
	if err := w.basis.AddSample([]uint8{uint8(s.Type), uint8(s.Wrap), uint8(s.Basis)}); err != nil {
		return err
	}
	var err error
	if len(s.Widths) > 0 {
		if w.widths == nil {
			if w.widths, err = w.props.CreateArray(propCurvesWidths, bake.Float32Type, bake.ScopeVertex, w.tsIndex, bake.Metadata{}); err != nil {
				return err
			}
		}
		if err := w.widths.AddSample(s.Widths); err != nil {
			return err
		}
	}
	if len(s.Velocities) > 0 {
		if w.velocities == nil {
			if w.velocities, err = w.props.CreateArray(propVelocities, bake.V3fType, bake.ScopeVertex, w.tsIndex, bake.Metadata{}); err != nil {
				return err
			}
		}
		if err := w.velocities.AddSample(flatten3(s.Velocities)); err != nil {
			return err
		}
	}
	if len(s.UVs) > 0 {
		if w.uvs == nil {
			if w.uvs, err = w.props.CreateArray(propUVs, bake.V2fType, bake.ScopeVertex, w.tsIndex, bake.Metadata{}); err != nil {
				return err
			}
		}
		if err := w.uvs.AddSample(flatten2(s.UVs)); err != nil {
			return err
		}
	}
	return nil
}

// Curves is a read view over an object carrying the curves schema.
type Curves struct {
	obj *bake.Object

	positions   *bake.ArrayProperty
	numVertices *bake.ArrayProperty
	basis       *bake.ScalarProperty
	widths      *bake.ArrayProperty
	velocities  *bake.ArrayProperty
	uvs         *bake.ArrayProperty
}

// NewCurves validates the object against the curves schema and returns a
// typed view.
func NewCurves(o *bake.Object) (*Curves, error) {
	c, err := geomProperties(o, SchemaCurves)
	if err != nil {
		return nil, err
	}
	cv := &Curves{obj: o}
	if cv.positions, err = requireArray(c, propPositions, bake.V3fType); err != nil {
		return nil, err
	}
	if cv.numVertices, err = requireArray(c, propNumVertices, bake.Int32Type); err != nil {
		return nil, err
	}
	if cv.basis, err = requireScalar(c, propCurvesBasis, bake.DataType{Pod: bake.PodUint8, Extent: 3}); err != nil {
		return nil, err
	}
	if cv.widths, err = optionalArray(c, propCurvesWidths, bake.Float32Type); err != nil {
		return nil, err
	}
	if cv.velocities, err = optionalArray(c, propVelocities, bake.V3fType); err != nil {
		return nil, err
	}
	if cv.uvs, err = optionalArray(c, propUVs, bake.V2fType); err != nil {
		return nil, err
	}
	return cv, nil
}

// Object returns the underlying object.
func (cv *Curves) Object() *bake.Object { return cv.obj }

// SampleCount returns the number of position samples.
func (cv *Curves) SampleCount() (int, error) { return cv.positions.SampleCount() }

// TimeSampling returns the time sampling of the positions property.
func (cv *Curves) TimeSampling() (bake.TimeSampling, error) { return cv.positions.TimeSampling() }

// Sample reads the curve batch sample at index i.
func (cv *Curves) Sample(i int) (*CurvesSample, error) {
	if err := checkIndex(cv.positions, i); err != nil {
		return nil, err
	}
	pos, err := float32sAt(cv.positions, i)
	if err != nil {
		return nil, err
	}
	nv, err := int32sAt(cv.numVertices, i)
	if err != nil {
		return nil, err
	}
	bi, err := clampIndex(cv.basis, i)
	if err != nil {
		return nil, err
	}
	basisSample, err := cv.basis.Sample(bi)
	if err != nil {
		return nil, err
	}
	basis, err := basisSample.Uint8s()
	if err != nil {
		return nil, err
	}
	if len(basis) != 3 {
		return nil, fmt.Errorf("%w: curve basis sample has %d values", bake.ErrFormat, len(basis))
	}
	s := &CurvesSample{
		Positions:   group3(pos),
		NumVertices: nv,
		Type:        CurveType(basis[0]),
		Wrap:        CurveWrap(basis[1]),
		Basis:       CurveBasis(basis[2]),
	}
	if cv.widths != nil {
		if s.Widths, err = float32sAt(cv.widths, i); err != nil {
			return nil, err
		}
	}
	if cv.velocities != nil {
		flat, err := float32sAt(cv.velocities, i)
		if err != nil {
			return nil, err
		}
		s.Velocities = group3(flat)
	}
	if cv.uvs != nil {
		flat, err := float32sAt(cv.uvs, i)
		if err != nil {
			return nil, err
		}
		s.UVs = group2(flat)
	}
	return s, nil
}
