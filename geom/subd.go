package geom

import (
	"fmt"

	"github.com/strata3d/bake"
)

const (
	propCreaseIndices     = ".creaseIndices"
	propCreaseLengths     = ".creaseLengths"
	propCreaseSharpnesses = ".creaseSharpnesses"
	propCornerIndices     = ".cornerIndices"
	propCornerSharpnesses = ".cornerSharpnesses"
)

// SubDSample is one time sample of a subdivision surface. The base cage
// fields mirror PolyMeshSample; creases and corners are optional subdivision
// tags.
type SubDSample struct {
	Positions   []V3f
	FaceCounts  []int32
	FaceIndices []int32
	UVs         []V2f
	Velocities  []V3f

	// CreaseIndices holds the vertex indices of every crease back to back;
	// CreaseLengths holds the vertex count of each crease and
	// CreaseSharpnesses one sharpness per crease.
	CreaseIndices     []int32
	CreaseLengths     []int32
	CreaseSharpnesses []float32

	CornerIndices     []int32
	CornerSharpnesses []float32
}

func (s *SubDSample) validate() error {
	base := PolyMeshSample{
		Positions:   s.Positions,
		FaceCounts:  s.FaceCounts,
		FaceIndices: s.FaceIndices,
		UVs:         s.UVs,
		Velocities:  s.Velocities,
	}
	if err := base.validate(); err != nil {
		return err
	}
	var creaseTotal int
	for _, n := range s.CreaseLengths {
		if n < 2 {
			return fmt.Errorf("%w: crease with %d vertices", bake.ErrValidation, n)
		}
		creaseTotal += int(n)
	}
	if creaseTotal != len(s.CreaseIndices) {
		return fmt.Errorf("%w: crease lengths sum to %d but %d indices given",
			bake.ErrValidation, creaseTotal, len(s.CreaseIndices))
	}
	if len(s.CreaseSharpnesses) != len(s.CreaseLengths) {
		return fmt.Errorf("%w: %d crease sharpnesses for %d creases",
			bake.ErrValidation, len(s.CreaseSharpnesses), len(s.CreaseLengths))
	}
	for _, ix := range s.CreaseIndices {
		if ix < 0 || int(ix) >= len(s.Positions) {
			return fmt.Errorf("%w: crease index %d out of range", bake.ErrValidation, ix)
		}
	}
	if len(s.CornerSharpnesses) != len(s.CornerIndices) {
		return fmt.Errorf("%w: %d corner sharpnesses for %d corners",
			bake.ErrValidation, len(s.CornerSharpnesses), len(s.CornerIndices))
	}
	for _, ix := range s.CornerIndices {
		if ix < 0 || int(ix) >= len(s.Positions) {
			return fmt.Errorf("%w: corner index %d out of range", bake.ErrValidation, ix)
		}
	}
	return nil
}

// SubDWriter writes subdivision surface samples onto an object.
type SubDWriter struct {
	obj     *bake.ObjectWriter
	props   *bake.CompoundWriter
	tsIndex uint32

	positions   *bake.ArrayWriter
	faceCounts  *bake.ArrayWriter
	faceIndices *bake.ArrayWriter
	uvs         *bake.ArrayWriter
	velocities  *bake.ArrayWriter

	creaseIndices     *bake.ArrayWriter
	creaseLengths     *bake.ArrayWriter
	creaseSharpnesses *bake.ArrayWriter
	cornerIndices     *bake.ArrayWriter
	cornerSharpnesses *bake.ArrayWriter
}

// CreateSubD creates a child object of parent carrying the subdivision
// surface schema, sampled on the time sampling at tsIndex.
func CreateSubD(parent *bake.ObjectWriter, name string, tsIndex uint32) (*SubDWriter, error) {
	obj, props, err := createGeomObject(parent, name, SchemaSubD)
	if err != nil {
		return nil, err
	}
	w := &SubDWriter{obj: obj, props: props, tsIndex: tsIndex}
	if w.positions, err = props.CreateArray(propPositions, bake.V3fType, bake.ScopeVertex, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	if w.faceCounts, err = props.CreateArray(propFaceCounts, bake.Int32Type, bake.ScopeUniform, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	if w.faceIndices, err = props.CreateArray(propFaceIndices, bake.Int32Type, bake.ScopeFaceVarying, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	return w, nil
}

// Object exposes the underlying object writer.
func (w *SubDWriter) Object() *bake.ObjectWriter { return w.obj }

// WriteSample validates the sample and appends it. As with the polygon mesh
// writer, an optional field must stay present once first written.
func (w *SubDWriter) WriteSample(s SubDSample) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := w.positions.AddSample(flatten3(s.Positions)); err != nil {
		return err
	}
	if err := w.faceCounts.AddSample(s.FaceCounts); err != nil {
		return err
	}
	if err := w.faceIndices.AddSample(s.FaceIndices); err != nil {
		return err
	}
	var err error
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
	if len(s.CreaseLengths) > 0 {
		if w.creaseIndices == nil {
			if w.creaseIndices, err = w.props.CreateArray(propCreaseIndices, bake.Int32Type, bake.ScopeConstant, w.tsIndex, bake.Metadata{}); err != nil {
				return err
			}
			if w.creaseLengths, err = w.props.CreateArray(propCreaseLengths, bake.Int32Type, bake.ScopeConstant, w.tsIndex, bake.Metadata{}); err != nil {
				return err
			}
			if w.creaseSharpnesses, err = w.props.CreateArray(propCreaseSharpnesses, bake.Float32Type, bake.ScopeConstant, w.tsIndex, bake.Metadata{}); err != nil {
				return err
			}
		}
		if err := w.creaseIndices.AddSample(s.CreaseIndices); err != nil {
			return err
		}
		if err := w.creaseLengths.AddSample(s.CreaseLengths); err != nil {
			return err
		}
		if err := w.creaseSharpnesses.AddSample(s.CreaseSharpnesses); err != nil {
			return err
		}
	}
	if len(s.CornerIndices) > 0 {
		if w.cornerIndices == nil {
			if w.cornerIndices, err = w.props.CreateArray(propCornerIndices, bake.Int32Type, bake.ScopeConstant, w.tsIndex, bake.Metadata{}); err != nil {
				return err
			}
			if w.cornerSharpnesses, err = w.props.CreateArray(propCornerSharpnesses, bake.Float32Type, bake.ScopeConstant, w.tsIndex, bake.Metadata{}); err != nil {
				return err
			}
		}
		if err := w.cornerIndices.AddSample(s.CornerIndices); err != nil {
			return err
		}
		if err := w.cornerSharpnesses.AddSample(s.CornerSharpnesses); err != nil {
			return err
		}
	}
	return nil
}

// SubD is a read view over an object carrying the subdivision surface
// schema.
type SubD struct {
	obj *bake.Object

	positions   *bake.ArrayProperty
	faceCounts  *bake.ArrayProperty
	faceIndices *bake.ArrayProperty
	uvs         *bake.ArrayProperty
	velocities  *bake.ArrayProperty

	creaseIndices     *bake.ArrayProperty
	creaseLengths     *bake.ArrayProperty
	creaseSharpnesses *bake.ArrayProperty
	cornerIndices     *bake.ArrayProperty
	cornerSharpnesses *bake.ArrayProperty
}

// NewSubD validates the object against the subdivision surface schema and
// returns a typed view.
func NewSubD(o *bake.Object) (*SubD, error) {
	c, err := geomProperties(o, SchemaSubD)
	if err != nil {
		return nil, err
	}
	d := &SubD{obj: o}
	if d.positions, err = requireArray(c, propPositions, bake.V3fType); err != nil {
		return nil, err
	}
	if d.faceCounts, err = requireArray(c, propFaceCounts, bake.Int32Type); err != nil {
		return nil, err
	}
	if d.faceIndices, err = requireArray(c, propFaceIndices, bake.Int32Type); err != nil {
		return nil, err
	}
	if d.uvs, err = optionalArray(c, propUVs, bake.V2fType); err != nil {
		return nil, err
	}
	if d.velocities, err = optionalArray(c, propVelocities, bake.V3fType); err != nil {
		return nil, err
	}
	if d.creaseIndices, err = optionalArray(c, propCreaseIndices, bake.Int32Type); err != nil {
		return nil, err
	}
	if d.creaseLengths, err = optionalArray(c, propCreaseLengths, bake.Int32Type); err != nil {
		return nil, err
	}
	if d.creaseSharpnesses, err = optionalArray(c, propCreaseSharpnesses, bake.Float32Type); err != nil {
		return nil, err
	}
	if d.cornerIndices, err = optionalArray(c, propCornerIndices, bake.Int32Type); err != nil {
		return nil, err
	}
	if d.cornerSharpnesses, err = optionalArray(c, propCornerSharpnesses, bake.Float32Type); err != nil {
		return nil, err
	}
	if d.creaseIndices != nil && (d.creaseLengths == nil || d.creaseSharpnesses == nil) {
		return nil, fmt.Errorf("%w: object %q has partial crease properties",
			bake.ErrSchemaMismatch, o.FullName())
	}
	if d.cornerIndices != nil && d.cornerSharpnesses == nil {
		return nil, fmt.Errorf("%w: object %q has partial corner properties",
			bake.ErrSchemaMismatch, o.FullName())
	}
	return d, nil
}

// Object returns the underlying object.
func (d *SubD) Object() *bake.Object { return d.obj }

// SampleCount returns the number of position samples.
func (d *SubD) SampleCount() (int, error) { return d.positions.SampleCount() }

// TimeSampling returns the time sampling of the positions property.
func (d *SubD) TimeSampling() (bake.TimeSampling, error) { return d.positions.TimeSampling() }

// HasCreases reports whether the surface carries crease tags.
func (d *SubD) HasCreases() bool { return d.creaseIndices != nil }

// HasCorners reports whether the surface carries corner tags.
func (d *SubD) HasCorners() bool { return d.cornerIndices != nil }

// Sample reads the surface sample at index i, clamping shorter sibling
// properties to their last sample.
func (d *SubD) Sample(i int) (*SubDSample, error) {
	if err := checkIndex(d.positions, i); err != nil {
		return nil, err
	}
	pos, err := float32sAt(d.positions, i)
	if err != nil {
		return nil, err
	}
	counts, err := int32sAt(d.faceCounts, i)
	if err != nil {
		return nil, err
	}
	indices, err := int32sAt(d.faceIndices, i)
	if err != nil {
		return nil, err
	}
	s := &SubDSample{
		Positions:   group3(pos),
		FaceCounts:  counts,
		FaceIndices: indices,
	}
	if d.uvs != nil {
		flat, err := float32sAt(d.uvs, i)
		if err != nil {
			return nil, err
		}
		s.UVs = group2(flat)
	}
	if d.velocities != nil {
		flat, err := float32sAt(d.velocities, i)
		if err != nil {
			return nil, err
		}
		s.Velocities = group3(flat)
	}
	if d.creaseIndices != nil {
		if s.CreaseIndices, err = int32sAt(d.creaseIndices, i); err != nil {
			return nil, err
		}
		if s.CreaseLengths, err = int32sAt(d.creaseLengths, i); err != nil {
			return nil, err
		}
		if s.CreaseSharpnesses, err = float32sAt(d.creaseSharpnesses, i); err != nil {
			return nil, err
		}
	}
	if d.cornerIndices != nil {
		if s.CornerIndices, err = int32sAt(d.cornerIndices, i); err != nil {
			return nil, err
		}
		if s.CornerSharpnesses, err = float32sAt(d.cornerSharpnesses, i); err != nil {
			return nil, err
		}
	}
	return s, nil
}
