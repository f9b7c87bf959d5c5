package geom

import (
	"fmt"

	"github.com/strata3d/bake"
)

// Property names shared by the polygon mesh and subdivision schemas.
const (
	propPositions   = "P"
	propFaceCounts  = ".faceCounts"
	propFaceIndices = ".faceIndices"
	propNormals     = "N"
	propUVs         = "uv"
	propVelocities  = ".velocities"
)

// PolyMeshSample is one time sample of a polygon mesh. Positions, FaceCounts,
// and FaceIndices are required; the remaining fields are written only when
// non-empty.
type PolyMeshSample struct {
	Positions   []V3f
	FaceCounts  []int32
	FaceIndices []int32
	Normals     []V3f
	UVs         []V2f
	Velocities  []V3f
}

func (s *PolyMeshSample) validate() error {
	if len(s.Positions) == 0 {
		return fmt.Errorf("%w: mesh sample has no positions", bake.ErrValidation)
	}
	var total int
	for _, c := range s.FaceCounts {
		if c < 3 {
			return fmt.Errorf("%w: face with %d vertices", bake.ErrValidation, c)
		}
		total += int(c)
	}
	if total != len(s.FaceIndices) {
		return fmt.Errorf("%w: face counts sum to %d but %d indices given",
			bake.ErrValidation, total, len(s.FaceIndices))
	}
	for _, ix := range s.FaceIndices {
		if ix < 0 || int(ix) >= len(s.Positions) {
			return fmt.Errorf("%w: face index %d out of range for %d positions",
				bake.ErrValidation, ix, len(s.Positions))
		}
	}
	if n := len(s.Velocities); n != 0 && n != len(s.Positions) {
		return fmt.Errorf("%w: %d velocities for %d positions", bake.ErrValidation, n, len(s.Positions))
	}
	if n := len(s.Normals); n != 0 && n != len(s.Positions) && n != len(s.FaceIndices) {
		return fmt.Errorf("%w: %d normals match neither %d positions nor %d face indices",
			bake.ErrValidation, n, len(s.Positions), len(s.FaceIndices))
	}
	if n := len(s.UVs); n != 0 && n != len(s.Positions) && n != len(s.FaceIndices) {
		return fmt.Errorf("%w: %d uvs match neither %d positions nor %d face indices",
			bake.ErrValidation, n, len(s.Positions), len(s.FaceIndices))
	}
	return nil
}

// PolyMeshWriter writes polygon mesh samples onto an object.
type PolyMeshWriter struct {
	obj     *bake.ObjectWriter
	props   *bake.CompoundWriter
	tsIndex uint32

	positions   *bake.ArrayWriter
	faceCounts  *bake.ArrayWriter
	faceIndices *bake.ArrayWriter
	normals     *bake.ArrayWriter
	uvs         *bake.ArrayWriter
	velocities  *bake.ArrayWriter
}

// CreatePolyMesh creates a child object of parent carrying the polygon mesh
// schema, sampled on the time sampling at tsIndex.
func CreatePolyMesh(parent *bake.ObjectWriter, name string, tsIndex uint32) (*PolyMeshWriter, error) {
	obj, props, err := createGeomObject(parent, name, SchemaPolyMesh)
	if err != nil {
		return nil, err
	}
	w := &PolyMeshWriter{obj: obj, props: props, tsIndex: tsIndex}
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

// Object exposes the underlying object writer, for attaching children or
// extra user properties.
func (w *PolyMeshWriter) Object() *bake.ObjectWriter { return w.obj }

// WriteSample validates the sample and appends it to the mesh's properties.
// An optional field, once written, must stay present in every later sample
// so indices line up across properties.
func (w *PolyMeshWriter) WriteSample(s PolyMeshSample) error {
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
	if len(s.Normals) > 0 {
		if w.normals == nil {
			scope := bake.ScopeVertex
			if len(s.Normals) == len(s.FaceIndices) && len(s.Normals) != len(s.Positions) {
				scope = bake.ScopeFaceVarying
			}
			if w.normals, err = w.props.CreateArray(propNormals, bake.V3fType, scope, w.tsIndex, bake.Metadata{}); err != nil {
				return err
			}
		}
		if err := w.normals.AddSample(flatten3(s.Normals)); err != nil {
			return err
		}
	}
	if len(s.UVs) > 0 {
		if w.uvs == nil {
			scope := bake.ScopeVertex
			if len(s.UVs) == len(s.FaceIndices) && len(s.UVs) != len(s.Positions) {
				scope = bake.ScopeFaceVarying
			}
			if w.uvs, err = w.props.CreateArray(propUVs, bake.V2fType, scope, w.tsIndex, bake.Metadata{}); err != nil {
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
	return nil
}

// PolyMesh is a read view over an object carrying the polygon mesh schema.
type PolyMesh struct {
	obj *bake.Object

	positions   *bake.ArrayProperty
	faceCounts  *bake.ArrayProperty
	faceIndices *bake.ArrayProperty
	normals     *bake.ArrayProperty
	uvs         *bake.ArrayProperty
	velocities  *bake.ArrayProperty
}

// NewPolyMesh validates the object against the polygon mesh schema and
// returns a typed view. No sample data is read.
func NewPolyMesh(o *bake.Object) (*PolyMesh, error) {
	c, err := geomProperties(o, SchemaPolyMesh)
	if err != nil {
		return nil, err
	}
	m := &PolyMesh{obj: o}
	if m.positions, err = requireArray(c, propPositions, bake.V3fType); err != nil {
		return nil, err
	}
	if m.faceCounts, err = requireArray(c, propFaceCounts, bake.Int32Type); err != nil {
		return nil, err
	}
	if m.faceIndices, err = requireArray(c, propFaceIndices, bake.Int32Type); err != nil {
		return nil, err
	}
	if m.normals, err = optionalArray(c, propNormals, bake.V3fType); err != nil {
		return nil, err
	}
	if m.uvs, err = optionalArray(c, propUVs, bake.V2fType); err != nil {
		return nil, err
	}
	if m.velocities, err = optionalArray(c, propVelocities, bake.V3fType); err != nil {
		return nil, err
	}
	return m, nil
}

// Object returns the underlying object.
func (m *PolyMesh) Object() *bake.Object { return m.obj }

// SampleCount returns the number of position samples.
func (m *PolyMesh) SampleCount() (int, error) { return m.positions.SampleCount() }

// TimeSampling returns the time sampling of the positions property.
func (m *PolyMesh) TimeSampling() (bake.TimeSampling, error) { return m.positions.TimeSampling() }

// IsConstant reports whether every property of the mesh is constant over
// time.
func (m *PolyMesh) IsConstant() (bool, error) {
	for _, p := range []*bake.ArrayProperty{m.positions, m.faceCounts, m.faceIndices, m.normals, m.uvs, m.velocities} {
		if p == nil {
			continue
		}
		ok, err := p.IsConstant()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// HasNormals reports whether the mesh carries normals.
func (m *PolyMesh) HasNormals() bool { return m.normals != nil }

// HasUVs reports whether the mesh carries texture coordinates.
func (m *PolyMesh) HasUVs() bool { return m.uvs != nil }

// Sample reads the mesh sample at index i. The index must be within the
// positions property's sample count; sibling properties with fewer samples
// are clamped to their last sample, so constant topology stored once pairs
// with every deforming position sample.
func (m *PolyMesh) Sample(i int) (*PolyMeshSample, error) {
	if err := checkIndex(m.positions, i); err != nil {
		return nil, err
	}
	pos, err := float32sAt(m.positions, i)
	if err != nil {
		return nil, err
	}
	counts, err := int32sAt(m.faceCounts, i)
	if err != nil {
		return nil, err
	}
	indices, err := int32sAt(m.faceIndices, i)
	if err != nil {
		return nil, err
	}
	s := &PolyMeshSample{
		Positions:   group3(pos),
		FaceCounts:  counts,
		FaceIndices: indices,
	}
	if m.normals != nil {
		flat, err := float32sAt(m.normals, i)
		if err != nil {
			return nil, err
		}
		s.Normals = group3(flat)
	}
	if m.uvs != nil {
		flat, err := float32sAt(m.uvs, i)
		if err != nil {
			return nil, err
		}
		s.UVs = group2(flat)
	}
	if m.velocities != nil {
		flat, err := float32sAt(m.velocities, i)
		if err != nil {
			return nil, err
		}
		s.Velocities = group3(flat)
	}
	return s, nil
}
