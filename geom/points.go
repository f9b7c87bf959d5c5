package geom

import (
	"fmt"

	"github.com/strata3d/bake"
)

const (
	propPointIDs    = ".pointIds"
	propPointWidths = ".widths"
)

// PointsSample is one time sample of a point cloud. IDs carry a stable
// identity per point so points can be tracked across samples as they are
// born and die.
type PointsSample struct {
	Positions []V3f
	IDs       []uint64

	Velocities []V3f
	Widths     []float32
}

func (s *PointsSample) validate() error {
	if len(s.IDs) != len(s.Positions) {
		return fmt.Errorf("%w: %d ids for %d positions", bake.ErrValidation, len(s.IDs), len(s.Positions))
	}
	if n := len(s.Velocities); n != 0 && n != len(s.Positions) {
		return fmt.Errorf("%w: %d velocities for %d positions", bake.ErrValidation, n, len(s.Positions))
	}
	if n := len(s.Widths); n != 0 && n != len(s.Positions) {
		return fmt.Errorf("%w: %d widths for %d positions", bake.ErrValidation, n, len(s.Positions))
	}
	return nil
}

// PointsWriter writes point cloud samples onto an object.
type PointsWriter struct {
	obj     *bake.ObjectWriter
	props   *bake.CompoundWriter
	tsIndex uint32

	positions  *bake.ArrayWriter
	ids        *bake.ArrayWriter
	velocities *bake.ArrayWriter
	widths     *bake.ArrayWriter
}

// CreatePoints creates a child object of parent carrying the point cloud
// schema, sampled on the time sampling at tsIndex.
func CreatePoints(parent *bake.ObjectWriter, name string, tsIndex uint32) (*PointsWriter, error) {
	obj, props, err := createGeomObject(parent, name, SchemaPoints)
	if err != nil {
		return nil, err
	}
	w := &PointsWriter{obj: obj, props: props, tsIndex: tsIndex}
	if w.positions, err = props.CreateArray(propPositions, bake.V3fType, bake.ScopeVarying, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	if w.ids, err = props.CreateArray(propPointIDs, bake.Uint64Type, bake.ScopeVarying, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	return w, nil
}

// Object exposes the underlying object writer.
func (w *PointsWriter) Object() *bake.ObjectWriter { return w.obj }

// WriteSample validates the sample and appends it.
func (w *PointsWriter) WriteSample(s PointsSample) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := w.positions.AddSample(flatten3(s.Positions)); err != nil {
		return err
	}
	if err := w.ids.AddSample(s.IDs); err != nil {
		return err
	}
	var err error
	if len(s.Velocities) > 0 {
		if w.velocities == nil {
			if w.velocities, err = w.props.CreateArray(propVelocities, bake.V3fType, bake.ScopeVarying, w.tsIndex, bake.Metadata{}); err != nil {
				return err
			}
		}
		if err := w.velocities.AddSample(flatten3(s.Velocities)); err != nil {
			return err
		}
	}
	if len(s.Widths) > 0 {
		if w.widths == nil {
			if w.widths, err = w.props.CreateArray(propPointWidths, bake.Float32Type, bake.ScopeVarying, w.tsIndex, bake.Metadata{}); err != nil {
				return err
			}
		}
		if err := w.widths.AddSample(s.Widths); err != nil {
			return err
		}
	}
	return nil
}

// Points is a read view over an object carrying the point cloud schema.
type Points struct {
	obj *bake.Object

	positions  *bake.ArrayProperty
	ids        *bake.ArrayProperty
	velocities *bake.ArrayProperty
	widths     *bake.ArrayProperty
}

// NewPoints validates the object against the point cloud schema and returns
// a typed view.
func NewPoints(o *bake.Object) (*Points, error) {
	c, err := geomProperties(o, SchemaPoints)
	if err != nil {
		return nil, err
	}
	p := &Points{obj: o}
	if p.positions, err = requireArray(c, propPositions, bake.V3fType); err != nil {
		return nil, err
	}
	if p.ids, err = requireArray(c, propPointIDs, bake.Uint64Type); err != nil {
		return nil, err
	}
	if p.velocities, err = optionalArray(c, propVelocities, bake.V3fType); err != nil {
		return nil, err
	}
	if p.widths, err = optionalArray(c, propPointWidths, bake.Float32Type); err != nil {
		return nil, err
	}
	return p, nil
}

// Object returns the underlying object.
func (p *Points) Object() *bake.Object { return p.obj }

// SampleCount returns the number of position samples.
func (p *Points) SampleCount() (int, error) { return p.positions.SampleCount() }

// TimeSampling returns the time sampling of the positions property.
func (p *Points) TimeSampling() (bake.TimeSampling, error) { return p.positions.TimeSampling() }

// Sample reads the point cloud sample at index i.
func (p *Points) Sample(i int) (*PointsSample, error) {
	if err := checkIndex(p.positions, i); err != nil {
		return nil, err
	}
	pos, err := float32sAt(p.positions, i)
	if err != nil {
		return nil, err
	}
	idIx, err := clampIndex(p.ids, i)
	if err != nil {
		return nil, err
	}
	idSample, err := p.ids.Sample(idIx)
	if err != nil {
		return nil, err
	}
	ids, err := idSample.Uint64s()
	if err != nil {
		return nil, err
	}
	s := &PointsSample{Positions: group3(pos), IDs: ids}
	if len(s.IDs) != len(s.Positions) {
		return nil, fmt.Errorf("%w: %d ids for %d positions", bake.ErrFormat, len(s.IDs), len(s.Positions))
	}
	if p.velocities != nil {
		flat, err := float32sAt(p.velocities, i)
		if err != nil {
			return nil, err
		}
		s.Velocities = group3(flat)
	}
	if p.widths != nil {
		if s.Widths, err = float32sAt(p.widths, i); err != nil {
			return nil, err
		}
	}
	return s, nil
}
