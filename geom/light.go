package geom

import "github.com/strata3d/bake"

// LightWriter writes light samples onto an object. A light optionally
// carries the packed camera sample describing its frustum; lights without
// one are markers whose parameters live in user properties.
type LightWriter struct {
	obj     *bake.ObjectWriter
	props   *bake.CompoundWriter
	tsIndex uint32
	core    *bake.ScalarWriter
}

// CreateLight creates a child object of parent carrying the light schema,
// sampled on the time sampling at tsIndex.
func CreateLight(parent *bake.ObjectWriter, name string, tsIndex uint32) (*LightWriter, error) {
	obj, props, err := createGeomObject(parent, name, SchemaLight)
	if err != nil {
		return nil, err
	}
	return &LightWriter{obj: obj, props: props, tsIndex: tsIndex}, nil
}

// Object exposes the underlying object writer, for user properties holding
// intensity, color, and similar parameters.
func (w *LightWriter) Object() *bake.ObjectWriter { return w.obj }

// WriteCameraSample validates and appends a frustum sample. The property is
// created on first use; lights never written to stay markers.
func (w *LightWriter) WriteCameraSample(s CameraSample) error {
	if err := s.validate(); err != nil {
		return err
	}
	if w.core == nil {
		var err error
		if w.core, err = w.props.CreateScalar(propCameraCore, cameraCoreType, bake.ScopeConstant, w.tsIndex, bake.Metadata{}); err != nil {
			return err
		}
	}
	return w.core.AddSample(s.pack())
}

// Light is a read view over an object carrying the light schema.
type Light struct {
	obj  *bake.Object
	core *bake.ScalarProperty
}

// NewLight validates the object against the light schema and returns a
// typed view.
func NewLight(o *bake.Object) (*Light, error) {
	c, err := geomProperties(o, SchemaLight)
	if err != nil {
		return nil, err
	}
	l := &Light{obj: o}
	if l.core, err = optionalScalar(c, propCameraCore, cameraCoreType); err != nil {
		return nil, err
	}
	return l, nil
}

// Object returns the underlying object.
func (l *Light) Object() *bake.Object { return l.obj }

// HasCamera reports whether the light carries frustum samples.
func (l *Light) HasCamera() bool { return l.core != nil }

// SampleCount returns the number of frustum samples, zero for marker
// lights.
func (l *Light) SampleCount() (int, error) {
	if l.core == nil {
		return 0, nil
	}
	return l.core.SampleCount()
}

// CameraSample reads the frustum sample at index i.
func (l *Light) CameraSample(i int) (CameraSample, error) {
	if l.core == nil {
		return CameraSample{}, bake.ErrNotFound
	}
	s, err := l.core.Sample(i)
	if err != nil {
		return CameraSample{}, err
	}
	vals, err := s.Float64s()
	if err != nil {
		return CameraSample{}, err
	}
	return unpackCameraSample(vals)
}
