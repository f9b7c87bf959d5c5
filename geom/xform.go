package geom

import (
	"fmt"

	"github.com/strata3d/bake"
)

const (
	propXformOps      = ".ops"
	propXformVals     = ".vals"
	propXformInherits = ".inherits"
)

// XformOpType identifies one transform operation. The single-axis variants
// take one value, Translate and Scale take three, Rotate takes an axis plus
// an angle, and Matrix takes sixteen.
type XformOpType uint8

const (
	OpTranslateX XformOpType = iota
	OpTranslateY
	OpTranslateZ
	OpRotateX
	OpRotateY
	OpRotateZ
	OpScaleX
	OpScaleY
	OpScaleZ
	OpTranslate
	OpRotate
	OpScale
	OpMatrix

	opTypeCount
)

var opValueCounts = [opTypeCount]int{
	OpTranslateX: 1,
	OpTranslateY: 1,
	OpTranslateZ: 1,
	OpRotateX:    1,
	OpRotateY:    1,
	OpRotateZ:    1,
	OpScaleX:     1,
	OpScaleY:     1,
	OpScaleZ:     1,
	OpTranslate:  3,
	OpRotate:     4,
	OpScale:      3,
	OpMatrix:     16,
}

// Valid reports whether t is a known operation code.
func (t XformOpType) Valid() bool { return t < opTypeCount }

// ValueCount returns the number of float64 values the operation consumes.
func (t XformOpType) ValueCount() int {
	if !t.Valid() {
		return 0
	}
	return opValueCounts[t]
}

// XformOp is one operation of a transform stack. Angles are in degrees.
type XformOp struct {
	Type   XformOpType
	Values []float64
}

func (op XformOp) validate() error {
	if !op.Type.Valid() {
		return fmt.Errorf("%w: unknown xform op code %d", bake.ErrValidation, op.Type)
	}
	if want := op.Type.ValueCount(); len(op.Values) != want {
		return fmt.Errorf("%w: xform op %d carries %d values, want %d",
			bake.ErrValidation, op.Type, len(op.Values), want)
	}
	return nil
}

func (op XformOp) matrix() M44d {
	v := op.Values
	switch op.Type {
	case OpTranslateX:
		return translateMatrix(v[0], 0, 0)
	case OpTranslateY:
		return translateMatrix(0, v[0], 0)
	case OpTranslateZ:
		return translateMatrix(0, 0, v[0])
	case OpRotateX:
		return rotateXMatrix(v[0])
	case OpRotateY:
		return rotateYMatrix(v[0])
	case OpRotateZ:
		return rotateZMatrix(v[0])
	case OpScaleX:
		return scaleMatrix(v[0], 1, 1)
	case OpScaleY:
		return scaleMatrix(1, v[0], 1)
	case OpScaleZ:
		return scaleMatrix(1, 1, v[0])
	case OpTranslate:
		return translateMatrix(v[0], v[1], v[2])
	case OpRotate:
		return axisAngleMatrix(v[0], v[1], v[2], v[3])
	case OpScale:
		return scaleMatrix(v[0], v[1], v[2])
	case OpMatrix:
		var m M44d
		copy(m[:], v)
		return m
	}
	return Identity()
}

// Translate returns a three-axis translation op.
func Translate(x, y, z float64) XformOp {
	return XformOp{Type: OpTranslate, Values: []float64{x, y, z}}
}

// RotateX returns a rotation about the X axis by deg degrees.
func RotateX(deg float64) XformOp { return XformOp{Type: OpRotateX, Values: []float64{deg}} }

// RotateY returns a rotation about the Y axis by deg degrees.
func RotateY(deg float64) XformOp { return XformOp{Type: OpRotateY, Values: []float64{deg}} }

// RotateZ returns a rotation about the Z axis by deg degrees.
func RotateZ(deg float64) XformOp { return XformOp{Type: OpRotateZ, Values: []float64{deg}} }

// Rotate returns a rotation about an arbitrary axis by deg degrees.
func Rotate(x, y, z, deg float64) XformOp {
	return XformOp{Type: OpRotate, Values: []float64{x, y, z, deg}}
}

// Scale returns a three-axis scale op.
func Scale(x, y, z float64) XformOp {
	return XformOp{Type: OpScale, Values: []float64{x, y, z}}
}

// Matrix returns an op carrying an explicit matrix.
func Matrix(m M44d) XformOp {
	return XformOp{Type: OpMatrix, Values: append([]float64(nil), m[:]...)}
}

// XformSample is one time sample of a transform: an ordered op stack plus
// the inheritance flag.
type XformSample struct {
	Ops []XformOp

	// Inherits reports whether the transform composes with its parent.
	// When false the transform is absolute.
	Inherits bool
}

// Matrix folds the op stack into a single matrix. Ops compose in stack
// order, first op innermost, so a stack of [Translate, RotateZ] evaluates
// to Translate * RotateZ.
func (s *XformSample) Matrix() M44d {
	m := Identity()
	for _, op := range s.Ops {
		m = m.Mul(op.matrix())
	}
	return m
}

func (s *XformSample) validate() error {
	for _, op := range s.Ops {
		if err := op.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *XformSample) encode() (ops []uint8, vals []float64, inherits []bool) {
	ops = make([]uint8, 0, len(s.Ops))
	for _, op := range s.Ops {
		ops = append(ops, uint8(op.Type))
		vals = append(vals, op.Values...)
	}
	return ops, vals, []bool{s.Inherits}
}

// XformWriter writes transform samples onto an object.
type XformWriter struct {
	obj      *bake.ObjectWriter
	ops      *bake.ArrayWriter
	vals     *bake.ArrayWriter
	inherits *bake.ScalarWriter
}

// CreateXform creates a child object of parent carrying the transform
// schema, sampled on the time sampling at tsIndex.
func CreateXform(parent *bake.ObjectWriter, name string, tsIndex uint32) (*XformWriter, error) {
	obj, props, err := createGeomObject(parent, name, SchemaXform)
	if err != nil {
		return nil, err
	}
	w := &XformWriter{obj: obj}
	if w.ops, err = props.CreateArray(propXformOps, bake.Uint8Type, bake.ScopeConstant, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	if w.vals, err = props.CreateArray(propXformVals, bake.Float64Type, bake.ScopeConstant, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	if w.inherits, err = props.CreateScalar(propXformInherits, bake.BoolType, bake.ScopeConstant, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	return w, nil
}

// Object exposes the underlying object writer so transformed children can be
// attached beneath it.
func (w *XformWriter) Object() *bake.ObjectWriter { return w.obj }

// WriteSample validates the sample and appends it.
func (w *XformWriter) WriteSample(s XformSample) error {
	if err := s.validate(); err != nil {
		return err
	}
	ops, vals, inherits := s.encode()
	if err := w.ops.AddSample(ops); err != nil {
		return err
	}
	if err := w.vals.AddSample(vals); err != nil {
		return err
	}
	return w.inherits.AddSample(inherits)
}

// Xform is a read view over an object carrying the transform schema.
type Xform struct {
	obj      *bake.Object
	ops      *bake.ArrayProperty
	vals     *bake.ArrayProperty
	inherits *bake.ScalarProperty
}

// NewXform validates the object against the transform schema and returns a
// typed view.
func NewXform(o *bake.Object) (*Xform, error) {
	c, err := geomProperties(o, SchemaXform)
	if err != nil {
		return nil, err
	}
	x := &Xform{obj: o}
	if x.ops, err = requireArray(c, propXformOps, bake.Uint8Type); err != nil {
		return nil, err
	}
	if x.vals, err = requireArray(c, propXformVals, bake.Float64Type); err != nil {
		return nil, err
	}
	if x.inherits, err = requireScalar(c, propXformInherits, bake.BoolType); err != nil {
		return nil, err
	}
	return x, nil
}

// Object returns the underlying object.
func (x *Xform) Object() *bake.Object { return x.obj }

// SampleCount returns the number of transform samples.
func (x *Xform) SampleCount() (int, error) { return x.ops.SampleCount() }

// TimeSampling returns the time sampling of the op stack.
func (x *Xform) TimeSampling() (bake.TimeSampling, error) { return x.ops.TimeSampling() }

// IsConstant reports whether the transform never changes over time.
func (x *Xform) IsConstant() (bool, error) {
	for _, p := range []interface{ IsConstant() (bool, error) }{x.ops, x.vals, x.inherits} {
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

// Sample reads the transform sample at index i.
func (x *Xform) Sample(i int) (*XformSample, error) {
	if err := checkIndex(x.ops, i); err != nil {
		return nil, err
	}
	opsSample, err := x.ops.Sample(i)
	if err != nil {
		return nil, err
	}
	codes, err := opsSample.Uint8s()
	if err != nil {
		return nil, err
	}
	vi, err := clampIndex(x.vals, i)
	if err != nil {
		return nil, err
	}
	valsSample, err := x.vals.Sample(vi)
	if err != nil {
		return nil, err
	}
	vals, err := valsSample.Float64s()
	if err != nil {
		return nil, err
	}
	ii, err := clampIndex(x.inherits, i)
	if err != nil {
		return nil, err
	}
	inhSample, err := x.inherits.Sample(ii)
	if err != nil {
		return nil, err
	}
	inherits, err := inhSample.Bools()
	if err != nil {
		return nil, err
	}
	s := &XformSample{Inherits: len(inherits) == 1 && inherits[0]}
	off := 0
	for _, code := range codes {
		t := XformOpType(code)
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown xform op code %d", bake.ErrFormat, code)
		}
		n := t.ValueCount()
		if off+n > len(vals) {
			return nil, fmt.Errorf("%w: xform op stack needs %d values, have %d",
				bake.ErrFormat, off+n, len(vals))
		}
		s.Ops = append(s.Ops, XformOp{Type: t, Values: vals[off : off+n : off+n]})
		off += n
	}
	if off != len(vals) {
		return nil, fmt.Errorf("%w: %d trailing xform values", bake.ErrFormat, len(vals)-off)
	}
	return s, nil
}
