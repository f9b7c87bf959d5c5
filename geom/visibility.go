package geom

import (
	"errors"
	"fmt"

	"github.com/strata3d/bake"
)

// propVisible lives on the object's root compound, not under the schema
// compound, so any object can carry it regardless of kind.
const propVisible = "visible"

// Visibility controls whether an object and its subtree are drawn.
type Visibility int8

const (
	// VisibilityDeferred defers to the parent object. It is also the
	// effective value of objects without a visibility property.
	VisibilityDeferred Visibility = -1
	VisibilityHidden   Visibility = 0
	VisibilityVisible  Visibility = 1
)

func (v Visibility) String() string {
	switch v {
	case VisibilityDeferred:
		return "deferred"
	case VisibilityHidden:
		return "hidden"
	case VisibilityVisible:
		return "visible"
	}
	return fmt.Sprintf("visibility(%d)", int8(v))
}

// VisibilityWriter writes visibility samples onto an object of any kind.
type VisibilityWriter struct {
	prop *bake.ScalarWriter
}

// CreateVisibility attaches a visibility property to an object.
func CreateVisibility(o *bake.ObjectWriter, tsIndex uint32) (*VisibilityWriter, error) {
	p, err := o.Properties().CreateScalar(propVisible, bake.Int8Type, bake.ScopeConstant, tsIndex, bake.Metadata{})
	if err != nil {
		return nil, err
	}
	return &VisibilityWriter{prop: p}, nil
}

// WriteSample appends one visibility sample.
func (w *VisibilityWriter) WriteSample(v Visibility) error {
	switch v {
	case VisibilityDeferred, VisibilityHidden, VisibilityVisible:
	default:
		return fmt.Errorf("%w: visibility value %d", bake.ErrValidation, int8(v))
	}
	return w.prop.AddSample([]int8{int8(v)})
}

// VisibilityAt reads the visibility of an object at sample index i.
// Objects without a visibility property defer to their parent. An index past
// the property's last sample reads the last recorded state, so a short
// visibility track holds for the rest of the animation.
func VisibilityAt(o *bake.Object, i int) (Visibility, error) {
	props, err := o.Properties()
	if err != nil {
		return VisibilityDeferred, err
	}
	if !props.Has(propVisible) {
		return VisibilityDeferred, nil
	}
	p, err := props.Scalar(propVisible)
	if err != nil {
		return VisibilityDeferred, err
	}
	if got := p.Header().DataType; got != bake.Int8Type {
		return VisibilityDeferred, fmt.Errorf("%w: visibility property is %s", bake.ErrTypeMismatch, got)
	}
	ci, err := clampIndex(p, i)
	if err != nil {
		return VisibilityDeferred, err
	}
	s, err := p.Sample(ci)
	if err != nil {
		return VisibilityDeferred, err
	}
	vals, err := s.Int8s()
	if err != nil {
		return VisibilityDeferred, err
	}
	if len(vals) != 1 {
		return VisibilityDeferred, fmt.Errorf("%w: visibility sample has %d values", bake.ErrFormat, len(vals))
	}
	switch v := Visibility(vals[0]); v {
	case VisibilityDeferred, VisibilityHidden, VisibilityVisible:
		return v, nil
	default:
		return VisibilityDeferred, fmt.Errorf("%w: visibility value %d", bake.ErrFormat, vals[0])
	}
}

// EffectiveVisibility resolves deferred visibility by walking up the given
// ancestor chain, nearest parent first. Everything unresolved at the root is
// visible.
func EffectiveVisibility(o *bake.Object, ancestors []*bake.Object, i int) (Visibility, error) {
	v, err := VisibilityAt(o, i)
	if err != nil && !errors.Is(err, bake.ErrIndexOutOfRange) {
		return VisibilityDeferred, err
	}
	if v != VisibilityDeferred {
		return v, nil
	}
	for _, a := range ancestors {
		v, err = VisibilityAt(a, i)
		if err != nil && !errors.Is(err, bake.ErrIndexOutOfRange) {
			return VisibilityDeferred, err
		}
		if v != VisibilityDeferred {
			return v, nil
		}
	}
	return VisibilityVisible, nil
}
