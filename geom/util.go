package geom

import (
	"errors"
	"fmt"

	"github.com/strata3d/bake"
)

// Schema properties live under a single compound on the object so they never
// collide with user properties on the object's root compound.
const geomProperty = ".geom"

// createGeomObject creates a child object carrying the schema identifier in
// its metadata plus the compound that will hold the schema's properties.
// Extra metadata is given as alternating key, value pairs.
func createGeomObject(parent *bake.ObjectWriter, name, schema string, extra ...string) (*bake.ObjectWriter, *bake.CompoundWriter, error) {
	obj, err := parent.CreateChild(name, bake.NewMetadata(append([]string{bake.MetaSchema, schema}, extra...)...))
	if err != nil {
		return nil, nil, err
	}
	props, err := obj.Properties().CreateCompound(geomProperty, bake.Metadata{})
	if err != nil {
		return nil, nil, err
	}
	return obj, props, nil
}

// geomProperties resolves the schema compound of an object, checking the
// schema identifier first.
func geomProperties(o *bake.Object, schema string) (*bake.Compound, error) {
	if got := o.Metadata().Schema(); got != schema {
		return nil, fmt.Errorf("%w: object %q has schema %q, want %q",
			bake.ErrSchemaMismatch, o.FullName(), got, schema)
	}
	props, err := o.Properties()
	if err != nil {
		return nil, err
	}
	cp, err := props.Compound(geomProperty)
	if err != nil {
		if errors.Is(err, bake.ErrNotFound) {
			return nil, fmt.Errorf("%w: object %q has no %s compound",
				bake.ErrSchemaMismatch, o.FullName(), geomProperty)
		}
		return nil, err
	}
	return cp.Properties()
}

// requireArray resolves a required array property. A missing property is a
// schema mismatch; a property of the wrong element type is a type mismatch.
func requireArray(c *bake.Compound, name string, dt bake.DataType) (*bake.ArrayProperty, error) {
	if !c.Has(name) {
		return nil, fmt.Errorf("%w: missing required property %q", bake.ErrSchemaMismatch, name)
	}
	p, err := c.Array(name)
	if err != nil {
		return nil, err
	}
	if got := p.Header().DataType; got != dt {
		return nil, fmt.Errorf("%w: property %q is %s, want %s", bake.ErrTypeMismatch, name, got, dt)
	}
	return p, nil
}

// optionalArray resolves an optional array property, returning nil when the
// property is absent.
func optionalArray(c *bake.Compound, name string, dt bake.DataType) (*bake.ArrayProperty, error) {
	if !c.Has(name) {
		return nil, nil
	}
	return requireArray(c, name, dt)
}

// requireScalar resolves a required scalar property.
func requireScalar(c *bake.Compound, name string, dt bake.DataType) (*bake.ScalarProperty, error) {
	if !c.Has(name) {
		return nil, fmt.Errorf("%w: missing required property %q", bake.ErrSchemaMismatch, name)
	}
	p, err := c.Scalar(name)
	if err != nil {
		return nil, err
	}
	if got := p.Header().DataType; got != dt {
		return nil, fmt.Errorf("%w: property %q is %s, want %s", bake.ErrTypeMismatch, name, got, dt)
	}
	return p, nil
}

// optionalScalar resolves an optional scalar property, returning nil when
// absent.
func optionalScalar(c *bake.Compound, name string, dt bake.DataType) (*bake.ScalarProperty, error) {
	if !c.Has(name) {
		return nil, nil
	}
	return requireScalar(c, name, dt)
}

// checkIndex bounds a sample index against the property that defines a
// view's sample count. Out of range indices are an error here, unlike the
// sibling clamp below.
func checkIndex(p interface{ SampleCount() (int, error) }, i int) error {
	n, err := p.SampleCount()
	if err != nil {
		return err
	}
	if i < 0 || i >= n {
		return fmt.Errorf("%w: sample %d of %d", bake.ErrIndexOutOfRange, i, n)
	}
	return nil
}

// clampIndex maps a sample index onto a property that may hold fewer samples
// than its siblings. Topology properties of a deforming mesh commonly hold a
// single sample while positions hold one per frame.
func clampIndex(p interface{ SampleCount() (int, error) }, i int) (int, error) {
	n, err := p.SampleCount()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: property has no samples", bake.ErrIndexOutOfRange)
	}
	if i >= n {
		i = n - 1
	}
	return i, nil
}

func float32sAt(p *bake.ArrayProperty, i int) ([]float32, error) {
	i, err := clampIndex(p, i)
	if err != nil {
		return nil, err
	}
	s, err := p.Sample(i)
	if err != nil {
		return nil, err
	}
	return s.Float32s()
}

func int32sAt(p *bake.ArrayProperty, i int) ([]int32, error) {
	i, err := clampIndex(p, i)
	if err != nil {
		return nil, err
	}
	s, err := p.Sample(i)
	if err != nil {
		return nil, err
	}
	return s.Int32s()
}
