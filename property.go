package bake

import (
	"fmt"
	"sync"

	"github.com/strata3d/bake/container"
)

// Property is the common read interface over the three property kinds.
// Concrete types are *ScalarProperty, *ArrayProperty, and *CompoundProperty.
type Property interface {
	Name() string
	Kind() PropertyKind
	Header() PropertyHeader
}

// Compound provides read access to a set of named child properties.
type Compound struct {
	a       *Archive
	headers []PropertyHeader
	nodes   []container.Ref
}

// Len returns the number of child properties.
func (c *Compound) Len() int { return len(c.headers) }

// HeaderAt returns the header of the i-th child property.
func (c *Compound) HeaderAt(i int) (PropertyHeader, error) {
	if i < 0 || i >= len(c.headers) {
		return PropertyHeader{}, fmt.Errorf("%w: property %d of %d", ErrIndexOutOfRange, i, len(c.headers))
	}
	return c.headers[i], nil
}

// PropertyAt returns the i-th child property.
func (c *Compound) PropertyAt(i int) (Property, error) {
	if i < 0 || i >= len(c.headers) {
		return nil, fmt.Errorf("%w: property %d of %d", ErrIndexOutOfRange, i, len(c.headers))
	}
	h := c.headers[i]
	node := c.nodes[i]
	switch h.Kind {
	case KindCompound:
		if !node.IsGroup() {
			return nil, fmt.Errorf("%w: compound property %q is not a group", ErrFormat, h.Name)
		}
		return newCompoundProperty(c.a, h, node), nil
	case KindScalar:
		return &ScalarProperty{propertyReader: newPropertyReader(c.a, h, node)}, nil
	default:
		return &ArrayProperty{propertyReader: newPropertyReader(c.a, h, node)}, nil
	}
}

// Property returns the child property with the given name.
func (c *Compound) Property(name string) (Property, error) {
	for i, h := range c.headers {
		if h.Name == name {
			return c.PropertyAt(i)
		}
	}
	return nil, fmt.Errorf("%w: property %q", ErrNotFound, name)
}

// Has reports whether a child property with the given name exists.
func (c *Compound) Has(name string) bool {
	for _, h := range c.headers {
		if h.Name == name {
			return true
		}
	}
	return false
}

// Scalar returns the named child property, which must be scalar.
func (c *Compound) Scalar(name string) (*ScalarProperty, error) {
	p, err := c.Property(name)
	if err != nil {
		return nil, err
	}
	sp, ok := p.(*ScalarProperty)
	if !ok {
		return nil, fmt.Errorf("%w: property %q is %s, not scalar", ErrTypeMismatch, name, p.Kind())
	}
	return sp, nil
}

// Array returns the named child property, which must be an array.
func (c *Compound) Array(name string) (*ArrayProperty, error) {
	p, err := c.Property(name)
	if err != nil {
		return nil, err
	}
	ap, ok := p.(*ArrayProperty)
	if !ok {
		return nil, fmt.Errorf("%w: property %q is %s, not array", ErrTypeMismatch, name, p.Kind())
	}
	return ap, nil
}

// Compound returns the named child property, which must be compound.
func (c *Compound) Compound(name string) (*CompoundProperty, error) {
	p, err := c.Property(name)
	if err != nil {
		return nil, err
	}
	cp, ok := p.(*CompoundProperty)
	if !ok {
		return nil, fmt.Errorf("%w: property %q is %s, not compound", ErrTypeMismatch, name, p.Kind())
	}
	return cp, nil
}

// CompoundProperty is a named compound read lazily from the container.
type CompoundProperty struct {
	header PropertyHeader
	load   func() (*Compound, error)
}

func newCompoundProperty(a *Archive, h PropertyHeader, ref container.Ref) *CompoundProperty {
	return &CompoundProperty{
		header: h,
		load: sync.OnceValues(func() (*Compound, error) {
			group, err := a.cr.ReadGroup(ref)
			if err != nil {
				return nil, err
			}
			if len(group) < compoundFirstPropChild || !group[compoundHeadersChild].IsData() {
				return nil, fmt.Errorf("%w: malformed compound property %q", ErrFormat, h.Name)
			}
			raw, err := a.cr.ReadData(group[compoundHeadersChild])
			if err != nil {
				return nil, err
			}
			headers, err := decodePropertyHeaders(raw)
			if err != nil {
				return nil, fmt.Errorf("compound %q: %w", h.Name, err)
			}
			if len(group) != compoundFirstPropChild+len(headers) {
				return nil, fmt.Errorf("%w: compound property %q has %d nodes, want %d",
					ErrFormat, h.Name, len(group)-compoundFirstPropChild, len(headers))
			}
			return &Compound{a: a, headers: headers, nodes: group[compoundFirstPropChild:]}, nil
		}),
	}
}

func (p *CompoundProperty) Name() string           { return p.header.Name }
func (p *CompoundProperty) Kind() PropertyKind     { return KindCompound }
func (p *CompoundProperty) Header() PropertyHeader { return p.header }

// Properties returns the compound's children.
func (p *CompoundProperty) Properties() (*Compound, error) { return p.load() }

// propertyReader is the shared core of scalar and array reads: a lazily
// loaded list of sample block references.
type propertyReader struct {
	a       *Archive
	header  PropertyHeader
	samples func() ([]container.Ref, error)
}

func newPropertyReader(a *Archive, h PropertyHeader, ref container.Ref) propertyReader {
	return propertyReader{
		a:      a,
		header: h,
		samples: sync.OnceValues(func() ([]container.Ref, error) {
			refs, err := a.cr.ReadGroup(ref)
			if err != nil {
				return nil, err
			}
			for _, r := range refs {
				if !r.IsData() {
					return nil, fmt.Errorf("%w: property %q has a non-data sample reference", ErrFormat, h.Name)
				}
			}
			return refs, nil
		}),
	}
}

func (p *propertyReader) Name() string           { return p.header.Name }
func (p *propertyReader) Header() PropertyHeader { return p.header }

// SampleCount returns the number of stored samples.
func (p *propertyReader) SampleCount() (int, error) {
	refs, err := p.samples()
	if err != nil {
		return 0, err
	}
	return len(refs), nil
}

// IsConstant reports whether every stored sample references the same data
// block, i.e. deduplication collapsed all samples to one.
func (p *propertyReader) IsConstant() (bool, error) {
	refs, err := p.samples()
	if err != nil {
		return false, err
	}
	for _, r := range refs[1:] {
		if r != refs[0] {
			return false, nil
		}
	}
	return true, nil
}

// Sample returns the decoded sample at index i.
func (p *propertyReader) Sample(i int) (*Sample, error) {
	refs, err := p.samples()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(refs) {
		return nil, fmt.Errorf("%w: sample %d of %d in property %q",
			ErrIndexOutOfRange, i, len(refs), p.header.Name)
	}
	payload, err := p.a.cr.ReadData(refs[i])
	if err != nil {
		return nil, err
	}
	s, err := decodeSample(p.header.DataType, payload)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", p.header.Name, err)
	}
	return s, nil
}

// TimeSampling resolves the property's sampling descriptor.
func (p *propertyReader) TimeSampling() (TimeSampling, error) {
	return p.a.TimeSamplingAt(p.header.TimeSampling)
}

// SampleAtTime returns the sample whose time is the floor of t.
func (p *propertyReader) SampleAtTime(t float64) (*Sample, error) {
	n, err := p.SampleCount()
	if err != nil {
		return nil, err
	}
	ts, err := p.TimeSampling()
	if err != nil {
		return nil, err
	}
	idx, _ := ts.FloorIndex(t, n)
	return p.Sample(idx)
}

// ScalarProperty reads samples of a scalar property; every sample holds
// exactly one element.
type ScalarProperty struct {
	propertyReader
}

func (p *ScalarProperty) Kind() PropertyKind { return KindScalar }

// ArrayProperty reads samples of an array property; sample lengths may
// differ across samples.
type ArrayProperty struct {
	propertyReader
}

func (p *ArrayProperty) Kind() PropertyKind { return KindArray }
