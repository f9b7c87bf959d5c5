package bake

import (
	"fmt"
	"sync"

	"github.com/strata3d/bake/container"
)

// Object is a named node of the hierarchy, materialized lazily from the
// container.
//
// An Object is created from its parent's header table; its own group, child
// headers, and property headers are read on first access, and traversing
// children never loads any property's samples. Objects are safe for
// concurrent use.
type Object struct {
	a        *Archive
	name     string
	fullName string
	meta     Metadata

	state func() (*objectState, error)
}

type objectState struct {
	childHeaders []objectHeader
	propHeaders  []PropertyHeader
	propNodes    []container.Ref
	childRefs    []container.Ref
}

func newObject(a *Archive, ref container.Ref, name, fullName string, meta Metadata) *Object {
	o := &Object{a: a, name: name, fullName: fullName, meta: meta}
	o.state = sync.OnceValues(func() (*objectState, error) {
		group, err := a.cr.ReadGroup(ref)
		if err != nil {
			return nil, err
		}
		if len(group) < objFirstPropChild ||
			!group[objChildHeadersChild].IsData() || !group[objPropHeadersChild].IsData() {
			return nil, fmt.Errorf("%w: malformed object group for %q", ErrFormat, fullName)
		}

		rawChildren, err := a.cr.ReadData(group[objChildHeadersChild])
		if err != nil {
			return nil, err
		}
		childHeaders, err := decodeObjectHeaders(rawChildren)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", fullName, err)
		}

		rawProps, err := a.cr.ReadData(group[objPropHeadersChild])
		if err != nil {
			return nil, err
		}
		propHeaders, err := decodePropertyHeaders(rawProps)
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", fullName, err)
		}

		if len(group) != objFirstPropChild+len(propHeaders)+len(childHeaders) {
			return nil, fmt.Errorf("%w: object group for %q has %d children, want %d",
				ErrFormat, fullName, len(group), objFirstPropChild+len(propHeaders)+len(childHeaders))
		}
		return &objectState{
			childHeaders: childHeaders,
			propHeaders:  propHeaders,
			propNodes:    group[objFirstPropChild : objFirstPropChild+len(propHeaders)],
			childRefs:    group[objFirstPropChild+len(propHeaders):],
		}, nil
	})
	return o
}

// Name returns the object's name, or "" for the root.
func (o *Object) Name() string { return o.name }

// FullName returns the object's path from the root.
func (o *Object) FullName() string { return o.fullName }

// Metadata returns the object's metadata, as recorded on its parent.
func (o *Object) Metadata() Metadata { return o.meta }

// NumChildren returns the number of child objects.
func (o *Object) NumChildren() (int, error) {
	st, err := o.state()
	if err != nil {
		return 0, err
	}
	return len(st.childHeaders), nil
}

// Child returns the i-th child object.
func (o *Object) Child(i int) (*Object, error) {
	st, err := o.state()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(st.childHeaders) {
		return nil, fmt.Errorf("%w: child %d of %d", ErrIndexOutOfRange, i, len(st.childHeaders))
	}
	h := st.childHeaders[i]
	fullName := o.fullName + h.name
	if o.name != "" {
		fullName = o.fullName + "/" + h.name
	}
	return newObject(o.a, st.childRefs[i], h.name, fullName, h.metadata), nil
}

// ChildByName returns the child object with the given name.
func (o *Object) ChildByName(name string) (*Object, error) {
	st, err := o.state()
	if err != nil {
		return nil, err
	}
	for i, h := range st.childHeaders {
		if h.name == name {
			return o.Child(i)
		}
	}
	return nil, fmt.Errorf("%w: object %q under %q", ErrNotFound, name, o.fullName)
}

// Children returns all child objects. The children are lazy shells; no
// property data is read.
func (o *Object) Children() ([]*Object, error) {
	st, err := o.state()
	if err != nil {
		return nil, err
	}
	out := make([]*Object, len(st.childHeaders))
	for i := range st.childHeaders {
		c, err := o.Child(i)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Properties returns the object's root compound property.
func (o *Object) Properties() (*Compound, error) {
	st, err := o.state()
	if err != nil {
		return nil, err
	}
	return &Compound{a: o.a, headers: st.propHeaders, nodes: st.propNodes}, nil
}
