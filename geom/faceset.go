package geom

import (
	"fmt"
	"sort"

	"github.com/strata3d/bake"
)

const (
	propFaceSetFaces = ".faces"

	// metaFacesExclusive marks a face set whose faces may not appear in any
	// sibling face set of the same mesh.
	metaFacesExclusive = "facesExclusive"
)

// FaceSetSample is one time sample of a face set: the face indices of the
// parent mesh that belong to the set.
type FaceSetSample struct {
	Faces []int32
}

func (s *FaceSetSample) validate() error {
	for _, f := range s.Faces {
		if f < 0 {
			return fmt.Errorf("%w: negative face index %d", bake.ErrValidation, f)
		}
	}
	if !sort.SliceIsSorted(s.Faces, func(i, j int) bool { return s.Faces[i] < s.Faces[j] }) {
		return fmt.Errorf("%w: face set indices must be sorted", bake.ErrValidation)
	}
	return nil
}

// FaceSetWriter writes face set samples onto an object. Face sets are
// created as children of the mesh object they partition.
type FaceSetWriter struct {
	obj   *bake.ObjectWriter
	faces *bake.ArrayWriter
}

// CreateFaceSet creates a child object of parent carrying the face set
// schema. When exclusive is true the set is marked as non-overlapping with
// its siblings; the flag is a contract for consumers, not enforced here.
func CreateFaceSet(parent *bake.ObjectWriter, name string, tsIndex uint32, exclusive bool) (*FaceSetWriter, error) {
	var extra []string
	if exclusive {
		extra = []string{metaFacesExclusive, "true"}
	}
	obj, props, err := createGeomObject(parent, name, SchemaFaceSet, extra...)
	if err != nil {
		return nil, err
	}
	w := &FaceSetWriter{obj: obj}
	if w.faces, err = props.CreateArray(propFaceSetFaces, bake.Int32Type, bake.ScopeUniform, tsIndex, bake.Metadata{}); err != nil {
		return nil, err
	}
	return w, nil
}

// Object exposes the underlying object writer.
func (w *FaceSetWriter) Object() *bake.ObjectWriter { return w.obj }

// WriteSample validates the sample and appends it.
func (w *FaceSetWriter) WriteSample(s FaceSetSample) error {
	if err := s.validate(); err != nil {
		return err
	}
	return w.faces.AddSample(s.Faces)
}

// FaceSet is a read view over an object carrying the face set schema.
type FaceSet struct {
	obj   *bake.Object
	faces *bake.ArrayProperty
}

// NewFaceSet validates the object against the face set schema and returns a
// typed view.
func NewFaceSet(o *bake.Object) (*FaceSet, error) {
	c, err := geomProperties(o, SchemaFaceSet)
	if err != nil {
		return nil, err
	}
	fs := &FaceSet{obj: o}
	if fs.faces, err = requireArray(c, propFaceSetFaces, bake.Int32Type); err != nil {
		return nil, err
	}
	return fs, nil
}

// Object returns the underlying object.
func (fs *FaceSet) Object() *bake.Object { return fs.obj }

// Exclusive reports whether the set was marked non-overlapping with its
// siblings.
func (fs *FaceSet) Exclusive() bool {
	v, _ := fs.obj.Metadata().Get(metaFacesExclusive)
	return v == "true"
}

// SampleCount returns the number of face set samples.
func (fs *FaceSet) SampleCount() (int, error) { return fs.faces.SampleCount() }

// Sample reads the face set sample at index i.
func (fs *FaceSet) Sample(i int) (*FaceSetSample, error) {
	if err := checkIndex(fs.faces, i); err != nil {
		return nil, err
	}
	faces, err := int32sAt(fs.faces, i)
	if err != nil {
		return nil, err
	}
	return &FaceSetSample{Faces: faces}, nil
}
