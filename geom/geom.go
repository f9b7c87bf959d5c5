// Package geom provides typed views over bake objects according to a named
// schema convention, and typed sample builders for writing.
//
// A view validates the presence, type, and scope of an object's required
// properties before any sample is read; construction fails with
// bake.ErrSchemaMismatch when required properties are missing and generic
// property access on the same object remains usable. Builders are the
// mirror: they validate domain consistency of a typed sample and fail with
// bake.ErrValidation before anything is written.
package geom

import "github.com/strata3d/bake"

// Schema identifier values stored under the reserved schema metadata key.
const (
	SchemaPolyMesh = "PolyMesh"
	SchemaSubD     = "SubD"
	SchemaCurves   = "Curves"
	SchemaPoints   = "Points"
	SchemaCamera   = "Camera"
	SchemaXform    = "Xform"
	SchemaFaceSet  = "FaceSet"
	SchemaLight    = "Light"
)

// Kind is the closed set of schema kinds this package understands.
type Kind uint8

const (
	// KindUnknown marks objects without a recognized schema identifier.
	// Generic property access still works on them.
	KindUnknown Kind = iota
	KindPolyMesh
	KindSubD
	KindCurves
	KindPoints
	KindCamera
	KindXform
	KindFaceSet
	KindLight
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindPolyMesh: SchemaPolyMesh,
	KindSubD:     SchemaSubD,
	KindCurves:   SchemaCurves,
	KindPoints:   SchemaPoints,
	KindCamera:   SchemaCamera,
	KindXform:    SchemaXform,
	KindFaceSet:  SchemaFaceSet,
	KindLight:    SchemaLight,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

var schemaKinds = map[string]Kind{
	SchemaPolyMesh: KindPolyMesh,
	SchemaSubD:     KindSubD,
	SchemaCurves:   KindCurves,
	SchemaPoints:   KindPoints,
	SchemaCamera:   KindCamera,
	SchemaXform:    KindXform,
	SchemaFaceSet:  KindFaceSet,
	SchemaLight:    KindLight,
}

// KindOf returns the schema kind recorded in the object's metadata,
// dispatching once on the schema identifier string.
func KindOf(o *bake.Object) Kind {
	return schemaKinds[o.Metadata().Schema()]
}
