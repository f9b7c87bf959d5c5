// Package bake reads and writes a hierarchical, time-sampled binary
// container format for baked 3D animation data: transforms, meshes, curves,
// point clouds, and cameras interchanged between independent applications.
//
// An archive is a tree of named objects, each carrying metadata and a set of
// typed properties. Properties hold sequences of samples; a time sampling
// registry maps sample indices to playback times. The geom subpackage
// interprets objects as typed geometry (PolyMesh, Xform, Camera, ...)
// according to the schema identifier in their metadata.
//
// # Writing
//
// Archives are write-once: a session appends blocks and is finalized by
// Close, after which the file is immutable. Identical sample payloads are
// stored once, so re-adding static geometry every frame costs nothing.
//
//	w, err := bake.Create("anim.bake")
//	if err != nil {
//	    return err
//	}
//	mesh, err := geom.CreatePolyMesh(w.Root(), "quad", 0)
//	if err != nil {
//	    return err
//	}
//	err = mesh.WriteSample(geom.PolyMeshSample{
//	    Positions:   positions,
//	    FaceCounts:  []int32{4},
//	    FaceIndices: []int32{0, 1, 2, 3},
//	})
//	if err != nil {
//	    return err
//	}
//	return w.Close()
//
// # Reading
//
// An opened archive is immutable and safe for unrestricted concurrent use;
// callers parallelize independent-object processing at their discretion.
// Traversal is lazy: walking the hierarchy reads header tables only, and
// sample payloads are read on demand.
//
//	a, err := bake.Open("anim.bake")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	root, err := a.Root()
//	if err != nil {
//	    return err
//	}
//	obj, err := root.ChildByName("quad")
//	if err != nil {
//	    return err
//	}
//	mesh, err := geom.NewPolyMesh(obj)
//	if err != nil {
//	    return err
//	}
//	sample, err := mesh.Sample(0)
//
// Float16 properties are storage-only: samples are written from raw binary16
// bits and decoded to float32 on read.
package bake
