package bake

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/strata3d/bake/container"
)

// LibraryVersion is recorded in the archive metadata of every file written
// by this library.
const LibraryVersion = "1.0.0"

const libraryName = "strata3d/bake"

// Writer is a single-session archive writer.
//
// A Writer accumulates an object hierarchy and streams property samples to
// disk as they are added; Close writes the group tables and freezes the
// file. Writers are not safe for concurrent use; callers serialize access.
type Writer struct {
	cw        *container.Writer
	f         *os.File
	path      string
	root      *ObjectWriter
	samplings []TimeSampling
	meta      Metadata
	logger    *slog.Logger
	closed    bool
}

type createConfig struct {
	containerOpts []container.WriterOption
	logger        *slog.Logger
}

// CreateOption configures Create.
type CreateOption func(*createConfig)

// CreateWithCompressionLevel sets the zstd level for block compression.
func CreateWithCompressionLevel(level zstd.EncoderLevel) CreateOption {
	return func(c *createConfig) {
		c.containerOpts = append(c.containerOpts, container.WithCompressionLevel(level))
	}
}

// CreateWithoutCompression stores every block raw.
func CreateWithoutCompression() CreateOption {
	return func(c *createConfig) {
		c.containerOpts = append(c.containerOpts, container.WithoutCompression())
	}
}

// CreateWithoutDedup disables content deduplication for the session.
func CreateWithoutDedup() CreateOption {
	return func(c *createConfig) {
		c.containerOpts = append(c.containerOpts, container.WithoutDedup())
	}
}

// CreateWithLogger sets the logger for write-session debug events.
func CreateWithLogger(logger *slog.Logger) CreateOption {
	return func(c *createConfig) {
		c.logger = logger
		c.containerOpts = append(c.containerOpts, container.WithWriterLogger(logger))
	}
}

// Create creates a new archive file at path for writing.
//
// The file is not a valid archive until Close returns successfully; a
// session abandoned without Close leaves a file that every reader rejects
// as not frozen.
func Create(path string, opts ...CreateOption) (*Writer, error) {
	var cfg createConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	cw, f, err := container.Create(path, cfg.containerOpts...)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		cw:        cw,
		f:         f,
		path:      path,
		samplings: []TimeSampling{IdentitySampling()},
		logger:    cfg.logger,
	}
	w.meta.Set(MetaWrittenBy, libraryName)
	w.meta.Set(MetaLibraryVersion, LibraryVersion)
	w.root = &ObjectWriter{
		w:        w,
		name:     "",
		fullName: "/",
		props:    &CompoundWriter{w: w},
	}
	return w, nil
}

func (w *Writer) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.logger
}

// Root returns the root object of the archive being written.
func (w *Writer) Root() *ObjectWriter { return w.root }

// SetMetadata stores an archive-level metadata entry.
func (w *Writer) SetMetadata(key, value string) { w.meta.Set(key, value) }

// Stats returns the container write statistics accumulated so far.
func (w *Writer) Stats() container.Stats { return w.cw.Stats() }

// AddTimeSampling registers a sampling descriptor and returns its index.
//
// Descriptors are deduplicated by structural equality: registering an equal
// descriptor twice returns the same index. Index 0 is always the identity
// sampling.
func (w *Writer) AddTimeSampling(ts TimeSampling) (uint32, error) {
	if w.closed {
		return 0, ErrFrozen
	}
	if err := ts.Validate(); err != nil {
		return 0, err
	}
	for i, existing := range w.samplings {
		if existing.Equal(ts) {
			return uint32(i), nil
		}
	}
	w.samplings = append(w.samplings, ts)
	return uint32(len(w.samplings) - 1), nil
}

// NumTimeSamplings returns the number of registered sampling descriptors.
func (w *Writer) NumTimeSamplings() int { return len(w.samplings) }

// Close flushes the object hierarchy, freezes the archive, and closes the
// file. After a successful Close the file is safe for concurrent readers.
func (w *Writer) Close() error {
	if w.closed {
		return ErrFrozen
	}

	root, err := w.finishArchive()
	if err != nil {
		w.f.Close()
		return err
	}
	if err := w.cw.Finalize(root); err != nil {
		w.f.Close()
		return err
	}
	w.closed = true
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("bake: close %s: %w", w.path, err)
	}
	stats := w.cw.Stats()
	w.log().Debug("archive written",
		"path", w.path,
		"dataBlocks", stats.DataBlocks,
		"dedupedBlocks", stats.DedupedBlocks,
		"groups", stats.Groups)
	return nil
}

// Abort abandons the session, closing and removing the partial file.
func (w *Writer) Abort() error {
	if w.closed {
		return ErrFrozen
	}
	w.closed = true
	w.f.Close()
	if err := os.Remove(w.path); err != nil {
		return fmt.Errorf("bake: abort %s: %w", w.path, err)
	}
	return nil
}

func (w *Writer) finishArchive() (container.Ref, error) {
	metaRef, err := w.cw.WriteData([]byte(w.meta.Encode()))
	if err != nil {
		return 0, err
	}
	samplingRef, err := w.cw.WriteData(encodeSamplingTable(w.samplings))
	if err != nil {
		return 0, err
	}
	rootObj, err := w.flushObject(w.root)
	if err != nil {
		return 0, err
	}
	return w.cw.WriteGroup([]container.Ref{metaRef, samplingRef, rootObj})
}

func (w *Writer) flushObject(o *ObjectWriter) (container.Ref, error) {
	childHeaders := make([]objectHeader, len(o.children))
	for i, c := range o.children {
		childHeaders[i] = objectHeader{name: c.name, metadata: c.meta}
	}
	childHeadersRef, err := w.cw.WriteData(encodeObjectHeaders(childHeaders))
	if err != nil {
		return 0, err
	}

	propHeadersRef, propNodes, err := w.flushCompound(o.props)
	if err != nil {
		return 0, err
	}

	group := make([]container.Ref, 0, 2+len(propNodes)+len(o.children))
	group = append(group, childHeadersRef, propHeadersRef)
	group = append(group, propNodes...)
	for _, c := range o.children {
		ref, err := w.flushObject(c)
		if err != nil {
			return 0, err
		}
		group = append(group, ref)
	}
	return w.cw.WriteGroup(group)
}

func (w *Writer) flushCompound(c *CompoundWriter) (container.Ref, []container.Ref, error) {
	headers := make([]PropertyHeader, len(c.entries))
	nodes := make([]container.Ref, len(c.entries))
	for i, e := range c.entries {
		switch {
		case e.comp != nil:
			headers[i] = e.comp.header
			subHeaders, subNodes, err := w.flushCompound(e.comp)
			if err != nil {
				return 0, nil, err
			}
			group := append([]container.Ref{subHeaders}, subNodes...)
			ref, err := w.cw.WriteGroup(group)
			if err != nil {
				return 0, nil, err
			}
			nodes[i] = ref
		default:
			headers[i] = e.leaf.header
			ref, err := w.cw.WriteGroup(e.leaf.refs)
			if err != nil {
				return 0, nil, err
			}
			nodes[i] = ref
		}
	}
	headersRef, err := w.cw.WriteData(encodePropertyHeaders(headers))
	if err != nil {
		return 0, nil, err
	}
	return headersRef, nodes, nil
}

// ObjectWriter builds one node of the object hierarchy.
type ObjectWriter struct {
	w        *Writer
	name     string
	fullName string
	meta     Metadata
	children []*ObjectWriter
	props    *CompoundWriter
}

// Name returns the object's name, or "" for the root.
func (o *ObjectWriter) Name() string { return o.name }

// FullName returns the object's path from the root.
func (o *ObjectWriter) FullName() string { return o.fullName }

// CreateChild adds a child object. Child names must be non-empty, must not
// contain '/', and must be unique among siblings.
func (o *ObjectWriter) CreateChild(name string, meta Metadata) (*ObjectWriter, error) {
	if o.w.closed {
		return nil, ErrFrozen
	}
	if name == "" || strings.ContainsRune(name, '/') {
		return nil, fmt.Errorf("%w: invalid object name %q", ErrValidation, name)
	}
	for _, c := range o.children {
		if c.name == name {
			return nil, fmt.Errorf("%w: object %q under %q", ErrExists, name, o.fullName)
		}
	}

	fullName := o.fullName + name
	if o.name != "" {
		fullName = o.fullName + "/" + name
	}
	child := &ObjectWriter{
		w:        o.w,
		name:     name,
		fullName: fullName,
		meta:     meta.Clone(),
		props:    &CompoundWriter{w: o.w},
	}
	o.children = append(o.children, child)
	return child, nil
}

// Properties returns the object's root compound property.
func (o *ObjectWriter) Properties() *CompoundWriter { return o.props }

type propEntry struct {
	leaf *propertyWriter
	comp *CompoundWriter
}

// CompoundWriter builds a compound property: a namespace of named child
// properties with no samples of its own.
type CompoundWriter struct {
	w       *Writer
	header  PropertyHeader
	entries []propEntry
}

func (c *CompoundWriter) checkNew(name string) error {
	if c.w.closed {
		return ErrFrozen
	}
	if name == "" {
		return fmt.Errorf("%w: empty property name", ErrValidation)
	}
	for _, e := range c.entries {
		var existing string
		if e.comp != nil {
			existing = e.comp.header.Name
		} else {
			existing = e.leaf.header.Name
		}
		if existing == name {
			return fmt.Errorf("%w: property %q", ErrExists, name)
		}
	}
	return nil
}

func (c *CompoundWriter) checkLeaf(name string, dt DataType, scope Scope, tsIndex uint32) error {
	if err := c.checkNew(name); err != nil {
		return err
	}
	if !dt.Valid() {
		return fmt.Errorf("%w: invalid data type %s for property %q", ErrTypeMismatch, dt, name)
	}
	if !scope.Valid() {
		return fmt.Errorf("%w: invalid scope for property %q", ErrTypeMismatch, name)
	}
	if int(tsIndex) >= len(c.w.samplings) {
		return fmt.Errorf("%w: time sampling index %d is not registered", ErrValidation, tsIndex)
	}
	return nil
}

// CreateScalar adds a scalar property holding exactly one element per sample.
func (c *CompoundWriter) CreateScalar(name string, dt DataType, scope Scope, tsIndex uint32, meta Metadata) (*ScalarWriter, error) {
	if err := c.checkLeaf(name, dt, scope, tsIndex); err != nil {
		return nil, err
	}
	p := &propertyWriter{
		w: c.w,
		header: PropertyHeader{
			Name:         name,
			Kind:         KindScalar,
			DataType:     dt,
			Scope:        scope,
			TimeSampling: tsIndex,
			Metadata:     meta.Clone(),
		},
	}
	c.entries = append(c.entries, propEntry{leaf: p})
	return &ScalarWriter{propertyWriter: p}, nil
}

// CreateArray adds an array property holding a variable number of elements
// per sample.
func (c *CompoundWriter) CreateArray(name string, dt DataType, scope Scope, tsIndex uint32, meta Metadata) (*ArrayWriter, error) {
	if err := c.checkLeaf(name, dt, scope, tsIndex); err != nil {
		return nil, err
	}
	p := &propertyWriter{
		w: c.w,
		header: PropertyHeader{
			Name:         name,
			Kind:         KindArray,
			DataType:     dt,
			Scope:        scope,
			TimeSampling: tsIndex,
			Metadata:     meta.Clone(),
		},
	}
	c.entries = append(c.entries, propEntry{leaf: p})
	return &ArrayWriter{propertyWriter: p}, nil
}

// CreateCompound adds a nested compound property.
func (c *CompoundWriter) CreateCompound(name string, meta Metadata) (*CompoundWriter, error) {
	if err := c.checkNew(name); err != nil {
		return nil, err
	}
	sub := &CompoundWriter{
		w: c.w,
		header: PropertyHeader{
			Name:     name,
			Kind:     KindCompound,
			Metadata: meta.Clone(),
		},
	}
	c.entries = append(c.entries, propEntry{comp: sub})
	return sub, nil
}

// propertyWriter is the shared core of scalar and array writers: it encodes
// samples, streams them to the container, and records their references.
type propertyWriter struct {
	w      *Writer
	header PropertyHeader
	refs   []container.Ref
}

// Header returns the property's header.
func (p *propertyWriter) Header() PropertyHeader { return p.header }

// SampleCount returns the number of samples added so far.
func (p *propertyWriter) SampleCount() int { return len(p.refs) }

func (p *propertyWriter) addSample(v any, wantCount int) error {
	if p.w.closed {
		return ErrFrozen
	}
	payload, err := encodeSample(p.header.DataType, v)
	if err != nil {
		return fmt.Errorf("property %q: %w", p.header.Name, err)
	}
	if wantCount >= 0 {
		count := binary.LittleEndian.Uint64(payload)
		if count != uint64(wantCount) {
			return fmt.Errorf("%w: scalar property %q takes exactly one element per sample, got %d",
				ErrTypeMismatch, p.header.Name, count)
		}
	}
	ref, err := p.w.cw.WriteData(payload)
	if err != nil {
		return err
	}
	p.refs = append(p.refs, ref)
	return nil
}

// ScalarWriter writes samples of a scalar property.
type ScalarWriter struct {
	*propertyWriter
}

// AddSample appends one sample holding exactly one element. v must be a
// slice of the property's plain Go type with extent values, or a single
// plain value for extent 1.
func (p *ScalarWriter) AddSample(v any) error {
	return p.addSample(v, 1)
}

// ArrayWriter writes samples of an array property.
type ArrayWriter struct {
	*propertyWriter
}

// AddSample appends one sample. v must be a slice of the property's plain
// Go type whose length is a multiple of the extent; an empty slice writes a
// valid zero-length sample.
func (p *ArrayWriter) AddSample(v any) error {
	return p.addSample(v, -1)
}
