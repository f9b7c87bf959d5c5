package bake

import (
	"fmt"

	"github.com/strata3d/bake/internal/wire"
)

// Root group layout. The root group references the archive metadata block,
// the time sampling table, and the root object's group.
const (
	rootMetaChild     = 0
	rootSamplingChild = 1
	rootObjectChild   = 2
	rootChildCount    = 3
)

// Object group layout. Child 0 is the child-object header table, child 1 the
// property header table for the object's root compound; property nodes
// follow, then child object groups. A compound property group has the same
// shape without child objects: child 0 is its property header table.
const (
	objChildHeadersChild = 0
	objPropHeadersChild  = 1
	objFirstPropChild    = 2

	compoundHeadersChild   = 0
	compoundFirstPropChild = 1
)

// PropertyHeader describes a property: its name, kind, element type, scope,
// time sampling registry index, and metadata.
type PropertyHeader struct {
	Name         string
	Kind         PropertyKind
	DataType     DataType
	Scope        Scope
	TimeSampling uint32
	Metadata     Metadata
}

func (h PropertyHeader) encode(buf *wire.Buffer) {
	buf.String(h.Name)
	buf.U8(uint8(h.Kind))
	buf.U8(uint8(h.DataType.Pod))
	buf.U8(h.DataType.Extent)
	buf.U8(uint8(h.Scope))
	buf.U32(h.TimeSampling)
	buf.String(h.Metadata.Encode())
}

func decodePropertyHeader(d *wire.Decoder) (PropertyHeader, error) {
	var h PropertyHeader
	h.Name = d.String()
	h.Kind = PropertyKind(d.U8())
	h.DataType.Pod = Pod(d.U8())
	h.DataType.Extent = d.U8()
	h.Scope = Scope(d.U8())
	h.TimeSampling = d.U32()
	meta := d.String()
	if err := d.Err(); err != nil {
		return PropertyHeader{}, fmt.Errorf("%w: truncated property header", ErrFormat)
	}
	h.Metadata = ParseMetadata(meta)
	if h.Kind >= propertyKindCount {
		return PropertyHeader{}, fmt.Errorf("%w: unknown property kind %d", ErrFormat, h.Kind)
	}
	if h.Kind != KindCompound {
		if !h.DataType.Valid() {
			return PropertyHeader{}, fmt.Errorf("%w: invalid data type for property %q", ErrFormat, h.Name)
		}
		if !h.Scope.Valid() {
			return PropertyHeader{}, fmt.Errorf("%w: invalid scope for property %q", ErrFormat, h.Name)
		}
	}
	return h, nil
}

func encodePropertyHeaders(headers []PropertyHeader) []byte {
	var buf wire.Buffer
	buf.U32(uint32(len(headers)))
	for _, h := range headers {
		h.encode(&buf)
	}
	return buf.Bytes()
}

// Smallest possible encoded entries: a property header is two empty strings
// plus four u8 fields and a u32, an object header is two empty strings.
// Counts past remaining/minSize can only come from a corrupted table and
// must not reach make.
const (
	propertyHeaderMinSize = 16
	objectHeaderMinSize   = 8
)

func decodePropertyHeaders(raw []byte) ([]PropertyHeader, error) {
	d := wire.NewDecoder(raw)
	n := d.U32()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: truncated property header table", ErrFormat)
	}
	if int(n) > d.Remaining()/propertyHeaderMinSize {
		return nil, fmt.Errorf("%w: property header table claims %d entries in %d bytes",
			ErrFormat, n, d.Remaining())
	}
	out := make([]PropertyHeader, 0, n)
	for range n {
		h, err := decodePropertyHeader(d)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// objectHeader describes one child object as recorded on its parent.
type objectHeader struct {
	name     string
	metadata Metadata
}

func encodeObjectHeaders(headers []objectHeader) []byte {
	var buf wire.Buffer
	buf.U32(uint32(len(headers)))
	for _, h := range headers {
		buf.String(h.name)
		buf.String(h.metadata.Encode())
	}
	return buf.Bytes()
}

func decodeObjectHeaders(raw []byte) ([]objectHeader, error) {
	d := wire.NewDecoder(raw)
	n := d.U32()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("%w: truncated object header table", ErrFormat)
	}
	if int(n) > d.Remaining()/objectHeaderMinSize {
		return nil, fmt.Errorf("%w: object header table claims %d entries in %d bytes",
			ErrFormat, n, d.Remaining())
	}
	out := make([]objectHeader, 0, n)
	for range n {
		name := d.String()
		meta := d.String()
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("%w: truncated object header table", ErrFormat)
		}
		out = append(out, objectHeader{name: name, metadata: ParseMetadata(meta)})
	}
	return out, nil
}
