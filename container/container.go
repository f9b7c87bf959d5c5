// Package container implements the chunked binary storage underneath a bake
// archive: a fixed header, groups (ordered lists of child references), and
// data blocks (opaque, optionally compressed byte payloads), all addressed
// by file offset.
//
// Writes are append-only. A write session allocates blocks and groups at
// strictly increasing offsets and never overwrites flushed bytes; Finalize
// records the root group offset and sets the frozen flag last, so a file
// interrupted mid-write is detectable as not frozen and is rejected on open.
//
// Reads are pure functions of offset. An opened Reader is immutable and safe
// for unrestricted concurrent use.
package container

import (
	"errors"
	"fmt"
)

// Sentinel errors for the container layer.
var (
	// ErrFormat is returned when a file is not a valid container: bad magic,
	// unsupported version, not frozen, or a malformed group or block.
	ErrFormat = errors.New("container: invalid format")

	// ErrFrozen is returned when writing to a finalized session.
	ErrFrozen = errors.New("container: archive is frozen")

	// ErrDecompression is returned when a stored block cannot be decompressed.
	ErrDecompression = errors.New("container: decompression failed")

	// ErrBlockTooLarge is returned when a block exceeds the configured limit.
	ErrBlockTooLarge = errors.New("container: block exceeds size limit")
)

const (
	// headerSize is the fixed size of the file header in bytes:
	// magic (4), frozen flag (1), version (2, LE), reserved (1),
	// root group offset (8, LE).
	headerSize = 16

	magic = "BAKE"

	// version is the current container format version.
	version uint16 = 1

	frozenFlag    = 0xFF
	notFrozenFlag = 0x00

	frozenOffset  = 4
	versionOffset = 5
	rootOffset    = 8
)

// refTypeMask is the discriminant bit in a child reference: set for data
// blocks, clear for groups.
const refTypeMask = uint64(1) << 63

// Ref addresses a group or data block within a container file.
//
// The most significant bit discriminates data blocks from groups; the
// remaining bits are the file offset. A ref whose offset is zero is the
// empty group or empty data marker.
type Ref uint64

// Empty group and data markers.
const (
	EmptyGroup Ref = 0
	EmptyData  Ref = Ref(refTypeMask)
)

// GroupRef returns a group reference for the given file offset.
func GroupRef(off uint64) Ref { return Ref(off &^ refTypeMask) }

// DataRef returns a data block reference for the given file offset.
func DataRef(off uint64) Ref { return Ref(off | refTypeMask) }

// IsData reports whether r addresses a data block.
func (r Ref) IsData() bool { return uint64(r)&refTypeMask != 0 }

// IsGroup reports whether r addresses a group.
func (r Ref) IsGroup() bool { return uint64(r)&refTypeMask == 0 }

// IsEmpty reports whether r is the empty group or empty data marker.
func (r Ref) IsEmpty() bool { return r.Offset() == 0 }

// Offset returns the file offset addressed by r.
func (r Ref) Offset() uint64 { return uint64(r) &^ refTypeMask }

func (r Ref) String() string {
	switch {
	case r == EmptyGroup:
		return "group(empty)"
	case r == EmptyData:
		return "data(empty)"
	case r.IsData():
		return fmt.Sprintf("data(%#x)", r.Offset())
	default:
		return fmt.Sprintf("group(%#x)", r.Offset())
	}
}

// Compression identifies the per-block compression scheme.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

// String returns the human-readable name of the compression scheme.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

func (c Compression) valid() bool {
	return c == CompressionNone || c == CompressionZstd
}
