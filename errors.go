package bake

import (
	"errors"

	"github.com/strata3d/bake/container"
)

// Errors re-exported from the container layer.
var (
	// ErrFormat is returned when a file is not a valid archive: bad magic,
	// unsupported version, truncated or not-frozen file, or a malformed
	// group, block, or header table.
	ErrFormat = container.ErrFormat

	// ErrFrozen is returned when writing to a finalized archive.
	ErrFrozen = container.ErrFrozen

	// ErrDecompression is returned when a stored block cannot be decompressed.
	ErrDecompression = container.ErrDecompression
)

// Errors specific to the property and schema layers.
var (
	// ErrTypeMismatch is returned when a sample does not match a property's
	// declared element type, extent, or scope, or when a schema's required
	// property has the wrong type.
	ErrTypeMismatch = errors.New("bake: type mismatch")

	// ErrSchemaMismatch is returned when a typed view cannot be constructed
	// because required properties are missing. Generic property access on
	// the same object remains usable.
	ErrSchemaMismatch = errors.New("bake: schema mismatch")

	// ErrIndexOutOfRange is returned when a sample or child index is beyond
	// bounds.
	ErrIndexOutOfRange = errors.New("bake: index out of range")

	// ErrValidation is returned when a schema builder detects internally
	// inconsistent geometry before writing.
	ErrValidation = errors.New("bake: validation failed")

	// ErrExists is returned when creating a child or property whose name is
	// already taken among its siblings.
	ErrExists = errors.New("bake: name already exists")

	// ErrNotFound is returned when a named child or property does not exist.
	ErrNotFound = errors.New("bake: not found")
)
