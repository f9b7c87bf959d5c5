package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/strata3d/bake/internal/wire"
)

const (
	// DefaultMaxBlockSize is the default limit for a single decoded block (256MB).
	DefaultMaxBlockSize = 256 << 20

	// DefaultMaxDecoderMemory is the default zstd decoder memory limit (256MB).
	DefaultMaxDecoderMemory = 256 << 20
)

// ByteSource provides random access to a container file's bytes.
//
// Implementations must be safe for concurrent ReadAt calls.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

type fileSource struct {
	f    *os.File
	size int64
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }
func (s *fileSource) Size() int64                             { return s.size }
func (s *fileSource) Close() error                            { return s.f.Close() }

// Reader provides random access to a frozen container file.
//
// Group and data reads are pure functions of their reference and are safe
// for unrestricted concurrent use. Decoded groups are cached; concurrent
// reads of the same group are collapsed.
type Reader struct {
	src              ByteSource
	rootRef          Ref
	maxBlockSize     uint64
	maxDecoderMemory uint64
	dec              *zstd.Decoder
	logger           *slog.Logger

	mu     sync.RWMutex
	groups map[Ref][]Ref
	flight singleflight.Group
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxBlockSize sets the limit for a single decoded block.
// Set to 0 to disable the limit.
func WithMaxBlockSize(limit uint64) ReaderOption {
	return func(r *Reader) {
		r.maxBlockSize = limit
	}
}

// WithMaxDecoderMemory sets the zstd decoder memory limit.
func WithMaxDecoderMemory(limit uint64) ReaderOption {
	return func(r *Reader) {
		r.maxDecoderMemory = limit
	}
}

// WithReaderLogger sets the logger for read-path debug events.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader validates the header of src and returns a Reader over it.
//
// Only the header is read; no group or block payloads are touched until
// requested.
func NewReader(src ByteSource, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		src:              src,
		maxBlockSize:     DefaultMaxBlockSize,
		maxDecoderMemory: DefaultMaxDecoderMemory,
		groups:           make(map[Ref][]Ref),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.readHeader(); err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(r.maxDecoderMemory),
		zstd.WithDecoderConcurrency(0),
	)
	if err != nil {
		return nil, fmt.Errorf("container: create zstd decoder: %w", err)
	}
	r.dec = dec
	return r, nil
}

// Open opens the container file at path for reading.
// Closing the Reader closes the file.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("container: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("container: stat %s: %w", path, err)
	}
	r, err := NewReader(&fileSource{f: f, size: info.Size()}, opts...)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func (r *Reader) readHeader() error {
	if r.src.Size() < headerSize {
		return fmt.Errorf("%w: file shorter than header", ErrFormat)
	}
	var hdr [headerSize]byte
	if _, err := io.ReadFull(io.NewSectionReader(r.src, 0, headerSize), hdr[:]); err != nil {
		return fmt.Errorf("container: read header: %w", err)
	}
	if string(hdr[:4]) != magic {
		return fmt.Errorf("%w: bad magic %q", ErrFormat, hdr[:4])
	}
	if hdr[frozenOffset] != frozenFlag {
		return fmt.Errorf("%w: archive is not frozen", ErrFormat)
	}
	if v := binary.LittleEndian.Uint16(hdr[versionOffset:]); v != version {
		return fmt.Errorf("%w: unsupported version %d", ErrFormat, v)
	}
	root := Ref(binary.LittleEndian.Uint64(hdr[rootOffset:]))
	if !root.IsGroup() || root.IsEmpty() {
		return fmt.Errorf("%w: invalid root reference %v", ErrFormat, root)
	}
	if root.Offset() >= uint64(r.src.Size()) {
		return fmt.Errorf("%w: root reference beyond end of file", ErrFormat)
	}
	r.rootRef = root
	return nil
}

func (r *Reader) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Root returns the reference of the root group.
func (r *Reader) Root() Ref { return r.rootRef }

// Close releases the underlying source if it owns one.
func (r *Reader) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadGroup returns the child references of the group addressed by ref.
//
// Reading the empty group yields no children. The returned slice is shared
// with the cache and must not be modified.
func (r *Reader) ReadGroup(ref Ref) ([]Ref, error) {
	if !ref.IsGroup() {
		return nil, fmt.Errorf("%w: %v is not a group reference", ErrFormat, ref)
	}
	if ref.IsEmpty() {
		return nil, nil
	}

	r.mu.RLock()
	children, ok := r.groups[ref]
	r.mu.RUnlock()
	if ok {
		return children, nil
	}

	v, err, _ := r.flight.Do(ref.String(), func() (any, error) {
		r.mu.RLock()
		children, ok := r.groups[ref]
		r.mu.RUnlock()
		if ok {
			return children, nil
		}
		children, err := r.readGroup(ref)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.groups[ref] = children
		r.mu.Unlock()
		return children, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Ref), nil
}

func (r *Reader) readGroup(ref Ref) ([]Ref, error) {
	off := int64(ref.Offset())
	var countBuf [8]byte
	if _, err := r.src.ReadAt(countBuf[:], off); err != nil {
		return nil, fmt.Errorf("%w: truncated group at %#x", ErrFormat, off)
	}
	count := binary.LittleEndian.Uint64(countBuf[:])

	remaining := uint64(r.src.Size()) - uint64(off) - 8
	if count > remaining/8 {
		return nil, fmt.Errorf("%w: group at %#x claims %d children", ErrFormat, off, count)
	}

	raw := make([]byte, count*8)
	if _, err := io.ReadFull(io.NewSectionReader(r.src, off+8, int64(len(raw))), raw); err != nil {
		return nil, fmt.Errorf("%w: truncated group at %#x", ErrFormat, off)
	}

	d := wire.NewDecoder(raw)
	children := make([]Ref, 0, count)
	for range count {
		c := Ref(d.U64())
		if c.Offset() >= uint64(r.src.Size()) {
			return nil, fmt.Errorf("%w: child reference %v beyond end of file", ErrFormat, c)
		}
		children = append(children, c)
	}
	r.log().Debug("group decoded", "ref", ref, "children", len(children))
	return children, nil
}

// ReadData returns the payload of the data block addressed by ref,
// decompressed if the stored form is compressed.
//
// Reading the empty data marker yields an empty payload.
func (r *Reader) ReadData(ref Ref) ([]byte, error) {
	if !ref.IsData() {
		return nil, fmt.Errorf("%w: %v is not a data reference", ErrFormat, ref)
	}
	if ref.IsEmpty() {
		return nil, nil
	}

	off := int64(ref.Offset())
	var hdr [9]byte
	if _, err := io.ReadFull(io.NewSectionReader(r.src, off, int64(len(hdr))), hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: truncated block at %#x", ErrFormat, off)
	}
	storedLen := binary.LittleEndian.Uint64(hdr[:8])
	scheme := Compression(hdr[8])
	if !scheme.valid() {
		return nil, fmt.Errorf("%w: unknown compression scheme %d at %#x", ErrFormat, scheme, off)
	}
	if r.maxBlockSize > 0 && storedLen > r.maxBlockSize {
		return nil, fmt.Errorf("%w: %d bytes at %#x", ErrBlockTooLarge, storedLen, off)
	}
	if storedLen > uint64(r.src.Size())-uint64(off)-uint64(len(hdr)) {
		return nil, fmt.Errorf("%w: truncated block at %#x", ErrFormat, off)
	}

	stored := make([]byte, storedLen)
	if _, err := io.ReadFull(io.NewSectionReader(r.src, off+int64(len(hdr)), int64(storedLen)), stored); err != nil {
		return nil, fmt.Errorf("%w: truncated block at %#x", ErrFormat, off)
	}
	if scheme == CompressionNone {
		return stored, nil
	}

	payload, err := r.dec.DecodeAll(stored, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: block at %#x: %v", ErrDecompression, off, err)
	}
	if r.maxBlockSize > 0 && uint64(len(payload)) > r.maxBlockSize {
		return nil, fmt.Errorf("%w: %d bytes decoded at %#x", ErrBlockTooLarge, len(payload), off)
	}
	return payload, nil
}
