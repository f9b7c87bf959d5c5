package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/strata3d/bake/internal/wire"
)

// DefaultMinCompressSize is the smallest payload considered for compression.
// Blocks below it are always stored raw.
const DefaultMinCompressSize = 128

// Dest is the storage a write session appends to. Appends go through the
// io.Writer; only Finalize uses io.WriterAt, to patch the header.
type Dest interface {
	io.Writer
	io.WriterAt
}

// Stats describes what a write session has stored so far.
type Stats struct {
	// DataBlocks is the number of data blocks physically written.
	DataBlocks int
	// DedupedBlocks is the number of WriteData calls elided because an
	// identical block was already stored.
	DedupedBlocks int
	// Groups is the number of groups written.
	Groups int
	// BytesStored is the total bytes appended after the header, including
	// block and group framing.
	BytesStored uint64
}

// Writer is an append-only container write session.
//
// Writer is not safe for concurrent use; callers serialize access.
type Writer struct {
	dest        Dest
	off         uint64
	dedup       map[digest.Digest]Ref // nil when dedup is disabled
	enc         *zstd.Encoder
	minCompress int
	level       zstd.EncoderLevel
	compress    bool
	finalized   bool
	stats       Stats
	logger      *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCompressionLevel sets the zstd level used for block compression.
func WithCompressionLevel(level zstd.EncoderLevel) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// WithoutCompression stores every block raw.
func WithoutCompression() WriterOption {
	return func(w *Writer) {
		w.compress = false
	}
}

// WithMinCompressSize sets the smallest payload considered for compression.
func WithMinCompressSize(n int) WriterOption {
	return func(w *Writer) {
		w.minCompress = n
	}
}

// WithoutDedup disables content deduplication for the session.
func WithoutDedup() WriterOption {
	return func(w *Writer) {
		w.dedup = nil
	}
}

// WithWriterLogger sets the logger for write-session debug events.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter starts a write session on dest and writes the not-frozen header.
func NewWriter(dest Dest, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		dest:        dest,
		dedup:       make(map[digest.Digest]Ref),
		minCompress: DefaultMinCompressSize,
		level:       zstd.SpeedDefault,
		compress:    true,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(w.level))
		if err != nil {
			return nil, fmt.Errorf("container: create zstd encoder: %w", err)
		}
		w.enc = enc
	}

	var hdr [headerSize]byte
	copy(hdr[:], magic)
	hdr[frozenOffset] = notFrozenFlag
	hdr[versionOffset] = byte(version)
	hdr[versionOffset+1] = byte(version >> 8)
	// Root offset stays zero until Finalize.
	if _, err := w.dest.Write(hdr[:]); err != nil {
		return nil, fmt.Errorf("container: write header: %w", err)
	}
	w.off = headerSize
	return w, nil
}

// Create creates the file at path and starts a write session on it.
// The returned file is owned by the caller and must be closed after Finalize.
func Create(path string, opts ...WriterOption) (*Writer, *os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("container: create %s: %w", path, err)
	}
	w, err := NewWriter(f, opts...)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, nil, err
	}
	return w, f, nil
}

func (w *Writer) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.logger
}

// Stats returns a snapshot of the session statistics.
func (w *Writer) Stats() Stats { return w.stats }

// WriteData appends payload as a data block and returns its reference.
//
// The payload is hashed before compression; when an identical payload was
// already stored this session, the existing block's reference is returned
// and nothing is written.
func (w *Writer) WriteData(payload []byte) (Ref, error) {
	if w.finalized {
		return EmptyData, ErrFrozen
	}
	if len(payload) == 0 {
		return EmptyData, nil
	}

	var dg digest.Digest
	if w.dedup != nil {
		dg = digest.FromBytes(payload)
		if ref, ok := w.dedup[dg]; ok {
			w.stats.DedupedBlocks++
			w.log().Debug("data block deduplicated", "digest", dg, "ref", ref)
			return ref, nil
		}
	}

	stored := payload
	scheme := CompressionNone
	if w.enc != nil && len(payload) >= w.minCompress {
		if c := w.enc.EncodeAll(payload, nil); len(c) < len(payload) {
			stored = c
			scheme = CompressionZstd
		}
	}

	var buf wire.Buffer
	buf.U64(uint64(len(stored)))
	buf.U8(uint8(scheme))
	ref := DataRef(w.off)
	if err := w.append(buf.Bytes(), stored); err != nil {
		return EmptyData, err
	}
	w.stats.DataBlocks++
	if w.dedup != nil {
		w.dedup[dg] = ref
	}
	return ref, nil
}

// WriteGroup appends a group listing the given children and returns its
// reference. Children must already have been written.
func (w *Writer) WriteGroup(children []Ref) (Ref, error) {
	if w.finalized {
		return EmptyGroup, ErrFrozen
	}
	if len(children) == 0 {
		return EmptyGroup, nil
	}

	var buf wire.Buffer
	buf.U64(uint64(len(children)))
	for _, c := range children {
		buf.U64(uint64(c))
	}
	ref := GroupRef(w.off)
	if err := w.append(buf.Bytes()); err != nil {
		return EmptyGroup, err
	}
	w.stats.Groups++
	return ref, nil
}

func (w *Writer) append(chunks ...[]byte) error {
	for _, c := range chunks {
		if _, err := w.dest.Write(c); err != nil {
			return fmt.Errorf("container: append at %#x: %w", w.off, err)
		}
		w.off += uint64(len(c))
		w.stats.BytesStored += uint64(len(c))
	}
	return nil
}

// Finalize records root as the root group and freezes the file.
//
// The root offset is written before the frozen flag, so a crash between the
// two leaves the file detectably unfrozen. After Finalize the session
// rejects further writes.
func (w *Writer) Finalize(root Ref) error {
	if w.finalized {
		return ErrFrozen
	}
	if !root.IsGroup() {
		return fmt.Errorf("%w: root must be a group, got %v", ErrFormat, root)
	}

	var rootBuf [8]byte
	binary.LittleEndian.PutUint64(rootBuf[:], uint64(root))
	if _, err := w.dest.WriteAt(rootBuf[:], rootOffset); err != nil {
		return fmt.Errorf("container: write root offset: %w", err)
	}
	if err := w.sync(); err != nil {
		return err
	}
	if _, err := w.dest.WriteAt([]byte{frozenFlag}, frozenOffset); err != nil {
		return fmt.Errorf("container: write frozen flag: %w", err)
	}
	if err := w.sync(); err != nil {
		return err
	}

	w.finalized = true
	w.dedup = nil
	if w.enc != nil {
		w.enc.Close()
		w.enc = nil
	}
	w.log().Debug("session finalized",
		"root", root,
		"dataBlocks", w.stats.DataBlocks,
		"dedupedBlocks", w.stats.DedupedBlocks,
		"groups", w.stats.Groups,
		"bytesStored", w.stats.BytesStored)
	return nil
}

func (w *Writer) sync() error {
	type syncer interface{ Sync() error }
	if s, ok := w.dest.(syncer); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("container: sync: %w", err)
		}
	}
	return nil
}
