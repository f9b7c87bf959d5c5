package bake

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/strata3d/bake/container"
)

// Archive is a read handle over a frozen archive file.
//
// An open Archive is immutable and safe for unrestricted concurrent use:
// multiple goroutines may traverse overlapping subtrees without
// coordination. Traversal is lazy; opening reads only the container header,
// and walking the hierarchy never loads sample payloads.
type Archive struct {
	cr *container.Reader

	meta      func() (Metadata, error)
	samplings func() ([]TimeSampling, error)
	root      func() (*Object, error)
}

type openConfig struct {
	containerOpts []container.ReaderOption
}

// OpenOption configures Open.
type OpenOption func(*openConfig)

// OpenWithMaxBlockSize sets the limit for a single decoded block.
func OpenWithMaxBlockSize(limit uint64) OpenOption {
	return func(c *openConfig) {
		c.containerOpts = append(c.containerOpts, container.WithMaxBlockSize(limit))
	}
}

// OpenWithMaxDecoderMemory sets the zstd decoder memory limit.
func OpenWithMaxDecoderMemory(limit uint64) OpenOption {
	return func(c *openConfig) {
		c.containerOpts = append(c.containerOpts, container.WithMaxDecoderMemory(limit))
	}
}

// OpenWithLogger sets the logger for read-path debug events.
func OpenWithLogger(logger *slog.Logger) OpenOption {
	return func(c *openConfig) {
		c.containerOpts = append(c.containerOpts, container.WithReaderLogger(logger))
	}
}

// Open opens the archive file at path for reading.
//
// Open validates the container header only; a truncated or never-finalized
// file fails here with ErrFormat. Closing the Archive closes the file.
func Open(path string, opts ...OpenOption) (*Archive, error) {
	var cfg openConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	cr, err := container.Open(path, cfg.containerOpts...)
	if err != nil {
		return nil, err
	}
	return newArchive(cr), nil
}

// OpenSource opens an archive over an arbitrary byte source.
func OpenSource(src container.ByteSource, opts ...OpenOption) (*Archive, error) {
	var cfg openConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	cr, err := container.NewReader(src, cfg.containerOpts...)
	if err != nil {
		return nil, err
	}
	return newArchive(cr), nil
}

func newArchive(cr *container.Reader) *Archive {
	a := &Archive{cr: cr}

	rootGroup := sync.OnceValues(func() ([]container.Ref, error) {
		children, err := cr.ReadGroup(cr.Root())
		if err != nil {
			return nil, err
		}
		if len(children) != rootChildCount {
			return nil, fmt.Errorf("%w: root group has %d children, want %d",
				ErrFormat, len(children), rootChildCount)
		}
		if !children[rootMetaChild].IsData() || !children[rootSamplingChild].IsData() ||
			!children[rootObjectChild].IsGroup() {
			return nil, fmt.Errorf("%w: malformed root group", ErrFormat)
		}
		return children, nil
	})

	a.meta = sync.OnceValues(func() (Metadata, error) {
		children, err := rootGroup()
		if err != nil {
			return Metadata{}, err
		}
		raw, err := cr.ReadData(children[rootMetaChild])
		if err != nil {
			return Metadata{}, err
		}
		return ParseMetadata(string(raw)), nil
	})

	a.samplings = sync.OnceValues(func() ([]TimeSampling, error) {
		children, err := rootGroup()
		if err != nil {
			return nil, err
		}
		raw, err := cr.ReadData(children[rootSamplingChild])
		if err != nil {
			return nil, err
		}
		return decodeSamplingTable(raw)
	})

	a.root = sync.OnceValues(func() (*Object, error) {
		children, err := rootGroup()
		if err != nil {
			return nil, err
		}
		return newObject(a, children[rootObjectChild], "", "/", Metadata{}), nil
	})

	return a
}

// Close releases the underlying container reader.
func (a *Archive) Close() error { return a.cr.Close() }

// Metadata returns the archive-level metadata.
func (a *Archive) Metadata() (Metadata, error) { return a.meta() }

// Root returns the root object of the hierarchy.
func (a *Archive) Root() (*Object, error) { return a.root() }

// NumTimeSamplings returns the number of registered sampling descriptors.
func (a *Archive) NumTimeSamplings() (int, error) {
	s, err := a.samplings()
	if err != nil {
		return 0, err
	}
	return len(s), nil
}

// TimeSamplingAt resolves a sampling descriptor by registry index.
func (a *Archive) TimeSamplingAt(index uint32) (TimeSampling, error) {
	s, err := a.samplings()
	if err != nil {
		return TimeSampling{}, err
	}
	if int(index) >= len(s) {
		return TimeSampling{}, fmt.Errorf("%w: time sampling index %d of %d", ErrIndexOutOfRange, index, len(s))
	}
	return s[index], nil
}
