package container

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestContainer(t *testing.T, opts ...WriterOption) (string, *Writer, *os.File) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.bake")
	w, f, err := Create(path, opts...)
	require.NoError(t, err)
	return path, w, f
}

func TestContainerRoundTrip(t *testing.T) {
	t.Parallel()

	path, w, f := createTestContainer(t)

	d1, err := w.WriteData([]byte("hello"))
	require.NoError(t, err)
	d2, err := w.WriteData([]byte("world"))
	require.NoError(t, err)
	inner, err := w.WriteGroup([]Ref{d1, d2})
	require.NoError(t, err)
	root, err := w.WriteGroup([]Ref{inner, EmptyData, EmptyGroup})
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	children, err := r.ReadGroup(r.Root())
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.True(t, children[0].IsGroup())
	assert.True(t, children[1].IsData())
	assert.True(t, children[1].IsEmpty())
	assert.True(t, children[2].IsGroup())
	assert.True(t, children[2].IsEmpty())

	leaves, err := r.ReadGroup(children[0])
	require.NoError(t, err)
	require.Len(t, leaves, 2)

	got, err := r.ReadData(leaves[0])
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	got, err = r.ReadData(leaves[1])
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))
}

func TestContainerDedup(t *testing.T) {
	t.Parallel()

	path, w, f := createTestContainer(t)

	payload := bytes.Repeat([]byte("abc"), 100)
	refs := make([]Ref, 0, 10)
	for range 10 {
		ref, err := w.WriteData(payload)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	for _, ref := range refs[1:] {
		assert.Equal(t, refs[0], ref)
	}
	assert.Equal(t, 1, w.Stats().DataBlocks)
	assert.Equal(t, 9, w.Stats().DedupedBlocks)

	root, err := w.WriteGroup(refs)
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))
	require.NoError(t, f.Close())
	require.NoError(t, os.Remove(path))
}

func TestContainerDedupDisabled(t *testing.T) {
	t.Parallel()

	_, w, f := createTestContainer(t, WithoutDedup())
	defer f.Close()

	r1, err := w.WriteData([]byte("same"))
	require.NoError(t, err)
	r2, err := w.WriteData([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)
	assert.Equal(t, 2, w.Stats().DataBlocks)
}

func TestContainerCompressionTransparent(t *testing.T) {
	t.Parallel()

	// Highly compressible and over the minimum size, so the block is
	// stored compressed.
	payload := bytes.Repeat([]byte("0123456789abcdef"), 1024)

	path, w, f := createTestContainer(t)
	ref, err := w.WriteData(payload)
	require.NoError(t, err)
	root, err := w.WriteGroup([]Ref{ref})
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))
	require.NoError(t, f.Close())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, fi.Size(), int64(len(payload)), "block was not compressed")

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.ReadData(ref)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestContainerSmallBlockStoredRaw(t *testing.T) {
	t.Parallel()

	path, w, f := createTestContainer(t)
	ref, err := w.WriteData([]byte("tiny"))
	require.NoError(t, err)
	root, err := w.WriteGroup([]Ref{ref})
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))
	require.NoError(t, f.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	got, err := r.ReadData(ref)
	require.NoError(t, err)
	assert.Equal(t, "tiny", string(got))
}

func TestContainerWriteAfterFinalize(t *testing.T) {
	t.Parallel()

	_, w, f := createTestContainer(t)
	defer f.Close()

	require.NoError(t, w.Finalize(EmptyGroup))
	_, err := w.WriteData([]byte("late"))
	require.ErrorIs(t, err, ErrFrozen)
	_, err = w.WriteGroup(nil)
	require.ErrorIs(t, err, ErrFrozen)
	require.ErrorIs(t, w.Finalize(EmptyGroup), ErrFrozen)
}

func TestContainerRejectsUnfinalized(t *testing.T) {
	t.Parallel()

	path, w, f := createTestContainer(t)
	_, err := w.WriteData([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Never finalized: the frozen flag is still clear.
	_, err = Open(path)
	require.ErrorIs(t, err, ErrFormat)
}

func TestContainerRejectsBadMagic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.bake")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xFF}, 64), 0o644))

	_, err := Open(path)
	require.ErrorIs(t, err, ErrFormat)
}

func TestContainerRejectsTruncated(t *testing.T) {
	t.Parallel()

	path, w, f := createTestContainer(t)
	ref, err := w.WriteData(bytes.Repeat([]byte("x"), 4096))
	require.NoError(t, err)
	root, err := w.WriteGroup([]Ref{ref})
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o644))

	r, err := Open(path)
	if err != nil {
		require.ErrorIs(t, err, ErrFormat)
		return
	}
	defer r.Close()
	_, err = r.ReadGroup(r.Root())
	require.Error(t, err)
}

func TestContainerMaxBlockSize(t *testing.T) {
	t.Parallel()

	path, w, f := createTestContainer(t, WithoutCompression())
	ref, err := w.WriteData(bytes.Repeat([]byte("y"), 1024))
	require.NoError(t, err)
	root, err := w.WriteGroup([]Ref{ref})
	require.NoError(t, err)
	require.NoError(t, w.Finalize(root))
	require.NoError(t, f.Close())

	r, err := Open(path, WithMaxBlockSize(128))
	require.NoError(t, err)
	defer r.Close()
	_, err = r.ReadData(ref)
	require.ErrorIs(t, err, ErrBlockTooLarge)
}

func TestRef(t *testing.T) {
	t.Parallel()

	d := DataRef(1024)
	assert.True(t, d.IsData())
	assert.False(t, d.IsGroup())
	assert.False(t, d.IsEmpty())
	assert.Equal(t, uint64(1024), d.Offset())

	g := GroupRef(2048)
	assert.True(t, g.IsGroup())
	assert.False(t, g.IsData())
	assert.Equal(t, uint64(2048), g.Offset())

	assert.True(t, EmptyData.IsEmpty())
	assert.True(t, EmptyData.IsData())
	assert.True(t, EmptyGroup.IsEmpty())
	assert.True(t, EmptyGroup.IsGroup())
}
