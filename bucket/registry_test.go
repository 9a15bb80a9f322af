package bucket

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(Config{Dir: filepath.Join(t.TempDir(), "mmf_test"), BucketSize: 16 * 1024, Options: testOptions()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRegistry_CreateAndFind(t *testing.T) {
	r := newTestRegistry(t)

	b1, err := r.Create(1, 0)
	require.NoError(t, err)
	require.Equal(t, 16*1024, b1.Size(), "zero size uses Config.BucketSize")
	require.Equal(t, filepath.Join(r.Dir(), "bucket_0000000001"), b1.Path())

	_, err = r.Create(5, 4096)
	require.NoError(t, err)

	_, err = r.Create(1, 0)
	require.True(t, errors.Is(err, ErrBucketExists))

	got, ok := r.Find(1)
	require.True(t, ok)
	require.Same(t, b1, got)

	_, ok = r.Find(2)
	require.False(t, ok)

	require.Equal(t, []uint32{1, 5}, r.IDs())
	require.Equal(t, 2, r.Len())
}

func TestRegistry_RequiresDirectory(t *testing.T) {
	_, err := NewRegistry(Config{})
	require.Error(t, err)
}

func TestRegistry_RemoveKeepsFile(t *testing.T) {
	r := newTestRegistry(t)
	b, err := r.Create(3, 0)
	require.NoError(t, err)
	h, err := b.Insert([]byte("survives removal"))
	require.NoError(t, err)
	off := h.Offset()

	require.NoError(t, r.Remove(3))
	require.Equal(t, 0, r.Len())
	require.True(t, errors.Is(r.Remove(3), ErrBucketNotFound))

	_, err = os.Stat(b.Path())
	require.NoError(t, err)

	added, err := r.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uint32{3}, added)

	h, err = r.Resolve(3, off)
	require.NoError(t, err)
	require.Equal(t, "survives removal", string(h.Data()))
}

func TestRegistry_HandlesSurviveReopen(t *testing.T) {
	r := newTestRegistry(t)
	b, err := r.Create(1, 0)
	require.NoError(t, err)

	payloads := []string{"first record", "second, a little longer", "third"}
	handles := make([]Handle, len(payloads))
	for i, p := range payloads {
		handles[i], err = b.Insert([]byte(p))
		require.NoError(t, err)
	}
	require.NoError(t, b.Flush(context.Background()))

	require.NoError(t, r.Remove(1))
	require.Nil(t, handles[0].Data(), "bucket is not registered")
	require.True(t, errors.Is(handles[0].Free(), ErrBucketNotFound))

	_, err = r.Discover(context.Background())
	require.NoError(t, err)
	nb, ok := r.Find(1)
	require.True(t, ok)
	require.NotSame(t, b, nb)

	for i, h := range handles {
		require.Equal(t, payloads[i], string(h.Data()), "handle %s", h)
		require.Equal(t, len(payloads[i]), h.Size())
		require.Same(t, nb, h.Bucket())
	}

	require.NoError(t, nb.Free(handles[1]))
	require.Nil(t, handles[1].Data())
	require.NoError(t, handles[2].Free())
	require.True(t, errors.Is(b.Free(handles[0]), ErrClosed), "the old object stays closed")
	require.Equal(t, payloads[0], string(handles[0].Data()))

	require.NoError(t, r.Destroy(1))
	_, err = r.Create(1, 4096)
	require.NoError(t, err)
	require.True(t, handles[0].IsValid())
	require.Nil(t, handles[0].Data(), "a fresh bucket under the same id has no record there")
}

func TestRegistry_Destroy(t *testing.T) {
	r := newTestRegistry(t)
	b, err := r.Create(9, 0)
	require.NoError(t, err)
	path := b.Path()

	require.NoError(t, r.Destroy(9))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	require.True(t, errors.Is(r.Destroy(9), ErrBucketNotFound))
}

func TestRegistry_DiscoverSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []uint32{2, 4, 6} {
		b, err := Open(dir, "bucket", id, 4096, nil)
		require.NoError(t, err)
		require.NoError(t, b.Close())
	}
	for _, name := range []string{"bucket_12", "other_0000000001", "bucket_0000000000", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "bucket_0000000008"), 0o700))

	r, err := NewRegistry(Config{Dir: dir, Options: testOptions()})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Create(4, 0)
	require.NoError(t, err)

	added, err := r.Discover(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{2, 6}, added)
	require.Equal(t, []uint32{2, 4, 6}, r.IDs())

	added, err = r.Discover(context.Background())
	require.NoError(t, err)
	require.Empty(t, added, "already registered buckets are not reopened")
}

func TestRegistry_DiscoverCancelled(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(dir, "bucket", 1, 4096, nil)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	r, err := NewRegistry(Config{Dir: dir})
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Discover(ctx)
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, 0, r.Len())
}

func TestRegistry_PackUnpack(t *testing.T) {
	r := newTestRegistry(t)
	b, err := r.Create(2, 0)
	require.NoError(t, err)
	_, err = b.Insert([]byte("padding"))
	require.NoError(t, err)
	h, err := b.Insert([]byte("addressed by packed handle"))
	require.NoError(t, err)

	raw, err := h.MarshalBinary()
	require.NoError(t, err)

	got, err := r.Unpack(raw)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.Equal(t, "addressed by packed handle", string(got.Data()))

	empty, err := r.Unpack(make([]byte, PackedHandleSize))
	require.NoError(t, err)
	require.False(t, empty.IsValid())

	_, err = r.Unpack(raw[:5])
	require.True(t, errors.Is(err, ErrBadHandle))

	raw[0] = 77
	_, err = r.Unpack(raw)
	require.True(t, errors.Is(err, ErrBucketNotFound))

	_, err = r.Resolve(2, uint32(b.Size()-4))
	require.True(t, errors.Is(err, ErrInvalidAddress))
}

func TestRegistry_FlushAndClose(t *testing.T) {
	r := newTestRegistry(t)
	var buckets []*Bucket
	for id := uint32(1); id <= 4; id++ {
		b, err := r.Create(id, 0)
		require.NoError(t, err)
		_, err = b.Insert([]byte("pending"))
		require.NoError(t, err)
		buckets = append(buckets, b)
	}

	require.NoError(t, r.Flush(context.Background()))
	require.NoError(t, r.Close())
	require.Equal(t, 0, r.Len())
	for _, b := range buckets {
		_, err := b.Insert([]byte("late"))
		require.True(t, errors.Is(err, ErrClosed))
	}
}
