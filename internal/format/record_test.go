package format

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/bucketkit/internal/buf"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		sig  uint32
		want State
	}{
		{AllocatedMark, StateAllocated},
		{ReleasedMark, StateReleased},
		{0, StateUnwritten},
		{0xFFFFFFFF, StateUnwritten},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.sig), "sig=%#x", tt.sig)
	}
	assert.Equal(t, "allocated", StateAllocated.String())
	assert.Equal(t, "released", StateReleased.String())
	assert.Equal(t, "unwritten", StateUnwritten.String())
}

func TestHeaderRoundTrip(t *testing.T) {
	region := make([]byte, 64)
	c := buf.NewCursor(region, 16)

	require.NoError(t, WriteHeader(c, Header{Signature: AllocatedMark, Size: 5}))
	copy(region[16+HeaderSize:], "hello")

	h, err := ReadHeader(c)
	require.NoError(t, err)
	require.Equal(t, StateAllocated, h.State())
	require.Equal(t, uint32(5), h.Size)
	require.Equal(t, uint64(13), h.Extent())

	p, err := Payload(c, h)
	require.NoError(t, err)
	require.Equal(t, "hello", string(p))

	require.NoError(t, SetSignature(c, ReleasedMark))
	h, err = ReadHeader(c)
	require.NoError(t, err)
	require.Equal(t, StateReleased, h.State())
	require.Equal(t, uint32(5), h.Size, "tombstone keeps its size")
}

func TestHeaderLayout(t *testing.T) {
	region := make([]byte, HeaderSize)
	require.NoError(t, WriteHeader(buf.NewCursor(region, 0), Header{Signature: ReleasedMark, Size: 0x01020304}))
	require.Equal(t, ReleasedMark, buf.U32(region[SignatureOffset:]))
	require.Equal(t, uint32(0x01020304), buf.U32(region[SizeOffset:]))
}

func TestTruncatedRecords(t *testing.T) {
	region := make([]byte, 12)

	_, err := ReadHeader(buf.NewCursor(region, 8))
	require.True(t, errors.Is(err, ErrTruncated))

	err = WriteHeader(buf.NewCursor(region, 6), Header{Signature: AllocatedMark})
	require.True(t, errors.Is(err, ErrTruncated))

	err = SetSignature(buf.NewCursor(region, 10), ReleasedMark)
	require.True(t, errors.Is(err, ErrTruncated))

	_, err = Payload(buf.NewCursor(region, 0), Header{Signature: AllocatedMark, Size: 10})
	require.True(t, errors.Is(err, ErrTruncated))
}

func TestExtent(t *testing.T) {
	n, err := Extent(11)
	require.NoError(t, err)
	require.Equal(t, uint32(19), n)

	_, err = Extent(-1)
	require.Error(t, err)

	_, err = Extent(math.MaxUint32)
	require.True(t, errors.Is(err, ErrTooLarge))
}
