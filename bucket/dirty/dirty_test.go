package dirty

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/bucketkit/internal/mmfile"
)

// setupRegion maps a 64KB scratch bucket file for testing.
func setupRegion(t testing.TB) (*mmfile.File, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bucket_0000000001")
	m, err := mmfile.Open(path, 64*1024, 0)
	if err != nil {
		t.Fatalf("Failed to map test region: %v", err)
	}
	return m, func() { m.Close() }
}

func pageSize() int64 { return int64(os.Getpagesize()) }

func Test_DirtyTracker_PageAlignment(t *testing.T) {
	m, cleanup := setupRegion(t)
	defer cleanup()

	tracker := NewTracker(m)
	tracker.Add(100, 200)

	coalesced := tracker.coalesce()
	require.Len(t, coalesced, 1)
	require.Equal(t, int64(0), coalesced[0].Off)
	require.Equal(t, pageSize(), coalesced[0].Len)
}

func Test_DirtyTracker_Coalesce_Adjacent(t *testing.T) {
	m, cleanup := setupRegion(t)
	defer cleanup()

	ps := int(pageSize())
	tracker := NewTracker(m)
	tracker.Add(ps, ps)
	tracker.Add(2*ps, ps)

	coalesced := tracker.coalesce()
	require.Len(t, coalesced, 1)
	require.Equal(t, int64(ps), coalesced[0].Off)
	require.Equal(t, int64(2*ps), coalesced[0].Len)
}

func Test_DirtyTracker_Coalesce_Separate(t *testing.T) {
	m, cleanup := setupRegion(t)
	defer cleanup()

	ps := int(pageSize())
	if 6*ps > m.Size() {
		t.Skip("page size too large for the scratch region")
	}
	tracker := NewTracker(m)
	tracker.Add(5*ps, 10)
	tracker.Add(0, 10)

	coalesced := tracker.coalesce()
	require.Len(t, coalesced, 2)
	require.Equal(t, int64(0), coalesced[0].Off)
	require.Equal(t, int64(5*ps), coalesced[1].Off)
}

func Test_DirtyTracker_ClampsToRegion(t *testing.T) {
	m, cleanup := setupRegion(t)
	defer cleanup()

	tracker := NewTracker(m)
	tracker.Add(m.Size()-4, 100)
	tracker.Add(m.Size()+pageSizeInt(), 10)

	coalesced := tracker.coalesce()
	require.Len(t, coalesced, 1)
	require.Equal(t, int64(m.Size()), coalesced[0].Off+coalesced[0].Len)
}

func pageSizeInt() int { return int(pageSize()) }

func Test_DirtyTracker_IgnoresEmptyRanges(t *testing.T) {
	m, cleanup := setupRegion(t)
	defer cleanup()

	tracker := NewTracker(m)
	tracker.Add(10, 0)
	tracker.Add(10, -5)
	require.False(t, tracker.Pending())
	require.Empty(t, tracker.DebugRanges())
}

func Test_DirtyTracker_FlushModes(t *testing.T) {
	tests := []struct {
		name string
		mode FlushMode
	}{
		{"FlushAuto", FlushAuto},
		{"FlushDataOnly", FlushDataOnly},
		{"FlushFull", FlushFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cleanup := setupRegion(t)
			defer cleanup()

			tracker := NewTracker(m)
			copy(m.Bytes()[128:], "dirty")
			tracker.Add(128, 5)

			require.NoError(t, tracker.Flush(context.Background(), tt.mode))
			require.False(t, tracker.Pending(), "ranges cleared after flush")
		})
	}
}

func Test_DirtyTracker_Flush_PersistsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bucket_0000000002")
	m, err := mmfile.Open(path, 8192, 0)
	require.NoError(t, err)

	tracker := NewTracker(m)
	copy(m.Bytes()[4000:], "flushed")
	tracker.Add(4000, 7)
	require.NoError(t, tracker.Flush(context.Background(), FlushAuto))
	require.NoError(t, m.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "flushed", string(raw[4000:4007]))
}

func Test_DirtyTracker_Flush_Empty(t *testing.T) {
	m, cleanup := setupRegion(t)
	defer cleanup()

	require.NoError(t, NewTracker(m).Flush(context.Background(), FlushAuto))
}

func Test_DirtyTracker_Flush_PreCancelled(t *testing.T) {
	m, cleanup := setupRegion(t)
	defer cleanup()

	tracker := NewTracker(m)
	tracker.Add(0, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tracker.Flush(ctx, FlushAuto)
	require.True(t, errors.Is(err, context.Canceled), "expected context.Canceled, got: %v", err)
	require.True(t, tracker.Pending(), "ranges kept for retry")
}

func Test_DirtyTracker_Reset(t *testing.T) {
	m, cleanup := setupRegion(t)
	defer cleanup()

	tracker := NewTracker(m)
	tracker.Add(0, 100)
	tracker.Add(4096, 200)
	require.Len(t, tracker.DebugRanges(), 2)

	tracker.Reset()
	require.Empty(t, tracker.DebugRanges())
	require.Empty(t, tracker.DebugCoalescedRanges())
}

func Test_FlushMode_String(t *testing.T) {
	require.Equal(t, "auto", FlushAuto.String())
	require.Equal(t, "data-only", FlushDataOnly.String())
	require.Equal(t, "full", FlushFull.String())
	require.Equal(t, "unknown", FlushMode(42).String())
}

func Benchmark_DirtyTracker_AddAndCoalesce(b *testing.B) {
	m, cleanup := setupRegion(b)
	defer cleanup()

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		tracker := NewTracker(m)
		for j := range 10 {
			tracker.Add(j*4096, 4096)
		}
		_ = tracker.coalesce()
	}
}
