package bucket

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/bucketkit/internal/format"
)

func TestConcurrentInsertFree(t *testing.T) {
	b := openTestBucket(t, 1<<20)

	const workers = 8
	const rounds = 300

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(w)))
			var mine []Handle
			var payloads [][]byte
			for i := 0; i < rounds; i++ {
				if len(mine) > 0 && rng.Intn(3) == 0 {
					j := rng.Intn(len(mine))
					if got := mine[j].Data(); !bytes.Equal(payloads[j], got[:len(payloads[j])]) {
						return fmt.Errorf("worker %d: record at %d corrupted", w, mine[j].Offset())
					}
					if err := b.Free(mine[j]); err != nil {
						return err
					}
					mine = append(mine[:j], mine[j+1:]...)
					payloads = append(payloads[:j], payloads[j+1:]...)
					continue
				}
				p := bytes.Repeat([]byte{byte('a' + w)}, 1+rng.Intn(200))
				h, err := b.Insert(p)
				if errors.Is(err, ErrNoSpace) {
					continue
				}
				if err != nil {
					return err
				}
				mine = append(mine, h)
				payloads = append(payloads, p)
			}
			for _, h := range mine {
				if err := b.Free(h); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.NoError(t, b.Validate())
	require.True(t, b.Empty())
	require.Equal(t, b.Size()-format.HeaderSize, b.Available())
}

// TestRandomOperationsSurviveReopen drives random inserts and frees, reopens
// the bucket, and checks that every live record comes back intact.
func TestRandomOperationsSurviveReopen(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 5; round++ {
		b := openTestBucket(t, 32*1024)
		live := map[uint32][]byte{}
		var handles []Handle

		for step := 0; step < 600; step++ {
			if len(handles) > 0 && rng.Intn(5) < 2 {
				i := rng.Intn(len(handles))
				require.NoError(t, b.Free(handles[i]))
				delete(live, handles[i].Offset())
				handles = append(handles[:i], handles[i+1:]...)
				continue
			}
			p := make([]byte, rng.Intn(300))
			rng.Read(p)
			h, err := b.Insert(p)
			if errors.Is(err, ErrNoSpace) {
				continue
			}
			require.NoError(t, err)
			handles = append(handles, h)
			live[h.Offset()] = p
		}
		require.NoError(t, b.Validate())
		before := b.Stats()

		nb := reopen(t, b)
		got, err := nb.Load()
		require.NoError(t, err)
		require.Len(t, got, len(live), "round %d", round)
		for _, h := range got {
			want, ok := live[h.Offset()]
			require.True(t, ok, "round %d: unexpected record at %d", round, h.Offset())
			require.Equal(t, len(want), h.Size(), "round %d", round)
			require.Equal(t, want, h.Data(), "round %d", round)
		}

		after := nb.Stats()
		require.Equal(t, before.FreeBytes, after.FreeBytes, "round %d", round)
		require.Equal(t, before.FreeExtents, after.FreeExtents, "round %d", round)
		require.NoError(t, nb.Validate())
	}
}
