package bucket

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/bucketkit/bucket/freeblocks"
	"github.com/joshuapare/bucketkit/internal/buf"
	"github.com/joshuapare/bucketkit/internal/format"
)

// scanStop says why a region walk ended.
type scanStop uint8

const (
	stopEnd       scanStop = iota // walked to the last byte
	stopShort                     // fewer than HeaderSize bytes left
	stopUnwritten                 // unrecognized signature, never written
	stopOverrun                   // header claims more bytes than remain
)

// scanResult is the outcome of walking a region from offset 0.
type scanResult struct {
	live      []uint32 // offsets of allocated records
	liveBytes uint64
	free      []freeblocks.Extent // coalesced, ordered by offset
	stop      scanStop
	stopAt    int
	stopSize  uint32 // declared payload size when stop == stopOverrun
}

// scanRegion walks the records of data. Allocated records are collected;
// tombstones and the unwritten tail become free extents, with touching free
// space merged into one extent.
func scanRegion(data []byte) scanResult {
	var res scanResult
	var run freeblocks.Extent
	inRun := false

	extend := func(off, n uint32) {
		if !inRun {
			run, inRun = freeblocks.Extent{Offset: off}, true
		}
		run.Length += n
	}
	flush := func() {
		if inRun {
			res.free = append(res.free, run)
			inRun = false
		}
	}

	c := buf.NewCursor(data, 0)
	for c.Remaining() > 0 {
		hdr, err := format.ReadHeader(c)
		if err != nil {
			res.stop = stopShort
			break
		}
		state := hdr.State()
		if state == format.StateUnwritten {
			res.stop = stopUnwritten
			break
		}
		if hdr.Extent() > uint64(c.Remaining()) {
			res.stop, res.stopSize = stopOverrun, hdr.Size
			break
		}

		off, ext := uint32(c.Offset()), uint32(hdr.Extent())
		if state == format.StateAllocated {
			flush()
			res.live = append(res.live, off)
			res.liveBytes += uint64(hdr.Size)
		} else {
			extend(off, ext)
		}
		c, _ = c.Advance(int(ext))
	}

	res.stopAt = c.Offset()
	if rest := len(data) - res.stopAt; rest > 0 {
		extend(uint32(res.stopAt), uint32(rest))
	}
	flush()
	return res
}

// scanLocked rebuilds the free index and live counters from the region and,
// when collect is set, returns a handle per live record.
func (b *Bucket) scanLocked(collect bool) []Handle {
	res := scanRegion(b.data)

	b.free.Clear()
	for _, e := range res.free {
		b.free.Load(e.Offset, e.Length)
	}
	b.live, b.liveBytes = len(res.live), res.liveBytes

	if res.stop == stopOverrun {
		b.log.Warnw("record overruns region, remainder treated as free",
			"offset", res.stopAt, "size", res.stopSize, "region", len(b.data))
	}
	b.log.Debugw("scanned", "live", b.live, "extents", len(res.free), "end", res.stopAt)

	if !collect {
		return nil
	}
	handles := make([]Handle, len(res.live))
	for i, off := range res.live {
		handles[i] = b.handle(off)
	}
	return handles
}

// Load rescans the region, rebuilds the free index from what it finds, and
// returns a handle for every live record in offset order.
//
// The walk starts at offset 0 and steps from header to header. It ends at the
// first position without a record signature, or at a header whose declared
// size runs past the region; everything from there on is free.
func (b *Bucket) Load() ([]Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	handles := b.scanLocked(true)
	b.checkLocked("load")
	return handles, nil
}

// Validate rescans the region without modifying anything and reports an
// assertion failure when the free index or the live counters disagree with it.
func (b *Bucket) Validate() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if err := b.free.Validate(); err != nil {
		return err
	}

	res := scanRegion(b.data)
	if len(res.live) != b.live || res.liveBytes != b.liveBytes {
		return errors.AssertionFailedf("bucket %s: region holds %d records (%d bytes), counters say %d (%d bytes)",
			FormatID(b.id), len(res.live), res.liveBytes, b.live, b.liveBytes)
	}

	have := b.free.Extents()
	if len(have) != len(res.free) {
		return errors.AssertionFailedf("bucket %s: region has %d free extents, index has %d",
			FormatID(b.id), len(res.free), len(have))
	}
	for i := range have {
		if have[i] != res.free[i] {
			return errors.AssertionFailedf("bucket %s: free extent %d is [%d, %d) in the region but [%d, %d) in the index",
				FormatID(b.id), i, res.free[i].Offset, res.free[i].End(), have[i].Offset, have[i].End())
		}
	}
	return nil
}
