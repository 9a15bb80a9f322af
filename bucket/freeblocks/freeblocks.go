package freeblocks

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"

	"github.com/joshuapare/bucketkit/internal/format"
)

// NoSpace is the offset Alloc reports when no extent can satisfy a request.
const NoSpace = math.MaxUint32

// btreeDegree is the node fan-out for both indices.
const btreeDegree = 32

// ErrOverlap indicates a freed extent that overlaps space already tracked as free.
var ErrOverlap = errors.New("freeblocks: extent overlaps a free extent")

// Extent is a contiguous free byte range inside the region.
type Extent struct {
	Offset uint32
	Length uint32
}

// End returns the first offset past the extent.
func (e Extent) End() uint64 { return uint64(e.Offset) + uint64(e.Length) }

func byOffsetLess(a, b Extent) bool { return a.Offset < b.Offset }

// bySizeLess orders by length, breaking ties on offset so equal-length extents
// coexist and the lowest offset is handed out first.
func bySizeLess(a, b Extent) bool {
	if a.Length != b.Length {
		return a.Length < b.Length
	}
	return a.Offset < b.Offset
}

// Stats counts allocator activity since construction.
type Stats struct {
	Loads            int // extents registered through Load
	AllocCalls       int // Alloc calls
	AllocFailures    int // Alloc calls that found no extent
	FreeCalls        int // Free calls
	Splits           int // allocations that left a remainder
	CoalesceForward  int // frees merged with the following extent
	CoalesceBackward int // frees merged with the preceding extent
}

// FreeBlocks indexes the free extents of one fixed-size region.
//
// byOffset answers adjacency questions for coalescing; bySize answers
// best-fit questions for allocation. Both always hold the same extents: every
// mutation goes through insert and remove, which update the two trees together.
//
// NOT thread-safe. The owning bucket serializes access.
type FreeBlocks struct {
	size     uint32
	byOffset *btree.BTreeG[Extent]
	bySize   *btree.BTreeG[Extent]
	stats    Stats
}

// New returns an empty index for a region of size bytes.
func New(size uint32) *FreeBlocks {
	return &FreeBlocks{
		size:     size,
		byOffset: btree.NewG(btreeDegree, byOffsetLess),
		bySize:   btree.NewG(btreeDegree, bySizeLess),
	}
}

// Size returns the region size the index was built for.
func (f *FreeBlocks) Size() uint32 { return f.size }

func (f *FreeBlocks) insert(e Extent) {
	f.byOffset.ReplaceOrInsert(e)
	f.bySize.ReplaceOrInsert(e)
}

func (f *FreeBlocks) remove(e Extent) {
	f.byOffset.Delete(e)
	f.bySize.Delete(e)
}

// Load registers a free extent without coalescing. It is meant for rebuilding
// the index from a scan. An offset that is already present is ignored, and so
// is a zero-length extent.
func (f *FreeBlocks) Load(offset, length uint32) {
	if length == 0 {
		return
	}
	if f.byOffset.Has(Extent{Offset: offset}) {
		return
	}
	f.stats.Loads++
	f.insert(Extent{Offset: offset, Length: length})
}

// Alloc carves n bytes from the smallest extent that can hold them and returns
// the start of that extent. Any remainder stays free at offset+n. ok is false,
// and the offset NoSpace, when no extent is large enough.
func (f *FreeBlocks) Alloc(n uint32) (offset uint32, ok bool) {
	e, ok := f.AllocExtent(n)
	if !ok {
		return NoSpace, false
	}
	return e.Offset, true
}

// AllocExtent is Alloc but reports the whole extent the allocation was carved
// from, so the caller can see how large the remainder is.
func (f *FreeBlocks) AllocExtent(n uint32) (Extent, bool) {
	return f.AllocFit(n, 0)
}

// AllocFit is AllocExtent restricted to extents that either match n exactly or
// leave a remainder of at least minRest bytes. Extents in between are passed
// over, so a caller that must mark every free extent never gets a remainder
// too short to hold the mark.
func (f *FreeBlocks) AllocFit(n, minRest uint32) (Extent, bool) {
	f.stats.AllocCalls++
	if n == 0 {
		f.stats.AllocFailures++
		return Extent{}, false
	}

	found, ok := f.lowerBound(uint64(n))
	if ok && found.Length != n && found.Length-n < minRest {
		found, ok = f.lowerBound(uint64(n) + uint64(minRest))
	}
	if !ok {
		f.stats.AllocFailures++
		return Extent{}, false
	}

	f.remove(found)
	if rest := found.Length - n; rest > 0 {
		f.stats.Splits++
		f.insert(Extent{Offset: found.Offset + n, Length: rest})
	}
	return found, true
}

// lowerBound returns the smallest extent of at least n bytes, lowest offset first.
func (f *FreeBlocks) lowerBound(n uint64) (Extent, bool) {
	if n > math.MaxUint32 {
		return Extent{}, false
	}
	var found Extent
	var ok bool
	f.bySize.AscendGreaterOrEqual(Extent{Length: uint32(n)}, func(e Extent) bool {
		found, ok = e, true
		return false
	})
	return found, ok
}

// Free returns the record at offset, whose payload is payload bytes, to the
// index. The header size is added internally. The extent is merged with a
// free extent ending at offset and with one starting right after it; the
// resulting extent is returned.
func (f *FreeBlocks) Free(offset, payload uint32) (Extent, error) {
	f.stats.FreeCalls++

	full := uint64(payload) + format.HeaderSize
	end := uint64(offset) + full
	if end > uint64(f.size) {
		return Extent{}, errors.Newf("freeblocks: extent [%d, %d) exceeds region of %d bytes", offset, end, f.size)
	}

	var prior, next Extent
	var hasPrior, hasNext bool
	f.byOffset.DescendLessOrEqual(Extent{Offset: offset}, func(e Extent) bool {
		prior, hasPrior = e, true
		return false
	})
	f.byOffset.AscendGreaterOrEqual(Extent{Offset: offset}, func(e Extent) bool {
		next, hasNext = e, true
		return false
	})

	if hasPrior && prior.End() > uint64(offset) {
		return Extent{}, errors.Wrapf(ErrOverlap, "[%d, %d) overlaps free [%d, %d)", offset, end, prior.Offset, prior.End())
	}
	if hasNext && uint64(next.Offset) < end {
		return Extent{}, errors.Wrapf(ErrOverlap, "[%d, %d) overlaps free [%d, %d)", offset, end, next.Offset, next.End())
	}

	joinPrior := hasPrior && prior.End() == uint64(offset)
	joinNext := hasNext && uint64(next.Offset) == end
	merged := Extent{Offset: offset, Length: uint32(full)}

	switch {
	case joinPrior && joinNext:
		f.stats.CoalesceBackward++
		f.stats.CoalesceForward++
		f.remove(next)
		f.remove(prior)
		merged = Extent{Offset: prior.Offset, Length: prior.Length + merged.Length + next.Length}
	case joinPrior:
		f.stats.CoalesceBackward++
		f.remove(prior)
		merged = Extent{Offset: prior.Offset, Length: prior.Length + merged.Length}
	case joinNext:
		f.stats.CoalesceForward++
		f.remove(next)
		merged.Length += next.Length
	}
	f.insert(merged)
	return merged, nil
}

// Clear drops every extent.
func (f *FreeBlocks) Clear() {
	f.byOffset.Clear(false)
	f.bySize.Clear(false)
}

// Available returns the length of the largest free extent: the biggest single
// allocation the region can currently satisfy. It is not the total free space.
func (f *FreeBlocks) Available() uint32 {
	e, ok := f.bySize.Max()
	if !ok {
		return 0
	}
	return e.Length
}

// Count returns the number of distinct free extents.
func (f *FreeBlocks) Count() int { return f.byOffset.Len() }

// FreeBytes returns the sum of all free extents.
func (f *FreeBlocks) FreeBytes() uint64 {
	var total uint64
	f.byOffset.Ascend(func(e Extent) bool {
		total += uint64(e.Length)
		return true
	})
	return total
}

// Extents returns the free extents ordered by offset.
func (f *FreeBlocks) Extents() []Extent {
	out := make([]Extent, 0, f.byOffset.Len())
	f.byOffset.Ascend(func(e Extent) bool {
		out = append(out, e)
		return true
	})
	return out
}

// BySize returns the free extents in allocation order: ascending length,
// then ascending offset.
func (f *FreeBlocks) BySize() []Extent {
	out := make([]Extent, 0, f.bySize.Len())
	f.bySize.Ascend(func(e Extent) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Stats returns the activity counters.
func (f *FreeBlocks) Stats() Stats { return f.stats }
