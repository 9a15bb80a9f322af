package freeblocks

import "github.com/cockroachdb/errors"

// Validate checks that both indices hold the same extents, that every extent
// lies inside the region, and that no two extents overlap.
func (f *FreeBlocks) Validate() error {
	if f.byOffset.Len() != f.bySize.Len() {
		return errors.AssertionFailedf("freeblocks: offset index has %d extents, size index has %d",
			f.byOffset.Len(), f.bySize.Len())
	}

	var err error
	var prev Extent
	first := true
	f.byOffset.Ascend(func(e Extent) bool {
		switch {
		case e.Length == 0:
			err = errors.AssertionFailedf("freeblocks: zero-length extent at %d", e.Offset)
		case e.End() > uint64(f.size):
			err = errors.AssertionFailedf("freeblocks: extent [%d, %d) exceeds region of %d bytes",
				e.Offset, e.End(), f.size)
		case !f.bySize.Has(e):
			err = errors.AssertionFailedf("freeblocks: extent [%d, %d) missing from size index",
				e.Offset, e.End())
		case !first && prev.End() > uint64(e.Offset):
			err = errors.AssertionFailedf("freeblocks: extents [%d, %d) and [%d, %d) overlap",
				prev.Offset, prev.End(), e.Offset, e.End())
		}
		prev, first = e, false
		return err == nil
	})
	return err
}

// CheckCoalesced reports an error when two free extents touch. Indices built
// only through Free, Alloc, and a coalesced scan never leave neighbours unmerged.
func (f *FreeBlocks) CheckCoalesced() error {
	var err error
	var prev Extent
	first := true
	f.byOffset.Ascend(func(e Extent) bool {
		if !first && prev.End() == uint64(e.Offset) {
			err = errors.AssertionFailedf("freeblocks: adjacent extents at %d and %d were not merged",
				prev.Offset, e.Offset)
			return false
		}
		prev, first = e, false
		return true
	})
	return err
}
