// Package freeblocks tracks the free byte extents of one fixed-size bucket region.
//
// # Overview
//
// The index keeps two ordered views of the same set of extents:
//
//   - by offset: finds the free neighbours of a released record so they can be merged
//   - by size: finds the smallest extent that satisfies an allocation (best fit)
//
// Both are B-trees, so allocation and release are O(log n) in the number of
// free extents.
//
// # Operations
//
//   - Load(off, len): register an extent found by a scan, no merging
//   - Alloc(n): best-fit carve of n bytes, remainder stays free
//   - AllocExtent(n): same, reporting the extent that was carved
//   - AllocFit(n, min): best fit that never leaves a remainder shorter than min
//   - Free(off, payload): release a record, merge with free neighbours, report the result
//   - Available(): largest single extent, i.e. the largest possible allocation
//
// Free takes the payload length of the released record and adds the record
// header itself, mirroring how records are laid out in the region.
//
// # Thread Safety
//
// FreeBlocks is not thread-safe. The bucket that owns it holds its mutex
// around every call.
package freeblocks
