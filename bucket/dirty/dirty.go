// Package dirty tracks which byte ranges of a mapped bucket region have been
// written since the last flush, and flushes them to disk.
//
// The tracker keeps a list of dirty byte ranges, coalesces them into
// page-aligned ranges at flush time, and flushes them using platform-specific
// system calls (msync on Unix, FlushViewOfFile on Windows).
package dirty

import (
	"context"
	"os"
	"sort"
)

// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
const defaultRangeCapacity = 64

// FlushMode controls durability guarantees for a flush.
type FlushMode int

const (
	// FlushAuto msyncs the dirty pages, then fdatasyncs the file.
	FlushAuto FlushMode = iota

	// FlushDataOnly only msyncs the dirty pages. The caller is responsible
	// for syncing the file descriptor later.
	FlushDataOnly

	// FlushFull msyncs the dirty pages and fdatasyncs the file. On macOS it
	// uses F_FULLFSYNC so the drive cache is flushed too.
	FlushFull
)

func (m FlushMode) String() string {
	switch m {
	case FlushAuto:
		return "auto"
	case FlushDataOnly:
		return "data-only"
	case FlushFull:
		return "full"
	default:
		return "unknown"
	}
}

// Region is the mapped storage a Tracker flushes.
type Region interface {
	Bytes() []byte
	FD() int
	Sync() error
}

// Range represents a dirty byte range (offsets from the start of the region).
type Range struct {
	Off int64
	Len int64
}

// Tracker accumulates dirty ranges and flushes them efficiently.
//
// NOT thread-safe. The owning bucket serializes access under its mutex.
type Tracker struct {
	r        Region
	ranges   []Range
	pageSize int64
}

// NewTracker creates a dirty tracker for the given region.
func NewTracker(r Region) *Tracker {
	return &Tracker{
		r:        r,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: int64(os.Getpagesize()),
	}
}

// Add records a dirty range. It is page-aligned and merged at flush time.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// Pending reports whether any ranges are waiting to be flushed.
func (t *Tracker) Pending() bool { return len(t.ranges) > 0 }

// Flush writes every dirty range back to the file and then syncs the file
// descriptor according to mode.
//
// The context is checked between ranges. If it is cancelled mid-way some
// ranges may already be on disk; the tracked ranges are kept so a later
// Flush retries them.
func (t *Tracker) Flush(ctx context.Context, mode FlushMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(t.ranges) == 0 {
		return nil
	}

	data := t.r.Bytes()
	if len(data) == 0 {
		t.ranges = t.ranges[:0]
		return nil
	}

	if err := t.flushRanges(ctx, data); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if mode != FlushDataOnly {
		if err := t.syncFile(mode == FlushFull); err != nil {
			return err
		}
	}

	t.ranges = t.ranges[:0]
	return nil
}

// Reset clears all tracked ranges without flushing them.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// DebugRanges returns a copy of the raw, uncoalesced ranges.
func (t *Tracker) DebugRanges() []Range {
	result := make([]Range, len(t.ranges))
	copy(result, t.ranges)
	return result
}

// DebugCoalescedRanges returns the page-aligned, merged ranges a flush would write.
func (t *Tracker) DebugCoalescedRanges() []Range {
	return t.coalesce()
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping or
// adjacent ranges. Ranges are clamped to the region length.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	limit := int64(len(t.r.Bytes()))
	aligned := make([]Range, 0, len(t.ranges))
	for _, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize

		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}
		if end > limit {
			end = limit
		}
		if start >= end {
			continue
		}

		aligned = append(aligned, Range{Off: start, Len: end - start})
	}
	if len(aligned) == 0 {
		return nil
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.Off+current.Len {
			end := current.Off + current.Len
			if nextEnd := next.Off + next.Len; nextEnd > end {
				end = nextEnd
			}
			current.Len = end - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
