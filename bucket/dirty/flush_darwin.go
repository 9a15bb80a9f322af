//go:build darwin

package dirty

import (
	"context"

	"golang.org/x/sys/unix"
)

// flushRanges flushes the dirty data to disk.
//
// On macOS, msync() requires the address to match the original mmap() address,
// so sub-slices cannot be passed. The whole region is synced instead; the
// kernel only writes pages that are actually dirty.
func (t *Tracker) flushRanges(_ context.Context, data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

// syncFile uses F_FULLFSYNC when fullfsync is set, fsync otherwise.
func (t *Tracker) syncFile(fullfsync bool) error {
	if fullfsync {
		_, err := unix.FcntlInt(uintptr(t.r.FD()), unix.F_FULLFSYNC, 0)
		return err
	}
	return unix.Fsync(t.r.FD())
}
