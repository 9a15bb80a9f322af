//go:build linux || freebsd

package dirty

import (
	"context"

	"golang.org/x/sys/unix"
)

// flushRanges msyncs each coalesced range.
//
// On Linux and FreeBSD msync() accepts page-aligned sub-slices of the mapping.
func (t *Tracker) flushRanges(ctx context.Context, data []byte) error {
	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := unix.Msync(data[r.Off:r.Off+r.Len], unix.MS_SYNC); err != nil {
			return err
		}
	}
	return nil
}

// syncFile performs a file descriptor sync. fullfsync is ignored here.
func (t *Tracker) syncFile(_ bool) error {
	return unix.Fdatasync(t.r.FD())
}
