//go:build windows

package dirty

import (
	"context"
	"unsafe"

	"golang.org/x/sys/windows"
)

// flushRanges flushes each coalesced range with FlushViewOfFile.
func (t *Tracker) flushRanges(ctx context.Context, data []byte) error {
	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		addr := uintptr(unsafe.Pointer(&data[r.Off]))
		if err := windows.FlushViewOfFile(addr, uintptr(r.Len)); err != nil {
			return err
		}
	}
	return nil
}

// syncFile performs a file sync using FlushFileBuffers.
func (t *Tracker) syncFile(_ bool) error {
	return windows.FlushFileBuffers(windows.Handle(t.r.FD()))
}
