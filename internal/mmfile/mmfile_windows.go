//go:build windows

package mmfile

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

type view struct {
	mapping windows.Handle
	addr    uintptr
}

func (m *File) mapFile(size int) error {
	sz := uint64(size)
	h, err := windows.CreateFileMapping(
		windows.Handle(m.f.Fd()),
		nil,
		windows.PAGE_READWRITE,
		uint32(sz>>32),
		uint32(sz),
		nil,
	)
	if err != nil {
		return err
	}
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		_ = windows.CloseHandle(h)
		return err
	}
	m.view = view{mapping: h, addr: addr}
	m.data = unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return nil
}

func (m *File) unmap() error {
	err := windows.UnmapViewOfFile(m.view.addr)
	if cerr := windows.CloseHandle(m.view.mapping); cerr != nil && err == nil {
		err = cerr
	}
	m.view = view{}
	return err
}

func (m *File) syncView() error {
	return windows.FlushViewOfFile(m.view.addr, uintptr(len(m.data)))
}
