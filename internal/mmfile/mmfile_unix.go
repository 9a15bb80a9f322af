//go:build unix

package mmfile

import (
	"errors"

	"golang.org/x/sys/unix"
)

type view struct{}

func (m *File) mapFile(size int) error {
	data, err := unix.Mmap(int(m.f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}

func (m *File) unmap() error {
	err := unix.Munmap(m.data)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}

func (m *File) syncView() error {
	return unix.Msync(m.data, unix.MS_SYNC)
}
