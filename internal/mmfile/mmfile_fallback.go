//go:build !unix && !windows

package mmfile

import "io"

// view is unused without mmap; the region lives on the heap and is written
// back on Sync and Close.
type view struct{}

func (m *File) mapFile(size int) error {
	data := make([]byte, size)
	if _, err := m.f.ReadAt(data, 0); err != nil && err != io.EOF {
		return err
	}
	m.data = data
	return nil
}

func (m *File) unmap() error {
	return m.syncView()
}

func (m *File) syncView() error {
	_, err := m.f.WriteAt(m.data, 0)
	return err
}
