// Package mmfile provides fixed-size, read-write memory mappings of bucket files.
//
// A mapping is opened with a requested size. When the file does not exist (or
// is empty) it is created and extended to that size, optionally rounded up to
// an allocation unit. When the file already holds data its existing length is
// used instead, so a bucket reopened with a different size keeps its contents.
package mmfile

import (
	"math"
	"os"

	"github.com/cockroachdb/errors"
)

// DefaultAllocationUnit is the rounding granularity historically used for
// bucket files. Pass it to Open to reproduce that layout.
const DefaultAllocationUnit = 64 * 1024

var (
	// ErrBadSize indicates a requested or existing file size that cannot be mapped.
	ErrBadSize = errors.New("mmfile: invalid mapping size")

	// ErrClosed indicates use of a mapping after Close.
	ErrClosed = errors.New("mmfile: mapping closed")
)

// File is a read-write mapping of a fixed-size file.
type File struct {
	path string
	f    *os.File
	data []byte
	view view // platform-specific mapping state
}

// AlignSize rounds size up to a multiple of unit. A unit <= 0 disables rounding.
func AlignSize(size, unit int64) int64 {
	if unit <= 0 {
		return size
	}
	aligned := (size / unit) * unit
	if aligned < size {
		aligned += unit
	}
	return aligned
}

// Open creates or opens the file at path and maps it read-write.
func Open(path string, size, unit int64) (*File, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrBadSize, "requested %d bytes", size)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "mmfile: open %s", path)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "mmfile: stat %s", path)
	}

	sz := st.Size()
	if sz == 0 {
		sz = AlignSize(size, unit)
		if err := f.Truncate(sz); err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "mmfile: extend %s to %d bytes", path, sz)
		}
	}
	if sz > math.MaxUint32 || sz > int64(^uint(0)>>1) {
		_ = f.Close()
		return nil, errors.Wrapf(ErrBadSize, "%s is %d bytes", path, sz)
	}

	m := &File{path: path, f: f}
	if err := m.mapFile(int(sz)); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "mmfile: map %s", path)
	}
	return m, nil
}

// Path returns the backing file name.
func (m *File) Path() string { return m.path }

// Bytes returns the mapped region. The slice stays valid until Close.
func (m *File) Bytes() []byte { return m.data }

// Size returns the mapped length in bytes.
func (m *File) Size() int { return len(m.data) }

// FD returns the backing file descriptor, or -1 after Close.
func (m *File) FD() int {
	if m.f == nil {
		return -1
	}
	return int(m.f.Fd())
}

// Sync flushes the whole mapping and the file descriptor to stable storage.
func (m *File) Sync() error {
	if m.f == nil {
		return ErrClosed
	}
	if err := m.syncView(); err != nil {
		return errors.Wrapf(err, "mmfile: sync %s", m.path)
	}
	return m.f.Sync()
}

// Close unmaps the region and closes the file. Calling Close twice is a no-op.
func (m *File) Close() error {
	if m.f == nil {
		return nil
	}
	var err error
	if m.data != nil {
		err = m.unmap()
		m.data = nil
	}
	if cerr := m.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	m.f = nil
	return err
}
