// Package buf contains bounds-checked helpers for reading and writing
// fixed-width fields inside a mapped region.
package buf

import "encoding/binary"

// U32 reads a host-order uint32 from b. Returns 0 when b is too short.
func U32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.NativeEndian.Uint32(b)
}

// PutU32 writes v in host order. It reports false when b is too short.
func PutU32(b []byte, v uint32) bool {
	if len(b) < 4 {
		return false
	}
	binary.NativeEndian.PutUint32(b, v)
	return true
}

// U32LE reads a little-endian uint32 from b. Returns 0 when b is too short.
func U32LE(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// PutU32LE writes v little-endian. It reports false when b is too short.
func PutU32LE(b []byte, v uint32) bool {
	if len(b) < 4 {
		return false
	}
	binary.LittleEndian.PutUint32(b, v)
	return true
}
