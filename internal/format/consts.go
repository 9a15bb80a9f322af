// Package format houses the on-disk record layout used inside a bucket's
// mapped region. Every record is a fixed 8-byte header followed by its payload:
//
//	Offset  Size  Description
//	0x00    4     Signature (AllocatedMark, ReleasedMark, anything else = unwritten)
//	0x04    4     Payload length in bytes, header excluded
//	0x08    n     Payload
//
// Header fields are stored in host byte order. Buckets written on a machine of
// one endianness are not readable on the other.
package format

const (
	// HeaderSize is the size of the record header in bytes.
	HeaderSize = 8

	// SignatureOffset is the position of the signature word inside the header.
	SignatureOffset = 0x00

	// SizeOffset is the position of the payload length inside the header.
	SizeOffset = 0x04
)

const (
	// AllocatedMark tags a record that holds live data.
	AllocatedMark uint32 = 0xA110CA7E

	// ReleasedMark tags a freed record. The header stays in place as a
	// tombstone so the extent can be recovered by a rescan.
	ReleasedMark uint32 = 0xDEADB10C
)

// MaxExtent is the largest extent (header included) addressable by a 32-bit offset.
const MaxExtent = 1<<32 - 1
