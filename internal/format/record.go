package format

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/bucketkit/internal/buf"
)

// State classifies a header by its signature word.
type State uint8

const (
	// StateUnwritten marks a position that never held a record.
	StateUnwritten State = iota
	// StateAllocated marks a live record.
	StateAllocated
	// StateReleased marks a tombstone.
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateAllocated:
		return "allocated"
	case StateReleased:
		return "released"
	default:
		return "unwritten"
	}
}

// Classify maps a signature word to a State.
func Classify(sig uint32) State {
	switch sig {
	case AllocatedMark:
		return StateAllocated
	case ReleasedMark:
		return StateReleased
	default:
		return StateUnwritten
	}
}

// Header is the decoded fixed-size prefix of a record.
type Header struct {
	Signature uint32
	Size      uint32 // payload length, header excluded
}

// State returns the classification of the header's signature.
func (h Header) State() State { return Classify(h.Signature) }

// Extent returns the number of bytes the record occupies, header included.
func (h Header) Extent() uint64 { return uint64(HeaderSize) + uint64(h.Size) }

// Extent returns HeaderSize+payload as a uint32 extent length, or ErrTooLarge
// when the sum does not fit.
func Extent(payload int) (uint32, error) {
	if payload < 0 {
		return 0, errors.Newf("format: negative payload length %d", payload)
	}
	full := uint64(payload) + HeaderSize
	if full > MaxExtent {
		return 0, errors.Wrapf(ErrTooLarge, "payload of %d bytes", payload)
	}
	return uint32(full), nil
}

// ReadHeader decodes the header at the cursor position.
func ReadHeader(c buf.Cursor) (Header, error) {
	sig, ok := c.U32At(SignatureOffset)
	if !ok {
		return Header{}, errors.Wrapf(ErrTruncated, "header at %d", c.Offset())
	}
	size, ok := c.U32At(SizeOffset)
	if !ok {
		return Header{}, errors.Wrapf(ErrTruncated, "header at %d", c.Offset())
	}
	return Header{Signature: sig, Size: size}, nil
}

// WriteHeader encodes h at the cursor position. The size word is stored before
// the signature so a header never carries a valid mark with a stale length.
func WriteHeader(c buf.Cursor, h Header) error {
	if _, ok := c.Bytes(0, HeaderSize); !ok {
		return errors.Wrapf(ErrTruncated, "header at %d", c.Offset())
	}
	c.PutU32At(SizeOffset, h.Size)
	c.PutU32At(SignatureOffset, h.Signature)
	return nil
}

// SetSignature rewrites only the signature word of the header at the cursor.
func SetSignature(c buf.Cursor, sig uint32) error {
	if !c.PutU32At(SignatureOffset, sig) {
		return errors.Wrapf(ErrTruncated, "signature at %d", c.Offset())
	}
	return nil
}

// Payload returns the payload bytes of the record whose header is h, located
// at the cursor. The slice aliases the region.
func Payload(c buf.Cursor, h Header) ([]byte, error) {
	p, ok := c.Bytes(HeaderSize, int(h.Size))
	if !ok {
		return nil, errors.Wrapf(ErrTruncated, "payload of %d bytes at %d", h.Size, c.Offset())
	}
	return p, nil
}
