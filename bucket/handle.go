package bucket

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/bucketkit/internal/buf"
	"github.com/joshuapare/bucketkit/internal/format"
)

// PackedHandleSize is the length of a packed handle: bucket id then offset,
// both little-endian uint32.
const PackedHandleSize = 8

// Handle addresses one record inside a bucket by bucket id and offset. It
// does not own the record; it stays meaningful from the Insert that produced
// it until the matching Free. The zero Handle is the empty handle.
//
// A handle issued by a bucket that belongs to a Registry resolves its bucket
// through that registry on every use, so it keeps working after the bucket is
// removed and reopened. A handle from a standalone bucket is tied to that
// *Bucket.
type Handle struct {
	b   *Bucket
	reg *Registry
	id  uint32
	off uint32
}

// handle returns the handle for the record at off.
func (b *Bucket) handle(off uint32) Handle {
	if b.reg != nil {
		return Handle{reg: b.reg, id: b.id, off: off}
	}
	return Handle{b: b, id: b.id, off: off}
}

// IsValid reports whether the handle names a bucket at all. It does not
// check that the bucket is open or that the record is still live; use Size
// or Data for that.
func (h Handle) IsValid() bool { return h.id != 0 }

// Bucket returns the bucket the handle currently resolves to. It is nil for
// the empty handle and for a registry handle whose bucket is not registered.
func (h Handle) Bucket() *Bucket {
	if h.reg != nil {
		b, _ := h.reg.Find(h.id)
		return b
	}
	return h.b
}

// ID returns the bucket id, 0 for the empty handle.
func (h Handle) ID() uint32 { return h.id }

// Offset returns the record's position inside the region.
func (h Handle) Offset() uint32 { return h.off }

// Data returns the payload of a live record. The slice aliases the mapped
// region and is only meaningful until the record is freed or the bucket is
// closed. Data returns nil when the handle does not address a live record.
func (h Handle) Data() []byte {
	b := h.Bucket()
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, _ := b.livePayload(h.off)
	return p
}

// Size returns the payload length of a live record, or 0.
func (h Handle) Size() int {
	b := h.Bucket()
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	hdr, ok := b.liveHeader(h.off)
	if !ok {
		return 0
	}
	return int(hdr.Size)
}

// Free releases the record through the bucket the handle resolves to.
func (h Handle) Free() error {
	if !h.IsValid() {
		return errors.Wrap(ErrInvalidAddress, "empty handle")
	}
	b := h.Bucket()
	if b == nil {
		return errors.Wrapf(ErrBucketNotFound, "bucket %s", FormatID(h.id))
	}
	return b.Free(h)
}

func (h Handle) String() string {
	if !h.IsValid() {
		return "handle(empty)"
	}
	return fmt.Sprintf("handle(%s@%d)", FormatID(h.id), h.off)
}

// Pack encodes the handle into dst, which must hold PackedHandleSize bytes.
// The empty handle packs as bucket id 0.
func (h Handle) Pack(dst []byte) bool {
	if len(dst) < PackedHandleSize {
		return false
	}
	buf.PutU32LE(dst[0:4], h.id)
	buf.PutU32LE(dst[4:8], h.off)
	return true
}

// MarshalBinary returns the packed form of the handle.
func (h Handle) MarshalBinary() ([]byte, error) {
	out := make([]byte, PackedHandleSize)
	h.Pack(out)
	return out, nil
}

// liveHeader returns the header at off when it belongs to a live record that
// fits inside the region. The caller holds b.mu.
func (b *Bucket) liveHeader(off uint32) (format.Header, bool) {
	if b.closed {
		return format.Header{}, false
	}
	hdr, err := format.ReadHeader(buf.NewCursor(b.data, int(off)))
	if err != nil || hdr.State() != format.StateAllocated {
		return format.Header{}, false
	}
	if hdr.Extent() > uint64(len(b.data))-uint64(off) {
		return format.Header{}, false
	}
	return hdr, true
}

// livePayload returns the payload of the live record at off. The caller holds b.mu.
func (b *Bucket) livePayload(off uint32) ([]byte, bool) {
	hdr, ok := b.liveHeader(off)
	if !ok {
		return nil, false
	}
	p, err := format.Payload(buf.NewCursor(b.data, int(off)), hdr)
	if err != nil {
		return nil, false
	}
	return p, true
}
