package bucket

import (
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/joshuapare/bucketkit/bucket/freeblocks"
	"github.com/joshuapare/bucketkit/internal/buf"
	"github.com/joshuapare/bucketkit/internal/format"
)

// Stats is a point-in-time summary of a bucket.
type Stats struct {
	ID            uint32
	Size          int    // region length
	Available     int    // largest payload a single Insert can store
	LargestExtent uint32 // largest free extent, header space included
	FreeBytes     uint64 // sum of all free extents
	FreeExtents   int
	LiveRecords   int
	LiveBytes     uint64 // payload bytes of live records
	Allocator     freeblocks.Stats
}

// Fragmentation returns 1 - largest/total free space, in [0, 1].
func (s Stats) Fragmentation() float64 {
	if s.FreeBytes == 0 {
		return 0
	}
	return 1 - float64(s.LargestExtent)/float64(s.FreeBytes)
}

// Stats returns a summary of the bucket.
func (b *Bucket) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statsLocked()
}

func (b *Bucket) statsLocked() Stats {
	largest := b.free.Available()
	return Stats{
		ID:            b.id,
		Size:          len(b.data),
		Available:     payloadCapacity(largest),
		LargestExtent: largest,
		FreeBytes:     b.free.FreeBytes(),
		FreeExtents:   b.free.Count(),
		LiveRecords:   b.live,
		LiveBytes:     b.liveBytes,
		Allocator:     b.free.Stats(),
	}
}

// Record describes one live record.
type Record struct {
	Offset uint32
	Size   uint32
	Digest uint64 // xxhash64 of the payload
}

// Records lists the live records in offset order with a digest of each payload.
func (b *Bucket) Records() ([]Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	res := scanRegion(b.data)
	out := make([]Record, 0, len(res.live))
	for _, off := range res.live {
		c := buf.NewCursor(b.data, int(off))
		hdr, err := format.ReadHeader(c)
		if err != nil {
			return nil, err
		}
		p, err := format.Payload(c, hdr)
		if err != nil {
			return nil, err
		}
		out = append(out, Record{Offset: off, Size: hdr.Size, Digest: xxhash.Sum64(p)})
	}
	return out, nil
}

// WriteFreeMap writes the bucket summary and both orderings of its free
// extents to w as one JSON object.
func (b *Bucket) WriteFreeMap(w io.Writer) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	st := b.statsLocked()

	jw := jwriter.NewWriter()
	obj := jw.Object()
	obj.Name("id").String(FormatID(st.ID))
	obj.Name("path").String(b.file.Path())
	obj.Name("liveRecords").Int(st.LiveRecords)
	obj.Name("liveBytes").Float64(float64(st.LiveBytes))
	obj.Name("insertable").Int(st.Available)
	obj.Name("fragmentation").Float64(st.Fragmentation())
	free := obj.Name("free").Object()
	b.free.WriteJSON(&free)
	free.End()
	obj.End()
	b.mu.Unlock()

	if err := jw.Error(); err != nil {
		return errors.Wrap(err, "bucket: encode free map")
	}
	_, err := w.Write(jw.Bytes())
	return err
}
