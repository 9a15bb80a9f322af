package bucket

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joshuapare/bucketkit/bucket/dirty"
	"github.com/joshuapare/bucketkit/bucket/freeblocks"
	"github.com/joshuapare/bucketkit/internal/buf"
	"github.com/joshuapare/bucketkit/internal/format"
	"github.com/joshuapare/bucketkit/internal/mmfile"
)

// Bucket is a fixed-size, file-backed record store. Records are packed into
// the mapped region and addressed by Handle. A single mutex serializes every
// operation on the bucket; distinct buckets never contend.
type Bucket struct {
	mu sync.Mutex

	id     uint32
	object string
	file   *mmfile.File
	data   []byte // mapped region, nil after Close

	free  *freeblocks.FreeBlocks
	dirty *dirty.Tracker

	live      int    // allocated records
	liveBytes uint64 // payload bytes held by allocated records

	reg *Registry // set before the bucket is published by a Registry

	opts   Options
	log    *zap.SugaredLogger
	closed bool
}

// Open maps the file for bucket id under dir and rebuilds its free index.
//
// A new file is created with size bytes (rounded up to opts.AllocationUnit).
// An existing non-empty file keeps its own length, so size only matters the
// first time. Use Load to obtain handles for the records already present.
func Open(dir, objectName string, id uint32, size int64, opts *Options) (*Bucket, error) {
	if id == 0 {
		return nil, ErrBadID
	}
	o := opts.normalize()

	path := FileName(dir, objectName, id)
	f, err := mmfile.Open(path, size, o.AllocationUnit)
	if err != nil {
		if errors.Is(err, mmfile.ErrBadSize) {
			return nil, errors.Mark(errors.Wrapf(err, "bucket %s", FormatID(id)), ErrBadSize)
		}
		return nil, errors.Wrapf(err, "bucket %s", FormatID(id))
	}
	if f.Size() <= format.HeaderSize {
		_ = f.Close()
		return nil, errors.Wrapf(ErrBadSize, "bucket %s: %d bytes cannot hold a record", FormatID(id), f.Size())
	}

	b := &Bucket{
		id:     id,
		object: objectName,
		file:   f,
		data:   f.Bytes(),
		free:   freeblocks.New(uint32(f.Size())),
		dirty:  dirty.NewTracker(f),
		opts:   o,
		log:    o.Logger.Named("bucket").Sugar().With("id", FormatID(id)),
	}

	b.mu.Lock()
	b.scanLocked(false)
	b.checkLocked("open")
	b.mu.Unlock()

	b.log.Debugw("opened", "path", path, "size", len(b.data),
		"live", b.live, "extents", b.free.Count(), "available", b.free.Available())
	return b, nil
}

// ID returns the bucket id.
func (b *Bucket) ID() uint32 { return b.id }

// ObjectName returns the object name the bucket file was opened under.
func (b *Bucket) ObjectName() string { return b.object }

// Path returns the backing file path.
func (b *Bucket) Path() string { return b.file.Path() }

// Bytes returns the mapped region. Writes through the slice bypass the free
// index and the dirty tracker. Nil after Close.
func (b *Bucket) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Size returns the region length in bytes, or 0 after Close.
func (b *Bucket) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Available returns the largest payload a single Insert can currently store.
func (b *Bucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return payloadCapacity(b.free.Available())
}

func payloadCapacity(extent uint32) int {
	if extent <= format.HeaderSize {
		return 0
	}
	return int(extent - format.HeaderSize)
}

// Empty reports whether the whole region is a single free extent.
func (b *Bucket) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && int(b.free.Available()) == len(b.data)
}

// Insert copies data into a new record and returns its handle. When no free
// extent can hold len(data)+8 bytes it returns the empty Handle and
// ErrNoSpace; the bucket is unchanged.
func (b *Bucket) Insert(data []byte) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	off, payload, err := b.allocLocked(len(data))
	if err != nil {
		return Handle{}, err
	}
	copy(payload, data)
	b.checkLocked("insert")
	return b.handle(off), nil
}

// Reserve allocates a record of n payload bytes without writing the payload.
// The caller fills it through Handle.Data.
func (b *Bucket) Reserve(n int) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	off, _, err := b.allocLocked(n)
	if err != nil {
		return Handle{}, err
	}
	b.checkLocked("reserve")
	return b.handle(off), nil
}

// allocLocked carves a record for n payload bytes, writes its header and
// returns the record offset and payload slice.
//
// Every free extent keeps a tombstone header at its start so a rescan can step
// over it. An extent that would leave fewer than HeaderSize spare bytes cannot
// mark its remainder and is never chosen; the next larger extent is used
// instead, which may mean ErrNoSpace while Available still reports a bigger
// payload.
func (b *Bucket) allocLocked(n int) (uint32, []byte, error) {
	if b.closed {
		return 0, nil, ErrClosed
	}
	if n < 0 {
		return 0, nil, errors.Wrapf(ErrBadSize, "negative payload length %d", n)
	}
	full, err := format.Extent(n)
	if err != nil || full > uint32(len(b.data)) {
		return 0, nil, ErrNoSpace
	}

	ext, ok := b.free.AllocFit(full, format.HeaderSize)
	if !ok {
		return 0, nil, ErrNoSpace
	}
	if rest := ext.Length - full; rest > 0 {
		b.writeTombstone(ext.Offset+full, rest)
	}

	hdr := format.Header{Signature: format.AllocatedMark, Size: uint32(n)}
	c := buf.NewCursor(b.data, int(ext.Offset))
	if err := format.WriteHeader(c, hdr); err != nil {
		return 0, nil, errors.AssertionFailedf("bucket %s: header at %d: %v", FormatID(b.id), ext.Offset, err)
	}
	payload, err := format.Payload(c, hdr)
	if err != nil {
		return 0, nil, errors.AssertionFailedf("bucket %s: payload at %d: %v", FormatID(b.id), ext.Offset, err)
	}

	b.dirty.Add(int(ext.Offset), int(full))
	b.live++
	b.liveBytes += uint64(n)
	return ext.Offset, payload, nil
}

// writeTombstone marks the free extent [off, off+length) with a released
// header. length is at least HeaderSize.
func (b *Bucket) writeTombstone(off, length uint32) {
	c := buf.NewCursor(b.data, int(off))
	_ = format.WriteHeader(c, format.Header{Signature: format.ReleasedMark, Size: length - format.HeaderSize})
	b.dirty.Add(int(off), format.HeaderSize)
}

// Free releases the record addressed by h. Releasing a record twice is a
// no-op. A handle that does not resolve to this bucket, the empty handle, or
// an offset without a record signature yields ErrInvalidAddress and leaves
// the bucket untouched.
func (b *Bucket) Free(h Handle) error {
	// Resolve before locking: the registry lock is taken ahead of b.mu.
	owner := h.Bucket()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if !h.IsValid() {
		return errors.Wrap(ErrInvalidAddress, "empty handle")
	}
	if owner != b {
		return errors.Wrapf(ErrInvalidAddress, "handle %s does not resolve to bucket %s", h, FormatID(b.id))
	}

	c := buf.NewCursor(b.data, int(h.off))
	hdr, err := format.ReadHeader(c)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "bucket %s: free at %d", FormatID(b.id), h.off), ErrInvalidAddress)
	}

	switch hdr.State() {
	case format.StateReleased:
		return nil
	case format.StateUnwritten:
		return errors.Wrapf(ErrInvalidAddress, "bucket %s: no record at %d (signature %#x)", FormatID(b.id), h.off, hdr.Signature)
	}

	if hdr.Extent() > uint64(len(b.data))-uint64(h.off) {
		return errors.Wrapf(ErrInvalidAddress, "bucket %s: record at %d claims %d bytes", FormatID(b.id), h.off, hdr.Size)
	}

	merged, err := b.free.Free(h.off, hdr.Size)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "bucket %s: free at %d", FormatID(b.id), h.off), ErrInvalidAddress)
	}
	b.writeTombstone(merged.Offset, merged.Length)
	if merged.Offset != h.off {
		_ = format.SetSignature(c, format.ReleasedMark)
		b.dirty.Add(int(h.off), format.HeaderSize)
	}

	b.live--
	b.liveBytes -= uint64(hdr.Size)
	b.checkLocked("free")
	return nil
}

// Clear zeroes the region and makes all of it one free extent. Every
// outstanding handle becomes invalid.
func (b *Bucket) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	clear(b.data)
	b.free.Clear()
	b.free.Load(0, uint32(len(b.data)))
	b.dirty.Add(0, len(b.data))
	b.live, b.liveBytes = 0, 0
	b.checkLocked("clear")

	b.log.Debugw("cleared", "size", len(b.data))
	return nil
}

// Flush writes pending changes to stable storage according to Options.FlushMode.
func (b *Bucket) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	return b.flushLocked(ctx)
}

func (b *Bucket) flushLocked(ctx context.Context) error {
	if !b.dirty.Pending() {
		return nil
	}
	if err := b.dirty.Flush(ctx, b.opts.FlushMode); err != nil {
		return errors.Wrapf(err, "bucket %s: flush", FormatID(b.id))
	}
	return nil
}

// Close flushes pending changes when Options.SyncOnClose is set, then unmaps
// the region. Closing twice is a no-op.
func (b *Bucket) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	var err error
	if b.opts.SyncOnClose {
		err = b.flushLocked(context.Background())
	}
	if cerr := b.file.Close(); cerr != nil && err == nil {
		err = errors.Wrapf(cerr, "bucket %s: close", FormatID(b.id))
	}

	b.closed = true
	b.data = nil
	b.free.Clear()
	b.dirty.Reset()
	b.live, b.liveBytes = 0, 0

	b.log.Debugw("closed")
	return err
}

// checkLocked validates the free index when invariant checking is enabled.
// A violation means the allocator state is corrupt, so it panics.
func (b *Bucket) checkLocked(op string) {
	if !b.opts.CheckInvariants {
		return
	}
	if err := b.free.Validate(); err != nil {
		panic(errors.Wrapf(err, "bucket %s: after %s", FormatID(b.id), op))
	}
	if err := b.free.CheckCoalesced(); err != nil {
		panic(errors.Wrapf(err, "bucket %s: after %s", FormatID(b.id), op))
	}
}
