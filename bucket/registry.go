package bucket

import (
	"context"
	"os"
	"runtime"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/bucketkit/internal/buf"
	"github.com/joshuapare/bucketkit/internal/format"
)

// DefaultObjectName is the file name prefix used when Config.ObjectName is empty.
const DefaultObjectName = "bucket"

// DefaultBucketSize is the region size used when neither Create nor Config
// specify one.
const DefaultBucketSize = 64 * 1024 * 1024

// Config configures a Registry.
type Config struct {
	// Dir holds the bucket files. It is created if missing.
	Dir string

	// ObjectName prefixes every bucket file name: ObjectName_##########.
	// Default: DefaultObjectName
	ObjectName string

	// BucketSize is the region size for Create calls that pass 0.
	// Default: DefaultBucketSize
	BucketSize int64

	// Options applies to every bucket the registry opens. Nil means DefaultOptions().
	Options *Options
}

// Registry maps bucket ids to open buckets sharing one directory and object
// name. It is safe for concurrent use.
type Registry struct {
	cfg Config
	log *zap.SugaredLogger

	mu      sync.RWMutex
	buckets map[uint32]*Bucket
}

// NewRegistry prepares cfg.Dir and returns an empty registry. Existing bucket
// files are not opened until Discover or Create is called.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Dir == "" {
		return nil, errors.New("bucket: registry directory is required")
	}
	if cfg.ObjectName == "" {
		cfg.ObjectName = DefaultObjectName
	}
	if cfg.BucketSize <= 0 {
		cfg.BucketSize = DefaultBucketSize
	}
	o := cfg.Options.normalize()
	cfg.Options = &o

	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "bucket: create %s", cfg.Dir)
	}
	return &Registry{
		cfg:     cfg,
		log:     o.Logger.Named("registry").Sugar(),
		buckets: make(map[uint32]*Bucket),
	}, nil
}

// Dir returns the registry directory.
func (r *Registry) Dir() string { return r.cfg.Dir }

// Create opens bucket id, creating its file with size bytes (Config.BucketSize
// when size is 0), and registers it.
func (r *Registry) Create(id uint32, size int64) (*Bucket, error) {
	if size == 0 {
		size = r.cfg.BucketSize
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.buckets[id]; ok {
		return nil, errors.Wrapf(ErrBucketExists, "bucket %s", FormatID(id))
	}
	b, err := Open(r.cfg.Dir, r.cfg.ObjectName, id, size, r.cfg.Options)
	if err != nil {
		return nil, err
	}
	b.reg = r
	r.buckets[id] = b
	r.log.Debugw("registered", "id", FormatID(id), "size", b.Size())
	return b, nil
}

// Find returns the registered bucket with id.
func (r *Registry) Find(id uint32) (*Bucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[id]
	return b, ok
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []uint32 {
	r.mu.RLock()
	ids := make([]uint32, 0, len(r.buckets))
	for id := range r.buckets {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered buckets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buckets)
}

// Remove unregisters bucket id and closes it. The file stays on disk.
func (r *Registry) Remove(id uint32) error {
	b, err := r.detach(id)
	if err != nil {
		return err
	}
	return b.Close()
}

// Destroy unregisters bucket id, closes it, and deletes its file.
func (r *Registry) Destroy(id uint32) error {
	b, err := r.detach(id)
	if err != nil {
		return err
	}
	path := b.Path()
	cerr := b.Close()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "bucket %s: remove file", FormatID(id))
	}
	r.log.Debugw("destroyed", "id", FormatID(id), "path", path)
	return cerr
}

func (r *Registry) detach(id uint32) (*Bucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[id]
	if !ok {
		return nil, errors.Wrapf(ErrBucketNotFound, "bucket %s", FormatID(id))
	}
	delete(r.buckets, id)
	return b, nil
}

// Discover opens every bucket file for the registry's object name that is
// not registered yet, in parallel, and returns the ids it added. When any
// file fails to open, the buckets opened by this call are closed again and
// the first error is returned.
func (r *Registry) Discover(ctx context.Context) ([]uint32, error) {
	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "bucket: read %s", r.cfg.Dir)
	}

	var ids []uint32
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		id, ok := ParseFileName(r.cfg.ObjectName, e.Name())
		if !ok {
			continue
		}
		if _, known := r.Find(id); known {
			continue
		}
		ids = append(ids, id)
	}

	opened := make([]*Bucket, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := Open(r.cfg.Dir, r.cfg.ObjectName, id, r.cfg.BucketSize, r.cfg.Options)
			if err != nil {
				return err
			}
			b.reg = r
			opened[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, b := range opened {
			if b != nil {
				_ = b.Close()
			}
		}
		return nil, err
	}

	r.mu.Lock()
	added := ids[:0]
	for _, b := range opened {
		if _, dup := r.buckets[b.id]; dup {
			_ = b.Close()
			continue
		}
		r.buckets[b.id] = b
		added = append(added, b.id)
	}
	r.mu.Unlock()

	r.log.Debugw("discovered", "dir", r.cfg.Dir, "count", len(added))
	return added, nil
}

// Resolve rebuilds a handle from a bucket id and record offset. The handle is
// not checked for a live record; Free and Data do that.
func (r *Registry) Resolve(id uint32, offset uint32) (Handle, error) {
	b, ok := r.Find(id)
	if !ok {
		return Handle{}, errors.Wrapf(ErrBucketNotFound, "bucket %s", FormatID(id))
	}
	if uint64(offset)+format.HeaderSize > uint64(b.Size()) {
		return Handle{}, errors.Wrapf(ErrInvalidAddress, "bucket %s: offset %d out of range", FormatID(id), offset)
	}
	return b.handle(offset), nil
}

// Unpack decodes a handle produced by Handle.Pack. A packed empty handle
// unpacks to the empty Handle.
func (r *Registry) Unpack(src []byte) (Handle, error) {
	if len(src) < PackedHandleSize {
		return Handle{}, errors.Wrapf(ErrBadHandle, "%d bytes", len(src))
	}
	id, off := buf.U32LE(src[0:4]), buf.U32LE(src[4:8])
	if id == 0 {
		return Handle{}, nil
	}
	return r.Resolve(id, off)
}

// Flush flushes every registered bucket in parallel.
func (r *Registry) Flush(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range r.snapshot() {
		g.Go(func() error { return b.Flush(gctx) })
	}
	return g.Wait()
}

// Close closes and unregisters every bucket.
func (r *Registry) Close() error {
	r.mu.Lock()
	all := make([]*Bucket, 0, len(r.buckets))
	for _, b := range r.buckets {
		all = append(all, b)
	}
	clear(r.buckets)
	r.mu.Unlock()

	var g errgroup.Group
	for _, b := range all {
		g.Go(b.Close)
	}
	return g.Wait()
}

func (r *Registry) snapshot() []*Bucket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Bucket, 0, len(r.buckets))
	for _, b := range r.buckets {
		out = append(out, b)
	}
	return out
}
