package bucket

import (
	"os"

	"go.uber.org/zap"

	"github.com/joshuapare/bucketkit/bucket/dirty"
	"github.com/joshuapare/bucketkit/internal/mmfile"
)

// DefaultAllocationUnit is the 64 KiB granularity used by existing bucket
// files, for use as Options.AllocationUnit.
const DefaultAllocationUnit = mmfile.DefaultAllocationUnit

// envCheckInvariants enables invariant checks after every mutation when set
// to any non-empty value.
const envCheckInvariants = "BUCKET_CHECK_INVARIANTS"

// Options configures a bucket.
type Options struct {
	// Logger receives lifecycle and recovery events. The bucket logs under
	// the name "bucket".
	// Default: zap.NewNop()
	Logger *zap.Logger

	// AllocationUnit rounds the size of newly created files up to a multiple
	// of this many bytes. Existing files keep their length. Zero disables
	// rounding; DefaultAllocationUnit reproduces the 64 KiB layout.
	// Default: 0
	AllocationUnit int64

	// FlushMode controls the durability of Flush.
	// Default: dirty.FlushAuto
	FlushMode dirty.FlushMode

	// SyncOnClose flushes pending writes before the mapping is released.
	// Default: true
	SyncOnClose bool

	// CheckInvariants validates the free index after every mutation and
	// panics on a violation. Meant for tests and debugging.
	// Default: false, or true when BUCKET_CHECK_INVARIANTS is set
	CheckInvariants bool
}

// DefaultOptions returns the options used when Open is given nil.
func DefaultOptions() *Options {
	return &Options{
		Logger:          zap.NewNop(),
		AllocationUnit:  0,
		FlushMode:       dirty.FlushAuto,
		SyncOnClose:     true,
		CheckInvariants: os.Getenv(envCheckInvariants) != "",
	}
}

// normalize fills unset fields of a caller-provided Options.
func (o *Options) normalize() Options {
	if o == nil {
		return *DefaultOptions()
	}
	out := *o
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	if out.AllocationUnit < 0 {
		out.AllocationUnit = 0
	}
	if os.Getenv(envCheckInvariants) != "" {
		out.CheckInvariants = true
	}
	return out
}
