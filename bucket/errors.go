package bucket

import "github.com/cockroachdb/errors"

var (
	// ErrNoSpace indicates that no free extent can hold the requested record.
	// Running out of space is expected; callers usually retry on another bucket.
	ErrNoSpace = errors.New("bucket: no free extent large enough")

	// ErrInvalidAddress indicates a handle that does not point at a record of
	// this bucket: foreign, zero, out of range, or without a record signature.
	ErrInvalidAddress = errors.New("bucket: invalid record address")

	// ErrClosed indicates use of a bucket after Close.
	ErrClosed = errors.New("bucket: closed")

	// ErrBadSize indicates a region size the bucket cannot manage.
	ErrBadSize = errors.New("bucket: invalid region size")

	// ErrBadID indicates a bucket id of zero.
	ErrBadID = errors.New("bucket: id must be positive")

	// ErrBucketExists indicates a registry already holds a bucket with the id.
	ErrBucketExists = errors.New("bucket: id already registered")

	// ErrBucketNotFound indicates a registry has no bucket with the id.
	ErrBucketNotFound = errors.New("bucket: id not registered")

	// ErrBadHandle indicates a packed handle that is malformed.
	ErrBadHandle = errors.New("bucket: malformed packed handle")
)
