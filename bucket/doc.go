// Package bucket implements fixed-size, file-backed record storage.
//
// # Overview
//
// A Bucket maps one file into memory and packs variable-length records into
// it. Each record is an 8-byte header (signature, payload length) followed by
// the payload; see internal/format for the exact layout. Free space is indexed
// in memory by a freeblocks.FreeBlocks, which hands out best-fit extents and
// merges released records with their free neighbours.
//
// Nothing but the records themselves is persisted. When a bucket is opened
// the region is walked from offset 0 and the free index is rebuilt:
//
//   - allocated signature: a live record, step over it
//   - released signature: a tombstone, its extent is free
//   - anything else: the rest of the region was never written and is free
//
// Every free extent carries a released header at its start, so a walk steps
// over merged and split free space exactly as the index describes it.
//
// # Basic Usage
//
//	b, err := bucket.Open("/var/lib/queue", "bucket", 1, 64<<20, nil)
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	h, err := b.Insert([]byte("message"))
//	if errors.Is(err, bucket.ErrNoSpace) {
//	    // try another bucket
//	}
//	fmt.Println(string(h.Data()))
//	_ = b.Free(h)
//
// After a restart, Load returns a handle for every record still live.
//
// # Registry
//
// A Registry owns a directory of bucket files named ObjectName_##########
// and resolves (bucket id, offset) pairs back to handles, including the
// 8-byte packed form produced by Handle.Pack.
//
// # Durability
//
// Writes land in the shared mapping immediately. Flush pushes the pages
// touched since the last flush to disk and syncs the file according to
// Options.FlushMode; Close flushes when Options.SyncOnClose is set.
//
// # Thread Safety
//
// Every Bucket method takes the bucket's mutex. Handle.Data returns a slice
// into the mapping; reading it while another goroutine frees the same record
// is the caller's problem.
package bucket
