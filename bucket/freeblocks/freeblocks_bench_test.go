package freeblocks

import "testing"

func BenchmarkAllocFree(b *testing.B) {
	const size = 32 * 1024 * 1024
	f := New(size)
	f.Load(0, size)

	offs := make([]uint32, 0, 1024)
	b.ReportAllocs()
	b.ResetTimer()
	for i := range b.N {
		off, ok := f.Alloc(uint32(16 + i%48))
		if !ok {
			b.Fatal("out of space")
		}
		offs = append(offs, off)
		if len(offs) == cap(offs) {
			// Release odd slots first to exercise non-adjacent inserts, then the rest.
			for j := 1; j < len(offs); j += 2 {
				_, _ = f.Free(offs[j], uint32(16+(i-len(offs)+1+j)%48)-hdr)
			}
			for j := 0; j < len(offs); j += 2 {
				_, _ = f.Free(offs[j], uint32(16+(i-len(offs)+1+j)%48)-hdr)
			}
			offs = offs[:0]
		}
	}
}
