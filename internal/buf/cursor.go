package buf

// Cursor is a bounds-checked view over a byte region positioned at an offset.
// Reads past the end of the region report ok = false instead of panicking.
type Cursor struct {
	b   []byte
	off int
}

// NewCursor returns a cursor over b positioned at off.
func NewCursor(b []byte, off int) Cursor {
	return Cursor{b: b, off: off}
}

// Offset returns the current position.
func (c Cursor) Offset() int { return c.off }

// Seek returns a cursor over the same region positioned at off.
func (c Cursor) Seek(off int) Cursor {
	return Cursor{b: c.b, off: off}
}

// Advance returns a cursor moved forward by n bytes. ok is false on overflow.
func (c Cursor) Advance(n int) (Cursor, bool) {
	next, ok := AddOverflowSafe(c.off, n)
	if !ok {
		return c, false
	}
	return Cursor{b: c.b, off: next}, true
}

// Remaining returns the number of bytes between the cursor and the end of the region.
func (c Cursor) Remaining() int {
	if c.off < 0 || c.off >= len(c.b) {
		return 0
	}
	return len(c.b) - c.off
}

// U32At reads the host-order uint32 at cursor+rel.
func (c Cursor) U32At(rel int) (uint32, bool) {
	field, ok := c.Bytes(rel, 4)
	if !ok {
		return 0, false
	}
	return U32(field), true
}

// PutU32At writes v in host order at cursor+rel.
func (c Cursor) PutU32At(rel int, v uint32) bool {
	field, ok := c.Bytes(rel, 4)
	if !ok {
		return false
	}
	return PutU32(field, v)
}

// Bytes returns the n bytes starting at cursor+rel.
func (c Cursor) Bytes(rel, n int) ([]byte, bool) {
	off, ok := AddOverflowSafe(c.off, rel)
	if !ok {
		return nil, false
	}
	return Slice(c.b, off, n)
}
