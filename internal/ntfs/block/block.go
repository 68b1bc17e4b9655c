// Package block implements DataBlock (C1): a reference-counted, bounded view
// over an immutable byte buffer. Slicing is O(1) and never copies; Copy is
// the only path to an independently owned buffer.
package block

import "encoding/binary"

// Block is a bounded view into a shared byte buffer. The zero value is an
// empty block.
type Block struct {
	owner  *[]byte
	offset int
	length int
}

// New takes ownership of buf and returns a block viewing all of it.
func New(buf []byte) Block {
	b := buf
	return Block{owner: &b, offset: 0, length: len(buf)}
}

// Empty returns a zero-length block.
func Empty() Block {
	return Block{}
}

// Len returns the number of bytes visible through this view.
func (b Block) Len() int {
	return b.length
}

// Bytes returns the viewed region. Callers must not retain the slice past
// mutation of code that writes through it; the core never mutates device
// buffers in place, so this is safe to treat as read-only.
func (b Block) Bytes() []byte {
	if b.owner == nil {
		return nil
	}
	return (*b.owner)[b.offset : b.offset+b.length]
}

// At returns the byte at index i, and whether i was in bounds.
func (b Block) At(i int) (byte, bool) {
	if i < 0 || i >= b.length {
		return 0, false
	}
	return (*b.owner)[b.offset+i], true
}

// Slice returns a sub-view [off, off+n). A request that runs past the end of
// the block is clamped to an empty block rather than faulting — downstream
// decoders are expected to check Len() themselves.
func (b Block) Slice(off, n int) Block {
	if off < 0 || n < 0 || off > b.length {
		return Empty()
	}
	if off+n > b.length {
		return Empty()
	}
	return Block{owner: b.owner, offset: b.offset + off, length: n}
}

// SliceFrom returns a sub-view [off, end). Offsets past the end yield an
// empty block.
func (b Block) SliceFrom(off int) Block {
	if off < 0 || off > b.length {
		return Empty()
	}
	return Block{owner: b.owner, offset: b.offset + off, length: b.length - off}
}

// Copy materializes a fresh, independently owned buffer holding exactly the
// viewed range.
func (b Block) Copy() Block {
	fresh := make([]byte, b.length)
	if b.length > 0 {
		copy(fresh, b.Bytes())
	}
	return New(fresh)
}

// Uint8 reads an 8-bit value at off. ok is false if out of range.
func (b Block) Uint8(off int) (uint8, bool) {
	return b.At(off)
}

// Uint16 reads a little-endian 16-bit value at off.
func (b Block) Uint16(off int) (uint16, bool) {
	s := b.Slice(off, 2)
	if s.Len() != 2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(s.Bytes()), true
}

// Uint32 reads a little-endian 32-bit value at off.
func (b Block) Uint32(off int) (uint32, bool) {
	s := b.Slice(off, 4)
	if s.Len() != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(s.Bytes()), true
}

// Uint64 reads a little-endian 64-bit value at off.
func (b Block) Uint64(off int) (uint64, bool) {
	s := b.Slice(off, 8)
	if s.Len() != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(s.Bytes()), true
}

// Int64 reads a little-endian signed 64-bit value at off.
func (b Block) Int64(off int) (int64, bool) {
	v, ok := b.Uint64(off)
	return int64(v), ok
}
