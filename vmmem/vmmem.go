// Package vmmem implements the bytecode VM's paged sparse address space:
// 256-byte pages allocated on first write, zero-filled reads for anything
// never touched, and little-endian 8/32-bit accessors that stitch reads
// and writes across page boundaries.
package vmmem

import (
	"encoding/binary"
	"fmt"
)

const (
	pageSize = 256
	pageMask = pageSize - 1
)

// page holds one 256-byte-aligned block of VM memory.
type page struct {
	data [pageSize]byte
}

// Memory is the VM's address space. It is not safe for concurrent use by
// more than one goroutine without external synchronization; the VM
// instance pool in package vm guards access at a coarser grain.
type Memory struct {
	pages map[uint32]*page
}

// New returns an empty address space; every address reads as zero until
// written.
func New() *Memory {
	return &Memory{pages: make(map[uint32]*page)}
}

func pageKey(addr uint32) uint32 { return addr &^ pageMask }

func (m *Memory) pageFor(addr uint32, alloc bool) *page {
	key := pageKey(addr)
	p, ok := m.pages[key]
	if !ok {
		if !alloc {
			return nil
		}
		p = &page{}
		m.pages[key] = p
	}
	return p
}

// ReadU8 returns the byte at addr, or zero if the backing page was never
// allocated.
func (m *Memory) ReadU8(addr uint32) byte {
	p := m.pageFor(addr, false)
	if p == nil {
		return 0
	}
	return p.data[addr&pageMask]
}

// WriteU8 stores b at addr, allocating the backing page if needed.
func (m *Memory) WriteU8(addr uint32, b byte) {
	p := m.pageFor(addr, true)
	p.data[addr&pageMask] = b
}

// ReadU32 reads a little-endian 32-bit value starting at addr. The read
// may span a page boundary; each constituent byte is read independently
// so unbacked pages contribute zero bytes rather than failing.
func (m *Memory) ReadU32(addr uint32) uint32 {
	var buf [4]byte
	for i := range buf {
		buf[i] = m.ReadU8(addr + uint32(i))
	}
	return binary.LittleEndian.Uint32(buf[:])
}

// WriteU32 writes a little-endian 32-bit value starting at addr,
// allocating pages as needed and stitching across a page boundary.
func (m *Memory) WriteU32(addr uint32, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	for i, b := range buf {
		m.WriteU8(addr+uint32(i), b)
	}
}

// WriteMemory copies data into the address space starting at addr,
// allocating pages as needed.
func (m *Memory) WriteMemory(addr uint32, data []byte) {
	for i, b := range data {
		m.WriteU8(addr+uint32(i), b)
	}
}

// ReadMemBlocks returns a dense copy of length bytes starting at addr;
// bytes from unbacked pages read as zero.
func (m *Memory) ReadMemBlocks(addr uint32, length int) []byte {
	out := make([]byte, length)
	for i := range out {
		out[i] = m.ReadU8(addr + uint32(i))
	}
	return out
}

// ScrambleRange describes one {pos, len} region that XorRegion applies a
// repeating key to; these come from the archive's 0x7C..0x7E
// save-scramble key-sequence resources.
type ScrambleRange struct {
	Pos uint32
	Len uint32
}

// XorRegion XORs the key, repeated to cover r.Len bytes, into the address
// range [r.Pos, r.Pos+r.Len). Calling it twice with the same key and range
// restores the original bytes.
func (m *Memory) XorRegion(r ScrambleRange, key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("vmmem: XorRegion: empty key for range %+v", r)
	}
	for i := uint32(0); i < r.Len; i++ {
		addr := r.Pos + i
		k := key[i%uint32(len(key))]
		m.WriteU8(addr, m.ReadU8(addr)^k)
	}
	return nil
}

// Reset discards every allocated page, returning the address space to its
// initial all-zero state. Module loads clear VM memory this way.
func (m *Memory) Reset() {
	m.pages = make(map[uint32]*page)
}
