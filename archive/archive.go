// Package archive reads the engine's `=VS=` container: a trailer-anchored
// directory of named chunk streams, each holding literal, raw, or
// LZSS-compressed resource bodies.
package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/vsengine/vsengine/codec"
)

const magic = 0x3d53563d // "=VS=" little-endian

// dirEntry is one table-of-contents row: a chunk-stream offset keyed by
// an opaque 8-bit id.
type dirEntry struct {
	offset uint32
	id     byte
}

// Archive is a random-access reader over a `=VS=` container. It wraps
// an *os.File and keeps the directory table and current read cursor.
type Archive struct {
	f    *os.File
	r    *bufio.Reader
	pos  int64
	size int64

	dataOffset uint32
	dirs       []dirEntry

	// LastReadSize, LastReadDecompressedSize and LastReadDataOffset
	// describe the most recent chunk read by ReadCompressedChunk, so
	// callers (the sprite loader in particular) can re-reference cold
	// image data directly from the archive without copying it.
	LastReadSize             uint32
	LastReadDecompressedSize uint32
	LastReadDataOffset       int64
}

// Open reads the trailer and directory table of the named archive.
func Open(name string) (*Archive, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	a := &Archive{f: f}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	a.size = info.Size()

	if err := a.readTrailer(); err != nil {
		f.Close()
		return nil, err
	}

	return a, nil
}

func (a *Archive) Close() error {
	return a.f.Close()
}

func (a *Archive) readU32At(off int64) (uint32, error) {
	var buf [4]byte
	if _, err := a.f.ReadAt(buf[:], off); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (a *Archive) readByteAt(off int64) (byte, error) {
	var buf [1]byte
	if _, err := a.f.ReadAt(buf[:], off); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// readTrailer validates the `=VS=` magic at size-4 and loads the
// directory table located dirOffset bytes before the end of the file.
func (a *Archive) readTrailer() error {
	if a.size < 12 {
		return fmt.Errorf("archive: file too small to hold trailer (%d bytes)", a.size)
	}

	dirOffsetDelta, err := a.readU32At(a.size - 12)
	if err != nil {
		return fmt.Errorf("archive: reading trailer: %w", err)
	}
	m, err := a.readU32At(a.size - 4)
	if err != nil {
		return fmt.Errorf("archive: reading trailer: %w", err)
	}
	if m != magic {
		return fmt.Errorf("archive: bad magic %#08x, want %#08x", m, magic)
	}

	dirOffset := int64(12) + int64(dirOffsetDelta)
	tocPos := a.size - dirOffset

	dirCount, err := a.readU32At(tocPos)
	if err != nil {
		return fmt.Errorf("archive: reading directory count: %w", err)
	}
	dataOffset, err := a.readU32At(tocPos + 4)
	if err != nil {
		return fmt.Errorf("archive: reading data offset: %w", err)
	}
	a.dataOffset = dataOffset

	entryPos := tocPos + 8
	a.dirs = make([]dirEntry, dirCount)
	for i := uint32(0); i < dirCount; i++ {
		off, err := a.readU32At(entryPos)
		if err != nil {
			return fmt.Errorf("archive: reading directory entry %d: %w", i, err)
		}
		id, err := a.readByteAt(entryPos + 4)
		if err != nil {
			return fmt.Errorf("archive: reading directory entry %d: %w", i, err)
		}
		a.dirs[i] = dirEntry{offset: off, id: id}
		entryPos += 5
	}

	return nil
}

// GetDirCount returns the number of directory entries in the archive.
func (a *Archive) GetDirCount() int {
	return len(a.dirs)
}

// DirIDs returns every directory entry's id, in trailer order, for
// archive-inspection tooling that needs to enumerate modules without
// loading any of them.
func (a *Archive) DirIDs() []byte {
	ids := make([]byte, len(a.dirs))
	for i, d := range a.dirs {
		ids[i] = d.id
	}
	return ids
}

// findDirByID returns the index of the first directory entry matching
// id, or -1 if none match.
func (a *Archive) findDirByID(id byte) int {
	for i, d := range a.dirs {
		if d.id == id {
			return i
		}
	}
	return -1
}

// SeekDir positions the archive's read cursor at the start of the chunk
// stream named by id.
func (a *Archive) SeekDir(id byte) error {
	idx := a.findDirByID(id)
	if idx < 0 {
		return fmt.Errorf("archive: no directory with id %#02x", id)
	}

	pos := int64(a.dataOffset) + int64(a.dirs[idx].offset)
	if pos < 0 || pos > a.size {
		return fmt.Errorf("archive: directory %#02x offset %d out of range", id, pos)
	}
	a.pos = pos
	a.r = bufio.NewReader(io.NewSectionReader(a.f, pos, a.size-pos))
	return nil
}

// ReadByte implements io.ByteReader / codec.ByteReader over the current
// stream position, advancing it by one byte.
func (a *Archive) ReadByte() (byte, error) {
	if a.r == nil {
		return 0, fmt.Errorf("archive: read before SeekDir")
	}
	b, err := a.r.ReadByte()
	if err != nil {
		return 0, err
	}
	a.pos++
	return b, nil
}

func (a *Archive) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(a.r, buf); err != nil {
		return nil, err
	}
	a.pos += int64(n)
	return buf, nil
}

// ReadPackedInt decodes one packed integer from the current directory
// stream (see codec.DecodePackedInt).
func (a *Archive) ReadPackedInt() (int32, error) {
	return codec.DecodePackedInt(a)
}

// ReadCompressedChunk reads one tagged chunk from the current directory
// stream and returns its decoded bytes.
//
// The tag byte selects one of three forms: bit6 set and size = tag&0x1F
// is a small literal; bit6 clear selects a size width from tag&3 and,
// when bits 2..3 are non-zero, a second same-width decompressed size
// follows (the chunk body is LZSS-compressed); otherwise the chunk body
// is raw bytes of the given size.
func (a *Archive) ReadCompressedChunk() ([]byte, error) {
	tag, err := a.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("archive: reading chunk tag: %w", err)
	}
	if tag&0x80 == 0 {
		return nil, fmt.Errorf("archive: malformed chunk tag %#02x (bit7 clear)", tag)
	}

	a.LastReadSize = 0
	a.LastReadDecompressedSize = 0

	if tag&0x40 != 0 {
		a.LastReadSize = uint32(tag & 0x1F)
	} else {
		szsize := int(tag&3) + 1
		sz, err := a.readLEWidth(szsize)
		if err != nil {
			return nil, fmt.Errorf("archive: reading chunk size: %w", err)
		}
		a.LastReadSize = sz

		if tag&0xC != 0 {
			dsz, err := a.readLEWidth(szsize)
			if err != nil {
				return nil, fmt.Errorf("archive: reading decompressed size: %w", err)
			}
			a.LastReadDecompressedSize = dsz
		}
	}

	if a.LastReadSize == 0 {
		return nil, fmt.Errorf("archive: zero-length chunk body")
	}

	a.LastReadDataOffset = a.pos
	body, err := a.readN(int(a.LastReadSize))
	if err != nil {
		return nil, fmt.Errorf("archive: chunk body truncated: %w", err)
	}

	if a.LastReadDecompressedSize == 0 {
		return body, nil
	}

	out, err := codec.Decompress(body, int(a.LastReadDecompressedSize))
	if err != nil {
		return nil, fmt.Errorf("archive: decompressing chunk: %w", err)
	}
	return out, nil
}

// Pos returns the current read cursor, as an absolute file offset.
func (a *Archive) Pos() int64 {
	return a.pos
}

// ReadRawAt reads size bytes at an absolute file offset without
// disturbing the current directory stream's cursor, for resources that
// keep a "cold" reference (offset + compressed size) into the archive
// instead of an inline copy of their body (spec §3 "cold" images).
func (a *Archive) ReadRawAt(offset int64, size uint32) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := a.f.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("archive: reading %d bytes at offset %d: %w", size, offset, err)
	}
	return buf, nil
}

// Skip advances the read cursor by n bytes without returning them.
func (a *Archive) Skip(n int64) error {
	if n < 0 {
		return fmt.Errorf("archive: negative skip %d", n)
	}
	if _, err := io.CopyN(io.Discard, a.r, n); err != nil {
		return fmt.Errorf("archive: skip: %w", err)
	}
	a.pos += n
	return nil
}

// ReadInt32LE reads a signed little-endian 32-bit integer from the
// current directory stream.
func (a *Archive) ReadInt32LE() (int32, error) {
	v, err := a.readLEWidth(4)
	return int32(v), err
}

func (a *Archive) readLEWidth(width int) (uint32, error) {
	var v uint32
	for i := 0; i < width; i++ {
		b, err := a.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint32(b) << (uint(i) * 8)
	}
	return v, nil
}
