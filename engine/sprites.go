package engine

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/vsengine/vsengine/archive"
	"github.com/vsengine/vsengine/compositor"
)

const coldDiskMagic = 0x4469736b // "Disk" little-endian, original_source/gamos.cpp loadRes43

// ImagePos is one sequence frame's draw-position offset, resource
// 0x42's per-frame payload (original_source/gamos.cpp loadRes42).
type ImagePos struct {
	XOffset, YOffset int16
}

// frameKey addresses one (sequence, frame) pixel image within a sprite.
type frameKey struct {
	seq, frame int32
}

// coldRef is a lazily-resolved pixel body: an offset and compressed
// size into the archive instead of an inline copy (resource 0x43's
// "Disk"-tagged or only-scan-image path).
type coldRef struct {
	offset int64
	size   uint32
}

type spriteFrame struct {
	w, h int
	pix  []byte // resolved CLUT8 pixels, nil until a cold ref is loaded
	cold *coldRef
}

// spriteEntry mirrors one sprite's loadRes40/41/42/43 state: the packed
// flags word, the only-scan-image bit it carries, one ImagePos slice
// per sequence (resource 0x42), and the decoded or cold-referenced
// pixel body per (sequence, frame) (resource 0x43).
type spriteEntry struct {
	flags         [4]byte
	onlyScanImage bool
	sequences     [][]ImagePos
	frames        map[frameKey]*spriteFrame
}

// SpriteTable backs loader resource types 0x40-0x43 and implements
// compositor.SpriteSource for the rendering pipeline (spec §4.J
// "sprite/sequence/frame table").
type SpriteTable struct {
	archive *archive.Archive
	pal     compositor.Palette
	entries map[uint32]*spriteEntry

	lastSeqPID, lastSeqP1                   uint32
	lastFramePID, lastFrameP1, lastFrameP2   uint32
	haveLastSeq, haveLastFrame               bool
}

// NewSpriteTable returns an empty table. arc supplies random-access
// reads for cold-referenced frame bodies; pal supplies the palette
// index-to-color mapping used when materializing a *image.Paletted.
func NewSpriteTable(arc *archive.Archive, pal compositor.Palette) *SpriteTable {
	return &SpriteTable{archive: arc, pal: pal, entries: make(map[uint32]*spriteEntry)}
}

func (t *SpriteTable) get(pid uint32) *spriteEntry {
	e, ok := t.entries[pid]
	if !ok {
		e = &spriteEntry{frames: make(map[frameKey]*spriteFrame)}
		t.entries[pid] = e
	}
	return e
}

// LoadFlags decodes resource 0x40 (original_source/gamos.cpp
// loadRes40): a 4-byte flags word whose second byte's high bit marks
// every later frame of this sprite as only-scan-image (cold).
func (t *SpriteTable) LoadFlags(pid uint32, data []byte) error {
	if len(data) < 4 {
		return newFormatError(0x40, 0, "sprite %#x: flags body too short (%d bytes)", pid, len(data))
	}
	e := t.get(pid)
	copy(e.flags[:], data[:4])
	e.onlyScanImage = data[1]&0x80 != 0
	return nil
}

// ResizeSequences decodes resource 0x41 (loadRes41): a leading
// always-zero guard word followed by dataSize/4 empty sequence slots.
func (t *SpriteTable) ResizeSequences(pid uint32, data []byte) error {
	if len(data) < 4 {
		return newFormatError(0x41, 0, "sprite %#x: sequence-count body too short", pid)
	}
	if guard := binary.LittleEndian.Uint32(data[0:4]); guard != 0 {
		return newLogicError(0x41, 0, "sprite %#x: leading guard word %#x, want 0", pid, guard)
	}
	e := t.get(pid)
	e.sequences = make([][]ImagePos, len(data)/4)
	return nil
}

// LoadSequenceOffsets decodes resource 0x42 (loadRes42): for sequence
// p1, a run of 8-byte entries, each an always-zero guard word followed
// by a little-endian int16 x/y offset pair.
func (t *SpriteTable) LoadSequenceOffsets(pid, p1 uint32, data []byte) error {
	e := t.get(pid)
	if len(e.sequences) == 0 {
		e.sequences = make([][]ImagePos, 1)
	}
	if int(p1) >= len(e.sequences) {
		grown := make([][]ImagePos, p1+1)
		copy(grown, e.sequences)
		e.sequences = grown
	}

	count := len(data) / 8
	offs := make([]ImagePos, count)
	for i := 0; i < count; i++ {
		o := i * 8
		if guard := binary.LittleEndian.Uint32(data[o : o+4]); guard != 0 {
			return newLogicError(0x42, int64(o), "sprite %#x seq %d entry %d: leading guard word %#x, want 0", pid, p1, i, guard)
		}
		offs[i] = ImagePos{
			XOffset: int16(binary.LittleEndian.Uint16(data[o+4 : o+6])),
			YOffset: int16(binary.LittleEndian.Uint16(data[o+6 : o+8])),
		}
	}
	e.sequences[p1] = offs
	t.lastSeqPID, t.lastSeqP1, t.haveLastSeq = pid, p1, true
	return nil
}

// reuseSequence implements command byte 0xFF for resource 0x42: the
// most recently loaded sequence's offsets are copied onto (pid, p1)
// without re-reading them from the archive.
func (t *SpriteTable) reuseSequence(pid, p1 uint32) error {
	if !t.haveLastSeq {
		return fmt.Errorf("sprite %#x: reuse of sequence offsets with no prior load", pid)
	}
	src := t.get(t.lastSeqPID)
	if int(t.lastSeqP1) >= len(src.sequences) {
		return fmt.Errorf("sprite %#x: reuse source sequence %d missing", pid, t.lastSeqP1)
	}
	offs := append([]ImagePos(nil), src.sequences[t.lastSeqP1]...)

	e := t.get(pid)
	if int(p1) >= len(e.sequences) {
		grown := make([][]ImagePos, p1+1)
		copy(grown, e.sequences)
		e.sequences = grown
	}
	e.sequences[p1] = offs
	return nil
}

// LoadFrame decodes resource 0x43 (loadRes43): a 16-bit width and
// height, then either a "Disk"-tagged cold reference (offset +
// compressed size), a cold reference to the archive's most recently
// read chunk (when the sprite's only-scan-image flag is set), or
// inline CLUT8 pixel bytes.
func (t *SpriteTable) LoadFrame(pid, p1, p2 uint32, data []byte) error {
	if len(data) < 4 {
		return newFormatError(0x43, 0, "sprite %#x seq %d frame %d: body too short", pid, p1, p2)
	}
	w := int(int16(binary.LittleEndian.Uint16(data[0:2])))
	h := int(int16(binary.LittleEndian.Uint16(data[2:4])))

	e := t.get(pid)
	frame := &spriteFrame{w: w, h: h}

	if len(data) >= 8 && binary.LittleEndian.Uint32(data[4:8]) == coldDiskMagic {
		if len(data) < 16 {
			return newFormatError(0x43, 4, "sprite %#x: truncated disk reference", pid)
		}
		frame.cold = &coldRef{
			offset: int64(int32(binary.LittleEndian.Uint32(data[8:12]))),
			size:   binary.LittleEndian.Uint32(data[12:16]),
		}
	} else if e.onlyScanImage && t.archive != nil {
		frame.cold = &coldRef{
			offset: t.archive.LastReadDataOffset,
			size:   t.archive.LastReadSize,
		}
	} else {
		frame.pix = append([]byte(nil), data[4:]...)
	}

	e.frames[frameKey{seq: int32(p1), frame: int32(p2)}] = frame
	t.lastFramePID, t.lastFrameP1, t.lastFrameP2, t.haveLastFrame = pid, p1, p2, true
	return nil
}

// reuseFrame implements command byte 0xFF for resource 0x43: the most
// recently loaded frame body is copied onto (pid, p1, p2) without
// re-reading or re-resolving it from the archive.
func (t *SpriteTable) reuseFrame(pid, p1, p2 uint32) error {
	if !t.haveLastFrame {
		return fmt.Errorf("sprite %#x: reuse of frame with no prior load", pid)
	}
	src, ok := t.get(t.lastFramePID).frames[frameKey{seq: int32(t.lastFrameP1), frame: int32(t.lastFrameP2)}]
	if !ok {
		return fmt.Errorf("sprite %#x: reuse source frame missing", pid)
	}
	copied := *src
	t.get(pid).frames[frameKey{seq: int32(p1), frame: int32(p2)}] = &copied
	return nil
}

// Offset returns the sequence-frame's draw-position offset (resource
// 0x42), for the tick loop to fold into an object's pixel position.
func (t *SpriteTable) Offset(spriteID, seqID, frame int32) (ImagePos, bool) {
	e, ok := t.entries[uint32(spriteID)]
	if !ok || seqID < 0 || int(seqID) >= len(e.sequences) {
		return ImagePos{}, false
	}
	seq := e.sequences[seqID]
	if frame < 0 || int(frame) >= len(seq) {
		return ImagePos{}, false
	}
	return seq[frame], true
}

// Frame implements compositor.SpriteSource, resolving cold image
// bodies from the archive on first reference and caching the result.
func (t *SpriteTable) Frame(spriteID, seqID, frame int32) (*image.Paletted, bool) {
	e, ok := t.entries[uint32(spriteID)]
	if !ok {
		return nil, false
	}
	fr, ok := e.frames[frameKey{seq: seqID, frame: frame}]
	if !ok {
		return nil, false
	}
	if fr.pix == nil {
		if fr.cold == nil || t.archive == nil {
			return nil, false
		}
		pix, err := t.archive.ReadRawAt(fr.cold.offset, fr.cold.size)
		if err != nil {
			return nil, false
		}
		fr.pix = pix
	}

	img := image.NewPaletted(image.Rect(0, 0, fr.w, fr.h), paletteToColorPalette(t.pal))
	n := fr.w * fr.h
	if n > len(fr.pix) {
		n = len(fr.pix)
	}
	copy(img.Pix, fr.pix[:n])
	return img, true
}

// SetPalette updates the palette used to materialize future frames.
func (t *SpriteTable) SetPalette(pal compositor.Palette) { t.pal = pal }

// Reset drops every sprite, run at the start of each module load.
func (t *SpriteTable) Reset() {
	t.entries = make(map[uint32]*spriteEntry)
}
