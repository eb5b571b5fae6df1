package engine

import (
	"encoding/binary"
	"image"
	"image/color"

	"github.com/vsengine/vsengine/compositor"
)

// backgroundEntry holds one decoded resource 0x18 body: a CLUT8 pixel
// plane and the 256-entry palette that immediately follows it in the
// resource, plus the "is this the module's main background" flag
// carried in the leading flags word (original_source/gamos.cpp's
// loadRes18, bit31 of the word at offset 0).
type backgroundEntry struct {
	img    *image.Paletted
	pal    compositor.Palette
	isMain bool
}

// BackgroundTable backs loader resource type 0x18 and selects which
// decoded background becomes the compositor's active background and
// palette once a module finishes loading (spec §4.J "background image
// and palette").
type BackgroundTable struct {
	entries map[uint32]*backgroundEntry
	mainID  uint32
	hasMain bool
}

func NewBackgroundTable() *BackgroundTable {
	return &BackgroundTable{entries: make(map[uint32]*backgroundEntry)}
}

// Load decodes one resource 0x18 body (original_source/gamos.cpp
// loadRes18): a 4-byte flags word, 4 unexamined bytes, width and height
// as little-endian uint32 at offsets 8 and 12, a pixel-plane byte count
// at offset 16, CLUT8 pixel data of that many bytes starting at offset
// 0x18, and a 256x3-byte RGB palette immediately following the pixels.
func (t *BackgroundTable) Load(pid uint32, data []byte) error {
	if len(data) < 0x18 {
		return newFormatError(0x18, 0, "background %#x: body too short (%d bytes)", pid, len(data))
	}

	flags := binary.LittleEndian.Uint32(data[0:4])
	w := int(binary.LittleEndian.Uint32(data[8:12]))
	h := int(binary.LittleEndian.Uint32(data[12:16]))
	imgSize := int(binary.LittleEndian.Uint32(data[16:20]))

	pixOff := 0x18
	if len(data) < pixOff+imgSize {
		return newFormatError(0x18, int64(pixOff), "background %#x: pixel plane truncated (want %d, have %d)", pid, imgSize, len(data)-pixOff)
	}
	palOff := pixOff + imgSize
	if len(data) < palOff+256*3 {
		return newFormatError(0x18, int64(palOff), "background %#x: palette truncated", pid)
	}

	img := image.NewPaletted(image.Rect(0, 0, w, h), nil)
	img.Pix = append([]byte(nil), data[pixOff:pixOff+imgSize]...)
	img.Stride = w

	var pal compositor.Palette
	for i := 0; i < 256; i++ {
		o := palOff + i*3
		pal[i] = color.RGBA{R: data[o], G: data[o+1], B: data[o+2], A: 0xFF}
	}
	img.Palette = paletteToColorPalette(pal)

	isMain := flags&0x80000000 != 0
	t.entries[pid] = &backgroundEntry{img: img, pal: pal, isMain: isMain}
	if isMain && !t.hasMain {
		t.mainID = pid
		t.hasMain = true
	}
	return nil
}

func paletteToColorPalette(p compositor.Palette) color.Palette {
	cp := make(color.Palette, len(p))
	for i, c := range p {
		cp[i] = c
	}
	return cp
}

// Reset drops every decoded background, run at the start of each
// module load.
func (t *BackgroundTable) Reset() {
	t.entries = make(map[uint32]*backgroundEntry)
	t.hasMain = false
}

// ApplyMain installs the module's main background (falling back to
// whichever background loaded first if none set the main-background
// flag) onto comp, called from Sink.FinishModule.
func (t *BackgroundTable) ApplyMain(comp *compositor.Compositor) {
	id, ok := t.mainID, t.hasMain
	if !ok {
		for pid := range t.entries {
			id, ok = pid, true
			break
		}
	}
	if !ok {
		return
	}
	e := t.entries[id]
	comp.Background = e.img
	comp.Palette = e.pal
	comp.Resize(e.img.Bounds().Dx(), e.img.Bounds().Dy())
}
