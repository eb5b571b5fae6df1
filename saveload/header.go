package saveload

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the on-disk size of StateHeader: writeStateData's 0x40
// fixed fields plus the 12-byte key-code table.
const HeaderSize = 0x4c

// StateHeader is the save file's fixed-size prefix, exactly
// writeStateData's field layout (spec §4.L). loadStateData's
// decompiled offsets disagree with writeStateData's at 0x1a/0x1b/0x30
// onward (almost certainly a decompiler artifact in the one-sided
// source); this port follows writeStateData's offsets, which are
// self-consistent and strictly increasing, for both directions.
type StateHeader struct {
	Ext              [4]byte
	GD2Flags         byte
	ModuleID         int32
	GameScreen       int32
	Fld10            uint32
	Fld14            byte
	EnableMidi       bool
	Fld16, Fld17     byte
	Fld18, Fld19     byte
	ScrollX, ScrollY int32
	ScrollTrackObj   int16
	ScrollSpeed      int16
	ScrollCutoff     int16
	ScrollSpeedReduce int16
	ScrollBorderL    byte
	ScrollBorderR    byte
	ScrollBorderU    byte
	ScrollBorderB    byte
	SoundChannels    byte
	SoundVolume      byte
	MidiVolume       byte
	Fps              byte
	Frame            int32
	MidiTrack        uint32
	MouseCursorImgID int32
	KeyCodes         [12]byte
}

// WriteStateHeader encodes h into a HeaderSize-byte buffer.
func WriteStateHeader(h StateHeader) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Ext[:])
	buf[4] = h.GD2Flags
	// 5, 6, 7 reserved, left zero
	le := binary.LittleEndian
	le.PutUint32(buf[8:], uint32(h.ModuleID))
	le.PutUint32(buf[0xc:], uint32(h.GameScreen))
	le.PutUint32(buf[0x10:], h.Fld10)
	buf[0x14] = h.Fld14
	buf[0x15] = boolByte(h.EnableMidi)
	buf[0x16] = h.Fld16
	buf[0x17] = h.Fld17
	buf[0x18] = h.Fld18
	buf[0x19] = h.Fld19
	// 0x1a, 0x1b reserved, left zero
	le.PutUint32(buf[0x1c:], uint32(h.ScrollX))
	le.PutUint32(buf[0x20:], uint32(h.ScrollY))
	le.PutUint16(buf[0x24:], uint16(h.ScrollTrackObj))
	le.PutUint16(buf[0x26:], uint16(h.ScrollSpeed))
	le.PutUint16(buf[0x28:], uint16(h.ScrollCutoff))
	le.PutUint16(buf[0x2a:], uint16(h.ScrollSpeedReduce))
	buf[0x2c] = h.ScrollBorderL
	buf[0x2d] = h.ScrollBorderR
	buf[0x2e] = h.ScrollBorderU
	buf[0x2f] = h.ScrollBorderB
	buf[0x30] = h.SoundChannels
	buf[0x31] = h.SoundVolume
	buf[0x32] = h.MidiVolume
	buf[0x33] = h.Fps
	le.PutUint32(buf[0x34:], uint32(h.Frame))
	le.PutUint32(buf[0x38:], h.MidiTrack)
	le.PutUint32(buf[0x3c:], uint32(h.MouseCursorImgID))
	copy(buf[0x40:0x4c], h.KeyCodes[:])
	return buf
}

// ReadStateHeader decodes a HeaderSize-byte buffer written by
// WriteStateHeader.
func ReadStateHeader(buf []byte) (StateHeader, error) {
	if len(buf) < HeaderSize {
		return StateHeader{}, fmt.Errorf("saveload: state header: want %d bytes, got %d", HeaderSize, len(buf))
	}
	le := binary.LittleEndian
	var h StateHeader
	copy(h.Ext[:], buf[0:4])
	h.GD2Flags = buf[4]
	h.ModuleID = int32(le.Uint32(buf[8:]))
	h.GameScreen = int32(le.Uint32(buf[0xc:]))
	h.Fld10 = le.Uint32(buf[0x10:])
	h.Fld14 = buf[0x14]
	h.EnableMidi = buf[0x15] != 0
	h.Fld16 = buf[0x16]
	h.Fld17 = buf[0x17]
	h.Fld18 = buf[0x18]
	h.Fld19 = buf[0x19]
	h.ScrollX = int32(le.Uint32(buf[0x1c:]))
	h.ScrollY = int32(le.Uint32(buf[0x20:]))
	h.ScrollTrackObj = int16(le.Uint16(buf[0x24:]))
	h.ScrollSpeed = int16(le.Uint16(buf[0x26:]))
	h.ScrollCutoff = int16(le.Uint16(buf[0x28:]))
	h.ScrollSpeedReduce = int16(le.Uint16(buf[0x2a:]))
	h.ScrollBorderL = buf[0x2c]
	h.ScrollBorderR = buf[0x2d]
	h.ScrollBorderU = buf[0x2e]
	h.ScrollBorderB = buf[0x2f]
	h.SoundChannels = buf[0x30]
	h.SoundVolume = buf[0x31]
	h.MidiVolume = buf[0x32]
	h.Fps = buf[0x33]
	h.Frame = int32(le.Uint32(buf[0x34:]))
	h.MidiTrack = le.Uint32(buf[0x38:])
	h.MouseCursorImgID = int32(le.Uint32(buf[0x3c:]))
	copy(h.KeyCodes[:], buf[0x40:0x4c])
	return h, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
