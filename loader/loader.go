// Package loader interprets a module's command-byte load stream: a
// sequence of tagged mini-commands, read from one archive directory
// entry, that alternate between setting up to three packed-int
// parameters (p1/p2/p3) and dispatching a resource body to a handler
// keyed by its one-byte type. Resource bodies that are themselves
// bytecode or engine state are copied into VM memory at a running
// cursor (loadedDataSize); everything else is handed to a Sink that
// represents whatever part of the engine owns that resource type.
package loader

import (
	"fmt"

	"github.com/vsengine/vsengine/archive"
	"github.com/vsengine/vsengine/vmmem"
)

// Resource type tags, exactly as they appear in the load stream. Names
// mirror the numeric values; the dispatch table in loadOne documents
// what each one means.
const (
	resData      = 0x0f
	resBootstrap = 0x10
	resElements  = 0x11
	resConfig    = 0x12
	resRawBlock  = 0x13
	resBkg       = 0x18
	resGlobalAct = 0x19
	resObjUnk1   = 0x20
	resOnCreate  = 0x21
	resOnDelete  = 0x22
	resActCount  = 0x23
	resActParse  = 0x2a
	resActCond   = 0x2b
	resActFunc   = 0x2c
	resThing38   = 0x38
	resThing39   = 0x39
	resThing3A   = 0x3a
	resImage40   = 0x40
	resImage41   = 0x41
	resImage42   = 0x42
	resImage43   = 0x43
	resIgnore50  = 0x50
	resSound     = 0x51
	resMidi      = 0x52
	resSubtitle  = 0x60
	resSubPoints = 0x61
	resXorSeq0   = 0x7c
	resXorSeq1   = 0x7d
	resXorSeq2   = 0x7e

	movieMarker = 0x14 // prevByte value that triggers movie-offset bookkeeping
)

// Command bytes that drive the outer load loop (loadModule's switch).
const (
	cmdSectionBoundary = 0
	cmdSetP1           = 1
	cmdSetP2           = 2
	cmdSetP3           = 3
	cmdDispatch        = 4
	cmdMovie           = 5
	cmdInline          = 6
	cmdReuse           = 0xff

	tagIDFlag  = 0x80
	tagResMask = 0x7f
)

// Sink receives every resource the load stream produces. Each method
// corresponds to one or more RESTYPE tags; a Loader never interprets a
// resource body itself beyond what is needed to find its length and,
// for bytecode-bearing types, its VM memory placement.
type Sink interface {
	InitOrLoadSave(saveSlot int) error
	ReadData2(data []byte)
	InitMainDatas() error
	ReadElementsConfig(data []byte)
	LoadBkg(pid uint32, data []byte) error
	LoadGlobalActions(data []byte) error

	SetObjectUnk1(pid uint32, v uint32) error
	SetOnCreateAddress(pid, addr uint32)
	SetOnDeleteAddress(pid, addr uint32)
	ResizeActions(pid uint32, count int) error
	ParseAction(pid uint32, idx int, data []byte) error
	SetActionConditionAddress(pid uint32, idx int, addr uint32)
	SetActionFunctionAddress(pid uint32, idx int, addr uint32)

	SetThing38(pid uint32, data []byte)
	SetThing39(pid uint32, data []byte)
	SetThing3A(pid uint32, data []byte)

	LoadRes40(pid uint32, data []byte) error
	LoadRes41(pid uint32, data []byte) error
	LoadRes42(pid, p1 uint32, data []byte) error
	LoadRes43(pid, p1, p2 uint32, data []byte) error

	SetSoundSample(pid uint32, data []byte)
	LoadMidi(pid uint32, data []byte) error

	ParseSubtitleActions(pid uint32, data []byte) error
	SetSubtitlePoints(pid uint32, data []byte) error

	LoadXorSeq(seq int, data []byte)

	// SetConfigAddress records where routeConfig placed RESTP_12's
	// eight-byte runtime register block, so a caller driving the VM each
	// tick knows which addresses to write the input latch and frame
	// counter through.
	SetConfigAddress(addr uint32)

	ReuseLastResource(tp byte, pid, p1, p2 uint32) error

	SetMovieOffset(pid uint32, pos int64)

	// OnlyScanImage reports whether the loader is in a lightweight pass
	// that only wants RESTP_43's header, not its pixel data; it changes
	// how far the loadedDataSize cursor advances for that one type.
	OnlyScanImage() bool

	FinishModule(currentModuleID uint32) error
}

// Loader drives one archive's command-byte load streams into VM memory
// and a Sink.
type Loader struct {
	Arch *archive.Archive
	Mem  *vmmem.Memory
	Sink Sink

	loadedDataSize uint32
	resReadOffset  int64
}

// New returns a Loader reading resource streams from arch into mem,
// dispatching non-bytecode resources to sink.
func New(arch *archive.Archive, mem *vmmem.Memory, sink Sink) *Loader {
	return &Loader{Arch: arch, Mem: mem, Sink: sink}
}

// LoadedDataSize returns the current VM-memory placement cursor; newly
// loaded bytecode and state blocks are appended here.
func (l *Loader) LoadedDataSize() uint32 { return l.loadedDataSize }

// LoadModule reads directory entry id's command stream (module streams
// live at directory ids 2+moduleID, behind a shared prefix section at
// directory id 1) and drives every resource it names into VM memory or
// the Sink.
func (l *Loader) LoadModule(id uint32, runReadDataMode bool, saveSlot int) error {
	if !runReadDataMode {
		if err := l.Sink.InitOrLoadSave(saveSlot); err != nil {
			return fmt.Errorf("loader: init/load save: %w", err)
		}
	}
	if err := l.Arch.SeekDir(1); err != nil {
		return fmt.Errorf("loader: seeking shared prefix: %w", err)
	}

	targetDir := byte(2 + id)

	prefixLoaded := false
	var prevByte byte
	var p1, p2, p3 int32
	var pid uint32

	for {
		curByte, err := l.Arch.ReadByte()
		if err != nil {
			return fmt.Errorf("loader: reading command byte: %w", err)
		}

		switch curByte {
		case cmdSectionBoundary:
			if prefixLoaded {
				return l.Sink.FinishModule(id)
			}
			prefixLoaded = true
			if err := l.Arch.SeekDir(targetDir); err != nil {
				return fmt.Errorf("loader: seeking module %d: %w", id, err)
			}

		case cmdSetP1:
			if p1, err = l.Arch.ReadPackedInt(); err != nil {
				return fmt.Errorf("loader: reading p1: %w", err)
			}
		case cmdSetP2:
			if p2, err = l.Arch.ReadPackedInt(); err != nil {
				return fmt.Errorf("loader: reading p2: %w", err)
			}
		case cmdSetP3:
			if p3, err = l.Arch.ReadPackedInt(); err != nil {
				return fmt.Errorf("loader: reading p3: %w", err)
			}

		case cmdDispatch:
			if err := l.dispatch(prevByte, pid, uint32(p1), uint32(p2), uint32(p3), id); err != nil {
				return err
			}

		case cmdMovie:
			if err := l.skipMovie(prevByte, pid); err != nil {
				return err
			}

		case cmdInline:
			if err := l.loadInline(); err != nil {
				return fmt.Errorf("loader: inline stream: %w", err)
			}

		case cmdReuse:
			if err := l.Sink.ReuseLastResource(prevByte, pid, uint32(p1), uint32(p2)); err != nil {
				return fmt.Errorf("loader: reusing resource %#02x: %w", prevByte, err)
			}

		default:
			p1, p2, p3, pid = 0, 0, 0, 0
			prevByte = curByte & tagResMask
			if curByte&tagIDFlag == 0 {
				v, err := l.Arch.ReadPackedInt()
				if err != nil {
					return fmt.Errorf("loader: reading resource id: %w", err)
				}
				pid = uint32(v)
			}
		}
	}
}

// dispatch implements command byte 4: it reads (or, for three special
// tags, consumes without a generic handler) one resource body and
// routes it, then advances the loadedDataSize cursor by the body's
// 4-byte-rounded length — except for a handful of tags that never
// occupy VM memory.
func (l *Loader) dispatch(prevByte byte, pid, p1, p2, p3, moduleID uint32) error {
	l.resReadOffset = l.Arch.Pos()

	var data []byte
	handledSpecially := true

	switch prevByte {
	case resData:
		var err error
		if data, err = l.Arch.ReadCompressedChunk(); err != nil {
			return fmt.Errorf("loader: reading data block: %w", err)
		}
		l.Sink.ReadData2(data)
		data = nil // does not occupy the loadedDataSize cursor
	case resBootstrap:
		if err := l.Sink.InitMainDatas(); err != nil {
			return fmt.Errorf("loader: init main datas: %w", err)
		}
	case resElements:
		var err error
		var chunk []byte
		if chunk, err = l.Arch.ReadCompressedChunk(); err != nil {
			return fmt.Errorf("loader: reading elements config: %w", err)
		}
		if pid == moduleID {
			l.Sink.ReadElementsConfig(chunk)
		}
	default:
		handledSpecially = false
	}

	if !handledSpecially {
		var err error
		if data, err = l.Arch.ReadCompressedChunk(); err != nil {
			return fmt.Errorf("loader: reading resource %#02x: %w", prevByte, err)
		}
		if err := l.route(prevByte, pid, p1, p2, p3, data); err != nil {
			return fmt.Errorf("loader: resource %#02x: %w", prevByte, err)
		}
	}

	dataSz := (uint32(len(data)) + 3) &^ 3

	switch prevByte {
	case resElements, resBkg, resGlobalAct, resObjUnk1, resImage40, resIgnore50:
		// Never occupies VM memory.
	case resImage43:
		if l.Sink.OnlyScanImage() {
			l.loadedDataSize += 0x10
		} else {
			l.loadedDataSize += dataSz
		}
	default:
		l.loadedDataSize += dataSz
	}

	return nil
}

// route sends one resource body to the Sink method matching its type,
// copying bytecode-bearing bodies into VM memory first.
func (l *Loader) route(tp byte, pid, p1, p2, p3 uint32, data []byte) error {
	switch tp {
	case resConfig:
		return l.routeConfig(data)
	case resRawBlock:
		l.Mem.WriteMemory(l.loadedDataSize, data)
	case resBkg:
		return l.Sink.LoadBkg(pid, data)
	case resGlobalAct:
		return l.Sink.LoadGlobalActions(data)
	case resObjUnk1:
		if len(data) != 4 {
			return fmt.Errorf("resObjUnk1: expected 4 bytes, got %d", len(data))
		}
		return l.Sink.SetObjectUnk1(pid, leU32(data))
	case resOnCreate:
		l.Mem.WriteMemory(l.loadedDataSize, data)
		l.Sink.SetOnCreateAddress(pid, l.loadedDataSize+p3)
	case resOnDelete:
		l.Mem.WriteMemory(l.loadedDataSize, data)
		l.Sink.SetOnDeleteAddress(pid, l.loadedDataSize+p3)
	case resActCount:
		if len(data)%4 != 0 || len(data) < 4 {
			return fmt.Errorf("resActCount: size %d not a positive multiple of 4", len(data))
		}
		return l.Sink.ResizeActions(pid, len(data)/4)
	case resActParse:
		return l.Sink.ParseAction(pid, int(p1), data)
	case resActCond:
		l.Mem.WriteMemory(l.loadedDataSize, data)
		l.Sink.SetActionConditionAddress(pid, int(p1), l.loadedDataSize+p3)
	case resActFunc:
		l.Mem.WriteMemory(l.loadedDataSize, data)
		l.Sink.SetActionFunctionAddress(pid, int(p1), l.loadedDataSize+p3)
	case resThing38:
		l.Sink.SetThing38(pid, data)
	case resThing39:
		l.Sink.SetThing39(pid, data)
	case resThing3A:
		l.Sink.SetThing3A(pid, data)
	case resImage40:
		return l.Sink.LoadRes40(pid, data)
	case resImage41:
		return l.Sink.LoadRes41(pid, data)
	case resImage42:
		return l.Sink.LoadRes42(pid, p1, data)
	case resImage43:
		return l.Sink.LoadRes43(pid, p1, p2, data)
	case resIgnore50:
		// intentionally ignored
	case resSound:
		if len(data) < 4 {
			return fmt.Errorf("resSound: short sample header")
		}
		n := leU32(data) &^ 3
		if uint32(len(data)) < 4+n {
			return fmt.Errorf("resSound: sample body truncated")
		}
		l.Sink.SetSoundSample(pid, data[4:4+n])
	case resMidi:
		return l.Sink.LoadMidi(pid, data)
	case resSubtitle:
		return l.Sink.ParseSubtitleActions(pid, data)
	case resSubPoints:
		return l.Sink.SetSubtitlePoints(pid, data)
	case resXorSeq0:
		l.Sink.LoadXorSeq(0, data)
	case resXorSeq1:
		l.Sink.LoadXorSeq(1, data)
	case resXorSeq2:
		l.Sink.LoadXorSeq(2, data)
	default:
		// Unknown resource types are tolerated, matching the reference
		// loader's warn-and-continue behavior.
	}
	return nil
}

// routeConfig handles RESTP_12: an eight-byte control block (an enable
// flag, one padding byte, a key-down flag, a key code, and a
// little-endian 32-bit frame number) copied into VM memory starting at
// the current cursor. The padding byte at offset 1 is not written.
func (l *Loader) routeConfig(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("resConfig: expected at least 8 bytes, got %d", len(data))
	}
	base := l.loadedDataSize
	l.Sink.SetConfigAddress(base)
	l.Mem.WriteU8(base, data[0])
	// data[1] is padding, matching the one-byte skip in the source format.
	l.Mem.WriteU8(base+2, data[2])
	l.Mem.WriteU8(base+3, data[3])
	l.Mem.WriteU32(base+4, leU32(data[4:8]))
	return nil
}

// skipMovie implements command byte 5: a self-describing variable-width
// size field followed by that many bytes of opaque movie data. When the
// preceding resource tag was the movie marker, the position just before
// the blob is recorded so the engine can seek back to it during
// playback.
func (l *Loader) skipMovie(prevByte byte, pid uint32) error {
	tag, err := l.Arch.ReadByte()
	if err != nil {
		return fmt.Errorf("loader: movie size tag: %w", err)
	}
	if tag == 0 || tag&0xec != 0xec {
		return fmt.Errorf("loader: malformed movie size tag %#02x", tag)
	}
	width := int(tag&3) + 1

	var size int64
	for i := 0; i < width; i++ {
		b, err := l.Arch.ReadByte()
		if err != nil {
			return fmt.Errorf("loader: movie size byte: %w", err)
		}
		size |= int64(b) << (uint(i) * 8)
	}

	if prevByte == movieMarker {
		l.Sink.SetMovieOffset(pid, l.Arch.Pos())
	}
	return l.Arch.Skip(size)
}

// loadInline implements command byte 6: a self-contained mini load
// stream embedded directly in the outer stream, used for the handful
// of resource types (0x40/0x41/0x42/0x43/0xff) that can appear without
// going through the outer p1/p2/p3-then-dispatch protocol. It begins
// with a skip region, a fixed tag byte, and then a compressed chunk
// whose bytes are themselves interpreted as a tiny command stream.
func (l *Loader) loadInline() error {
	skipSz, err := l.Arch.ReadInt32LE()
	if err != nil {
		return fmt.Errorf("reading skip size: %w", err)
	}
	if err := l.Arch.Skip(int64(skipSz)); err != nil {
		return err
	}

	tag, err := l.Arch.ReadByte()
	if err != nil {
		return err
	}
	if tag != 7 {
		return fmt.Errorf("expected inline-stream tag 7, got %#02x", tag)
	}

	data, err := l.Arch.ReadCompressedChunk()
	if err != nil {
		return fmt.Errorf("reading inline stream body: %w", err)
	}

	var p1, p2 uint32
	var pid uint32
	var resType byte
	pos := 0

	for pos < len(data) {
		cur := data[pos]
		pos++

		switch cur {
		case 0:
			return nil
		case tagIDFlag:
			p1, p2 = 0, 0
			v, n := readLE32At(data, pos)
			pid = v
			pos += n
		case cmdSetP1:
			v, n := readLE32At(data, pos)
			p1 = v
			pos += n
		case cmdSetP2:
			v, n := readLE32At(data, pos)
			p2 = v
			pos += n
		case 7:
			// A free-memory probe; the reference loader only logs it.
			_, n := readLE32At(data, pos)
			pos += n
		case resImage40:
			sz := 4
			if pos+sz > len(data) {
				return fmt.Errorf("inline resImage40: short body")
			}
			resType = resImage40
			if err := l.Sink.LoadRes40(pid, data[pos:pos+sz]); err != nil {
				return err
			}
			pos += sz
		case resImage41, resImage42:
			szv, n := readLE32At(data, pos)
			pos += n
			sz := int(szv)
			if pos+sz > len(data) {
				return fmt.Errorf("inline res%#02x: short body", cur)
			}
			resType = cur
			var err error
			if cur == resImage41 {
				err = l.Sink.LoadRes41(pid, data[pos:pos+sz])
			} else {
				err = l.Sink.LoadRes42(pid, p1, data[pos:pos+sz])
			}
			if err != nil {
				return err
			}
			l.loadedDataSize += (uint32(sz) + 3) &^ 3
			pos += sz
		case resImage43:
			sz := 0x10
			if pos+sz > len(data) {
				return fmt.Errorf("inline resImage43: short body")
			}
			resType = resImage43
			if err := l.Sink.LoadRes43(pid, p1, p2, data[pos:pos+sz]); err != nil {
				return err
			}
			l.loadedDataSize += (uint32(sz) + 3) &^ 3
			pos += sz
		case cmdReuse:
			if err := l.Sink.ReuseLastResource(resType, pid, p1, p2); err != nil {
				return err
			}
		default:
			return fmt.Errorf("inline stream: unhandled command byte %#02x", cur)
		}
	}
	return nil
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func readLE32At(b []byte, pos int) (uint32, int) {
	if pos+4 > len(b) {
		return 0, len(b) - pos
	}
	return leU32(b[pos : pos+4]), 4
}
