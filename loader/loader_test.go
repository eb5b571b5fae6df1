package loader

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/vsengine/vsengine/archive"
	"github.com/vsengine/vsengine/vmmem"
)

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// buildFixture assembles a minimal two-directory `=VS=` archive: dir id 1
// is the shared prefix stream (a single section-boundary byte), dir id 2
// is module 0's stream.
func buildFixture(t *testing.T, module []byte) string {
	t.Helper()
	var buf []byte

	prefixOff := uint32(len(buf))
	buf = append(buf, 0x00) // shared prefix: immediate section boundary

	moduleOff := uint32(len(buf))
	buf = append(buf, module...)

	pairStart := len(buf)
	buf = appendU32(buf, 2) // dirCount
	buf = appendU32(buf, 0) // dataOffset

	buf = appendU32(buf, prefixOff)
	buf = append(buf, 1)
	buf = appendU32(buf, moduleOff)
	buf = append(buf, 2)

	trailerStart := len(buf)
	dirOffset := uint32(trailerStart-pairStart) + 12
	buf = appendU32(buf, dirOffset-12)
	buf = appendU32(buf, 0)
	buf = appendU32(buf, 0x3d53563d)

	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.vs")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

// fakeSink records every call a Loader makes to it; methods not under
// test return zero values / nil.
type fakeSink struct {
	finished     bool
	finishedMod  uint32
	soundSamples map[uint32][]byte
}

func newFakeSink() *fakeSink { return &fakeSink{soundSamples: map[uint32][]byte{}} }

func (f *fakeSink) InitOrLoadSave(int) error                                 { return nil }
func (f *fakeSink) ReadData2([]byte)                                         {}
func (f *fakeSink) InitMainDatas() error                                     { return nil }
func (f *fakeSink) ReadElementsConfig([]byte)                                {}
func (f *fakeSink) SetConfigAddress(uint32)                                  {}
func (f *fakeSink) LoadBkg(uint32, []byte) error                             { return nil }
func (f *fakeSink) LoadGlobalActions([]byte) error                           { return nil }
func (f *fakeSink) SetObjectUnk1(uint32, uint32) error                       { return nil }
func (f *fakeSink) SetOnCreateAddress(uint32, uint32)                        {}
func (f *fakeSink) SetOnDeleteAddress(uint32, uint32)                        {}
func (f *fakeSink) ResizeActions(uint32, int) error                          { return nil }
func (f *fakeSink) ParseAction(uint32, int, []byte) error                    { return nil }
func (f *fakeSink) SetActionConditionAddress(uint32, int, uint32)            {}
func (f *fakeSink) SetActionFunctionAddress(uint32, int, uint32)             {}
func (f *fakeSink) SetThing38(uint32, []byte)                                {}
func (f *fakeSink) SetThing39(uint32, []byte)                                {}
func (f *fakeSink) SetThing3A(uint32, []byte)                                {}
func (f *fakeSink) LoadRes40(uint32, []byte) error                           { return nil }
func (f *fakeSink) LoadRes41(uint32, []byte) error                           { return nil }
func (f *fakeSink) LoadRes42(uint32, uint32, []byte) error                   { return nil }
func (f *fakeSink) LoadRes43(uint32, uint32, uint32, []byte) error           { return nil }
func (f *fakeSink) SetSoundSample(pid uint32, data []byte)                   { f.soundSamples[pid] = append([]byte{}, data...) }
func (f *fakeSink) LoadMidi(uint32, []byte) error                            { return nil }
func (f *fakeSink) ParseSubtitleActions(uint32, []byte) error                { return nil }
func (f *fakeSink) SetSubtitlePoints(uint32, []byte) error                   { return nil }
func (f *fakeSink) LoadXorSeq(int, []byte)                                   {}
func (f *fakeSink) ReuseLastResource(byte, uint32, uint32, uint32) error     { return nil }
func (f *fakeSink) SetMovieOffset(uint32, int64)                            {}
func (f *fakeSink) OnlyScanImage() bool                                      { return false }
func (f *fakeSink) FinishModule(moduleID uint32) error {
	f.finished = true
	f.finishedMod = moduleID
	return nil
}

// TestLoadModuleRawBlock exercises the 0x13 "raw block" resource type: its
// body is copied verbatim into VM memory at the running loadedDataSize
// cursor, and the cursor advances by the 4-byte-rounded body length.
func TestLoadModuleRawBlock(t *testing.T) {
	var module []byte
	module = append(module, 0x13|tagIDFlag) // resType=0x13, pid=0 (id flag set)
	module = append(module, cmdDispatch)
	module = append(module, 0x80|0x40|2, 'A', 'B') // literal chunk "AB"
	module = append(module, cmdSectionBoundary)

	path := buildFixture(t, module)
	a, err := archive.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	mem := vmmem.New()
	sink := newFakeSink()
	l := New(a, mem, sink)

	if err := l.LoadModule(0, true, -1); err != nil {
		t.Fatalf("LoadModule: %v", err)
	}

	if !sink.finished || sink.finishedMod != 0 {
		t.Fatalf("FinishModule not called with module 0: %+v", sink)
	}
	got := mem.ReadMemBlocks(0, 2)
	if string(got) != "AB" {
		t.Fatalf("VM memory at 0 = %q, want %q", got, "AB")
	}
	if l.LoadedDataSize() != 4 {
		t.Fatalf("loadedDataSize = %d, want 4", l.LoadedDataSize())
	}
}

// TestLoadModuleSound exercises the 0x51 sound-sample resource, whose
// body is a little-endian length prefix followed by PCM bytes.
func TestLoadModuleSound(t *testing.T) {
	var module []byte
	module = append(module, 0x51|tagIDFlag)
	module = append(module, cmdDispatch)

	var sample []byte
	sample = appendU32(sample, 4)
	sample = append(sample, 1, 2, 3, 4)
	module = append(module, 0x80|0x40|byte(len(sample)))
	module = append(module, sample...)
	module = append(module, cmdSectionBoundary)

	path := buildFixture(t, module)
	a, err := archive.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	sink := newFakeSink()
	l := New(a, vmmem.New(), sink)
	if err := l.LoadModule(0, true, -1); err != nil {
		t.Fatalf("LoadModule: %v", err)
	}

	got := sink.soundSamples[0]
	if len(got) != 4 || got[0] != 1 || got[3] != 4 {
		t.Fatalf("sound sample = %v, want [1 2 3 4]", got)
	}
}
