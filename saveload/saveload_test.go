package saveload

import (
	"bytes"
	"io"
	"testing"

	"github.com/vsengine/vsengine/vmmem"
	"github.com/vsengine/vsengine/world"
)

func TestMakeSaveName(t *testing.T) {
	cases := []struct{ main, ext string; id int; want string }{
		{"game.exe", "sav", 0, "GAME0.sav"},
		{"MyGame.EXE", "sav", 3, "MYGAME3.sav"},
		{"noext", "sav", 1, "NOEXT1.sav"},
	}
	for _, c := range cases {
		if got := MakeSaveName(c.main, c.id, c.ext); got != c.want {
			t.Errorf("MakeSaveName(%q,%d,%q) = %q, want %q", c.main, c.id, c.ext, got, c.want)
		}
	}
}

func TestStateHeaderRoundTrip(t *testing.T) {
	h := StateHeader{
		Ext:              [4]byte{'s', 'a', 'v', 0},
		GD2Flags:         0x12,
		ModuleID:         7,
		GameScreen:       2,
		Fld10:            0xdeadbeef,
		EnableMidi:       true,
		ScrollX:          -100,
		ScrollY:          200,
		ScrollTrackObj:   -1,
		ScrollSpeed:      5,
		SoundVolume:      200,
		MidiVolume:       128,
		Fps:              30,
		Frame:            99999,
		MidiTrack:        4,
		MouseCursorImgID: 42,
		KeyCodes:         [12]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}
	buf := WriteStateHeader(h)
	if len(buf) != HeaderSize {
		t.Fatalf("WriteStateHeader returned %d bytes, want %d", len(buf), HeaderSize)
	}
	got, err := ReadStateHeader(buf)
	if err != nil {
		t.Fatalf("ReadStateHeader: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, h)
	}
}

func TestKeySequencesLoadAndVMDataRoundTrip(t *testing.T) {
	var k KeySequences
	// seq 0: one region {len:8, pos:0x100}
	region0 := []byte{1, 0, 0, 0, 8, 0, 0, 0, 0x00, 0x01, 0, 0}
	if err := k.Load(0, region0); err != nil {
		t.Fatalf("Load(0): %v", err)
	}
	if len(k.Regions[0]) != 1 || k.Regions[0][0].Len != 8 || k.Regions[0][0].Pos != 0x100 {
		t.Fatalf("Regions[0] = %+v", k.Regions[0])
	}
	if err := k.Load(2, []byte{0xAA, 0x55, 0xFF}); err != nil {
		t.Fatalf("Load(2): %v", err)
	}
	if !bytes.Equal(k.Key, []byte{0xAA, 0x55, 0xFF}) {
		t.Fatalf("Key = %x", k.Key)
	}

	mem := vmmem.New()
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	mem.WriteMemory(0x100, want)

	var out bytes.Buffer
	if err := WriteVMData(&out, mem, k.Regions[0], k.Key); err != nil {
		t.Fatalf("WriteVMData: %v", err)
	}
	if bytes.Equal(out.Bytes(), want) {
		t.Fatalf("WriteVMData output equals plaintext; key was not applied")
	}

	mem2 := vmmem.New()
	if err := ReadVMData(&out, mem2, k.Regions[0], k.Key); err != nil {
		t.Fatalf("ReadVMData: %v", err)
	}
	got := mem2.ReadMemBlocks(0x100, 8)
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip = %v, want %v", got, want)
	}

	ZeroVMData(mem2, k.Regions[0])
	if z := mem2.ReadMemBlocks(0x100, 8); !bytes.Equal(z, make([]byte, 8)) {
		t.Fatalf("ZeroVMData left %v, want zeros", z)
	}
}

func firstHasTile(w *world.World) *world.Object {
	for i := 0; i < w.Pool.Len(); i++ {
		if o := w.Pool.At(i); o.Flags&world.FlagLive != 0 && o.Flags&world.FlagHasTile != 0 {
			return o
		}
	}
	return nil
}

func TestGameScreenStoreAndSwitch(t *testing.T) {
	w := world.New(4, 4, nil, nil)
	w.SetCell(1, 1, 5, world.OrientN)
	main := firstHasTile(w)
	sub := w.Pool.GetFreeObject()
	sub.Flags = world.FlagLive | world.FlagFreeFloating
	sub.Owner = main.Index
	orphan := w.Pool.GetFreeObject()
	orphan.Flags = world.FlagLive | world.FlagFreeFloating
	orphan.Owner = -1

	screens := NewScreens()
	screens.SetCurrent(0) // screen 0's state is whatever the loader just populated live

	// Mutate world further while still on screen 0, then switch to a
	// never-visited screen 1 (storing screen 0 first).
	w.SetCell(2, 2, 6, world.OrientE)
	screens.Switch(1, w, false)

	if screens.Current() != 1 {
		t.Fatalf("Current() = %d, want 1", screens.Current())
	}
	if w.Grid.ActorAt(1, 1) != world.EmptyActorID || w.Grid.ActorAt(2, 2) != world.EmptyActorID {
		t.Fatalf("switching to a never-visited screen should start from an empty grid")
	}

	// Switch back to screen 0; the stored snapshot should restore.
	screens.Switch(0, w, false)
	if w.Grid.ActorAt(1, 1) != 5 {
		t.Fatalf("ActorAt(1,1) = %d, want 5 after restoring screen 0", w.Grid.ActorAt(1, 1))
	}
	if w.Grid.ActorAt(2, 2) != 6 {
		t.Fatalf("ActorAt(2,2) = %d, want 6 after restoring screen 0", w.Grid.ActorAt(2, 2))
	}

	var subFound, orphanFound bool
	for i := 0; i < w.Pool.Len(); i++ {
		o := w.Pool.At(i)
		if o.Flags&world.FlagLive == 0 {
			continue
		}
		if o.Flags&world.FlagFreeFloating != 0 {
			if o.Owner == -1 {
				orphanFound = true
			} else if w.Pool.At(o.Owner) != nil && w.Pool.At(o.Owner).Flags&world.FlagHasTile != 0 {
				subFound = true
			}
		}
	}
	if !subFound {
		t.Errorf("restored pool lost the owned subordinate object")
	}
	if !orphanFound {
		t.Errorf("restored pool lost the ownerless free-floating object")
	}
}

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

type memWriteFile struct {
	buf  *bytes.Buffer
	name string
	fs   *memFileManager
}

func (m *memWriteFile) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memWriteFile) Close() error {
	m.fs.files[m.name] = m.buf.Bytes()
	return nil
}

type memFileManager struct {
	files map[string][]byte
}

func newMemFileManager() *memFileManager { return &memFileManager{files: map[string][]byte{}} }

func (m *memFileManager) Exists(name string) bool {
	_, ok := m.files[name]
	return ok
}

func (m *memFileManager) OpenForLoading(name string) (io.ReadCloser, error) {
	return memFile{bytes.NewReader(m.files[name])}, nil
}

func (m *memFileManager) OpenForSaving(name string) (io.WriteCloser, error) {
	return &memWriteFile{buf: &bytes.Buffer{}, name: name, fs: m}, nil
}

func TestStoreWriteLoadRunReadDataMode(t *testing.T) {
	fs := newMemFileManager()
	mem := vmmem.New()
	mem.WriteMemory(0x200, []byte{9, 9, 9, 9})
	mem.WriteMemory(0x300, []byte{1, 1})

	seqs := KeySequences{
		Regions: [2][]vmmem.ScrambleRange{
			{{Pos: 0x200, Len: 4}},
			{{Pos: 0x300, Len: 2}},
		},
		Key: []byte{0x5A},
	}

	store := &Store{Files: fs, Mem: mem, Seqs: seqs, RunReadDataMode: true}

	header := StateHeader{ModuleID: 1, Fps: 25}
	if err := store.WriteStateFile(header, "game.exe", 0, "sav"); err != nil {
		t.Fatalf("WriteStateFile: %v", err)
	}

	mem2 := vmmem.New()
	store2 := &Store{Files: fs, Mem: mem2, Seqs: seqs, RunReadDataMode: true}
	got, loaded, err := store2.LoadStateFile("game.exe", 0, "sav")
	if err != nil {
		t.Fatalf("LoadStateFile: %v", err)
	}
	if !loaded {
		t.Fatalf("LoadStateFile reported not loaded")
	}
	if got.ModuleID != 1 || got.Fps != 25 {
		t.Fatalf("header = %+v, want ModuleID=1 Fps=25", got)
	}
	if got := mem2.ReadMemBlocks(0x200, 4); !bytes.Equal(got, []byte{9, 9, 9, 9}) {
		t.Fatalf("bank 0 = %v, want [9 9 9 9]", got)
	}
	if got := mem2.ReadMemBlocks(0x300, 2); !bytes.Equal(got, make([]byte, 2)) {
		t.Fatalf("bank 1 should be zeroed after a run-read-data load, got %v", got)
	}
	if store2.RunReadDataMode {
		t.Fatalf("RunReadDataMode should clear after a successful load")
	}

	// Ordinary (non-bootstrap) refresh: header is preserved verbatim,
	// only the VM banks change.
	mem.WriteU8(0x200, 0x42)
	store.RunReadDataMode = false
	if err := store.WriteStateFile(StateHeader{ModuleID: 99}, "game.exe", 0, "sav"); err != nil {
		t.Fatalf("WriteStateFile (refresh): %v", err)
	}

	mem3 := vmmem.New()
	store3 := &Store{Files: fs, Mem: mem3, Seqs: seqs, RunReadDataMode: false}
	_, loaded3, err := store3.LoadStateFile("game.exe", 0, "sav")
	if err != nil {
		t.Fatalf("LoadStateFile (refresh): %v", err)
	}
	if loaded3 {
		t.Fatalf("non-run-read-data load should not report a parsed header")
	}
	if got := mem3.ReadMemBlocks(0x200, 1); got[0] != 0x42 {
		t.Fatalf("refreshed bank 0 byte = %#x, want 0x42", got[0])
	}
}
