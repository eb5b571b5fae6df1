// Package engine wires every lower package (codec/archive/vmmem/vm/
// loader/world/rules/pathing/compositor/driver/saveload/audioexternal/
// debugconsole) into one live game instance: resource tables, the
// loader Sink, the CALL_FUNC host callbacks, and the driver's
// fixed-tick loop (spec §9 "Globals → state object").
package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/vsengine/vsengine/archive"
	"github.com/vsengine/vsengine/audioexternal"
	"github.com/vsengine/vsengine/compositor"
	"github.com/vsengine/vsengine/debugconsole"
	"github.com/vsengine/vsengine/driver"
	"github.com/vsengine/vsengine/loader"
	"github.com/vsengine/vsengine/rules"
	"github.com/vsengine/vsengine/saveload"
	"github.com/vsengine/vsengine/vm"
	"github.com/vsengine/vsengine/world"
)

// TilePixels is the pixel footprint of one grid cell. Neither spec.md
// nor the available original_source gives a numeric tile size (the
// grid stores only logical cell coordinates); this port fixes one so
// a tile-resident object's PixelX/PixelY — which the compositor reads
// directly — has a concrete home.
const TilePixels = 16

// GridW and GridH size the toroidal grid new modules start with.
// Resource 0x11 (element counts) could in principle drive this; this
// port's Sink.ReadElementsConfig is a documented no-op (see sink.go),
// so every module gets the same generous fixed grid instead.
const (
	GridW = 128
	GridH = 128
)

// keyDeselectActive is this port's input code for the spec's
// supplemented ACT2_8F feature: on receipt the tick loop clears
// World.ActiveObject. No numeric keycode table survives in
// original_source, so the value is this engine's own convention; the
// tick loop is its only reader.
const keyDeselectActive byte = 0x8F

// EngineState owns one live module's worth of engine state: the
// archive, VM, loader, world, rule interpreter, compositor, driver,
// save/screen machinery, and every loader-resource table built in
// this package. It implements world.Hooks and CursorSink directly.
type EngineState struct {
	GameID  string
	SaveDir string
	SaveExt string

	Arch   *archive.Archive
	VM     *vm.Machine
	Loader *loader.Loader
	World  *world.World
	Interp *rules.Interpreter

	Comp   *compositor.Compositor
	Driver *driver.Driver

	Screens *saveload.Screens
	Store   *saveload.Store
	XorSeqs *saveload.KeySequences

	Sounds *audioexternal.SampleTable
	Player audioexternal.Player

	Console *debugconsole.Console

	Actors      *ActorTable
	Families    *FamilyTable
	Backgrounds *BackgroundTable
	Sprites     *SpriteTable
	Subtitles   *SubtitleTable
	Sink        *Sink
	Callbacks   *CallbackSet

	moduleID        uint32
	pendingModuleID uint32
	reloadPending   bool
	frame           uint32
	quit            bool
	cursorObj       *world.Object
}

// New opens archivePath and wires a fresh EngineState over it. gameID
// names the save-file family (saveload.MakeSaveName's "main"
// argument); player is the sample-table sink CALL_FUNC 17 drives
// (audioexternal.NewOtoPlayer or a headless audioexternal.NullPlayer).
func New(archivePath, gameID, saveDir string, fps int, player audioexternal.Player) (*EngineState, error) {
	arch, err := archive.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("engine: New: %w", err)
	}

	pal := compositor.DefaultPalette()

	es := &EngineState{
		GameID:  gameID,
		SaveDir: saveDir,
		SaveExt: "SAV",

		Arch: arch,
		VM:   vm.New(),

		Comp: compositor.New(1, 1),

		Screens: saveload.NewScreens(),
		XorSeqs: &saveload.KeySequences{},

		Sounds: audioexternal.NewSampleTable(),
		Player: player,

		Actors:      NewActorTable(),
		Families:    NewFamilyTable(),
		Backgrounds: NewBackgroundTable(),
		Subtitles:   NewSubtitleTable(),

		pendingModuleID: 0,
	}
	es.Sprites = NewSpriteTable(arch, pal)

	es.World = world.New(GridW, GridH, es, es.Actors)
	es.Interp = &rules.Interpreter{
		World:  es.World,
		Rand:   rules.NewRand(uint32(time.Now().UnixMilli())),
		Family: es.Families,
	}

	es.Sink = NewSink(es.Actors, es.Families, es.Backgrounds, es.Sprites, es.Sounds, es.Subtitles, es.XorSeqs)
	es.Sink.OnInitSave = es.onInitSave
	es.Sink.OnFinishModule = es.onFinishModule

	es.Loader = loader.New(arch, es.VM.Mem, es.Sink)

	es.Store = &saveload.Store{Files: saveload.DirFileManager{Dir: saveDir}, Mem: es.VM.Mem, Seqs: *es.XorSeqs}

	es.Callbacks = NewCallbackSet(es.World, es.Player, es.Subtitles, es, es.requestModuleSwitch)
	es.Callbacks.RegisterOn(es.VM)

	es.Console = debugconsole.New(es.VM)

	es.Driver = driver.New(fps, es.tick, es.Comp, es.World, es.Sprites)

	return es, nil
}

// Close releases the archive file handle.
func (es *EngineState) Close() error { return es.Arch.Close() }

// Quit requests that the next tick return driver.TickQuit.
func (es *EngineState) Quit() { es.quit = true }

// requestModuleSwitch is CallbackSet's reload hook (CALL_FUNC 14): it
// only records the target, the actual load runs from the tick loop
// once the interrupted script has unwound.
func (es *EngineState) requestModuleSwitch(moduleID uint32) {
	es.pendingModuleID = moduleID
	es.reloadPending = true
}

// LoadModule clears every per-module table and the VM/world state,
// then drives the loader over directory entry moduleID. saveSlot < 0
// starts a fresh module; saveSlot >= 0 restores that save slot's
// state through onInitSave (spec §4.L "save/restore").
func (es *EngineState) LoadModule(moduleID uint32, saveSlot int) error {
	es.Sink.Reset()
	es.World.Reset()
	es.VM.Mem.Reset()
	es.VM.AckReload()
	es.VM.ClearInterrupt()
	es.moduleID = moduleID
	es.frame = 0

	if err := es.Loader.LoadModule(moduleID, false, saveSlot); err != nil {
		return fmt.Errorf("engine: LoadModule(%d): %w", moduleID, err)
	}
	es.ensureCursor()
	return nil
}

// onInitSave implements Sink.OnInitSave: saveSlot < 0 marks the
// module's own screen id current with nothing to restore; saveSlot >=
// 0 restores the named save file's VM memory banks before the load
// stream runs, matching loadStateFile's ordering in the reference's
// module-switch path.
func (es *EngineState) onInitSave(saveSlot int) error {
	if saveSlot < 0 {
		es.Screens.SetCurrent(int(es.moduleID))
		return nil
	}
	es.Store.Seqs = *es.XorSeqs
	_, _, err := es.Store.LoadStateFile(es.GameID, saveSlot, es.SaveExt)
	if err != nil {
		return fmt.Errorf("engine: onInitSave(%d): %w", saveSlot, err)
	}
	es.Screens.SetCurrent(int(es.moduleID))
	return nil
}

// onFinishModule implements Sink.OnFinishModule: installs the
// module's main background, replays its buffered startup rules
// against a coordinate-origin placeholder object (spec dispatch
// table's "interpret immediately with absolute=true" for resource
// 0x19). It does not touch the cursor object; LoadModule allocates
// that afterwards through ensureCursor, since World.Reset cleared the
// pool it used to live in.
func (es *EngineState) onFinishModule(moduleID uint32, globalActions []*rules.Actions) error {
	es.Backgrounds.ApplyMain(es.Comp)

	origin := &world.Object{ActorID: world.EmptyActorID, Owner: -1}
	es.Interp.Exec = func(addr int32) int32 { return int32(es.VM.Execute(uint32(addr), nil)) }
	for _, a := range globalActions {
		es.Interp.DoActions(origin, a, true)
	}
	return nil
}

// ensureCursor (re)allocates the reserved cursor object: a
// free-floating, always-topmost Object that ResetCursor and MoveCursor
// update in place rather than reallocating (spec's supplemented
// "Cursor object" feature).
func (es *EngineState) ensureCursor() {
	obj := es.World.Pool.GetFreeObject()
	obj.Flags = world.FlagLive | world.FlagFreeFloating | world.FlagDrawable
	obj.ActorID = world.EmptyActorID
	obj.Owner = -1
	obj.ZSort = 0x7fffffff
	obj.Z = 0x7fffffff
	es.cursorObj = obj
}

// ResetCursor implements CursorSink (CALL_FUNC 31): changes the
// cursor object's sprite without moving or reallocating it.
func (es *EngineState) ResetCursor(shape uint32) {
	if es.cursorObj == nil {
		return
	}
	es.cursorObj.SpriteID = int32(shape)
	es.cursorObj.SeqID = 0
	es.cursorObj.Frame = 0
}

// MoveCursor repositions the cursor object to a pixel coordinate.
// Nothing in this module calls it; the driver's input latch does not
// move the cursor.
func (es *EngineState) MoveCursor(x, y int32) {
	if es.cursorObj == nil {
		return
	}
	es.cursorObj.PixelX, es.cursorObj.PixelY = x, y
}

// OnCreate implements world.Hooks: sizes the object's storage block
// from its actor descriptor, applies the descriptor's default z, and
// runs the actor's onCreate script (spec §3 "ObjectAction").
func (es *EngineState) OnCreate(obj *world.Object, x, y int, dir byte) {
	desc := es.Actors.Descriptor(obj.ActorID)
	obj.Storage = make([]byte, desc.storageSize())
	obj.Z = int32(desc.defaultZ())
	obj.ZSort = obj.Z
	if desc.OnCreateAddr != rules.NoScript {
		es.VM.Execute(uint32(desc.OnCreateAddr), obj.Storage)
	}
}

// OnDelete implements world.Hooks: runs the actor's onDelete script
// before the object is freed.
func (es *EngineState) OnDelete(obj *world.Object) {
	desc := es.Actors.Descriptor(obj.ActorID)
	if desc.OnDeleteAddr != rules.NoScript {
		es.VM.Execute(uint32(desc.OnDeleteAddr), obj.Storage)
	}
}

// tick is the driver.TickFunc: sample input, write the runtime
// register block, sweep the rule interpreter over every live object
// starting from the active object, fold sprite-sequence draw offsets
// into tile-resident objects' pixel positions, then report the
// outcome (spec §4.K "Suspension points").
func (es *EngineState) tick() int {
	if es.quit {
		return driver.TickQuit
	}

	down, code, frame := es.Driver.Input.Snapshot()
	es.frame = frame
	if down && code == keyDeselectActive {
		es.World.ActiveObject = nil
	}
	es.writeRegisterBlock(down, code, frame)

	es.sweepRules()

	if es.VM.NeedReload() {
		target := es.pendingModuleID
		es.reloadPending = false
		if err := es.LoadModule(target, -1); err != nil {
			log.Printf("engine: module switch to %d failed: %v", target, err)
			return driver.TickQuit
		}
		return driver.TickReload
	}

	es.foldSpriteOffsets()
	return driver.TickFrame
}

// writeRegisterBlock writes the enable/key-down/key-code/frame cells
// at the address RESTP_12 declared, if the loaded module declared one
// (Sink.ConfigAddr is -1 otherwise).
func (es *EngineState) writeRegisterBlock(down bool, code byte, frame uint32) {
	if es.Sink.ConfigAddr < 0 {
		return
	}
	base := uint32(es.Sink.ConfigAddr)
	es.VM.Mem.WriteU8(base, 1)
	es.VM.Mem.WriteU8(base+2, boolByte(down))
	es.VM.Mem.WriteU8(base+3, code)
	es.VM.Mem.WriteU32(base+4, frame)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// sweepRules walks every live object starting from the active object
// (wrapping), running each one's rule list in order and stopping its
// remaining rules on RuleSkipRemain (spec §4.H "walk an object's rule
// list"). The sweep itself stops early once a CALL_FUNC callback
// requests a module reload, since continuing to run scripts against a
// VM the driver is about to tear down would be observing
// post-interrupt state.
func (es *EngineState) sweepRules() {
	n := es.World.Pool.Len()
	if n == 0 {
		return
	}
	start := 0
	if es.World.ActiveObject != nil {
		start = es.World.ActiveObject.Index
	}

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		obj := es.World.Pool.At(idx)
		if obj == nil || obj.Flags&world.FlagLive == 0 {
			continue
		}
		desc := es.Actors.Descriptor(obj.ActorID)
		if len(desc.Actions) == 0 {
			continue
		}

		es.Interp.Exec = func(addr int32) int32 { return int32(es.VM.Execute(uint32(addr), obj.Storage)) }
		for _, a := range desc.Actions {
			if a == nil {
				continue
			}
			if es.Interp.DoActions(obj, a, false) == rules.RuleSkipRemain {
				break
			}
			if es.VM.NeedReload() {
				return
			}
		}
		if es.VM.NeedReload() {
			return
		}
	}
}

// foldSpriteOffsets applies resource 0x42's per-sequence-frame draw
// offset to every tile-resident object's pixel position. The
// compositor draws strictly at PixelX/PixelY with no offset parameter
// of its own (compositor.Compose), so this is the one place in the
// tick loop that translation has to happen. Free-floating objects
// (subtitle glyphs, the cursor) already carry their own authoritative
// pixel anchor and are left alone.
func (es *EngineState) foldSpriteOffsets() {
	n := es.World.Pool.Len()
	for i := 0; i < n; i++ {
		obj := es.World.Pool.At(i)
		if obj == nil || obj.Flags&world.FlagLive == 0 || obj.Flags&world.FlagHasTile == 0 {
			continue
		}
		off, _ := es.Sprites.Offset(obj.SpriteID, obj.SeqID, obj.Frame)
		obj.PixelX = int32(obj.GridX*TilePixels) + int32(off.XOffset)
		obj.PixelY = int32(obj.GridY*TilePixels) + int32(off.YOffset)
	}
}

// SaveGame snapshots the running VM's memory banks to slot id,
// matching the reference's quick-save path (not RunReadDataMode).
func (es *EngineState) SaveGame(id int) error {
	es.Store.Seqs = *es.XorSeqs
	es.Store.RunReadDataMode = false
	header := saveload.StateHeader{ModuleID: int32(es.moduleID), Frame: int32(es.frame)}
	return es.Store.WriteStateFile(header, es.GameID, id, es.SaveExt)
}

// LoadGame restores slot id's VM memory banks into the running
// machine without switching modules, for an in-game quick-load.
func (es *EngineState) LoadGame(id int) error {
	es.Store.Seqs = *es.XorSeqs
	es.Store.RunReadDataMode = false
	_, _, err := es.Store.LoadStateFile(es.GameID, id, es.SaveExt)
	return err
}
