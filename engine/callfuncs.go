package engine

import (
	"log"

	"github.com/vsengine/vsengine/audioexternal"
	"github.com/vsengine/vsengine/vm"
	"github.com/vsengine/vsengine/world"
)

// CALL_FUNC ids this engine wires up, named by their
// original_source/gamos.cpp vmCallDispatcher case numbers. Most of the
// dispatcher's ~30 cases are query/compare helpers over an object's
// packed fld_4 mouse-mode byte (cases 1-6) that this port's rule
// interpreter already resolves without a host round trip; the ids
// below are the ones whose effect reaches outside the interpreter
// (module switch, sound, subtitles, cursor, active-player lifecycle)
// and so need a CALL_FUNC registration.
const (
	funcSwitchModule     = 14
	funcPlaySound        = 17
	funcSubtitlePoints   = 20
	funcAddSubtitles     = 24
	funcSetActiveZ       = 25
	funcRemoveSubtitles  = 26
	funcDeselectActive   = 30
	funcResetCursor      = 31
)

// CallbackSet holds the collaborators CALL_FUNC host callbacks need:
// the world (for the active object and its pool), the sound player,
// and the subtitle table. RegisterOn binds every handler this engine
// implements onto a vm.Machine.
type CallbackSet struct {
	World     *world.World
	Sound     audioexternal.Player
	Subtitles *SubtitleTable
	Cursor    CursorSink

	// reload is invoked by funcSwitchModule with the requested module
	// id; the caller supplies how a module switch is actually carried
	// out (spec §4 "LoadModule orchestration").
	reload func(moduleID uint32)
}

// CursorSink changes the pointer's sprite; EngineState implements it.
// Host callback 31 (setCursor) is a thin pass-through to it.
type CursorSink interface {
	ResetCursor(shape uint32)
}

// NewCallbackSet returns a CallbackSet; reload is called synchronously
// from within the CALL_FUNC handler, before vm.RequestReload marks the
// running script's VM instance for abandonment.
func NewCallbackSet(w *world.World, sound audioexternal.Player, subs *SubtitleTable, cursor CursorSink, reload func(moduleID uint32)) *CallbackSet {
	return &CallbackSet{World: w, Sound: sound, Subtitles: subs, Cursor: cursor, reload: reload}
}

// RegisterOn binds every handler in this set onto m.
func (c *CallbackSet) RegisterOn(m *vm.Machine) {
	m.RegisterCallback(funcSwitchModule, c.switchModule)
	m.RegisterCallback(funcPlaySound, c.playSound)
	m.RegisterCallback(funcSubtitlePoints, c.runSubtitlePoints)
	m.RegisterCallback(funcAddSubtitles, c.addSubtitles)
	m.RegisterCallback(funcSetActiveZ, c.setActiveZ)
	m.RegisterCallback(funcRemoveSubtitles, c.removeSubtitles)
	m.RegisterCallback(funcDeselectActive, c.deselectActive)
	m.RegisterCallback(funcResetCursor, c.resetCursor)
}

// switchModule loads the named module and marks the running VM for
// reload (vmCallDispatcher case 14: loadModule(arg1); setNeedReload()).
func (c *CallbackSet) switchModule(m *vm.Machine, inst *vm.Instance, funcID uint32) {
	moduleID := inst.Pop32()
	if c.reload != nil {
		c.reload(moduleID)
	}
	m.RequestReload()
	inst.EAX = vm.Value{Val: 1}
}

// playSound fires a sample by id and does not block (case 17).
func (c *CallbackSet) playSound(m *vm.Machine, inst *vm.Instance, funcID uint32) {
	id := inst.Pop32()
	if c.Sound != nil {
		if err := c.Sound.Play(id); err != nil {
			log.Printf("engine: play sound %#x: %v", id, err)
		}
	}
	inst.EAX = vm.Value{Val: 1}
}

// runSubtitlePoints handles case 20: it pops the caption id and
// returns 1. It neither replays the caption's placement points nor
// runs its rule actions; glyph objects are spawned only through
// funcAddSubtitles.
func (c *CallbackSet) runSubtitlePoints(m *vm.Machine, inst *vm.Instance, funcID uint32) {
	inst.Pop32() // caption id; point replay not wired, see doc comment
	inst.EAX = vm.Value{Val: 1}
}

// addSubtitles spawns caption glyph objects for the active object
// (case 24).
func (c *CallbackSet) addSubtitles(m *vm.Machine, inst *vm.Instance, funcID uint32) {
	ref := inst.PopReg()
	capID := inst.Pop32()
	if c.World == nil || c.World.ActiveObject == nil || c.Subtitles == nil {
		inst.EAX = vm.Value{Val: 0}
		return
	}
	pts := c.Subtitles.points[uint32(capID)]
	if len(pts) == 0 {
		inst.EAX = vm.Value{Val: 0}
		return
	}
	text := readCString(m, inst, ref)
	p := pts[0]
	Spawn(c.World.Pool, c.World.ActiveObject, int32(p.SprID), int32(p.X), int32(p.Y), text)
	inst.EAX = vm.Value{Val: 1}
}

// setActiveZ updates the active object's z and its shadow/companion's
// ZSort field, marking the companion dirty (case 25). This port has no
// dirty-rect handle reachable from a CALL_FUNC callback, so the
// companion's sort key is updated and the compositor's own per-frame
// dirty accumulation (already run over every drawable object each
// Compose) picks up the change on the next frame.
func (c *CallbackSet) setActiveZ(m *vm.Machine, inst *vm.Instance, funcID uint32) {
	z := inst.Pop32()
	if c.World != nil && c.World.ActiveObject != nil {
		active := c.World.ActiveObject
		if active.Z != int32(z) {
			active.Z = int32(z)
			for _, sub := range c.World.Pool.Subordinates(active.Index) {
				sub.ZSort = int32(z)
			}
		}
	}
	inst.EAX = vm.Value{Val: 1}
}

// removeSubtitles frees the active object's caption glyphs (case 26).
func (c *CallbackSet) removeSubtitles(m *vm.Machine, inst *vm.Instance, funcID uint32) {
	if c.World != nil && c.World.ActiveObject != nil {
		RemoveOwned(c.World.Pool, c.World.ActiveObject)
	}
	inst.EAX = vm.Value{Val: 1}
}

// deselectActive drops the active object's companion reference (case
// 30: PTR_00417218->x = -1; PTR_00417218->y = -1; removeObjectMarkDirty).
func (c *CallbackSet) deselectActive(m *vm.Machine, inst *vm.Instance, funcID uint32) {
	if c.World != nil && c.World.ActiveObject != nil {
		for _, sub := range c.World.Pool.Subordinates(c.World.ActiveObject.Index) {
			c.World.Pool.RemoveObject(sub.Index)
		}
	}
	inst.EAX = vm.Value{Val: 1}
}

// resetCursor applies a pointer shape change (case 31).
func (c *CallbackSet) resetCursor(m *vm.Machine, inst *vm.Instance, funcID uint32) {
	shape := inst.Pop32()
	if c.Cursor != nil {
		c.Cursor.ResetCursor(shape)
	}
	inst.EAX = vm.Value{Val: 1}
}

// readCString reads a NUL-terminated byte string out of VM-visible
// memory through the tagged reference ref, mirroring vm->getString.
func readCString(m *vm.Machine, inst *vm.Instance, ref vm.Value) []byte {
	var out []byte
	for i := 0; i < 4096; i++ {
		b := m.GetMem8(inst, vm.Value{Ref: ref.Ref, Val: ref.Val + uint32(i)})
		if b == 0 {
			break
		}
		out = append(out, b)
	}
	return out
}
