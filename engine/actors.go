package engine

import "github.com/vsengine/vsengine/rules"

// actorDescriptor mirrors one ObjectAction record (spec §3): a packed
// behavior/movement/z/storage-size descriptor, the two lifecycle
// scripts, and the rule list a live object of this actor id walks
// every tick (spec §3 "ObjectAction").
type actorDescriptor struct {
	Unk1         uint32
	OnCreateAddr int32
	OnDeleteAddr int32
	Actions      []*rules.Actions
}

func (d *actorDescriptor) behaviorClass() int    { return int(d.Unk1 & 0xFF) }
func (d *actorDescriptor) activeDirBitmap() byte { return byte(d.Unk1 >> 8) }
func (d *actorDescriptor) defaultZ() byte        { return byte(d.Unk1 >> 16) }
func (d *actorDescriptor) storageSize() int      { return int(byte(d.Unk1>>24)) + 1 }

// ActorTable holds one actorDescriptor per actor id: the loader Sink's
// backing store for resource types 0x20-0x2C, and the lookup the rule
// interpreter and the world's cell-write lifecycle share (spec §4.F/
// §4.H).
type ActorTable struct {
	descs map[byte]*actorDescriptor
}

// NewActorTable returns an empty table; entries are created lazily as
// the loader's resources name actor ids.
func NewActorTable() *ActorTable {
	return &ActorTable{descs: make(map[byte]*actorDescriptor)}
}

func (t *ActorTable) get(actorID byte) *actorDescriptor {
	d, ok := t.descs[actorID]
	if !ok {
		d = &actorDescriptor{OnCreateAddr: rules.NoScript, OnDeleteAddr: rules.NoScript}
		t.descs[actorID] = d
	}
	return d
}

// Descriptor exposes the read side for the tick loop and the Hooks
// implementation; nil is never returned (a fresh zero descriptor is
// created on first reference, matching a module that names an actor
// id in its grid without ever loading resource 0x20 for it).
func (t *ActorTable) Descriptor(actorID byte) *actorDescriptor { return t.get(actorID) }

func (t *ActorTable) SetUnk1(actorID byte, v uint32)       { t.get(actorID).Unk1 = v }
func (t *ActorTable) SetOnCreate(actorID byte, addr int32) { t.get(actorID).OnCreateAddr = addr }
func (t *ActorTable) SetOnDelete(actorID byte, addr int32) { t.get(actorID).OnDeleteAddr = addr }

// Resize allocates count rule slots for actorID, implementing resource
// 0x23's leading count-only header (spec loader dispatch table "rule
// table and its scripts").
func (t *ActorTable) Resize(actorID byte, count int) {
	t.get(actorID).Actions = make([]*rules.Actions, count)
}

func (t *ActorTable) SetAction(actorID byte, idx int, a *rules.Actions) {
	d := t.get(actorID)
	if idx >= 0 && idx < len(d.Actions) {
		d.Actions[idx] = a
	}
}

func (t *ActorTable) SetActionCondition(actorID byte, idx int, addr int32) {
	d := t.get(actorID)
	if idx >= 0 && idx < len(d.Actions) && d.Actions[idx] != nil {
		d.Actions[idx].ConditionAddress = addr
	}
}

func (t *ActorTable) SetActionFunction(actorID byte, idx int, addr int32) {
	d := t.get(actorID)
	if idx >= 0 && idx < len(d.Actions) && d.Actions[idx] != nil {
		d.Actions[idx].FunctionAddress = addr
	}
}

// BehaviorClass implements world.ActionLookup (spec §4.F "behavior
// classes").
func (t *ActorTable) BehaviorClass(actorID byte) int { return t.get(actorID).behaviorClass() }

// Reset drops every descriptor, run at the start of each module load
// alongside the grid/pool/VM-memory reset (spec §3 "Lifecycle").
func (t *ActorTable) Reset() { t.descs = make(map[byte]*actorDescriptor) }
