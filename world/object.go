package world

import "github.com/vsengine/vsengine/geom"

// Object flag bits (spec §3 "Object").
const (
	FlagLive         byte = 1 << 0
	FlagHasTile      byte = 1 << 1
	FlagInMotion     byte = 1 << 2
	FlagHFlipOrigin  byte = 1 << 3
	FlagVFlipOrigin  byte = 1 << 4
	_                byte = 1 << 5 // unused by the reference format
	FlagFreeFloating byte = 1 << 6
	FlagDrawable     byte = 1 << 7
)

// DrawableMask selects the objects the compositor walks each frame:
// live, free-floating, drawable.
const DrawableMask = FlagLive | FlagFreeFloating | FlagDrawable
const DrawableWant = FlagLive | FlagDrawable

// Behavior classes, the low byte of an ObjectAction's Unk1 descriptor.
const (
	BehaviorInert     = 0
	BehaviorClickable = 1
	BehaviorKeyable   = 2
	BehaviorPlayer    = 3
)

// Object is one actor instance: either tied to a grid cell (HasTile)
// or free-floating in pixel space, owned by another object's index.
type Object struct {
	Index  int
	Flags  byte
	ActorID byte

	Kind      int32 // fld_2: actor type
	ZSort     int32 // fld_3: compositor sort key
	MouseMode int32 // fld_4
	Z         int32 // fld_5: live z, mutated by function scripts

	// GridX/GridY are valid when FlagHasTile is set. Owner is the
	// index of the controlling object when FlagFreeFloating is set,
	// replacing the source's packed pos|blk<<8 owner-index encoding
	// per the spec's "back-references through _objects[index]" note.
	GridX, GridY int
	Owner        int

	PixelX, PixelY int32

	SpriteID, SeqID, Frame int32

	// Storage is the per-instance byte array EBX-tagged VM references
	// resolve against when this object's scripts run.
	Storage []byte
}

// Footprint returns the on-screen rectangle this object currently
// occupies, for dirty-rect accumulation on removal. w/h are the
// current sprite frame's pixel dimensions.
func (o *Object) Footprint(w, h int) geom.Rect {
	return geom.Rect{
		X0: int(o.PixelX), Y0: int(o.PixelY),
		X1: int(o.PixelX) + w, Y1: int(o.PixelY) + h,
	}
}

// Pool is the indexed, reusable set of live object instances.
type Pool struct {
	objects []Object
}

// NewPool returns an empty object pool.
func NewPool() *Pool { return &Pool{} }

// Len returns the number of slots the pool has ever allocated,
// including dead ones kept for reuse.
func (p *Pool) Len() int { return len(p.objects) }

// At returns a pointer to the slot at index, or nil if out of range.
func (p *Pool) At(index int) *Object {
	if index < 0 || index >= len(p.objects) {
		return nil
	}
	return &p.objects[index]
}

// GetFreeObject returns a pointer to a reusable slot: the first dead
// one (FlagLive clear), or a freshly appended slot if none is free.
// The returned object's Index is stable for its lifetime.
func (p *Pool) GetFreeObject() *Object {
	for i := range p.objects {
		if p.objects[i].Flags&FlagLive == 0 {
			p.objects[i] = Object{Index: i, Owner: -1}
			return &p.objects[i]
		}
	}
	idx := len(p.objects)
	p.objects = append(p.objects, Object{Index: idx, Owner: -1})
	return &p.objects[idx]
}

// Restore replaces the pool's contents with objs, whose Index fields
// must already equal their position (as produced by a game-screen
// compaction pass).
func (p *Pool) Restore(objs []Object) {
	p.objects = make([]Object, len(objs))
	copy(p.objects, objs)
}

// RemoveObject clears the live bit, returning the slot to the free
// list without disturbing its index.
func (p *Pool) RemoveObject(index int) {
	if o := p.At(index); o != nil {
		o.Flags &^= FlagLive
	}
}

// DirtyMarker is satisfied by the compositor's dirty-rect accumulator.
type DirtyMarker interface {
	AddDirtyRect(r geom.Rect)
}

// RemoveObjectMarkDirty accumulates a dirty rect over the object's
// current footprint before freeing its slot.
func (p *Pool) RemoveObjectMarkDirty(index int, frameW, frameH int, dirty DirtyMarker) {
	o := p.At(index)
	if o == nil {
		return
	}
	dirty.AddDirtyRect(o.Footprint(frameW, frameH))
	p.RemoveObject(index)
}

// Subordinates returns every live object owned by index: its shadow
// and subtitle attachments, which die with their main object.
func (p *Pool) Subordinates(index int) []*Object {
	var out []*Object
	for i := range p.objects {
		o := &p.objects[i]
		if o.Flags&FlagLive != 0 && o.Flags&FlagFreeFloating != 0 && o.Owner == index {
			out = append(out, o)
		}
	}
	return out
}

// Each calls fn for every live object, in index order starting from
// the given index (wrapping around), matching the rule interpreter's
// "activeObject first" sweep order (spec §4.H).
func (p *Pool) Each(startIndex int, fn func(o *Object)) {
	n := len(p.objects)
	if n == 0 {
		return
	}
	start := startIndex
	if start < 0 || start >= n {
		start = 0
	}
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		o := &p.objects[idx]
		if o.Flags&FlagLive != 0 {
			fn(o)
		}
	}
}
