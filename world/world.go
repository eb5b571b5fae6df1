package world

// Hooks lets a World run an actor's lifecycle scripts without the
// world package needing to know anything about bytecode or the rule
// interpreter that owns those scripts.
type Hooks interface {
	// OnCreate runs when a cell transitions from empty to actorID,
	// after the new object has been allocated and placed.
	OnCreate(obj *Object, x, y int, dir byte)
	// OnDelete runs when a has-tile object's cell is overwritten with
	// something else (including EmptyActorID), before it is freed.
	OnDelete(obj *Object)
}

// ActionLookup resolves the behavior-class byte for an actor id; the
// loader's ObjectAction table is the real backing store (package
// rules), kept decoupled here to avoid a dependency cycle.
type ActionLookup interface {
	BehaviorClass(actorID byte) int
}

// World combines the tile grid and the object pool, and implements
// the cell-write lifecycle (spec §4.F): writing an actor id allocates
// or frees objects and runs their create/delete scripts.
type World struct {
	Grid  *Grid
	Pool  *Pool
	Hooks Hooks

	// ActiveObject is the unique live behavior-class-3 object, or nil
	// if none has been created yet (spec glossary "Active object").
	ActiveObject *Object

	lookup ActionLookup
}

// New returns a World over a grid sized w x h, initially all empty.
func New(w, h int, hooks Hooks, lookup ActionLookup) *World {
	g := NewGrid(w, h)
	g.Reset()
	return &World{Grid: g, Pool: NewPool(), Hooks: hooks, lookup: lookup}
}

// SetCell writes actorID/orient at (x, y), running onCreate/onDelete
// scripts and (de)allocating the owning object as needed.
func (w *World) SetCell(x, y int, actorID, orient byte) {
	prevActor := w.Grid.ActorAt(x, y)
	prevStatus := w.Grid.StatusAt(x, y)

	if prevActor != EmptyActorID && prevActor != actorID {
		w.deleteResident(x, y)
	}

	w.Grid.Set(x, y, packCell(actorID, orient, prevStatus))

	if actorID == EmptyActorID || actorID == prevActor {
		return
	}

	obj := w.Pool.GetFreeObject()
	obj.Flags = FlagLive | FlagHasTile | FlagDrawable
	obj.ActorID = actorID
	obj.GridX, obj.GridY = x, y

	if w.lookup != nil && w.lookup.BehaviorClass(actorID) == BehaviorPlayer {
		w.ActiveObject = obj
	}

	if w.Hooks != nil {
		w.Hooks.OnCreate(obj, x, y, orient)
	}
}

// MoveObject relocates obj to (x, y) in place, updating the grid's
// orientation nibble at the destination without reallocating obj or
// running its own onCreate/onDelete (spec §4.H phase 3's "advance the
// active object's position... updating both its cell and its
// orientation-nibble cell word" is an in-place update of the same
// object, not a delete-then-recreate). If the destination cell
// already holds a different, non-empty resident, that resident (and
// its subordinates) is deleted first, matching spec's "moving past a
// non-empty cell triggers that cell's onDelete" — but obj itself never
// goes through deleteResident/SetCell's allocation path.
func (w *World) MoveObject(obj *Object, x, y int, orient byte) {
	oldX, oldY := obj.GridX, obj.GridY
	if oldX == x && oldY == y {
		status := w.Grid.StatusAt(x, y)
		w.Grid.Set(x, y, packCell(obj.ActorID, orient, status))
		return
	}

	destActor := w.Grid.ActorAt(x, y)
	if destActor != EmptyActorID && destActor != obj.ActorID {
		w.deleteResident(x, y)
	}

	oldStatus := w.Grid.StatusAt(oldX, oldY)
	w.Grid.Set(oldX, oldY, packCell(EmptyActorID, 0, oldStatus))

	destStatus := w.Grid.StatusAt(x, y)
	w.Grid.Set(x, y, packCell(obj.ActorID, orient, destStatus))

	obj.GridX, obj.GridY = x, y
}

// deleteResident runs the current has-tile occupant's onDelete script
// and frees it along with every subordinate object it owns.
func (w *World) deleteResident(x, y int) {
	resident := w.findResident(x, y)
	if resident == nil {
		return
	}
	if w.Hooks != nil {
		w.Hooks.OnDelete(resident)
	}
	if w.ActiveObject == resident {
		w.ActiveObject = nil
	}
	for _, sub := range w.Pool.Subordinates(resident.Index) {
		if w.Hooks != nil {
			w.Hooks.OnDelete(sub)
		}
		w.Pool.RemoveObject(sub.Index)
	}
	w.Pool.RemoveObject(resident.Index)
}

func (w *World) findResident(x, y int) *Object {
	for i := range w.Pool.objects {
		o := &w.Pool.objects[i]
		if o.Flags&FlagLive != 0 && o.Flags&FlagHasTile != 0 && o.GridX == x && o.GridY == y {
			return o
		}
	}
	return nil
}

// RestoreObjects replaces the pool's contents and recomputes
// ActiveObject, used after a saveload game-screen switch decompacts a
// saved object list back into the pool.
func (w *World) RestoreObjects(objs []Object) {
	w.Pool.Restore(objs)
	w.ActiveObject = nil
	for i := range w.Pool.objects {
		o := &w.Pool.objects[i]
		if o.Flags&FlagLive != 0 && w.lookup != nil && w.lookup.BehaviorClass(o.ActorID) == BehaviorPlayer {
			w.ActiveObject = o
		}
	}
}

// Reset clears the grid and pool, used at the start of every module
// load (spec §3 "Lifecycle").
func (w *World) Reset() {
	w.Grid.Reset()
	w.Pool.objects = nil
	w.ActiveObject = nil
}
