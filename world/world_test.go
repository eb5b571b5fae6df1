package world

import "testing"

func TestCeilPow2(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 9: 16, 256: 256, 300: 256}
	for in, want := range cases {
		if got := ceilPow2(in); got != want {
			t.Fatalf("ceilPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestGridToroidalWrap(t *testing.T) {
	g := NewGrid(16, 16)
	g.Set(0, 0, packCell(5, OrientN, 0))
	if got := g.ActorAt(16, 16); got != 5 {
		t.Fatalf("ActorAt(16,16) = %d, want 5 (toroidal wrap)", got)
	}
	if got := g.ActorAt(-16, -16); got != 5 {
		t.Fatalf("ActorAt(-16,-16) = %d, want 5", got)
	}
}

type recordingHooks struct {
	created []int
	deleted []int
}

func (h *recordingHooks) OnCreate(obj *Object, x, y int, dir byte) { h.created = append(h.created, obj.Index) }
func (h *recordingHooks) OnDelete(obj *Object)                     { h.deleted = append(h.deleted, obj.Index) }

// TestSetCellInvariant exercises spec §8 invariant 1: grid[x,y].low ==
// actorIdOf(the has-tile object owning this cell).
func TestSetCellInvariant(t *testing.T) {
	hooks := &recordingHooks{}
	w := New(8, 8, hooks, nil)

	w.SetCell(3, 4, 7, OrientE)
	obj := w.findResident(3, 4)
	if obj == nil {
		t.Fatalf("no resident object at (3,4)")
	}
	if w.Grid.ActorAt(3, 4) != obj.ActorID {
		t.Fatalf("grid actor %d != resident actor %d", w.Grid.ActorAt(3, 4), obj.ActorID)
	}
	if len(hooks.created) != 1 {
		t.Fatalf("OnCreate called %d times, want 1", len(hooks.created))
	}

	w.SetCell(3, 4, EmptyActorID, 0)
	if w.Grid.ActorAt(3, 4) != EmptyActorID {
		t.Fatalf("cell not cleared after delete")
	}
	if len(hooks.deleted) != 1 {
		t.Fatalf("OnDelete called %d times, want 1", len(hooks.deleted))
	}
}

// TestPoolIndexStability exercises spec §8 invariant 2: pool indices
// never move across add/remove.
func TestPoolIndexStability(t *testing.T) {
	p := NewPool()
	a := p.GetFreeObject()
	a.Flags = FlagLive
	b := p.GetFreeObject()
	b.Flags = FlagLive
	aIdx, bIdx := a.Index, b.Index
	if aIdx == bIdx {
		t.Fatalf("two live objects share index %d", aIdx)
	}

	p.RemoveObject(aIdx)
	c := p.GetFreeObject() // should reuse a's slot
	if c.Index != aIdx {
		t.Fatalf("GetFreeObject reused index %d, want reuse of freed slot %d", c.Index, aIdx)
	}
	if p.At(bIdx).Index != bIdx {
		t.Fatalf("unrelated live object's index moved")
	}
}

func TestSubordinatesFreedWithOwner(t *testing.T) {
	hooks := &recordingHooks{}
	w := New(8, 8, hooks, nil)
	w.SetCell(0, 0, 1, 0)
	main := w.findResident(0, 0)

	shadow := w.Pool.GetFreeObject()
	shadow.Flags = FlagLive | FlagFreeFloating | FlagDrawable
	shadow.Owner = main.Index

	w.SetCell(0, 0, EmptyActorID, 0)

	if shadow.Flags&FlagLive != 0 {
		t.Fatalf("shadow object survived its owner's deletion")
	}
}

// TestMoveObjectInPlace exercises spec §8 invariant 2 under movement:
// MoveObject must update the same Object's position/index in place,
// never firing OnCreate/OnDelete on the mover itself or freeing its
// subordinates.
func TestMoveObjectInPlace(t *testing.T) {
	hooks := &recordingHooks{}
	w := New(8, 8, hooks, nil)
	w.SetCell(2, 2, 7, OrientN)
	obj := w.findResident(2, 2)
	wantIndex := obj.Index

	shadow := w.Pool.GetFreeObject()
	shadow.Flags = FlagLive | FlagFreeFloating | FlagDrawable
	shadow.Owner = obj.Index

	hooks.created, hooks.deleted = nil, nil
	w.MoveObject(obj, 3, 2, OrientE)

	if obj.Index != wantIndex {
		t.Fatalf("MoveObject reassigned index: got %d, want %d", obj.Index, wantIndex)
	}
	if obj.GridX != 3 || obj.GridY != 2 {
		t.Fatalf("obj did not relocate: got %d,%d, want 3,2", obj.GridX, obj.GridY)
	}
	if w.Grid.ActorAt(2, 2) != EmptyActorID {
		t.Fatalf("old cell still occupied: actor = %d", w.Grid.ActorAt(2, 2))
	}
	if w.Grid.ActorAt(3, 2) != 7 || w.Grid.OrientAt(3, 2) != OrientE {
		t.Fatalf("new cell wrong: actor=%d orient=%d", w.Grid.ActorAt(3, 2), w.Grid.OrientAt(3, 2))
	}
	if len(hooks.created) != 0 || len(hooks.deleted) != 0 {
		t.Fatalf("MoveObject fired create/delete on the mover: created=%v deleted=%v", hooks.created, hooks.deleted)
	}
	if shadow.Flags&FlagLive == 0 {
		t.Fatalf("subordinate was freed by a routine move")
	}
}

// TestMoveObjectDestroysDestinationResident exercises spec.md:108's
// "moving past a non-empty cell triggers that cell's onDelete": the
// mover itself survives, but whatever else occupied the destination
// does not.
func TestMoveObjectDestroysDestinationResident(t *testing.T) {
	hooks := &recordingHooks{}
	w := New(8, 8, hooks, nil)
	w.SetCell(2, 2, 7, 0)
	mover := w.findResident(2, 2)
	w.SetCell(3, 2, 9, 0)
	victim := w.findResident(3, 2)

	hooks.created, hooks.deleted = nil, nil
	w.MoveObject(mover, 3, 2, OrientE)

	if len(hooks.deleted) != 1 || hooks.deleted[0] != victim.Index {
		t.Fatalf("OnDelete calls = %v, want exactly [%d]", hooks.deleted, victim.Index)
	}
	if w.Grid.ActorAt(3, 2) != 7 {
		t.Fatalf("destination actor = %d, want 7 (mover)", w.Grid.ActorAt(3, 2))
	}
}
