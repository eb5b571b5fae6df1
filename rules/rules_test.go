package rules

import (
	"testing"

	"github.com/vsengine/vsengine/world"
)

// TestPRNGDeterminism exercises spec §8 scenario 4 and property 7:
// rndSeed(1) followed by rnd() returns seed*mul+add, unadvanced.
func TestPRNGDeterminism(t *testing.T) {
	r := NewRand(1)
	want := uint32(1*lcgMul + lcgAdd)
	if got := r.Next(); got != want {
		t.Fatalf("Next() after Seed(1) = %#x, want %#x", got, want)
	}
}

// TestPreprocessDataInverse exercises spec §8's round-trip property:
// preprocessData(kInverse[op], preprocessData(op, e)) == e, for every
// op and every possible (x, y, t).
func TestPreprocessDataInverse(t *testing.T) {
	for op := 0; op < 8; op++ {
		for x := int8(-2); x <= 2; x++ {
			for y := int8(-2); y <= 2; y++ {
				for dir := byte(0); dir < 16; dir++ {
					orig := Entry{Value: 1, Flags: 0, T: dir, X: x, Y: y}
					e := orig
					preprocessData(op, &e)
					preprocessData(kInverse[op], &e)
					if e != orig {
						t.Fatalf("op %d not inverted by %d: got %+v, want %+v", op, kInverse[op], e, orig)
					}
				}
			}
		}
	}
}

type fakeFamily struct{}

func (fakeFamily) Member(familyIdx, actorID byte) bool { return false }
func (fakeFamily) Direction(actorID byte) byte         { return 0 }

type noopHooks struct{}

func (noopHooks) OnCreate(obj *world.Object, x, y int, dir byte) {}
func (noopHooks) OnDelete(obj *world.Object)                     {}

func newTestInterpreter() (*Interpreter, *world.World) {
	w := world.New(8, 8, noopHooks{}, nil)
	in := &Interpreter{
		World:  w,
		Rand:   NewRand(1),
		Exec:   func(addr int32) int32 { return 1 },
		Family: fakeFamily{},
	}
	return in, w
}

// TestNeighborEndGroup exercises the "00 end group" control flow: a
// non-matching entry with outcome 00 simply moves to the next group
// rather than rejecting the rule.
func TestNeighborEndGroup(t *testing.T) {
	in, w := newTestInterpreter()
	w.SetCell(1, 1, 9, 0)
	obj := w.ActiveObject
	if obj == nil {
		obj = w.Pool.At(0)
	}

	a := &Actions{
		Neighbors: []TypeEntry{
			{Entries: []Entry{{Value: 1, Flags: 0b0000, X: 0, Y: 0, T: 0xF}}},
		},
	}
	a.Flags = HasNeighbors
	a.ConditionAddress, a.FunctionAddress = NoScript, NoScript

	obj.GridX, obj.GridY = 1, 1
	if got := in.DoActions(obj, a, false); got != RuleExecuted {
		t.Fatalf("DoActions = %d, want RuleExecuted (end group, not reject)", got)
	}
}

// TestNeighborReject exercises the "01 reject" control flow.
func TestNeighborReject(t *testing.T) {
	in, w := newTestInterpreter()
	w.SetCell(1, 1, 9, 0)
	obj := w.Pool.At(0)
	obj.GridX, obj.GridY = 1, 1

	a := &Actions{Flags: HasNeighbors, ConditionAddress: NoScript, FunctionAddress: NoScript}
	a.Neighbors = []TypeEntry{
		{Entries: []Entry{{Value: 9, Flags: 0b0100, X: 0, Y: 0, T: 0xF}}},
	}
	if got := in.DoActions(obj, a, false); got != RuleRejected {
		t.Fatalf("DoActions = %d, want RuleRejected", got)
	}
}

// TestNeighborSkipRemainder exercises the "10 fast-skip remainder"
// control flow.
func TestNeighborSkipRemainder(t *testing.T) {
	in, w := newTestInterpreter()
	w.SetCell(1, 1, 9, 0)
	obj := w.Pool.At(0)
	obj.GridX, obj.GridY = 1, 1

	a := &Actions{Flags: HasNeighbors, ConditionAddress: NoScript, FunctionAddress: NoScript}
	a.Neighbors = []TypeEntry{
		{Entries: []Entry{{Value: 9, Flags: 0b1000, X: 0, Y: 0, T: 0xF}}},
	}
	if got := in.DoActions(obj, a, false); got != RuleSkipRemain {
		t.Fatalf("DoActions = %d, want RuleSkipRemain", got)
	}
}

// TestNeighborCapture exercises the "11 capture" control flow and its
// use by a phase-5 spawn group with T>=4.
func TestNeighborCapture(t *testing.T) {
	in, w := newTestInterpreter()
	w.SetCell(1, 1, 9, 0)
	obj := w.Pool.At(0)
	obj.GridX, obj.GridY = 1, 1

	a := &Actions{Flags: HasNeighbors | HasSpawn, ConditionAddress: NoScript, FunctionAddress: NoScript}
	a.Neighbors = []TypeEntry{
		{Entries: []Entry{{Value: 9, Flags: 0b1100, X: 0, Y: 0, T: 0xF}}},
	}
	a.Spawn = []TypeEntry{
		{T: 4, Entries: []Entry{{Value: 3, X: 0, Y: 0, T: 0}}},
	}
	if got := in.DoActions(obj, a, false); got != RuleExecuted {
		t.Fatalf("DoActions = %d, want RuleExecuted", got)
	}
	if w.Grid.ActorAt(1, 1) != 3 {
		t.Fatalf("spawn from captured point did not fire: actor = %d, want 3", w.Grid.ActorAt(1, 1))
	}
}

// TestEvalMoveRelocatesInPlace exercises spec §4.H phase 3: moving an
// object must update its existing Object's GridX/GridY and the grid's
// two cell words in place, never reallocate it (spec.md:173's pool
// index-stability invariant) or free objects it owns (spec.md:96's
// onDelete/subordinate-freeing is for real removal events, not routine
// movement), analogous to world_test.go's TestSubordinatesFreedWithOwner.
func TestEvalMoveRelocatesInPlace(t *testing.T) {
	in, w := newTestInterpreter()
	w.SetCell(2, 2, 7, 0)
	obj := w.Pool.At(0)
	wantIndex := obj.Index

	shadow := w.Pool.GetFreeObject()
	shadow.Flags = world.FlagLive | world.FlagFreeFloating | world.FlagDrawable
	shadow.Owner = obj.Index

	a := &Actions{Flags: HasMove, ConditionAddress: NoScript, FunctionAddress: NoScript}
	a.Move = Entry{X: 1, Y: 0, T: world.OrientE}

	if got := in.DoActions(obj, a, false); got != RuleExecuted {
		t.Fatalf("DoActions = %d, want RuleExecuted", got)
	}

	if obj.Index != wantIndex {
		t.Fatalf("move reassigned pool index: got %d, want %d", obj.Index, wantIndex)
	}
	if obj.GridX != 3 || obj.GridY != 2 {
		t.Fatalf("obj did not relocate: GridX/GridY = %d,%d, want 3,2", obj.GridX, obj.GridY)
	}
	if w.Grid.ActorAt(2, 2) != world.EmptyActorID {
		t.Fatalf("old cell still occupied: actor = %d", w.Grid.ActorAt(2, 2))
	}
	if w.Grid.ActorAt(3, 2) != 7 {
		t.Fatalf("new cell not written: actor = %d, want 7", w.Grid.ActorAt(3, 2))
	}
	if shadow.Flags&world.FlagLive == 0 {
		t.Fatalf("subordinate was freed by a routine move")
	}
}

// TestRuleFallthrough is spec §8 E2E scenario 3: a single neighbor
// entry with flags=0 matching its own configured "want" (0) must not
// reject, and must fall through to later phases.
func TestRuleFallthrough(t *testing.T) {
	in, w := newTestInterpreter()
	w.SetCell(2, 2, 5, 0xF0>>4)
	obj := w.Pool.At(0)
	obj.GridX, obj.GridY = 2, 2

	a := &Actions{Flags: HasNeighbors, ConditionAddress: NoScript, FunctionAddress: NoScript}
	a.Neighbors = []TypeEntry{
		{Entries: []Entry{{Value: 5, Flags: 0b0000, X: 0, Y: 0, T: 0xF}}},
	}
	if got := in.DoActions(obj, a, false); got != RuleExecuted {
		t.Fatalf("DoActions = %d, want RuleExecuted (fallthrough)", got)
	}
}
