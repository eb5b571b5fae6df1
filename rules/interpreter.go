// Package rules implements the behavior-rule language: the random
// number generator, the Actions parser, and the five-phase doActions
// evaluator that drives the tile/object state machine (spec §4.H).
package rules

import "github.com/vsengine/vsengine/world"

// Result codes returned by DoActions to the caller that walks an
// object's rule list (spec "10 fast-skip the remainder of the action
// list").
const (
	RuleRejected   = 0 // condition failed, or a neighbor match forced rejection
	RuleExecuted   = 1 // the rule ran to completion (possibly a no-op move/spawn)
	RuleSkipRemain = 2 // stop walking this object's remaining rules this tick
)

// Executor runs one bytecode entrypoint and returns its EAX-equivalent
// result. addr == NoScript must never be passed; callers check that
// first, matching the source's "missing scripts are silently skipped".
type Executor func(addr int32) int32

// FamilyLookup resolves actor-family membership and the per-actor
// direction permutation used by family-mode neighbor matches (spec
// §4.H "value is a family index"). The loader's 0x38/0x39/0x3A tables
// are the real backing store; kept as an interface here to avoid a
// dependency on the loader package.
type FamilyLookup interface {
	// Member reports whether actorID belongs to family familyIdx.
	Member(familyIdx, actorID byte) bool
	// Direction returns the per-actor direction-nibble permutation id
	// (0 means "no rekey"), applied via preprocessData(id+8, e).
	Direction(actorID byte) byte
}

// Interpreter evaluates Actions records against a world, sharing one
// PRNG and one preprocess transform id across a whole rule walk (spec
// §9 "Globals → state object" collects exactly these into one value).
type Interpreter struct {
	World  *world.World
	Rand   *Rand
	Exec   Executor
	Family FamilyLookup

	// PreprocDataID is the active orientation-canonicalization
	// transform (spec: "rotates the object's 4-direction bitmap into
	// canonical form by the object's current orientation").
	PreprocDataID int
}

// point is one grid offset captured by a phase-2 "11 capture" match,
// later drawn from by a phase-5 group with T>=4 (spec §4.H phase 5
// ">=4" and §4.I "random-by-cell picker").
type point struct{ X, Y int8 }

// DoActions runs the five optional phases of a in order against obj.
// absolute selects whether neighbor/move offsets are grid-relative to
// obj (false) or raw grid coordinates (true, used by startup rules).
func (in *Interpreter) DoActions(obj *world.Object, a *Actions, absolute bool) int {
	if a.Flags&HasCondition != 0 && a.ConditionAddress != NoScript {
		if in.Exec(a.ConditionAddress) == 0 {
			return RuleRejected
		}
	}

	var captured []point
	if a.Flags&HasNeighbors != 0 {
		switch in.evalNeighbors(obj, a, absolute, &captured) {
		case RuleRejected:
			return RuleRejected
		case RuleSkipRemain:
			return RuleSkipRemain
		}
	}

	if a.Flags&HasMove != 0 {
		in.evalMove(obj, a)
	}

	if a.Flags&HasFunction != 0 && a.FunctionAddress != NoScript {
		prevZ := obj.Z
		in.Exec(a.FunctionAddress)
		if obj.Z != prevZ {
			in.markAttachedShadowDirty(obj)
		}
	}

	if a.Flags&HasSpawn != 0 {
		in.evalSpawn(obj, a, captured)
	}

	return RuleExecuted
}

// evalNeighbors walks each group's entries in DSL order, returning
// RuleRejected / RuleSkipRemain when a match's outcome field demands
// it, or RuleExecuted to continue to the move phase.
func (in *Interpreter) evalNeighbors(obj *world.Object, a *Actions, absolute bool, captured *[]point) int {
groupLoop:
	for _, group := range a.Neighbors {
		for _, orig := range group.Entries {
			e := orig
			preprocessData(in.PreprocDataID, &e)

			var cx, cy int
			if absolute {
				cx, cy = int(e.X), int(e.Y)
			} else {
				cx, cy = obj.GridX+int(e.X), obj.GridY+int(e.Y)
			}
			cell := in.World.Grid.Get(cx, cy)
			lb := byte(cell)
			orient := byte(cell >> 12)

			matched := in.matchNeighbor(&e, lb, orient)
			want := e.Flags&2 != 0

			if matched != want {
				continue
			}
			switch e.Flags & 0xc {
			case 0x0:
				continue groupLoop
			case 0x4:
				return RuleRejected
			case 0x8:
				return RuleSkipRemain
			case 0xc:
				*captured = append(*captured, point{e.X, e.Y})
			}
		}
	}
	return RuleExecuted
}

// matchNeighbor implements the direct-value and family-index match
// modes described in spec §4.H phase 2. orient is the target cell's
// orientation nibble (spec: "cell-orient nibble shares at least one
// bit with t").
func (in *Interpreter) matchNeighbor(e *Entry, lb, orient byte) bool {
	if e.Flags&1 == 0 {
		return e.Value == lb && orient&e.T != 0
	}
	if lb == world.EmptyActorID || in.Family == nil {
		return false
	}
	if !in.Family.Member(e.Value, lb) {
		return false
	}
	if rekey := in.Family.Direction(lb); rekey != 0 {
		preprocessData(int(rekey)+8, e)
	}
	return orient&e.T != 0
}

// evalMove implements spec §4.H phase 3: canonicalize the move
// descriptor, resolve its direction set to one concrete direction,
// then step the active object one cell, wrapping toroidally.
func (in *Interpreter) evalMove(obj *world.Object, a *Actions) {
	e := a.Move
	preprocessData(in.PreprocDataID, &e)
	preprocessDataB1(e.T, &e, in.Rand)
	in.Rand.Next() // every rule entry consumes one rnd() (spec §9)

	nx := obj.GridX + int(e.X)
	ny := obj.GridY + int(e.Y)
	in.World.MoveObject(obj, nx, ny, e.T)
}

// evalSpawn implements spec §4.H phase 5's five randomizer policies.
func (in *Interpreter) evalSpawn(obj *world.Object, a *Actions, captured []point) {
	for _, group := range a.Spawn {
		switch {
		case group.T == 0:
			in.spawnEndBucket(obj, a)
		case group.T == 1:
			if n := len(group.Entries); n > 0 {
				num := int(in.Rand.RndRange16(uint32(n)))
				for i := 0; i < num; i++ {
					in.spawnOne(obj, group.Entries[i])
				}
			}
		case group.T == 2:
			if n := len(group.Entries); n > 0 {
				idx := int(in.Rand.RndRange16(uint32(n)))
				in.spawnOne(obj, group.Entries[idx])
			}
		case group.T == 3:
			for _, e := range group.Entries {
				if in.Rand.RndRange16(2) != 0 {
					in.spawnOne(obj, e)
				}
			}
		default:
			in.spawnFromCaptured(obj, group, captured)
		}
	}
}

func (in *Interpreter) spawnEndBucket(obj *world.Object, a *Actions) {
	n := int(a.NumEndBuckets)
	if n == 0 {
		return
	}
	idx := int(in.Rand.RndRange16(uint32(n)))
	for _, e := range a.SpawnEndBuckets[idx] {
		in.spawnOne(obj, e)
	}
}

// spawnFromCaptured draws a weighted-random point from phase 2's
// capture buffer and runs whichever group entry has a matching
// offset, matching spec §4.H phase 5 ">=4".
func (in *Interpreter) spawnFromCaptured(obj *world.Object, group TypeEntry, captured []point) {
	if len(captured) == 0 {
		return
	}
	idx := int(in.Rand.RndRange16(uint32(len(captured))))
	pt := captured[idx]
	for _, e := range group.Entries {
		if e.X == pt.X && e.Y == pt.Y {
			in.spawnOne(obj, e)
			return
		}
	}
}

// spawnOne writes a new actor at the offset described by e, relative
// to obj's current grid position.
func (in *Interpreter) spawnOne(obj *world.Object, e Entry) {
	x := obj.GridX + int(e.X)
	y := obj.GridY + int(e.Y)
	in.World.SetCell(x, y, e.Value, e.T)
}

// markAttachedShadowDirty marks obj's owned free-floating shadow (if
// any) for recomposition after the function phase moved obj in z
// (spec §4.H phase 4).
func (in *Interpreter) markAttachedShadowDirty(obj *world.Object) {
	for _, sub := range in.World.Pool.Subordinates(obj.Index) {
		sub.Flags |= world.FlagInMotion
	}
}
