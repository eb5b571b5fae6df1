// Package saveload implements the engine's two persistence
// mechanisms (spec §4.L): in-memory game-screen snapshot/restore
// (storeToGameScreen/switchToGameScreen) and on-disk save-file
// read/write, scrambled through the loader's 0x7C-0x7E key-sequence
// resources.
package saveload

import "github.com/vsengine/vsengine/world"

// GameScreen is one slot's worth of saved world state: every grid
// cell plus a compacted snapshot of the live object pool, exactly the
// pair the original swaps into _states/_objects on a screen switch.
type GameScreen struct {
	Cells   []uint16
	Objects []world.Object
}

// Screens holds every game-screen slot an engine instance knows
// about, indexed by screen id.
type Screens struct {
	slots   map[int]GameScreen
	current int
}

// NewScreens returns an empty set with no screen currently loaded.
func NewScreens() *Screens {
	return &Screens{slots: make(map[int]GameScreen), current: -1}
}

// Current returns the id of the screen last switched to, or -1 if
// none has been switched to yet.
func (s *Screens) Current() int { return s.current }

// SetCurrent marks id as the active screen without storing or
// restoring anything, for the module-load path where the loader has
// already populated the live world directly and there is nothing
// queued to save.
func (s *Screens) SetCurrent(id int) { s.current = id }

// Store snapshots w's grid and object pool into slot id, compacting
// the object list the way storeToGameScreen does: a tile-resident
// main object followed immediately by every free-floating object it
// owns, then any orphaned free-floating object with no owner.
func (s *Screens) Store(id int, w *world.World) {
	s.slots[id] = GameScreen{
		Cells:   w.Grid.Snapshot(),
		Objects: compactObjects(w.Pool),
	}
}

// Switch stores the current screen (unless doNotStore) and loads id's
// saved state into w, decompacting its object list back into the
// pool in the same index order it was saved in (switchToGameScreen's
// "nobj->index != obj.index" invariant).
func (s *Screens) Switch(id int, w *world.World, doNotStore bool) {
	if s.current != -1 && !doNotStore {
		s.Store(s.current, w)
	}
	s.current = id
	gs, ok := s.slots[id]
	delete(s.slots, id)
	if !ok {
		w.Reset()
		return
	}
	w.Grid.Restore(gs.Cells)
	w.RestoreObjects(gs.Objects)
}

// compactObjects rebuilds the live object list in save order: for
// each tile-resident object (in original pool order), the object
// itself followed by every free-floating object it owns, then every
// ownerless free-floating object. Indices in the returned slice are
// their position; Owner is rewritten to the new index of the owning
// object.
func compactObjects(pool *world.Pool) []world.Object {
	var out []world.Object
	for i := 0; i < pool.Len(); i++ {
		o := pool.At(i)
		if o == nil || o.Flags&world.FlagLive == 0 || o.Flags&world.FlagHasTile == 0 {
			continue
		}
		newIdx := len(out)
		cp := *o
		cp.Index = newIdx
		out = append(out, cp)

		for _, sub := range pool.Subordinates(o.Index) {
			subCp := *sub
			subCp.Index = len(out)
			subCp.Owner = newIdx
			out = append(out, subCp)
		}
	}
	for i := 0; i < pool.Len(); i++ {
		o := pool.At(i)
		if o == nil || o.Flags&world.FlagLive == 0 || o.Flags&world.FlagHasTile != 0 {
			continue
		}
		if o.Flags&world.FlagFreeFloating != 0 && o.Owner == -1 {
			cp := *o
			cp.Index = len(out)
			out = append(out, cp)
		}
	}
	return out
}
