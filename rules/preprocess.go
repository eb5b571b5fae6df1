package rules

// Entry is one neighbor-match / move / spawn descriptor: a value to
// compare or spawn, a 4-bit flags field, a 4-bit direction nibble T,
// and a grid offset. It is the rule DSL's only leaf shape.
type Entry struct {
	Value byte
	Flags byte
	T     byte
	X, Y  int8
}

// preprocess table ids 0..7: eight geometric transforms of (X,Y,T)
// that form the symmetry group of the square (identity, three
// rotations, and four reflections). T is a 4-bit one-hot-or-combined
// direction nibble; each table below is a full 16-entry relabeling,
// not a per-bit vector rotation, because the source pre-computed it
// for every nibble value including multi-bit combinations.
var dirTable = [8][16]byte{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, // 0: identity
	{0, 2, 4, 6, 8, 10, 12, 14, 1, 3, 5, 7, 9, 11, 13, 15}, // 1: rotate
	{0, 4, 8, 12, 1, 5, 9, 13, 2, 6, 10, 14, 3, 7, 11, 15}, // 2: rotate^2
	{0, 8, 1, 9, 2, 10, 3, 11, 4, 12, 5, 13, 6, 14, 7, 15}, // 3: rotate^3
	{0, 1, 8, 9, 4, 5, 12, 13, 2, 3, 10, 11, 6, 7, 14, 15}, // 4: reflect
	{0, 2, 1, 3, 8, 10, 9, 11, 4, 6, 5, 7, 12, 14, 13, 15}, // 5: reflect
	{0, 4, 2, 6, 1, 5, 3, 7, 8, 12, 10, 14, 9, 13, 11, 15}, // 6: reflect
	{0, 8, 4, 12, 2, 10, 6, 14, 1, 9, 5, 13, 3, 11, 7, 15}, // 7: reflect
}

// kInverse maps each of the 8 ops to its group inverse: the rotation
// subgroup {0,1,2,3} inverts cyclically, the four reflections (4..7)
// are each their own inverse.
var kInverse = [8]int{0, 3, 2, 1, 4, 5, 6, 7}

// preprocessData applies transform id to e in place, matching the
// source's GamosEngine::preprocessData. Ids 10, 12, 16 alias ops
// 1, 2, 3 (used only by the "family re-key" path in neighbor
// matching); every other out-of-range id is a no-op, matching the
// reference's default case.
func preprocessData(id int, e *Entry) {
	switch id {
	case 1, 10:
		e.X, e.Y = -e.Y, e.X
		e.T = dirTable[1][e.T]
	case 2, 12:
		e.X, e.Y = -e.X, -e.Y
		e.T = dirTable[2][e.T]
	case 3, 16:
		e.X, e.Y = e.Y, -e.X
		e.T = dirTable[3][e.T]
	case 4:
		e.X = -e.X
		e.T = dirTable[4][e.T]
	case 5:
		e.X, e.Y = -e.Y, -e.X
		e.T = dirTable[5][e.T]
	case 6:
		e.Y = -e.Y
		e.T = dirTable[6][e.T]
	case 7:
		e.X, e.Y = e.Y, e.X
		e.T = dirTable[7][e.T]
	default:
		// id 0 and every unassigned id: identity.
	}
}

// preprocessDataB1 turns a 4-bit desired-direction *set* into a
// single concrete direction, rolled uniformly among the bits that are
// set. It always consumes exactly one rndRange16 call when the set
// has more than one member, matching the reference tables.
func preprocessDataB1(id byte, e *Entry, rnd *Rand) {
	switch id {
	case 0, 1, 2, 4, 8:
		// zero or one bit set: nothing to choose between.
	case 3:
		e.T = [2]byte{1, 2}[rnd.RndRange16(2)]
	case 5:
		e.T = [2]byte{1, 4}[rnd.RndRange16(2)]
	case 6:
		e.T = [2]byte{2, 4}[rnd.RndRange16(2)]
	case 7:
		e.T = [3]byte{1, 2, 4}[rnd.RndRange16(3)]
	case 9:
		e.T = [2]byte{1, 8}[rnd.RndRange16(2)]
	case 0xa:
		e.T = [2]byte{2, 8}[rnd.RndRange16(2)]
	case 0xb:
		e.T = [3]byte{1, 2, 8}[rnd.RndRange16(3)]
	case 0xc:
		e.T = [2]byte{4, 8}[rnd.RndRange16(2)]
	case 0xd:
		e.T = [3]byte{1, 4, 8}[rnd.RndRange16(3)]
	case 0xe:
		e.T = [3]byte{2, 4, 8}[rnd.RndRange16(3)]
	case 0xf:
		e.T = [4]byte{1, 2, 4, 8}[rnd.RndRange16(4)]
	}
}
