// Package pathing implements the 4-neighborhood flood-fill used by
// cursor-driven motion commands (spec §4.I).
package pathing

// Label values painted into the flood-fill scratch grid: 0 marks an
// unvisited free cell, 2 the click target, 3 a blocked cell. The
// origin is seeded with 6 and the wavefront then rotates through
// 6 -> 4 -> 5 -> 6 one ring at a time, so a cell's label identifies
// which ring of the fill first reached it.
const (
	labelFree    byte = 0
	labelTarget  byte = 2
	labelBlocked byte = 3
	labelOrigin  byte = 6
)

// Octant directions, indexed 0..7 starting at east and proceeding
// clockwise, matching the spec's "octant indices" result encoding.
const (
	DirE = iota
	DirSE
	DirS
	DirSW
	DirW
	DirNW
	DirN
	DirNE
	DirNone = -1
)

// Blocked reports whether the cell at (x, y) stops the wavefront.
// Supplied by the caller so this package never needs to know about
// actor semantics.
type Blocked func(x, y int) bool

// Grid is the minimal toroidal-grid surface pathing needs: dimensions
// and wraparound, without depending on package world's full Grid type.
type Grid struct {
	W, H int
}

func (g Grid) wrap(x, y int) (int, int) {
	x %= g.W
	if x < 0 {
		x += g.W
	}
	y %= g.H
	if y < 0 {
		y += g.H
	}
	return x, y
}

type delta struct{ dx, dy int }

var neighbors4 = [4]delta{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

var nextLabel = map[byte]byte{labelOrigin: 4, 4: 5, 5: labelOrigin}

// FindDirection runs the flood-fill from (fromX, fromY) to (toX, toY)
// and returns the octant pair {primary direction, diagonal hint} for
// the first step to take, or {DirNone, DirNone} if no path exists.
func FindDirection(g Grid, isBlocked Blocked, fromX, fromY, toX, toY int) (primary, diagonal int) {
	fromX, fromY = g.wrap(fromX, fromY)
	toX, toY = g.wrap(toX, toY)
	if fromX == toX && fromY == toY {
		return DirNone, DirNone
	}

	labels := make([][]byte, g.H)
	cameFrom := make([][]delta, g.H)
	for y := range labels {
		labels[y] = make([]byte, g.W)
		cameFrom[y] = make([]delta, g.W)
		for x := range labels[y] {
			if isBlocked(x, y) {
				labels[y][x] = labelBlocked
			}
		}
	}
	labels[toY][toX] = labelTarget
	labels[fromY][fromX] = labelOrigin

	type cell struct{ x, y int }
	frontier := []cell{{fromX, fromY}}
	ring := labelOrigin
	found := false

	for len(frontier) > 0 && !found {
		next := nextLabel[ring]
		var newFrontier []cell
		for _, c := range frontier {
			for _, d := range neighbors4 {
				nx, ny := g.wrap(c.x+d.dx, c.y+d.dy)
				switch labels[ny][nx] {
				case labelFree:
					labels[ny][nx] = next
					cameFrom[ny][nx] = delta{-d.dx, -d.dy}
					newFrontier = append(newFrontier, cell{nx, ny})
				case labelTarget:
					cameFrom[ny][nx] = delta{-d.dx, -d.dy}
					found = true
				}
			}
		}
		frontier = newFrontier
		ring = next
	}
	if !found {
		return DirNone, DirNone
	}

	// Walk the recorded steps back from the target to the origin's
	// immediate neighbor; that neighbor's offset from fromX,fromY is
	// the first step to take.
	cx, cy := toX, toY
	var first delta
	for {
		d := cameFrom[cy][cx]
		px, py := g.wrap(cx+d.dx, cy+d.dy)
		if px == fromX && py == fromY {
			first = delta{-d.dx, -d.dy}
			break
		}
		cx, cy = px, py
	}
	return octantOf(first.dx, first.dy)
}

// octantOf maps a unit step (dx, dy) to its octant pair. The 4-way
// flood-fill only ever produces axis-aligned steps, so diagonal is
// always DirNone here; it is carried in the return shape for callers
// that compose consecutive steps into a diagonal hint.
func octantOf(dx, dy int) (primary, diagonal int) {
	switch {
	case dx > 0:
		return DirE, DirNone
	case dx < 0:
		return DirW, DirNone
	case dy > 0:
		return DirS, DirNone
	case dy < 0:
		return DirN, DirNone
	default:
		return DirNone, DirNone
	}
}
