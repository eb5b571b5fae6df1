package pathing

import "testing"

func noneBlocked(x, y int) bool { return false }

func TestFindDirectionStraightLines(t *testing.T) {
	g := Grid{W: 16, H: 16}
	cases := []struct {
		toX, toY int
		want     int
	}{
		{5, 0, DirE},
		{-5, 0, DirW},
		{0, 5, DirS},
		{0, -5, DirN},
	}
	for _, c := range cases {
		primary, _ := FindDirection(g, noneBlocked, 8, 8, 8+c.toX, 8+c.toY)
		if primary != c.want {
			t.Fatalf("FindDirection to (%d,%d) = %d, want %d", c.toX, c.toY, primary, c.want)
		}
	}
}

func TestFindDirectionSameCell(t *testing.T) {
	g := Grid{W: 8, H: 8}
	primary, diag := FindDirection(g, noneBlocked, 3, 3, 3, 3)
	if primary != DirNone || diag != DirNone {
		t.Fatalf("FindDirection to self = (%d,%d), want (DirNone, DirNone)", primary, diag)
	}
}

func TestFindDirectionBlockedUnreachable(t *testing.T) {
	g := Grid{W: 8, H: 8}
	// The grid wraps, so rows 4 and 0 must both be blocked to cut
	// (3,3) off from (3,6).
	blocked := func(x, y int) bool { return y == 4 || y == 0 }
	primary, diag := FindDirection(g, blocked, 3, 3, 3, 6)
	if primary != DirNone || diag != DirNone {
		t.Fatalf("FindDirection across two full blocked rows = (%d,%d), want (DirNone, DirNone)", primary, diag)
	}
}

func TestFindDirectionAroundObstacle(t *testing.T) {
	g := Grid{W: 8, H: 8}
	blocked := func(x, y int) bool { return y == 4 && x != 0 }
	primary, _ := FindDirection(g, blocked, 3, 3, 3, 6)
	if primary == DirNone {
		t.Fatalf("FindDirection found no path around a gap, want a first step")
	}
}
