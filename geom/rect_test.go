package geom

import "testing"

func TestRectEmpty(t *testing.T) {
	cases := []struct {
		r    Rect
		want bool
	}{
		{Rect{0, 0, 10, 10}, false},
		{Rect{0, 0, 0, 10}, true},
		{Rect{5, 5, 5, 5}, true},
		{Rect{10, 0, 0, 10}, true},
	}
	for _, c := range cases {
		if got := c.r.Empty(); got != c.want {
			t.Fatalf("Rect(%v).Empty() = %v, want %v", c.r, got, c.want)
		}
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	overlapping := Rect{5, 5, 15, 15}
	disjoint := Rect{20, 20, 30, 30}
	touching := Rect{10, 0, 20, 10}

	if !a.Intersects(overlapping) {
		t.Fatalf("expected overlapping rects to intersect")
	}
	if a.Intersects(disjoint) {
		t.Fatalf("expected disjoint rects not to intersect")
	}
	if a.Intersects(touching) {
		t.Fatalf("expected edge-touching half-open rects not to intersect")
	}
}

func TestRectUnion(t *testing.T) {
	a := Rect{0, 0, 10, 10}
	b := Rect{5, -5, 20, 8}

	got := a.Union(b)
	want := Rect{0, -5, 20, 10}
	if got != want {
		t.Fatalf("Union = %v, want %v", got, want)
	}

	if got := a.Union(Rect{}); got != a {
		t.Fatalf("Union with empty rect = %v, want %v", got, a)
	}
	if got := (Rect{}).Union(a); got != a {
		t.Fatalf("empty rect Union = %v, want %v", got, a)
	}
}
