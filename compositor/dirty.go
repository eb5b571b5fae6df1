package compositor

import "github.com/vsengine/vsengine/geom"

// DirtyTracker accumulates the rectangles touched since the last
// drain, merging overlapping regions so compose only repaints what
// changed (spec §4.J, and the teacher's video_compositor.go "blend
// only what's enabled" approach generalized to sub-frame regions).
// It implements world.DirtyMarker.
type DirtyTracker struct {
	rects []geom.Rect
}

// AddDirtyRect records r, merging it with every tracked rectangle it
// intersects, and again with any the grown rectangle then overlaps, so
// the tracked rectangles stay pairwise disjoint.
func (d *DirtyTracker) AddDirtyRect(r geom.Rect) {
	if r.Empty() {
		return
	}
	for i := 0; i < len(d.rects); {
		if d.rects[i].Intersects(r) {
			r = r.Union(d.rects[i])
			d.rects = append(d.rects[:i], d.rects[i+1:]...)
			i = 0
			continue
		}
		i++
	}
	d.rects = append(d.rects, r)
}

// Drain returns and clears the accumulated rectangles.
func (d *DirtyTracker) Drain() []geom.Rect {
	out := d.rects
	d.rects = nil
	return out
}

// Empty reports whether nothing has been tracked, in which case a
// compose pass can skip presentation entirely.
func (d *DirtyTracker) Empty() bool { return len(d.rects) == 0 }
