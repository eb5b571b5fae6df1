// Package compositor assembles the background, the live object pool,
// and any pending subtitle captions into the frame the driver presents
// each tick (spec §4.J). It is scheduled between rule-interpreter
// ticks, never concurrently with one, so it needs no locking of its
// own (spec §5 "Shared resources").
package compositor

import (
	"image"
	"sort"

	"golang.org/x/image/draw"

	"github.com/vsengine/vsengine/geom"
	"github.com/vsengine/vsengine/world"
)

// SpriteSource resolves a drawable object's current frame to a
// palette-indexed image. The loader's sprite tables (resource types
// 0x40-0x43) are the real backing store; kept as an interface here so
// compositor never depends on the loader package.
type SpriteSource interface {
	Frame(spriteID, seqID, frame int32) (*image.Paletted, bool)
}

// Compositor owns the output canvas, the shared palette, and the
// accumulated dirty-rect set.
type Compositor struct {
	Palette    Palette
	Background *image.Paletted
	Dirty      DirtyTracker

	canvas *image.RGBA
}

// New returns a Compositor sized to cover a w x h pixel frame.
func New(w, h int) *Compositor {
	return &Compositor{
		Palette: DefaultPalette(),
		canvas:  image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

// Resize reallocates the output canvas, used when a module load
// changes the background's pixel dimensions.
func (c *Compositor) Resize(w, h int) {
	c.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
}

// Bounds returns the output canvas's current pixel rectangle.
func (c *Compositor) Bounds() image.Rectangle {
	return c.canvas.Bounds()
}

// Compose paints the background, then every live drawable object in
// ascending (ZSort, Z) order, into the output canvas and returns it.
// Callers must not retain the returned image across the next Compose
// call; it is reused.
func (c *Compositor) Compose(pool *world.Pool, sprites SpriteSource) *image.RGBA {
	bounds := c.canvas.Bounds()
	if c.Background != nil {
		draw.Draw(c.canvas, bounds, c.Background, image.Point{}, draw.Src)
	} else {
		draw.Draw(c.canvas, bounds, image.NewUniform(c.Palette[0]), image.Point{}, draw.Src)
	}

	for _, obj := range c.drawOrder(pool) {
		frame, ok := sprites.Frame(obj.SpriteID, obj.SeqID, obj.Frame)
		if !ok {
			continue
		}
		src := image.Image(frame)
		if obj.Flags&world.FlagHFlipOrigin != 0 || obj.Flags&world.FlagVFlipOrigin != 0 {
			src = flipped{
				img:   frame,
				hflip: obj.Flags&world.FlagHFlipOrigin != 0,
				vflip: obj.Flags&world.FlagVFlipOrigin != 0,
			}
		}
		fb := frame.Bounds()
		dst := image.Rect(int(obj.PixelX), int(obj.PixelY), int(obj.PixelX)+fb.Dx(), int(obj.PixelY)+fb.Dy())
		draw.Draw(c.canvas, dst, src, fb.Min, draw.Over)
		c.Dirty.AddDirtyRect(geom.Rect{X0: dst.Min.X, Y0: dst.Min.Y, X1: dst.Max.X, Y1: dst.Max.Y})
	}

	return c.canvas
}

// drawOrder returns every live, drawable object sorted by ascending
// ZSort then Z, matching the teacher's video_compositor.go layer-order
// convention ("lower layers first, higher layer on top").
func (c *Compositor) drawOrder(pool *world.Pool) []*world.Object {
	var objs []*world.Object
	pool.Each(0, func(o *world.Object) {
		if o.Flags&world.DrawableWant == world.DrawableWant {
			objs = append(objs, o)
		}
	})
	sort.SliceStable(objs, func(i, j int) bool {
		if objs[i].ZSort != objs[j].ZSort {
			return objs[i].ZSort < objs[j].ZSort
		}
		return objs[i].Z < objs[j].Z
	})
	return objs
}
