package compositor

import (
	"image"
	"image/color"
	"testing"

	"github.com/vsengine/vsengine/world"
)

type fakeSprites struct {
	img *image.Paletted
}

func (f fakeSprites) Frame(spriteID, seqID, frame int32) (*image.Paletted, bool) {
	if spriteID == 0 {
		return nil, false
	}
	return f.img, true
}

func newFakeFrame(pal Palette) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), pal.ColorPalette())
	img.SetColorIndex(0, 0, 1)
	img.SetColorIndex(1, 1, 0) // stays transparent
	return img
}

func TestComposeDrawsVisibleObjectAndSkipsTransparentIndex(t *testing.T) {
	c := New(8, 8)
	c.Palette.SetEntry(1, 255, 0, 0)
	c.Palette.SetEntry(2, 0, 0, 255)
	bg := image.NewPaletted(image.Rect(0, 0, 8, 8), c.Palette.ColorPalette())
	for i := range bg.Pix {
		bg.Pix[i] = 2
	}
	c.Background = bg

	pool := world.NewPool()
	obj := pool.GetFreeObject()
	obj.Flags = world.FlagLive | world.FlagDrawable
	obj.SpriteID = 1
	obj.PixelX, obj.PixelY = 2, 2

	sprites := fakeSprites{img: newFakeFrame(c.Palette)}
	out := c.Compose(pool, sprites)

	if got := out.At(2, 2); !colorsEqual(got, color.RGBA{R: 255, A: 0xFF}) {
		t.Fatalf("opaque sprite pixel at (2,2) = %v, want red", got)
	}
	if got := out.At(3, 3); !colorsEqual(got, color.RGBA{B: 255, A: 0xFF}) {
		t.Fatalf("transparent sprite pixel at (3,3) = %v, want the blue background", got)
	}
}

func TestComposeSkipsNonDrawableObjects(t *testing.T) {
	c := New(8, 8)
	pool := world.NewPool()
	obj := pool.GetFreeObject()
	obj.Flags = world.FlagLive // not drawable
	obj.SpriteID = 1

	sprites := fakeSprites{img: newFakeFrame(c.Palette)}
	out := c.Compose(pool, sprites)
	if got := out.At(0, 0); !colorsEqual(got, c.Palette[0]) {
		t.Fatalf("background leaked a sprite pixel: got %v", got)
	}
}

func colorsEqual(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}
