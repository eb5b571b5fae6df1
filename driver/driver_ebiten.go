//go:build !headless

package driver

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Game adapts Driver to ebiten.Game: one RunTick per Update, one
// Compose+blit per Draw (spec §4.K "ebiten Game adapter").
type Game struct {
	*Driver
	image *ebiten.Image
}

// NewGame wraps d for ebiten.RunGame, setting the window's tick rate
// to the driver's configured fps.
func NewGame(d *Driver) *Game {
	ebiten.SetTPS(d.FPS)
	return &Game{Driver: d}
}

// Update samples input into the driver's latch, then runs one fixed
// tick (possibly several, if a reload re-enters immediately).
func (g *Game) Update() error {
	g.pollInput()
	if g.RunTick() {
		return ebiten.Termination
	}
	return nil
}

// pollInput mirrors the teacher's handleKeyboardInput: printable runes
// and a short list of named keys become a single latched byte event
// (spec §4.K "input latch").
func (g *Game) pollInput() {
	for _, r := range ebiten.AppendInputChars(nil) {
		if r > 0 && r <= 0xFF {
			g.Input.Press(byte(r))
			return
		}
	}
	for key, code := range specialKeys {
		if inpututil.IsKeyJustPressed(key) {
			g.Input.Press(code)
			return
		}
	}
	anyDown := false
	for key := range specialKeys {
		if ebiten.IsKeyPressed(key) {
			anyDown = true
			break
		}
	}
	if !anyDown {
		g.Input.Release()
	}
}

var specialKeys = map[ebiten.Key]byte{
	ebiten.KeyEnter:      '\n',
	ebiten.KeyBackspace:  0x08,
	ebiten.KeyTab:        '\t',
	ebiten.KeyEscape:     0x1B,
	ebiten.KeyArrowUp:    0x80 | 0,
	ebiten.KeyArrowDown:  0x80 | 1,
	ebiten.KeyArrowLeft:  0x80 | 2,
	ebiten.KeyArrowRight: 0x80 | 3,
}

// Draw composes the current frame and blits it to screen.
func (g *Game) Draw(screen *ebiten.Image) {
	frame := g.Compose()
	b := frame.Bounds()
	if g.image == nil || g.image.Bounds().Dx() != b.Dx() || g.image.Bounds().Dy() != b.Dy() {
		g.image = ebiten.NewImage(b.Dx(), b.Dy())
	}
	g.image.WritePixels(frame.Pix)
	screen.DrawImage(g.image, nil)
}

// Layout reports the compositor's native resolution; ebiten scales the
// window to it.
func (g *Game) Layout(_, _ int) (int, int) {
	b := g.Comp.Bounds()
	return b.Dx(), b.Dy()
}
