//go:build !headless

package main

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/vsengine/vsengine/driver"
	"github.com/vsengine/vsengine/engine"
)

// run opens an ebiten window and drives the tick loop from its
// Update/Draw callbacks (driver.Game), matching the teacher's
// gui.Show() blocking call in its own main().
func run(es *engine.EngineState) error {
	ebiten.SetWindowTitle(es.GameID)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(driver.NewGame(es.Driver))
}
