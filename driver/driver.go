// Package driver implements the fixed-tick game loop: input sampling,
// rule-interpreter ticks, and compositor presentation, re-entrant
// across module reloads (spec §4.K).
package driver

import (
	"image"

	"github.com/vsengine/vsengine/compositor"
	"github.com/vsengine/vsengine/world"
)

// Tick result codes, matching the source's update() return contract
// (spec §9 "Suspension points"): 0 quits, 1 composes normally, 2
// re-enters update() immediately because a module reload interrupted
// the in-flight tick.
const (
	TickQuit   = 0
	TickFrame  = 1
	TickReload = 2
)

// MinFPS and MaxFPS bound the configurable tick rate (spec §4.K "fps
// clamped [1,50]").
const (
	MinFPS = 1
	MaxFPS = 50
)

// ClampFPS restricts fps to the supported range.
func ClampFPS(fps int) int {
	switch {
	case fps < MinFPS:
		return MinFPS
	case fps > MaxFPS:
		return MaxFPS
	default:
		return fps
	}
}

// TickFunc runs one fixed-tick step (input sample + rule walk +
// bytecode execution) and returns a Tick* result code.
type TickFunc func() int

// Driver owns the tick function, the compositor, and the input latch
// shared between the game-loop adapter and whatever feeds the VM's
// runtime register block each tick.
type Driver struct {
	FPS   int
	Tick  TickFunc
	Comp  *compositor.Compositor
	World *world.World
	Spr   compositor.SpriteSource
	Input InputLatch

	frame *image.RGBA
}

// New returns a Driver with fps clamped to [MinFPS, MaxFPS].
func New(fps int, tick TickFunc, comp *compositor.Compositor, w *world.World, spr compositor.SpriteSource) *Driver {
	return &Driver{FPS: ClampFPS(fps), Tick: tick, Comp: comp, World: w, Spr: spr}
}

// RunTick executes Tick, looping internally on TickReload so a module
// switch mid-tick re-enters immediately rather than waiting for the
// next scheduled frame (spec §9 "every call stack unwinds returning 0
// ... the driver's loop re-enters update").
func (d *Driver) RunTick() (quit bool) {
	for {
		switch d.Tick() {
		case TickQuit:
			return true
		case TickReload:
			continue
		default:
			return false
		}
	}
}

// Compose runs the compositor over the current object pool and caches
// the result for the next Draw call.
func (d *Driver) Compose() *image.RGBA {
	d.frame = d.Comp.Compose(d.World.Pool, d.Spr)
	return d.frame
}
