//go:build headless

package driver

import "time"

// Run drives the fixed-tick loop without any display backend, for
// `-headless` operation (spec §4.K's "-headless" CLI flag) and for
// tests that exercise the loop without a window. It runs until Tick
// returns TickQuit or n ticks have elapsed, whichever comes first; n
// <= 0 means run until quit.
func (d *Driver) Run(n int) {
	interval := time.Second / time.Duration(d.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; n <= 0 || i < n; i++ {
		<-ticker.C
		if d.RunTick() {
			return
		}
		d.Compose()
	}
}
