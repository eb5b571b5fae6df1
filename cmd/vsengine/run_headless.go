//go:build headless

package main

import "github.com/vsengine/vsengine/engine"

// run drives the fixed-tick loop with no display backend until the
// module requests quit.
func run(es *engine.EngineState) error {
	es.Driver.Run(0)
	return nil
}
