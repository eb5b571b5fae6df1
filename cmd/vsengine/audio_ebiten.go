//go:build !headless

package main

import (
	"log"

	"github.com/vsengine/vsengine/audioexternal"
)

// mutePlayer stands in for the host device when none is available;
// NullPlayer itself is only compiled into -tags headless builds.
type mutePlayer struct{}

func (mutePlayer) Play(uint32) error { return nil }

// newPlayer opens the host audio device, falling back to a muted
// player if none is available (a missing speaker shouldn't stop the
// game from running).
func newPlayer() audioexternal.Player {
	p, err := audioexternal.NewOtoPlayer(nil)
	if err != nil {
		log.Printf("vsengine: audio device unavailable, continuing muted: %v", err)
		return mutePlayer{}
	}
	return p
}

// bindPlayerTable points an OtoPlayer at the sample table engine.New
// just populated from the loaded module's resource 0x51 entries; the
// player is constructed before that table exists, so the two are
// wired together here.
func bindPlayerTable(player audioexternal.Player, table *audioexternal.SampleTable) {
	if oto, ok := player.(*audioexternal.OtoPlayer); ok {
		oto.Table = table
	}
}
