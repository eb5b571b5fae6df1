//go:build headless

package main

import "github.com/vsengine/vsengine/audioexternal"

// newPlayer returns a player that discards every clip; headless
// builds never open a host audio device.
func newPlayer() audioexternal.Player { return audioexternal.NullPlayer{} }

// bindPlayerTable is a no-op under headless: NullPlayer ignores its
// Table field entirely.
func bindPlayerTable(audioexternal.Player, *audioexternal.SampleTable) {}
