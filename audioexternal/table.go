// Package audioexternal is the engine's external audio collaborator
// boundary: the spec's raw-PCM mixer and MIDI sequencer are out of
// scope, but the sample table resource (0x51) and its playback call
// are wired end to end through a real device-backed player so that
// path isn't left as a stub.
package audioexternal

import "sync"

// Player starts a sample-table clip playing. Playback is
// fire-and-forget, matching playSound's non-blocking call from the
// VM's CALL_FUNC dispatch.
type Player interface {
	Play(id uint32) error
}

// SampleTable holds the engine's raw 8-bit unsigned PCM clips (loader
// resource type 0x51), keyed by sample id.
type SampleTable struct {
	mu      sync.Mutex
	samples map[uint32][]byte
}

// NewSampleTable returns an empty table.
func NewSampleTable() *SampleTable {
	return &SampleTable{samples: make(map[uint32][]byte)}
}

// SetSample stores data under id, implementing the loader Sink's
// SetSoundSample hook (RESTP_51: a leading uint32 length the loader
// has already stripped, leaving just the raw sample bytes here).
func (t *SampleTable) SetSample(id uint32, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples[id] = append([]byte(nil), data...)
}

// Sample returns the clip stored under id.
func (t *SampleTable) Sample(id uint32) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.samples[id]
	return s, ok
}
