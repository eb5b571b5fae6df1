//go:build !headless

package audioexternal

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
)

// SampleRate is the fixed rate resource-0x51 clips play back at
// (playSound's Audio::makeRawStream call hardcodes 11025Hz,
// Audio::FLAG_UNSIGNED for 8-bit unsigned samples).
const SampleRate = 11025

// OtoPlayer plays sample-table clips through the host audio device,
// one oto.Player per concurrent clip rather than the teacher's
// continuous ring-buffer chip (audio_backend_oto.go's OtoPlayer):
// playSound triggers short finite clips, not a running synth feed, so
// each Play call owns its own player and closes it when the clip
// ends.
type OtoPlayer struct {
	ctx   *oto.Context
	Table *SampleTable
}

// NewOtoPlayer opens the host audio device at SampleRate, 8-bit
// unsigned mono.
func NewOtoPlayer(table *SampleTable) (*OtoPlayer, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatUnsignedInt8,
	})
	if err != nil {
		return nil, fmt.Errorf("audioexternal: NewOtoPlayer: %w", err)
	}
	<-ready
	return &OtoPlayer{ctx: ctx, Table: table}, nil
}

// Play starts id playing asynchronously. An unknown or empty id is a
// silent no-op, matching playSound's unchecked lookup into a
// pre-sized, possibly never-populated slot.
func (p *OtoPlayer) Play(id uint32) error {
	data, ok := p.Table.Sample(id)
	if !ok || len(data) == 0 {
		return nil
	}
	player := p.ctx.NewPlayer(bytes.NewReader(data))
	player.Play()
	go func() {
		for player.IsPlaying() {
			time.Sleep(10 * time.Millisecond)
		}
		player.Close()
	}()
	return nil
}
