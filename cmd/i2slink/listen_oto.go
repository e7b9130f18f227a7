//go:build audio

package main

import (
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/tinygo-org/i2slink/i2slink"
)

func play(p i2slink.Profile, rate int, d time.Duration) error {
	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-ready

	player := ctx.NewPlayer(&frameReader{src: p.Source()})
	player.Play()
	time.Sleep(d)
	return player.Close()
}
