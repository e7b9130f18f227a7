//go:build !audio

package main

import (
	"errors"
	"time"

	"github.com/tinygo-org/i2slink/i2slink"
)

func play(p i2slink.Profile, rate int, d time.Duration) error {
	return errors.New("audio playback not built in; rebuild with -tags audio")
}
