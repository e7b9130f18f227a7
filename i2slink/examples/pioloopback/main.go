//go:build rp2040 || rp2350

// This example runs the loopback self-test on PIO0 of an RP2040 or RP2350.
// The master state machine drives the data, bit clock and word-select pins
// and the slave state machine samples the same pins, so no wiring is needed.
// A logic analyzer on the three pins shows the frames.
//
// GPIO2: data
// GPIO3: bit clock
// GPIO4: word select
package main

import (
	"time"

	"github.com/tinygo-org/i2slink/i2slink"
	"github.com/tinygo-org/i2slink/i2slink/rp2"
)

var pins = rp2.Pins{Data: 2, Clock: 3, WordSelect: 4}

func main() {
	time.Sleep(500 * time.Millisecond)

	board, err := rp2.NewBoard(pins, pins)
	if err != nil {
		panic(err.Error())
	}
	sys, err := i2slink.Start(board.Board(), i2slink.Loopback)
	if err != nil {
		panic(err.Error())
	}
	sys.Run()
}
