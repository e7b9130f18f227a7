//go:build stm32f4

// This example runs the loopback self-test on an STM32F4-Discovery: SPI3
// transmits a constant frame as I2S master and SPI2 receives it as slave.
// Received words are checked against the pattern and a report line is
// printed every 16000 frames.
//
// connect PC10 (SPI3 CK) to PB13 (SPI2 CK)
// connect PA4 (SPI3 WS) to PB12 (SPI2 WS)
// connect PC12 (SPI3 SD) to PB15 (SPI2 SD)
//
// Briefly pulling PB12 low while running forces a frame error and shows the
// link recovering.
package main

import (
	"time"

	"github.com/tinygo-org/i2slink/i2slink"
	"github.com/tinygo-org/i2slink/i2slink/stm32f4"
)

func main() {
	time.Sleep(500 * time.Millisecond)

	board := stm32f4.NewBoard()
	sys, err := i2slink.Start(board.Board(), i2slink.Loopback)
	if err != nil {
		panic(err.Error())
	}
	sys.Run()
}
