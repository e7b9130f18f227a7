//go:build stm32f4

// This example plays the sawtooth tone through the CS43L22 on an
// STM32F4-Discovery while SPI2 listens to the same frames and stays aligned
// to the word-select line.
//
// The codec hangs off SPI3 and I2C1 on the board. For the slave side,
// connect PC10 to PB13, PA4 to PB12 and PC12 to PB15.
package main

import (
	"machine"
	"time"

	"github.com/tinygo-org/i2slink/cs43l22"
	"github.com/tinygo-org/i2slink/i2slink"
	"github.com/tinygo-org/i2slink/i2slink/stm32f4"
)

const (
	codecReset = machine.PD4
	codecSCL   = machine.PB6
	codecSDA   = machine.PB9
)

func main() {
	time.Sleep(500 * time.Millisecond)

	codecReset.Configure(machine.PinConfig{Mode: machine.PinOutput})
	err := machine.I2C1.Configure(machine.I2CConfig{
		Frequency: 100_000,
		SCL:       codecSCL,
		SDA:       codecSDA,
	})
	if err != nil {
		panic(err.Error())
	}

	// The codec needs MCLK before it answers, so start the link first.
	board := stm32f4.NewBoard()
	profile := i2slink.CodecResync
	sys, err := i2slink.Start(board.Board(), profile)
	if err != nil {
		panic(err.Error())
	}

	dac := cs43l22.New(machine.I2C1, codecReset)
	if err := dac.Configure(profile.Format); err != nil {
		panic(err.Error())
	}
	if err := dac.SetVolume(-20); err != nil {
		panic(err.Error())
	}
	sys.Run()
}
