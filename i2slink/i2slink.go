// Package i2slink brings up a pair of I2S engines on a shared frame clock: a
// master that transmits a synthesized tone and a slave receiver that is kept
// aligned to the master's word-select line.
//
// The package talks to hardware only through small register-window
// interfaces (ClockControl, Engine, EdgeLine, InterruptController). Chip
// specific windows live in the stm32f4 and rp2 subpackages; the sim package
// provides a host simulation of the same windows.
package i2slink

import "errors"

// Clock faults.
var (
	ErrClockRange  = errors.New("i2slink: PLL configuration out of range")
	ErrLockTimeout = errors.New("i2slink: PLL did not lock")
	ErrClockFrozen = errors.New("i2slink: clock configuration already frozen")
)

// Configuration faults. Data flow never starts after one of these.
var (
	ErrFormat         = errors.New("i2slink: invalid frame format")
	ErrFormatMismatch = errors.New("i2slink: master and slave frame formats differ")
	ErrRole           = errors.New("i2slink: engine role does not match its port")
)

// Fatal faults.
var (
	ErrNoPeripheral = errors.New("i2slink: peripheral not available")
	ErrTxStall      = errors.New("i2slink: transmit buffer never drained")
)

// FatalFunc receives a description of an unrecoverable condition. It is not
// expected to return.
type FatalFunc func(msg string)

func defaultFatal(msg string) {
	panic(msg)
}
