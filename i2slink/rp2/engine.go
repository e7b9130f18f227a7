// Package rp2 runs the i2slink engines on RP2040 and RP2350 PIO state
// machines. One machine runs an I2S master transmit program with bit clock
// and word select on side-set pins; another runs a slave receive program
// that checks word select at the start of every slot and raises its state
// machine IRQ flag when it does not match, which the Engine reports as a
// frame error.
//
// The program builders and the Engine are plain Go and run on the host
// against any Machine; the StateMachine and Board types need the hardware.
package rp2

import (
	"errors"

	"github.com/tinygo-org/i2slink/i2slink"
)

var errEnabled = errors.New("rp2: engine configured while running")

// Machine is the part of a PIO state machine an Engine drives.
type Machine interface {
	// Load places p in instruction memory, applies cfg with the wrap
	// relocated to the load offset and leaves the machine halted at the
	// program entry.
	Load(p Program, cfg Config) error
	SetEnabled(enabled bool)
	Enabled() bool
	// Restart halts the machine, clears its FIFOs, shift counters and IRQ
	// flag and jumps to the program entry.
	Restart()
	TxFull() bool
	TxPut(data uint32)
	RxEmpty() bool
	RxGet() uint32
	// Stalls reports and clears the sticky TX and RX stall flags.
	Stalls() (tx, rx bool)
	// Flag reports whether the machine's relative IRQ 0 flag is set.
	Flag() bool
	ClearFlag()
	// SetInterruptSources routes RX not empty, TX not full and the IRQ
	// flag to the machine's system interrupt line.
	SetInterruptSources(rxReady, txReady, flag bool)
}

// Pins are the GPIOs of one engine. The slave needs Data, Clock and
// WordSelect consecutive; the master needs WordSelect = Clock+1.
type Pins struct {
	Data       uint8
	Clock      uint8
	WordSelect uint8
}

// Engine emulates a serial audio peripheral on a PIO state machine. A
// master engine packs half-word writes into one FIFO word per channel; a
// slave engine splits received channel words back into half-words.
//
// Channel side is tracked in software from the number of channel words
// moved since the engine was enabled, both programs start on the left slot.
type Engine struct {
	sm    Machine
	pins  Pins
	cpuHz uint32

	role   i2slink.Role
	format i2slink.FrameFormat
	halves int

	words   uint32 // channel words moved since enable
	pending uint16
	have    int // half-words buffered in pending (tx) or left to read (rx)
	rxWord  uint32

	udr, ovr  bool
	readSince bool
	mask      i2slink.Status
}

// NewEngine returns an engine on sm. cpuHz is the PIO clock.
func NewEngine(sm Machine, pins Pins, cpuHz uint32) *Engine {
	return &Engine{sm: sm, pins: pins, cpuHz: cpuHz}
}

// Configure loads the program for role. clockHz is the nominal peripheral
// clock the format's prescaler divides; the master state machine is
// clocked at twice the resulting bit clock and the slave at full speed.
func (e *Engine) Configure(role i2slink.Role, f i2slink.FrameFormat, clockHz uint32) error {
	if e.sm.Enabled() {
		return errEnabled
	}
	var (
		p   Program
		err error
	)
	if role == i2slink.MasterTransmit {
		p, err = MasterProgram(f)
	} else {
		p, err = SlaveProgram(f)
	}
	if err != nil {
		return err
	}
	cfg, err := e.config(role, f, clockHz)
	if err != nil {
		return err
	}
	if err := e.sm.Load(p, cfg); err != nil {
		return err
	}
	e.role = role
	e.format = f
	e.halves = f.HalfWordsPerChannel()
	e.reset()
	return nil
}

func (e *Engine) config(role i2slink.Role, f i2slink.FrameFormat, clockHz uint32) (Config, error) {
	var cfg Config
	chlen := uint16(f.ChannelLength)
	if role == i2slink.MasterTransmit {
		whole, frac, err := ClkDivFromFrequency(2*f.BitClock(clockHz), e.cpuHz)
		if err != nil {
			return cfg, err
		}
		cfg.SetClkDivIntFrac(whole, frac)
		cfg.SetOutPins(e.pins.Data, 1)
		cfg.SetSidesetPins(e.pins.Clock)
		cfg.SetOutShift(false, true, chlen)
		return cfg, nil
	}
	if e.pins.Clock != e.pins.Data+1 || e.pins.WordSelect != e.pins.Data+2 {
		return cfg, ErrUnsupported
	}
	cfg.SetClkDivIntFrac(1, 0)
	cfg.SetInPins(e.pins.Data)
	cfg.SetJmpPin(e.pins.WordSelect)
	cfg.SetInShift(false, true, chlen)
	return cfg, nil
}

func (e *Engine) reset() {
	e.words = 0
	e.have = 0
	e.pending = 0
	e.udr, e.ovr, e.readSince = false, false, false
}

// SetEnabled starts the program from its entry with empty FIFOs, or halts
// it.
func (e *Engine) SetEnabled(enabled bool) {
	if !enabled {
		e.sm.SetEnabled(false)
		return
	}
	e.sm.Restart()
	e.reset()
	e.sm.SetEnabled(true)
}

func (e *Engine) Enabled() bool { return e.sm.Enabled() }

// Status folds FIFO state, stall flags and the frame error flag into the
// SPI_SR layout. It acknowledges the frame error and underrun flags, and the
// overrun flag when a Read came first.
func (e *Engine) Status() i2slink.Status {
	tx, rx := e.sm.Stalls()
	e.udr = e.udr || tx
	e.ovr = e.ovr || rx

	var st i2slink.Status
	if e.sm.Enabled() {
		st |= i2slink.StatusBSY
	}
	if e.side() == i2slink.SideRight {
		st |= i2slink.StatusCHSIDE
	}
	if e.role == i2slink.MasterTransmit {
		if !e.sm.TxFull() {
			st |= i2slink.StatusTXE
		}
		if e.udr {
			st |= i2slink.StatusUDR
			e.udr = false
		}
		return st
	}
	if e.have > 0 || !e.sm.RxEmpty() {
		st |= i2slink.StatusRXNE
	}
	if e.ovr {
		st |= i2slink.StatusOVR
		if e.readSince {
			e.ovr = false
		}
	}
	e.readSince = false
	if e.sm.Flag() {
		st |= i2slink.StatusFRE
		e.sm.ClearFlag()
	}
	return st
}

// side is the channel of the next word to be written or read.
func (e *Engine) side() i2slink.Side {
	if e.role == i2slink.SlaveReceive && e.have > 0 {
		// still draining the current word
		return i2slink.Side((e.words - 1) & 1)
	}
	return i2slink.Side(e.words & 1)
}

// Read returns the next received half-word, high half first.
func (e *Engine) Read() uint16 {
	e.readSince = true
	if e.have == 0 {
		if e.sm.RxEmpty() {
			return 0
		}
		// channel data arrives right-aligned in the ISR
		e.rxWord = e.sm.RxGet() << (32 - uint32(e.format.ChannelLength))
		e.words++
		e.have = e.halves
	}
	v := uint16(e.rxWord >> 16)
	e.rxWord <<= 16
	e.have--
	return v
}

// Write queues a half-word, high half first; the FIFO word is pushed once
// the channel is complete.
func (e *Engine) Write(v uint16) {
	if e.halves == 1 {
		e.sm.TxPut(uint32(v) << 16)
		e.words++
		return
	}
	if e.have == 0 {
		e.pending = v
		e.have = 1
		return
	}
	e.sm.TxPut(uint32(e.pending)<<16 | uint32(v))
	e.have = 0
	e.words++
}

// SetInterrupts maps the status mask onto the PIO interrupt sources. The
// PIO has no stall interrupt; overrun and underrun are reported with the
// next data interrupt.
func (e *Engine) SetInterrupts(mask i2slink.Status) {
	e.mask = mask
	e.sm.SetInterruptSources(
		mask&i2slink.StatusRXNE != 0,
		mask&i2slink.StatusTXE != 0,
		mask&i2slink.StatusFRE != 0,
	)
}

// Interrupts returns the status mask set by SetInterrupts.
func (e *Engine) Interrupts() i2slink.Status { return e.mask }
