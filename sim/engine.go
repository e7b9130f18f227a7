package sim

import (
	"errors"

	"github.com/tinygo-org/i2slink/i2slink"
)

var errEnabled = errors.New("sim: engine configured while enabled")

// Engine simulates one STM32 SPI peripheral in I2S mode.
type Engine struct {
	board *Board

	role       i2slink.Role
	format     i2slink.FrameFormat
	configWord uint32
	prescaler  uint32
	configured bool
	enabled    bool
	startAt    int // first slot processed after enable

	status    i2slink.Status
	data      uint16
	readSince bool
	irqMask   i2slink.Status

	fifo   []uint16 // master transmit words for the next slot
	expect i2slink.Side
}

func (e *Engine) Configure(role i2slink.Role, f i2slink.FrameFormat, clockHz uint32) error {
	if e.enabled {
		return errEnabled
	}
	if err := f.Validate(); err != nil {
		return err
	}
	e.role = role
	e.format = f
	e.configWord = f.ConfigWord(role)
	e.prescaler = f.PrescalerWord()
	e.configured = true
	return nil
}

func (e *Engine) SetEnabled(enabled bool) {
	if enabled && !e.enabled {
		e.startAt = e.board.slot + 1
		e.expect = i2slink.SideLeft
	}
	e.enabled = enabled
	if enabled {
		e.configWord |= i2slink.ConfigEnable
	} else {
		e.configWord &^= i2slink.ConfigEnable
	}
}

func (e *Engine) Enabled() bool { return e.enabled }

// Status returns the status register. Reading it acknowledges FRE and UDR,
// and clears OVR when the data register was read since the last status read.
func (e *Engine) Status() i2slink.Status {
	st := e.status
	if e.role == i2slink.MasterTransmit {
		if len(e.fifo) < e.halves() {
			st |= i2slink.StatusTXE
		}
		if sideOf(e.board.slot+1) == i2slink.SideRight {
			st |= i2slink.StatusCHSIDE
		} else {
			st &^= i2slink.StatusCHSIDE
		}
	}
	e.status &^= i2slink.StatusFRE | i2slink.StatusUDR
	if e.readSince {
		e.status &^= i2slink.StatusOVR
	}
	e.readSince = false
	return st
}

func (e *Engine) Read() uint16 {
	e.status &^= i2slink.StatusRXNE
	e.readSince = true
	return e.data
}

func (e *Engine) Write(v uint16) {
	if len(e.fifo) < e.halves() {
		e.fifo = append(e.fifo, v)
	}
}

func (e *Engine) SetInterrupts(mask i2slink.Status) { e.irqMask = mask }

// ConfigWord returns the simulated I2SCFGR contents.
func (e *Engine) ConfigWord() uint32 { return e.configWord }

// PrescalerWord returns the simulated I2SPR contents.
func (e *Engine) PrescalerWord() uint32 { return e.prescaler }

func (e *Engine) halves() int {
	if !e.configured {
		return 1
	}
	return e.format.HalfWordsPerChannel()
}

func (e *Engine) irqPending() bool {
	return e.status&e.irqMask != 0
}

// shift sends one slot from the transmit FIFO, padding with zero and flagging
// underrun when the FIFO ran dry.
func (e *Engine) shift() []uint16 {
	n := e.halves()
	out := make([]uint16, n)
	copy(out, e.fifo)
	if len(e.fifo) < n {
		e.status |= i2slink.StatusUDR
	}
	e.fifo = e.fifo[:0]
	return out
}

// receive processes one slot on the slave, calling deliver after each flag
// change. A slot on the wrong side raises a frame error; the slave stays
// misaligned until it is disabled and re-enabled.
func (e *Engine) receive(side i2slink.Side, words []uint16, deliver func()) {
	if side != e.expect {
		e.status |= i2slink.StatusFRE
		e.expect = other(e.expect)
		deliver()
		return
	}
	e.expect = other(side)
	for _, w := range words {
		if e.status&i2slink.StatusRXNE != 0 {
			e.status |= i2slink.StatusOVR
		} else {
			e.data = w
			e.status |= i2slink.StatusRXNE
			if side == i2slink.SideRight {
				e.status |= i2slink.StatusCHSIDE
			} else {
				e.status &^= i2slink.StatusCHSIDE
			}
		}
		deliver()
		if !e.enabled {
			return
		}
	}
}

func other(s i2slink.Side) i2slink.Side {
	if s == i2slink.SideLeft {
		return i2slink.SideRight
	}
	return i2slink.SideLeft
}
