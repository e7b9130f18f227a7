// Package sim simulates a board with an audio PLL, two I2S engines and an
// edge-triggered watch on the master's word-select line, one channel slot at a
// time. It implements the i2slink register windows, so the same bring-up and
// fault handling code runs against it as against hardware.
package sim

import (
	"github.com/tinygo-org/i2slink/i2slink"
)

// DefaultSourceHz is the simulated external oscillator frequency.
const DefaultSourceHz = 8_000_000

// Board is a simulated target. The zero value is not usable; use NewBoard.
type Board struct {
	PLL    *PLL
	Master *Engine
	Slave  *Engine
	WS     *Line

	slot     int // slot being processed, or last processed
	unmasked i2slink.IRQ
	handlers [3]func()
	hold     int
	sent     []Word
}

// Word is one half-word on the serial data line.
type Word struct {
	Side i2slink.Side
	Word uint16
}

// NewBoard returns a board with a PLL that locks on the first poll.
func NewBoard() *Board {
	b := &Board{PLL: &PLL{}, WS: &Line{}, slot: -1}
	b.Master = &Engine{board: b}
	b.Slave = &Engine{board: b}
	return b
}

// Board returns the register windows in the form i2slink.Start takes.
func (b *Board) Board() i2slink.Board {
	return i2slink.Board{
		Clock:    b.PLL,
		SourceHz: DefaultSourceHz,
		Master:   b.Master,
		Slave:    b.Slave,
		Edge:     b.WS,
		IRQ:      b,
		Attach:   b.AttachMonitor,
	}
}

// Unmask implements i2slink.InterruptController.
func (b *Board) Unmask(sources i2slink.IRQ) { b.unmasked |= sources }

// Unmasked returns the enabled interrupt sources.
func (b *Board) Unmasked() i2slink.IRQ { return b.unmasked }

func irqIndex(irq i2slink.IRQ) int {
	switch irq {
	case i2slink.IRQMaster:
		return 0
	case i2slink.IRQSlave:
		return 1
	}
	return 2
}

// Attach routes a single interrupt source to h.
func (b *Board) Attach(irq i2slink.IRQ, h func()) {
	b.handlers[irqIndex(irq)] = h
}

// AttachMonitor routes all three sources to the monitor handlers.
func (b *Board) AttachMonitor(m *i2slink.Monitor) {
	b.Attach(i2slink.IRQMaster, m.HandleMasterInterrupt)
	b.Attach(i2slink.IRQSlave, m.HandleSlaveInterrupt)
	b.Attach(i2slink.IRQEdge, m.HandleEdgeInterrupt)
}

// Slot returns the index of the last simulated slot, or -1.
func (b *Board) Slot() int { return b.slot }

// Transmitted returns every half-word the master has shifted out.
func (b *Board) Transmitted() []Word { return b.sent }

// Slip makes the slave lose track of one slot, as a glitch on the bit clock
// would.
func (b *Board) Slip() {
	b.Slave.expect = other(b.Slave.expect)
}

// Hold keeps the slave interrupt from being serviced for the next n slots.
func (b *Board) Hold(n int) { b.hold = n }

func sideOf(slot int) i2slink.Side {
	if slot%2 == 0 {
		return i2slink.SideLeft
	}
	return i2slink.SideRight
}

// Tick simulates one channel slot. Nothing happens while the master is
// disabled, since it generates the clocks.
func (b *Board) Tick() {
	if !b.Master.enabled {
		return
	}
	b.slot++
	side := sideOf(b.slot)
	b.WS.set(side == i2slink.SideRight)
	b.dispatchEdge()

	words := b.Master.shift()
	for _, w := range words {
		b.sent = append(b.sent, Word{Side: side, Word: w})
	}

	if s := b.Slave; s.enabled && b.slot >= s.startAt {
		s.receive(side, words, b.dispatchSlave)
	}
	b.dispatchMaster()
	if b.hold > 0 {
		b.hold--
		if b.hold == 0 {
			b.dispatchSlave()
		}
	}
}

// Run steps tx until the master's buffer is full before each of slots ticks.
func (b *Board) Run(tx *i2slink.Transmitter, slots int) {
	for i := 0; i < slots; i++ {
		for tx.TryStep() {
		}
		b.Tick()
	}
}

func (b *Board) dispatchEdge() {
	h := b.handlers[2]
	if h != nil && b.unmasked&i2slink.IRQEdge != 0 && b.WS.watch && b.WS.pending {
		h()
	}
}

func (b *Board) dispatchSlave() {
	h := b.handlers[1]
	if h != nil && b.hold == 0 && b.unmasked&i2slink.IRQSlave != 0 && b.Slave.irqPending() {
		h()
	}
}

func (b *Board) dispatchMaster() {
	h := b.handlers[0]
	if h != nil && b.unmasked&i2slink.IRQMaster != 0 && b.Master.irqPending() {
		h()
	}
}

// Line simulates the word-select input with an EXTI style rising edge latch.
type Line struct {
	level   bool
	watch   bool
	pending bool
}

func (l *Line) set(level bool) {
	if level && !l.level {
		l.pending = true
	}
	l.level = level
}

// Drive forces the line level, latching a rising edge.
func (l *Line) Drive(level bool) { l.set(level) }

func (l *Line) High() bool { return l.level }
func (l *Line) SetWatch(enabled bool) { l.watch = enabled }
func (l *Line) Watching() bool { return l.watch }
func (l *Line) Pending() bool { return l.pending }
func (l *Line) ClearPending() { l.pending = false }
