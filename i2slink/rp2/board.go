//go:build rp2040 || rp2350

package rp2

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
	"sync/atomic"

	"github.com/tinygo-org/i2slink/i2slink"
)

// SourceHz is the nominal reference the profile clock configuration is
// evaluated against. There is no audio PLL; the master state machine divides
// the system clock to the bit clock the profile's format implies.
const SourceHz = 8_000_000

// Board runs both engines on PIO0: the master on interrupt line 0 and the
// slave on line 1. Only one Board may exist.
type Board struct {
	Master *Engine
	Slave  *Engine
	Edge   *Edge

	master, slave *StateMachine
	masterIRQ     interrupt.Interrupt
	slaveIRQ      interrupt.Interrupt
}

// handlers are package level so the interrupt closures capture nothing.
var (
	masterHandler func()
	slaveHandler  func()
)

// NewBoard claims two state machines on PIO0 and hands the master pins to
// it. The slave pins may equal the master pins, in which case the slave
// samples the master's outputs directly.
func NewBoard(master, slave Pins) (*Board, error) {
	msm, err := PIO0.ClaimStateMachine(0)
	if err != nil {
		return nil, err
	}
	ssm, err := PIO0.ClaimStateMachine(1)
	if err != nil {
		return nil, err
	}
	cpuHz := machine.CPUFrequency()
	b := &Board{
		Master: NewEngine(msm, master, cpuHz),
		Slave:  NewEngine(ssm, slave, cpuHz),
		Edge:   newEdge(machine.Pin(slave.WordSelect)),
		master: msm,
		slave:  ssm,
	}

	out := machine.PinConfig{Mode: PIO0.PinMode()}
	machine.Pin(master.Data).Configure(out)
	machine.Pin(master.Clock).Configure(out)
	machine.Pin(master.WordSelect).Configure(out)
	msm.SetPindirsConsecutive(machine.Pin(master.Data), 1, true)
	msm.SetPindirsConsecutive(machine.Pin(master.Clock), 2, true)
	if slave != master {
		in := machine.PinConfig{Mode: machine.PinInput}
		machine.Pin(slave.Data).Configure(in)
		machine.Pin(slave.Clock).Configure(in)
		machine.Pin(slave.WordSelect).Configure(in)
	}

	b.masterIRQ = interrupt.New(rp.IRQ_PIO0_IRQ_0, func(interrupt.Interrupt) {
		if masterHandler != nil {
			masterHandler()
		}
	})
	b.slaveIRQ = interrupt.New(rp.IRQ_PIO0_IRQ_1, func(interrupt.Interrupt) {
		if slaveHandler != nil {
			slaveHandler()
		}
	})
	if err := b.Edge.arm(); err != nil {
		return nil, err
	}
	return b, nil
}

// Board returns the register windows in the form i2slink.Start takes.
func (b *Board) Board() i2slink.Board {
	return i2slink.Board{
		SourceHz: SourceHz,
		Master:   b.Master,
		Slave:    b.Slave,
		Edge:     b.Edge,
		IRQ:      b,
		Sink:     i2slink.PrintSink{},
		Attach:   b.AttachMonitor,
	}
}

// AttachMonitor routes the PIO lines and the edge callback to m.
func (b *Board) AttachMonitor(m *i2slink.Monitor) {
	masterHandler = m.HandleMasterInterrupt
	slaveHandler = m.HandleSlaveInterrupt
	b.Edge.handler = m.HandleEdgeInterrupt
}

// Unmask implements i2slink.InterruptController.
func (b *Board) Unmask(sources i2slink.IRQ) {
	if sources&i2slink.IRQMaster != 0 {
		b.masterIRQ.Enable()
	}
	if sources&i2slink.IRQSlave != 0 {
		b.slaveIRQ.Enable()
	}
	if sources&i2slink.IRQEdge != 0 {
		b.Edge.unmasked.Store(true)
	}
}

// Edge watches a word-select GPIO for rising edges. The pin interrupt stays
// armed so the pending flag latches every edge; the watch only gates the
// call into the handler.
type Edge struct {
	pin      machine.Pin
	pending  atomic.Bool
	watch    atomic.Bool
	unmasked atomic.Bool
	handler  func()
}

func newEdge(pin machine.Pin) *Edge { return &Edge{pin: pin} }

func (e *Edge) arm() error {
	return e.pin.SetInterrupt(machine.PinRising, func(machine.Pin) {
		e.pending.Store(true)
		if e.watch.Load() && e.unmasked.Load() && e.handler != nil {
			e.handler()
		}
	})
}

func (e *Edge) High() bool { return e.pin.Get() }
func (e *Edge) SetWatch(enabled bool) { e.watch.Store(enabled) }
func (e *Edge) Pending() bool { return e.pending.Load() }
func (e *Edge) ClearPending() { e.pending.Store(false) }
