package i2slink

import "fmt"

// opLog records register window calls across fakes in order.
type opLog []string

func (l *opLog) add(format string, args ...interface{}) {
	if l != nil {
		*l = append(*l, fmt.Sprintf(format, args...))
	}
}

type fakeEngine struct {
	name       string
	log        *opLog
	role       Role
	format     FrameFormat
	configured bool
	enabled    bool
	status     Status
	data       uint16
	readSince  bool
	irqMask    Status
	written    []uint16
	err        error
}

func (e *fakeEngine) Configure(role Role, f FrameFormat, clockHz uint32) error {
	e.log.add("%s:configure", e.name)
	if e.err != nil {
		return e.err
	}
	e.role, e.format, e.configured = role, f, true
	return nil
}

func (e *fakeEngine) SetEnabled(enabled bool) {
	e.log.add("%s:enabled=%v", e.name, enabled)
	e.enabled = enabled
}

func (e *fakeEngine) Enabled() bool { return e.enabled }

// Status follows the STM32 clear rules: reading acknowledges FRE and UDR, and
// clears OVR when a data read came first.
func (e *fakeEngine) Status() Status {
	st := e.status
	e.status &^= StatusFRE | StatusUDR
	if e.readSince {
		e.status &^= StatusOVR
	}
	e.readSince = false
	return st
}

func (e *fakeEngine) Read() uint16 {
	e.status &^= StatusRXNE
	e.readSince = true
	return e.data
}

func (e *fakeEngine) Write(v uint16) { e.written = append(e.written, v) }

func (e *fakeEngine) SetInterrupts(mask Status) { e.irqMask = mask }

type fakeEdge struct {
	log     *opLog
	high    bool
	watch   bool
	pending bool
}

func (e *fakeEdge) High() bool { return e.high }

func (e *fakeEdge) SetWatch(enabled bool) {
	e.log.add("edge:watch=%v", enabled)
	e.watch = enabled
}

func (e *fakeEdge) Pending() bool { return e.pending }
func (e *fakeEdge) ClearPending() { e.pending = false }

type fakeIRQ struct {
	log      *opLog
	unmasked IRQ
}

func (c *fakeIRQ) Unmask(sources IRQ) {
	c.log.add("irq:unmask=%d", sources)
	c.unmasked |= sources
}

// fakeClock reports ready after readyAfter polls; negative never locks.
type fakeClock struct {
	log        *opLog
	m          uint8
	n          uint16
	r          uint8
	enabled    bool
	readyAfter int
	polls      int
}

func (c *fakeClock) SetPLL(m uint8, n uint16, r uint8) {
	c.log.add("pll:set %d/%d/%d", m, n, r)
	c.m, c.n, c.r = m, n, r
}

func (c *fakeClock) SetPLLEnabled(enabled bool) {
	c.log.add("pll:enabled=%v", enabled)
	c.enabled = enabled
	c.polls = 0
}

func (c *fakeClock) PLLReady() bool {
	if !c.enabled || c.readyAfter < 0 {
		return false
	}
	c.polls++
	return c.polls >= c.readyAfter
}

type lineSink []string

func (s *lineSink) WriteLineString(line string) { *s = append(*s, line) }

type recordReceiver struct {
	sides []Side
	words []uint16
}

func (r *recordReceiver) Receive(side Side, word uint16) {
	r.sides = append(r.sides, side)
	r.words = append(r.words, word)
}

type rig struct {
	log    opLog
	master *fakeEngine
	slave  *fakeEngine
	edge   *fakeEdge
	irq    *fakeIRQ
}

func newRig() *rig {
	r := &rig{}
	r.master = &fakeEngine{name: "master", log: &r.log}
	r.slave = &fakeEngine{name: "slave", log: &r.log}
	r.edge = &fakeEdge{log: &r.log}
	r.irq = &fakeIRQ{log: &r.log}
	return r
}

func (r *rig) config(f FrameFormat) LinkConfig {
	return LinkConfig{
		Master:  Port{Engine: r.master, Role: MasterTransmit, Format: f},
		Slave:   Port{Engine: r.slave, Role: SlaveReceive, Format: f},
		Edge:    r.edge,
		IRQ:     r.irq,
		ClockHz: 64_000_000,
	}
}

func (r *rig) board() Board {
	return Board{
		Clock:    &fakeClock{log: &r.log, readyAfter: 2},
		SourceHz: 8_000_000,
		Master:   r.master,
		Slave:    r.slave,
		Edge:     r.edge,
		IRQ:      r.irq,
	}
}
