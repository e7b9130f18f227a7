package i2slink

import "sync/atomic"

// DrainEvery is the number of transmitted half-words between event drains in
// System.Run.
const DrainEvery = 256

// Board collects the register windows of one target.
type Board struct {
	Clock    ClockControl // nil when the engines share the system clock
	SourceHz uint32
	Master   Engine
	Slave    Engine
	Edge     EdgeLine
	IRQ      InterruptController
	Sink     Sink
	Fatal    FatalFunc // nil panics

	// Attach, if set, is called with the monitor before the link starts so
	// the board can route its interrupts to the monitor handlers.
	Attach func(m *Monitor)
	// Receiver, if set, gets every word received while locked. Pattern
	// profiles default to a LoopbackCheck.
	Receiver Receiver
}

// System is a running link.
type System struct {
	board   Board
	profile Profile
	clock   *ClockDomain
	link    *Link
	monitor *Monitor
	tx      *Transmitter
	events  *EventLog
	check   *LoopbackCheck
}

// Start brings the link up on b with profile p: clock, link configuration,
// monitor and transmitter, then enables slave and master. On any error the
// diagnostic is written to the board sink and Fatal is called; Start returns
// the error only if Fatal returns.
func Start(b Board, p Profile) (*System, error) {
	s := &System{
		board:   b,
		profile: p,
		events:  NewEventLog(),
	}
	s.clock = NewClockDomain(b.Clock, b.SourceHz)
	if err := s.clock.Configure(p.Clock); err != nil {
		return nil, s.fail(err)
	}
	link, err := ConfigureLink(LinkConfig{
		Master:  Port{Engine: b.Master, Role: MasterTransmit, Format: p.Format},
		Slave:   Port{Engine: b.Slave, Role: SlaveReceive, Format: p.slaveFormat()},
		Edge:    b.Edge,
		IRQ:     b.IRQ,
		ClockHz: s.clock.OutputHz(),
	})
	if err != nil {
		return nil, s.fail(err)
	}
	s.link = link

	recv := b.Receiver
	if pat, ok := p.Source().(Pattern); ok && recv == nil {
		s.check = NewLoopbackCheck(pat)
		recv = s.check
	}
	s.monitor = NewMonitor(link, MonitorConfig{
		Recovery:    p.Recovery,
		ReportEvery: p.ReportEvery,
		Events:      s.events,
		Receiver:    recv,
	})
	if b.Attach != nil {
		b.Attach(s.monitor)
	}
	s.tx = NewTransmitter(b.Master, p.Source(), p.Format)
	s.monitor.Start()
	s.events.Post(Event{Kind: EventInitDone})
	s.Drain()
	return s, nil
}

func (s *System) fail(err error) error {
	s.Drain()
	if s.board.Sink != nil {
		s.board.Sink.WriteLineString(err.Error())
	}
	fatal := s.board.Fatal
	if fatal == nil {
		fatal = defaultFatal
	}
	fatal(err.Error())
	return err
}

// Drain writes queued diagnostics to the board sink.
func (s *System) Drain() int { return s.events.Drain(s.board.Sink) }

// Run transmits forever, draining diagnostics between writes. It returns
// only after a transmit stall has been passed to Fatal.
func (s *System) Run() error {
	for i := 0; ; i++ {
		if err := s.tx.Step(); err != nil {
			return s.fail(err)
		}
		if i%DrainEvery == 0 {
			s.Drain()
		}
	}
}

// Clock returns the frozen clock domain.
func (s *System) Clock() *ClockDomain { return s.clock }

// Link returns the configured engine pair.
func (s *System) Link() *Link { return s.link }

// Monitor returns the fault monitor driven by the board interrupts.
func (s *System) Monitor() *Monitor { return s.monitor }

// Transmitter returns the foreground writer feeding the master.
func (s *System) Transmitter() *Transmitter { return s.tx }

// Events returns the diagnostic ring the monitor posts to.
func (s *System) Events() *EventLog { return s.events }

// Profile returns the profile the system was started with.
func (s *System) Profile() Profile { return s.profile }

// Check returns the loopback checker, or nil for tone profiles or when the
// board supplied its own receiver.
func (s *System) Check() *LoopbackCheck { return s.check }

// LoopbackCheck compares received words against a constant pattern.
type LoopbackCheck struct {
	pattern    Pattern
	matches    atomic.Uint32
	mismatches atomic.Uint32
}

// NewLoopbackCheck returns a checker expecting p's left and right halves.
func NewLoopbackCheck(p Pattern) *LoopbackCheck {
	return &LoopbackCheck{pattern: p}
}

// Receive implements Receiver. It may be called from an interrupt handler.
func (c *LoopbackCheck) Receive(side Side, word uint16) {
	want := c.pattern.Left()
	if side == SideRight {
		want = c.pattern.Right()
	}
	if word == want {
		c.matches.Add(1)
	} else {
		c.mismatches.Add(1)
	}
}

// Matches returns the number of words equal to the pattern.
func (c *LoopbackCheck) Matches() uint32 { return c.matches.Load() }

// Mismatches returns the number of words that differed from the pattern.
func (c *LoopbackCheck) Mismatches() uint32 { return c.mismatches.Load() }

// OK reports whether at least one word arrived and none differed.
func (c *LoopbackCheck) OK() bool {
	return c.Matches() > 0 && c.Mismatches() == 0
}
