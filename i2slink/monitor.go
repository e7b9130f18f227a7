package i2slink

import "sync/atomic"

// DefaultReportEvery is the frame count between progress reports.
const DefaultReportEvery = 16000

// SyncState is the alignment state of the slave receiver.
type SyncState uint32

const (
	Unsynced SyncState = iota
	Locked
	FaultPending
	AwaitingEdge
)

func (s SyncState) String() string {
	switch s {
	case Unsynced:
		return "unsynced"
	case Locked:
		return "locked"
	case FaultPending:
		return "fault-pending"
	case AwaitingEdge:
		return "awaiting-edge"
	}
	return "invalid"
}

// Recovery selects how the slave is re-enabled after a frame error.
type Recovery uint8

const (
	// RecoverOnEdge always waits for the next rising word-select edge.
	RecoverOnEdge Recovery = iota
	// RecoverPollFirst re-enables immediately when word-select is already
	// high, and falls back to waiting for the edge otherwise.
	RecoverPollFirst
)

// Fault is a link-level fault. It is recorded, never returned.
type Fault uint8

const (
	FaultFrame Fault = iota
	FaultOverrun
	FaultUnderrun
)

func (f Fault) String() string {
	switch f {
	case FaultFrame:
		return "frame"
	case FaultOverrun:
		return "overrun"
	case FaultUnderrun:
		return "underrun"
	}
	return "unknown"
}

// Receiver consumes words read by the slave while locked.
type Receiver interface {
	Receive(side Side, word uint16)
}

// MonitorConfig holds the optional monitor parameters.
type MonitorConfig struct {
	Recovery    Recovery
	ReportEvery uint32    // 0 selects DefaultReportEvery
	Events      *EventLog // nil discards events
	Receiver    Receiver
}

// Stats is a snapshot of the monitor counters.
type Stats struct {
	FrameErrors       uint32
	Overruns          uint32
	Underruns         uint32
	Resyncs           uint32
	MasterFrameErrors uint32
	MasterOverruns    uint32
	MasterUnderruns   uint32
	SpuriousEdges     uint32
	Received          uint32
	DroppedEvents     uint32
}

type counters struct {
	frameErrors       atomic.Uint32
	overruns          atomic.Uint32
	underruns         atomic.Uint32
	resyncs           atomic.Uint32
	masterFrameErrors atomic.Uint32
	masterOverruns    atomic.Uint32
	masterUnderruns   atomic.Uint32
	spuriousEdges     atomic.Uint32
	received          atomic.Uint32
}

// Monitor owns the link fault handling and the slave resynchronization state
// machine. Its three Handle methods are meant to be called from the master,
// slave and edge interrupts; they may nest.
type Monitor struct {
	link   *Link
	cfg    MonitorConfig
	state  atomic.Uint32
	frames uint32 // slave handler only
	stats  counters
}

// NewMonitor returns a monitor for a configured link. The link is not started.
func NewMonitor(link *Link, cfg MonitorConfig) *Monitor {
	if cfg.ReportEvery == 0 {
		cfg.ReportEvery = DefaultReportEvery
	}
	return &Monitor{link: link, cfg: cfg}
}

// Start enables the link, slave first, and marks the receiver locked. It
// returns false if the monitor was already started.
func (m *Monitor) Start() bool {
	if m.State() != Unsynced {
		return false
	}
	started := false
	m.link.enable(func() {
		started = m.cas(Unsynced, Locked)
	})
	return started
}

// State returns the current alignment state.
func (m *Monitor) State() SyncState { return SyncState(m.state.Load()) }

// Frames returns the number of words counted since the last report.
func (m *Monitor) Frames() uint32 { return m.frames }

// Stats returns a snapshot of the fault counters.
func (m *Monitor) Stats() Stats {
	s := Stats{
		FrameErrors:       m.stats.frameErrors.Load(),
		Overruns:          m.stats.overruns.Load(),
		Underruns:         m.stats.underruns.Load(),
		Resyncs:           m.stats.resyncs.Load(),
		MasterFrameErrors: m.stats.masterFrameErrors.Load(),
		MasterOverruns:    m.stats.masterOverruns.Load(),
		MasterUnderruns:   m.stats.masterUnderruns.Load(),
		SpuriousEdges:     m.stats.spuriousEdges.Load(),
		Received:          m.stats.received.Load(),
	}
	if m.cfg.Events != nil {
		s.DroppedEvents = m.cfg.Events.Dropped()
	}
	return s
}

func (m *Monitor) cas(from, to SyncState) bool {
	return m.state.CompareAndSwap(uint32(from), uint32(to))
}

func (m *Monitor) post(kind EventKind, count uint32) {
	if m.cfg.Events != nil {
		m.cfg.Events.Post(Event{Kind: kind, Count: count})
	}
}

// HandleSlaveInterrupt services the slave engine. Flags are handled in the
// order frame error, overrun, underrun, data ready.
func (m *Monitor) HandleSlaveInterrupt() {
	s := m.link.slave
	st := s.Status()
	if st.Has(StatusFRE) {
		m.frameError()
	}
	if st.Has(StatusOVR) {
		// Data then status clears OVR; the word is lost.
		s.Read()
		s.Status()
		m.stats.overruns.Add(1)
		m.post(EventOverrun, 0)
		return
	}
	if st.Has(StatusUDR) {
		s.Status()
		m.stats.underruns.Add(1)
		m.post(EventUnderrun, 0)
	}
	if st.Has(StatusRXNE) {
		m.receive(st.Side(), s.Read())
	}
}

func (m *Monitor) frameError() {
	m.stats.frameErrors.Add(1)
	if !m.cas(Locked, FaultPending) {
		// Already recovering, or not started.
		return
	}
	l := m.link
	l.slave.SetEnabled(false)
	m.post(EventFrameError, 0)

	if m.cfg.Recovery == RecoverPollFirst && l.edge.High() {
		l.slave.SetEnabled(true)
		m.cas(FaultPending, Locked)
		m.stats.resyncs.Add(1)
		m.post(EventResynced, 0)
		return
	}
	// Only an edge after the fault may re-enable the slave.
	l.edge.ClearPending()
	m.cas(FaultPending, AwaitingEdge)
	l.edge.SetWatch(true)
}

func (m *Monitor) receive(side Side, word uint16) {
	if m.State() != Locked {
		return
	}
	if m.cfg.Receiver != nil {
		m.cfg.Receiver.Receive(side, word)
	}
	m.stats.received.Add(1)
	m.frames++
	if m.frames >= m.cfg.ReportEvery {
		m.post(EventFrames, m.frames)
		m.frames = 0
	}
}

// HandleEdgeInterrupt services a rising word-select edge. The slave is
// re-enabled only when it is waiting for one.
func (m *Monitor) HandleEdgeInterrupt() {
	e := m.link.edge
	if !e.Pending() {
		return
	}
	e.ClearPending()
	e.SetWatch(false)
	if !m.cas(AwaitingEdge, Locked) {
		m.stats.spuriousEdges.Add(1)
		return
	}
	m.link.slave.SetEnabled(true)
	m.stats.resyncs.Add(1)
	m.post(EventResynced, 0)
}

// HandleMasterInterrupt reports master faults. The master keeps running.
// Flags are handled in the order frame error, overrun, underrun; a single
// status read acknowledges frame error and underrun together.
func (m *Monitor) HandleMasterInterrupt() {
	e := m.link.master
	st := e.Status()
	if st.Has(StatusFRE) {
		m.stats.masterFrameErrors.Add(1)
		m.post(EventMasterFrameError, 0)
	}
	if st.Has(StatusOVR) {
		e.Read()
		e.Status()
		m.stats.masterOverruns.Add(1)
		m.post(EventMasterOverrun, 0)
	}
	if st.Has(StatusUDR) {
		m.stats.masterUnderruns.Add(1)
		m.post(EventMasterUnderrun, 0)
	}
}
