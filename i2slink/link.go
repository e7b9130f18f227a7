package i2slink

// Status is an engine status register snapshot in the STM32 SPI_SR layout.
type Status uint32

const (
	StatusRXNE   Status = 1 << 0 // receive data ready
	StatusTXE    Status = 1 << 1 // transmit buffer empty
	StatusCHSIDE Status = 1 << 2 // set when the current slot is the right channel
	StatusUDR    Status = 1 << 3 // underrun
	StatusOVR    Status = 1 << 6 // overrun
	StatusBSY    Status = 1 << 7
	StatusFRE    Status = 1 << 8 // frame error

	// StatusErrors covers the three error flags.
	StatusErrors = StatusFRE | StatusOVR | StatusUDR
)

// Has reports whether all bits in mask are set.
func (s Status) Has(mask Status) bool { return s&mask == mask }

// Side returns the channel indicated by the CHSIDE bit.
func (s Status) Side() Side {
	if s&StatusCHSIDE != 0 {
		return SideRight
	}
	return SideLeft
}

// Side is a channel slot within a frame.
type Side uint8

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

// Engine is the register window of one serial audio peripheral.
//
// Status reads have the side effects of the real status register: reading it
// acknowledges frame error and underrun, and completes the overrun clear
// sequence when it follows a data read.
type Engine interface {
	// Configure programs the frame format and role. The engine must be
	// disabled.
	Configure(role Role, f FrameFormat, clockHz uint32) error
	SetEnabled(enabled bool)
	Enabled() bool
	Status() Status
	Read() uint16
	Write(v uint16)
	// SetInterrupts selects the status flags that raise the engine interrupt.
	// StatusErrors enables all error flags.
	SetInterrupts(mask Status)
}

// EdgeLine is a rising-edge watch on the master's word-select line, as seen
// by the slave. The pending flag latches on every rising edge whether or not
// the watch is enabled; only the interrupt is gated.
type EdgeLine interface {
	High() bool
	SetWatch(enabled bool)
	Pending() bool
	ClearPending()
}

// IRQ is a set of interrupt sources.
type IRQ uint8

const (
	IRQMaster IRQ = 1 << iota
	IRQSlave
	IRQEdge

	irqAll = IRQMaster | IRQSlave | IRQEdge
)

// InterruptController routes the three link interrupt sources.
type InterruptController interface {
	Unmask(sources IRQ)
}

// Port pairs an engine with the role and format it is expected to run.
type Port struct {
	Engine Engine
	Role   Role
	Format FrameFormat
}

// LinkConfig describes the two engines and their shared resources.
type LinkConfig struct {
	Master  Port
	Slave   Port
	Edge    EdgeLine
	IRQ     InterruptController
	ClockHz uint32
}

// Link is a configured, not yet running, master/slave engine pair.
type Link struct {
	master  Engine
	slave   Engine
	edge    EdgeLine
	irq     InterruptController
	format  FrameFormat
	clockHz uint32
	claimed IRQ
}

// ConfigureLink validates cfg and programs both engines. Both engines are left
// disabled with the edge watch masked and its pending flag cleared; nothing is
// programmed when validation fails.
func ConfigureLink(cfg LinkConfig) (*Link, error) {
	if cfg.Master.Engine == nil || cfg.Slave.Engine == nil || cfg.Edge == nil || cfg.IRQ == nil {
		return nil, ErrNoPeripheral
	}
	if cfg.Master.Role != MasterTransmit || cfg.Slave.Role != SlaveReceive {
		return nil, ErrRole
	}
	if err := cfg.Master.Format.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Slave.Format.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Master.Format.SameShape(cfg.Slave.Format) {
		return nil, ErrFormatMismatch
	}

	m, s := cfg.Master.Engine, cfg.Slave.Engine
	m.SetEnabled(false)
	s.SetEnabled(false)
	if err := s.Configure(SlaveReceive, cfg.Slave.Format, cfg.ClockHz); err != nil {
		return nil, err
	}
	if err := m.Configure(MasterTransmit, cfg.Master.Format, cfg.ClockHz); err != nil {
		return nil, err
	}
	m.SetInterrupts(StatusErrors)
	s.SetInterrupts(StatusErrors | StatusRXNE)
	cfg.Edge.SetWatch(false)
	cfg.Edge.ClearPending()

	return &Link{
		master:  m,
		slave:   s,
		edge:    cfg.Edge,
		irq:     cfg.IRQ,
		format:  cfg.Master.Format,
		clockHz: cfg.ClockHz,
		claimed: irqAll,
	}, nil
}

// Claimed returns the interrupt sources owned by the link.
func (l *Link) Claimed() IRQ { return l.claimed }

// Format returns the master frame format.
func (l *Link) Format() FrameFormat { return l.format }

// FrameRate returns the frame rate the master generates.
func (l *Link) FrameRate() uint32 { return l.format.FrameRate(l.clockHz) }

// Master returns the transmitting engine.
func (l *Link) Master() Engine { return l.master }

// enable starts data flow. The slave is enabled strictly before the master so
// that it observes the first word-select edge. slaveUp runs between the two.
func (l *Link) enable(slaveUp func()) {
	l.irq.Unmask(l.claimed)
	l.slave.SetEnabled(true)
	if slaveUp != nil {
		slaveUp()
	}
	l.master.SetEnabled(true)
}
