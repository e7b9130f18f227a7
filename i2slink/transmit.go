package i2slink

// TxRetries bounds the number of status polls Step makes while waiting for
// the transmit buffer.
const TxRetries = 0x10000

// Transmitter feeds a Source to the master engine, one half-word per empty
// transmit buffer.
type Transmitter struct {
	engine Engine
	src    Source
	wide   bool
	split  bool
	sample int32
	side   Side
	half   int
}

// NewTransmitter returns a transmitter writing samples from src to engine in
// format f.
func NewTransmitter(engine Engine, src Source, f FrameFormat) *Transmitter {
	t := &Transmitter{
		engine: engine,
		src:    src,
		wide:   f.HalfWordsPerChannel() > 1,
		side:   SideRight,
	}
	_, t.split = src.(Pattern)
	return t
}

// TryStep writes one half-word if the transmit buffer is empty and reports
// whether it did.
//
// With 16-bit words the left channel carries the high half of a fresh sample
// and the right channel repeats it, except for a Pattern, whose low half goes
// to the right channel. Wider words send the whole sample on each channel,
// high half first.
func (t *Transmitter) TryStep() bool {
	st := t.engine.Status()
	if !st.Has(StatusTXE) {
		return false
	}
	side := st.Side()
	if !t.wide {
		if side == SideLeft {
			t.sample = t.src.Next()
			t.engine.Write(uint16(uint32(t.sample) >> 16))
		} else if t.split {
			t.engine.Write(uint16(t.sample))
		} else {
			t.engine.Write(uint16(uint32(t.sample) >> 16))
		}
		return true
	}
	if side != t.side {
		t.side = side
		t.half = 0
		if side == SideLeft {
			t.sample = t.src.Next()
		}
	}
	if t.half == 0 {
		t.engine.Write(uint16(uint32(t.sample) >> 16))
	} else {
		t.engine.Write(uint16(t.sample))
	}
	t.half++
	return true
}

// Step writes one half-word, waiting at most TxRetries polls for the
// transmit buffer.
func (t *Transmitter) Step() error {
	for i := 0; i < TxRetries; i++ {
		if t.TryStep() {
			return nil
		}
	}
	return ErrTxStall
}

// Run transmits until the engine stalls.
func (t *Transmitter) Run() error {
	for {
		if err := t.Step(); err != nil {
			return err
		}
	}
}
