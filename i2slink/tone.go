package i2slink

import "math"

// TonePeriod is the default sawtooth period in samples; 100 Hz at 48 kHz.
const TonePeriod = 480

// Source produces one signed sample per frame.
type Source interface {
	Next() int32
	Reset()
}

// Tone is a sawtooth ramp spanning half of the int32 range, repeating every
// period samples.
type Tone struct {
	period uint32
	step   uint32
	i      uint32
}

// NewTone returns a tone with the given period. A zero period selects
// TonePeriod.
func NewTone(period uint32) *Tone {
	if period == 0 {
		period = TonePeriod
	}
	return &Tone{period: period, step: math.MaxUint32 / period / 2}
}

// Period returns the number of samples per ramp.
func (t *Tone) Period() uint32 { return t.period }

// At returns sample i of the ramp. Arithmetic wraps like int32.
func (t *Tone) At(i uint32) int32 {
	const base = uint32(math.MinInt32 / 2 & math.MaxUint32)
	return int32(base + (i%t.period)*t.step)
}

// Next returns the current sample and advances the cursor.
func (t *Tone) Next() int32 {
	v := t.At(t.i)
	t.i++
	if t.i == t.period {
		t.i = 0
	}
	return v
}

// Reset restarts the ramp at sample 0.
func (t *Tone) Reset() { t.i = 0 }

// Pattern is a constant frame used by the loopback self-test. The high half is
// sent on the left channel and the low half on the right when 16-bit words are
// in use.
type Pattern uint32

// SelfTestPattern sends 0xFF00 on the left channel and 0xFF06 on the right.
const SelfTestPattern Pattern = 0xFF00_FF06

func (p Pattern) Next() int32 { return int32(p) }
func (p Pattern) Reset() {}

// Left returns the half-word expected on the left channel.
func (p Pattern) Left() uint16 { return uint16(p >> 16) }

// Right returns the half-word expected on the right channel.
func (p Pattern) Right() uint16 { return uint16(p) }
