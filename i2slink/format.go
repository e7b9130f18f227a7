package i2slink

// WordLength is the number of significant bits per channel sample.
type WordLength uint8

const (
	Word16 WordLength = 16
	Word24 WordLength = 24
	Word32 WordLength = 32
)

// ChannelLength is the number of bit clocks per channel slot.
type ChannelLength uint8

const (
	Channel16 ChannelLength = 16
	Channel32 ChannelLength = 32
)

// Protocol selects the frame standard.
type Protocol uint8

const (
	Philips Protocol = iota
	MSB
	LSB
	PCMShort
	PCMLong
)

func (p Protocol) String() string {
	switch p {
	case Philips:
		return "philips"
	case MSB:
		return "msb"
	case LSB:
		return "lsb"
	case PCMShort:
		return "pcm-short"
	case PCMLong:
		return "pcm-long"
	}
	return "unknown"
}

// ClockPolarity is the idle level of the bit clock.
type ClockPolarity uint8

const (
	IdleLow ClockPolarity = iota
	IdleHigh
)

// Role is the direction and clocking of one engine.
type Role uint8

const (
	MasterTransmit Role = iota
	SlaveReceive
)

func (r Role) String() string {
	if r == MasterTransmit {
		return "master-tx"
	}
	return "slave-rx"
}

// FrameFormat describes the serial frame shared by both engines. Divider and
// Odd form the master's clock prescaler; MasterClockOutput additionally drives
// a 256*Fs master clock for an external codec.
type FrameFormat struct {
	WordLength        WordLength
	ChannelLength     ChannelLength
	Protocol          Protocol
	ClockPolarity     ClockPolarity
	Divider           uint8
	Odd               bool
	MasterClockOutput bool
}

// Validate reports ErrFormat for lengths or protocols the engines cannot
// produce.
func (f FrameFormat) Validate() error {
	switch f.WordLength {
	case Word16:
	case Word24, Word32:
		if f.ChannelLength != Channel32 {
			return ErrFormat
		}
	default:
		return ErrFormat
	}
	if f.ChannelLength != Channel16 && f.ChannelLength != Channel32 {
		return ErrFormat
	}
	if f.Protocol > PCMLong || f.ClockPolarity > IdleHigh {
		return ErrFormat
	}
	if f.Divider < 2 {
		return ErrFormat
	}
	return nil
}

// SameShape reports whether g frames data identically to f. The prescaler is
// ignored since only the master generates clocks.
func (f FrameFormat) SameShape(g FrameFormat) bool {
	return f.WordLength == g.WordLength &&
		f.ChannelLength == g.ChannelLength &&
		f.Protocol == g.Protocol &&
		f.ClockPolarity == g.ClockPolarity
}

// HalfWordsPerChannel is the number of 16-bit data register accesses per
// channel slot.
func (f FrameFormat) HalfWordsPerChannel() int {
	if f.WordLength == Word16 {
		return 1
	}
	return 2
}

func (f FrameFormat) prescale() uint32 {
	p := 2 * uint32(f.Divider)
	if f.Odd {
		p++
	}
	return p
}

// FrameRate returns the frame (sample) rate produced by a master clocked at
// clockHz.
func (f FrameFormat) FrameRate(clockHz uint32) uint32 {
	p := f.prescale()
	if p == 0 {
		return 0
	}
	if f.MasterClockOutput {
		return clockHz / (256 * p)
	}
	return clockHz / (2 * uint32(f.ChannelLength) * p)
}

// BitClock returns the bit clock frequency for a master clocked at clockHz.
func (f FrameFormat) BitClock(clockHz uint32) uint32 {
	return f.FrameRate(clockHz) * 2 * uint32(f.ChannelLength)
}

// ConfigEnable is the peripheral enable bit (I2SE) of the configuration word.
const ConfigEnable = 1 << 10

// I2SCFGR and I2SPR field layout.
const (
	cfgCHLEN   = 1 << 0
	cfgDATLEN  = 1 // shift
	cfgCKPOL   = 1 << 3
	cfgI2SSTD  = 4 // shift
	cfgPCMSYNC = 1 << 7
	cfgI2SCFG  = 8 // shift
	cfgI2SMOD  = 1 << 11
	i2scfgSlRx = 1
	i2scfgMsTx = 2
	i2sstdPCM  = 3
	datlen16   = 0
	datlen24   = 1
	datlen32   = 2
	prescODD   = 1 << 8
	prescMCKOE = 1 << 9
)

// ConfigWord packs the format into the STM32 SPI_I2SCFGR layout for the
// given role. The enable bit is left clear.
func (f FrameFormat) ConfigWord(role Role) uint32 {
	w := uint32(cfgI2SMOD)
	if role == MasterTransmit {
		w |= i2scfgMsTx << cfgI2SCFG
	} else {
		w |= i2scfgSlRx << cfgI2SCFG
	}
	switch f.Protocol {
	case Philips:
	case MSB:
		w |= 1 << cfgI2SSTD
	case LSB:
		w |= 2 << cfgI2SSTD
	case PCMShort:
		w |= i2sstdPCM << cfgI2SSTD
	case PCMLong:
		w |= i2sstdPCM<<cfgI2SSTD | cfgPCMSYNC
	}
	if f.ClockPolarity == IdleHigh {
		w |= cfgCKPOL
	}
	switch f.WordLength {
	case Word24:
		w |= datlen24 << cfgDATLEN
	case Word32:
		w |= datlen32 << cfgDATLEN
	default:
		w |= datlen16 << cfgDATLEN
	}
	if f.ChannelLength == Channel32 {
		w |= cfgCHLEN
	}
	return w
}

// PrescalerWord packs the divider pair and master clock enable into the
// STM32 SPI_I2SPR layout.
func (f FrameFormat) PrescalerWord() uint32 {
	w := uint32(f.Divider)
	if f.Odd {
		w |= prescODD
	}
	if f.MasterClockOutput {
		w |= prescMCKOE
	}
	return w
}
