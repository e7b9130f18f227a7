package i2slink

// Profile is a complete, static link configuration. Profiles are chosen at
// build time; nothing in a running system changes them.
type Profile struct {
	Name   string
	Clock  ClockConfig
	Format FrameFormat
	// SlaveFormat is the format the slave is programmed with. The zero value
	// uses Format.
	SlaveFormat FrameFormat
	// Pattern, when non-zero, replaces the tone with a constant self-test
	// frame.
	Pattern     Pattern
	TonePeriod  uint32
	Recovery    Recovery
	ReportEvery uint32
}

func (p Profile) slaveFormat() FrameFormat {
	if p.SlaveFormat == (FrameFormat{}) {
		return p.Format
	}
	return p.SlaveFormat
}

// Source returns a fresh sample source for the profile.
func (p Profile) Source() Source {
	if p.Pattern != 0 {
		return p.Pattern
	}
	return NewTone(p.TonePeriod)
}

var (
	// Loopback runs both engines at 8 kHz with 16-bit Philips frames and
	// sends SelfTestPattern. Clocked from an 8 MHz source the PLL produces
	// 64 MHz.
	Loopback = Profile{
		Name:  "loopback",
		Clock: ClockConfig{M: 8, N: 192, R: 3},
		Format: FrameFormat{
			WordLength:    Word16,
			ChannelLength: Channel32,
			Protocol:      Philips,
			ClockPolarity: IdleHigh,
			Divider:       62,
			Odd:           true,
		},
		Pattern: SelfTestPattern,
	}

	// LoopbackPolled is Loopback with immediate re-enable when word-select
	// is already high after a frame error.
	LoopbackPolled = Profile{
		Name:     "loopback-polled",
		Clock:    Loopback.Clock,
		Format:   Loopback.Format,
		Pattern:  SelfTestPattern,
		Recovery: RecoverPollFirst,
	}

	// CodecResync drives an external DAC at 48 kHz with a 256*Fs master
	// clock and sends the sawtooth tone.
	CodecResync = Profile{
		Name:  "codec-resync",
		Clock: ClockConfig{M: 8, N: 258, R: 3},
		Format: FrameFormat{
			WordLength:        Word16,
			ChannelLength:     Channel32,
			Protocol:          Philips,
			ClockPolarity:     IdleLow,
			Divider:           3,
			Odd:               true,
			MasterClockOutput: true,
		},
		TonePeriod: TonePeriod,
	}

	// Wide24 sends 24-bit MSB-justified samples at 48 kHz.
	Wide24 = Profile{
		Name:  "wide24",
		Clock: ClockConfig{M: 8, N: 258, R: 3},
		Format: FrameFormat{
			WordLength:    Word24,
			ChannelLength: Channel32,
			Protocol:      MSB,
			ClockPolarity: IdleHigh,
			Divider:       14,
		},
		TonePeriod: TonePeriod,
	}
)

// Profiles lists the built-in profiles.
var Profiles = []*Profile{&Loopback, &LoopbackPolled, &CodecResync, &Wide24}
