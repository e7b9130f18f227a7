package i2slink

// LockRetries bounds the number of ready polls while waiting for the audio PLL.
const LockRetries = 0x5000

// PLLI2S limits for the STM32F4 family.
const (
	vcoInMin  = 950_000
	vcoInMax  = 2_100_000
	vcoOutMin = 100_000_000
	vcoOutMax = 432_000_000
	pllOutMax = 192_000_000
)

// ClockConfig holds the secondary (audio) PLL multiplier and dividers:
//
//	out = source / M * N / R
type ClockConfig struct {
	M uint8  // input divider, 2..63
	N uint16 // VCO multiplier, 50..432
	R uint8  // output divider, 2..7
}

// Validate checks the configuration against the PLL input, VCO and output
// frequency ranges for the given source oscillator frequency.
func (c ClockConfig) Validate(sourceHz uint32) error {
	if c.M < 2 || c.M > 63 || c.N < 50 || c.N > 432 || c.R < 2 || c.R > 7 {
		return ErrClockRange
	}
	in := c.VCOInputHz(sourceHz)
	if in < vcoInMin || in > vcoInMax {
		return ErrClockRange
	}
	vco := c.VCOOutputHz(sourceHz)
	if vco < vcoOutMin || vco > vcoOutMax {
		return ErrClockRange
	}
	if c.OutputHz(sourceHz) > pllOutMax {
		return ErrClockRange
	}
	return nil
}

// VCOInputHz returns the frequency at the VCO input.
func (c ClockConfig) VCOInputHz(sourceHz uint32) uint32 {
	if c.M == 0 {
		return 0
	}
	return sourceHz / uint32(c.M)
}

// VCOOutputHz returns the VCO frequency.
func (c ClockConfig) VCOOutputHz(sourceHz uint32) uint64 {
	if c.M == 0 {
		return 0
	}
	return uint64(sourceHz) * uint64(c.N) / uint64(c.M)
}

// OutputHz returns the PLL output frequency feeding the I2S engines.
func (c ClockConfig) OutputHz(sourceHz uint32) uint32 {
	if c.R == 0 {
		return 0
	}
	return uint32(c.VCOOutputHz(sourceHz) / uint64(c.R))
}

// ClockControl is the register window of the audio PLL.
type ClockControl interface {
	// SetPLL programs the divider fields. The PLL must be stopped.
	SetPLL(m uint8, n uint16, r uint8)
	SetPLLEnabled(enabled bool)
	PLLReady() bool
}

// ClockDomain owns the audio PLL. Its configuration is frozen after the first
// successful Configure and never changes afterwards.
type ClockDomain struct {
	hw       ClockControl
	sourceHz uint32
	cfg      ClockConfig
	frozen   bool
}

// NewClockDomain returns a domain driving hw from a source oscillator running
// at sourceHz. hw may be nil for boards where the engines are clocked from a
// clock the runtime already configured; Configure then only validates and
// records the configuration.
func NewClockDomain(hw ClockControl, sourceHz uint32) *ClockDomain {
	return &ClockDomain{hw: hw, sourceHz: sourceHz}
}

// Configure programs the PLL, starts it and waits for lock. It fails with
// ErrLockTimeout, leaving the PLL stopped, if the ready flag is not observed
// within LockRetries polls.
func (d *ClockDomain) Configure(cfg ClockConfig) error {
	if d.frozen {
		return ErrClockFrozen
	}
	if err := cfg.Validate(d.sourceHz); err != nil {
		return err
	}
	if d.hw != nil {
		d.hw.SetPLLEnabled(false)
		d.hw.SetPLL(cfg.M, cfg.N, cfg.R)
		d.hw.SetPLLEnabled(true)
		if !d.waitLock() {
			d.hw.SetPLLEnabled(false)
			return ErrLockTimeout
		}
	}
	d.cfg = cfg
	d.frozen = true
	return nil
}

func (d *ClockDomain) waitLock() bool {
	for i := 0; i < LockRetries; i++ {
		if d.hw.PLLReady() {
			return true
		}
	}
	return false
}

// Config returns the frozen configuration and whether Configure succeeded.
func (d *ClockDomain) Config() (ClockConfig, bool) { return d.cfg, d.frozen }

// OutputHz returns the locked PLL output frequency, or 0 before Configure.
func (d *ClockDomain) OutputHz() uint32 {
	if !d.frozen {
		return 0
	}
	return d.cfg.OutputHz(d.sourceHz)
}
