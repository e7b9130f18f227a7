package rp2

// State machine register field positions, identical on RP2040 and RP2350.
const (
	clkdivFracPos = 8
	clkdivIntPos  = 16

	execWrapBottomPos = 7
	execWrapTopPos    = 12
	execOutStickyPos  = 17
	execJmpPinPos     = 24
	execSidePindirPos = 29
	execSideEnPos     = 30

	execWrapMsk    = 0x1f<<execWrapTopPos | 0x1f<<execWrapBottomPos
	execJmpPinMsk  = 0x1f << execJmpPinPos
	execSideMsk    = 1<<execSideEnPos | 1<<execSidePindirPos
	execOutStkyMsk = 1 << execOutStickyPos

	shiftAutopushPos    = 16
	shiftAutopullPos    = 17
	shiftInShiftdirPos  = 18
	shiftOutShiftdirPos = 19
	shiftPushThreshPos  = 20
	shiftPullThreshPos  = 25
	shiftFjoinRxPos     = 31

	shiftInMsk  = 1<<shiftInShiftdirPos | 1<<shiftAutopushPos | 0x1f<<shiftPushThreshPos
	shiftOutMsk = 1<<shiftOutShiftdirPos | 1<<shiftAutopullPos | 0x1f<<shiftPullThreshPos

	pinOutBasePos      = 0
	pinSetBasePos      = 5
	pinSidesetBasePos  = 10
	pinInBasePos       = 15
	pinOutCountPos     = 20
	pinSetCountPos     = 26
	pinSidesetCountPos = 29

	pinOutMsk         = 0x1f<<pinOutBasePos | 0x3f<<pinOutCountPos
	pinSidesetBaseMsk = 0x1f << pinSidesetBasePos
	pinSidesetCntMsk  = 0x7 << pinSidesetCountPos
	pinInBaseMsk      = 0x1f << pinInBasePos
)

// DefaultConfig mirrors pio_get_default_sm_config: divider 1, wrap over the
// whole instruction memory, both shifters shifting right with a 32 bit
// threshold and no auto push or pull.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.SetClkDivIntFrac(1, 0)
	cfg.SetWrap(0, 31)
	cfg.SetInShift(true, false, 32)
	cfg.SetOutShift(true, false, 32)
	return cfg
}

// Config holds the four per state machine configuration registers.
type Config struct {
	// Frequency = clock freq / (CLKDIV_INT + CLKDIV_FRAC / 256)
	ClkDiv    uint32
	ExecCtrl  uint32
	ShiftCtrl uint32
	PinCtrl   uint32
}

func (cfg *Config) SetClkDivIntFrac(whole uint16, frac uint8) {
	cfg.ClkDiv = uint32(frac)<<clkdivFracPos | uint32(whole)<<clkdivIntPos
}

// SetWrap sets the program wrap bounds as absolute instruction addresses.
func (cfg *Config) SetWrap(wrapTarget uint8, wrap uint8) {
	cfg.ExecCtrl = cfg.ExecCtrl&^execWrapMsk |
		uint32(wrapTarget&0x1f)<<execWrapBottomPos |
		uint32(wrap&0x1f)<<execWrapTopPos
}

// SetInShift sets the ISR direction, autopush and push threshold. A threshold
// of 32 is encoded as 0.
func (cfg *Config) SetInShift(shiftRight bool, autoPush bool, pushThreshold uint16) {
	cfg.ShiftCtrl = cfg.ShiftCtrl&^shiftInMsk |
		boolToBit(shiftRight)<<shiftInShiftdirPos |
		boolToBit(autoPush)<<shiftAutopushPos |
		uint32(pushThreshold&0x1f)<<shiftPushThreshPos
}

// SetOutShift sets the OSR direction, autopull and pull threshold.
func (cfg *Config) SetOutShift(shiftRight bool, autoPull bool, pullThreshold uint16) {
	cfg.ShiftCtrl = cfg.ShiftCtrl&^shiftOutMsk |
		boolToBit(shiftRight)<<shiftOutShiftdirPos |
		boolToBit(autoPull)<<shiftAutopullPos |
		uint32(pullThreshold&0x1f)<<shiftPullThreshPos
}

// SetSidesetParams sets the side-set width, which counts the enable bit
// when optional is set.
func (cfg *Config) SetSidesetParams(bitCount uint8, optional bool, pindirs bool) {
	if bitCount > 5 {
		panic("rp2: side-set bit count")
	}
	cfg.PinCtrl = cfg.PinCtrl&^pinSidesetCntMsk | uint32(bitCount)<<pinSidesetCountPos
	cfg.ExecCtrl = cfg.ExecCtrl&^execSideMsk |
		boolToBit(optional)<<execSideEnPos |
		boolToBit(pindirs)<<execSidePindirPos
}

func (cfg *Config) SetSidesetPins(firstPin uint8) {
	checkPinBaseAndCount(firstPin, 1)
	cfg.PinCtrl = cfg.PinCtrl&^pinSidesetBaseMsk | uint32(firstPin)<<pinSidesetBasePos
}

func (cfg *Config) SetOutPins(base uint8, count uint8) {
	checkPinBaseAndCount(base, count)
	cfg.PinCtrl = cfg.PinCtrl&^pinOutMsk |
		uint32(base)<<pinOutBasePos |
		uint32(count)<<pinOutCountPos
}

func (cfg *Config) SetInPins(base uint8) {
	checkPinBaseAndCount(base, 1)
	cfg.PinCtrl = cfg.PinCtrl&^pinInBaseMsk | uint32(base)<<pinInBasePos
}

// SetJmpPin selects the GPIO tested by jmp pin.
func (cfg *Config) SetJmpPin(pin uint8) {
	checkPinBaseAndCount(pin, 1)
	cfg.ExecCtrl = cfg.ExecCtrl&^execJmpPinMsk | uint32(pin)<<execJmpPinPos
}

func checkPinBaseAndCount(base uint8, count uint8) {
	if base >= 32 {
		panic("rp2: bad pin")
	} else if count > 32 {
		panic("rp2: pin count too large")
	}
}

func boolToBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Place returns cfg with the wrap and side-set settings of p loaded at
// offset. The clock, shift and pin mapping fields are kept.
func (cfg Config) Place(p Program, offset uint8) Config {
	base := p.Config(offset)
	const execMsk = execWrapMsk | execSideMsk
	cfg.ExecCtrl = cfg.ExecCtrl&^execMsk | base.ExecCtrl&execMsk
	cfg.PinCtrl = cfg.PinCtrl&^pinSidesetCntMsk | base.PinCtrl&pinSidesetCntMsk
	return cfg
}
