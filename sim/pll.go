package sim

// PLL simulates the audio PLL control and ready bits.
type PLL struct {
	// LockAfter is the number of ready polls after enable before the PLL
	// reports lock. Negative values never lock.
	LockAfter int

	M       uint8
	N       uint16
	R       uint8
	enabled bool
	polls   int
}

func (p *PLL) SetPLL(m uint8, n uint16, r uint8) {
	p.M, p.N, p.R = m, n, r
}

func (p *PLL) SetPLLEnabled(enabled bool) {
	p.enabled = enabled
	p.polls = 0
}

func (p *PLL) PLLReady() bool {
	if !p.enabled || p.LockAfter < 0 {
		return false
	}
	p.polls++
	return p.polls > p.LockAfter
}

// Enabled reports whether the PLL is running.
func (p *PLL) Enabled() bool { return p.enabled }
