package profile

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tinygo-org/i2slink/i2slink"
)

// Plan is the derived clock tree and register contents for one profile.
type Plan struct {
	Name        string
	SourceHz    uint32
	VCOInputHz  uint32
	VCOOutputHz uint64
	I2SClockHz  uint32
	BitClockHz  uint32
	FrameRate   uint32
	ToneHz      float64 // 0 for pattern profiles
	MasterCfg   uint32
	SlaveCfg    uint32
	Prescaler   uint32
}

// NewPlan derives the plan for e. The entry must be valid.
func NewPlan(e Entry) (Plan, error) {
	p, err := e.Profile()
	if err != nil {
		return Plan{}, err
	}
	if err := p.Clock.Validate(e.SourceHz); err != nil {
		return Plan{}, fmt.Errorf("profile %q: %w", e.Name, err)
	}
	clk := p.Clock.OutputHz(e.SourceHz)
	plan := Plan{
		Name:        e.Name,
		SourceHz:    e.SourceHz,
		VCOInputHz:  p.Clock.VCOInputHz(e.SourceHz),
		VCOOutputHz: p.Clock.VCOOutputHz(e.SourceHz),
		I2SClockHz:  clk,
		BitClockHz:  p.Format.BitClock(clk),
		FrameRate:   p.Format.FrameRate(clk),
		MasterCfg:   p.Format.ConfigWord(i2slink.MasterTransmit),
		SlaveCfg:    p.Format.ConfigWord(i2slink.SlaveReceive),
		Prescaler:   p.Format.PrescalerWord(),
	}
	if p.Pattern == 0 {
		period := p.TonePeriod
		if period == 0 {
			period = i2slink.TonePeriod
		}
		plan.ToneHz = float64(plan.FrameRate) / float64(period)
	}
	return plan, nil
}

// WriteTo prints the plan as an aligned table.
func (p Plan) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	tw := tabwriter.NewWriter(cw, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "profile\t%s\n", p.Name)
	fmt.Fprintf(tw, "source\t%d Hz\n", p.SourceHz)
	fmt.Fprintf(tw, "vco in\t%d Hz\n", p.VCOInputHz)
	fmt.Fprintf(tw, "vco out\t%d Hz\n", p.VCOOutputHz)
	fmt.Fprintf(tw, "i2s clock\t%d Hz\n", p.I2SClockHz)
	fmt.Fprintf(tw, "bit clock\t%d Hz\n", p.BitClockHz)
	fmt.Fprintf(tw, "frame rate\t%d Hz\n", p.FrameRate)
	if p.ToneHz != 0 {
		fmt.Fprintf(tw, "tone\t%.2f Hz\n", p.ToneHz)
	}
	fmt.Fprintf(tw, "I2SCFGR master\t%#04x\n", p.MasterCfg)
	fmt.Fprintf(tw, "I2SCFGR slave\t%#04x\n", p.SlaveCfg)
	fmt.Fprintf(tw, "I2SPR master\t%#04x\n", p.Prescaler)
	err := tw.Flush()
	return cw.n, err
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
