package sim

import (
	"errors"
	"log"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/tinygo-org/i2slink/i2slink"
)

var errShortCapture = errors.New("sim: not enough samples")

// Capture records words delivered by the monitor.
type Capture struct {
	halves int
	words  []Word
}

// NewCapture returns a receiver for words in format f.
func NewCapture(f i2slink.FrameFormat) *Capture {
	return &Capture{halves: f.HalfWordsPerChannel()}
}

func (c *Capture) Receive(side i2slink.Side, word uint16) {
	c.words = append(c.words, Word{Side: side, Word: word})
}

// Words returns the raw received half-words.
func (c *Capture) Words() []Word { return c.words }

// Samples reassembles received half-words into samples. For 16-bit frames a
// sample is the left word in the high half; the right word repeats it. For
// wider frames it is the two left-channel halves. Incomplete samples around a
// resync are skipped.
func (c *Capture) Samples() []int32 {
	var out []int32
	if c.halves == 1 {
		for _, w := range c.words {
			if w.Side == i2slink.SideLeft {
				out = append(out, int32(uint32(w.Word)<<16))
			}
		}
		return out
	}
	var hi uint16
	have := false
	for _, w := range c.words {
		switch {
		case w.Side != i2slink.SideLeft:
			have = false
		case !have:
			hi, have = w.Word, true
		default:
			out = append(out, int32(uint32(hi)<<16|uint32(w.Word)))
			have = false
		}
	}
	return out
}

// Fundamental returns the frequency in Hz of the strongest non-DC component of
// samples taken at rate.
func Fundamental(samples []int32, rate uint32) (float64, error) {
	if len(samples) < 4 {
		return 0, errShortCapture
	}
	seq := make([]float64, len(samples))
	for i, s := range samples {
		seq[i] = float64(s)
	}
	fft := fourier.NewFFT(len(seq))
	coeff := fft.Coefficients(nil, seq)
	best, peak := 0, 0.0
	for i := 1; i < len(coeff); i++ {
		if a := cmplx.Abs(coeff[i]); a > peak {
			best, peak = i, a
		}
	}
	return fft.Freq(best) * float64(rate), nil
}

// RampFit fits a line to the first rising ramp in samples and returns its
// slope per sample and coefficient of determination.
func RampFit(samples []int32) (slope, r2 float64, err error) {
	n := 1
	for n < len(samples) && samples[n] > samples[n-1] {
		n++
	}
	if n < 3 {
		return 0, 0, errShortCapture
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = float64(i)
		ys[i] = float64(samples[i])
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta, stat.RSquared(xs, ys, nil, alpha, beta), nil
}

// LogSink writes diagnostic lines to a standard logger.
type LogSink struct {
	*log.Logger
}

func (s LogSink) WriteLineString(line string) { s.Println(line) }
