package rp2

import (
	"errors"

	"github.com/tinygo-org/i2slink/i2slink"
)

// ErrUnsupported is returned for frame formats the PIO programs cannot
// generate or check.
var ErrUnsupported = errors.New("rp2: frame format not supported by PIO engine")

// Program is an assembled PIO program. Addresses are relative to the load
// offset.
type Program struct {
	Instructions []uint16
	// Origin is the required load offset, or -1 if relocatable.
	Origin      int8
	Entry       uint8
	WrapTarget  uint8
	Wrap        uint8
	SidesetBits uint8
}

// Config returns the program's side-set and wrap settings for a load offset.
func (p Program) Config(offset uint8) Config {
	cfg := DefaultConfig()
	cfg.SetWrap(offset+p.WrapTarget, offset+p.Wrap)
	if p.SidesetBits > 0 {
		cfg.SetSidesetParams(p.SidesetBits, false, false)
	}
	return cfg
}

func checkProgramFormat(f i2slink.FrameFormat) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Protocol != i2slink.Philips && f.Protocol != i2slink.MSB {
		return ErrUnsupported
	}
	return nil
}

// MasterProgram returns the transmit program for f. Side-set bit 0 drives the
// bit clock and bit 1 the word select; each bit takes two cycles, so the state
// machine must run at twice the bit clock. Data leaves the OSR MSB first with
// one FIFO word per channel.
//
// Execution starts at Entry with word select low, so the left channel is
// always the first slot shifted out.
func MasterProgram(f i2slink.FrameFormat) (Program, error) {
	if err := checkProgramFormat(f); err != nil {
		return Program{}, err
	}
	n := uint8(f.ChannelLength) - 2
	var inv uint8
	if f.ClockPolarity == i2slink.IdleHigh {
		inv = 1
	}
	side := func(ws, bclk uint8) uint16 { return EncodeSideSet(2, ws<<1|bclk^inv) }

	// Philips moves word select one bit early, MSB-justified with the MSB.
	toRight, toLeft := uint8(1), uint8(0)
	if f.Protocol == i2slink.MSB {
		toRight, toLeft = 0, 1
	}
	out := EncodeOut(SrcDestPins, 1)
	const (
		leftLoop  = 0
		rightLoop = 4
		entry     = 7
	)
	return Program{
		Instructions: []uint16{
			leftLoop: out | side(0, 0),
			EncodeJmp(leftLoop, JmpXNZeroDec) | side(0, 1),
			out | side(toRight, 0),
			EncodeSet(SrcDestX, n) | side(toRight, 1),
			rightLoop: out | side(1, 0),
			EncodeJmp(rightLoop, JmpXNZeroDec) | side(1, 1),
			out | side(toLeft, 0),
			entry: EncodeSet(SrcDestX, n) | side(toLeft, 1),
		},
		Origin:      -1,
		Entry:       entry,
		WrapTarget:  leftLoop,
		Wrap:        entry,
		SidesetBits: 2,
	}, nil
}

// Slave program pin indices relative to the IN base, which is the data pin.
const (
	slaveBCLK = 1
	slaveWS   = 2
)

// SlaveProgram returns the receive program for f. It needs data, bit clock
// and word select on consecutive pins and the word select as jmp pin.
//
// After a word select falling edge it samples one channel per FIFO word and
// checks word select on the first bit of every slot. A mismatch sets relative
// IRQ 0 and stalls until the flag is cleared, then resynchronizes.
func SlaveProgram(f i2slink.FrameFormat) (Program, error) {
	if err := checkProgramFormat(f); err != nil {
		return Program{}, err
	}
	n := uint8(f.ChannelLength) - 2
	sample := f.ClockPolarity == i2slink.IdleLow
	edge := []uint16{
		EncodeWaitPin(!sample, slaveBCLK),
		EncodeWaitPin(sample, slaveBCLK),
	}
	in := EncodeIn(SrcDestPins, 1)

	const entry = 0
	p := []uint16{
		entry: EncodeWaitPin(true, slaveWS),
		EncodeWaitPin(false, slaveWS),
	}
	if f.Protocol == i2slink.Philips {
		// the bit after the word select change belongs to the previous slot
		p = append(p, edge...)
	}
	left := uint8(len(p))
	right := left + 9
	fault := right + 4
	rightOK := right + 6
	p = append(p, EncodeSet(SrcDestX, n))
	p = append(p, edge...)
	p = append(p, EncodeJmp(fault, JmpPinInput), in)
	p = append(p, edge...)
	p = append(p, in, EncodeJmp(left+5, JmpXNZeroDec))

	p = append(p, EncodeSet(SrcDestX, n))
	p = append(p, edge...)
	p = append(p, EncodeJmp(rightOK, JmpPinInput))
	p = append(p, EncodeIRQWait(true, 0), EncodeJmp(entry, JmpAlways))
	p = append(p, in)
	p = append(p, edge...)
	p = append(p, in, EncodeJmp(rightOK+1, JmpXNZeroDec))

	return Program{
		Instructions: p,
		Origin:       -1,
		Entry:        entry,
		WrapTarget:   left,
		Wrap:         uint8(len(p) - 1),
	}, nil
}

// findOffset returns the highest free offset for a program of length n in an
// instruction memory whose used slots are set in used, or -1.
func findOffset(used uint32, n int, origin int8) int8 {
	if n == 0 || n > 32 {
		return -1
	}
	mask := uint32(1<<n - 1)
	if origin >= 0 {
		if int(origin) > 32-n || used&(mask<<origin) != 0 {
			return -1
		}
		return origin
	}
	for i := 32 - n; i >= 0; i-- {
		if used&(mask<<i) == 0 {
			return int8(i)
		}
	}
	return -1
}
