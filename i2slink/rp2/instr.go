package rp2

import (
	"errors"
	"math"
)

// Opcode bits 15:13. in and out share the operand layout of set.
const (
	opJMP  = 0x0000
	opWAIT = 0x2000
	opIN   = 0x4000
	opOUT  = 0x6000
	opIRQ  = 0xc000
	opSET  = 0xe000

	opMask = 0xe000
)

// wait source pin, bits 6:5
const waitSrcPin = 1

// irq modes, bits 6:5
const irqModeWait = 1

// SrcDest is the 3-bit operand of in, out and set.
type SrcDest uint8

const (
	SrcDestPins    SrcDest = 0
	SrcDestX       SrcDest = 1
	SrcDestPinDirs SrcDest = 4 // set and out only
)

// JmpCond is the condition field of a jmp instruction.
type JmpCond uint8

const (
	JmpAlways    JmpCond = 0
	JmpXNZeroDec JmpCond = 2 // taken while X is non-zero, X decremented after the test
	JmpPinInput  JmpCond = 6 // EXECCTRL_JMP_PIN high
)

// encode packs an opcode, the 3-bit field at 7:5 and the 5-bit field at 4:0.
func encode(op uint16, mid, low uint8) uint16 {
	return op | uint16(mid&7)<<5 | uint16(low&0x1f)
}

// EncodeSideSet returns the side-set field for a program that reserves
// bitCount bits of the delay field for side-set.
func EncodeSideSet(bitCount, value uint8) uint16 {
	return uint16(value) << (13 - bitCount)
}

func EncodeJmp(addr uint8, condition JmpCond) uint16 {
	return encode(opJMP, uint8(condition), addr)
}

// EncodeWaitPin waits on an input pin indexed relative to the IN base.
func EncodeWaitPin(polarity bool, pin uint8) uint16 {
	return encode(opWAIT, boolAsU8(polarity)<<2|waitSrcPin, pin)
}

func EncodeIn(src SrcDest, bits uint8) uint16 { return encode(opIN, uint8(src), bits) }

func EncodeOut(dest SrcDest, bits uint8) uint16 { return encode(opOUT, uint8(dest), bits) }

func EncodeSet(dest SrcDest, value uint8) uint16 { return encode(opSET, uint8(dest), value) }

// EncodeIRQWait sets an IRQ flag and stalls until something clears it. A
// relative flag is offset by the state machine index.
func EncodeIRQWait(relative bool, irq uint8) uint16 {
	return encode(opIRQ, irqModeWait, boolAsU8(relative)<<4|irq&7)
}

func isJmp(instr uint16) bool { return instr&opMask == opJMP }

// Relocate returns a copy of a program with every jump target moved by
// offset, as required when loading it anywhere other than address 0.
func Relocate(instructions []uint16, offset uint8) []uint16 {
	out := make([]uint16, len(instructions))
	for i, instr := range instructions {
		if isJmp(instr) {
			instr += uint16(offset)
		}
		out[i] = instr
	}
	return out
}

var (
	errClkDivLarge = errors.New("rp2: clock divider too large for requested frequency")
	errClkDivSmall = errors.New("rp2: clock divider too small for requested frequency")
)

// ClkDivFromFrequency calculates the CLKDIV register values to reach a given
// state machine cycle frequency. freq and cpuFreq are in Hz.
func ClkDivFromFrequency(freq, cpuFreq uint32) (whole uint16, frac uint8, err error) {
	if freq == 0 {
		return 0, 0, errClkDivLarge
	}
	//  freq = 256*clockfreq / (256*whole + frac)
	//  256*whole + frac = 256*clockfreq / freq
	return splitClkdiv(256 * uint64(cpuFreq) / uint64(freq))
}

func splitClkdiv(clkdiv uint64) (whole uint16, frac uint8, err error) {
	if clkdiv > 256*math.MaxUint16 {
		return 0, 0, errClkDivLarge
	} else if clkdiv < 256 {
		return 0, 0, errClkDivSmall
	}
	whole = uint16(clkdiv / 256)
	frac = uint8(clkdiv % 256)
	return whole, frac, nil
}

func boolAsU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
