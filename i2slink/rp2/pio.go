//go:build rp2040 || rp2350

package rp2

import (
	"device/rp"
	"errors"
	"machine"
	"runtime/volatile"
	"unsafe"
)

// PIO peripheral handles.
var (
	PIO0 = &PIO{hw: rp.PIO0}
	PIO1 = &PIO{hw: rp.PIO1}
)

// PIO errors.
var (
	ErrOutOfProgramSpace   = errors.New("rp2: out of program space")
	errStateMachineClaimed = errors.New("rp2: state machine already claimed")
)

const badStateMachineIndex = "invalid state machine index"

// FDEBUG sticky flag positions, shifted by the state machine index.
const (
	fdebugRxStallPos = 0
	fdebugTxStallPos = 24
)

// IRQn_INTE source positions, shifted by the state machine index.
const (
	inteRxNotEmptyPos = 0
	inteTxNotFullPos  = 4
	inteFlagPos       = 8
)

// PIO is one PIO block.
type PIO struct {
	hw *rp.PIO0_Type
	// Bitmask of used instruction space. Each PIO has 32 slots for instructions.
	usedSpaceMask uint32
	// Bitmask of used state machines. Each PIO has 4 state machines.
	claimedSMMask uint8
}

// ClaimStateMachine returns an unused state machine whose system interrupt
// is routed to the block's interrupt line (0 or 1).
func (pio *PIO) ClaimStateMachine(line uint8) (*StateMachine, error) {
	for i := uint8(0); i < 4; i++ {
		if pio.claimedSMMask&(1<<i) == 0 {
			pio.claimedSMMask |= 1 << i
			return &StateMachine{pio: pio, index: i, line: line & 1}, nil
		}
	}
	return nil, errStateMachineClaimed
}

// AddProgram loads a program into instruction memory, relocating its jumps,
// and returns the offset where it was loaded.
func (pio *PIO) AddProgram(instructions []uint16, origin int8) (offset uint8, _ error) {
	maybeOffset := findOffset(pio.usedSpaceMask, len(instructions), origin)
	if maybeOffset < 0 {
		return 0, ErrOutOfProgramSpace
	}
	offset = uint8(maybeOffset)
	for i, instr := range Relocate(instructions, offset) {
		pio.writeInstructionMemory(offset+uint8(i), instr)
	}
	programMask := uint32(1<<len(instructions) - 1)
	pio.usedSpaceMask |= programMask << offset
	return offset, nil
}

func (pio *PIO) writeInstructionMemory(offset uint8, value uint16) {
	// Instruction memory registers are 32-bit with the lower 16 used,
	// laid out consecutively from INSTR_MEM0.
	start := unsafe.Pointer(&pio.hw.INSTR_MEM0)
	reg := (*volatile.Register32)(unsafe.Add(start, uintptr(offset)*4))
	reg.Set(uint32(value))
}

// PinMode returns the pin function that hands a GPIO to this block.
func (pio *PIO) PinMode() machine.PinMode {
	if pio.hw == rp.PIO1 {
		return machine.PinPIO1
	}
	return machine.PinPIO0
}

func (pio *PIO) inte(line uint8) *volatile.Register32 {
	if line == 0 {
		return &pio.hw.IRQ0_INTE
	}
	return &pio.hw.IRQ1_INTE
}

type statemachineHW struct {
	CLKDIV    volatile.Register32 // 0xC8 for SM0
	EXECCTRL  volatile.Register32 // 0xCC for SM0
	SHIFTCTRL volatile.Register32 // 0xD0 for SM0
	ADDR      volatile.Register32 // 0xD4 for SM0
	INSTR     volatile.Register32 // 0xD8 for SM0
	PINCTRL   volatile.Register32 // 0xDC for SM0
}

func (pio *PIO) smHW(index uint8) *statemachineHW {
	if index > 3 {
		panic(badStateMachineIndex)
	}
	// 24 bytes (6 registers) per state machine
	const size = unsafe.Sizeof(statemachineHW{})
	return (*statemachineHW)(unsafe.Add(unsafe.Pointer(&pio.hw.SM0_CLKDIV), uintptr(index)*size))
}

// StateMachine is one claimed PIO state machine running one program. It
// implements Machine.
type StateMachine struct {
	pio   *PIO
	index uint8
	line  uint8
	entry uint8 // absolute entry address of the loaded program
}

func (sm *StateMachine) hw() *statemachineHW { return sm.pio.smHW(sm.index) }

// Load adds p to the block's instruction memory and applies cfg.
func (sm *StateMachine) Load(p Program, cfg Config) error {
	offset, err := sm.pio.AddProgram(p.Instructions, p.Origin)
	if err != nil {
		return err
	}
	sm.entry = offset + p.Entry
	sm.SetEnabled(false)
	sm.setConfig(cfg.Place(p, offset))
	sm.Restart()
	return nil
}

func (sm *StateMachine) setConfig(cfg Config) {
	hw := sm.hw()
	hw.CLKDIV.Set(cfg.ClkDiv)
	hw.EXECCTRL.Set(cfg.ExecCtrl)
	hw.SHIFTCTRL.Set(cfg.ShiftCtrl)
	hw.PINCTRL.Set(cfg.PinCtrl)
}

// SetEnabled controls whether the state machine is running.
func (sm *StateMachine) SetEnabled(enabled bool) {
	sm.pio.hw.CTRL.ReplaceBits(boolToBit(enabled), 0x1, sm.index)
}

// Enabled returns true if the state machine is running.
func (sm *StateMachine) Enabled() bool {
	return sm.pio.hw.CTRL.HasBits(1 << (rp.PIO0_CTRL_SM_ENABLE_Pos + sm.index))
}

// Restart halts the machine, flushes its FIFOs, clears its stall and IRQ
// flags and shift counters, and points it at the program entry.
func (sm *StateMachine) Restart() {
	sm.SetEnabled(false)
	sm.clearFIFOs()
	sm.Stalls()
	sm.ClearFlag()
	sm.pio.hw.CTRL.SetBits(1<<(rp.PIO0_CTRL_SM_RESTART_Pos+sm.index) |
		1<<(rp.PIO0_CTRL_CLKDIV_RESTART_Pos+sm.index))
	sm.exec(EncodeJmp(sm.entry, JmpAlways))
}

func (sm *StateMachine) clearFIFOs() {
	// FIFOs are flushed when the join bit changes; toggling twice restores it.
	shiftctl := &sm.hw().SHIFTCTRL
	xorBits(shiftctl, 1<<shiftFjoinRxPos)
	xorBits(shiftctl, 1<<shiftFjoinRxPos)
}

func (sm *StateMachine) exec(instr uint16) {
	sm.hw().INSTR.Set(uint32(instr))
}

func (sm *StateMachine) TxFull() bool {
	return sm.pio.hw.FSTAT.HasBits(1 << (rp.PIO0_FSTAT_TXFULL_Pos + sm.index))
}

func (sm *StateMachine) RxEmpty() bool {
	return sm.pio.hw.FSTAT.HasBits(1 << (rp.PIO0_FSTAT_RXEMPTY_Pos + sm.index))
}

// TxPut writes to the TX FIFO without checking for room.
func (sm *StateMachine) TxPut(data uint32) { sm.fifo(&sm.pio.hw.TXF0).Set(data) }

// RxGet reads the RX FIFO without checking for data.
func (sm *StateMachine) RxGet() uint32 { return sm.fifo(&sm.pio.hw.RXF0).Get() }

func (sm *StateMachine) fifo(base *volatile.Register32) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Add(unsafe.Pointer(base), uintptr(sm.index)*4))
}

// Stalls reports and clears the sticky TXSTALL and RXSTALL flags.
func (sm *StateMachine) Stalls() (tx, rx bool) {
	txMask := uint32(1) << (fdebugTxStallPos + sm.index)
	rxMask := uint32(1) << (fdebugRxStallPos + sm.index)
	dbg := sm.pio.hw.FDEBUG.Get() & (txMask | rxMask)
	if dbg != 0 {
		sm.pio.hw.FDEBUG.Set(dbg) // write 1 to clear
	}
	return dbg&txMask != 0, dbg&rxMask != 0
}

// flag is the IRQ flag a relative irq 0 in this machine's program refers to.
func (sm *StateMachine) flag() uint32 { return 1 << sm.index }

func (sm *StateMachine) Flag() bool { return sm.pio.hw.IRQ.HasBits(sm.flag()) }
func (sm *StateMachine) ClearFlag() { sm.pio.hw.IRQ.Set(sm.flag()) }

// SetInterruptSources routes the machine's FIFO and flag sources to its
// interrupt line. Only flags 0-3 reach the system interrupt, which the
// relative flag of machines 0-3 always does.
func (sm *StateMachine) SetInterruptSources(rxReady, txReady, flag bool) {
	mask := uint32(1)<<(inteRxNotEmptyPos+sm.index) |
		uint32(1)<<(inteTxNotFullPos+sm.index) |
		uint32(1)<<(inteFlagPos+sm.index)
	value := boolToBit(rxReady)<<(inteRxNotEmptyPos+sm.index) |
		boolToBit(txReady)<<(inteTxNotFullPos+sm.index) |
		boolToBit(flag)<<(inteFlagPos+sm.index)
	sm.pio.inte(sm.line).ReplaceBits(value, mask, 0)
}

// SetPindirsConsecutive sets a range of pins to either 'in' or 'out' from
// the state machine's point of view.
func (sm *StateMachine) SetPindirsConsecutive(pin machine.Pin, count uint8, isOut bool) {
	checkPinBaseAndCount(uint8(pin), count)
	hw := sm.hw()
	pinctrlSaved := hw.PINCTRL.Get()
	execctrlSaved := hw.EXECCTRL.Get()
	hw.EXECCTRL.ClearBits(execOutStkyMsk)
	for i := uint8(pin); i < uint8(pin)+count; i++ {
		hw.PINCTRL.Set(1<<pinSetCountPos | uint32(i)<<pinSetBasePos)
		sm.exec(EncodeSet(SrcDestPinDirs, boolAsU8(isOut)))
	}
	hw.PINCTRL.Set(pinctrlSaved)
	hw.EXECCTRL.Set(execctrlSaved)
}

const regAliasXOR = 0x1 << 12

// xorBits writes bits through the register's atomic XOR alias.
func xorBits(reg *volatile.Register32, bits uint32) {
	alias := uintptr(unsafe.Pointer(reg)) | regAliasXOR
	(*volatile.Register32)(unsafe.Pointer(alias)).Set(bits)
}
