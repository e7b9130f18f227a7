//go:build stm32f4

// Package stm32f4 provides the i2slink register windows for STM32F4 parts:
// the PLLI2S audio PLL, SPI2 and SPI3 in I2S mode, and an EXTI line watching
// the slave's word-select pin.
//
// The default wiring is the STM32F4-Discovery: SPI3 is the master and drives
// the on-board CS43L22 (MCK PC7, CK PC10, SD PC12, WS PA4); SPI2 is the slave
// (CK PB13, WS PB12, SD PB15). A loopback needs PC10-PB13, PA4-PB12 and
// PC12-PB15 jumpered.
package stm32f4

import (
	"device/stm32"
	"errors"
	"machine"
	"runtime/interrupt"

	"github.com/tinygo-org/i2slink/i2slink"
)

// SourceHz is the Discovery's HSE crystal.
const SourceHz = 8_000_000

const (
	rccCRPLLI2SON  = 1 << 26
	rccCRPLLI2SRDY = 1 << 27
	rccCFGRI2SSRC  = 1 << 23 // 0 selects PLLI2S as I2S clock

	plli2sMPos = 0 // PLLI2SM, absent on F405/F407 where PLLCFGR.PLLM is shared
	plli2sNPos = 6
	plli2sRPos = 28

	spiCR2ERRIE  = 1 << 5
	spiCR2RXNEIE = 1 << 6
	spiCR2TXEIE  = 1 << 7

	apb1SPI2EN   = 1 << 14
	apb1SPI3EN   = 1 << 15
	apb2SYSCFGEN = 1 << 14

	afSPI2 = 5
	afSPI3 = 6

	extiPortB = 1
)

var errEnabled = errors.New("stm32f4: I2S engine configured while enabled")

// PLLI2S is the RCC window of the audio PLL.
type PLLI2S struct{}

func (PLLI2S) SetPLL(m uint8, n uint16, r uint8) {
	stm32.RCC.CFGR.ClearBits(rccCFGRI2SSRC)
	stm32.RCC.PLLI2SCFGR.Set(uint32(r)<<plli2sRPos | uint32(n)<<plli2sNPos | uint32(m)<<plli2sMPos)
}

func (PLLI2S) SetPLLEnabled(enabled bool) {
	if enabled {
		stm32.RCC.CR.SetBits(rccCRPLLI2SON)
	} else {
		stm32.RCC.CR.ClearBits(rccCRPLLI2SON)
	}
}

func (PLLI2S) PLLReady() bool { return stm32.RCC.CR.HasBits(rccCRPLLI2SRDY) }

// Engine is one SPI peripheral in I2S mode.
type Engine struct {
	bus *stm32.SPI_Type
}

func (e *Engine) Configure(role i2slink.Role, f i2slink.FrameFormat, clockHz uint32) error {
	if e.Enabled() {
		return errEnabled
	}
	e.bus.I2SCFGR.Set(f.ConfigWord(role))
	if role == i2slink.MasterTransmit {
		e.bus.I2SPR.Set(f.PrescalerWord())
	} else {
		e.bus.I2SPR.Set(2) // reset value, unused by a slave
	}
	return nil
}

func (e *Engine) SetEnabled(enabled bool) {
	if enabled {
		e.bus.I2SCFGR.SetBits(i2slink.ConfigEnable)
	} else {
		e.bus.I2SCFGR.ClearBits(i2slink.ConfigEnable)
	}
}

func (e *Engine) Enabled() bool { return e.bus.I2SCFGR.HasBits(i2slink.ConfigEnable) }

// Status reads SPI_SR; the read itself has the hardware clear side effects.
func (e *Engine) Status() i2slink.Status { return i2slink.Status(e.bus.SR.Get()) }

func (e *Engine) Read() uint16 { return uint16(e.bus.DR.Get()) }

func (e *Engine) Write(v uint16) { e.bus.DR.Set(uint32(v)) }

func (e *Engine) SetInterrupts(mask i2slink.Status) {
	var cr2 uint32
	if mask&i2slink.StatusErrors != 0 {
		cr2 |= spiCR2ERRIE
	}
	if mask&i2slink.StatusRXNE != 0 {
		cr2 |= spiCR2RXNEIE
	}
	if mask&i2slink.StatusTXE != 0 {
		cr2 |= spiCR2TXEIE
	}
	e.bus.CR2.ReplaceBits(cr2, spiCR2ERRIE|spiCR2RXNEIE|spiCR2TXEIE, 0)
}

// Edge is an EXTI line with a rising trigger. The trigger stays selected so
// the pending bit latches every edge; the interrupt mask is the watch.
type Edge struct {
	pin  machine.Pin
	line uint8
}

func (e *Edge) High() bool { return e.pin.Get() }

func (e *Edge) SetWatch(enabled bool) {
	if enabled {
		stm32.EXTI.IMR.SetBits(1 << e.line)
	} else {
		stm32.EXTI.IMR.ClearBits(1 << e.line)
	}
}

func (e *Edge) Pending() bool { return stm32.EXTI.PR.HasBits(1 << e.line) }

// ClearPending writes 1 to the pending bit.
func (e *Edge) ClearPending() { stm32.EXTI.PR.Set(1 << e.line) }

// Board is the Discovery wiring. Only one Board may exist.
type Board struct {
	Clock  PLLI2S
	Master *Engine
	Slave  *Engine
	Edge   *Edge

	masterIRQ interrupt.Interrupt
	slaveIRQ  interrupt.Interrupt
	edgeIRQ   interrupt.Interrupt
}

var (
	masterHandler func()
	slaveHandler  func()
	edgeHandler   func()
)

// NewBoard enables the peripheral clocks, routes the pins and selects PB12
// as EXTI line 12 with a rising trigger. Nothing is enabled.
func NewBoard() *Board {
	stm32.RCC.APB1ENR.SetBits(apb1SPI2EN | apb1SPI3EN)
	stm32.RCC.APB2ENR.SetBits(apb2SYSCFGEN)

	out := machine.PinConfig{Mode: machine.PinModeSPICLK}
	for _, p := range []machine.Pin{machine.PC7, machine.PC10, machine.PC12, machine.PA4} {
		p.ConfigureAltFunc(out, afSPI3)
	}
	in := machine.PinConfig{Mode: machine.PinModeSPISDI}
	for _, p := range []machine.Pin{machine.PB12, machine.PB13, machine.PB15} {
		p.ConfigureAltFunc(in, afSPI2)
	}

	const line = 12
	// EXTICR4 holds lines 12-15, four bits each.
	stm32.SYSCFG.EXTICR4.ReplaceBits(extiPortB, 0xf, 0)
	stm32.EXTI.RTSR.SetBits(1 << line)
	stm32.EXTI.FTSR.ClearBits(1 << line)
	stm32.EXTI.IMR.ClearBits(1 << line)
	stm32.EXTI.PR.Set(1 << line)

	b := &Board{
		Master: &Engine{bus: stm32.SPI3},
		Slave:  &Engine{bus: stm32.SPI2},
		Edge:   &Edge{pin: machine.PB12, line: line},
	}
	b.masterIRQ = interrupt.New(stm32.IRQ_SPI3, func(interrupt.Interrupt) {
		if masterHandler != nil {
			masterHandler()
		}
	})
	b.slaveIRQ = interrupt.New(stm32.IRQ_SPI2, func(interrupt.Interrupt) {
		if slaveHandler != nil {
			slaveHandler()
		}
	})
	b.edgeIRQ = interrupt.New(stm32.IRQ_EXTI15_10, func(interrupt.Interrupt) {
		if edgeHandler != nil {
			edgeHandler()
		}
	})
	return b
}

// Board returns the register windows in the form i2slink.Start takes.
func (b *Board) Board() i2slink.Board {
	return i2slink.Board{
		Clock:    b.Clock,
		SourceHz: SourceHz,
		Master:   b.Master,
		Slave:    b.Slave,
		Edge:     b.Edge,
		IRQ:      b,
		Sink:     i2slink.PrintSink{},
		Attach:   b.AttachMonitor,
	}
}

// AttachMonitor routes the three interrupt vectors to m.
func (b *Board) AttachMonitor(m *i2slink.Monitor) {
	masterHandler = m.HandleMasterInterrupt
	slaveHandler = m.HandleSlaveInterrupt
	edgeHandler = m.HandleEdgeInterrupt
}

// Unmask implements i2slink.InterruptController.
func (b *Board) Unmask(sources i2slink.IRQ) {
	if sources&i2slink.IRQMaster != 0 {
		b.masterIRQ.Enable()
	}
	if sources&i2slink.IRQSlave != 0 {
		b.slaveIRQ.Enable()
	}
	if sources&i2slink.IRQEdge != 0 {
		b.edgeIRQ.Enable()
	}
}
