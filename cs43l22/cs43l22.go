// Package cs43l22 brings up the Cirrus Logic CS43L22 audio DAC found on
// STM32F4 discovery boards, so that it accepts the frame format the I2S
// master produces.
package cs43l22

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"github.com/tinygo-org/i2slink/i2slink"
)

// Address is the 7-bit bus address with AD0 tied low.
const Address = 0x4A

// Registers.
const (
	RegID           = 0x01
	RegPowerCtl1    = 0x02
	RegPowerCtl2    = 0x04
	RegClockingCtl  = 0x05
	RegInterfaceCtl = 0x06
	RegPlaybackCtl2 = 0x0F
	RegMasterVolA   = 0x20
	RegMasterVolB   = 0x21
)

const (
	chipID = 0b11100 // ID register bits 7:3

	powerDown     = 0x01
	powerUp       = 0x9E
	headphoneOnly = 0xAF
	autoDetect    = 0x80

	invSCLK     = 1 << 6
	dacdifLeft  = 0 << 2
	dacdifI2S   = 1 << 2
	dacdifRight = 2 << 2
	awl24       = 0
	awl16       = 3

	hpMute = 0xC0
)

var (
	ErrNotFound    = errors.New("cs43l22: device not found")
	ErrUnsupported = errors.New("cs43l22: frame format not supported")
)

// Pin is the codec reset line.
type Pin interface {
	High()
	Low()
}

// Device is a CS43L22 on an I2C bus.
type Device struct {
	bus     drivers.I2C
	reset   Pin
	Address uint16
	buf     [2]byte
}

// New returns a device on bus. reset may be nil when the line is tied high.
func New(bus drivers.I2C, reset Pin) *Device {
	return &Device{bus: bus, reset: reset, Address: Address}
}

// Configure resets the codec, runs the required power-up sequence and
// selects the serial format matching f. The codec is a clock slave; the
// master clock must already be running.
func (d *Device) Configure(f i2slink.FrameFormat) error {
	ifc, err := interfaceControl(f)
	if err != nil {
		return err
	}
	if d.reset != nil {
		d.reset.Low()
		time.Sleep(time.Millisecond)
		d.reset.High()
		time.Sleep(time.Millisecond)
	}
	if id, err := d.ID(); err != nil {
		return err
	} else if id>>3 != chipID {
		return ErrNotFound
	}
	if err := d.write(RegPowerCtl1, powerDown); err != nil {
		return err
	}
	if err := d.initSequence(); err != nil {
		return err
	}
	for _, w := range [][2]byte{
		{RegPowerCtl2, headphoneOnly},
		{RegClockingCtl, autoDetect},
		{RegInterfaceCtl, ifc},
		{RegPowerCtl1, powerUp},
	} {
		if err := d.write(w[0], w[1]); err != nil {
			return err
		}
	}
	return nil
}

// initSequence is the register sequence the datasheet requires after every
// power-down.
func (d *Device) initSequence() error {
	if err := d.write(0x00, 0x99); err != nil {
		return err
	}
	if err := d.write(0x47, 0x80); err != nil {
		return err
	}
	v, err := d.read(0x32)
	if err != nil {
		return err
	}
	if err := d.write(0x32, v|0x80); err != nil {
		return err
	}
	if err := d.write(0x32, v&^0x80); err != nil {
		return err
	}
	return d.write(0x00, 0x00)
}

func interfaceControl(f i2slink.FrameFormat) (byte, error) {
	var v byte
	switch f.Protocol {
	case i2slink.Philips:
		v = dacdifI2S
	case i2slink.MSB:
		v = dacdifLeft
	case i2slink.LSB:
		v = dacdifRight
		switch f.WordLength {
		case i2slink.Word16:
			v |= awl16
		case i2slink.Word24:
			v |= awl24
		default:
			return 0, ErrUnsupported
		}
	default:
		return 0, ErrUnsupported
	}
	if f.ClockPolarity == i2slink.IdleHigh {
		v |= invSCLK
	}
	return v, nil
}

// ID returns the chip ID and revision register.
func (d *Device) ID() (byte, error) {
	return d.read(RegID)
}

// SetVolume sets both master volume channels in half-dB steps, clamped to
// -102 dB .. +12 dB.
func (d *Device) SetVolume(halfDB int) error {
	if halfDB > 24 {
		halfDB = 24
	}
	if halfDB < -204 {
		halfDB = -204
	}
	v := byte(halfDB & 0xFF)
	if err := d.write(RegMasterVolA, v); err != nil {
		return err
	}
	return d.write(RegMasterVolB, v)
}

// Mute mutes or unmutes both headphone channels.
func (d *Device) Mute(mute bool) error {
	v, err := d.read(RegPlaybackCtl2)
	if err != nil {
		return err
	}
	if mute {
		v |= hpMute
	} else {
		v &^= hpMute
	}
	return d.write(RegPlaybackCtl2, v)
}

func (d *Device) write(reg, v byte) error {
	d.buf[0], d.buf[1] = reg, v
	return d.bus.Tx(d.Address, d.buf[:2], nil)
}

func (d *Device) read(reg byte) (byte, error) {
	d.buf[0] = reg
	if err := d.bus.Tx(d.Address, d.buf[:1], d.buf[1:2]); err != nil {
		return 0, err
	}
	return d.buf[1], nil
}
