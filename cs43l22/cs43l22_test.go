package cs43l22

import (
	"errors"
	"testing"

	"github.com/tinygo-org/i2slink/i2slink"
)

type fakeBus struct {
	regs   [256]byte
	writes [][2]byte
	err    error
}

func newFakeBus() *fakeBus {
	b := &fakeBus{}
	b.regs[RegID] = chipID<<3 | 0x3
	b.regs[0x32] = 0x3B
	return b
}

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	if addr != Address {
		return errors.New("nack")
	}
	if len(w) == 2 {
		b.regs[w[0]] = w[1]
		b.writes = append(b.writes, [2]byte{w[0], w[1]})
	}
	if len(r) > 0 {
		r[0] = b.regs[w[0]]
	}
	return nil
}

func (b *fakeBus) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{r}, buf)
}

func (b *fakeBus) WriteRegister(addr uint8, r uint8, buf []byte) error {
	return b.Tx(uint16(addr), append([]byte{r}, buf...), nil)
}

type fakePin struct{ edges []bool }

func (p *fakePin) High() { p.edges = append(p.edges, true) }
func (p *fakePin) Low() { p.edges = append(p.edges, false) }

func TestConfigure(t *testing.T) {
	bus := newFakeBus()
	pin := &fakePin{}
	d := New(bus, pin)
	if err := d.Configure(i2slink.CodecResync.Format); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pin.edges) != 2 || pin.edges[0] || !pin.edges[1] {
		t.Errorf("reset edges %v", pin.edges)
	}
	want := [][2]byte{
		{RegPowerCtl1, 0x01},
		{0x00, 0x99},
		{0x47, 0x80},
		{0x32, 0xBB},
		{0x32, 0x3B},
		{0x00, 0x00},
		{RegPowerCtl2, 0xAF},
		{RegClockingCtl, 0x80},
		{RegInterfaceCtl, 0x04},
		{RegPowerCtl1, 0x9E},
	}
	if len(bus.writes) != len(want) {
		t.Fatalf("writes %#x, want %#x", bus.writes, want)
	}
	for i := range want {
		if bus.writes[i] != want[i] {
			t.Errorf("write %d: %#x, want %#x", i, bus.writes[i], want[i])
		}
	}
}

func TestInterfaceControl(t *testing.T) {
	lsb16 := i2slink.FrameFormat{WordLength: i2slink.Word16, ChannelLength: i2slink.Channel32, Protocol: i2slink.LSB, Divider: 2}
	lsb32 := lsb16
	lsb32.WordLength = i2slink.Word32
	pcm := lsb16
	pcm.Protocol = i2slink.PCMShort
	for _, tc := range []struct {
		name string
		f    i2slink.FrameFormat
		want byte
		err  error
	}{
		{"philips", i2slink.Loopback.Format, 0x04, nil},
		{"msb idle high", i2slink.Wide24.Format, 0x40, nil},
		{"lsb 16", lsb16, 0x0B, nil},
		{"lsb 32", lsb32, 0, ErrUnsupported},
		{"pcm", pcm, 0, ErrUnsupported},
	} {
		got, err := interfaceControl(tc.f)
		if !errors.Is(err, tc.err) || got != tc.want {
			t.Errorf("%s: got %#x, %v; want %#x, %v", tc.name, got, err, tc.want, tc.err)
		}
	}
}

func TestConfigureWrongChip(t *testing.T) {
	bus := newFakeBus()
	bus.regs[RegID] = 0xFF
	if err := New(bus, nil).Configure(i2slink.CodecResync.Format); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if len(bus.writes) != 0 {
		t.Errorf("wrote to unknown device: %#x", bus.writes)
	}
}

func TestConfigureBusError(t *testing.T) {
	bus := newFakeBus()
	bus.err = errors.New("bus stuck")
	if err := New(bus, nil).Configure(i2slink.CodecResync.Format); err != bus.err {
		t.Errorf("got %v", err)
	}
}

func TestVolumeAndMute(t *testing.T) {
	bus := newFakeBus()
	d := New(bus, nil)
	for _, tc := range []struct {
		halfDB int
		want   byte
	}{
		{0, 0x00},
		{24, 0x18},
		{100, 0x18},
		{-1, 0xFF},
		{-204, 0x34},
		{-500, 0x34},
	} {
		if err := d.SetVolume(tc.halfDB); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if bus.regs[RegMasterVolA] != tc.want || bus.regs[RegMasterVolB] != tc.want {
			t.Errorf("volume %d: %#x/%#x, want %#x", tc.halfDB, bus.regs[RegMasterVolA], bus.regs[RegMasterVolB], tc.want)
		}
	}
	bus.regs[RegPlaybackCtl2] = 0x05
	if err := d.Mute(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bus.regs[RegPlaybackCtl2] != 0xC5 {
		t.Errorf("muted: %#x", bus.regs[RegPlaybackCtl2])
	}
	d.Mute(false)
	if bus.regs[RegPlaybackCtl2] != 0x05 {
		t.Errorf("unmuted: %#x", bus.regs[RegPlaybackCtl2])
	}
}
