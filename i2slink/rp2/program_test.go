package rp2

import (
	"errors"
	"testing"

	"github.com/tinygo-org/i2slink/i2slink"
)

func checkProgram(t *testing.T, got, expected []uint16) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("program length %d, want %d", len(got), len(expected))
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("instr %d mismatch got!=expected: %#x != %#x", i, got[i], expected[i])
		}
	}
}

func TestMasterProgramPhilips(t *testing.T) {
	f := i2slink.FrameFormat{
		WordLength:    i2slink.Word16,
		ChannelLength: i2slink.Channel16,
		Protocol:      i2slink.Philips,
		Divider:       2,
	}
	p, err := MasterProgram(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkProgram(t, p.Instructions, []uint16{
		0x6001, //  0: out    pins, 1         side 0b00
		0x0840, //  1: jmp    x--, 0          side 0b01
		0x7001, //  2: out    pins, 1         side 0b10
		0xf82e, //  3: set    x, 14           side 0b11
		0x7001, //  4: out    pins, 1         side 0b10
		0x1844, //  5: jmp    x--, 4          side 0b11
		0x6001, //  6: out    pins, 1         side 0b00
		0xe82e, //  7: set    x, 14           side 0b01
	})
	if p.Entry != 7 || p.WrapTarget != 0 || p.Wrap != 7 || p.SidesetBits != 2 || p.Origin != -1 {
		t.Errorf("program layout %+v", p)
	}
}

func TestMasterProgramMSBIdleHigh(t *testing.T) {
	f := i2slink.Wide24.Format
	p, err := MasterProgram(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkProgram(t, p.Instructions, []uint16{
		0x6801, //  0: out    pins, 1         side 0b01
		0x0040, //  1: jmp    x--, 0          side 0b00
		0x6801, //  2: out    pins, 1         side 0b01
		0xe03e, //  3: set    x, 30           side 0b00
		0x7801, //  4: out    pins, 1         side 0b11
		0x1044, //  5: jmp    x--, 4          side 0b10
		0x7801, //  6: out    pins, 1         side 0b11
		0xf03e, //  7: set    x, 30           side 0b10
	})
}

func TestSlaveProgramPhilips(t *testing.T) {
	f := i2slink.FrameFormat{
		WordLength:    i2slink.Word16,
		ChannelLength: i2slink.Channel16,
		Protocol:      i2slink.Philips,
		Divider:       2,
	}
	p, err := SlaveProgram(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkProgram(t, p.Instructions, []uint16{
		0x20a2, //  0: wait   1 pin, 2
		0x2022, //  1: wait   0 pin, 2
		0x2021, //  2: wait   0 pin, 1
		0x20a1, //  3: wait   1 pin, 1
		0xe02e, //  4: set    x, 14
		0x2021, //  5: wait   0 pin, 1
		0x20a1, //  6: wait   1 pin, 1
		0x00d1, //  7: jmp    pin, 17
		0x4001, //  8: in     pins, 1
		0x2021, //  9: wait   0 pin, 1
		0x20a1, // 10: wait   1 pin, 1
		0x4001, // 11: in     pins, 1
		0x0049, // 12: jmp    x--, 9
		0xe02e, // 13: set    x, 14
		0x2021, // 14: wait   0 pin, 1
		0x20a1, // 15: wait   1 pin, 1
		0x00d3, // 16: jmp    pin, 19
		0xc030, // 17: irq    wait 0 rel
		0x0000, // 18: jmp    0
		0x4001, // 19: in     pins, 1
		0x2021, // 20: wait   0 pin, 1
		0x20a1, // 21: wait   1 pin, 1
		0x4001, // 22: in     pins, 1
		0x0054, // 23: jmp    x--, 20
	})
	if p.Entry != 0 || p.WrapTarget != 4 || p.Wrap != 23 {
		t.Errorf("program layout %+v", p)
	}
}

func TestSlaveProgramMSBSkipsNoBit(t *testing.T) {
	f := i2slink.Wide24.Format
	p, err := SlaveProgram(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Instructions) != 22 || p.WrapTarget != 2 {
		t.Fatalf("program layout %+v", p)
	}
	// idle high samples on the falling edge
	if p.Instructions[3] != EncodeWaitPin(true, slaveBCLK) || p.Instructions[4] != EncodeWaitPin(false, slaveBCLK) {
		t.Errorf("edge wait %#x %#x", p.Instructions[3], p.Instructions[4])
	}
	if p.Instructions[2] != EncodeSet(SrcDestX, 30) {
		t.Errorf("bit count %#x", p.Instructions[2])
	}
}

func TestProgramRejectsFormats(t *testing.T) {
	lsb := i2slink.Loopback.Format
	lsb.Protocol = i2slink.LSB
	if _, err := MasterProgram(lsb); !errors.Is(err, ErrUnsupported) {
		t.Errorf("master LSB: got %v", err)
	}
	pcm := i2slink.Loopback.Format
	pcm.Protocol = i2slink.PCMShort
	if _, err := SlaveProgram(pcm); !errors.Is(err, ErrUnsupported) {
		t.Errorf("slave PCM: got %v", err)
	}
	bad := i2slink.Loopback.Format
	bad.Divider = 0
	if _, err := MasterProgram(bad); !errors.Is(err, i2slink.ErrFormat) {
		t.Errorf("bad divider: got %v", err)
	}
}

func TestProgramsFitMemory(t *testing.T) {
	for _, p := range i2slink.Profiles {
		m, err := MasterProgram(p.Format)
		if err != nil {
			t.Fatalf("%s: %v", p.Name, err)
		}
		s, err := SlaveProgram(p.Format)
		if err != nil {
			t.Fatalf("%s: %v", p.Name, err)
		}
		if n := len(m.Instructions) + len(s.Instructions); n > 32 {
			t.Errorf("%s: %d instructions", p.Name, n)
		}
	}
}

func TestEncode(t *testing.T) {
	for _, tc := range []struct {
		got, want uint16
	}{
		{EncodeJmp(0, JmpAlways), 0x0000},
		{EncodeJmp(4, JmpXNZeroDec), 0x0044},
		{EncodeJmp(17, JmpPinInput), 0x00d1},
		{EncodeWaitPin(true, 2), 0x20a2},
		{EncodeWaitPin(false, 1), 0x2021},
		{EncodeIn(SrcDestPins, 1), 0x4001},
		{EncodeOut(SrcDestPins, 1), 0x6001},
		{EncodeOut(SrcDestPins, 32), 0x6000}, // 32 encodes as 0
		{EncodeSet(SrcDestX, 14), 0xe02e},
		{EncodeSet(SrcDestPinDirs, 1), 0xe081},
		{EncodeIRQWait(true, 0), 0xc030},
		{EncodeIRQWait(false, 3), 0xc023},
		{EncodeSideSet(1, 1), 0x1000},
		{EncodeSideSet(2, 3), 0x1800},
		{EncodeSet(SrcDestX, 14) | EncodeSideSet(2, 3), 0xf82e},
	} {
		if tc.got != tc.want {
			t.Errorf("instr mismatch got!=expected: %#x != %#x", tc.got, tc.want)
		}
	}
}

func TestRelocate(t *testing.T) {
	prog := []uint16{EncodeJmp(3, JmpXNZeroDec), EncodeOut(SrcDestPins, 1), EncodeJmp(0, JmpAlways)}
	got := Relocate(prog, 8)
	checkProgram(t, got, []uint16{EncodeJmp(11, JmpXNZeroDec), EncodeOut(SrcDestPins, 1), EncodeJmp(8, JmpAlways)})
	if prog[0] != EncodeJmp(3, JmpXNZeroDec) {
		t.Error("Relocate modified its input")
	}
}

func TestFindOffset(t *testing.T) {
	for _, tc := range []struct {
		used   uint32
		n      int
		origin int8
		want   int8
	}{
		{0, 8, -1, 24},
		{0xff000000, 8, -1, 16},
		{0xff000000, 24, -1, 0},
		{0xff000000, 25, -1, -1},
		{0, 8, 4, 4},
		{0x10, 8, 4, -1},
		{0, 8, 25, -1},
		{0, 32, -1, 0},
		{0, 0, -1, -1},
	} {
		if got := findOffset(tc.used, tc.n, tc.origin); got != tc.want {
			t.Errorf("findOffset(%#x, %d, %d) = %d, want %d", tc.used, tc.n, tc.origin, got, tc.want)
		}
	}
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ClkDiv != 0x10000 || cfg.ExecCtrl != 0x1f000 || cfg.ShiftCtrl != 0xc0000 || cfg.PinCtrl != 0 {
		t.Errorf("default config %#x %#x %#x %#x", cfg.ClkDiv, cfg.ExecCtrl, cfg.ShiftCtrl, cfg.PinCtrl)
	}
	p, _ := MasterProgram(i2slink.Loopback.Format)
	cfg = p.Config(8)
	if cfg.ExecCtrl != 0xf400 {
		t.Errorf("exec ctrl %#x, want 0xf400", cfg.ExecCtrl)
	}
	if cfg.PinCtrl != 0x40000000 {
		t.Errorf("pin ctrl %#x, want 0x40000000", cfg.PinCtrl)
	}
	cfg.SetOutShift(false, true, 16)
	if cfg.ShiftCtrl != 0x20060000 {
		t.Errorf("shift ctrl %#x", cfg.ShiftCtrl)
	}
}

func TestClkDivFromFrequency(t *testing.T) {
	whole, frac, err := ClkDivFromFrequency(1_024_000, 125_000_000)
	if err != nil || whole != 122 || frac != 18 {
		t.Errorf("got %d+%d/256, %v", whole, frac, err)
	}
	if _, _, err := ClkDivFromFrequency(250_000_000, 125_000_000); err == nil {
		t.Error("expected error for divider below 1")
	}
	if _, _, err := ClkDivFromFrequency(1, 125_000_000); err == nil {
		t.Error("expected error for divider overflow")
	}
	if _, _, err := ClkDivFromFrequency(0, 125_000_000); err == nil {
		t.Error("expected error for zero frequency")
	}
}
