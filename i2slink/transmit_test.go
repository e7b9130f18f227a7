package i2slink

import (
	"errors"
	"reflect"
	"testing"
)

// sideEngine reports an empty transmit buffer for each scripted side, then a
// full one.
type sideEngine struct {
	fakeEngine
	sides []Side
}

func (e *sideEngine) Status() Status {
	if len(e.sides) == 0 {
		return 0
	}
	st := StatusTXE
	if e.sides[0] == SideRight {
		st |= StatusCHSIDE
	}
	return st
}

func (e *sideEngine) Write(v uint16) {
	e.sides = e.sides[1:]
	e.fakeEngine.Write(v)
}

func transmit(t *testing.T, src Source, f FrameFormat, sides ...Side) []uint16 {
	t.Helper()
	e := &sideEngine{sides: sides}
	tx := NewTransmitter(e, src, f)
	for range sides {
		if err := tx.Step(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return e.written
}

const (
	L = SideLeft
	R = SideRight
)

func TestTransmitPattern16(t *testing.T) {
	got := transmit(t, SelfTestPattern, Loopback.Format, L, R, L, R)
	if want := []uint16{0xFF00, 0xFF06, 0xFF00, 0xFF06}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %#x, want %#x", got, want)
	}
}

func TestTransmitTone16(t *testing.T) {
	ref := NewTone(TonePeriod)
	s0, s1 := uint32(ref.At(0)), uint32(ref.At(1))
	got := transmit(t, NewTone(TonePeriod), CodecResync.Format, L, R, L, R)
	want := []uint16{uint16(s0 >> 16), uint16(s0 >> 16), uint16(s1 >> 16), uint16(s1 >> 16)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#x, want %#x", got, want)
	}
}

func TestTransmitWide(t *testing.T) {
	ref := NewTone(TonePeriod)
	s0, s1 := uint32(ref.At(0)), uint32(ref.At(1))
	got := transmit(t, NewTone(TonePeriod), Wide24.Format, L, L, R, R, L, L)
	want := []uint16{
		uint16(s0 >> 16), uint16(s0),
		uint16(s0 >> 16), uint16(s0),
		uint16(s1 >> 16), uint16(s1),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#x, want %#x", got, want)
	}
}

func TestTransmitStall(t *testing.T) {
	e := &sideEngine{}
	tx := NewTransmitter(e, SelfTestPattern, Loopback.Format)
	if tx.TryStep() {
		t.Fatal("TryStep wrote into a full buffer")
	}
	if err := tx.Step(); !errors.Is(err, ErrTxStall) {
		t.Errorf("got %v, want ErrTxStall", err)
	}
	if err := tx.Run(); !errors.Is(err, ErrTxStall) {
		t.Errorf("Run: got %v, want ErrTxStall", err)
	}
}
