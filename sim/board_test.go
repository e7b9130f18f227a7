package sim

import (
	"bytes"
	"errors"
	"log"
	"reflect"
	"strings"
	"testing"

	"github.com/tinygo-org/i2slink/i2slink"
)

func start(t *testing.T, b *Board, p i2slink.Profile, edit func(*i2slink.Board)) (*i2slink.System, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	board := b.Board()
	board.Sink = LogSink{log.New(&buf, "", 0)}
	board.Fatal = func(msg string) { t.Fatalf("fatal: %s", msg) }
	if edit != nil {
		edit(&board)
	}
	sys, err := i2slink.Start(board, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sys, &buf
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func TestLoopbackEndToEnd(t *testing.T) {
	b := NewBoard()
	sys, buf := start(t, b, i2slink.Loopback, nil)

	if got := b.Master.ConfigWord(); got != 0xA09|i2slink.ConfigEnable {
		t.Errorf("master I2SCFGR %#x", got)
	}
	if got := b.Slave.ConfigWord(); got != 0x909|i2slink.ConfigEnable {
		t.Errorf("slave I2SCFGR %#x", got)
	}
	if got := b.Master.PrescalerWord(); got != 0x13E {
		t.Errorf("master I2SPR %#x", got)
	}
	if b.PLL.M != 8 || b.PLL.N != 192 || b.PLL.R != 3 {
		t.Errorf("PLL %d/%d/%d", b.PLL.M, b.PLL.N, b.PLL.R)
	}
	if b.Unmasked() != i2slink.IRQMaster|i2slink.IRQSlave|i2slink.IRQEdge {
		t.Errorf("unmasked %b", b.Unmasked())
	}

	b.Run(sys.Transmitter(), 200)
	sent := b.Transmitted()
	if sent[0] != (Word{i2slink.SideLeft, 0xFF00}) || sent[1] != (Word{i2slink.SideRight, 0xFF06}) {
		t.Errorf("first frame %#v", sent[:2])
	}
	check := sys.Check()
	if check.Matches() != 200 || check.Mismatches() != 0 {
		t.Errorf("check: %d matches, %d mismatches", check.Matches(), check.Mismatches())
	}
	if sys.Monitor().State() != i2slink.Locked {
		t.Errorf("state %v", sys.Monitor().State())
	}
	if got := lines(buf); !reflect.DeepEqual(got, []string{"init done"}) {
		t.Errorf("log %q", got)
	}
}

func TestLoopbackFirstWords(t *testing.T) {
	b := NewBoard()
	c := NewCapture(i2slink.Loopback.Format)
	sys, _ := start(t, b, i2slink.Loopback, func(board *i2slink.Board) { board.Receiver = c })
	b.Run(sys.Transmitter(), 2)
	want := []Word{{i2slink.SideLeft, 0xFF00}, {i2slink.SideRight, 0xFF06}}
	if !reflect.DeepEqual(c.Words(), want) {
		t.Errorf("received %#v", c.Words())
	}
}

func TestResyncOnEdge(t *testing.T) {
	b := NewBoard()
	sys, buf := start(t, b, i2slink.Loopback, nil)
	tx := sys.Transmitter()
	b.Run(tx, 10)
	b.Slip()
	b.Run(tx, 1)
	if st := sys.Monitor().State(); st != i2slink.AwaitingEdge {
		t.Fatalf("state %v after slip", st)
	}
	if b.Slave.Enabled() || !b.WS.Watching() {
		t.Error("slave not parked on edge watch")
	}
	b.Run(tx, 1)
	if st := sys.Monitor().State(); st != i2slink.Locked {
		t.Fatalf("state %v after rising edge", st)
	}
	b.Run(tx, 100)
	sys.Drain()

	stats := sys.Monitor().Stats()
	if stats.FrameErrors != 1 || stats.Resyncs != 1 {
		t.Errorf("stats %+v", stats)
	}
	if sys.Check().Mismatches() != 0 {
		t.Errorf("%d mismatched words after resync", sys.Check().Mismatches())
	}
	if got, want := lines(buf), []string{"init done", "Frame Error", "Resynced"}; !reflect.DeepEqual(got, want) {
		t.Errorf("log %q, want %q", got, want)
	}
}

func TestResyncIgnoresFallingEdge(t *testing.T) {
	b := NewBoard()
	sys, _ := start(t, b, i2slink.Loopback, nil)
	tx := sys.Transmitter()
	b.Run(tx, 11)
	b.Slip()
	b.Run(tx, 1)
	if b.Slot()%2 != 1 || !b.WS.High() {
		t.Fatalf("slot %d: fault not on a right slot", b.Slot())
	}
	if st := sys.Monitor().State(); st != i2slink.AwaitingEdge {
		t.Fatalf("state %v after slip", st)
	}

	b.Run(tx, 1) // left slot, word-select falls
	if b.WS.High() {
		t.Fatal("word-select still high")
	}
	if st := sys.Monitor().State(); st != i2slink.AwaitingEdge || b.Slave.Enabled() {
		t.Fatalf("state %v, slave enabled %v after falling edge", st, b.Slave.Enabled())
	}

	b.Run(tx, 1) // right slot, word-select rises
	if st := sys.Monitor().State(); st != i2slink.Locked || !b.Slave.Enabled() {
		t.Fatalf("state %v, slave enabled %v after rising edge", st, b.Slave.Enabled())
	}
	b.Run(tx, 100)
	if stats := sys.Monitor().Stats(); stats.FrameErrors != 1 || stats.Resyncs != 1 {
		t.Errorf("stats %+v", stats)
	}
	if sys.Check().Mismatches() != 0 {
		t.Errorf("%d mismatched words after resync", sys.Check().Mismatches())
	}
}

func TestLineLatchesWhileMasked(t *testing.T) {
	l := &Line{}
	l.Drive(true)
	if !l.Pending() || l.Watching() {
		t.Fatalf("pending %v watching %v", l.Pending(), l.Watching())
	}
	l.ClearPending()
	l.Drive(false)
	l.Drive(false)
	if l.Pending() {
		t.Error("falling edge latched")
	}
	l.Drive(true)
	l.Drive(true)
	if !l.Pending() || !l.High() {
		t.Error("rising edge lost")
	}
}

func TestResyncPollFirst(t *testing.T) {
	b := NewBoard()
	sys, _ := start(t, b, i2slink.LoopbackPolled, nil)
	tx := sys.Transmitter()
	b.Run(tx, 11)
	b.Slip()
	b.Run(tx, 1) // right slot, word-select high
	if st := sys.Monitor().State(); st != i2slink.Locked {
		t.Fatalf("state %v", st)
	}
	if !b.Slave.Enabled() {
		t.Error("slave not re-enabled")
	}
	b.Run(tx, 100)
	stats := sys.Monitor().Stats()
	if stats.FrameErrors != 1 || stats.Resyncs != 1 {
		t.Errorf("stats %+v", stats)
	}
	if sys.Check().Mismatches() != 0 {
		t.Errorf("%d mismatched words after resync", sys.Check().Mismatches())
	}
}

func TestOverrun(t *testing.T) {
	b := NewBoard()
	sys, _ := start(t, b, i2slink.Loopback, nil)
	tx := sys.Transmitter()
	b.Run(tx, 4)
	b.Hold(3)
	b.Run(tx, 10)
	stats := sys.Monitor().Stats()
	if stats.Overruns != 1 {
		t.Errorf("overruns %d", stats.Overruns)
	}
	if sys.Monitor().State() != i2slink.Locked {
		t.Errorf("state %v", sys.Monitor().State())
	}
	if st := b.Slave.Status(); st.Has(i2slink.StatusOVR) {
		t.Error("OVR still set")
	}
	if sys.Check().Mismatches() != 0 {
		t.Errorf("%d mismatches", sys.Check().Mismatches())
	}
}

func TestMasterUnderrun(t *testing.T) {
	b := NewBoard()
	sys, _ := start(t, b, i2slink.Loopback, nil)
	b.Tick()
	if got := sys.Monitor().Stats().MasterUnderruns; got != 1 {
		t.Errorf("master underruns %d", got)
	}
	if sys.Monitor().State() != i2slink.Locked {
		t.Errorf("state %v", sys.Monitor().State())
	}
}

func TestPLLNeverLocks(t *testing.T) {
	b := NewBoard()
	b.PLL.LockAfter = -1
	board := b.Board()
	var fatal string
	board.Fatal = func(msg string) { fatal = msg }
	_, err := i2slink.Start(board, i2slink.Loopback)
	if !errors.Is(err, i2slink.ErrLockTimeout) || fatal != err.Error() {
		t.Fatalf("got %v, fatal %q", err, fatal)
	}
	if b.PLL.Enabled() || b.Master.Enabled() || b.Slave.Enabled() {
		t.Error("hardware left running")
	}
}

func TestToneRoundTrip(t *testing.T) {
	for _, p := range []i2slink.Profile{i2slink.CodecResync, i2slink.Wide24} {
		b := NewBoard()
		c := NewCapture(p.Format)
		sys, _ := start(t, b, p, func(board *i2slink.Board) { board.Receiver = c })
		b.Run(sys.Transmitter(), 2*10*i2slink.TonePeriod)

		samples := c.Samples()
		if len(samples) != 10*i2slink.TonePeriod {
			t.Fatalf("%s: %d samples", p.Name, len(samples))
		}
		tone := i2slink.NewTone(i2slink.TonePeriod)
		mask := ^uint32(0)
		if p.Format.HalfWordsPerChannel() == 1 {
			mask = 0xFFFF0000
		}
		for i, s := range samples[:i2slink.TonePeriod] {
			if want := int32(uint32(tone.At(uint32(i))) & mask); s != want {
				t.Fatalf("%s: sample %d = %d, want %d", p.Name, i, s, want)
			}
		}
		rate := sys.Link().FrameRate()
		f, err := Fundamental(samples, rate)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", p.Name, err)
		}
		want := float64(rate) / i2slink.TonePeriod
		if f < want-1 || f > want+1 {
			t.Errorf("%s: fundamental %.2f Hz, want %.2f", p.Name, f, want)
		}
	}
}

func TestToneSameOnBothChannels(t *testing.T) {
	b := NewBoard()
	sys, _ := start(t, b, i2slink.CodecResync, nil)
	b.Run(sys.Transmitter(), 8)
	sent := b.Transmitted()
	if len(sent) != 8 {
		t.Fatalf("%d words sent", len(sent))
	}
	tone := i2slink.NewTone(i2slink.TonePeriod)
	for i, w := range sent {
		want := uint16(uint32(tone.At(uint32(i/2))) >> 16)
		if w.Side != sideOf(i) || w.Word != want {
			t.Errorf("slot %d: %v %#x, want %#x", i, w.Side, w.Word, want)
		}
	}
}
