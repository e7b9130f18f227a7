package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tinygo-org/i2slink/i2slink"
	"github.com/tinygo-org/i2slink/profile"
	"github.com/tinygo-org/i2slink/sim"
)

var errLoopback = errors.New("loopback check failed")

type simOptions struct {
	Frames    int
	SlipEvery int // frames between injected slips, 0 disables
	HoldAt    int // frame at which slave interrupts are held off
	HoldSlots int
	LockAfter int
}

type simResult struct {
	Stats       i2slink.Stats
	State       i2slink.SyncState
	FrameRate   uint32
	Fundamental float64 // tone profiles only
	Slope       float64
	RSquared    float64
	Matches     uint32 // pattern profiles only
	Mismatches  uint32
}

var (
	simOpts simOptions

	simulateCmd = &cobra.Command{
		Use:   "simulate <profile>",
		Short: "Run a profile against the simulated board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := lookup(args[0])
			if err != nil {
				return err
			}
			_, err = runSimulation(os.Stdout, e, simOpts)
			return err
		},
	}
)

func init() {
	f := simulateCmd.Flags()
	f.IntVarP(&simOpts.Frames, "frames", "n", 48000, "frames to simulate")
	f.IntVar(&simOpts.SlipEvery, "slip-every", 0, "inject a slave slot slip every n frames")
	f.IntVar(&simOpts.HoldAt, "hold-at", 0, "frame at which slave interrupts are held off")
	f.IntVar(&simOpts.HoldSlots, "hold", 0, "slots to hold slave interrupts off for (forces overrun)")
	f.IntVar(&simOpts.LockAfter, "lock-after", 0, "PLL ready polls before lock, negative never locks")
}

func runSimulation(w io.Writer, e profile.Entry, opts simOptions) (simResult, error) {
	var res simResult
	p, err := e.Profile()
	if err != nil {
		return res, err
	}
	logger := log.New(w, "", 0)

	b := sim.NewBoard()
	b.PLL.LockAfter = opts.LockAfter
	board := b.Board()
	board.SourceHz = e.SourceHz
	board.Sink = sim.LogSink{Logger: logger}
	board.Fatal = func(msg string) { logger.Printf("fatal: %s", msg) }
	var capture *sim.Capture
	if p.Pattern == 0 {
		capture = sim.NewCapture(p.Format)
		board.Receiver = capture
	}

	sys, err := i2slink.Start(board, p)
	if err != nil {
		return res, err
	}
	tx := sys.Transmitter()
	for i := 0; i < 2*opts.Frames; i++ {
		if opts.SlipEvery > 0 && i > 0 && i%(2*opts.SlipEvery) == 0 {
			b.Slip()
		}
		if opts.HoldSlots > 0 && i == 2*opts.HoldAt {
			b.Hold(opts.HoldSlots)
		}
		b.Run(tx, 1)
		if i%i2slink.DrainEvery == 0 {
			sys.Drain()
		}
	}
	sys.Drain()

	res.Stats = sys.Monitor().Stats()
	res.State = sys.Monitor().State()
	res.FrameRate = sys.Link().FrameRate()
	if capture != nil {
		samples := capture.Samples()
		if res.Fundamental, err = sim.Fundamental(samples, res.FrameRate); err != nil {
			return res, err
		}
		if res.Slope, res.RSquared, err = sim.RampFit(samples); err != nil {
			return res, err
		}
	}
	if check := sys.Check(); check != nil {
		res.Matches, res.Mismatches = check.Matches(), check.Mismatches()
	}
	if err := report(w, res); err != nil {
		return res, err
	}
	if sys.Check() != nil && !sys.Check().OK() {
		return res, errLoopback
	}
	return res, nil
}

func report(w io.Writer, r simResult) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "state\t%v\n", r.State)
	fmt.Fprintf(tw, "frame rate\t%d Hz\n", r.FrameRate)
	fmt.Fprintf(tw, "received\t%d\n", r.Stats.Received)
	fmt.Fprintf(tw, "frame errors\t%d\n", r.Stats.FrameErrors)
	fmt.Fprintf(tw, "resyncs\t%d\n", r.Stats.Resyncs)
	fmt.Fprintf(tw, "overruns\t%d\n", r.Stats.Overruns)
	fmt.Fprintf(tw, "underruns\t%d\n", r.Stats.Underruns)
	fmt.Fprintf(tw, "master faults\t%d\n", r.Stats.MasterFrameErrors+r.Stats.MasterOverruns+r.Stats.MasterUnderruns)
	fmt.Fprintf(tw, "spurious edges\t%d\n", r.Stats.SpuriousEdges)
	fmt.Fprintf(tw, "dropped events\t%d\n", r.Stats.DroppedEvents)
	if r.Fundamental != 0 {
		fmt.Fprintf(tw, "fundamental\t%.2f Hz\n", r.Fundamental)
		fmt.Fprintf(tw, "ramp slope\t%.0f (r2 %.6f)\n", r.Slope, r.RSquared)
	}
	if r.Matches+r.Mismatches != 0 {
		fmt.Fprintf(tw, "loopback\t%d ok, %d bad\n", r.Matches, r.Mismatches)
	}
	return tw.Flush()
}
