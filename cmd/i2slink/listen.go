package main

import (
	"encoding/binary"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinygo-org/i2slink/i2slink"
)

var (
	listenSeconds float64

	listenCmd = &cobra.Command{
		Use:   "listen <profile>",
		Short: "Play the profile's tone on the host audio device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := lookup(args[0])
			if err != nil {
				return err
			}
			p, err := e.Profile()
			if err != nil {
				return err
			}
			clk := p.Clock.OutputHz(e.SourceHz)
			return play(p, int(p.Format.FrameRate(clk)), time.Duration(listenSeconds*float64(time.Second)))
		},
	}
)

func init() {
	listenCmd.Flags().Float64VarP(&listenSeconds, "seconds", "s", 2, "playback duration")
}

// frameReader renders a profile source as interleaved signed 16-bit little
// endian stereo, the way the DAC would hear it: the high half of each sample
// on both channels.
type frameReader struct {
	src i2slink.Source
}

func (r *frameReader) Read(p []byte) (int, error) {
	n := len(p) / 4 * 4
	for i := 0; i < n; i += 4 {
		v := uint16(uint32(r.src.Next()) >> 16)
		binary.LittleEndian.PutUint16(p[i:], v)
		binary.LittleEndian.PutUint16(p[i+2:], v)
	}
	return n, nil
}
