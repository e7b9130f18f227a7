package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tinygo-org/i2slink/profile"
)

var (
	profilesCmd = &cobra.Command{
		Use:   "profiles",
		Short: "List the available profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadProfiles()
			if err != nil {
				return err
			}
			return listProfiles(os.Stdout, f, isTerminal())
		},
	}

	planCmd = &cobra.Command{
		Use:   "plan <profile>...",
		Short: "Print the derived clock tree and register words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, name := range args {
				e, err := lookup(name)
				if err != nil {
					return err
				}
				p, err := profile.NewPlan(e)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Println()
				}
				if _, err := p.WriteTo(os.Stdout); err != nil {
					return err
				}
			}
			return nil
		},
	}
)

// listProfiles writes one line per profile, aligned when w is a terminal and
// tab separated otherwise.
func listProfiles(w io.Writer, f *profile.File, aligned bool) error {
	out := w
	var tw *tabwriter.Writer
	if aligned {
		tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		out = tw
		fmt.Fprintln(out, "NAME\tRATE\tDESCRIPTION")
	}
	for _, name := range f.Names() {
		e, err := f.Lookup(name)
		if err != nil {
			return err
		}
		p, err := profile.NewPlan(e)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%d\t%s\n", e.Name, p.FrameRate, e.Description)
	}
	if tw != nil {
		return tw.Flush()
	}
	return nil
}
