// Command i2slink inspects and simulates the link profiles on a host.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tinygo-org/i2slink/profile"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "i2slink",
		Short: "Inspect and simulate dual I2S link profiles",
		Long: "i2slink lists the link profiles, derives their clock plans and runs them " +
			"against a simulated board with fault injection.",
		SilenceUsage: true,
	}
)

func init() {
	log.SetFlags(0)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "profile file (default: built-in profiles)")
	rootCmd.AddCommand(profilesCmd, planCmd, simulateCmd, listenCmd)
}

// loadProfiles returns the selected profile file after validation.
func loadProfiles() (*profile.File, error) {
	var (
		f   *profile.File
		err error
	)
	if configPath == "" {
		f, err = profile.Default()
	} else {
		f, err = profile.Load(configPath)
	}
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(f); err != nil {
		return nil, err
	}
	return f, nil
}

func lookup(name string) (profile.Entry, error) {
	f, err := loadProfiles()
	if err != nil {
		return profile.Entry{}, err
	}
	return f.Lookup(name)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("i2slink: %v", err)
	}
}
