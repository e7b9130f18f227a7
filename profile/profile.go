// Package profile loads link profiles from YAML. The built-in set is embedded
// and mirrors the i2slink profile values; a user file can replace it on the
// host tools.
package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/tinygo-org/i2slink/i2slink"
)

//go:embed profiles.yaml
var rawProfiles []byte

var ErrNotFound = errors.New("profile: not found")

type File struct {
	Profiles []Entry `yaml:"profiles"`
}

type Entry struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	SourceHz    uint32  `yaml:"source_hz"`
	Clock       Clock   `yaml:"clock"`
	Format      Format  `yaml:"format"`
	SlaveFormat *Format `yaml:"slave_format"` // optional, defaults to format
	Source      string  `yaml:"source"`      // pattern | tone
	Pattern     string  `yaml:"pattern"`
	TonePeriod  uint32  `yaml:"tone_period"`
	Recovery    string  `yaml:"recovery"` // edge | poll
	ReportEvery uint32  `yaml:"report_every"`
}

type Clock struct {
	M uint8  `yaml:"m"`
	N uint16 `yaml:"n"`
	R uint8  `yaml:"r"`
}

type Format struct {
	Word        int    `yaml:"word"`
	Channel     int    `yaml:"channel"`
	Protocol    string `yaml:"protocol"`
	Polarity    string `yaml:"polarity"`
	Divider     uint8  `yaml:"divider"`
	Odd         bool   `yaml:"odd"`
	MasterClock bool   `yaml:"master_clock"`
}

var protocols = map[string]i2slink.Protocol{
	"philips":   i2slink.Philips,
	"msb":       i2slink.MSB,
	"lsb":       i2slink.LSB,
	"pcm-short": i2slink.PCMShort,
	"pcm-long":  i2slink.PCMLong,
}

var polarities = map[string]i2slink.ClockPolarity{
	"idle-low":  i2slink.IdleLow,
	"idle-high": i2slink.IdleHigh,
}

var recoveries = map[string]i2slink.Recovery{
	"":     i2slink.RecoverOnEdge,
	"edge": i2slink.RecoverOnEdge,
	"poll": i2slink.RecoverPollFirst,
}

// Default returns the embedded profile set.
func Default() (*File, error) {
	return Parse(rawProfiles)
}

// Load reads a profile file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML profile document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &f, nil
}

// Validate checks every entry and reports all problems at once.
// It does not modify f.
func Validate(f *File) error {
	var errs []error
	seen := make(map[string]bool)
	for _, e := range f.Profiles {
		if e.Name == "" {
			errs = append(errs, errors.New("profile without a name"))
			continue
		}
		if seen[e.Name] {
			errs = append(errs, fmt.Errorf("profile %q: duplicate name", e.Name))
		}
		seen[e.Name] = true
		if e.SourceHz == 0 {
			errs = append(errs, fmt.Errorf("profile %q: source_hz is required", e.Name))
			continue
		}
		p, err := e.Profile()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.Clock.Validate(e.SourceHz); err != nil {
			errs = append(errs, fmt.Errorf("profile %q: %w", e.Name, err))
		}
		if err := p.Format.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("profile %q: %w", e.Name, err))
		}
		if e.SlaveFormat != nil && !p.Format.SameShape(p.SlaveFormat) {
			errs = append(errs, fmt.Errorf("profile %q: %w", e.Name, i2slink.ErrFormatMismatch))
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the entry called name.
func (f *File) Lookup(name string) (Entry, error) {
	i := slices.IndexFunc(f.Profiles, func(e Entry) bool { return e.Name == name })
	if i < 0 {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return f.Profiles[i], nil
}

// Names returns the profile names in sorted order.
func (f *File) Names() []string {
	set := make(map[string]struct{}, len(f.Profiles))
	for _, e := range f.Profiles {
		set[e.Name] = struct{}{}
	}
	names := maps.Keys(set)
	slices.Sort(names)
	return names
}

// Profile converts the entry to the value the link bring-up takes.
func (e Entry) Profile() (i2slink.Profile, error) {
	p := i2slink.Profile{
		Name:        e.Name,
		Clock:       i2slink.ClockConfig{M: e.Clock.M, N: e.Clock.N, R: e.Clock.R},
		TonePeriod:  e.TonePeriod,
		ReportEvery: e.ReportEvery,
	}
	var err error
	if p.Format, err = e.Format.frameFormat(); err != nil {
		return p, fmt.Errorf("profile %q: format: %w", e.Name, err)
	}
	if e.SlaveFormat != nil {
		if p.SlaveFormat, err = e.SlaveFormat.frameFormat(); err != nil {
			return p, fmt.Errorf("profile %q: slave_format: %w", e.Name, err)
		}
	}
	rec, ok := recoveries[e.Recovery]
	if !ok {
		return p, fmt.Errorf("profile %q: unknown recovery %q", e.Name, e.Recovery)
	}
	p.Recovery = rec

	switch e.Source {
	case "pattern":
		v, err := strconv.ParseUint(e.Pattern, 0, 32)
		if err != nil || v == 0 {
			return p, fmt.Errorf("profile %q: invalid pattern %q", e.Name, e.Pattern)
		}
		p.Pattern = i2slink.Pattern(v)
	case "tone", "":
	default:
		return p, fmt.Errorf("profile %q: unknown source %q", e.Name, e.Source)
	}
	return p, nil
}

func (f Format) frameFormat() (i2slink.FrameFormat, error) {
	proto, ok := protocols[f.Protocol]
	if !ok {
		return i2slink.FrameFormat{}, fmt.Errorf("unknown protocol %q", f.Protocol)
	}
	pol, ok := polarities[f.Polarity]
	if !ok {
		return i2slink.FrameFormat{}, fmt.Errorf("unknown polarity %q", f.Polarity)
	}
	if f.Word <= 0 || f.Word > 255 || f.Channel <= 0 || f.Channel > 255 {
		return i2slink.FrameFormat{}, i2slink.ErrFormat
	}
	return i2slink.FrameFormat{
		WordLength:        i2slink.WordLength(f.Word),
		ChannelLength:     i2slink.ChannelLength(f.Channel),
		Protocol:          proto,
		ClockPolarity:     pol,
		Divider:           f.Divider,
		Odd:               f.Odd,
		MasterClockOutput: f.MasterClock,
	}, nil
}
