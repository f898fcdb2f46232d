// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package tuning loads the run configuration of the redsim command.
package tuning

import (
	"os"

	"github.com/db47h/redsim"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Tuning is the run configuration.
//
type Tuning struct {
	MaxTicks    uint64 `yaml:"max_ticks"`
	ButtonTicks uint64 `yaml:"button_ticks"`
	PlateTicks  uint64 `yaml:"plate_ticks"`
	// Number of snapshots kept in memory. 0 keeps all of them.
	Keep int `yaml:"keep"`

	Output Output `yaml:"output"`
}

// Output lists optional run artifacts. Empty paths disable them.
//
type Output struct {
	Trace string `yaml:"trace"` // JSONL+zstd snapshot trace
	Plot  string `yaml:"plot"`  // waveform PNG
	// Ports plotted in the waveform, as "component.port". Defaults to every
	// source port.
	PlotPorts []string `yaml:"plot_ports"`
	DB        string   `yaml:"db"` // SQLite run index
}

// Default returns the default configuration.
//
func Default() Tuning {
	return Tuning{
		MaxTicks:    redsim.DefaultMaxTicks,
		ButtonTicks: redsim.DefaultButtonTicks,
		PlateTicks:  redsim.DefaultPlateTicks,
	}
}

// Load reads the YAML configuration file at path. Missing values are set to
// their defaults.
//
func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, errors.WithStack(err)
	}
	if err := Decode(raw, &t); err != nil {
		return t, errors.Wrap(err, path)
	}
	return t, nil
}

// Decode decodes a YAML configuration into t. Fields absent from raw keep
// their value.
//
func Decode(raw []byte, t *Tuning) error {
	if err := yaml.Unmarshal(raw, t); err != nil {
		return errors.Wrap(err, "decode tuning")
	}
	if t.Keep < 0 {
		return errors.Errorf("keep: negative value %d", t.Keep)
	}
	return nil
}

// Options returns the simulation options for t.
//
func (t *Tuning) Options() *redsim.Options {
	return &redsim.Options{
		MaxTicks:    t.MaxTicks,
		ButtonTicks: t.ButtonTicks,
		PlateTicks:  t.PlateTicks,
		Keep:        t.Keep,
	}
}
