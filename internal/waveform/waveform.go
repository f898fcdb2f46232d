// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package waveform renders port values over ticks as a step plot, one lane
// per port.
package waveform

import (
	"io"
	"os"
	"strings"

	"github.com/db47h/redsim"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// lane is the vertical space allotted to each port. Signals range from 0 to 15.
const lane = 20

// Sources returns the names of every source port in snap, as "component.port".
//
func Sources(snap *redsim.Snapshot) []string {
	var names []string
	for i := range snap.Ports {
		if p := &snap.Ports[i]; p.Source {
			names = append(names, p.Component+"."+p.Port)
		}
	}
	return names
}

// Plot returns a plot of the given ports over the snapshots. Ports are named
// "component.port".
//
func Plot(title string, snaps []*redsim.Snapshot, ports []string) (*plot.Plot, error) {
	if len(snaps) == 0 {
		return nil, errors.New("no snapshots")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "tick"
	p.Y.Label.Text = "signal"
	p.Y.Tick.Marker = plot.ConstantTicks(laneTicks(ports))

	for i, name := range ports {
		comp, port, ok := split(name)
		if !ok {
			return nil, errors.Errorf("bad port name %q", name)
		}
		xys := make(plotter.XYs, 0, len(snaps))
		for _, s := range snaps {
			v, ok := s.Port(comp, port)
			if !ok {
				return nil, errors.Errorf("tick %d: no port %s", s.Tick, name)
			}
			xys = append(xys, plotter.XY{X: float64(s.Tick), Y: float64(i*lane) + float64(v.Value())})
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		l.StepStyle = plotter.PreStep
		l.Color = plotutil.Color(i)
		p.Add(l)
		p.Legend.Add(name, l)
	}
	return p, nil
}

// Render writes the plot of the given ports as an image in the given format
// ("png", "svg", "pdf", ...).
//
func Render(w io.Writer, format, title string, snaps []*redsim.Snapshot, ports []string) error {
	p, err := Plot(title, snaps, ports)
	if err != nil {
		return err
	}
	height := vg.Length(len(ports)+1) * vg.Inch
	if height < 3*vg.Inch {
		height = 3 * vg.Inch
	}
	wt, err := p.WriterTo(8*vg.Inch, height, format)
	if err != nil {
		return errors.Wrap(err, "render waveform")
	}
	_, err = wt.WriteTo(w)
	return errors.WithStack(err)
}

// Save renders the waveform to the file at path. The format is derived from
// the file extension.
//
func Save(path, title string, snaps []*redsim.Snapshot, ports []string) error {
	format := "png"
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		format = strings.ToLower(path[i+1:])
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := Render(f, format, title, snaps, ports); err != nil {
		_ = f.Close()
		return err
	}
	return errors.WithStack(f.Close())
}

func laneTicks(ports []string) []plot.Tick {
	ts := make([]plot.Tick, 0, 2*len(ports))
	for i := range ports {
		ts = append(ts, plot.Tick{Value: float64(i * lane), Label: "0"})
		ts = append(ts, plot.Tick{Value: float64(i*lane + int(redsim.On)), Label: "15"})
	}
	return ts
}

func split(name string) (comp, port string, ok bool) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}
