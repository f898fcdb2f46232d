// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package rstest provides utility functions for testing circuits.
//
package rstest

import (
	"math/rand"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/db47h/redsim"
	"github.com/pkg/errors"
)

// Trace logs the stack trace of err, if any.
//
func Trace(t testing.TB, err error) {
	t.Helper()
	if err, ok := err.(interface {
		StackTrace() errors.StackTrace
	}); ok {
		for _, f := range err.StackTrace() {
			t.Logf("%+v ", f)
		}
	}
}

// Switches returns the names of the switches in c, in declaration order.
//
func Switches(c *redsim.Circuit) []string {
	var names []string
	for i := 0; i < c.Len(); i++ {
		switch cc := c.Component(redsim.CompID(i)); cc.Kind {
		case redsim.Lever, redsim.Button, redsim.PressurePlate:
			names = append(names, cc.Name)
		}
	}
	return names
}

// RandomStimuli returns n random stimuli on the switches of c, spread over
// ticks [0, span).
//
func RandomStimuli(r *rand.Rand, c *redsim.Circuit, n int, span uint64) []redsim.Stimulus {
	sw := Switches(c)
	if len(sw) == 0 || span == 0 {
		return nil
	}
	stims := make([]redsim.Stimulus, 0, n)
	for i := 0; i < n; i++ {
		name := sw[r.Intn(len(sw))]
		id, _ := c.Lookup(name)
		a := redsim.Press
		if c.Component(id).Kind == redsim.Lever {
			a = []redsim.Action{redsim.Toggle, redsim.SetOn, redsim.SetOff}[r.Intn(3)]
		}
		stims = append(stims, redsim.Stimulus{Tick: uint64(r.Int63n(int64(span))), Component: name, Action: a})
	}
	sort.SliceStable(stims, func(i, j int) bool { return stims[i].Tick < stims[j].Tick })
	return stims
}

func step(t testing.TB, s *redsim.Simulation) {
	t.Helper()
	if err := s.Step(); err != nil {
		Trace(t, err)
		t.Fatal(err)
	}
}

func start(t testing.TB, c *redsim.Circuit, stims []redsim.Stimulus) *redsim.Simulation {
	t.Helper()
	s := redsim.New(c, nil)
	if err := s.Schedule(stims...); err != nil {
		t.Fatal(err)
	}
	return s
}

// CompareRuns runs two simulations of c with the same stimuli for the given
// number of ticks and fails if their snapshots ever differ.
//
func CompareRuns(t testing.TB, c *redsim.Circuit, stims []redsim.Stimulus, ticks int) {
	t.Helper()
	s1, s2 := start(t, c, stims), start(t, c, stims)
	for i := 0; i < ticks; i++ {
		step(t, s1)
		step(t, s2)
		if a, b := s1.Snapshot(), s2.Snapshot(); !reflect.DeepEqual(a, b) {
			t.Fatalf("tick %d: runs differ:\n%+v\n%+v", i, a, b)
		}
	}
}

// ComparePorts simulates two circuits with the same stimuli and compares the
// observable values of the given ports ("component.port") at every tick. Both
// circuits must have the same switches and ports.
//
func ComparePorts(t testing.TB, c1, c2 *redsim.Circuit, ports []string, stims []redsim.Stimulus, ticks int) {
	t.Helper()

	if a, b := Switches(c1), Switches(c2); !reflect.DeepEqual(a, b) {
		t.Fatalf("switches differ: %v != %v", a, b)
	}
	refs := make([][2]string, len(ports))
	for i, p := range ports {
		j := strings.LastIndexByte(p, '.')
		if j < 0 {
			t.Fatalf("bad port name %q", p)
		}
		refs[i] = [2]string{p[:j], p[j+1:]}
	}

	startT := time.Now()
	s1, s2 := start(t, c1, stims), start(t, c2, stims)
	for i := 0; i < ticks; i++ {
		step(t, s1)
		step(t, s2)
		for k, r := range refs {
			v1, err := s1.Port(r[0], r[1])
			if err != nil {
				t.Fatal(err)
			}
			v2, err := s2.Port(r[0], r[1])
			if err != nil {
				t.Fatal(err)
			}
			if v1 != v2 {
				t.Fatalf("tick %d: %s: expected %d, got %d", i, ports[k], v1, v2)
			}
		}
	}
	elapsed := time.Since(startT)
	t.Logf("%d+%d components, %d ticks in %v", c1.Len(), c2.Len(), ticks, elapsed)
}

// Value returns the observable value of port comp.port in snap, or fails.
//
func Value(t testing.TB, snap *redsim.Snapshot, comp, port string) redsim.Signal {
	t.Helper()
	p, ok := snap.Port(comp, port)
	if !ok {
		t.Fatalf("tick %d: no port %s.%s", snap.Tick, comp, port)
	}
	return p.Value()
}
