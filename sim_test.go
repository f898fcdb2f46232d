// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim_test

import (
	"reflect"
	"testing"
	"testing/quick"

	rs "github.com/db47h/redsim"
	"github.com/db47h/redsim/rstest"
)

func stim(tick uint64, comp string, a rs.Action) rs.Stimulus {
	return rs.Stimulus{Tick: tick, Component: comp, Action: a}
}

// run simulates c with the given stimuli, recording every tick.
func run(t *testing.T, c *rs.Circuit, opts *rs.Options, stims ...rs.Stimulus) (*rs.Simulation, rs.Report) {
	t.Helper()
	if opts == nil {
		opts = &rs.Options{}
	}
	opts.Record = true
	s := rs.New(c, opts)
	if err := s.Schedule(stims...); err != nil {
		t.Fatal(err)
	}
	r, err := s.Run()
	if err != nil {
		rstest.Trace(t, err)
		t.Fatal(err)
	}
	return s, r
}

func at(t *testing.T, s *rs.Simulation, tick uint64) *rs.Snapshot {
	t.Helper()
	snap, err := s.At(tick)
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func state(t *testing.T, snap *rs.Snapshot, name string) *rs.ComponentState {
	t.Helper()
	cs, ok := snap.Component(name)
	if !ok {
		t.Fatalf("tick %d: no component %s", snap.Tick, name)
	}
	return cs
}

func TestComparatorOutput(t *testing.T) {
	f := func(r, s uint8) bool {
		rear, side := rs.Signal(r%16), rs.Signal(s%16)
		cmp := rs.ComparatorOutput(rear, side, rs.Compare)
		sub := rs.ComparatorOutput(rear, side, rs.Subtract)
		if rear >= side && cmp != rear || rear < side && cmp != 0 {
			return false
		}
		if rear >= side {
			return sub == rear-side
		}
		return sub == 0
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
	if v := rs.ComparatorOutput(15, 6, rs.Subtract); v != 9 {
		t.Errorf("subtract 15-6: got %d", v)
	}
	if v := rs.ComparatorOutput(6, 15, rs.Compare); v != 0 {
		t.Errorf("compare 6<15: got %d", v)
	}
}

func TestComparator_sim(t *testing.T) {
	c := build(t, []rs.Decl{
		lever("rear"), lever("side"),
		comparator("cmp", rs.Compare), comparator("sub", rs.Subtract),
		lamp("l1"), lamp("l2"),
	},
		"rear.signal -> cmp.rear", "side.signal -> cmp.side",
		"cmp.output -> sub.rear",
		"sub.output -> l2.power", "cmp.output -> l1.power",
	)
	s, _ := run(t, c, nil, stim(1, "rear", rs.SetOn), stim(3, "side", rs.SetOn), stim(5, "rear", rs.SetOff))
	for _, td := range []struct {
		tick     uint64
		cmp, sub rs.Signal
	}{
		{0, 0, 0}, {1, 15, 15}, {3, 15, 15}, {5, 0, 0},
	} {
		snap := at(t, s, td.tick)
		if v := rstest.Value(t, snap, "cmp", "output"); v != td.cmp {
			t.Errorf("tick %d: cmp = %d, expected %d", td.tick, v, td.cmp)
		}
		if v := rstest.Value(t, snap, "sub", "output"); v != td.sub {
			t.Errorf("tick %d: sub = %d, expected %d", td.tick, v, td.sub)
		}
		if lit := state(t, snap, "l2").State.On; lit != (td.sub > 0) {
			t.Errorf("tick %d: l2 lit = %v", td.tick, lit)
		}
	}
}

func TestDelayChain(t *testing.T) {
	c := build(t, []rs.Decl{
		{Name: "button", Kind: rs.Button},
		repeater("r1", 1), repeater("r2", 2), repeater("r3", 4),
		lamp("lamp3"),
	}, "button.signal -> r1.input", "r1.output -> r2.input", "r2.output -> r3.input", "r3.output -> lamp3.power")
	s, r := run(t, c, nil, stim(5, "button", rs.Press))

	for tick := uint64(0); tick <= r.Tick; tick++ {
		lit := state(t, at(t, s, tick), "lamp3").State.On
		if want := tick >= 12 && tick < 22; lit != want {
			t.Errorf("tick %d: lamp3 lit = %v, expected %v", tick, lit, want)
		}
	}
	if r.Outcome != rs.Stabilized || r.Tick != 22 {
		t.Errorf("got %v at tick %d", r.Outcome, r.Tick)
	}
}

func TestFanout_door(t *testing.T) {
	decls := []rs.Decl{lever("lever")}
	var links []string
	pistons := []string{"p1", "p2", "p3", "p4"}
	for _, p := range pistons {
		decls = append(decls, rs.Decl{Name: p, Kind: rs.StickyPiston, Facing: rs.Up})
		links = append(links, "lever.signal -> "+p+".power")
	}
	decls = append(decls, rs.Decl{Name: "slime", Kind: rs.SlimeBlock})
	c := build(t, decls, links...)
	s, r := run(t, c, nil, stim(2, "lever", rs.Toggle), stim(10, "lever", rs.Toggle))

	for _, td := range []struct {
		tick uint64
		ext  bool
	}{{1, false}, {2, true}, {9, true}, {10, false}} {
		snap := at(t, s, td.tick)
		for _, p := range pistons {
			cs := state(t, snap, p)
			if cs.State.On != td.ext || cs.State.Held != td.ext {
				t.Errorf("tick %d: %s: %+v", td.tick, p, cs.State)
			}
			if cs.State.Spat {
				t.Errorf("tick %d: %s spat its block", td.tick, p)
			}
		}
	}
	if r.Outcome != rs.Stabilized || r.Tick != 10 {
		t.Errorf("got %v at tick %d", r.Outcome, r.Tick)
	}
	if cs := state(t, at(t, s, 10), "slime"); cs.Tag != "" || len(cs.Pending) != 0 {
		t.Errorf("inert block changed: %+v", cs)
	}
}

func TestTarget_passthrough(t *testing.T) {
	c := build(t, []rs.Decl{lever("a"), {Name: "target", Kind: rs.Target}, lamp("l")},
		"a.signal -> target.power", "target.power -> l.power")
	s, _ := run(t, c, nil, stim(1, "a", rs.SetOn), stim(4, "a", rs.SetOff))
	for tick, want := range []rs.Signal{0, 15, 15, 15, 0} {
		snap := at(t, s, uint64(tick))
		p, _ := snap.Port("target", "power")
		if p.In != want || p.Out != want {
			t.Errorf("tick %d: target in %d out %d, expected %d", tick, p.In, p.Out, want)
		}
		if lit := state(t, snap, "l").State.On; lit != (want > 0) {
			t.Errorf("tick %d: lamp lit = %v", tick, lit)
		}
	}
}

func TestTorch(t *testing.T) {
	c := build(t, []rs.Decl{lever("a"), torch("t"), lamp("l")}, "a.signal -> t.input", "t.output -> l.power")
	s, r := run(t, c, nil, stim(3, "a", rs.SetOn))
	for tick, want := range []string{"unlit", "lit", "lit", "lit", "unlit"} {
		if tag := state(t, at(t, s, uint64(tick)), "t").Tag; tag != want {
			t.Errorf("tick %d: torch %s, expected %s", tick, tag, want)
		}
	}
	if r.Outcome != rs.Stabilized || r.Tick != 4 {
		t.Errorf("got %v at tick %d", r.Outcome, r.Tick)
	}
}

func clock(t *testing.T, d int) *rs.Circuit {
	return build(t, []rs.Decl{torch("torch"), repeater("rep", d), lamp("lamp")},
		"torch.output -> rep.input", "rep.output -> torch.input", "rep.output -> lamp.power")
}

func TestClock_periodic(t *testing.T) {
	for d := 1; d <= 4; d++ {
		s, r := run(t, clock(t, d), nil)
		if r.Outcome != rs.Periodic {
			t.Fatalf("delay %d: got %v at tick %d", d, r.Outcome, r.Tick)
		}
		if want := uint64(2 * (d + 1)); r.Period != want {
			t.Errorf("delay %d: got period %d, expected %d", d, r.Period, want)
		}
		if r.PeriodStart != 0 || r.Tick != r.Period {
			t.Errorf("delay %d: period from tick %d detected at tick %d", d, r.PeriodStart, r.Tick)
		}
		// the lamp is lit for d+1 ticks every period
		lit := 0
		for tick := uint64(0); tick < r.Period; tick++ {
			if state(t, at(t, s, tick), "lamp").State.On {
				lit++
			}
		}
		if lit != d+1 {
			t.Errorf("delay %d: lamp lit %d ticks per period", d, lit)
		}
	}
}

func TestDiverged(t *testing.T) {
	c := build(t, []rs.Decl{lever("a"), lamp("l")}, "a.signal -> l.power")
	s := rs.New(c, &rs.Options{MaxTicks: 10})
	if err := s.Schedule(stim(50, "a", rs.Toggle)); err != nil {
		t.Fatal(err)
	}
	r, err := s.Run()
	if err != nil {
		t.Fatal(err)
	}
	if r.Outcome != rs.Diverged || r.Tick != 9 || s.Ticks() != 10 {
		t.Errorf("got %v at tick %d after %d ticks", r.Outcome, r.Tick, s.Ticks())
	}
	// Run on a finished simulation returns the same report
	if r2, _ := s.Run(); !reflect.DeepEqual(r, r2) {
		t.Errorf("got %+v, expected %+v", r2, r)
	}

	// a resumed run gets a fresh tick bound
	if err = s.Schedule(stim(15, "a", rs.Toggle)); err != nil {
		t.Fatal(err)
	}
	if r, err = s.Run(); err != nil || r.Outcome != rs.Diverged || r.Tick != 19 {
		t.Fatalf("resumed: got %v at tick %d, %v", r.Outcome, r.Tick, err)
	}
	if v, err := s.Port("l", "power"); err != nil || v != rs.On {
		t.Errorf("lamp power = %d, %v", v, err)
	}
}

func TestButton(t *testing.T) {
	c := build(t, []rs.Decl{
		{Name: "b", Kind: rs.Button}, {Name: "plate", Kind: rs.PressurePlate},
		lamp("l1"), lamp("l2"),
	}, "b.signal -> l1.power", "plate.signal -> l2.power")

	data := []struct {
		name      string
		opts      *rs.Options
		b, plate  uint64 // release ticks
		stabilize uint64
	}{
		{"defaults", nil, 10, 11, 11},
		{"custom", &rs.Options{ButtonTicks: 4, PlateTicks: 20}, 4, 21, 21},
	}
	for _, td := range data {
		t.Run(td.name, func(t *testing.T) {
			s, r := run(t, c, td.opts, stim(0, "b", rs.Press), stim(3, "b", rs.Press), stim(1, "plate", rs.Press))
			for tick := uint64(0); tick <= r.Tick; tick++ {
				snap := at(t, s, tick)
				if lit := state(t, snap, "l1").State.On; lit != (tick < td.b) {
					t.Errorf("tick %d: l1 lit = %v", tick, lit)
				}
				if lit := state(t, snap, "l2").State.On; lit != (tick >= 1 && tick < td.plate) {
					t.Errorf("tick %d: l2 lit = %v", tick, lit)
				}
			}
			if r.Outcome != rs.Stabilized || r.Tick != td.stabilize {
				t.Errorf("got %v at tick %d", r.Outcome, r.Tick)
			}
		})
	}
}

func TestRepeater_lock(t *testing.T) {
	c := build(t, []rs.Decl{lever("in"), lever("lock"), repeater("r", 1), lamp("l")},
		"in.signal -> r.input", "lock.signal -> r.lock", "r.output -> l.power")
	s, r := run(t, c, nil, stim(1, "lock", rs.SetOn), stim(2, "in", rs.SetOn), stim(5, "lock", rs.SetOff))
	for _, td := range []struct {
		tick uint64
		tag  string
		lit  bool
	}{
		{0, "off", false}, {1, "locked", false}, {4, "locked", false}, {5, "off", false}, {6, "on", true},
	} {
		snap := at(t, s, td.tick)
		if tag := state(t, snap, "r").Tag; tag != td.tag {
			t.Errorf("tick %d: repeater %s, expected %s", td.tick, tag, td.tag)
		}
		if lit := state(t, snap, "l").State.On; lit != td.lit {
			t.Errorf("tick %d: lamp lit = %v", td.tick, lit)
		}
	}
	if r.Outcome != rs.Stabilized || r.Tick != 6 {
		t.Errorf("got %v at tick %d", r.Outcome, r.Tick)
	}

	// locking while a change is in flight holds the output
	c = build(t, []rs.Decl{lever("in"), lever("lock"), repeater("r", 4), lamp("l")},
		"in.signal -> r.input", "lock.signal -> r.lock", "r.output -> l.power")
	s, r = run(t, c, nil, stim(0, "in", rs.SetOn), stim(1, "lock", rs.SetOn), stim(8, "lock", rs.SetOff))
	for tick := uint64(0); tick <= r.Tick; tick++ {
		cs := state(t, at(t, s, tick), "l")
		if want := tick >= 12; cs.State.On != want {
			t.Errorf("tick %d: lamp lit = %v", tick, cs.State.On)
		}
	}
	if tag := state(t, at(t, s, 4), "r").Tag; tag != "locked" {
		t.Errorf("tick 4: repeater %s, expected locked", tag)
	}
	if cs := state(t, at(t, s, 1), "r"); len(cs.Pending) != 0 {
		t.Errorf("tick 1: pending output on a locked repeater: %+v", cs.Pending)
	}
	if r.Outcome != rs.Stabilized || r.Tick != 12 {
		t.Errorf("got %v at tick %d", r.Outcome, r.Tick)
	}
}

func TestRepeater_pulses(t *testing.T) {
	// pulses shorter than the delay are preserved
	c := build(t, []rs.Decl{lever("a"), repeater("r", 4), lamp("l")}, "a.signal -> r.input", "r.output -> l.power")
	s, _ := run(t, c, nil, stim(1, "a", rs.Toggle), stim(2, "a", rs.Toggle), stim(3, "a", rs.Toggle), stim(4, "a", rs.Toggle))
	for tick := uint64(0); tick <= 8; tick++ {
		lit := state(t, at(t, s, tick), "l").State.On
		if want := tick == 5 || tick == 7; lit != want {
			t.Errorf("tick %d: lamp lit = %v", tick, lit)
		}
	}
}

func TestObserver_spitting(t *testing.T) {
	c := build(t, []rs.Decl{
		lever("a"),
		{Name: "obs", Kind: rs.Observer, Facing: rs.West},
		{Name: "sp", Kind: rs.StickyPiston, Facing: rs.Up},
	}, "a.signal -> obs.input", "obs.output -> sp.power")
	s, r := run(t, c, nil, stim(2, "a", rs.Toggle))

	for tick, want := range []rs.Signal{0, 0, 0, 15, 0} {
		if v := rstest.Value(t, at(t, s, uint64(tick)), "obs", "output"); v != want {
			t.Errorf("tick %d: observer output %d, expected %d", tick, v, want)
		}
	}
	if cs := state(t, at(t, s, 3), "sp"); cs.Tag != "extended" || !cs.State.Fresh {
		t.Errorf("tick 3: %+v", cs)
	}
	if cs := state(t, at(t, s, 4), "sp"); cs.Tag != "spat" || cs.State.Held {
		t.Errorf("tick 4: %+v", cs)
	}
	var found bool
	for _, d := range r.Diagnostics {
		if d.Code == rs.BlockSpitting && d.Component == "sp" && d.Tick == 4 {
			found = true
		}
	}
	if !found {
		t.Errorf("no block spitting warning in %v", r.Diagnostics)
	}
}

func TestActuators(t *testing.T) {
	c := build(t, []rs.Decl{
		lever("a"),
		{Name: "d", Kind: rs.Dropper, Facing: rs.Down},
		{Name: "h", Kind: rs.Hopper},
		{Name: "p", Kind: rs.Piston, Facing: rs.North},
		lamp("l"),
	}, "a.signal -> d.power", "a.signal -> h.power", "a.signal -> p.power", "a.signal -> l.power")
	s, _ := run(t, c, nil, stim(1, "a", rs.SetOn))
	for _, td := range []struct {
		tick uint64
		tags map[string]string
	}{
		{0, map[string]string{"a": "off", "d": "idle", "h": "unlocked", "p": "retracted", "l": "unlit"}},
		{1, map[string]string{"a": "on", "d": "fired", "h": "locked", "p": "extended", "l": "lit"}},
		{2, map[string]string{"a": "on", "d": "powered", "h": "locked", "p": "extended", "l": "lit"}},
	} {
		snap := at(t, s, td.tick)
		for n, want := range td.tags {
			if tag := state(t, snap, n).Tag; tag != want {
				t.Errorf("tick %d: %s is %s, expected %s", td.tick, n, tag, want)
			}
		}
	}
}

func TestSchedule_errors(t *testing.T) {
	c := build(t, []rs.Decl{lever("a"), {Name: "b", Kind: rs.Button}, lamp("l")},
		"a.signal -> l.power")
	s := rs.New(c, nil)
	for i := 0; i < 5; i++ {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	for _, st := range []rs.Stimulus{
		stim(10, "x", rs.Toggle),
		stim(10, "l", rs.Toggle),
		stim(10, "a", rs.Press),
		stim(10, "b", rs.Toggle),
		stim(4, "a", rs.Toggle),
	} {
		if err := s.Schedule(stim(12, "a", rs.SetOn), st); err == nil {
			t.Errorf("%+v: expected error", st)
		}
	}
	// nothing was scheduled
	r, err := s.Run()
	if err != nil {
		t.Fatal(err)
	}
	if r.Outcome != rs.Stabilized || r.Tick != 4 {
		t.Errorf("got %v at tick %d", r.Outcome, r.Tick)
	}
}

func TestSchedule_resume(t *testing.T) {
	c := build(t, []rs.Decl{lever("a"), lamp("l")}, "a.signal -> l.power")
	s := rs.New(c, nil)
	r, err := s.Run()
	if err != nil || r.Outcome != rs.Stabilized || r.Tick != 0 {
		t.Fatalf("got %v at tick %d, %v", r.Outcome, r.Tick, err)
	}
	if err = s.Schedule(stim(3, "a", rs.Toggle)); err != nil {
		t.Fatal(err)
	}
	if r, err = s.Run(); err != nil || r.Outcome != rs.Stabilized || r.Tick != 3 {
		t.Fatalf("got %v at tick %d, %v", r.Outcome, r.Tick, err)
	}
	if v, err := s.Port("l", "power"); err != nil || v != rs.On {
		t.Errorf("lamp power = %d, %v", v, err)
	}
}

func TestReset(t *testing.T) {
	c := clock(t, 2)
	s, r := run(t, c, nil)
	s.Reset()
	if s.Status() != rs.Idle || s.Ticks() != 0 {
		t.Fatalf("got status %v after %d ticks", s.Status(), s.Ticks())
	}
	snap := s.Snapshot()
	for _, p := range snap.Ports {
		if p.In != 0 || p.Out != 0 {
			t.Errorf("port %s.%s not reset: %+v", p.Component, p.Port, p)
		}
	}
	for _, cs := range snap.Components {
		if cs.State != (rs.State{}) || len(cs.Pending) != 0 {
			t.Errorf("component %s not reset: %+v", cs.Name, cs)
		}
	}
	r2, err := s.Run()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r, r2) {
		t.Errorf("got %+v after reset, expected %+v", r2, r)
	}
}

func TestInspector(t *testing.T) {
	c := build(t, []rs.Decl{lever("a"), repeater("r", 4), lamp("l")}, "a.signal -> r.input", "r.output -> l.power")
	s := rs.New(c, &rs.Options{Record: true, Keep: 3})
	if err := s.Schedule(stim(1, "a", rs.SetOn)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	cs, err := s.Component("r")
	if err != nil {
		t.Fatal(err)
	}
	if len(cs.Pending) != 1 || cs.Pending[0] != (rs.Pending{In: 4, Port: "output", Value: rs.On}) {
		t.Errorf("bad pending effects: %+v", cs.Pending)
	}
	if cs.State.Last != rs.On {
		t.Errorf("buffered value %d", cs.State.Last)
	}
	if snap := s.Snapshot(); snap.Tick != 1 || !reflect.DeepEqual(state(t, snap, "r").Pending, cs.Pending) {
		t.Errorf("snapshot at tick %d: %+v", snap.Tick, snap)
	}
	if v, err := s.Port("r", "input"); err != nil || v != rs.On {
		t.Errorf("r.input = %d, %v", v, err)
	}
	if _, err := s.Port("r", "lock2"); err == nil {
		t.Error("expected error for unknown port")
	}
	if _, err := s.Component("x"); err == nil {
		t.Error("expected error for unknown component")
	}

	for i := 0; i < 8; i++ {
		if err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.At(0); err == nil {
		t.Error("tick 0 should have been dropped from history")
	}
	if snap, err := s.At(9); err != nil || snap.Tick != 9 {
		t.Errorf("At(9): %v", err)
	}
	if _, err := rs.New(c, nil).At(0); err == nil {
		t.Error("expected error without recording")
	}
}

func TestObserve(t *testing.T) {
	var ticks []uint64
	s := rs.New(clock(t, 1), &rs.Options{Observe: func(snap *rs.Snapshot) { ticks = append(ticks, snap.Tick) }})
	r, err := s.Run()
	if err != nil {
		t.Fatal(err)
	}
	if uint64(len(ticks)) != r.Tick+1 {
		t.Fatalf("observed %d ticks, ran %d", len(ticks), r.Tick+1)
	}
	for i, tick := range ticks {
		if tick != uint64(i) {
			t.Errorf("observation %d at tick %d", i, tick)
		}
	}
}

func TestDeterminism(t *testing.T) {
	c := build(t, []rs.Decl{
		lever("a"), {Name: "b", Kind: rs.Button},
		repeater("r1", 2), comparator("cmp", rs.Subtract), torch("t"),
		{Name: "obs", Kind: rs.Observer, Facing: rs.East},
		{Name: "sp", Kind: rs.StickyPiston, Facing: rs.Up}, lamp("l"),
	},
		"a.signal -> r1.input", "r1.output -> cmp.rear", "b.signal -> cmp.side",
		"cmp.output -> t.input", "t.output -> obs.input", "obs.output -> sp.power",
		"cmp.output -> l.power",
	)
	stims := []rs.Stimulus{stim(1, "a", rs.Toggle), stim(4, "b", rs.Press), stim(7, "a", rs.Toggle), stim(9, "b", rs.Press)}
	rstest.CompareRuns(t, c, stims, 40)
}
