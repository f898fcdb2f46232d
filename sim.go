// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

import (
	"container/heap"
	"encoding/binary"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// Status is the state of a simulation run.
//
type Status uint8

// Simulation statuses.
//
const (
	Idle Status = iota
	Running
	Stabilized // no pending events and no stimuli left
	Periodic   // the full logical state repeats
	Diverged   // the tick bound was reached
	Errored    // a runtime error stopped the simulation
)

var statusNames = [...]string{"idle", "running", "stabilized", "periodic", "diverged", "errored"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
//
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (s *Status) UnmarshalText(b []byte) error {
	for i, n := range statusNames {
		if n == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return errors.Errorf("unknown status %q", b)
}

// done returns true for terminal outcomes of a successful run.
func (s Status) done() bool {
	return s == Stabilized || s == Periodic || s == Diverged
}

// Default option values.
//
const (
	DefaultMaxTicks    = 1000
	DefaultButtonTicks = 10
	DefaultPlateTicks  = 10
)

// maxSettle bounds the number of evaluations of a single component within a
// tick. Build rejects zero-delay cycles, so only a circuit whose
// connections bypassed Build can reach it.
const maxSettle = 8

// Options configures a Simulation. The zero value is valid.
//
type Options struct {
	// MaxTicks is the tick bound after which a run is reported as Diverged.
	// It counts ticks from the start of the run, or from the tick a finished
	// run was resumed at by Schedule. Defaults to DefaultMaxTicks.
	MaxTicks uint64
	// Number of ticks a button or pressure plate stays pressed.
	ButtonTicks uint64
	PlateTicks  uint64
	// Record keeps a snapshot of every tick, see Simulation.At. When Keep is
	// non-zero, only the last Keep snapshots are kept.
	Record bool
	Keep   int
	// Observe, if not nil, is called with a snapshot at the end of every tick,
	// on the goroutine stepping the simulation.
	Observe func(*Snapshot)
	// Logger receives run-level events. Defaults to a discarding logger.
	Logger *slog.Logger
}

func (o *Options) withDefaults() Options {
	var r Options
	if o != nil {
		r = *o
	}
	if r.MaxTicks == 0 {
		r.MaxTicks = DefaultMaxTicks
	}
	if r.ButtonTicks == 0 {
		r.ButtonTicks = DefaultButtonTicks
	}
	if r.PlateTicks == 0 {
		r.PlateTicks = DefaultPlateTicks
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Report is the outcome of a run.
//
type Report struct {
	Outcome     Status       `json:"outcome"`
	Tick        uint64       `json:"tick"`                   // last processed tick
	Period      uint64       `json:"period,omitempty"`       // Periodic only
	PeriodStart uint64       `json:"period_start,omitempty"` // Periodic only
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Simulation is a runnable, tick based simulation of a Circuit.
//
// A Simulation is single-threaded: it must not be used concurrently. Any
// number of simulations can share the same Circuit.
//
type Simulation struct {
	c    *Circuit
	opts Options
	log  *slog.Logger

	in     []Signal // value received by each port
	out    []Signal // value emitted by each port
	states []State

	queue eventQueue
	seq   uint64
	now   uint64 // tick being (or last) processed
	steps uint64 // processed tick count
	base  uint64 // steps at the start of the current run

	dirty   []bool
	woken   []bool
	evals   []int
	touched []CompID
	work    worklist

	stims []stimulus
	next  int

	seen    map[string]uint64
	keyBuf  []byte
	evBuf   []event
	history []*Snapshot
	diags   []Diagnostic

	status Status
	report Report
	err    error
}

// New returns a new simulation of c at tick 0. opts may be nil.
//
func New(c *Circuit, opts *Options) *Simulation {
	s := &Simulation{
		c:      c,
		opts:   opts.withDefaults(),
		in:     make([]Signal, len(c.ports)),
		out:    make([]Signal, len(c.ports)),
		states: make([]State, len(c.comps)),
		dirty:  make([]bool, len(c.comps)),
		woken:  make([]bool, len(c.comps)),
		evals:  make([]int, len(c.comps)),
	}
	s.log = s.opts.Logger
	s.Reset()
	return s
}

// Circuit returns the simulated circuit.
//
func (s *Simulation) Circuit() *Circuit { return s.c }

// Status returns the current status of the simulation.
//
func (s *Simulation) Status() Status { return s.status }

// Ticks returns the number of processed ticks.
//
func (s *Simulation) Ticks() uint64 { return s.steps }

// Err returns the error that stopped the simulation, if any.
//
func (s *Simulation) Err() error { return s.err }

// Reset restores every port and component to its tick 0 default, drops pending
// events, scheduled stimuli and history. The status is set to Idle.
//
func (s *Simulation) Reset() {
	for i := range s.in {
		s.in[i], s.out[i] = Off, Off
	}
	for i := range s.states {
		s.states[i] = State{}
		s.dirty[i], s.woken[i], s.evals[i] = false, false, 0
	}
	s.queue = s.queue[:0]
	s.work = s.work[:0]
	s.touched = s.touched[:0]
	s.seq, s.now, s.steps, s.base = 0, 0, 0, 0
	s.stims, s.next = nil, 0
	s.seen = make(map[string]uint64)
	s.history = nil
	s.diags = nil
	s.status = Idle
	s.report = Report{}
	s.err = nil
}

// Step processes a single tick:
//
//	1. pop every event due at this tick in (priority, sequence) order. Output
//	   changes are delivered to connected sinks, wake-ups mark their component
//	   for evaluation.
//	2. apply the stimuli scheduled for this tick.
//	3. evaluate affected components in rank order until the tick settles.
//	   Zero-delay effects are visible within the tick, delayed effects are
//	   queued.
//	4. record a snapshot if requested and update the status.
//
// At tick 0 every component is evaluated once.
//
func (s *Simulation) Step() error {
	if s.status == Errored {
		return s.err
	}
	s.status = Running
	t := s.steps
	s.now = t

	if t == 0 {
		for _, id := range s.c.order {
			s.markDirty(id)
		}
	}

	for s.queue.due(t) {
		e := s.queue.next()
		if e.port == noPort {
			s.woken[e.comp] = true
			s.markDirty(e.comp)
			continue
		}
		s.write(e.port, e.value)
	}

	applied := false
	for s.next < len(s.stims) && s.stims[s.next].tick <= t {
		st := &s.stims[s.next]
		s.next++
		s.eval(st.comp, st.action)
		applied = true
	}
	if applied && len(s.seen) > 0 {
		s.seen = make(map[string]uint64)
	}

	if err := s.settle(); err != nil {
		s.fail(err)
		return err
	}

	s.steps++
	s.record()
	s.check()
	return nil
}

// Run steps the simulation until it stabilizes, becomes periodic, reaches the
// tick bound or fails. Calling Run on a finished simulation returns the same
// report.
//
func (s *Simulation) Run() (Report, error) {
	for !s.status.done() {
		if err := s.Step(); err != nil {
			return s.report, err
		}
	}
	return s.report, nil
}

// Report returns the report of the last finished run.
//
func (s *Simulation) Report() Report { return s.report }

func (s *Simulation) settle() error {
	for _, id := range s.touched {
		s.evals[id] = 0
	}
	s.touched = s.touched[:0]
	for s.work.Len() > 0 {
		id := s.c.order[heap.Pop(&s.work).(int)]
		s.dirty[id] = false
		if s.evals[id] == 0 {
			s.touched = append(s.touched, id)
		}
		if s.evals[id]++; s.evals[id] > maxSettle {
			return buildErr(ZeroDelayCombinationalCycle, s.c.comps[id].Name, "",
				"did not settle at tick "+strconv.FormatUint(s.now, 10))
		}
		s.eval(id, noAction)
	}
	return nil
}

func (s *Simulation) eval(id CompID, a Action) {
	cc := &s.c.comps[id]
	x := exec{
		s:     s,
		c:     id,
		comp:  cc,
		st:    &s.states[id],
		stim:  a,
		woken: s.woken[id],
	}
	s.woken[id] = false
	if fn := library[cc.Kind].step; fn != nil {
		fn(&x)
	}
}

func (s *Simulation) markDirty(id CompID) {
	if !s.dirty[id] {
		s.dirty[id] = true
		heap.Push(&s.work, s.c.rank[id])
	}
}

// write sets the output value of port pid and delivers it to every connected
// sink.
func (s *Simulation) write(pid PortID, v Signal) {
	if s.out[pid] == v {
		return
	}
	s.out[pid] = v
	for _, sink := range s.c.fanout[pid] {
		if s.in[sink] != v {
			s.in[sink] = v
			s.markDirty(s.c.ports[sink].Comp)
		}
	}
}

// push queues an effect of component c delay ticks from now. A noPort pid
// queues a wake-up.
func (s *Simulation) push(c CompID, pid PortID, delay uint64, v Signal) {
	heap.Push(&s.queue, event{
		tick:  s.now + delay,
		prio:  s.c.prio[c],
		seq:   s.seq,
		comp:  c,
		port:  pid,
		value: v,
	})
	s.seq++
}

// cancel drops the output events pending for component c. Wake-ups are kept.
func (s *Simulation) cancel(c CompID) {
	q := s.queue[:0]
	for _, e := range s.queue {
		if e.comp != c || e.port == noPort {
			q = append(q, e)
		}
	}
	s.queue = q
	heap.Init(&s.queue)
}

func (s *Simulation) warn(d Diagnostic) {
	s.diags = append(s.diags, d)
	s.log.Warn(d.Message, "code", d.Code.String(), "component", d.Component, "tick", d.Tick)
}

func (s *Simulation) fail(err error) {
	s.err = err
	s.status = Errored
	s.report = s.newReport(Errored)
	s.log.Error("simulation failed", "tick", s.now, "err", err)
}

// check updates the status after a tick.
func (s *Simulation) check() {
	idle := s.next >= len(s.stims)
	switch {
	case idle && len(s.queue) == 0:
		s.finish(s.newReport(Stabilized))
		return
	case idle:
		k := s.key()
		if t0, ok := s.seen[k]; ok {
			r := s.newReport(Periodic)
			r.Period, r.PeriodStart = s.now-t0, t0
			s.finish(r)
			return
		}
		s.seen[k] = s.now
	}
	if s.steps-s.base >= s.opts.MaxTicks {
		s.finish(s.newReport(Diverged))
	}
}

func (s *Simulation) newReport(st Status) Report {
	r := Report{Outcome: st, Tick: s.now}
	r.Diagnostics = append(r.Diagnostics, s.c.diags...)
	r.Diagnostics = append(r.Diagnostics, s.diags...)
	return r
}

func (s *Simulation) finish(r Report) {
	s.status = r.Outcome
	s.report = r
	s.log.Info("simulation finished", "outcome", r.Outcome.String(), "tick", r.Tick, "period", r.Period)
}

// key encodes the full logical state of the simulation: port values,
// component states and pending events relative to the current tick.
func (s *Simulation) key() string {
	buf := s.keyBuf[:0]
	for i := range s.in {
		buf = append(buf, byte(s.in[i]), byte(s.out[i]))
	}
	for i := range s.states {
		buf = append(buf, s.states[i].flags(), byte(s.states[i].Last))
	}
	evs := append(s.evBuf[:0], s.queue...)
	sort.Slice(evs, func(i, j int) bool { return evs[i].before(&evs[j]) })
	for i := range evs {
		e := &evs[i]
		buf = binary.AppendUvarint(buf, e.tick-s.now)
		buf = binary.AppendUvarint(buf, uint64(e.comp))
		buf = binary.AppendVarint(buf, int64(e.port))
		buf = append(buf, byte(e.value))
	}
	s.keyBuf, s.evBuf = buf, evs
	return string(buf)
}

func (s *Simulation) record() {
	if !s.opts.Record && s.opts.Observe == nil {
		return
	}
	snap := s.Snapshot()
	if s.opts.Record {
		s.history = append(s.history, snap)
		if k := s.opts.Keep; k > 0 && len(s.history) > k {
			s.history = append(s.history[:0], s.history[len(s.history)-k:]...)
		}
	}
	if s.opts.Observe != nil {
		s.opts.Observe(snap)
	}
}
