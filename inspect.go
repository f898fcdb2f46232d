// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// PortValue is the value of a port in a snapshot.
//
type PortValue struct {
	Component string `json:"component"`
	Port      string `json:"port"`
	Source    bool   `json:"source,omitempty"`
	In        Signal `json:"in"`
	Out       Signal `json:"out"`
}

// Value returns the observable value of the port: its output for ports that
// can source, its input otherwise.
//
func (p *PortValue) Value() Signal {
	if p.Source {
		return p.Out
	}
	return p.In
}

// Pending is an in-flight effect of a component, due in In ticks.
//
type Pending struct {
	In    uint64 `json:"in"`
	Port  string `json:"port,omitempty"`
	Wake  bool   `json:"wake,omitempty"`
	Value Signal `json:"value"`
}

// ComponentState is the state of a component in a snapshot.
//
type ComponentState struct {
	Name    string    `json:"name"`
	Kind    Kind      `json:"kind"`
	Tag     string    `json:"tag,omitempty"`
	State   State     `json:"state"`
	Pending []Pending `json:"pending,omitempty"`
}

// A Snapshot is a copy of the observable state of a simulation at the end of
// a tick.
//
type Snapshot struct {
	Tick       uint64           `json:"tick"`
	Ports      []PortValue      `json:"ports"`
	Components []ComponentState `json:"components"`
}

// Port returns the value of the named port.
//
func (s *Snapshot) Port(comp, port string) (PortValue, bool) {
	for i := range s.Ports {
		if p := &s.Ports[i]; p.Component == comp && p.Port == port {
			return *p, true
		}
	}
	return PortValue{}, false
}

// Component returns the state of the named component.
//
func (s *Snapshot) Component(name string) (*ComponentState, bool) {
	for i := range s.Components {
		if s.Components[i].Name == name {
			return &s.Components[i], true
		}
	}
	return nil, false
}

// Snapshot returns the state of the simulation at the end of the last
// processed tick.
//
func (s *Simulation) Snapshot() *Snapshot {
	c := s.c
	snap := &Snapshot{
		Tick:       s.now,
		Ports:      make([]PortValue, len(c.ports)),
		Components: make([]ComponentState, len(c.comps)),
	}
	for i := range c.ports {
		p := &c.ports[i]
		snap.Ports[i] = PortValue{
			Component: c.comps[p.Comp].Name,
			Port:      p.Name,
			Source:    p.Dir.CanSource(),
			In:        s.in[i],
			Out:       s.out[i],
		}
	}
	for i := range c.comps {
		cc := &c.comps[i]
		snap.Components[i] = ComponentState{
			Name:  cc.Name,
			Kind:  cc.Kind,
			Tag:   s.tag(CompID(i)),
			State: s.states[i],
		}
	}

	for _, e := range s.pending() {
		cs := &snap.Components[e.comp]
		cs.Pending = append(cs.Pending, s.describe(&e))
	}
	return snap
}

// pending returns the pending events in processing order.
func (s *Simulation) pending() []event {
	evs := append([]event(nil), s.queue...)
	sort.Slice(evs, func(i, j int) bool { return evs[i].before(&evs[j]) })
	return evs
}

func (s *Simulation) describe(e *event) Pending {
	pd := Pending{In: e.tick - s.now, Value: e.value}
	if e.port == noPort {
		pd.Wake = true
	} else {
		pd.Port = s.c.ports[e.port].Name
	}
	return pd
}

// At returns the recorded snapshot of the given tick. Snapshots are only
// recorded when Options.Record is set.
//
func (s *Simulation) At(tick uint64) (*Snapshot, error) {
	if !s.opts.Record {
		return nil, errors.New("snapshot history not recorded")
	}
	i := sort.Search(len(s.history), func(i int) bool { return s.history[i].Tick >= tick })
	if i == len(s.history) || s.history[i].Tick != tick {
		return nil, errors.Errorf("no snapshot for tick %d", tick)
	}
	return s.history[i], nil
}

// Port returns the current value of the named port: its output if the port can
// source, its input otherwise.
//
func (s *Simulation) Port(comp, port string) (Signal, error) {
	pid, ok := s.c.FindPort(comp, port)
	if !ok {
		return Off, errors.Errorf("no such port %s.%s", comp, port)
	}
	if s.c.ports[pid].Dir.CanSource() {
		return s.out[pid], nil
	}
	return s.in[pid], nil
}

// Component returns the current state of the named component.
//
func (s *Simulation) Component(name string) (ComponentState, error) {
	id, ok := s.c.Lookup(name)
	if !ok {
		return ComponentState{}, errors.Errorf("no such component %q", name)
	}
	cc := &s.c.comps[id]
	cs := ComponentState{Name: cc.Name, Kind: cc.Kind, Tag: s.tag(id), State: s.states[id]}
	for _, e := range s.pending() {
		if e.comp == id {
			cs.Pending = append(cs.Pending, s.describe(&e))
		}
	}
	return cs, nil
}

// tag returns a short word describing the state of component id.
func (s *Simulation) tag(id CompID) string {
	cc := &s.c.comps[id]
	st := &s.states[id]
	out := func(i int) Signal { return s.out[cc.port(i)] }
	switch cc.Kind {
	case Lever, Button, PressurePlate:
		return onOff(st.On, "on", "off")
	case Repeater:
		if st.Locked {
			return "locked"
		}
		return onOff(out(2).Powered(), "on", "off")
	case Comparator:
		return strconv.Itoa(int(out(2)))
	case Target:
		return strconv.Itoa(int(out(0)))
	case Torch:
		return onOff(out(1).Powered(), "lit", "unlit")
	case Observer:
		return onOff(out(1).Powered(), "pulse", "idle")
	case Lamp:
		return onOff(st.On, "lit", "unlit")
	case Hopper:
		return onOff(st.On, "locked", "unlocked")
	case Dropper:
		if st.Fired {
			return "fired"
		}
		return onOff(st.On, "powered", "idle")
	case Piston:
		return onOff(st.On, "extended", "retracted")
	case StickyPiston:
		if st.Spat && !st.On {
			return "spat"
		}
		return onOff(st.On, "extended", "retracted")
	}
	return ""
}

func onOff(b bool, t, f string) string {
	if b {
		return t
	}
	return f
}
