// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

import (
	"sort"
	"strconv"
)

// Decl declares a component.
//
type Decl struct {
	Name   string
	Kind   Kind
	Pos    Pos
	Facing Facing // required by directional kinds only
	Delay  int    // Repeater only, 1-4
	Mode   Mode   // Comparator only
}

// PortRef names a port of a component.
//
type PortRef struct {
	Component string
	Port      string
}

func (r PortRef) String() string { return r.Component + "." + r.Port }

// Link declares a connection from a source port to a sink port.
//
type Link struct {
	From PortRef
	To   PortRef
}

func (l Link) String() string { return l.From.String() + " -> " + l.To.String() }

// Description is the normalized, ordered list of component and connection
// declarations consumed by Build.
//
type Description struct {
	Components  []Decl
	Connections []Link
}

// Build validates d and returns the corresponding circuit.
//
// Validation fails with a *BuildError (possibly wrapped, use KindOf to get
// its kind) on the first of:
//
//	- empty, duplicate component names or unknown kinds
//	- out of range configuration values (repeater delay, comparator mode,
//	  missing facing on directional components)
//	- connections referencing undefined components or ports
//	- connections from a port that cannot source or to a port that cannot sink
//	- a sink port connected more than once
//	- zero-delay cycles, including inverting loops through a single torch
//
// No circuit is returned on error. Warnings about the circuit are available
// from Circuit.Diagnostics.
//
func Build(d *Description) (*Circuit, error) {
	c := &Circuit{
		comps:  make([]Component, 0, len(d.Components)),
		byName: make(map[string]CompID, len(d.Components)),
	}

	for i := range d.Components {
		decl := &d.Components[i]
		if err := checkDecl(decl); err != nil {
			return nil, err
		}
		if _, ok := c.byName[decl.Name]; ok {
			return nil, buildErr(DuplicateComponentName, decl.Name, "", "")
		}
		id := CompID(len(c.comps))
		c.byName[decl.Name] = id
		c.comps = append(c.comps, Component{
			Name:   decl.Name,
			Kind:   decl.Kind,
			Pos:    decl.Pos,
			Facing: decl.Facing,
			Delay:  decl.Delay,
			Mode:   decl.Mode,
			first:  PortID(len(c.ports)),
		})
		for _, spec := range library[decl.Kind].ports {
			c.ports = append(c.ports, Port{PortSpec: spec, Comp: id})
		}
	}

	c.fanout = make([][]PortID, len(c.ports))
	c.driver = make([]PortID, len(c.ports))
	for i := range c.driver {
		c.driver[i] = noPort
	}

	for _, l := range d.Connections {
		from, err := c.resolve(l.From)
		if err != nil {
			return nil, err
		}
		to, err := c.resolve(l.To)
		if err != nil {
			return nil, err
		}
		if !c.ports[from].Dir.CanSource() {
			return nil, buildErr(PortDirectionMismatch, l.From.Component, l.From.Port,
				"cannot be used as a source in "+l.String())
		}
		if !c.ports[to].Dir.CanSink() {
			return nil, buildErr(PortDirectionMismatch, l.To.Component, l.To.Port,
				"cannot be used as a sink in "+l.String())
		}
		if prev := c.driver[to]; prev != noPort {
			return nil, buildErr(SinkAlreadyConnected, l.To.Component, l.To.Port,
				"already driven by "+c.PortName(prev))
		}
		c.driver[to] = from
		c.fanout[from] = append(c.fanout[from], to)
		c.conns = append(c.conns, Connection{From: from, To: to})
	}

	topo, err := c.checkCycles()
	if err != nil {
		return nil, err
	}
	c.rankComponents(topo)
	c.lint()
	return c, nil
}

func checkDecl(d *Decl) error {
	if d.Name == "" {
		return buildErr(ConfigurationOutOfRange, "", "", "empty component name")
	}
	if !d.Kind.Valid() {
		return buildErr(UnknownComponentType, d.Name, "", d.Kind.String())
	}
	if d.Facing >= facingCount {
		return buildErr(ConfigurationOutOfRange, d.Name, "", "invalid facing "+d.Facing.String())
	}
	if d.Kind.Directional() && d.Facing == FacingNone {
		return buildErr(ConfigurationOutOfRange, d.Name, "", "facing required for "+d.Kind.String())
	}
	switch {
	case d.Kind == Repeater && (d.Delay < 1 || d.Delay > 4):
		return buildErr(ConfigurationOutOfRange, d.Name, "", "repeater delay "+strconv.Itoa(d.Delay)+" not in 1-4")
	case d.Kind != Repeater && d.Delay != 0:
		return buildErr(ConfigurationOutOfRange, d.Name, "", "delay not supported by "+d.Kind.String())
	}
	if d.Mode >= modeCount {
		return buildErr(ConfigurationOutOfRange, d.Name, "", "invalid comparator mode "+d.Mode.String())
	}
	return nil
}

func (c *Circuit) resolve(r PortRef) (PortID, error) {
	id, ok := c.byName[r.Component]
	if !ok {
		return noPort, buildErr(UndefinedComponentReference, r.Component, "", "")
	}
	cc := &c.comps[id]
	i := portIndex(cc.Kind, r.Port)
	if i < 0 {
		return noPort, buildErr(UndefinedPortOnType, r.Component, r.Port, "no such port on "+cc.Kind.String())
	}
	return cc.port(i), nil
}

// rankComponents computes the evaluation order used within a tick:
// switches, immediates in topological order, delay elements and actuators
// by priority. Ties are broken by declaration order.
func (c *Circuit) rankComponents(topo []int) {
	c.order = make([]CompID, len(c.comps))
	for i := range c.order {
		c.order[i] = CompID(i)
	}
	sort.SliceStable(c.order, func(i, j int) bool {
		a, b := &library[c.comps[c.order[i]].Kind], &library[c.comps[c.order[j]].Kind]
		if a.class != b.class {
			return a.class < b.class
		}
		if a.class == classImmediate {
			return topo[c.order[i]] < topo[c.order[j]]
		}
		return a.priority < b.priority
	})
	c.rank = make([]int, len(c.comps))
	c.prio = make([]int, len(c.comps))
	for r, id := range c.order {
		c.rank[id] = r
		c.prio[id] = library[c.comps[id].Kind].priority
	}
}
