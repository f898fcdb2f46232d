// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

// CompID is a handle to a component in a Circuit.
//
type CompID int

// PortID is a handle to a port in a Circuit.
//
type PortID int

const noPort PortID = -1

// A Component is an instance of a kind in a circuit. Components are created
// by Build and never modified afterwards.
//
type Component struct {
	Name   string
	Kind   Kind
	Pos    Pos
	Facing Facing
	Delay  int  // repeater delay in ticks
	Mode   Mode // comparator mode

	first PortID // first port, ports are allocated contiguously
}

// port returns the handle of the i-th port in the component's port set.
func (c *Component) port(i int) PortID {
	return c.first + PortID(i)
}

// A Port is a named input and/or output of a component.
//
type Port struct {
	PortSpec
	Comp CompID
}

// A Connection is a directed edge from a source port to a sink port.
//
type Connection struct {
	From PortID
	To   PortID
}

// Circuit is a validated, immutable graph of components and connections.
// A Circuit can be shared by any number of concurrent simulations.
//
type Circuit struct {
	comps  []Component
	ports  []Port
	conns  []Connection
	byName map[string]CompID

	fanout [][]PortID // sinks driven by each port
	driver []PortID   // source driving each port, or noPort

	rank  []int    // evaluation rank of each component
	order []CompID // components sorted by rank
	prio  []int    // event priority of each component

	diags []Diagnostic
}

// Len returns the component count in the circuit.
//
func (c *Circuit) Len() int { return len(c.comps) }

// Component returns the component with handle id.
//
func (c *Circuit) Component(id CompID) *Component {
	cc := c.comps[id]
	return &cc
}

// Lookup returns the handle of the named component.
//
func (c *Circuit) Lookup(name string) (CompID, bool) {
	id, ok := c.byName[name]
	return id, ok
}

// Port returns the port with handle id.
//
func (c *Circuit) Port(id PortID) Port {
	return c.ports[id]
}

// FindPort returns the handle of the named port of the named component.
//
func (c *Circuit) FindPort(comp, port string) (PortID, bool) {
	id, ok := c.byName[comp]
	if !ok {
		return noPort, false
	}
	cc := &c.comps[id]
	i := portIndex(cc.Kind, port)
	if i < 0 {
		return noPort, false
	}
	return cc.port(i), true
}

// PortName returns the qualified name of port id, as in "lever.signal".
//
func (c *Circuit) PortName(id PortID) string {
	p := &c.ports[id]
	return c.comps[p.Comp].Name + "." + p.Name
}

// Connections returns a copy of the circuit's connections.
//
func (c *Circuit) Connections() []Connection {
	return append([]Connection(nil), c.conns...)
}

// Fanout returns the sink ports driven by port id.
//
func (c *Circuit) Fanout(id PortID) []PortID {
	return append([]PortID(nil), c.fanout[id]...)
}

// Diagnostics returns the warnings found while building the circuit.
//
func (c *Circuit) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), c.diags...)
}

func (c *Circuit) portRange(id CompID) (PortID, PortID) {
	cc := &c.comps[id]
	return cc.first, cc.first + PortID(len(library[cc.Kind].ports))
}
