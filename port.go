// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

// Dir is a port direction.
//
type Dir uint8

// Port directions. Both is used by ports that receive a signal and drive it
// back out.
//
const (
	Sink Dir = 1 << iota
	Source
	Both = Sink | Source
)

// CanSink returns true if a connection may end on a port with direction d.
//
func (d Dir) CanSink() bool { return d&Sink != 0 }

// CanSource returns true if a connection may start from a port with
// direction d.
//
func (d Dir) CanSource() bool { return d&Source != 0 }

func (d Dir) String() string {
	switch d {
	case Sink:
		return "sink"
	case Source:
		return "source"
	case Both:
		return "bidirectional"
	}
	return "none"
}

// SigKind tells whether a port carries a binary or graded signal.
//
type SigKind uint8

// Signal kinds.
//
const (
	Binary SigKind = iota
	Graded
)

func (k SigKind) String() string {
	if k == Graded {
		return "graded"
	}
	return "binary"
}

// PortSpec describes a port in a kind's port set.
//
type PortSpec struct {
	Name string
	Dir  Dir
	Sig  SigKind
	// Required input ports left unconnected are reported as warnings and
	// read as unpowered.
	Required bool
}

// common port names
const (
	pSignal = "signal"
	pPower  = "power"
	pInput  = "input"
	pOutput = "output"
	pLock   = "lock"
	pRear   = "rear"
	pSide   = "side"
)

var (
	switchPorts   = []PortSpec{{pSignal, Source, Binary, false}}
	repeaterPorts = []PortSpec{
		{pInput, Sink, Binary, true},
		{pLock, Sink, Binary, false},
		{pOutput, Source, Binary, false},
	}
	comparatorPorts = []PortSpec{
		{pRear, Sink, Graded, true},
		{pSide, Sink, Graded, false},
		{pOutput, Source, Graded, false},
	}
	torchPorts = []PortSpec{
		{pInput, Sink, Binary, false},
		{pOutput, Source, Binary, false},
	}
	observerPorts = []PortSpec{
		{pInput, Sink, Graded, true},
		{pOutput, Source, Binary, false},
	}
	actuatorPorts = []PortSpec{{pPower, Sink, Binary, true}}
	hopperPorts   = []PortSpec{{pPower, Sink, Binary, false}}
	targetPorts   = []PortSpec{{pPower, Both, Graded, true}}
)

// Ports returns the port set of kind k. The returned slice must not be
// modified.
//
func Ports(k Kind) []PortSpec {
	if !k.Valid() {
		return nil
	}
	return library[k].ports
}

// portIndex returns the index of the named port in k's port set or -1.
func portIndex(k Kind, name string) int {
	for i, p := range Ports(k) {
		if p.Name == name {
			return i
		}
	}
	return -1
}
