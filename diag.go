// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

import (
	"strconv"

	"github.com/pkg/errors"
)

// Severity of a diagnostic.
//
type Severity uint8

// Severities. Errors abort Build and are reported as a BuildError instead.
//
const (
	Info Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "info"
}

// MarshalText implements encoding.TextMarshaler.
//
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "info":
		*s = Info
	case "warning":
		*s = Warning
	default:
		return errors.Errorf("unknown severity %q", b)
	}
	return nil
}

// Code identifies a diagnostic.
//
type Code uint8

// Diagnostic codes.
//
const (
	// UnconnectedInput: a required input port has no driver. It reads as
	// unpowered for the whole run.
	UnconnectedInput Code = iota + 1
	// Unreachable: no switch or torch can ever change the component's inputs.
	Unreachable
	// OverlappingPosition: two components share a block position.
	OverlappingPosition
	// BlockSpitting: a sticky piston received a pulse too short to pull its
	// block back.
	BlockSpitting
)

var codeNames = [...]string{"", "unconnected-input", "unreachable", "overlapping-position", "block-spitting"}

func (c Code) String() string {
	if int(c) < len(codeNames) && c > 0 {
		return codeNames[c]
	}
	return "Code(" + strconv.Itoa(int(c)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
//
func (c Code) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (c *Code) UnmarshalText(b []byte) error {
	for i := 1; i < len(codeNames); i++ {
		if codeNames[i] == string(b) {
			*c = Code(i)
			return nil
		}
	}
	return errors.Errorf("unknown diagnostic code %q", b)
}

// A Diagnostic is a non-fatal finding about a circuit or a run.
//
type Diagnostic struct {
	Severity  Severity `json:"severity"`
	Code      Code     `json:"code"`
	Component string   `json:"component,omitempty"`
	Port      string   `json:"port,omitempty"`
	Tick      uint64   `json:"tick,omitempty"` // runtime diagnostics only
	Message   string   `json:"message"`
}

func (d Diagnostic) String() string {
	s := d.Severity.String() + ": " + d.Code.String()
	if d.Component != "" {
		s += " " + d.Component
		if d.Port != "" {
			s += "." + d.Port
		}
	}
	return s + ": " + d.Message
}

// lint collects the build-time warnings of a circuit that passed validation.
func (c *Circuit) lint() {
	// unconnected required inputs
	for i := range c.ports {
		p := &c.ports[i]
		if p.Required && p.Dir.CanSink() && c.driver[i] == noPort {
			c.diags = append(c.diags, Diagnostic{
				Severity:  Warning,
				Code:      UnconnectedInput,
				Component: c.comps[p.Comp].Name,
				Port:      p.Name,
				Message:   "required input not connected, treated as unpowered",
			})
		}
	}

	// reachability from signal origins
	seen := make([]bool, len(c.comps))
	var stack []CompID
	for id := range c.comps {
		cl := library[c.comps[id].Kind].class
		if cl == classSwitch || c.comps[id].Kind == Torch {
			seen[id] = true
			stack = append(stack, CompID(id))
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		lo, hi := c.portRange(id)
		for p := lo; p < hi; p++ {
			for _, s := range c.fanout[p] {
				if sc := c.ports[s].Comp; !seen[sc] {
					seen[sc] = true
					stack = append(stack, sc)
				}
			}
		}
	}
	for id := range c.comps {
		cc := &c.comps[id]
		if seen[id] || !hasSink(cc.Kind) {
			continue
		}
		c.diags = append(c.diags, Diagnostic{
			Severity:  Warning,
			Code:      Unreachable,
			Component: cc.Name,
			Message:   "no switch or torch drives this component",
		})
	}

	// overlapping positions
	at := make(map[Pos]string, len(c.comps))
	for id := range c.comps {
		cc := &c.comps[id]
		if other, ok := at[cc.Pos]; ok {
			c.diags = append(c.diags, Diagnostic{
				Severity:  Warning,
				Code:      OverlappingPosition,
				Component: cc.Name,
				Message:   "same position " + cc.Pos.String() + " as " + other,
			})
			continue
		}
		at[cc.Pos] = cc.Name
	}
}

func hasSink(k Kind) bool {
	for _, p := range Ports(k) {
		if p.Dir.CanSink() {
			return true
		}
	}
	return false
}
