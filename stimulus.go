// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Action is an external input applied to a switch.
//
type Action uint8

// Actions. Levers accept Toggle, SetOn and SetOff; buttons and pressure plates
// accept Press.
//
const (
	noAction Action = iota
	Toggle
	SetOn
	SetOff
	Press
)

var actionNames = [...]string{"", "toggle", "on", "off", "press"}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "?"
}

// ParseAction returns the action with the given name.
//
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(s)
	for a := Toggle; int(a) < len(actionNames); a++ {
		if actionNames[a] == s {
			return a, nil
		}
	}
	return noAction, errors.Errorf("unknown action %q", s)
}

// MarshalText implements encoding.TextMarshaler.
//
func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (a *Action) UnmarshalText(b []byte) (err error) {
	*a, err = ParseAction(string(b))
	return err
}

// A Stimulus is an action applied to a named switch at a given tick.
//
type Stimulus struct {
	Tick      uint64
	Component string
	Action    Action
}

// accepts returns true if a switch of kind k can receive action a.
func accepts(k Kind, a Action) bool {
	switch k {
	case Lever:
		return a == Toggle || a == SetOn || a == SetOff
	case Button, PressurePlate:
		return a == Press
	}
	return false
}

type stimulus struct {
	tick   uint64
	comp   CompID
	action Action
}

// Schedule adds stimuli to the simulation. Stimuli at the same tick are applied
// in the order they were scheduled.
//
// Scheduling stimuli on a finished run resumes it. The MaxTicks bound then
// applies from the current tick.
//
// Schedule fails without scheduling anything if any stimulus targets an
// unknown component, a component that is not a switch, uses an action that
// the switch does not accept or is scheduled before the current tick.
//
func (s *Simulation) Schedule(stims ...Stimulus) error {
	if s.status == Errored {
		return errors.Wrap(s.err, "simulation failed")
	}
	add := make([]stimulus, 0, len(stims))
	for _, st := range stims {
		id, ok := s.c.Lookup(st.Component)
		if !ok {
			return errors.Errorf("stimulus at tick %d: unknown component %q", st.Tick, st.Component)
		}
		k := s.c.comps[id].Kind
		if library[k].class != classSwitch {
			return errors.Errorf("stimulus at tick %d: %s is a %v, not a switch", st.Tick, st.Component, k)
		}
		if !accepts(k, st.Action) {
			return errors.Errorf("stimulus at tick %d: action %q not supported by %v %s", st.Tick, st.Action, k, st.Component)
		}
		if st.Tick < s.steps {
			return errors.Errorf("stimulus at tick %d for %s: already at tick %d", st.Tick, st.Component, s.steps)
		}
		add = append(add, stimulus{st.Tick, id, st.Action})
	}
	pending := make([]stimulus, 0, len(s.stims)-s.next+len(add))
	pending = append(pending, s.stims[s.next:]...)
	pending = append(pending, add...)
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].tick < pending[j].tick })
	s.stims, s.next = pending, 0
	if s.status.done() {
		// resume a finished run
		s.status = Running
		s.base = s.steps
	}
	return nil
}

// pulse returns the number of ticks a switch of kind k stays on once pressed.
func (s *Simulation) pulse(k Kind) uint64 {
	if k == PressurePlate {
		return s.opts.PlateTicks
	}
	return s.opts.ButtonTicks
}
