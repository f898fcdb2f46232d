// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

// class groups kinds by how their effects become visible. Components are
// evaluated in class order within a tick.
type class uint8

const (
	// switches only react to stimuli and wake-ups.
	classSwitch class = iota
	// immediates settle within the tick they see an input change.
	classImmediate
	// delay elements only emit effects at a later tick.
	classDelay
	// actuators have no outputs.
	classActuator
	classInert
)

// A behavior is the shared definition of a kind: its port set, its update
// priority and its transition function.
type behavior struct {
	ports    []PortSpec
	class    class
	priority int
	step     func(x *exec)
}

// library is the behavior library, indexed by Kind. It is never modified.
var library = [kindCount]behavior{
	Lever:         {switchPorts, classSwitch, 0, stepLever},
	Button:        {switchPorts, classSwitch, 0, stepButton},
	PressurePlate: {switchPorts, classSwitch, 0, stepButton},
	Repeater:      {repeaterPorts, classDelay, 1, stepRepeater},
	Torch:         {torchPorts, classDelay, 2, stepTorch},
	Observer:      {observerPorts, classDelay, 3, stepObserver},
	Comparator:    {comparatorPorts, classImmediate, 4, stepComparator},
	Target:        {targetPorts, classImmediate, 5, stepTarget},
	Lamp:          {actuatorPorts, classActuator, 6, stepLamp},
	Piston:        {actuatorPorts, classActuator, 6, stepPiston},
	StickyPiston:  {actuatorPorts, classActuator, 6, stepStickyPiston},
	Dropper:       {actuatorPorts, classActuator, 6, stepDropper},
	Hopper:        {hopperPorts, classActuator, 6, stepLamp},
	SlimeBlock:    {nil, classInert, 7, nil},
	HoneyBlock:    {nil, classInert, 7, nil},
}

// State is the internal state of a component. Which fields are meaningful
// depends on the component's kind:
//
//	Lever, Button, PressurePlate: On is the switch state.
//	Repeater: Last is the last accepted input, Locked is the lock state.
//	On unlock, Last is reset to the held output.
//	Comparator, Target, Torch: Last is the last output value emitted.
//	Observer: Last is the last observed input.
//	Lamp, Hopper: On is lit (resp. locked).
//	Dropper: On is powered, Fired is set for one tick on a rising edge.
//	Piston: On is extended.
//	StickyPiston: On is extended, Held is set while the piston holds its
//	block, Fresh while it has been extended for less than two ticks and
//	Spat after a retraction that left the block behind.
//
// State values are comparable.
//
type State struct {
	On     bool   `json:"on,omitempty"`
	Locked bool   `json:"locked,omitempty"`
	Held   bool   `json:"held,omitempty"`
	Fresh  bool   `json:"fresh,omitempty"`
	Spat   bool   `json:"spat,omitempty"`
	Fired  bool   `json:"fired,omitempty"`
	Last   Signal `json:"last,omitempty"`
}

func (st *State) flags() byte {
	var b byte
	for i, f := range [...]bool{st.On, st.Locked, st.Held, st.Fresh, st.Spat, st.Fired} {
		if f {
			b |= 1 << uint(i)
		}
	}
	return b
}

// ComparatorOutput returns the output of a comparator in mode m given the
// rear and side input strengths.
//
func ComparatorOutput(rear, side Signal, m Mode) Signal {
	if m == Subtract {
		if side >= rear {
			return 0
		}
		return rear - side
	}
	if rear >= side {
		return rear
	}
	return 0
}

// exec is the context of a single transition function call.
type exec struct {
	s     *Simulation
	c     CompID
	comp  *Component
	st    *State
	stim  Action
	woken bool
}

// in returns the value received on the i-th port of the component.
func (x *exec) in(i int) Signal {
	return x.s.in[x.comp.port(i)]
}

// out returns the value emitted on the i-th port of the component.
func (x *exec) out(i int) Signal {
	return x.s.out[x.comp.port(i)]
}

// emit schedules an output change on the i-th port after delay ticks. A zero
// delay is applied immediately.
func (x *exec) emit(delay uint64, i int, v Signal) {
	pid := x.comp.port(i)
	if delay == 0 {
		x.s.write(pid, v)
		return
	}
	x.s.push(x.c, pid, delay, v)
}

// wake schedules a call to the transition function after delay ticks.
func (x *exec) wake(delay uint64) {
	x.s.push(x.c, noPort, delay, 0)
}

func (x *exec) warn(code Code, msg string) {
	x.s.warn(Diagnostic{
		Severity:  Warning,
		Code:      code,
		Component: x.comp.Name,
		Tick:      x.s.now,
		Message:   msg,
	})
}

func level(on bool) Signal {
	if on {
		return On
	}
	return Off
}

func stepLever(x *exec) {
	on := x.st.On
	switch x.stim {
	case Toggle:
		on = !on
	case SetOn:
		on = true
	case SetOff:
		on = false
	}
	if on != x.st.On {
		x.st.On = on
		x.emit(0, 0, level(on))
	}
}

// stepButton handles buttons and pressure plates. A press is held for a
// fixed number of ticks, presses while pressed are ignored.
func stepButton(x *exec) {
	if x.woken && x.st.On {
		x.st.On = false
		x.emit(0, 0, Off)
	}
	if x.stim == Press && !x.st.On {
		x.st.On = true
		x.emit(0, 0, On)
		x.wake(x.s.pulse(x.comp.Kind))
	}
}

// stepRepeater forwards its input after the configured delay. A locked
// repeater holds its output: output changes still in flight are dropped and
// the input is read again once unlocked.
func stepRepeater(x *exec) {
	if x.in(1).Powered() {
		if !x.st.Locked {
			x.st.Locked = true
			x.s.cancel(x.c)
		}
		return
	}
	if x.st.Locked {
		x.st.Locked = false
		x.st.Last = x.out(2)
	}
	if v := digital(x.in(0)); v != x.st.Last {
		x.st.Last = v
		x.emit(uint64(x.comp.Delay), 2, v)
	}
}

func stepComparator(x *exec) {
	if v := ComparatorOutput(x.in(0), x.in(1), x.comp.Mode); v != x.st.Last {
		x.st.Last = v
		x.emit(0, 2, v)
	}
}

func stepTorch(x *exec) {
	if v := invert(x.in(0)); v != x.st.Last {
		x.st.Last = v
		x.emit(1, 1, v)
	}
}

func stepObserver(x *exec) {
	if v := x.in(0); v != x.st.Last {
		x.st.Last = v
		x.emit(1, 1, On)
		x.emit(2, 1, Off)
	}
}

func stepTarget(x *exec) {
	if v := x.in(0); v != x.st.Last {
		x.st.Last = v
		x.emit(0, 0, v)
	}
}

// stepLamp is used by lamps and hoppers.
func stepLamp(x *exec) {
	x.st.On = x.in(0).Powered()
}

func stepDropper(x *exec) {
	if x.woken {
		x.st.Fired = false
	}
	p := x.in(0).Powered()
	if p && !x.st.On {
		x.st.Fired = true
		x.wake(1)
	}
	x.st.On = p
}

func stepPiston(x *exec) {
	x.st.On = x.in(0).Powered()
}

func stepStickyPiston(x *exec) {
	p := x.in(0).Powered()
	switch {
	case p && !x.st.On:
		x.st.On, x.st.Held, x.st.Fresh, x.st.Spat = true, true, true, false
		x.wake(1)
	case !p && x.st.On:
		x.st.On, x.st.Held = false, false
		if x.st.Fresh {
			x.st.Spat = true
			x.warn(BlockSpitting, "one-tick pulse: sticky piston left its block behind")
		}
		x.st.Fresh = false
	case x.woken:
		x.st.Fresh = false
	}
}
