// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind is the type of a component. The set of kinds is closed: every kind
// has exactly one entry in the behavior library.
//
type Kind uint8

// Supported component kinds.
//
const (
	Invalid Kind = iota
	Lever
	Button
	PressurePlate
	Repeater
	Comparator
	Torch
	Observer
	Lamp
	Dropper
	Hopper
	Target
	Piston
	StickyPiston
	SlimeBlock
	HoneyBlock
	kindCount
)

var kindNames = [kindCount]string{
	Invalid:       "Invalid",
	Lever:         "Lever",
	Button:        "Button",
	PressurePlate: "PressurePlate",
	Repeater:      "Repeater",
	Comparator:    "Comparator",
	Torch:         "RedstoneTorch",
	Observer:      "Observer",
	Lamp:          "Lamp",
	Dropper:       "Dropper",
	Hopper:        "Hopper",
	Target:        "Target",
	Piston:        "Piston",
	StickyPiston:  "StickyPiston",
	SlimeBlock:    "SlimeBlock",
	HoneyBlock:    "HoneyBlock",
}

// aliases accepted by ParseKind besides the canonical names.
var kindAliases = map[string]Kind{
	"torch":        Torch,
	"plate":        PressurePlate,
	"redstonelamp": Lamp,
	"slime":        SlimeBlock,
	"honey":        HoneyBlock,
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Valid returns true if k is one of the supported kinds.
//
func (k Kind) Valid() bool {
	return k > Invalid && k < kindCount
}

// Directional returns true for kinds whose facing is meaningful.
//
func (k Kind) Directional() bool {
	switch k {
	case Repeater, Comparator, Observer, Piston, StickyPiston, Dropper:
		return true
	}
	return false
}

// ParseKind returns the kind for the given declaration name. Matching is
// case insensitive and ignores underscores.
//
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.Replace(name, "_", "", -1))
	for k := Lever; k < kindCount; k++ {
		if strings.ToLower(kindNames[k]) == n {
			return k, nil
		}
	}
	if k, ok := kindAliases[n]; ok {
		return k, nil
	}
	return Invalid, errors.Errorf("unknown component type %q", name)
}

// Facing is one of the six axis directions. FacingNone is used by
// non-directional components.
//
type Facing uint8

// Axis directions.
//
const (
	FacingNone Facing = iota
	Down
	Up
	North
	South
	West
	East
	facingCount
)

var facingNames = [facingCount]string{"none", "down", "up", "north", "south", "west", "east"}

func (f Facing) String() string {
	if f < facingCount {
		return facingNames[f]
	}
	return "Facing(" + strconv.Itoa(int(f)) + ")"
}

// ParseFacing parses a direction name. The empty string maps to FacingNone.
//
func ParseFacing(s string) (Facing, error) {
	if s == "" {
		return FacingNone, nil
	}
	s = strings.ToLower(s)
	for f := FacingNone; f < facingCount; f++ {
		if facingNames[f] == s {
			return f, nil
		}
	}
	return FacingNone, errors.Errorf("unknown facing %q", s)
}

// Mode is a comparator mode.
//
type Mode uint8

// Comparator modes.
//
const (
	Compare Mode = iota
	Subtract
	modeCount
)

func (m Mode) String() string {
	switch m {
	case Compare:
		return "compare"
	case Subtract:
		return "subtract"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// ParseMode parses a comparator mode name. The empty string maps to Compare.
//
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "compare":
		return Compare, nil
	case "subtract":
		return Subtract, nil
	}
	return Compare, errors.Errorf("unknown comparator mode %q", s)
}

// Signal is a signal strength in the range 0-15. Binary ports only carry
// 0 (unpowered) or 15 (powered).
//
type Signal uint8

// Signal bounds.
//
const (
	Off Signal = 0
	On  Signal = 15
)

// Powered returns true if s is non-zero.
//
func (s Signal) Powered() bool { return s > 0 }

func digital(s Signal) Signal {
	if s > 0 {
		return On
	}
	return Off
}

func invert(s Signal) Signal {
	if s > 0 {
		return Off
	}
	return On
}

// Pos is a block position. It is used for overlap checks and export only,
// never for signal propagation.
//
type Pos [3]int

func (p Pos) String() string {
	return "(" + strconv.Itoa(p[0]) + ", " + strconv.Itoa(p[1]) + ", " + strconv.Itoa(p[2]) + ")"
}

// MarshalText implements encoding.TextMarshaler.
//
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (k *Kind) UnmarshalText(b []byte) (err error) {
	*k, err = ParseKind(string(b))
	return err
}

// MarshalText implements encoding.TextMarshaler.
//
func (f Facing) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (f *Facing) UnmarshalText(b []byte) (err error) {
	*f, err = ParseFacing(string(b))
	return err
}

// MarshalText implements encoding.TextMarshaler.
//
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (m *Mode) UnmarshalText(b []byte) (err error) {
	*m, err = ParseMode(string(b))
	return err
}
