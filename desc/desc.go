// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package desc loads circuit description documents.
//
// A description document is a YAML (or JSON) document listing components,
// connections and an optional stimulus schedule:
//
//	name: door
//	components:
//	  - {name: lever, type: Lever, position: [8, 5, 10]}
//	  - {name: p1, type: StickyPiston, position: [10, 5, 10], facing: up}
//	connections:
//	  - lever.signal -> p1.power
//	stimuli:
//	  - {tick: 0, component: lever, action: toggle}
//
// Documents are validated against a JSON schema before conversion.
//
package desc

import (
	_ "embed" // schema
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/db47h/redsim"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaSource string

var schema = jsonschema.MustCompileString("redsim.schema.json", schemaSource)

// Document is a decoded description document.
//
type Document struct {
	Name        string      `yaml:"name"`
	Components  []Component `yaml:"components"`
	Connections []string    `yaml:"connections"`
	Stimuli     []Stimulus  `yaml:"stimuli"`
}

// Component is a component declaration.
//
type Component struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Position []int  `yaml:"position"`
	Facing   string `yaml:"facing"`
	Delay    *int   `yaml:"delay"` // defaults to 1 for repeaters
	Mode     string `yaml:"mode"`
}

// Stimulus is a scheduled action on a switch.
//
type Stimulus struct {
	Tick      uint64 `yaml:"tick"`
	Component string `yaml:"component"`
	Action    string `yaml:"action"`
}

// Load reads and decodes the document at path.
//
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	d, err := Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return d, nil
}

// Decode decodes and validates a YAML or JSON document.
//
func Decode(data []byte) (*Document, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse document")
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(err, "decode document")
	}
	return &d, nil
}

// Validate checks a generic document value, as produced by yaml.Unmarshal or
// json.Unmarshal into an interface{}, against the description schema.
//
func Validate(v interface{}) error {
	// normalize to JSON types
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "document is not representable as JSON")
	}
	var doc interface{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return errors.WithStack(err)
	}
	if err := schema.Validate(doc); err != nil {
		return errors.Wrap(err, "invalid document")
	}
	return nil
}

// ParseLink parses a connection declaration of the form "a.p -> b.q".
//
func ParseLink(s string) (redsim.Link, error) {
	i := strings.Index(s, "->")
	if i < 0 {
		return redsim.Link{}, errors.Errorf("connection %q: missing \"->\"", s)
	}
	from, err := parseRef(s[:i])
	if err != nil {
		return redsim.Link{}, errors.Wrapf(err, "connection %q", s)
	}
	to, err := parseRef(s[i+2:])
	if err != nil {
		return redsim.Link{}, errors.Wrapf(err, "connection %q", s)
	}
	return redsim.Link{From: from, To: to}, nil
}

func parseRef(s string) (redsim.PortRef, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return redsim.PortRef{}, errors.Errorf("bad port reference %q, expected component.port", s)
	}
	return redsim.PortRef{Component: s[:i], Port: s[i+1:]}, nil
}

// Description converts the document into a circuit description and a stimulus
// schedule. Unknown component types are reported as redsim.UnknownComponentType
// and bad facings or modes as redsim.ConfigurationOutOfRange build errors.
//
func (d *Document) Description() (*redsim.Description, []redsim.Stimulus, error) {
	rd := &redsim.Description{
		Components:  make([]redsim.Decl, 0, len(d.Components)),
		Connections: make([]redsim.Link, 0, len(d.Connections)),
	}
	for i := range d.Components {
		decl, err := d.Components[i].decl()
		if err != nil {
			return nil, nil, errors.Wrap(err, "components["+strconv.Itoa(i)+"]")
		}
		rd.Components = append(rd.Components, decl)
	}
	for i, c := range d.Connections {
		l, err := ParseLink(c)
		if err != nil {
			return nil, nil, errors.Wrap(err, "connections["+strconv.Itoa(i)+"]")
		}
		rd.Connections = append(rd.Connections, l)
	}
	stims := make([]redsim.Stimulus, 0, len(d.Stimuli))
	for i, s := range d.Stimuli {
		a, err := redsim.ParseAction(s.Action)
		if err != nil {
			return nil, nil, errors.Wrap(err, "stimuli["+strconv.Itoa(i)+"]")
		}
		stims = append(stims, redsim.Stimulus{Tick: s.Tick, Component: s.Component, Action: a})
	}
	return rd, stims, nil
}

func (c *Component) decl() (redsim.Decl, error) {
	decl := redsim.Decl{Name: c.Name}
	k, err := redsim.ParseKind(c.Type)
	if err != nil {
		return decl, errors.WithStack(&redsim.BuildError{Kind: redsim.UnknownComponentType, Component: c.Name, Detail: c.Type})
	}
	decl.Kind = k
	if len(c.Position) != 3 {
		return decl, errors.Errorf("%s: position needs 3 coordinates, got %d", c.Name, len(c.Position))
	}
	copy(decl.Pos[:], c.Position)
	if decl.Facing, err = redsim.ParseFacing(c.Facing); err != nil {
		return decl, errors.WithStack(&redsim.BuildError{Kind: redsim.ConfigurationOutOfRange, Component: c.Name, Detail: err.Error()})
	}
	if decl.Mode, err = redsim.ParseMode(c.Mode); err != nil {
		return decl, errors.WithStack(&redsim.BuildError{Kind: redsim.ConfigurationOutOfRange, Component: c.Name, Detail: err.Error()})
	}
	switch {
	case c.Delay != nil:
		decl.Delay = *c.Delay
	case k == redsim.Repeater:
		decl.Delay = 1
	}
	return decl, nil
}

// Circuit builds the circuit described by the document.
//
func (d *Document) Circuit() (*redsim.Circuit, []redsim.Stimulus, error) {
	rd, stims, err := d.Description()
	if err != nil {
		return nil, nil, err
	}
	c, err := redsim.Build(rd)
	if err != nil {
		return nil, nil, err
	}
	return c, stims, nil
}
