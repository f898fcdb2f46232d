// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

import (
	"strconv"

	"github.com/pkg/errors"
)

// ErrorKind identifies the reason why a circuit was rejected.
//
type ErrorKind int

// Build error kinds.
//
const (
	NoError ErrorKind = iota
	DuplicateComponentName
	UndefinedComponentReference
	UndefinedPortOnType
	PortDirectionMismatch
	SinkAlreadyConnected
	ConfigurationOutOfRange
	ZeroDelayCombinationalCycle
	UnknownComponentType
)

var errorKindNames = [...]string{
	"no error",
	"duplicate component name",
	"undefined component",
	"undefined port",
	"port direction mismatch",
	"sink already connected",
	"configuration out of range",
	"zero-delay combinational cycle",
	"unknown component type",
}

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
}

// A BuildError is returned by Build when a description is rejected.
//
type BuildError struct {
	Kind      ErrorKind
	Component string // offending component, if any
	Port      string // offending port, if any
	Detail    string
}

func (e *BuildError) Error() string {
	s := e.Kind.String()
	if e.Component != "" {
		s += ": " + e.Component
		if e.Port != "" {
			s += "." + e.Port
		}
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

func buildErr(k ErrorKind, comp, port, detail string) error {
	return errors.WithStack(&BuildError{Kind: k, Component: comp, Port: port, Detail: detail})
}

// KindOf returns the ErrorKind of err, looking through wrapped errors. It
// returns NoError if err is nil or not a *BuildError.
//
func KindOf(err error) ErrorKind {
	if err == nil {
		return NoError
	}
	if be, ok := errors.Cause(err).(*BuildError); ok {
		return be.Kind
	}
	return NoError
}
