/*
Package redsim builds and simulates redstone-style circuits.

A circuit is described as a list of named, typed components (levers, buttons,
repeaters, comparators, torches, observers, lamps, pistons, ...) and explicit
point-to-point connections between their ports. Build validates the
description and returns an immutable Circuit:

	c, err := redsim.Build(&redsim.Description{
		Components: []redsim.Decl{
			{Name: "lever", Kind: redsim.Lever},
			{Name: "lamp", Kind: redsim.Lamp, Pos: redsim.Pos{1, 0, 0}},
		},
		Connections: []redsim.Link{
			{From: redsim.PortRef{"lever", "signal"}, To: redsim.PortRef{"lamp", "power"}},
		},
	})

A Simulation runs a circuit one game tick at a time. Components react to input
changes through the transition function of their kind; delayed effects are
queued and zero-delay effects settle within the tick. Runs end when the
circuit stabilizes, when its full state repeats (a clock), or when the tick
bound is reached:

	s := redsim.New(c, nil)
	s.Schedule(redsim.Stimulus{Tick: 2, Component: "lever", Action: redsim.Toggle})
	r, err := s.Run()

Simulations are single-threaded and deterministic. RunBatch runs independent
simulations concurrently.

Spatial signal propagation (redstone dust, conductive blocks) is not modeled:
signals only travel along declared connections.
*/
package redsim
