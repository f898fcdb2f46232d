// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim_test

import (
	"fmt"
	"strings"

	rs "github.com/db47h/redsim"
)

// A torch feeding itself through a repeater is a clock.
//
func Example_clock() {
	c, err := rs.Build(&rs.Description{
		Components: []rs.Decl{
			{Name: "torch", Kind: rs.Torch, Pos: rs.Pos{0, 0, 0}},
			{Name: "rep", Kind: rs.Repeater, Delay: 2, Facing: rs.East, Pos: rs.Pos{1, 0, 0}},
			{Name: "lamp", Kind: rs.Lamp, Pos: rs.Pos{2, 0, 0}},
		},
		Connections: []rs.Link{
			{From: rs.PortRef{Component: "torch", Port: "output"}, To: rs.PortRef{Component: "rep", Port: "input"}},
			{From: rs.PortRef{Component: "rep", Port: "output"}, To: rs.PortRef{Component: "torch", Port: "input"}},
			{From: rs.PortRef{Component: "rep", Port: "output"}, To: rs.PortRef{Component: "lamp", Port: "power"}},
		},
	})
	if err != nil {
		panic(err)
	}

	var lamp []string
	s := rs.New(c, &rs.Options{
		Observe: func(snap *rs.Snapshot) {
			cs, _ := snap.Component("lamp")
			lamp = append(lamp, fmt.Sprintf("%d:%s", snap.Tick, cs.Tag))
		},
	})
	r, err := s.Run()
	if err != nil {
		panic(err)
	}
	fmt.Println(strings.Join(lamp, " "))
	fmt.Printf("%v, period %d\n", r.Outcome, r.Period)

	// Output:
	// 0:unlit 1:unlit 2:unlit 3:lit 4:lit 5:lit 6:unlit
	// periodic, period 6
}
