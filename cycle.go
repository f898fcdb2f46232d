// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

// isImmediate returns true if the component settles within the tick it sees
// an input change.
func (c *Circuit) isImmediate(id CompID) bool {
	return library[c.comps[id].Kind].class == classImmediate
}

// successors calls fn for every component driven by id.
func (c *Circuit) successors(id CompID, fn func(CompID)) {
	lo, hi := c.portRange(id)
	for p := lo; p < hi; p++ {
		if !c.ports[p].Dir.CanSource() {
			continue
		}
		for _, s := range c.fanout[p] {
			fn(c.ports[s].Comp)
		}
	}
}

// checkCycles rejects zero-delay cycles. It returns the topological position
// of every immediate component in the zero-delay subgraph. Positions of other
// components are meaningless.
//
// Only comparators and targets propagate within a tick, so any cycle made of
// them alone can never settle. A torch whose output reaches its own input
// through immediates only is an inverting self-loop and is rejected as well.
func (c *Circuit) checkCycles() ([]int, error) {
	n := len(c.comps)
	indeg := make([]int, n)
	for id := 0; id < n; id++ {
		if !c.isImmediate(CompID(id)) {
			continue
		}
		c.successors(CompID(id), func(s CompID) {
			if c.isImmediate(s) {
				indeg[s]++
			}
		})
	}

	// Kahn's algorithm. The ready list is kept in declaration order.
	topo := make([]int, n)
	var ready []CompID
	for id := 0; id < n; id++ {
		if c.isImmediate(CompID(id)) && indeg[id] == 0 {
			ready = append(ready, CompID(id))
		}
	}
	pos := 0
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		topo[id] = pos
		pos++
		c.successors(id, func(s CompID) {
			if !c.isImmediate(s) {
				return
			}
			if indeg[s]--; indeg[s] == 0 {
				ready = append(ready, s)
			}
		})
	}
	for id := 0; id < n; id++ {
		if c.isImmediate(CompID(id)) && indeg[id] > 0 {
			return nil, buildErr(ZeroDelayCombinationalCycle, c.comps[id].Name, "",
				"zero-delay loop through "+c.comps[id].Kind.String())
		}
	}

	for id := 0; id < n; id++ {
		if c.comps[id].Kind != Torch {
			continue
		}
		if c.selfInverting(CompID(id)) {
			return nil, buildErr(ZeroDelayCombinationalCycle, c.comps[id].Name, "",
				"torch output drives its own input")
		}
	}
	return topo, nil
}

// selfInverting reports whether torch t reaches itself through zero-delay
// components only.
func (c *Circuit) selfInverting(t CompID) bool {
	seen := make(map[CompID]bool)
	stack := []CompID{t}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		found := false
		c.successors(id, func(s CompID) {
			switch {
			case s == t:
				found = true
			case c.isImmediate(s) && !seen[s]:
				seen[s] = true
				stack = append(stack, s)
			}
		})
		if found {
			return true
		}
	}
	return false
}
