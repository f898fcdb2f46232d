// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

import "container/heap"

// An event is a pending effect. port is noPort for wake-ups.
type event struct {
	tick  uint64
	prio  int
	seq   uint64
	comp  CompID
	port  PortID
	value Signal
}

func (e *event) before(o *event) bool {
	if e.tick != o.tick {
		return e.tick < o.tick
	}
	if e.prio != o.prio {
		return e.prio < o.prio
	}
	return e.seq < o.seq
}

// eventQueue is a min-heap of events ordered by (tick, priority, sequence).
type eventQueue []event

func (q eventQueue) Len() int            { return len(q) }
func (q eventQueue) Less(i, j int) bool  { return q[i].before(&q[j]) }
func (q eventQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x interface{}) { *q = append(*q, x.(event)) }

func (q *eventQueue) Pop() interface{} {
	old := *q
	e := old[len(old)-1]
	*q = old[:len(old)-1]
	return e
}

// due returns true if the head of the queue is scheduled at or before tick.
func (q eventQueue) due(tick uint64) bool {
	return len(q) > 0 && q[0].tick <= tick
}

func (q *eventQueue) next() event {
	return heap.Pop(q).(event)
}

// worklist is a min-heap of component ranks.
type worklist []int

func (w worklist) Len() int            { return len(w) }
func (w worklist) Less(i, j int) bool  { return w[i] < w[j] }
func (w worklist) Swap(i, j int)       { w[i], w[j] = w[j], w[i] }
func (w *worklist) Push(x interface{}) { *w = append(*w, x.(int)) }

func (w *worklist) Pop() interface{} {
	old := *w
	r := old[len(old)-1]
	*w = old[:len(old)-1]
	return r
}
