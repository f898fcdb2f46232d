// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package redsim

import (
	"runtime"
	"sync"
)

// A Job is an independent simulation run. Jobs can share the same Circuit.
//
type Job struct {
	Circuit *Circuit
	// Options may be shared by several jobs. Options.Observe is called from
	// the worker goroutine running the job, so a shared Observe function must
	// be safe for concurrent use.
	Options *Options
	Stimuli []Stimulus
}

// Result is the outcome of a Job.
//
type Result struct {
	Report Report
	Final  *Snapshot // state at the end of the run, nil if Err is set
	Err    error
}

// RunBatch runs jobs on a pool of workers goroutines and returns their results
// in job order. If workers is less or equal to 0, the value of GOMAXPROCS is
// used.
//
func RunBatch(workers int, jobs []Job) []Result {
	res := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return res
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jc := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go batchWorker(jobs, res, jc, &wg)
	}
	for i := range jobs {
		jc <- i
	}
	close(jc)
	wg.Wait()
	return res
}

func batchWorker(jobs []Job, res []Result, jc <-chan int, wg *sync.WaitGroup) {
	defer wg.Done()
	for i := range jc {
		res[i] = runJob(&jobs[i])
	}
}

func runJob(j *Job) Result {
	s := New(j.Circuit, j.Options)
	if err := s.Schedule(j.Stimuli...); err != nil {
		return Result{Err: err}
	}
	r, err := s.Run()
	if err != nil {
		return Result{Report: r, Err: err}
	}
	return Result{Report: r, Final: s.Snapshot()}
}
