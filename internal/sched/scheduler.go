// Package sched implements the cooperative round-robin task scheduler
// (§4.9): a single interpreter thread ticks every live task once per
// round; AWAIT, an event-dispatch boundary, STOP, and breakpoints are the
// only suspension points. Grounded on the task/fork pattern of
// _examples/6af83eae_MongooseMoo-barn__vm-vm.go.go (a Task/VM pair ticked
// by a scheduler loop, forking a new task rather than blocking the
// interpreter), generalized behind a small interface so this package
// never needs to know about jdbasic's Value/Program types.
package sched

import "fmt"

// Task is one schedulable unit of cooperative work. Tick executes until the
// task's next suspension point and reports whether it has finished.
type Task interface {
	ID() int
	Tick() (done bool, err error)
}

// Scheduler round-robins a set of live tasks to completion (§4.9).
type Scheduler struct {
	tasks   []Task
	byID    map[int]Task
	done    map[int]error
	current int
}

func New() *Scheduler {
	return &Scheduler{byID: make(map[int]Task), done: make(map[int]error)}
}

// Spawn registers a new task to be ticked starting on the next round.
func (s *Scheduler) Spawn(t Task) {
	s.tasks = append(s.tasks, t)
	s.byID[t.ID()] = t
}

// Done reports whether task id has finished, and its terminal error (nil on
// success). The second return is false while the task is still live or
// unknown.
func (s *Scheduler) Done(id int) (err error, finished bool) {
	if err, ok := s.done[id]; ok {
		return err, true
	}
	return nil, false
}

// RunToCompletion ticks every live task round-robin until none remain
// (§4.9: "a single interpreter thread, round-robin ticks over tasks").
func (s *Scheduler) RunToCompletion() error {
	for len(s.tasks) > 0 {
		if err := s.RunOneRound(); err != nil {
			return err
		}
	}
	return nil
}

// RunOneRound ticks every currently live task exactly once.
func (s *Scheduler) RunOneRound() error {
	round := s.tasks
	s.tasks = nil
	live := round[:0]
	for _, t := range round {
		finished, err := t.Tick()
		if err != nil {
			s.done[t.ID()] = err
			delete(s.byID, t.ID())
			continue
		}
		if finished {
			s.done[t.ID()] = nil
			delete(s.byID, t.ID())
			continue
		}
		live = append(live, t)
	}
	s.tasks = append(live, s.tasks...)
	return nil
}

// AwaitResult blocks the scheduler (by repeatedly running rounds) until the
// named task finishes, returning its terminal error. Used to implement the
// AWAIT expression (§4.9): the awaiting task itself is not in s.tasks while
// this runs, so other tasks keep making progress.
func (s *Scheduler) AwaitResult(id int) error {
	for {
		if err, finished := s.Done(id); finished {
			return err
		}
		if _, ok := s.byID[id]; !ok {
			return fmt.Errorf("await: unknown task %d", id)
		}
		if err := s.RunOneRound(); err != nil {
			return err
		}
	}
}

func (s *Scheduler) Live() int { return len(s.tasks) }
