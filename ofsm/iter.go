package ofsm

import "time"

// EntryCallback is invoked once per matching entry during an
// iteration task, then exactly once with nil as the terminal
// sentinel, after which the task is destroyed (spec §4.3).
type EntryCallback func(entry *FlowEntry)

// Scheduler abstracts the cooperative runtime an IterationTask runs
// under (the SOC collaborator of spec §6): it decides when a slice is
// over and supplies the current monotonic time used for flow
// durations.
type Scheduler interface {
	// ShouldYield reports whether the current slice's budget has been
	// spent and the task should suspend until the next scheduler turn.
	ShouldYield() bool

	// Now returns the scheduler's notion of the current time.
	Now() time.Time
}

// IterationTask cooperatively iterates a snapshot of matching flow
// entries (C4). It processes entries until Scheduler.ShouldYield
// reports true, then suspends; a caller resumes it by calling Advance
// again on the next scheduler turn.
type IterationTask struct {
	snapshot []*FlowEntry
	cursor   int
	cb       EntryCallback
	done     bool
}

// Advance processes entries from the task's snapshot until either the
// snapshot is exhausted or sched reports the slice is over. It
// returns true once the task has reached its terminal callback.
//
// Entries deleted from the table after the snapshot was taken are
// skipped rather than delivered (spec §4.2: "entries deleted during
// iteration are not delivered").
func (t *IterationTask) Advance(sched Scheduler) bool {
	if t.done {
		return true
	}

	for t.cursor < len(t.snapshot) {
		e := t.snapshot[t.cursor]
		t.cursor++

		if e.deleted {
			continue
		}

		t.cb(e)

		if sched.ShouldYield() {
			return false
		}
	}

	t.done = true
	t.cb(nil)
	return true
}

// Done reports whether the task has already invoked its terminal
// callback.
func (t *IterationTask) Done() bool {
	return t.done
}

// Cancel runs the task to terminal immediately with an empty
// remainder, used when the Flow Table is torn down while the task is
// still active (spec §4.3 cancellation, §5 "the scheduler invokes the
// terminal callback with an empty remainder").
func (t *IterationTask) Cancel() {
	if t.done {
		return
	}
	t.done = true
	t.cb(nil)
}

// RunToCompletion drives the task to its terminal callback, calling
// Advance repeatedly until Done reports true. It models a scheduler
// that grants the task every slice it asks for back-to-back; used by
// handlers and tests that don't need to observe intermediate yields.
func RunToCompletion(t *IterationTask, sched Scheduler) {
	for !t.Advance(sched) {
	}
}

// sliceScheduler is a minimal Scheduler that yields after a fixed
// number of processed entries per Advance call, modeling the 10ms
// default slice budget deterministically for tests and for the
// bundled synchronous runtime (see StateManager).
type sliceScheduler struct {
	budget  int
	counted int
	now     time.Time
}

// NewSliceScheduler returns a Scheduler that yields after budget
// entries have been processed in the current Advance call, and
// reports now as the current time. A budget of 0 means never yield
// mid-snapshot (the task completes in a single Advance call).
func NewSliceScheduler(budget int, now time.Time) Scheduler {
	return &sliceScheduler{budget: budget, now: now}
}

func (s *sliceScheduler) ShouldYield() bool {
	if s.budget <= 0 {
		return false
	}
	s.counted++
	if s.counted >= s.budget {
		s.counted = 0
		return true
	}
	return false
}

func (s *sliceScheduler) Now() time.Time {
	return s.now
}
