// Package sim drives a distributed algorithm over virtual time: a
// single-threaded event loop popping a time-ordered queue, applying each
// event to the target process's state, and scheduling whatever the algorithm
// returns. Runs are fully deterministic given a fixed seed.
package sim

import (
	"container/heap"
	"fmt"
	"math/rand"
	"time"

	"github.com/dsimlab/dsim"
	"github.com/dsimlab/dsim/trace"
)

// TimedEvent is a queue entry. Seq is a simulator-local monotonic counter
// and the sole tie-breaker among equal times, so equal-time events are
// delivered in the exact order they were scheduled.
type TimedEvent struct {
	Time  time.Duration
	Seq   uint64
	Event dsim.Event
}

type eventQueue []TimedEvent

var _ heap.Interface = &eventQueue{}

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].Time != q[j].Time {
		return q[i].Time < q[j].Time
	}
	return q[i].Seq < q[j].Seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x interface{}) {
	*q = append(*q, x.(TimedEvent))
}

func (q *eventQueue) Pop() interface{} {
	old := *q
	entry := old[len(old)-1]
	old[len(old)-1] = TimedEvent{}
	*q = old[:len(old)-1]
	return entry
}

// Option configures a Simulator during New.
type Option func(*Simulator)

// WithTrace enables trace recording for the run.
func WithTrace() Option {
	return func(s *Simulator) { s.tracing = true }
}

// WithSeed seeds the generator used for synchrony-model delay sampling.
func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithRand supplies the generator used for synchrony-model delay sampling.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// Simulator owns the virtual clock and the event queue of one run. It is not
// safe for concurrent use; every operation runs to completion before the
// next begins.
type Simulator struct {
	system        dsim.System
	algorithm     dsim.Algorithm
	configuration dsim.Configuration
	now           time.Duration
	queue         eventQueue
	nextSeq       uint64
	rng           *rand.Rand
	tracing       bool
	record        *trace.Trace
}

// New builds a simulator with every process in its algorithm-defined initial
// state. Tracing is off unless WithTrace is given.
func New(system dsim.System, algorithm dsim.Algorithm, options ...Option) *Simulator {
	states := []dsim.State{}
	for _, pid := range system.Processes().Sorted() {
		states = append(states, algorithm.InitialState(pid))
	}
	s := &Simulator{
		system:        system,
		algorithm:     algorithm,
		configuration: dsim.ConfigurationOf(states...),
		rng:           rand.New(rand.NewSource(1)),
	}
	for _, option := range options {
		option(s)
	}
	if s.tracing {
		s.record = trace.NewForRun(system, algorithm)
	}
	return s
}

// Now returns the current virtual time. It never decreases.
func (s *Simulator) Now() time.Duration {
	return s.now
}

// Configuration returns the current state of every process.
func (s *Simulator) Configuration() dsim.Configuration {
	return s.configuration
}

// Trace returns the recorded trace, or nil when tracing is disabled.
func (s *Simulator) Trace() *trace.Trace {
	return s.record
}

// IsFinished reports whether the queue is empty.
func (s *Simulator) IsFinished() bool {
	return len(s.queue) == 0
}

// Start resets the clock to zero and runs the algorithm's OnStart hook for
// every process in topology enumeration order, scheduling any returned
// events under the usual arrival-time rule.
func (s *Simulator) Start() error {
	s.now = 0
	for _, pid := range s.system.Processes().Sorted() {
		state, ok := s.configuration.State(pid)
		if !ok {
			return fmt.Errorf("%w: %v has no initial state", dsim.ErrUnknownProcess, pid)
		}
		started, events, err := s.algorithm.OnStart(state)
		if err != nil {
			return fmt.Errorf("starting %v: %w", pid, err)
		}
		s.configuration = s.configuration.Updated(started)
		for _, event := range events {
			s.Schedule(event, s.arrivalTimeFor(event))
		}
	}
	return nil
}

// arrivalTimeFor applies the arrival-time rule: messages are delayed by the
// synchrony model, signals fire at the current time.
func (s *Simulator) arrivalTimeFor(event dsim.Event) time.Duration {
	if _, ok := event.(dsim.MessageEvent); ok {
		return s.system.Synchrony.ArrivalTimeFor(s.rng, s.now)
	}
	return s.now
}

// Schedule enqueues an event for delivery at the given time, clamped so it
// can never land in the past. When tracing, the occurrence is recorded
// immediately, in scheduling order, not at delivery.
func (s *Simulator) Schedule(event dsim.Event, at time.Duration) {
	if at < s.now {
		at = s.now
	}
	seq := s.nextSeq
	s.nextSeq++
	heap.Push(&s.queue, TimedEvent{Time: at, Seq: seq, Event: event})
	if s.record != nil {
		s.record.AppendOccurrences(trace.Occurrence{Start: s.now, End: at, Event: event})
	}
}

// AdvanceStep delivers the next scheduled event: it advances the clock,
// applies the algorithm's transition to the target's state, and schedules
// any produced events. A target missing from the configuration or an event
// the algorithm cannot handle aborts the step with an error. With an empty
// queue it does nothing.
func (s *Simulator) AdvanceStep() error {
	if len(s.queue) == 0 {
		return nil
	}
	entry := heap.Pop(&s.queue).(TimedEvent)
	if entry.Time > s.now {
		s.now = entry.Time
	}
	target := entry.Event.Target()
	state, ok := s.configuration.State(target)
	if !ok {
		return fmt.Errorf("%w: event %v targets %v", dsim.ErrUnknownProcess, entry.Event, target)
	}
	newState, events, err := s.algorithm.OnEvent(state, entry.Event)
	if err != nil {
		return fmt.Errorf("delivering %v to %v: %w", entry.Event, target, err)
	}
	s.configuration = s.configuration.Updated(newState)
	for _, event := range events {
		s.Schedule(event, s.arrivalTimeFor(event))
	}
	if s.record != nil {
		s.record.AppendSnapshots(trace.Snapshot{Time: s.now, Configuration: s.configuration})
	}
	return nil
}

// RunToCompletion advances steps until the queue empties or stepLimit events
// have been processed (stepLimit 0 means unbounded; hitting the limit is a
// safety valve, not an error). It returns the number of steps taken.
func (s *Simulator) RunToCompletion(stepLimit int) (int, error) {
	steps := 0
	for !s.IsFinished() && (stepLimit == 0 || steps < stepLimit) {
		if err := s.AdvanceStep(); err != nil {
			return steps, err
		}
		steps++
	}
	return steps, nil
}

func (s *Simulator) String() string {
	return fmt.Sprintf("Simulator(%s) @%v: %d states, %d scheduled",
		s.algorithm.Name(), s.now, s.configuration.Len(), len(s.queue))
}
