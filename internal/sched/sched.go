// Package sched provides execution contexts: the "where" of running a unit of
// work. The engine uses one to decide where its reduce step runs and the
// observation adapter uses one to decide where state is delivered.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/rxflow/internal/queue"
)

// Scheduler runs tasks. Implementations decide on which goroutine and when,
// but must run tasks scheduled from one goroutine in the order they were
// scheduled.
type Scheduler interface {
	Schedule(task func())
}

// TryScheduler is implemented by schedulers that can refuse a task, such as a
// closed Serial. TrySchedule reports whether task was accepted.
type TryScheduler interface {
	TrySchedule(task func()) bool
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(task func())

// Schedule calls f(task).
func (f SchedulerFunc) Schedule(task func()) { f(task) }

type immediate struct{}

func (immediate) Schedule(task func()) { task() }

// Immediate runs every task synchronously on the calling goroutine.
var Immediate Scheduler = immediate{}

// Serial runs tasks one at a time, in FIFO order, on a dedicated goroutine.
// It plays the role of a main loop: callers on any goroutine hand work to it
// and never wait for that work to finish.
type Serial struct {
	name  string
	tasks *queue.FIFO[func()]
	done  chan struct{}
	once  sync.Once
}

// NewSerial starts a serial scheduler. Close must be called to stop its
// goroutine.
func NewSerial(name string) *Serial {
	s := &Serial{
		name:  name,
		tasks: queue.New[func()](),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

// Schedule enqueues task. Tasks scheduled after Close are dropped.
func (s *Serial) Schedule(task func()) {
	s.TrySchedule(task)
}

// TrySchedule enqueues task and reports whether it was accepted. It returns
// false once Close has been called.
func (s *Serial) TrySchedule(task func()) bool {
	if !s.tasks.Enqueue(task) {
		slog.Debug("scheduler closed, task dropped", "scheduler", s.name)
		return false
	}
	return true
}

// Flush blocks until every task scheduled before the call has run, or ctx is
// done.
func (s *Serial) Flush(ctx context.Context) error {
	reached := make(chan struct{})
	if !s.tasks.Enqueue(func() { close(reached) }) {
		return fmt.Errorf("flush %s: %w", s.name, queue.ErrClosed)
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks. Already queued tasks still run; Done is closed
// once they have.
func (s *Serial) Close() {
	s.once.Do(s.tasks.Close)
}

// Done is closed when the scheduler goroutine has exited.
func (s *Serial) Done() <-chan struct{} {
	return s.done
}

func (s *Serial) loop() {
	defer close(s.done)
	for {
		task, err := s.tasks.Dequeue(context.Background())
		if err != nil {
			return
		}
		s.run(task)
	}
}

// run executes one task, containing a panic so later tasks still run.
func (s *Serial) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduled task panicked",
				"scheduler", s.name,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	task()
}
