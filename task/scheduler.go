// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package task

import (
	"iter"
	"log"
	"slices"
	"sync"

	"github.com/ezrec/multitask/clock"
	"github.com/ezrec/multitask/cpu"
)

// Scheduler holds the process-wide switching state: the main context, and
// which task, if any, is running.
//
// All methods must be called from the running context. Only one context
// runs at a time, so no further locking is needed.
type Scheduler struct {
	Verbose  bool     // If set, logs every switch.
	Paranoid bool     // If set, checksums parked frames.
	Observer Observer // Told of every switch.

	cpu    *cpu.Cpu
	clock  clock.Clock
	main   Context
	active *Task // Running task, nil when main is running.
	tasks  []*Task
	fault  *Fault // Fault being carried to main.
	closed bool
	seq    int
}

var (
	defaultLock      sync.Mutex
	defaultScheduler *Scheduler
)

// New creates a scheduler on a core. The calling goroutine becomes main,
// with its stack at the core's current stack pointer.
func New(core *cpu.Cpu, clk clock.Clock) (s *Scheduler) {
	s = &Scheduler{
		cpu:   core,
		clock: clk,
	}

	s.main = Context{
		Name:  MAIN_NAME,
		id:    MAIN_ID,
		sp:    core.SP,
		stack: core.MainStack(),
		wake:  make(chan struct{}, 1),
	}

	return
}

// Start creates the process-wide scheduler.
func Start(core *cpu.Cpu, clk clock.Clock) (s *Scheduler, err error) {
	defaultLock.Lock()
	defer defaultLock.Unlock()

	if defaultScheduler != nil {
		err = ErrSchedulerStarted
		return
	}

	s = New(core, clk)
	defaultScheduler = s
	return
}

// Default returns the process-wide scheduler, or nil before Start.
func Default() *Scheduler {
	defaultLock.Lock()
	defer defaultLock.Unlock()

	return defaultScheduler
}

// Close tears the scheduler down from main. Parked tasks are released and
// never resume. If s is the process-wide scheduler, Start may be called again.
func (s *Scheduler) Close() (err error) {
	if s.closed {
		return
	}

	if s.active != nil {
		err = ErrCloseFromTask
		return
	}

	if s.Verbose {
		log.Printf("task: close, %d tasks", len(s.tasks))
	}

	s.closed = true
	for _, t := range s.tasks {
		close(t.wake)
	}

	defaultLock.Lock()
	if defaultScheduler == s {
		defaultScheduler = nil
	}
	defaultLock.Unlock()

	return
}

// Cpu is the core the scheduler switches.
func (s *Scheduler) Cpu() *cpu.Cpu {
	return s.cpu
}

// Clock is the time source of Delay.
func (s *Scheduler) Clock() clock.Clock {
	return s.clock
}

// Main is the main context.
func (s *Scheduler) Main() *Context {
	return &s.main
}

// Tasks iterates over the tasks in creation order.
func (s *Scheduler) Tasks() iter.Seq[*Task] {
	return slices.Values(s.tasks)
}

// NewTask creates a task with a stack of stackSize bytes reserved from SRAM.
// The task does not run until its first Go().
func (s *Scheduler) NewTask(name string, stackSize uint16, worker Worker) (t *Task, err error) {
	if s.closed {
		err = ErrSchedulerClosed
		return
	}

	if stackSize < MIN_STACK_SIZE {
		err = ErrStackTooSmall
		return
	}

	stack, err := s.cpu.ReserveStack(stackSize)
	if err != nil {
		return
	}

	t = &Task{
		Context: Context{
			Name:  name,
			id:    uint16(len(s.tasks) + 1),
			sp:    stack.Top(),
			first: true,
			stack: stack,
			wake:  make(chan struct{}, 1),
		},
		Worker: worker,
		sched:  s,
	}

	s.cpu.Store(stack.Base, uint8(STACK_CANARY>>8))
	s.cpu.Store(stack.Base+1, uint8(STACK_CANARY&0xff))

	s.tasks = append(s.tasks, t)

	if s.Verbose {
		log.Printf("task: %v stack 0x%04x..0x%04x", name, stack.Base, stack.Top())
	}

	return
}

// Activate switches to t; it returns once some context switches back.
func (s *Scheduler) Activate(t *Task) {
	s.tasksw(t, true)
}

// ReturnToMain switches to main; when called from a task, it returns once
// the task is activated again.
func (s *Scheduler) ReturnToMain() {
	s.tasksw(nil, false)
}

// IsRunning reports whether t is the running context.
func (s *Scheduler) IsRunning(t *Task) bool {
	return s.active == t
}

// IsMainRunning reports whether main is the running context.
func (s *Scheduler) IsMainRunning() bool {
	return s.active == nil
}

// Current returns the running task, or nil if main is running.
func (s *Scheduler) Current() *Task {
	return s.active
}
