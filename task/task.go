package task

import (
	"github.com/ezrec/multitask/clock"
	"github.com/ezrec/multitask/cpu"
)

// Worker is the unit of work of a task. Once the task is first activated,
// Work is called over and over, forever; it should Yield or Delay somewhere,
// or the rest of the system never runs again.
type Worker interface {
	Work()
}

// WorkerFunc adapts a function to a Worker.
type WorkerFunc func()

func (fn WorkerFunc) Work() {
	fn()
}

// Yielder may be implemented by a Worker to replace the suspension policy of
// Task.Yield. It must end up switching to some other context.
type Yielder interface {
	Yield(t *Task)
}

// Task is a context with its own stack and a Worker to run there.
type Task struct {
	Context
	Worker Worker

	sched *Scheduler
	dead  bool
}

// Go activates the task: it runs until it switches away, then Go returns.
func (t *Task) Go() {
	t.sched.Activate(t)
}

// Main switches back to main.
func (t *Task) Main() {
	t.sched.ReturnToMain()
}

// IsRunning reports whether the task is the running context.
func (t *Task) IsRunning() bool {
	return t.sched.IsRunning(t)
}

// Dead reports whether the task faulted.
func (t *Task) Dead() bool {
	return t.dead
}

// Scheduler returns the scheduler the task belongs to.
func (t *Task) Scheduler() *Scheduler {
	return t.sched
}

// Yield suspends the task. By default control goes back to main.
func (t *Task) Yield() {
	if yielder, ok := t.Worker.(Yielder); ok {
		yielder.Yield(t)
		return
	}

	t.Main()
}

// Delay suspends the task for at least ms milliseconds, yielding until the
// clock reaches the end time. It yields at least once unless ms is 0.
// Call it only from the task itself.
func (t *Task) Delay(ms uint16) {
	if ms == 0 {
		return
	}

	clk := t.sched.clock
	end := clk.Micros() + uint32(ms)*1000
	for {
		t.Yield()
		if clock.Reached(end, clk.Micros()) {
			return
		}
	}
}

// StackUsed returns the deepest use of the task's stack so far, in bytes,
// by finding the lowest byte no longer holding the paint value.
func (t *Task) StackUsed() (used int) {
	c := t.sched.cpu
	stack := t.stack

	for addr := stack.Base + CANARY_SIZE; addr <= stack.Top(); addr++ {
		if c.Load(addr) != cpu.STACK_PAINT {
			used = int(stack.Top()) - int(addr) + 1
			return
		}
	}

	return
}
