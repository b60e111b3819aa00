// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package script runs Arduino style sketches written in Starlark. The
// sketch's setup() and loop() run on main; task() declares tasks whose
// work function runs on each task's own stack.
package script

import (
	"fmt"
	"io"
	"iter"
	"log"
	"strconv"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/multitask/task"
	"github.com/ezrec/multitask/uart"
)

// DEFAULT_TASK_STACK is the stack of a task() that does not give one.
const DEFAULT_TASK_STACK = 128

// Sketch is a loaded sketch, bound to a scheduler.
type Sketch struct {
	Verbose   bool                      // If set, logs task creation.
	Scheduler *task.Scheduler           // Scheduler of the tasks.
	Serial    *uart.Port                // Serial port, may be nil.
	Output    io.Writer                 // print() output; nil logs it.
	TaskStack uint16                    // Default task stack size.
	Defines   iter.Seq2[string, string] // Predeclared constants.

	thread  *starlark.Thread
	globals starlark.StringDict
	setup   starlark.Callable
	loop    starlark.Callable
	tasks   map[*task.Task]*Task
	shared  *Shared
}

// newThread creates the interpreter thread of one context.
func (sk *Sketch) newThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			sk.print(msg)
		},
	}
}

func (sk *Sketch) print(msg string) {
	if sk.Output == nil {
		log.Printf("script: %v", msg)
		return
	}

	fmt.Fprintln(sk.Output, msg)
}

// predeclared returns the defines and builtins visible to the sketch.
func (sk *Sketch) predeclared() (pred starlark.StringDict) {
	pred = starlark.StringDict{}

	if sk.Defines != nil {
		for key, str := range sk.Defines {
			value, err := strconv.ParseInt(str, 0, 64)
			if err != nil {
				pred[key] = starlark.String(str)
				continue
			}
			pred[key] = starlark.MakeInt64(value)
		}
	}

	for name, fn := range sk.builtins() {
		pred[name] = starlark.NewBuiltin(name, fn)
	}

	pred["shared"] = sk.shared

	return
}

// Load executes the top level of a sketch. Tasks may be declared there, or
// in setup().
func (sk *Sketch) Load(name string, src io.Reader) (err error) {
	sk.tasks = map[*task.Task]*Task{}
	sk.shared = newShared()
	sk.thread = sk.newThread(task.MAIN_NAME)

	opts := syntax.FileOptions{
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
	}

	globals, err := sk.exec(func() (starlark.StringDict, error) {
		return starlark.ExecFileOptions(&opts, sk.thread, name, src, sk.predeclared())
	})
	if err != nil {
		return
	}

	sk.globals = globals
	sk.setup, err = sk.function("setup", false)
	if err != nil {
		return
	}
	sk.loop, err = sk.function("loop", true)
	if err != nil {
		return
	}

	return
}

// function looks up a global function of the sketch.
func (sk *Sketch) function(name string, required bool) (fn starlark.Callable, err error) {
	value, ok := sk.globals[name]
	if !ok {
		if required {
			err = ErrNoLoop
		}
		return
	}

	fn, ok = value.(starlark.Callable)
	if !ok {
		err = ErrNotCallable(name)
		return
	}

	return
}

// Globals returns the sketch's global variables.
func (sk *Sketch) Globals() starlark.StringDict {
	return sk.globals
}

// Shared returns the shared namespace.
func (sk *Sketch) Shared() *Shared {
	return sk.shared
}

// Task returns the sketch's handle on a scheduler task.
func (sk *Sketch) Task(t *task.Task) (tv *Task, ok bool) {
	tv, ok = sk.tasks[t]
	return
}

// Setup calls setup(), if the sketch has one.
func (sk *Sketch) Setup() (err error) {
	if sk.thread == nil {
		err = ErrNotLoaded
		return
	}

	if sk.setup == nil {
		return
	}

	_, err = sk.call(sk.setup)
	return
}

// Loop calls loop() once. The sketch is done when loop() returns False.
func (sk *Sketch) Loop() (done bool, err error) {
	if sk.thread == nil {
		err = ErrNotLoaded
		return
	}

	result, err := sk.call(sk.loop)
	if err != nil {
		return
	}

	done = result == starlark.False
	return
}

func (sk *Sketch) call(fn starlark.Callable) (result starlark.Value, err error) {
	_, err = sk.exec(func() (_ starlark.StringDict, err error) {
		result, err = starlark.Call(sk.thread, fn, nil, nil)
		return
	})
	return
}

// exec runs sketch code on main, turning scheduler panics into errors.
func (sk *Sketch) exec(fn func() (starlark.StringDict, error)) (globals starlark.StringDict, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		rerr, ok := r.(error)
		if !ok {
			panic(r)
		}
		err = rerr
	}()

	globals, err = fn()
	return
}

// activate switches to t, returning a fault raised while it ran as an error.
func (sk *Sketch) activate(t *task.Task) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		rerr, ok := r.(error)
		if !ok {
			panic(r)
		}
		err = rerr
	}()

	t.Go()
	return
}
