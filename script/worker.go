package script

import (
	"go.starlark.net/starlark"

	"github.com/ezrec/multitask/task"
)

// worker runs a sketch function as the unit of work of a task, on the
// task's own interpreter thread.
type worker struct {
	sketch  *Sketch
	thread  *starlark.Thread
	work    starlark.Callable
	onYield starlark.Callable // Picks the next context, may be nil.
}

var _ task.Worker = (*worker)(nil)
var _ task.Yielder = (*worker)(nil)

// Work calls the work function once. Errors kill the task.
func (w *worker) Work() {
	_, err := starlark.Call(w.thread, w.work, nil, nil)
	if err != nil {
		panic(err)
	}
}

// Yield asks on_yield where to go: a task, or None for main.
func (w *worker) Yield(t *task.Task) {
	if w.onYield == nil {
		t.Main()
		return
	}

	next, err := starlark.Call(w.thread, w.onYield, nil, nil)
	if err != nil {
		panic(err)
	}

	tv, ok := next.(*Task)
	if !ok || tv.task == t {
		t.Main()
		return
	}

	err = w.sketch.activate(tv.task)
	if err != nil {
		panic(err)
	}
}
