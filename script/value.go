package script

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/ezrec/multitask/task"
)

// Task is the sketch's handle on a task.
type Task struct {
	sketch *Sketch
	task   *task.Task
}

var _ starlark.HasAttrs = (*Task)(nil)

var taskAttrNames = []string{"dead", "go", "name", "running", "stack_used"}

func (tv *Task) String() string {
	return fmt.Sprintf("<task %s>", tv.task.Name)
}

func (tv *Task) Type() string {
	return "task"
}

func (tv *Task) Freeze() {
}

func (tv *Task) Truth() starlark.Bool {
	return starlark.True
}

func (tv *Task) Hash() (uint32, error) {
	return starlark.MakeUint(uint(tv.task.ID())).Hash()
}

// Task returns the scheduler's task.
func (tv *Task) Task() *task.Task {
	return tv.task
}

func (tv *Task) Attr(name string) (value starlark.Value, err error) {
	switch name {
	case "dead":
		value = starlark.Bool(tv.task.Dead())
	case "go":
		value = starlark.NewBuiltin("go", tv.sketch.builtinGo).BindReceiver(tv)
	case "name":
		value = starlark.String(tv.task.Name)
	case "running":
		value = starlark.Bool(tv.task.IsRunning())
	case "stack_used":
		value = starlark.MakeInt(tv.task.StackUsed())
	}

	return
}

func (tv *Task) AttrNames() []string {
	return taskAttrNames
}

// Shared is a namespace every context of a sketch can write to. Sketch
// globals are frozen once loaded, so state that tasks and loop() update
// lives here, as in shared.count += 1.
type Shared struct {
	fields starlark.StringDict
}

var _ starlark.HasSetField = (*Shared)(nil)

func newShared() *Shared {
	return &Shared{fields: starlark.StringDict{}}
}

func (sh *Shared) String() string {
	return "shared" + sh.fields.String()
}

func (sh *Shared) Type() string {
	return "shared"
}

// Freeze leaves the namespace writable.
func (sh *Shared) Freeze() {
}

func (sh *Shared) Truth() starlark.Bool {
	return starlark.True
}

func (sh *Shared) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: shared")
}

func (sh *Shared) Attr(name string) (starlark.Value, error) {
	return sh.fields[name], nil
}

func (sh *Shared) AttrNames() []string {
	return sh.fields.Keys()
}

func (sh *Shared) SetField(name string, value starlark.Value) error {
	sh.fields[name] = value
	return nil
}
