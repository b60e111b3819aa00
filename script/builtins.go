package script

import (
	"log"
	"time"

	"go.starlark.net/starlark"

	"github.com/ezrec/multitask/clock"
)

type builtinFunc func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

func (sk *Sketch) builtins() map[string]builtinFunc {
	return map[string]builtinFunc{
		"task":             sk.builtinTask,
		"delay":            sk.builtinDelay,
		"suspend":          sk.builtinSuspend,
		"micros":           sk.builtinMicros,
		"millis":           sk.builtinMillis,
		"running":          sk.builtinRunning,
		"main_running":     sk.builtinMainRunning,
		"serial_write":     sk.builtinSerialWrite,
		"serial_read":      sk.builtinSerialRead,
		"serial_available": sk.builtinSerialAvailable,
		"peek":             sk.builtinPeek,
		"poke":             sk.builtinPoke,
	}
}

// task(name, work, stack=TASK_STACK, on_yield=None)
func (sk *Sketch) builtinTask(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var name string
	var work starlark.Callable
	stack := int(sk.TaskStack)
	if stack == 0 {
		stack = DEFAULT_TASK_STACK
	}
	var onYield starlark.Value = starlark.None

	err = starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name,
		"work", &work,
		"stack?", &stack,
		"on_yield?", &onYield)
	if err != nil {
		return
	}

	if stack < 0 || stack > 0xffff {
		err = &ErrRange{Name: "stack", Value: stack, Max: 0xffff}
		return
	}

	w := &worker{
		sketch: sk,
		thread: sk.newThread(name),
		work:   work,
	}
	if onYield != starlark.None {
		fn, ok := onYield.(starlark.Callable)
		if !ok {
			err = ErrNotCallable("on_yield")
			return
		}
		w.onYield = fn
	}

	t, err := sk.Scheduler.NewTask(name, uint16(stack), w)
	if err != nil {
		return
	}

	if sk.Verbose {
		log.Printf("script: task %v, %d byte stack", name, stack)
	}

	tv := &Task{sketch: sk, task: t}
	sk.tasks[t] = tv

	result = tv
	return
}

// go() method of a task value.
func (sk *Sketch) builtinGo(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0)
	if err != nil {
		return
	}

	tv := b.Receiver().(*Task)
	err = sk.activate(tv.task)
	if err != nil {
		return
	}

	result = starlark.None
	return
}

// delay(ms): a task yields until the time is up; main waits, servicing
// interrupts.
func (sk *Sketch) builtinDelay(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var ms int
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &ms)
	if err != nil {
		return
	}

	if ms < 0 || ms > 0xffff {
		err = &ErrRange{Name: "delay", Value: ms, Max: 0xffff}
		return
	}

	if t := sk.Scheduler.Current(); t != nil {
		t.Delay(uint16(ms))
	} else {
		sk.busyWait(uint32(ms) * 1000)
	}

	result = starlark.None
	return
}

// busyWait spins main until us microseconds have passed. A clock that can
// be advanced is moved straight to the end time.
func (sk *Sketch) busyWait(us uint32) {
	clk := sk.Scheduler.Clock()
	core := sk.Scheduler.Cpu()

	end := clk.Micros() + us
	for {
		core.Poll()

		remaining := clock.Remaining(end, clk.Micros())
		if remaining <= 0 {
			return
		}

		if adv, ok := clk.(clock.Advancer); ok {
			adv.Advance(uint32(remaining))
		} else {
			time.Sleep(min(time.Duration(remaining)*time.Microsecond, time.Millisecond))
		}
	}
}

// suspend(): yield the running task.
func (sk *Sketch) builtinSuspend(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0)
	if err != nil {
		return
	}

	t := sk.Scheduler.Current()
	if t == nil {
		err = ErrSuspendInMain
		return
	}

	t.Yield()

	result = starlark.None
	return
}

func (sk *Sketch) builtinMicros(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0)
	if err != nil {
		return
	}

	result = starlark.MakeUint64(uint64(sk.Scheduler.Clock().Micros()))
	return
}

func (sk *Sketch) builtinMillis(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0)
	if err != nil {
		return
	}

	result = starlark.MakeUint64(uint64(clock.Millis(sk.Scheduler.Clock())))
	return
}

// running(): the running task, or None on main.
func (sk *Sketch) builtinRunning(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0)
	if err != nil {
		return
	}

	result = starlark.None
	if tv, ok := sk.tasks[sk.Scheduler.Current()]; ok {
		result = tv
	}
	return
}

func (sk *Sketch) builtinMainRunning(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0)
	if err != nil {
		return
	}

	result = starlark.Bool(sk.Scheduler.IsMainRunning())
	return
}

// serial_write(data): data is a string or bytes; returns the count written.
func (sk *Sketch) builtinSerialWrite(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var data starlark.Value
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &data)
	if err != nil {
		return
	}

	if sk.Serial == nil {
		err = ErrNoSerial
		return
	}

	var raw []byte
	switch data := data.(type) {
	case starlark.String:
		raw = []byte(string(data))
	case starlark.Bytes:
		raw = []byte(string(data))
	default:
		err = &ErrArgType{Func: b.Name(), Got: data.Type(), Want: "string or bytes"}
		return
	}

	n, err := sk.Serial.Write(raw)
	if err != nil {
		return
	}

	result = starlark.MakeInt(n)
	return
}

// serial_read(): the next received byte, or -1.
func (sk *Sketch) builtinSerialRead(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0)
	if err != nil {
		return
	}

	if sk.Serial == nil {
		err = ErrNoSerial
		return
	}

	value, rerr := sk.Serial.ReadByte()
	if rerr != nil {
		result = starlark.MakeInt(-1)
		return
	}

	result = starlark.MakeInt(int(value))
	return
}

func (sk *Sketch) builtinSerialAvailable(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0)
	if err != nil {
		return
	}

	if sk.Serial == nil {
		err = ErrNoSerial
		return
	}

	result = starlark.MakeInt(sk.Serial.Available())
	return
}

// address checks an SRAM address argument.
func (sk *Sketch) address(addr int) (err error) {
	core := sk.Scheduler.Cpu()
	if addr < int(core.RamStart) || addr > int(core.RamEnd) {
		err = &ErrRange{Name: "address", Value: addr, Max: int(core.RamEnd)}
	}
	return
}

// peek(addr): a byte of SRAM.
func (sk *Sketch) builtinPeek(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var addr int
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &addr)
	if err != nil {
		return
	}

	err = sk.address(addr)
	if err != nil {
		return
	}

	result = starlark.MakeInt(int(sk.Scheduler.Cpu().Load(uint16(addr))))
	return
}

// poke(addr, value): store a byte of SRAM.
func (sk *Sketch) builtinPoke(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (result starlark.Value, err error) {
	var addr, value int
	err = starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &addr, &value)
	if err != nil {
		return
	}

	err = sk.address(addr)
	if err != nil {
		return
	}

	if value < 0 || value > 0xff {
		err = &ErrRange{Name: "value", Value: value, Max: 0xff}
		return
	}

	sk.Scheduler.Cpu().Store(uint16(addr), uint8(value))

	result = starlark.None
	return
}
