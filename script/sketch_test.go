package script

import (
	"bytes"
	"errors"
	"maps"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.starlark.net/starlark"

	"github.com/ezrec/multitask/clock"
	"github.com/ezrec/multitask/cpu"
	"github.com/ezrec/multitask/task"
	"github.com/ezrec/multitask/uart"
)

type fixture struct {
	sketch *Sketch
	clock  *clock.Counter
	output *bytes.Buffer
}

func newFixture(t *testing.T) (fix *fixture) {
	core := cpu.NewCpu(0x100, 0x8ff)
	core.Sei()

	clk := &clock.Counter{}
	sched := task.New(core, clk)
	t.Cleanup(func() { sched.Close() })

	fix = &fixture{
		clock:  clk,
		output: &bytes.Buffer{},
	}
	fix.sketch = &Sketch{
		Scheduler: sched,
		Output:    fix.output,
		TaskStack: 96,
		Defines: maps.All(map[string]string{
			"BASE": "0x800",
			"NAME": "nano",
		}),
	}

	return
}

func (fix *fixture) load(src string) error {
	return fix.sketch.Load("test.star", strings.NewReader(src))
}

func (fix *fixture) shared(name string) string {
	value, _ := fix.sketch.Shared().Attr(name)
	if value == nil {
		return ""
	}
	return value.String()
}

func TestSketch_Counter(t *testing.T) {
	assert := assert.New(t)

	fix := newFixture(t)
	err := fix.load(`
def count():
    shared.count += 1
    delay(10)

counter = task("counter", count)

def setup():
    shared.count = 0

def loop():
    counter.go()
    print(shared.count)
    delay(10)
    return shared.count < 3
`)
	assert.NoError(err)
	assert.NoError(fix.sketch.Setup())

	loops := 0
	for done := false; !done; loops++ {
		done, err = fix.sketch.Loop()
		assert.NoError(err)
		if err != nil {
			break
		}
	}

	assert.Equal(3, loops)
	assert.Equal("1\n2\n3\n", fix.output.String())
	assert.Equal(uint32(30_000), fix.clock.Micros())
}

func TestSketch_Running(t *testing.T) {
	assert := assert.New(t)

	fix := newFixture(t)
	err := fix.load(`
def work():
    shared.log.append((running().name, main_running()))
    suspend()

worker = task("worker", work)

def setup():
    shared.log = []

def loop():
    shared.log.append((running(), main_running()))
    worker.go()
    shared.running = worker.running
    shared.used = worker.stack_used > 0
    return False
`)
	assert.NoError(err)
	assert.NoError(fix.sketch.Setup())

	done, err := fix.sketch.Loop()
	assert.NoError(err)
	assert.True(done)

	assert.Equal(`[(None, True), ("worker", False)]`, fix.shared("log"))
	assert.Equal("False", fix.shared("running"))
	assert.Equal("True", fix.shared("used"))
}

func TestSketch_OnYield(t *testing.T) {
	assert := assert.New(t)

	fix := newFixture(t)
	err := fix.load(`
shared.trace = []

def a_work():
    shared.trace.append("a")
    suspend()

def b_work():
    shared.trace.append("b")
    suspend()

b = task("b", b_work)
a = task("a", a_work, on_yield=lambda: b)

def loop():
    a.go()
    return False
`)
	assert.NoError(err)

	_, err = fix.sketch.Loop()
	assert.NoError(err)
	assert.Equal(`["a", "b"]`, fix.shared("trace"))
	assert.True(fix.sketch.Scheduler.IsMainRunning())
}

func TestSketch_Fault(t *testing.T) {
	assert := assert.New(t)

	fix := newFixture(t)
	err := fix.load(`
def work():
    fail("broken")

bad = task("bad", work)

def loop():
    bad.go()
`)
	assert.NoError(err)

	_, err = fix.sketch.Loop()
	assert.Error(err)

	var fault *task.Fault
	assert.True(errors.As(err, &fault))
	if fault != nil {
		assert.Equal("bad", fault.Task)
	}
	assert.Contains(err.Error(), "broken")

	_, err = fix.sketch.Loop()
	assert.ErrorIs(err, task.ErrTaskDead)
}

func TestSketch_SuspendInMain(t *testing.T) {
	assert := assert.New(t)

	fix := newFixture(t)
	err := fix.load(`
def loop():
    suspend()
`)
	assert.NoError(err)

	_, err = fix.sketch.Loop()
	assert.ErrorIs(err, ErrSuspendInMain)
}

func TestSketch_Defines(t *testing.T) {
	assert := assert.New(t)

	fix := newFixture(t)
	err := fix.load(`
shared.base = BASE
shared.name = NAME
t = task("t", lambda: suspend())
shared.stack = t.name

def loop():
    pass
`)
	assert.NoError(err)

	assert.Equal("2048", fix.shared("base"))
	assert.Equal(`"nano"`, fix.shared("name"))

	for tk := range fix.sketch.Scheduler.Tasks() {
		assert.Equal(uint16(96), tk.Stack().Size)

		tv, ok := fix.sketch.Task(tk)
		assert.True(ok)
		assert.Equal("<task t>", tv.String())
	}

	done, err := fix.sketch.Loop()
	assert.NoError(err)
	assert.False(done, "None keeps looping")
}

func TestSketch_Time(t *testing.T) {
	assert := assert.New(t)

	fix := newFixture(t)
	fix.clock.Set(5_000_000)
	err := fix.load(`
def loop():
    shared.us = micros()
    shared.ms = millis()
    return False
`)
	assert.NoError(err)

	_, err = fix.sketch.Loop()
	assert.NoError(err)
	assert.Equal("5000000", fix.shared("us"))
	assert.Equal("5000", fix.shared("ms"))
}

func TestSketch_Memory(t *testing.T) {
	assert := assert.New(t)

	fix := newFixture(t)
	err := fix.load(`
def loop():
    poke(BASE, 42)
    shared.value = peek(BASE)
    return False
`)
	assert.NoError(err)

	_, err = fix.sketch.Loop()
	assert.NoError(err)
	assert.Equal("42", fix.shared("value"))
	assert.Equal(uint8(42), fix.sketch.Scheduler.Cpu().Load(0x800))

	table := [](struct {
		src  string
		name string
	}){
		{"def loop():\n    peek(0)\n", "address"},
		{"def loop():\n    poke(0x9000, 1)\n", "address"},
		{"def loop():\n    poke(BASE, 256)\n", "value"},
		{"def loop():\n    delay(-1)\n", "delay"},
		{"def loop():\n    task('big', lambda: None, stack=0x10000)\n", "stack"},
	}

	for _, entry := range table {
		fix := newFixture(t)
		assert.NoError(fix.load(entry.src), entry.src)

		_, err := fix.sketch.Loop()
		var rerr *ErrRange
		assert.True(errors.As(err, &rerr), entry.src)
		if rerr != nil {
			assert.Equal(entry.name, rerr.Name, entry.src)
		}
	}
}

func TestSketch_Serial(t *testing.T) {
	assert := assert.New(t)

	fix := newFixture(t)
	core := fix.sketch.Scheduler.Cpu()

	var tx bytes.Buffer
	port := &uart.Port{Input: strings.NewReader("A"), Output: &tx}
	assert.NoError(port.Attach(core))
	defer port.Close()
	fix.sketch.Serial = port

	err := fix.load(`
def loop():
    shared.n = serial_write("hi")
    shared.avail = serial_available()
    shared.c = serial_read()
    shared.empty = serial_read()
    return False
`)
	assert.NoError(err)

	assert.Eventually(func() bool {
		core.Poll()
		return port.Available() == 1
	}, time.Second, time.Millisecond)

	_, err = fix.sketch.Loop()
	assert.NoError(err)
	assert.Equal("hi", tx.String())
	assert.Equal("2", fix.shared("n"))
	assert.Equal("1", fix.shared("avail"))
	assert.Equal("65", fix.shared("c"))
	assert.Equal("-1", fix.shared("empty"))

	assert.NoError(fix.load("def loop():\n    serial_write(3)\n"))
	_, err = fix.sketch.Loop()
	var terr *ErrArgType
	assert.True(errors.As(err, &terr))

	fix.sketch.Serial = nil
	assert.NoError(fix.load("def loop():\n    serial_read()\n"))
	_, err = fix.sketch.Loop()
	assert.ErrorIs(err, ErrNoSerial)
}

func TestSketch_Load_Errors(t *testing.T) {
	assert := assert.New(t)

	fix := newFixture(t)

	assert.ErrorIs(fix.sketch.Setup(), ErrNotLoaded)
	_, err := fix.sketch.Loop()
	assert.ErrorIs(err, ErrNotLoaded)

	assert.ErrorIs(fix.load("x = 1\n"), ErrNoLoop)
	assert.Equal(ErrNotCallable("loop"), fix.load("loop = 3\n"))
	assert.Equal(ErrNotCallable("setup"), fix.load("setup = 3\ndef loop():\n    pass\n"))
	assert.Error(fix.load("def loop(:\n"))
	assert.Error(fix.load("undefined_name()\n"))
}

func TestShared(t *testing.T) {
	assert := assert.New(t)

	sh := newShared()
	assert.NoError(sh.SetField("b", starlark.MakeInt(2)))
	assert.NoError(sh.SetField("a", starlark.String("x")))

	assert.Equal([]string{"a", "b"}, sh.AttrNames())
	assert.Equal("shared", sh.Type())

	sh.Freeze()
	assert.NoError(sh.SetField("a", starlark.None))

	value, err := sh.Attr("missing")
	assert.NoError(err)
	assert.Nil(value)

	_, err = sh.Hash()
	assert.Error(err)
}
