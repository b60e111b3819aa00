package task

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/multitask/clock"
	"github.com/ezrec/multitask/cpu"
)

func newScheduler(t *testing.T) (s *Scheduler, clk *clock.Counter) {
	core := cpu.NewCpu(0x100, 0x8ff)
	core.Sei()
	clk = &clock.Counter{}
	s = New(core, clk)
	t.Cleanup(func() { s.Close() })
	return
}

// countingWorker counts the yields it is asked for and defers to main.
type countingWorker struct {
	work   func()
	yields int
}

func (w *countingWorker) Work() {
	w.work()
}

func (w *countingWorker) Yield(t *Task) {
	w.yields++
	t.Main()
}

func TestTask_FirstActivation(t *testing.T) {
	assert := assert.New(t)

	s, _ := newScheduler(t)

	var tk *Task
	var err error
	count := 0
	tk, err = s.NewTask("first", 64, WorkerFunc(func() {
		count++
		tk.Yield()
	}))
	assert.NoError(err)

	assert.True(tk.FirstActivation())
	assert.Equal(0, count)

	tk.Go()
	assert.False(tk.FirstActivation())
	assert.Equal(1, count)
}

func TestTask_Delay_Zero(t *testing.T) {
	assert := assert.New(t)

	s, _ := newScheduler(t)

	var tk *Task
	var err error
	returned := 0
	worker := &countingWorker{}
	worker.work = func() {
		tk.Delay(0)
		returned++
		tk.Yield()
	}
	tk, err = s.NewTask("zero", 64, worker)
	assert.NoError(err)

	tk.Go()
	assert.Equal(1, returned)
	assert.Equal(1, worker.yields, "only the explicit yield")
}

func TestTask_Delay_YieldsToMain(t *testing.T) {
	assert := assert.New(t)

	s, clk := newScheduler(t)

	var tk *Task
	var err error
	phase := "idle"
	worker := &countingWorker{}
	worker.work = func() {
		phase = "delaying"
		tk.Delay(5)
		phase = "done"
		tk.Yield()
	}
	tk, err = s.NewTask("delay", 64, worker)
	assert.NoError(err)

	tk.Go()
	assert.Equal("delaying", phase)
	assert.Equal(1, worker.yields)

	tk.Go()
	assert.Equal("delaying", phase, "clock has not moved")
	assert.Equal(2, worker.yields)

	clk.Advance(5000)
	tk.Go()
	assert.Equal("done", phase)
	assert.Equal(3, worker.yields)
}

func TestTask_Delay_Counter(t *testing.T) {
	assert := assert.New(t)

	s, clk := newScheduler(t)

	var tk *Task
	var err error
	count := 0
	tk, err = s.NewTask("counter", 64, WorkerFunc(func() {
		count++
		tk.Delay(10)
	}))
	assert.NoError(err)

	for n := 1; n <= 5; n++ {
		tk.Go()
		assert.Equal(n, count)
		clk.Advance(10_000)
	}
}

func TestTask_Delay_Polling(t *testing.T) {
	assert := assert.New(t)

	s, clk := newScheduler(t)
	clk.Step = 1000

	var tk *Task
	var err error
	count := 0
	tk, err = s.NewTask("poll", 64, WorkerFunc(func() {
		count++
		tk.Delay(10)
	}))
	assert.NoError(err)

	calls := 0
	for count < 2 {
		tk.Go()
		calls++
	}

	// One activation starts the delay, ten more poll the clock 1ms apart.
	assert.Equal(11, calls)
}

func TestTask_Delay_Wraparound(t *testing.T) {
	assert := assert.New(t)

	s, clk := newScheduler(t)
	clk.Set(math.MaxUint32 - 2000)

	var tk *Task
	var err error
	done := false
	tk, err = s.NewTask("wrap", 64, WorkerFunc(func() {
		tk.Delay(5)
		done = true
		tk.Yield()
	}))
	assert.NoError(err)

	tk.Go()
	assert.False(done)

	clk.Advance(4000)
	tk.Go()
	assert.False(done, "counter wrapped, 1ms still to go")

	clk.Advance(1000)
	tk.Go()
	assert.True(done)
}

func TestTask_Yielder(t *testing.T) {
	assert := assert.New(t)

	s, _ := newScheduler(t)

	var a, b *Task
	var err error
	var trace []string

	route := &routeWorker{
		work: func() {
			trace = append(trace, "a")
			a.Yield()
		},
		yield: func(t *Task) {
			b.Go()
		},
	}
	a, err = s.NewTask("a", 64, route)
	assert.NoError(err)

	b, err = s.NewTask("b", 64, WorkerFunc(func() {
		trace = append(trace, "b")
		assert.True(b.IsRunning())
		b.Yield()
	}))
	assert.NoError(err)

	a.Go()
	assert.Equal([]string{"a", "b"}, trace)
	assert.True(s.IsMainRunning())

	a.Go()
	assert.Equal([]string{"a", "b", "a", "b"}, trace)

	b.Go()
	assert.Equal([]string{"a", "b", "a", "b", "b"}, trace)
	assert.Nil(s.Current())
}

type routeWorker struct {
	work  func()
	yield func(t *Task)
}

func (w *routeWorker) Work() {
	w.work()
}

func (w *routeWorker) Yield(t *Task) {
	w.yield(t)
}

func TestTask_StackUsed(t *testing.T) {
	assert := assert.New(t)

	s, _ := newScheduler(t)

	var tk *Task
	var err error
	tk, err = s.NewTask("used", 64, WorkerFunc(func() {
		tk.Yield()
	}))
	assert.NoError(err)
	assert.Equal(0, tk.StackUsed())

	tk.Go()
	assert.Equal(FRAME_SIZE, tk.StackUsed())
	assert.Equal(tk.Stack().Top()-uint16(FRAME_SIZE), tk.StackPointer())
}

func TestTask_Accessors(t *testing.T) {
	assert := assert.New(t)

	s, _ := newScheduler(t)

	tk, err := s.NewTask("acc", 48, WorkerFunc(func() {}))
	assert.NoError(err)

	assert.Equal("acc", tk.String())
	assert.Equal(uint16(1), tk.ID())
	assert.Same(s, tk.Scheduler())
	assert.Equal(uint16(48), tk.Stack().Size)
	assert.Equal(tk.Stack().Top(), tk.StackPointer())
	assert.False(tk.Dead())
	assert.False(tk.IsRunning())
}
