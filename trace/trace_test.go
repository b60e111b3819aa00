package trace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/multitask/clock"
	"github.com/ezrec/multitask/cpu"
	"github.com/ezrec/multitask/task"
)

func TestRecorder_Stats(t *testing.T) {
	assert := assert.New(t)

	rec := NewRecorder()

	for _, ev := range [](task.Event){
		{Seq: 1, Micros: 0, From: "main", To: "a"},
		{Seq: 2, Micros: 10, From: "a", To: "main"},
		{Seq: 3, Micros: 15, From: "main", To: "a"},
		{Seq: 4, Micros: 35, From: "a", To: "main"},
		{Seq: 5, Micros: 40, From: "main", To: "a"},
		{Seq: 6, Micros: 70, From: "a", To: "main"},
	} {
		rec.Switch(ev)
	}

	assert.Equal(6, rec.Len())
	assert.Equal(3, rec.Transitions("main", "a"))
	assert.Equal(3, rec.Transitions("a", "main"))
	assert.Equal(0, rec.Transitions("a", "b"))

	stats := rec.Stats("a")
	assert.Equal(3, stats.Switches)
	assert.Equal(uint64(60), stats.Total)
	assert.InDelta(20.0, stats.Mean, 1e-9)
	assert.InDelta(10.0, stats.StdDev, 1e-9)
	assert.Equal(20.0, stats.Median)
	assert.Equal(30.0, stats.P95)

	stats = rec.Stats("main")
	assert.Equal(2, stats.Switches)
	assert.Equal(uint64(10), stats.Total)

	stats = rec.Stats("nobody")
	assert.Equal(0, stats.Switches)
	assert.Equal(0.0, stats.Mean)
}

func TestRecorder_Wraparound(t *testing.T) {
	assert := assert.New(t)

	rec := NewRecorder()
	rec.Switch(task.Event{Micros: 0xffff_fff0, From: "main", To: "a"})
	rec.Switch(task.Event{Micros: 0x10, From: "a", To: "main"})

	stats := rec.Stats("a")
	assert.Equal(uint64(0x20), stats.Total)
	assert.Equal(0.0, stats.StdDev)
}

func TestRecorder_Limit(t *testing.T) {
	assert := assert.New(t)

	rec := NewRecorder()
	rec.Limit = 2

	for n := range 5 {
		rec.Switch(task.Event{Seq: n + 1, From: "main", To: "a"})
	}

	var seqs []int
	for ev := range rec.Events() {
		seqs = append(seqs, ev.Seq)
	}
	assert.Equal([]int{4, 5}, seqs)

	// The graph still counts every switch.
	assert.Equal(5, rec.Transitions("main", "a"))

	rec.Reset()
	assert.Equal(0, rec.Len())
	assert.Equal(0, rec.Transitions("main", "a"))
}

func TestRecorder_Reachable(t *testing.T) {
	assert := assert.New(t)

	var rec Recorder
	rec.Switch(task.Event{From: "main", To: "a"})
	rec.Switch(task.Event{From: "a", To: "b"})

	assert.True(rec.Reachable("main", "b"))
	assert.False(rec.Reachable("b", "main"))
	assert.False(rec.Reachable("main", "c"))
}

func TestRecorder_Scheduler(t *testing.T) {
	assert := assert.New(t)

	core := cpu.NewCpu(0x100, 0x8ff)
	core.Sei()
	clk := &clock.Counter{}
	s := task.New(core, clk)
	defer s.Close()

	rec := NewRecorder()
	s.Observer = rec

	var tk *task.Task
	var err error
	tk, err = s.NewTask("blink", 64, task.WorkerFunc(func() {
		clk.Advance(100)
		tk.Yield()
	}))
	assert.NoError(err)

	for range 4 {
		tk.Go()
		clk.Advance(50)
	}

	assert.Equal(8, rec.Len())
	assert.Equal(4, rec.Transitions("main", "blink"))

	blink := rec.Stats("blink")
	assert.Equal(4, blink.Switches)
	assert.Equal(uint64(400), blink.Total)
	assert.Equal(100.0, blink.Median)

	var names []string
	for name := range rec.All() {
		names = append(names, name)
	}
	assert.Equal([]string{"blink", "main"}, names)

	var buf bytes.Buffer
	assert.NoError(rec.Report(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(lines, 3)
	assert.Contains(lines[0], "switches")
	assert.Contains(lines[1], "blink")
	assert.Contains(lines[2], "main")
}
