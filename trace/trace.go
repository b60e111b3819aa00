// Package trace records context switches and summarizes how long each
// context kept the core.
package trace

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"math"
	"slices"
	"text/tabwriter"

	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/stat"

	"github.com/ezrec/multitask/internal"
	"github.com/ezrec/multitask/task"
)

// Recorder is a task.Observer keeping the switch history.
type Recorder struct {
	Limit int // Events kept; 0 keeps all of them.

	events    []task.Event
	started   bool   // An event was seen.
	lastSeen  uint32 // Micros of the latest event.
	graph     *multi.DirectedGraph
	nodes     map[string]multi.Node
	residency map[string][]float64
}

var _ task.Observer = (*Recorder)(nil)

// Stats summarizes the residency of one context, in microseconds.
type Stats struct {
	Name     string
	Switches int // Times the context gave up the core.
	Total    uint64
	Mean     float64
	StdDev   float64
	Median   float64
	P95      float64
}

// NewRecorder creates an empty recorder.
func NewRecorder() (rec *Recorder) {
	rec = &Recorder{}
	rec.Reset()
	return
}

// Reset drops all recorded history.
func (rec *Recorder) Reset() {
	rec.events = nil
	rec.started = false
	rec.graph = multi.NewDirectedGraph()
	rec.nodes = map[string]multi.Node{}
	rec.residency = map[string][]float64{}
}

func (rec *Recorder) node(name string) multi.Node {
	node, ok := rec.nodes[name]
	if !ok {
		node = multi.Node(len(rec.nodes))
		rec.nodes[name] = node
		rec.graph.AddNode(node)
	}
	return node
}

// Switch records ev.
func (rec *Recorder) Switch(ev task.Event) {
	if rec.graph == nil {
		rec.Reset()
	}

	rec.graph.SetLine(rec.graph.NewLine(rec.node(ev.From), rec.node(ev.To)))

	if rec.started {
		held := ev.Micros - rec.lastSeen
		rec.residency[ev.From] = append(rec.residency[ev.From], float64(held))
	}
	rec.started = true
	rec.lastSeen = ev.Micros

	rec.events = append(rec.events, ev)
	if rec.Limit > 0 && len(rec.events) > rec.Limit {
		rec.events = slices.Delete(rec.events, 0, len(rec.events)-rec.Limit)
	}
}

// Events iterates over the kept events, oldest first.
func (rec *Recorder) Events() iter.Seq[task.Event] {
	return slices.Values(rec.events)
}

// Len is the number of kept events.
func (rec *Recorder) Len() int {
	return len(rec.events)
}

// Transitions counts the switches from one context to another.
func (rec *Recorder) Transitions(from string, to string) (count int) {
	u, ok := rec.nodes[from]
	if !ok {
		return
	}
	v, ok := rec.nodes[to]
	if !ok {
		return
	}

	count = rec.graph.Lines(u.ID(), v.ID()).Len()
	return
}

// Reachable reports whether control ever flowed from one context to
// another, directly or through others.
func (rec *Recorder) Reachable(from string, to string) bool {
	u, ok := rec.nodes[from]
	if !ok {
		return false
	}
	v, ok := rec.nodes[to]
	if !ok {
		return false
	}

	return topo.PathExistsIn(rec.graph, u, v)
}

// Stats returns the residency summary of a context.
func (rec *Recorder) Stats(name string) (stats Stats) {
	stats.Name = name

	held := rec.residency[name]
	stats.Switches = len(held)
	if len(held) == 0 {
		return
	}

	sorted := slices.Sorted(slices.Values(held))
	for _, us := range sorted {
		stats.Total += uint64(us)
	}

	stats.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		stats.StdDev = stat.StdDev(sorted, nil)
	}
	stats.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	stats.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)

	if math.IsNaN(stats.StdDev) {
		stats.StdDev = 0
	}

	return
}

// All iterates the residency summary of every context seen, by name.
func (rec *Recorder) All() iter.Seq2[string, Stats] {
	all := map[string]Stats{}
	for name := range rec.nodes {
		all[name] = rec.Stats(name)
	}
	return internal.IterSeq2Sorted(maps.All(all))
}

// Report writes the residency table.
func (rec *Recorder) Report(w io.Writer) (err error) {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', tabwriter.AlignRight)

	_, err = fmt.Fprintln(tw, "context\tswitches\ttotal us\tmean\tstddev\tp50\tp95\t")
	if err != nil {
		return
	}

	for name, stats := range rec.All() {
		_, err = fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f\t%.1f\t%.0f\t%.0f\t\n",
			name, stats.Switches, stats.Total,
			stats.Mean, stats.StdDev, stats.Median, stats.P95)
		if err != nil {
			return
		}
	}

	err = tw.Flush()
	return
}
