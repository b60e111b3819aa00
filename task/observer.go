package task

// Event describes one context switch.
type Event struct {
	Seq    int    // Switch sequence number, from 1.
	Micros uint32 // Clock reading at the switch.
	From   string // Context switched out.
	To     string // Context switched in.
	SP     uint16 // Stack pointer loaded for To.
	First  bool   // To is being activated for the first time.
}

// Observer is told of every context switch, from inside the switch.
// It must not switch contexts itself.
type Observer interface {
	Switch(ev Event)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(ev Event)

func (fn ObserverFunc) Switch(ev Event) {
	fn(ev)
}
