package task

import (
	"log"
	"runtime"

	"github.com/sigurn/crc16"

	"github.com/ezrec/multitask/cpu"
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// running returns the context that owns the core.
func (s *Scheduler) running() *Context {
	if s.active == nil {
		return &s.main
	}
	return &s.active.Context
}

// tasksw is the context switch. It parks the running context and resumes
// target if run is set, main otherwise.
//
// The frame pushed on entry goes to the stack of the context that called
// tasksw. The frame popped before leaving comes from the stack of the
// context being resumed, whose goroutine is parked inside its own earlier
// tasksw call and returns from it once handed the core. Push and pop order
// must stay mirror images of each other; see pushFrame and popFrame.
//
// A panic before the hand-off (corrupt target frame, observer, interrupt
// handler) leaves the caller running, with its state restored.
func (s *Scheduler) tasksw(target *Task, run bool) {
	c := s.cpu

	if s.closed {
		panic(ErrSchedulerClosed)
	}
	if c.InInterrupt() {
		panic(ErrSwitchInInterrupt)
	}

	from := s.running()
	to := &s.main
	if run {
		if target.sched != s {
			panic(ErrForeignTask)
		}
		if target.dead {
			panic(ErrTaskDead)
		}
		to = &target.Context
	}

	c.Cli()

	active := s.active
	first := to.first
	sp := c.SP
	pushed := false
	committed := false
	defer func() {
		if committed {
			return
		}
		r := recover()
		if r == nil {
			return
		}
		s.active = active
		to.first = first
		c.SP = sp
		if pushed {
			c.SP = from.sp
			s.popFrame(from)
		}
		c.SREG |= cpu.SREG_I
		panic(r)
	}()

	// Refuse a corrupt frame before touching any state.
	if !to.first && to != from {
		s.checkFrame(to)
	}

	s.pushFrame(from)
	from.sp = c.SP
	pushed = true
	if from != &s.main {
		if err := s.checkCanary(from); err != nil {
			// The task dies here; launch hands the core to main.
			committed = true
			panic(err)
		}
	}

	if to != from {
		s.notify(from, to, to.first)
	}

	if run {
		s.active = target
		c.SP = target.sp
		if target.first {
			target.first = false
			c.Sei()
			committed = true
			go s.launch(target)
			s.park(from)
			return
		}
	} else {
		s.active = nil
		c.SP = s.main.sp
	}

	c.Sei()
	committed = true
	s.popFrame(to)

	if to == from {
		return
	}

	to.wake <- struct{}{}
	s.park(from)
}

// pushFrame saves the return marker and the callee-saved registers of ctx
// on the active stack.
func (s *Scheduler) pushFrame(ctx *Context) {
	c := s.cpu

	c.PushWord(ctx.id)
	for _, reg := range cpu.CalleeSaved {
		c.Push(c.Register[reg])
	}

	ctx.sealed = s.Paranoid
	if ctx.sealed {
		ctx.crc = s.frameChecksum(c.SP)
	}
}

// popFrame restores the callee-saved registers and return marker of ctx
// from the active stack, in reverse push order.
func (s *Scheduler) popFrame(ctx *Context) {
	c := s.cpu

	for n := len(cpu.CalleeSaved) - 1; n >= 0; n-- {
		c.Register[cpu.CalleeSaved[n]] = c.Pop()
	}
	c.PopWord()

	ctx.sealed = false
}

// checkFrame inspects the parked frame of ctx without popping it.
func (s *Scheduler) checkFrame(ctx *Context) {
	c := s.cpu

	at := ctx.sp + 1 + uint16(len(cpu.CalleeSaved))
	marker := uint16(c.Load(at))<<8 | uint16(c.Load(at+1))
	if marker != ctx.id {
		panic(&ErrFrameCorrupt{Context: ctx.Name, Err: ErrFrameMarker})
	}

	if ctx.sealed && s.frameChecksum(ctx.sp) != ctx.crc {
		panic(&ErrFrameCorrupt{Context: ctx.Name, Err: ErrFrameChecksum})
	}
}

// frameChecksum is the CRC-16 of the frame just above sp.
func (s *Scheduler) frameChecksum(sp uint16) uint16 {
	start := int(sp) + 1
	return crc16.Checksum(s.cpu.Memory[start:start+FRAME_SIZE], crcTable)
}

// checkCanary reports a guard at the bottom of a task stack that was
// overwritten, or a stack pointer that went below it.
func (s *Scheduler) checkCanary(ctx *Context) (err error) {
	c := s.cpu
	base := ctx.stack.Base

	canary := uint16(c.Load(base))<<8 | uint16(c.Load(base+1))
	if canary != STACK_CANARY || ctx.sp < base+CANARY_SIZE-1 {
		err = &ErrStackOverflow{Task: ctx.Name, Stack: ctx.stack, SP: ctx.sp}
	}
	return
}

// park blocks the goroutine of ctx until some switch resumes it.
func (s *Scheduler) park(ctx *Context) {
	if _, ok := <-ctx.wake; !ok {
		// Scheduler closed; this task never runs again.
		runtime.Goexit()
	}

	if ctx == &s.main && s.fault != nil {
		fault := s.fault
		s.fault = nil
		panic(fault)
	}
}

// launch runs the work loop of a task on its own goroutine. It only ends
// by a fault, or by Goexit when the scheduler closes.
func (s *Scheduler) launch(t *Task) {
	defer func() {
		if r := recover(); r != nil {
			s.crash(t, r)
		}
	}()

	for {
		t.Worker.Work()
	}
}

// crash marks t dead and hands the core to main, which raises the fault.
func (s *Scheduler) crash(t *Task, value any) {
	c := s.cpu

	if s.Verbose {
		log.Printf("task: %v fault: %v", t.Name, value)
	}

	c.Cli()
	t.dead = true
	s.fault = &Fault{Task: t.Name, Value: value}
	s.notify(&t.Context, &s.main, false)

	s.active = nil
	c.SP = s.main.sp
	c.SREG |= cpu.SREG_I
	s.popFrame(&s.main)

	s.main.wake <- struct{}{}
}

// notify reports a switch to the log and the observer, before the core
// changes hands.
func (s *Scheduler) notify(from *Context, to *Context, first bool) {
	s.seq++

	if s.Verbose {
		log.Printf("task: %v -> %v sp=0x%04x first=%v", from.Name, to.Name, to.sp, first)
	}

	if s.Observer != nil {
		s.Observer.Switch(Event{
			Seq:    s.seq,
			Micros: s.clock.Micros(),
			From:   from.Name,
			To:     to.Name,
			SP:     to.sp,
			First:  first,
		})
	}
}
