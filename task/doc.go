// Package task implements cooperative task switching on the simulated core.
//
// A Scheduler owns the main context and any number of tasks, but only one
// context runs at any instant. Main starts or resumes a task with Task.Go; the
// task runs its Worker in an endless loop and hands the core back with
// Yield or Delay. Every hand-off goes through one switch routine that pushes
// the callee-saved registers onto the stack of the context that called it and
// pops them from the stack of the context it resumes.
//
// Each context's flow of control lives on its own goroutine, which is parked
// on a channel whenever its context is not the running one.
package task
