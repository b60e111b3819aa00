package script

import (
	"errors"

	"github.com/ezrec/multitask/translate"
)

var f = translate.From

var (
	ErrNoLoop        = errors.New(f("sketch has no loop()"))
	ErrSuspendInMain = errors.New(f("suspend() called from main"))
	ErrNoSerial      = errors.New(f("sketch has no serial port"))
	ErrNotLoaded     = errors.New(f("sketch not loaded"))
)

// ErrNotCallable names a sketch global that should be a function.
type ErrNotCallable string

func (err ErrNotCallable) Error() string {
	return f("%v is not callable", string(err))
}

// ErrRange reports an argument outside of its allowed values.
type ErrRange struct {
	Name  string
	Value int
	Max   int
}

func (err *ErrRange) Error() string {
	return f("%v %v out of range 0..%v", err.Name, err.Value, err.Max)
}

// ErrArgType reports an argument of the wrong type.
type ErrArgType struct {
	Func string
	Got  string
	Want string
}

func (err *ErrArgType) Error() string {
	return f("%v: got %v, want %v", err.Func, err.Got, err.Want)
}
