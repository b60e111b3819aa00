package emulator

import (
	"errors"

	"github.com/ezrec/multitask/translate"
)

var f = translate.From

var (
	ErrNoSketch = errors.New(f("no sketch loaded"))
)

// ErrRuntime indicates the loop() pass of a runtime error.
type ErrRuntime struct {
	Loop int
	Err  error
}

func (err *ErrRuntime) Error() string {
	return f("loop %d %v", err.Loop, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
