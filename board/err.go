package board

import (
	"errors"

	"github.com/ezrec/multitask/translate"
)

var f = translate.From

var (
	ErrSramSize     = errors.New(f("sram does not fit the data space"))
	ErrStackReserve = errors.New(f("stack reserve does not fit sram"))
	ErrTaskStack    = errors.New(f("task stack does not fit sram"))
	ErrSize         = errors.New(f("size out of range"))
)

// ErrBoardUnknown names a board that has no profile.
type ErrBoardUnknown string

func (err ErrBoardUnknown) Error() string {
	return f("board %v unknown", string(err))
}

// ErrBoard wraps a problem with the profile of a board.
type ErrBoard struct {
	Name string
	Err  error
}

func (err *ErrBoard) Error() string {
	return f("board %v: %v", err.Name, err.Err)
}

func (err *ErrBoard) Unwrap() error {
	return err.Err
}
