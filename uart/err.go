package uart

import (
	"errors"

	"github.com/ezrec/multitask/translate"
)

var f = translate.From

var (
	ErrAttached = errors.New(f("port already attached"))
	ErrNoOutput = errors.New(f("port has no output"))
)
