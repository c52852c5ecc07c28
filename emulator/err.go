package emulator

import (
	"errors"

	"github.com/ezrec/csvm/translate"
)

var f = translate.From

var (
	ErrRunning = errors.New(f("a program is still running"))
	ErrNoCpu   = errors.New(f("no program loaded"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Column int
	Row    int
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("row %d column %d %v", err.Row, err.Column, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
