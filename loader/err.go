package loader

import (
	"errors"

	"github.com/ezrec/csvm/translate"
)

var f = translate.From

var (
	ErrExpression = errors.New(f("expression"))
)

// ErrSyntax locates a load failure in the source text.
type ErrSyntax struct {
	LineNo int
	Column int
	Cell   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	if len(err.Cell) == 0 {
		return f("line %d %v", err.LineNo, err.Err)
	}
	return f("line %d column %d '%v' %v", err.LineNo, err.Column, err.Cell, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrParseExpression is a $(...) expression that produced no usable value.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
