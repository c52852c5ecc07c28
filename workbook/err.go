package workbook

import (
	"errors"

	"github.com/ezrec/csvm/translate"
)

var f = translate.From

var (
	// ErrAddress is the kind of every addressing failure.
	ErrAddress = errors.New(f("address"))

	ErrMixedNotation = errors.New(f("cannot mix A1 and R1C1 notation"))
	ErrRangeCorners  = errors.New(f("range needs exactly two corners"))
	ErrOutOfBounds   = errors.New(f("coordinate out of bounds"))
	ErrTooLarge      = errors.New(f("range too large"))
)

// ErrParseA1 reports a cell that is not letter-number notation.
type ErrParseA1 string

func (err ErrParseA1) Error() string {
	return f("couldn't parse A1-style cell address '%v'", string(err))
}

// ErrParseR1C1 reports a cell that is not row-column notation.
type ErrParseR1C1 string

func (err ErrParseR1C1) Error() string {
	return f("couldn't parse R1C1-style cell address '%v'", string(err))
}

// ErrNoSheet reports a reference to a sheet that is not in the workbook.
type ErrNoSheet string

func (err ErrNoSheet) Error() string {
	return f("no sheet named '%v'", string(err))
}

// addressError joins the ErrAddress kind with the failing address text.
func addressError(address string, err error) error {
	return errors.Join(ErrAddress, &ErrParse{Address: address, Err: err})
}

// ErrParse locates an addressing failure in its source text.
type ErrParse struct {
	Address string
	Err     error
}

func (err *ErrParse) Error() string {
	return f("'%v': %v", err.Address, err.Err)
}

func (err *ErrParse) Unwrap() error {
	return err.Err
}
