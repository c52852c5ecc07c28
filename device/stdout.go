package device

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"os"
	"sync"

	"github.com/ezrec/csvm/workbook"
)

const (
	SHEET_STDOUT = "stdout"
)

// Stdout is the text output device. Any non-empty write is printed to
// Output; nothing is stored, so reads are always empty.
type Stdout struct {
	*workbook.Sheet
	Output io.Writer    // os.Stdout if nil.
	Logger *slog.Logger // Write failures; slog.Default() if nil.

	mutex sync.Mutex
}

var _ workbook.Device = (*Stdout)(nil)

// NewStdout returns an output device writing to w.
func NewStdout(w io.Writer) *Stdout {
	return &Stdout{
		Sheet:  workbook.NewSheet(SHEET_STDOUT, 1, 1),
		Output: w,
	}
}

// Defines returns an iter of defines for the device.
func (so *Stdout) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"STDOUT": SHEET_STDOUT + "!A1",
	})
}

// SetCell prints v unless it is empty.
func (so *Stdout) SetCell(column, row int, v workbook.Value) {
	if v.IsEmpty() {
		return
	}
	so.write(func(w io.Writer) error {
		_, err := fmt.Fprintln(w, v.String())
		return err
	})
}

// Paste prints a single value as SetCell does, and a region as a table.
func (so *Stdout) Paste(values []workbook.Value, ref workbook.Reference, combine workbook.Combine) {
	if ref.Size() == 1 {
		var v workbook.Value
		if len(values) > 0 {
			v = values[0]
		}
		so.SetCell(ref.Column, ref.Row, v)
		return
	}

	region := workbook.NewRange(ref.Address, ref.Columns, ref.Rows)
	region.Paste(values, region.Bounds(), nil)
	so.write(region.Print)
}

func (so *Stdout) write(print func(w io.Writer) error) {
	so.mutex.Lock()
	defer so.mutex.Unlock()

	w := so.Output
	if w == nil {
		w = os.Stdout
	}

	err := print(w)
	if err != nil {
		logger := so.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("stdout: write", "error", errors.Join(ErrDevice, err))
	}
}
