package workbook

import (
	"errors"
	"iter"
	"slices"
)

// Device is anything the workbook can route cell operations to. Sheet is
// the base implementation; memory-mapped peripherals embed it and intercept
// writes.
type Device interface {
	Name() string
	Bounds() Reference
	Cell(column, row int) Value
	SetCell(column, row int, v Value)
	Copy(ref Reference, transform Transform) (*Range, error)
	Paste(values []Value, ref Reference, combine Combine)
	Clear(ref Reference)
}

// Poller is a Device with deferred work, run once per quantum.
type Poller interface {
	Poll()
}

// Workbook is the set of sheets of a running machine, addressed by name.
type Workbook struct {
	Home   string // Sheet used by unqualified references.
	sheets map[string]Device
	order  []string
}

// New returns a workbook holding devices.
func New(home string, devices ...Device) (wb *Workbook) {
	wb = &Workbook{
		Home:   home,
		sheets: map[string]Device{},
	}
	for _, dev := range devices {
		wb.Add(dev)
	}
	return
}

// Add installs or replaces a sheet.
func (wb *Workbook) Add(dev Device) {
	name := dev.Name()
	if _, ok := wb.sheets[name]; !ok {
		wb.order = append(wb.order, name)
	}
	wb.sheets[name] = dev
}

// Sheet looks up a sheet by name.
func (wb *Workbook) Sheet(name string) (dev Device, ok bool) {
	dev, ok = wb.sheets[name]
	return
}

// Sheets yields the sheets in installation order.
func (wb *Workbook) Sheets() iter.Seq[Device] {
	return func(yield func(Device) bool) {
		for _, name := range slices.Clone(wb.order) {
			if !yield(wb.sheets[name]) {
				return
			}
		}
	}
}

func (wb *Workbook) device(ref Reference) (dev Device, err error) {
	name := ref.Sheet
	if len(name) == 0 {
		name = wb.Home
	}

	dev, ok := wb.sheets[name]
	if !ok {
		err = errors.Join(ErrAddress, ErrNoSheet(name))
	}
	return
}

// Cell reads the top-left cell of ref.
func (wb *Workbook) Cell(ref Reference) (v Value, err error) {
	dev, err := wb.device(ref)
	if err != nil {
		return
	}
	v = dev.Cell(ref.Column, ref.Row)
	return
}

// SetCell writes the top-left cell of ref.
func (wb *Workbook) SetCell(ref Reference, v Value) (err error) {
	dev, err := wb.device(ref)
	if err != nil {
		return
	}
	dev.SetCell(ref.Column, ref.Row, v)
	return
}

// Copy extracts ref from its sheet.
func (wb *Workbook) Copy(ref Reference, transform Transform) (r *Range, err error) {
	dev, err := wb.device(ref)
	if err != nil {
		return
	}
	return dev.Copy(ref, transform)
}

// Paste writes values into ref on its sheet.
func (wb *Workbook) Paste(values []Value, ref Reference, combine Combine) (err error) {
	dev, err := wb.device(ref)
	if err != nil {
		return
	}
	dev.Paste(values, ref, combine)
	return
}

// Clear empties ref on its sheet.
func (wb *Workbook) Clear(ref Reference) (err error) {
	dev, err := wb.device(ref)
	if err != nil {
		return
	}
	dev.Clear(ref)
	return
}

// Values returns the contents addressed by v if it is a Reference, or v
// broadcast to the size of bounds otherwise.
func (wb *Workbook) Values(v Value, bounds Reference) (values []Value, err error) {
	if ref, ok := v.Reference(); ok {
		var r *Range
		r, err = wb.Copy(ref, nil)
		if err != nil {
			return
		}
		values = r.Values()
		return
	}

	values = make([]Value, bounds.Size())
	for n := range values {
		values[n] = v
	}
	return
}

// Poll runs the deferred work of every Poller sheet.
func (wb *Workbook) Poll() {
	for dev := range wb.Sheets() {
		if p, ok := dev.(Poller); ok {
			p.Poll()
		}
	}
}
