package workbook

// IsWriteAllowed is the write guard for protected cells: falsy values
// (empty, 0, false, "") may always be written, truthy values only to
// unprotected cells.
func IsWriteAllowed(v Value, protected bool) bool {
	return !protected || !v.Truthy()
}

// Sheet is a named Range with protected cells. It is the memory-mapping unit
// for program memory, CPU registers and devices.
type Sheet struct {
	*Range
	name      string
	protected map[[2]int]bool
}

var _ Device = (*Sheet)(nil)

// NewSheet returns an empty sheet.
func NewSheet(name string, columns, rows int) *Sheet {
	return &Sheet{
		Range:     NewRange(name, columns, rows),
		name:      name,
		protected: map[[2]int]bool{},
	}
}

// Name returns the sheet name.
func (s *Sheet) Name() string {
	return s.name
}

// SetProtected locks (or unlocks) every cell of ref.
func (s *Sheet) SetProtected(ref Reference, lock bool) {
	for c := range ref.Cells() {
		if lock {
			s.protected[[2]int{c.Column, c.Row}] = true
		} else {
			delete(s.protected, [2]int{c.Column, c.Row})
		}
	}
}

// IsProtected reports whether (column, row) is locked.
func (s *Sheet) IsProtected(column, row int) bool {
	return s.protected[[2]int{column, row}]
}

// SetCell writes (column, row) if the write guard allows it.
func (s *Sheet) SetCell(column, row int, v Value) {
	s.Store(column, row, v)
}

// Store is SetCell that reports whether the write guard accepted v.
func (s *Sheet) Store(column, row int, v Value) (ok bool) {
	if !IsWriteAllowed(v, s.IsProtected(column, row)) {
		return
	}
	s.Range.SetCell(column, row, v)
	return true
}

// Poke writes (column, row) bypassing protection. Only the sheet's owner
// uses it.
func (s *Sheet) Poke(column, row int, v Value) {
	s.Range.SetCell(column, row, v)
}

// Copy extracts ref into a new range.
func (s *Sheet) Copy(ref Reference, transform Transform) (*Range, error) {
	return CopyCells(s, ref, transform)
}

// Paste writes values into ref through the write guard.
func (s *Sheet) Paste(values []Value, ref Reference, combine Combine) {
	PasteCells(s, values, ref, combine)
}

// Clear empties ref. Emptying is always allowed.
func (s *Sheet) Clear(ref Reference) {
	s.Range.Clear(ref)
}
