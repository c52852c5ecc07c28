// Package workbook implements the memory model of the CSVM: typed cell
// values, spreadsheet-style addresses, dense growable ranges, sheets with
// protected cells, and the workbook that routes addresses to sheets.
//
// Addresses are written in A1 notation (`B3`, `data!A1:C2`) or R1C1
// notation (`R3C2`, `R[0]C[1]:R[0]C[4]`), where bracketed offsets are
// relative to the cell holding the address. The two notations may not be
// mixed within a range.
package workbook
