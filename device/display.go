package device

import (
	"fmt"
	"image"
	"image/color"
	"iter"
	"maps"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/ezrec/csvm/workbook"
)

const (
	SHEET_DISPLAY = "display"
	DISPLAY_WIDTH = 64                    // Default width and height in pixels.
	LCD_LAG       = 20 * time.Millisecond // Pixel fade time.
)

// Control cells, on row 1 of the display sheet.
const (
	CTRL_WIDTH  = 1 // Width in pixels.
	CTRL_HEIGHT = 2 // Height in pixels.
	CTRL_BUFFER = 3 // Page shown, 0 or 1.
	CTRL_MODE   = 4 // Shader.
)

// Mode selects how pixel cells are shaded.
type Mode int

//go:generate go tool stringer -linecomment -type=Mode
const (
	MODE_ONE_BIT  = Mode(0) // one-bit
	MODE_TWO_BIT  = Mode(1) // two-bit
	MODE_CONFETTI = Mode(2) // confetti
)

// Shader converts the pixel at (x, y) of a size x size page to a colour.
type Shader func(v workbook.Value, x, y, size int) color.NRGBA

var shaders = map[Mode]Shader{
	MODE_ONE_BIT:  OneBit,
	MODE_TWO_BIT:  TwoBit,
	MODE_CONFETTI: Confetti,
}

// OneBit shades any non-zero pixel as dark.
func OneBit(v workbook.Value, x, y, size int) color.NRGBA {
	if v.Coerce() != 0 {
		return color.NRGBA{A: 0xCC}
	}
	return color.NRGBA{}
}

// TwoBit shades the low two bits of a pixel as four levels of grey.
func TwoBit(v workbook.Value, x, y, size int) color.NRGBA {
	return color.NRGBA{A: uint8((int(v.Coerce()) & 0x3) * 64)}
}

// Confetti colours lit pixels by their position.
func Confetti(v workbook.Value, x, y, size int) (out color.NRGBA) {
	out = color.NRGBA{
		R: uint8(x * 0xFF / size),
		G: uint8(y * 0xFF / size),
		B: uint8(x * 0xFF),
	}
	if v.Coerce() != 0 {
		out.A = 0xFF
	}
	return
}

// Display is a square pixel screen with two pages. Row 1 holds the control
// cells [width, height, buffer, mode]; width and height are read-only. Page
// 0 is rows 2 to width+1, page 1 the next width rows.
//
// Pixel writes are latched into the frame only when a control cell is
// written, so a program draws into a page and then flips to it.
type Display struct {
	*workbook.Sheet

	size   int
	mutex  sync.Mutex
	shader Shader
	vram   []workbook.Value
	frame  *image.NRGBA
	last   time.Time
}

var _ workbook.Device = (*Display)(nil)

// NewDisplay returns a width x width display. Widths below CTRL_MODE are
// raised to it so the control row holds every control cell.
func NewDisplay(width int) (d *Display) {
	if width <= 0 {
		width = DISPLAY_WIDTH
	}
	width = max(width, CTRL_MODE)

	d = &Display{
		Sheet:  workbook.NewSheet(SHEET_DISPLAY, width, width*2+1),
		size:   width,
		shader: OneBit,
		frame:  image.NewNRGBA(image.Rect(0, 0, width, width)),
	}

	control := []workbook.Value{
		workbook.Num(float64(width)),
		workbook.Num(float64(width)),
		workbook.Num(0),
		workbook.Num(float64(MODE_ONE_BIT)),
	}
	for n, v := range control {
		d.Poke(n+1, 1, v)
	}
	d.SetProtected(workbook.At(CTRL_WIDTH, 1, 2, 1), true)
	d.update()

	return
}

// Defines returns an iter of defines for the device.
func (d *Display) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"DISPLAY_WIDTH":  fmt.Sprint(d.size),
		"DISPLAY_HEIGHT": fmt.Sprint(d.size),
		"DISPLAY_BUFFER": SHEET_DISPLAY + "!C1",
		"DISPLAY_MODE":   SHEET_DISPLAY + "!D1",
		"DISPLAY_PAGE_0": fmt.Sprintf("%s!R2C1:R%dC%d", SHEET_DISPLAY, d.size+1, d.size),
		"DISPLAY_PAGE_1": fmt.Sprintf("%s!R%dC1:R%dC%d", SHEET_DISPLAY, d.size+2, d.size*2+1, d.size),
		"MODE_ONE_BIT":   fmt.Sprint(int(MODE_ONE_BIT)),
		"MODE_TWO_BIT":   fmt.Sprint(int(MODE_TWO_BIT)),
		"MODE_CONFETTI":  fmt.Sprint(int(MODE_CONFETTI)),
	})
}

// Size returns the width (and height) in pixels.
func (d *Display) Size() int {
	return d.size
}

// SetCell writes a cell. Writing a control cell latches the current page;
// writing the mode cell also selects the shader.
func (d *Display) SetCell(column, row int, v workbook.Value) {
	d.Sheet.SetCell(column, row, v)
	if row != 1 {
		return
	}

	if column == CTRL_MODE {
		d.setMode(Mode(integer(v, int(MODE_ONE_BIT))))
	}
	d.update()
}

// Paste writes values through SetCell.
func (d *Display) Paste(values []workbook.Value, ref workbook.Reference, combine workbook.Combine) {
	workbook.PasteCells(d, values, ref, combine)
}

// Mode returns the current shader selection.
func (d *Display) Mode() Mode {
	return Mode(integer(d.Cell(CTRL_MODE, 1), int(MODE_ONE_BIT)))
}

// setMode selects a shader; unknown modes fall back to one-bit.
func (d *Display) setMode(mode Mode) {
	shader, ok := shaders[mode]
	if !ok {
		shader = OneBit
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.shader = shader
}

// update latches the page selected by the buffer cell.
func (d *Display) update() {
	buffer := integer(d.Cell(CTRL_BUFFER, 1), 0)
	page := workbook.At(1, 2+d.size*buffer, d.size, d.size)

	vram, _ := d.Sheet.Copy(page, nil)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.vram = vram.Values()
}

// Render shades the latched page into the frame. Pixels fade towards their
// new colour over LCD_LAG.
func (d *Display) Render(now time.Time) *image.NRGBA {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	lag := 1.0
	if !d.last.IsZero() {
		lag = min(float64(now.Sub(d.last))/float64(LCD_LAG), 1)
	}
	d.last = now

	for n, v := range d.vram {
		x, y := n%d.size, n/d.size
		from := d.frame.NRGBAAt(x, y)
		to := d.shader(v, x, y, d.size)
		d.frame.SetNRGBA(x, y, lerp(from, to, lag))
	}

	return d.frame
}

// Image renders the display and scales it up by scale.
func (d *Display) Image(now time.Time, scale int) image.Image {
	frame := d.Render(now)
	if scale <= 1 {
		return frame
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	out := image.NewNRGBA(image.Rect(0, 0, d.size*scale, d.size*scale))
	draw.NearestNeighbor.Scale(out, out.Bounds(), frame, frame.Bounds(), draw.Src, nil)
	return out
}

func lerp(a, b color.NRGBA, d float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(int(float64(x)*(1-d)+float64(y)*d) & 0xFF)
	}
	return color.NRGBA{
		R: mix(a.R, b.R),
		G: mix(a.G, b.G),
		B: mix(a.B, b.B),
		A: mix(a.A, b.A),
	}
}
