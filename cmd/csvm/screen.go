// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

//go:build !headless

package main

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/ezrec/csvm/cpu"
	"github.com/ezrec/csvm/emulator"
)

// Backlight behind the display pixels.
var BACKLIGHT = color.NRGBA{R: 0xB8, G: 0xC8, B: 0xA8, A: 0xFF}

// screen presents the display device in a window.
type screen struct {
	ctx    context.Context
	emu    *emulator.Emulator
	scale  int
	size   int
	window *ebiten.Image
	pixels []byte
}

// present shows the display until the program stops or the window is
// closed. It must run on the main goroutine.
func present(ctx context.Context, emu *emulator.Emulator, scale int, title string) (err error) {
	if scale <= 0 {
		scale = 1
	}

	sc := &screen{
		ctx:   ctx,
		emu:   emu,
		scale: scale,
		size:  emu.Display.Size(),
	}

	ebiten.SetWindowSize(sc.size*scale, sc.size*scale)
	ebiten.SetWindowTitle("csvm: " + title)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetWindowClosingHandled(true)

	err = ebiten.RunGame(sc)
	return
}

func (sc *screen) Update() error {
	if ebiten.IsWindowBeingClosed() {
		sc.emu.Terminate()
		return ebiten.Termination
	}

	select {
	case <-sc.ctx.Done():
		return ebiten.Termination
	case <-sc.emu.Done():
		return ebiten.Termination
	default:
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		if sc.emu.State() == cpu.STATE_PAUSED {
			sc.emu.Resume()
		} else {
			sc.emu.Pause()
		}
	}

	return nil
}

func (sc *screen) Draw(target *ebiten.Image) {
	if sc.window == nil {
		sc.window = ebiten.NewImage(sc.size, sc.size)
	}

	frame := sc.emu.Display.Render(time.Now())
	sc.pixels = premultiply(sc.pixels, frame)
	sc.window.WritePixels(sc.pixels)

	target.Fill(BACKLIGHT)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(sc.scale), float64(sc.scale))
	target.DrawImage(sc.window, op)
}

func (sc *screen) Layout(_, _ int) (int, int) {
	return sc.size * sc.scale, sc.size * sc.scale
}

// premultiply converts frame into the alpha-premultiplied RGBA bytes that
// ebiten expects, reusing buf when it is large enough.
func premultiply(buf []byte, frame *image.NRGBA) []byte {
	bounds := frame.Bounds()
	length := bounds.Dx() * bounds.Dy() * 4
	if cap(buf) < length {
		buf = make([]byte, length)
	}
	buf = buf[:length]

	n := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(frame.NRGBAAt(x, y)).(color.RGBA)
			buf[n+0] = c.R
			buf[n+1] = c.G
			buf[n+2] = c.B
			buf[n+3] = c.A
			n += 4
		}
	}

	return buf
}
