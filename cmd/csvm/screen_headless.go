// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

//go:build headless

package main

import (
	"context"

	"github.com/ezrec/csvm/emulator"
)

// present waits for the program; headless builds have no window.
func present(ctx context.Context, emu *emulator.Emulator, scale int, title string) (err error) {
	wait(ctx, emu)
	return
}
