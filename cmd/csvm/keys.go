// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/ezrec/csvm/cpu"
	"github.com/ezrec/csvm/emulator"
)

const (
	KEY_CTRL_C = 0x03
	KEY_PAUSE  = 'p'
	KEY_QUIT   = 'q'
)

// keys reads single keystrokes from a raw mode terminal.
// Ctrl-C kills the program with a diagnostic dump, 'p' toggles pause and
// 'q' terminates.
type keys struct {
	fd       int
	raw      bool
	oldState *term.State
	stopped  sync.Once
}

// newKeys puts stdin in raw mode when it is an interactive terminal and
// enabled is set.
func newKeys(enabled bool) (k *keys) {
	k = &keys{fd: int(os.Stdin.Fd())}

	if !enabled || !term.IsTerminal(k.fd) {
		return
	}

	oldState, err := term.MakeRaw(k.fd)
	if err != nil {
		slog.Warn("csvm: raw mode", "error", err)
		return
	}

	k.oldState = oldState
	k.raw = true
	return
}

// Writer adapts w to the terminal mode.
func (k *keys) Writer(w io.Writer) io.Writer {
	if !k.raw {
		return w
	}
	return &crlfWriter{Writer: w}
}

// Start routes keystrokes to emu.
func (k *keys) Start(emu *emulator.Emulator) {
	if !k.raw {
		return
	}

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			if !k.key(emu, buf[0]) {
				return
			}
		}
	}()
}

func (k *keys) key(emu *emulator.Emulator, b byte) (more bool) {
	switch b {
	case KEY_CTRL_C:
		emu.Crash(cpu.ErrKilled)
		return false
	case KEY_QUIT:
		emu.Terminate()
		return false
	case KEY_PAUSE:
		switch emu.State() {
		case cpu.STATE_PAUSED:
			emu.Resume()
		default:
			emu.Pause()
		}
	}

	return !emu.State().Final()
}

// Stop restores the terminal.
func (k *keys) Stop() {
	k.stopped.Do(func() {
		if k.oldState != nil {
			_ = term.Restore(k.fd, k.oldState)
		}
	})
}

// crlfWriter restores carriage returns that raw mode no longer adds.
type crlfWriter struct {
	io.Writer
}

func (w *crlfWriter) Write(p []byte) (n int, err error) {
	_, err = w.Writer.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n")))
	if err != nil {
		return
	}
	n = len(p)
	return
}
