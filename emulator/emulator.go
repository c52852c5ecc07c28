// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"time"

	"github.com/ezrec/csvm/cpu"
	"github.com/ezrec/csvm/device"
	"github.com/ezrec/csvm/internal"
	"github.com/ezrec/csvm/workbook"
)

const (
	VERSION = 1                // Program format version.
	PERIOD  = time.Second / 60 // Wake-up period of a sleeping program.
)

var _emulator_defines = map[string]string{
	"SENTINEL": cpu.SENTINEL,
	"VERSION":  fmt.Sprint(VERSION),
}

// Options configures an Emulator. The zero value is usable.
type Options struct {
	Verbose       bool               // If set, enables verbose logging.
	Logger        *slog.Logger       // slog.Default() if nil.
	Dump          io.Writer          // Diagnostic dumps; os.Stderr if nil.
	Output        io.Writer          // Stdout device output; os.Stdout if nil.
	DisplayWidth  int                // Display size; device.DISPLAY_WIDTH if zero.
	Voices        int                // Synth voices; device.VOICES if zero.
	Player        device.VoicePlayer // Synth playback; a silent TimerPlayer if nil.
	Budget        time.Duration      // Quantum length; cpu.BUDGET if zero.
	Period        time.Duration      // Sleeping program wake-up period; PERIOD if zero.
	HistoryLength int                // Crash history; cpu.HISTORY_LENGTH if zero.
	Seed          uint64             // Seed for rand; random if zero.
	Clock         func() time.Time   // time.Now if nil.
	Scheduler     cpu.Scheduler      // Run's own queue if nil.
	Devices       []workbook.Device  // Additional devices, replacing built-ins of the same name.
}

// Emulator state. CPU + devices.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU, once a program is loaded.
	Program  *cpu.Program // Reference to the currently loaded program.

	Stdout  *device.Stdout  // Text output.
	Display *device.Display // Pixel display.
	Synth   *device.Synth   // Voice bank.

	options Options
	queue   *Queue
}

// New creates an emulator and its devices. Load a program to run it.
func New(opts Options) (emu *Emulator) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Player == nil {
		opts.Player = &device.TimerPlayer{}
	}

	emu = &Emulator{
		Verbose: opts.Verbose,
		Stdout:  device.NewStdout(opts.Output),
		Display: device.NewDisplay(opts.DisplayWidth),
		Synth:   device.NewSynth(opts.Voices, opts.Player),
		options: opts,
		queue:   NewQueue(),
	}

	emu.Stdout.Logger = opts.Logger
	emu.Synth.Logger = opts.Logger

	return
}

// Defines returns an iterator over all of the defines.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		cpu.Defines(),
		emu.Stdout.Defines(),
		emu.Display.Defines(),
		emu.Synth.Defines(),
	)
}

// Devices returns the memory-mapped devices, built-ins first.
func (emu *Emulator) Devices() (devices []workbook.Device) {
	devices = []workbook.Device{emu.Stdout, emu.Display, emu.Synth}
	devices = append(devices, emu.options.Devices...)
	return
}

// Load builds a paused CPU around prog. A previous program must have
// stopped first.
func (emu *Emulator) Load(prog *cpu.Program) (err error) {
	if emu.Cpu != nil && !emu.Cpu.State().Final() {
		err = ErrRunning
		return
	}

	scheduler := emu.options.Scheduler
	if scheduler == nil {
		scheduler = emu.queue
	}

	core, err := cpu.New(prog, cpu.Options{
		Verbose:       emu.Verbose,
		Logger:        emu.options.Logger,
		Dump:          emu.options.Dump,
		Budget:        emu.options.Budget,
		HistoryLength: emu.options.HistoryLength,
		Clock:         emu.options.Clock,
		Scheduler:     scheduler,
		Devices:       emu.Devices(),
		Seed:          emu.options.Seed,
	})
	if err != nil {
		return
	}

	emu.Cpu = core
	emu.Program = prog
	emu.Synth.Interrupter = core

	if emu.Verbose {
		emu.options.Logger.Info("emulator: loaded", "columns", prog.Columns, "rows", prog.Rows())
	}

	return
}

// Run starts the loaded program and runs quanta until it stops or ctx is
// done. A crash is returned as an *ErrRuntime. While the program sleeps,
// its next quantum waits for an interrupt or the next Period tick.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	if emu.Cpu == nil {
		err = ErrNoCpu
		return
	}

	period := emu.options.Period
	if period <= 0 {
		period = PERIOD
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	emu.Cpu.Start()

	for {
		ready := emu.queue.Ready()
		if emu.Cpu.State() == cpu.STATE_IDLE {
			ready = nil
		}

		select {
		case <-ctx.Done():
			emu.Cpu.Terminate()
			err = ctx.Err()
			return
		case <-emu.Cpu.Done():
			err = emu.Err()
			return
		case <-ready:
			emu.queue.RunPending()
		case <-emu.Cpu.Irq.Raised():
			emu.queue.RunPending()
		case <-ticker.C:
			emu.queue.RunPending()
		}
	}
}

// Err returns the crash that stopped the program, if any.
func (emu *Emulator) Err() (err error) {
	if emu.Cpu == nil {
		return
	}

	err = emu.Cpu.Err()
	var crash *cpu.ErrCrash
	if errors.As(err, &crash) {
		err = &ErrRuntime{Column: crash.Column, Row: crash.Row, Err: err}
	}
	return
}

// Close terminates the program and closes the devices.
func (emu *Emulator) Close() (err error) {
	if emu.Cpu != nil {
		emu.Cpu.Close()
	}

	for _, dev := range emu.Devices() {
		if closer, ok := dev.(io.Closer); ok {
			err = errors.Join(err, closer.Close())
		}
	}

	return
}
