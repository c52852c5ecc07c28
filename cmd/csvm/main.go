// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ezrec/csvm/configs"
	"github.com/ezrec/csvm/emulator"
	"github.com/ezrec/csvm/internal"
	"github.com/ezrec/csvm/loader"
	"github.com/ezrec/csvm/logs"
	"github.com/ezrec/csvm/translate"
)

func main() {
	var config_paths string
	var verbose bool
	var lang string
	var log_level string
	var voices int
	var width int
	var scale int
	var seed uint64
	var headless bool
	var snapshot string
	var comma string
	var defines bool

	flag.StringVar(&config_paths, "config", "", "Comma separated .cue configuration files")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.StringVar(&lang, "lang", "", "Message language, e.g. en-GB")
	flag.StringVar(&log_level, "log-level", "", "Log level: debug, info, warn or error")
	flag.IntVar(&voices, "voices", 0, "Synth voices")
	flag.IntVar(&width, "width", 0, "Display width in pixels")
	flag.IntVar(&scale, "scale", 0, "Display window scale")
	flag.Uint64Var(&seed, "seed", 0, "Seed for the rand opcode")
	flag.BoolVar(&headless, "headless", false, "Do not open a display window")
	flag.StringVar(&snapshot, "snapshot", "", "Write the final display to a .png file")
	flag.StringVar(&comma, "comma", ",", "Field delimiter of the program")
	flag.BoolVar(&defines, "defines", false, "List the $(...) defines and exit")

	flag.Parse()

	if flag.NArg() != 1 && !(defines && flag.NArg() == 0) {
		log.Fatalf("%v: usage: %v [options] program.csv", os.Args[0], os.Args[0])
	}
	program := flag.Arg(0)

	if len(lang) != 0 {
		err := translate.SetLanguage(lang)
		if err != nil {
			log.Fatalf("-lang %v: %v", lang, err)
		}
	}

	var paths []string
	if len(config_paths) != 0 {
		paths = strings.Split(config_paths, ",")
	}

	config, err := configs.Load(paths...)
	if err != nil {
		log.Fatalf("%v: %v", config_paths, err)
	}

	// Flags given on the command line override the configuration.
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "v":
			config.Verbose = verbose
		case "log-level":
			config.Log.Level = log_level
		case "voices":
			config.Voices = voices
		case "width":
			config.Display.Width = width
		case "scale":
			config.Display.Scale = scale
		case "seed":
			config.Seed = seed
		case "headless":
			config.Display.Enabled = !headless
		}
	})

	delimiter := []rune(comma)
	if len(delimiter) != 1 {
		log.Fatalf("-comma %q: expected a single character", comma)
	}

	if defines {
		emu := emulator.New(config.Options())
		for key, value := range internal.IterSeq2Sorted(emu.Defines()) {
			fmt.Printf("%v=%v\n", key, value)
		}
		return
	}

	var inf io.Reader
	if program == "-" {
		inf = os.Stdin
	} else {
		file, err := os.Open(program)
		if err != nil {
			log.Fatalf("%v: %v", program, err)
		}
		defer file.Close()
		inf = file
	}

	err = logs.SetLevel(config.Log.Level)
	if err != nil {
		log.Fatalf("-log-level %v: %v", config.Log.Level, err)
	}

	keys := newKeys(program != "-")
	fatal := func(format string, args ...any) {
		keys.Stop()
		log.Fatalf(format, args...)
	}
	logger := logs.New(logs.Options{
		Writer:  keys.Writer(os.Stderr),
		Journal: config.Log.Journal,
	})
	slog.SetDefault(logger)

	opts := config.Options()
	opts.Logger = logger
	opts.Output = keys.Writer(os.Stdout)
	opts.Dump = keys.Writer(os.Stderr)

	player, err := newAudioPlayer()
	if err != nil {
		logger.Warn("csvm: audio unavailable", "error", err)
	} else {
		opts.Player = player
		if closer, ok := player.(io.Closer); ok {
			defer closer.Close()
		}
	}

	emu := emulator.New(opts)
	defer emu.Close()

	ld := &loader.Loader{
		Verbose: config.Verbose,
		Logger:  logger,
		Comma:   delimiter[0],
	}
	ld.PredefineAll(emu.Defines())

	prog, err := ld.Load(inf)
	if err != nil {
		fatal("%v: %v", program, err)
	}

	err = emu.Load(prog)
	if err != nil {
		fatal("%v: %v", program, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	keys.Start(emu)

	errc := make(chan error, 1)
	go func() {
		errc <- emu.Run(ctx)
	}()

	if config.Display.Enabled {
		err = present(ctx, emu, config.Display.Scale, program)
		if err != nil {
			logger.Warn("csvm: display unavailable", "error", err)
			wait(ctx, emu)
		}
	} else {
		wait(ctx, emu)
	}

	cancel()
	err = <-errc
	if crash := emu.Err(); crash != nil {
		err = crash
	}
	keys.Stop()

	if len(snapshot) != 0 {
		serr := writeSnapshot(snapshot, emu, config.Display.Scale)
		if serr != nil {
			logger.Error("csvm: snapshot", "path", snapshot, "error", serr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "%v: %v\n", program, err)
		emu.Close()
		os.Exit(1)
	}
}

// wait returns once the program stops or ctx is done.
func wait(ctx context.Context, emu *emulator.Emulator) {
	select {
	case <-ctx.Done():
	case <-emu.Done():
	}
}

func writeSnapshot(path string, emu *emulator.Emulator, scale int) (err error) {
	ouf, err := os.Create(path)
	if err != nil {
		return
	}

	err = png.Encode(ouf, emu.Display.Image(time.Now(), scale))
	err = errors.Join(err, ouf.Close())
	return
}
