// Package configs loads the csvm settings from CUE files.
package configs

import (
	"errors"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/ezrec/csvm/emulator"
	"github.com/ezrec/csvm/translate"
)

var f = translate.From

var ErrConfig = errors.New(f("configuration"))

// Schema constrains every configuration file. Fields left out take their
// defaults.
const Schema = `
verbose:   bool | *false
voices:    int & >=1 & <=16 | *4
budget_ms: int & >=1 | *4
history:   int & >=1 | *10
seed:      int & >=0 | *0
display: close({
	width:   int & >=8 & <=256 | *64
	scale:   int & >=1 | *8
	enabled: bool | *true
})
log: close({
	level:   "debug" | "info" | "warn" | "error" | *"info"
	journal: bool | *false
})
`

// Display settings.
type Display struct {
	Width   int  `json:"width"`
	Scale   int  `json:"scale"`
	Enabled bool `json:"enabled"`
}

// Log settings.
type Log struct {
	Level   string `json:"level"`
	Journal bool   `json:"journal"`
}

// Config is the decoded configuration.
type Config struct {
	Verbose  bool    `json:"verbose"`
	Voices   int     `json:"voices"`
	BudgetMs int     `json:"budget_ms"`
	History  int     `json:"history"`
	Seed     uint64  `json:"seed"`
	Display  Display `json:"display"`
	Log      Log     `json:"log"`
}

// Load unifies the files at paths, in order, with the schema and decodes
// the result. With no paths the defaults are returned.
func Load(paths ...string) (config Config, err error) {
	ctx := cuecontext.New()

	value := ctx.CompileString("close({" + Schema + "})")
	if err = value.Err(); err != nil {
		err = errors.Join(ErrConfig, err)
		return
	}

	for _, path := range paths {
		var content []byte
		content, err = os.ReadFile(path)
		if err != nil {
			err = errors.Join(ErrConfig, err)
			return
		}

		file := ctx.CompileBytes(content, cue.Filename(path))
		if err = file.Err(); err != nil {
			err = errors.Join(ErrConfig, err)
			return
		}

		value = value.Unify(file)
		if err = value.Validate(); err != nil {
			err = errors.Join(ErrConfig, err)
			return
		}
	}

	if err = value.Validate(cue.Concrete(true)); err != nil {
		err = errors.Join(ErrConfig, err)
		return
	}

	err = value.Decode(&config)
	if err != nil {
		err = errors.Join(ErrConfig, err)
		return
	}

	return
}

// Options returns the emulator options described by the configuration.
func (config Config) Options() emulator.Options {
	return emulator.Options{
		Verbose:       config.Verbose,
		DisplayWidth:  config.Display.Width,
		Voices:        config.Voices,
		Budget:        time.Duration(config.BudgetMs) * time.Millisecond,
		HistoryLength: config.History,
		Seed:          config.Seed,
	}
}
