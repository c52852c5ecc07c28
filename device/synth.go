package device

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/ezrec/csvm/workbook"
)

const (
	SHEET_SYNTH   = "synth"
	SYNTH_COLUMNS = 8
	VOICES        = 4 // Default voice count.
)

// VoicePlayer sounds voices. done is called once when a voice plays to
// its end, never after Stop.
type VoicePlayer interface {
	Play(index int, voice Voice, done func()) error
	Stop(index int)
}

// Synth is a bank of voices. A1 holds the (read-only) voice count; row
// n+1 configures voice n. Writing any truthy value to a voice row schedules
// it; scheduled voices start at the next Poll with the row's current
// parameters.
type Synth struct {
	*workbook.Sheet
	Player      VoicePlayer  // Sound output.
	Interrupter Interrupter  // Receives voice callbacks.
	Logger      *slog.Logger // Player failures; slog.Default() if nil.

	voices    int
	mutex     sync.Mutex
	scheduled map[int]bool
	playing   map[int]bool
}

var _ workbook.Device = (*Synth)(nil)
var _ workbook.Poller = (*Synth)(nil)

// NewSynth returns a synth with the given number of voices.
func NewSynth(voices int, player VoicePlayer) (sy *Synth) {
	if voices <= 0 {
		voices = VOICES
	}

	sy = &Synth{
		Sheet:     workbook.NewSheet(SHEET_SYNTH, SYNTH_COLUMNS, voices+1),
		Player:    player,
		voices:    voices,
		scheduled: map[int]bool{},
		playing:   map[int]bool{},
	}

	sy.Poke(1, 1, workbook.Num(float64(voices)))
	sy.SetProtected(workbook.At(1, 1, 1, 1), true)

	return
}

// Defines returns an iter of defines for the device.
func (sy *Synth) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"VOICES":      fmt.Sprint(sy.voices),
		"SYNTH_VOICE": SHEET_SYNTH + "!R2C1:R2C6",
	})
}

// Voices returns the number of voices.
func (sy *Synth) Voices() int {
	return sy.voices
}

// SetCell writes a cell, scheduling the voice row for a truthy value.
func (sy *Synth) SetCell(column, row int, v workbook.Value) {
	if row > 1 && row <= sy.voices+1 && v.Truthy() {
		sy.mutex.Lock()
		sy.scheduled[row] = true
		sy.mutex.Unlock()
	}
	sy.Sheet.SetCell(column, row, v)
}

// Paste writes values through SetCell.
func (sy *Synth) Paste(values []workbook.Value, ref workbook.Reference, combine workbook.Combine) {
	workbook.PasteCells(sy, values, ref, combine)
}

// Poll starts every scheduled voice.
func (sy *Synth) Poll() {
	sy.mutex.Lock()
	rows := slices.Sorted(maps.Keys(sy.scheduled))
	clear(sy.scheduled)
	sy.mutex.Unlock()

	for _, row := range rows {
		config, _ := sy.Sheet.Copy(workbook.At(1, row, 6, 1), nil)
		sy.fire(row-2, VoiceFromRow(config.Values()))
	}
}

// fire restarts voice index, unless its duration is zero.
func (sy *Synth) fire(index int, voice Voice) {
	if sy.Player == nil {
		return
	}

	sy.mutex.Lock()
	if sy.playing[index] {
		delete(sy.playing, index)
		sy.mutex.Unlock()
		sy.Player.Stop(index)
	} else {
		sy.mutex.Unlock()
	}

	if voice.Duration <= 0 {
		return
	}

	done := func() {
		sy.mutex.Lock()
		delete(sy.playing, index)
		sy.mutex.Unlock()

		if !voice.Callback.IsEmpty() && sy.Interrupter != nil {
			sy.Interrupter.Interrupt(voice.Callback)
		}
	}

	sy.mutex.Lock()
	sy.playing[index] = true
	sy.mutex.Unlock()

	err := sy.Player.Play(index, voice, done)
	if err != nil {
		sy.mutex.Lock()
		delete(sy.playing, index)
		sy.mutex.Unlock()

		logger := sy.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("synth: play", "voice", index, "error", errors.Join(ErrDevice, err))
	}
}

// Close stops every voice.
func (sy *Synth) Close() (err error) {
	sy.mutex.Lock()
	playing := slices.Sorted(maps.Keys(sy.playing))
	clear(sy.playing)
	sy.mutex.Unlock()

	for _, index := range playing {
		sy.Player.Stop(index)
	}
	return
}
