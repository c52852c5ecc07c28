package device

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/csvm/workbook"
)

type played struct {
	index int
	voice Voice
	done  func()
}

type fakePlayer struct {
	played  []played
	stopped []int
	err     error
}

func (fp *fakePlayer) Play(index int, voice Voice, done func()) error {
	if fp.err != nil {
		return fp.err
	}
	fp.played = append(fp.played, played{index: index, voice: voice, done: done})
	return nil
}

func (fp *fakePlayer) Stop(index int) {
	fp.stopped = append(fp.stopped, index)
}

type interrupts []workbook.Value

type chanInterrupts chan workbook.Value

func (irq chanInterrupts) Interrupt(v workbook.Value) {
	irq <- v
}

func (irq *interrupts) Interrupt(v workbook.Value) {
	*irq = append(*irq, v)
}

func TestSynth_Layout(t *testing.T) {
	assert := assert.New(t)

	sy := NewSynth(2, &fakePlayer{})
	assert.Equal(SYNTH_COLUMNS, sy.Columns())
	assert.Equal(3, sy.Rows())
	assert.Equal(2, sy.Voices())
	assert.Equal(workbook.Num(2), sy.Cell(1, 1))

	sy.SetCell(1, 1, workbook.Num(8))
	assert.Equal(workbook.Num(2), sy.Cell(1, 1))

	assert.Equal(VOICES, NewSynth(0, nil).Voices())
}

func TestSynth_Play(t *testing.T) {
	assert := assert.New(t)

	player := &fakePlayer{}
	irq := &interrupts{}
	sy := NewSynth(2, player)
	sy.Interrupter = irq

	ref, err := workbook.Parse("synth!A2:F2")
	assert.NoError(err)
	sy.Paste([]workbook.Value{
		workbook.Str("square"),
		workbook.Num(220),
		workbook.Num(0.5),
		workbook.Num(1),
		workbook.Num(0),
		workbook.Str("=R10C1"),
	}, ref, nil)

	assert.Empty(player.played)
	sy.Poll()

	if assert.Len(player.played, 1) {
		p := player.played[0]
		assert.Equal(0, p.index)
		assert.Equal(Voice{
			Waveform:  WAVE_SQUARE,
			Frequency: 220,
			Duration:  500 * time.Millisecond,
			Start:     1,
			End:       0,
			Callback:  workbook.Str("=R10C1"),
		}, p.voice)

		p.done()
		assert.Equal(interrupts{workbook.Str("=R10C1")}, *irq)
	}

	// Nothing is scheduled twice.
	sy.Poll()
	assert.Len(player.played, 1)
}

func TestSynth_Restart(t *testing.T) {
	assert := assert.New(t)

	player := &fakePlayer{}
	sy := NewSynth(2, player)

	sy.SetCell(1, 3, workbook.Str("sine"))
	sy.Poll()
	sy.SetCell(2, 3, workbook.Num(330))
	sy.Poll()

	assert.Len(player.played, 2)
	assert.Equal([]int{1}, player.stopped)
	assert.Equal(1, player.played[1].index)
	assert.Equal(330.0, player.played[1].voice.Frequency)

	// Zero duration stops the voice without starting it again.
	sy.SetCell(3, 3, workbook.Num(0))
	sy.SetCell(1, 3, workbook.Str("sine"))
	sy.Poll()
	assert.Len(player.played, 2)
	assert.Equal([]int{1, 1}, player.stopped)

	// A stopped voice is not stopped again on Close.
	assert.NoError(sy.Close())
	assert.Equal([]int{1, 1}, player.stopped)
}

func TestSynth_Falsy(t *testing.T) {
	assert := assert.New(t)

	player := &fakePlayer{}
	sy := NewSynth(2, player)

	sy.SetCell(2, 2, workbook.Num(0))
	sy.SetCell(1, 2, workbook.Str(""))
	sy.Poll()
	assert.Empty(player.played)
}

func TestSynth_NoCallback(t *testing.T) {
	assert := assert.New(t)

	player := &fakePlayer{}
	irq := &interrupts{}
	sy := NewSynth(1, player)
	sy.Interrupter = irq

	sy.SetCell(1, 2, workbook.Str("triangle"))
	sy.Poll()
	if assert.Len(player.played, 1) {
		player.played[0].done()
	}
	assert.Empty(*irq)

	assert.NoError(sy.Close())
	assert.Empty(player.stopped)
}

func TestSynth_Close(t *testing.T) {
	assert := assert.New(t)

	player := &fakePlayer{}
	sy := NewSynth(2, player)

	sy.SetCell(1, 2, workbook.Str("sine"))
	sy.SetCell(1, 3, workbook.Str("sine"))
	sy.Poll()
	assert.Len(player.played, 2)

	assert.NoError(sy.Close())
	assert.Equal([]int{0, 1}, player.stopped)
}

func TestSynth_PlayerFailure(t *testing.T) {
	assert := assert.New(t)

	logged := &bytes.Buffer{}
	sy := NewSynth(1, &fakePlayer{err: errors.New("no sound card")})
	sy.Logger = slog.New(slog.NewTextHandler(logged, nil))

	sy.SetCell(1, 2, workbook.Str("sine"))
	sy.Poll()
	assert.Contains(logged.String(), "synth: play")
	assert.Contains(logged.String(), "no sound card")
}

func TestSynth_TimerPlayer(t *testing.T) {
	assert := assert.New(t)

	irq := make(chanInterrupts, 1)
	sy := NewSynth(1, &TimerPlayer{})
	sy.Interrupter = irq

	sy.SetCell(1, 2, workbook.Str("sine"))
	sy.SetCell(3, 2, workbook.Num(0.001))
	sy.SetCell(6, 2, workbook.Str("=R5C1"))
	sy.Poll()

	select {
	case v := <-irq:
		assert.Equal(workbook.Str("=R5C1"), v)
	case <-time.After(time.Second):
		assert.Fail("voice never completed")
	}
}
