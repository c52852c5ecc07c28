package device

import (
	"math"
	"strings"
	"time"

	"github.com/ezrec/csvm/workbook"
)

// Waveform is the oscillator shape of a voice.
type Waveform int

//go:generate go tool stringer -linecomment -type=Waveform
const (
	WAVE_SINE     = Waveform(0) // sine
	WAVE_SQUARE   = Waveform(1) // square
	WAVE_SAWTOOTH = Waveform(2) // sawtooth
	WAVE_TRIANGLE = Waveform(3) // triangle
)

// ParseWaveform looks up a waveform by name. Unknown names are sine.
func ParseWaveform(name string) (wave Waveform, ok bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for wave = range WAVE_TRIANGLE + 1 {
		if wave.String() == name {
			ok = true
			return
		}
	}
	wave = WAVE_SINE
	return
}

// Sample returns the waveform at phase, in cycles, scaled to [-1, 1].
func (wave Waveform) Sample(phase float64) float64 {
	_, t := math.Modf(phase)
	if t < 0 {
		t++
	}
	switch wave {
	case WAVE_SQUARE:
		if t < 0.5 {
			return 1
		}
		return -1
	case WAVE_SAWTOOTH:
		return 2*t - 1
	case WAVE_TRIANGLE:
		return 1 - 4*math.Abs(t-0.5)
	default:
		return math.Sin(2 * math.Pi * t)
	}
}

// Voice is one row of the synth: [waveform, frequency, duration, start
// gain, end gain, callback].
type Voice struct {
	Waveform  Waveform
	Frequency float64        // Hz.
	Duration  time.Duration  // Zero stops the voice.
	Start     float64        // Gain at the start.
	End       float64        // Gain at the end.
	Callback  workbook.Value // Interrupt target on completion, or empty.
}

// VoiceFromRow decodes a synth row, applying defaults for empty cells.
func VoiceFromRow(row []workbook.Value) (voice Voice) {
	cell := func(n int) workbook.Value {
		if n < len(row) {
			return row[n]
		}
		return workbook.Value{}
	}
	number := func(n int, otherwise float64) float64 {
		v := cell(n)
		if v.IsEmpty() {
			return otherwise
		}
		return v.Coerce()
	}

	voice.Waveform = WAVE_SINE
	if v := cell(0); !v.IsEmpty() {
		voice.Waveform, _ = ParseWaveform(v.String())
	}
	voice.Frequency = number(1, 440)
	voice.Duration = time.Duration(number(2, 1) * float64(time.Second))
	voice.Start = number(3, 1)
	voice.End = number(4, 1)
	voice.Callback = cell(5)

	return
}

// Gain returns the linear gain ramp at elapsed.
func (voice Voice) Gain(elapsed time.Duration) float64 {
	if voice.Duration <= 0 {
		return 0
	}
	d := min(max(float64(elapsed)/float64(voice.Duration), 0), 1)
	return voice.Start*(1-d) + voice.End*d
}
