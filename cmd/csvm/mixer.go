// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/ezrec/csvm/device"
)

const (
	SAMPLE_RATE = 44100
	MIX_GAIN    = 0.25 // Per-voice headroom.
)

type mixerVoice struct {
	voice   device.Voice
	phase   float64
	samples int
	done    func()
}

// mixer is a device.VoicePlayer that renders voices as mono float32
// little-endian samples through Read.
type mixer struct {
	rate   int
	mutex  sync.Mutex
	voices map[int]*mixerVoice
}

var _ device.VoicePlayer = (*mixer)(nil)

func newMixer(rate int) *mixer {
	return &mixer{
		rate:   rate,
		voices: map[int]*mixerVoice{},
	}
}

func (mx *mixer) Play(index int, voice device.Voice, done func()) error {
	mx.mutex.Lock()
	defer mx.mutex.Unlock()

	mx.voices[index] = &mixerVoice{voice: voice, done: done}
	return nil
}

func (mx *mixer) Stop(index int) {
	mx.mutex.Lock()
	defer mx.mutex.Unlock()

	delete(mx.voices, index)
}

// Read fills p with whole samples. Voices that finish are removed, and
// their done callbacks run after the mix.
func (mx *mixer) Read(p []byte) (n int, err error) {
	var finished []func()

	mx.mutex.Lock()
	count := len(p) / 4
	for i := range count {
		var sum float64
		for index, mv := range mx.voices {
			elapsed := time.Duration(mv.samples) * time.Second / time.Duration(mx.rate)
			if elapsed >= mv.voice.Duration {
				delete(mx.voices, index)
				finished = append(finished, mv.done)
				continue
			}
			sum += mv.voice.Waveform.Sample(mv.phase) * mv.voice.Gain(elapsed)
			_, mv.phase = math.Modf(mv.phase + mv.voice.Frequency/float64(mx.rate))
			mv.samples++
		}
		sample := float32(min(max(sum*MIX_GAIN, -1), 1))
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(sample))
	}
	mx.mutex.Unlock()

	for _, done := range finished {
		if done != nil {
			done()
		}
	}

	n = count * 4
	return
}
