// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

//go:build !headless

package main

import (
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/ezrec/csvm/device"
)

// audioPlayer plays the synth through the host audio device.
type audioPlayer struct {
	*mixer
	ctx    *oto.Context
	player *oto.Player
}

func newAudioPlayer() (device.VoicePlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SAMPLE_RATE,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   20 * time.Millisecond,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	ap := &audioPlayer{
		mixer: newMixer(SAMPLE_RATE),
		ctx:   ctx,
	}
	ap.player = ctx.NewPlayer(ap.mixer)
	ap.player.Play()

	return ap, nil
}

func (ap *audioPlayer) Close() error {
	return ap.player.Close()
}
