// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

//go:build headless

package main

import (
	"github.com/ezrec/csvm/device"
)

// newAudioPlayer keeps voice timing without sound.
func newAudioPlayer() (device.VoicePlayer, error) {
	return &device.TimerPlayer{}, nil
}
