package device

import (
	"sync"
	"time"
)

// TimerPlayer is a silent VoicePlayer: it only keeps time, so voice
// callbacks fire on schedule without a sound device.
type TimerPlayer struct {
	// AfterFunc is time.AfterFunc if nil. It returns a function that
	// cancels the timer.
	AfterFunc func(d time.Duration, fn func()) (stop func() bool)

	mutex  sync.Mutex
	timers map[int]*voiceTimer
}

type voiceTimer struct {
	stop func() bool
}

var _ VoicePlayer = (*TimerPlayer)(nil)

// Play starts a timer for the voice duration.
func (tp *TimerPlayer) Play(index int, voice Voice, done func()) (err error) {
	after := tp.AfterFunc
	if after == nil {
		after = func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		}
	}

	timer := &voiceTimer{}

	tp.mutex.Lock()
	if tp.timers == nil {
		tp.timers = map[int]*voiceTimer{}
	}
	tp.timers[index] = timer
	tp.mutex.Unlock()

	stop := after(voice.Duration, func() {
		tp.mutex.Lock()
		current := tp.timers[index] == timer
		if current {
			delete(tp.timers, index)
		}
		tp.mutex.Unlock()

		// A stopped or replaced timer never completes.
		if current {
			done()
		}
	})

	tp.mutex.Lock()
	timer.stop = stop
	tp.mutex.Unlock()

	return
}

// Stop cancels the timer of a voice.
func (tp *TimerPlayer) Stop(index int) {
	tp.mutex.Lock()
	var stop func() bool
	if timer, ok := tp.timers[index]; ok {
		stop = timer.stop
		delete(tp.timers, index)
	}
	tp.mutex.Unlock()

	if stop != nil {
		stop()
	}
}
