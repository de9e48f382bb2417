// Package capture records microphone audio into a single uploadable payload.
package capture

import (
	"context"
	"errors"
)

var (
	ErrNotRecording     = errors.New("capture: not recording")
	ErrAlreadyRecording = errors.New("capture: already recording")
)

// Track is one hardware source held by a stream.
type Track interface {
	Stop() error
}

// Stream is an acquired microphone stream. Chunks is closed once every track has stopped
// and all pending data has been delivered.
type Stream interface {
	Chunks() <-chan []byte
	Tracks() []Track
}

// AudioCapturer acquires microphone streams from the platform.
type AudioCapturer interface {
	Acquire(ctx context.Context) (Stream, error)
}

// State of a Recorder.
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	default:
		return "unknown"
	}
}
