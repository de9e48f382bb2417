package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zhouzirui/z-tavern/portal/internal/model/speech"
)

// drainTimeout bounds how long Stop waits for a stopped stream to flush its last chunks.
const drainTimeout = 2 * time.Second

// Recorder runs at most one capture session at a time.
type Recorder struct {
	capturer AudioCapturer

	mu      sync.Mutex
	session *session
}

type session struct {
	stream Stream
	mu     sync.Mutex
	chunks [][]byte
	done   chan struct{}
}

// NewRecorder creates an idle recorder backed by capturer.
func NewRecorder(capturer AudioCapturer) *Recorder {
	return &Recorder{capturer: capturer}
}

// State reports whether a session is active.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return StateRecording
	}
	return StateIdle
}

// Start acquires a stream and begins buffering its chunks in arrival order.
// On acquisition failure the recorder stays idle.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.session != nil {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.mu.Unlock()

	stream, err := r.capturer.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire microphone: %w", err)
	}

	s := &session{
		stream: stream,
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	if r.session != nil {
		r.mu.Unlock()
		stopTracks(stream)
		return ErrAlreadyRecording
	}
	r.session = s
	r.mu.Unlock()

	go s.collect()

	log.Printf("[capture] recording started with %d track(s)", len(stream.Tracks()))
	return nil
}

func (s *session) collect() {
	defer close(s.done)
	for chunk := range s.stream.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		s.mu.Lock()
		s.chunks = append(s.chunks, chunk)
		s.mu.Unlock()
	}
}

// Stop ends the active session, releases every track and returns the assembled recording.
// Tracks are stopped even when some of them fail; the payload is still returned in that case
// together with the joined stop error.
func (r *Recorder) Stop() (speech.AudioPayload, error) {
	r.mu.Lock()
	s := r.session
	r.session = nil
	r.mu.Unlock()

	if s == nil {
		return speech.AudioPayload{}, ErrNotRecording
	}

	stopErr := stopTracks(s.stream)

	select {
	case <-s.done:
	case <-time.After(drainTimeout):
		log.Printf("[capture] stream did not close within %s, using buffered audio", drainTimeout)
	}

	s.mu.Lock()
	payload := speech.NewCapturePayload(s.chunks)
	s.mu.Unlock()

	log.Printf("[capture] recording stopped: %d bytes", len(payload.Data))
	return payload, stopErr
}

func stopTracks(stream Stream) error {
	var errs []error
	for _, track := range stream.Tracks() {
		if err := track.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		log.Printf("[capture] failed to stop track: %v", err)
		return err
	}
	return nil
}
