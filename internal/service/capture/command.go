package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"
)

const (
	chunkSize     = 4096
	interruptWait = 3 * time.Second
)

// CommandCapturer records by running an external recorder that writes encoded audio to stdout,
// for example ffmpeg reading the default input device. Each process is one track.
type CommandCapturer struct {
	Command []string
}

// NewCommandCapturer returns a capturer for the given argv.
func NewCommandCapturer(command []string) *CommandCapturer {
	return &CommandCapturer{Command: append([]string(nil), command...)}
}

// Acquire starts the recorder process. The process outlives ctx and ends only when its track is stopped.
func (c *CommandCapturer) Acquire(_ context.Context) (Stream, error) {
	if len(c.Command) == 0 {
		return nil, errors.New("no record command configured")
	}

	cmd := exec.Command(c.Command[0], c.Command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open recorder stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start recorder %s: %w", c.Command[0], err)
	}

	track := &processTrack{cmd: cmd, exited: make(chan struct{})}
	stream := &processStream{
		chunks: make(chan []byte, 64),
		track:  track,
	}

	go stream.pump(stdout)
	return stream, nil
}

type processStream struct {
	chunks chan []byte
	track  *processTrack
}

func (s *processStream) Chunks() <-chan []byte { return s.chunks }

func (s *processStream) Tracks() []Track { return []Track{s.track} }

func (s *processStream) pump(stdout io.Reader) {
	buf := make([]byte, chunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.chunks <- chunk
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				log.Printf("[capture] recorder read error: %v", err)
			}
			break
		}
	}
	close(s.chunks)

	if err := s.track.cmd.Wait(); err != nil {
		log.Printf("[capture] recorder exited: %v", err)
	}
	close(s.track.exited)
}

type processTrack struct {
	cmd    *exec.Cmd
	exited chan struct{}
	once   sync.Once
	err    error
}

// Stop asks the recorder to finish its container, then kills it if it does not exit in time.
func (t *processTrack) Stop() error {
	t.once.Do(func() {
		select {
		case <-t.exited:
			return
		default:
		}

		if err := t.cmd.Process.Signal(os.Interrupt); err != nil {
			t.err = t.kill()
			return
		}

		select {
		case <-t.exited:
		case <-time.After(interruptWait):
			t.err = t.kill()
		}
	})
	return t.err
}

func (t *processTrack) kill() error {
	if err := t.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill recorder: %w", err)
	}
	return nil
}
