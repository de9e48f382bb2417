// Package playback plays synthesized speech.
package playback

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
)

// AudioPlayer starts playback of an MPEG payload and returns without waiting for it to finish.
type AudioPlayer interface {
	Play(audio []byte) error
}

// CommandPlayer plays audio through an external player such as ffplay or mpg123.
// Each payload is written to a temporary file that is removed once the player exits.
type CommandPlayer struct {
	Command []string
	TempDir string

	wg sync.WaitGroup
}

// NewCommandPlayer returns a player for the given argv; the audio file path is appended to it.
func NewCommandPlayer(command []string) *CommandPlayer {
	return &CommandPlayer{Command: append([]string(nil), command...)}
}

// Play writes audio to a temporary .mp3 file and launches the player on it.
func (p *CommandPlayer) Play(audio []byte) error {
	if len(p.Command) == 0 {
		return errors.New("no play command configured")
	}
	if len(audio) == 0 {
		return errors.New("empty audio")
	}

	file, err := os.CreateTemp(p.TempDir, "portal-speech-*.mp3")
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	path := file.Name()

	if _, err := file.Write(audio); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("write audio file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close audio file: %w", err)
	}

	args := append(append([]string(nil), p.Command[1:]...), path)
	cmd := exec.Command(p.Command[0], args...)
	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return fmt.Errorf("start player %s: %w", p.Command[0], err)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer os.Remove(path)
		if err := cmd.Wait(); err != nil {
			log.Printf("[playback] error playing audio: %v", err)
		}
	}()

	return nil
}

// Wait blocks until every started playback has finished.
func (p *CommandPlayer) Wait() {
	p.wg.Wait()
}
