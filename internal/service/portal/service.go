// Package portal holds the conversation with the persona: the transcript, the input draft,
// the in-flight request and the recording session.
package portal

import (
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-tavern/portal/internal/model/chat"
	"github.com/zhouzirui/z-tavern/portal/internal/model/persona"
	"github.com/zhouzirui/z-tavern/portal/internal/model/speech"
	"github.com/zhouzirui/z-tavern/portal/internal/service/capture"
	"github.com/zhouzirui/z-tavern/portal/internal/service/playback"
)

// ChatErrorMessage is appended in place of a reply when the chat call fails.
const ChatErrorMessage = "Sorry, I encountered an error. Please try again."

const transcribeFallback = "Failed to transcribe audio"

// ErrBusy is returned when the recording control is used while a request is in flight.
var ErrBusy = errors.New("portal: request in progress")

// Remote is the set of collaborator calls the portal relies on.
type Remote interface {
	Chat(ctx context.Context, messages []*schema.Message) (string, error)
	Transcribe(ctx context.Context, payload speech.AudioPayload) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Notifier shows a blocking notification to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAutoSpeak plays every successful reply.
func WithAutoSpeak(enabled bool) Option {
	return func(s *Service) { s.autoSpeak = enabled }
}

// Service is the conversation state holder. It is safe for use from several goroutines;
// state is never locked across a remote call or microphone acquisition.
type Service struct {
	remote   Remote
	recorder *capture.Recorder
	player   playback.AudioPlayer
	notifier Notifier

	now       func() time.Time
	autoSpeak bool

	mu         sync.Mutex
	persona    persona.Persona
	transcript *chat.Transcript
	draft      string
	request    RequestState
	listeners  []func(State)
}

// NewService starts a fresh conversation with p's prompt as the system message.
func NewService(p persona.Persona, remote Remote, capturer capture.AudioCapturer, player playback.AudioPlayer, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		remote:     remote,
		recorder:   capture.NewRecorder(capturer),
		player:     player,
		notifier:   notifier,
		now:        time.Now,
		persona:    p,
		transcript: chat.NewTranscript(p.Prompt),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to be called with a fresh snapshot after every state change.
func (s *Service) OnChange(fn func(State)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() State {
	return State{
		Persona:   s.persona,
		Messages:  s.transcript.Messages(),
		Draft:     s.draft,
		Request:   s.request,
		Recording: s.recorder.State() == capture.StateRecording,
	}
}

func (s *Service) emit() {
	s.mu.Lock()
	state := s.snapshotLocked()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// SetDraft replaces the input draft.
func (s *Service) SetDraft(text string) {
	s.mu.Lock()
	changed := s.draft != text
	s.draft = text
	s.mu.Unlock()

	if changed {
		s.emit()
	}
}

// Submit sends the current draft. See SubmitText.
func (s *Service) Submit(ctx context.Context) bool {
	s.mu.Lock()
	text := s.draft
	s.mu.Unlock()
	return s.SubmitText(ctx, text)
}

// SubmitText appends a user message and asks the chat collaborator for a reply.
// It returns false without touching state when text is blank or a request is in flight.
// Otherwise exactly one assistant or error message is appended once the call resolves.
func (s *Service) SubmitText(ctx context.Context, text string) bool {
	content := strings.TrimSpace(text)

	s.mu.Lock()
	if content == "" || s.request != RequestIdle {
		s.mu.Unlock()
		return false
	}
	s.transcript.Append(chat.NewUserMessage(content, s.now()))
	s.draft = ""
	s.request = RequestChatPending
	history := s.transcript.Wire()
	s.mu.Unlock()
	s.emit()

	reply, err := s.remote.Chat(ctx, history)

	s.mu.Lock()
	if err != nil {
		log.Printf("[portal] error getting completion: %v", err)
		s.transcript.Append(chat.NewErrorMessage(ChatErrorMessage, s.now()))
	} else {
		s.transcript.Append(chat.NewAssistantMessage(reply, s.now()))
	}
	s.request = RequestIdle
	s.mu.Unlock()
	s.emit()

	if err == nil && s.autoSpeak {
		s.Speak(ctx, reply)
	}
	return true
}

// ToggleRecording starts a capture session when idle, or stops the active one and
// transcribes it into the draft. Microphone acquisition failures are logged and returned
// but not shown as a notification.
func (s *Service) ToggleRecording(ctx context.Context) error {
	if s.recorder.State() == capture.StateRecording {
		return s.StopRecording(ctx)
	}
	return s.StartRecording(ctx)
}

// StartRecording acquires the microphone.
func (s *Service) StartRecording(ctx context.Context) error {
	if s.Snapshot().Busy() {
		return ErrBusy
	}

	if err := s.recorder.Start(ctx); err != nil {
		log.Printf("[portal] error accessing microphone: %v", err)
		return err
	}

	s.emit()
	return nil
}

// StopRecording ends the capture session and transcribes it. It is a no-op while idle.
// The microphone is released before the transcription call starts.
func (s *Service) StopRecording(ctx context.Context) error {
	s.mu.Lock()
	busy := s.request != RequestIdle
	s.mu.Unlock()
	if busy {
		return ErrBusy
	}

	payload, err := s.recorder.Stop()
	if errors.Is(err, capture.ErrNotRecording) {
		return nil
	}
	if err != nil {
		log.Printf("[portal] error releasing microphone: %v", err)
	}
	s.emit()

	s.transcribe(ctx, payload)
	return nil
}

func (s *Service) transcribe(ctx context.Context, payload speech.AudioPayload) {
	s.mu.Lock()
	if s.request != RequestIdle {
		s.mu.Unlock()
		log.Printf("[portal] dropping recording: request %s in flight", s.request)
		return
	}
	s.request = RequestTranscribePending
	s.mu.Unlock()
	s.emit()

	text, err := s.remote.Transcribe(ctx, payload)

	s.mu.Lock()
	if err == nil {
		s.draft = text
	}
	s.request = RequestIdle
	s.mu.Unlock()

	if err != nil {
		log.Printf("[portal] error transcribing audio: %v", err)
		s.notify(err, transcribeFallback)
	}
	s.emit()
}

// Speak synthesizes text and starts playback. It does not consult the request state.
// Synthesis failures are shown as a notification; playback failures are only logged.
func (s *Service) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	audio, err := s.remote.Synthesize(ctx, text)
	if err != nil {
		log.Printf("[portal] error generating speech: %v", err)
		s.notify(err, "Failed to generate speech")
		return err
	}

	if err := s.player.Play(audio); err != nil {
		log.Printf("[portal] error playing audio: %v", err)
	}
	return nil
}

// SpeakLast speaks the most recent assistant message, if any.
func (s *Service) SpeakLast(ctx context.Context) error {
	s.mu.Lock()
	reply, ok := s.transcript.LastOf(schema.Assistant)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Speak(ctx, reply.Content)
}

func (s *Service) notify(err error, fallback string) {
	if s.notifier == nil {
		return
	}
	message := fallback
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	s.notifier.Notify(message)
}
