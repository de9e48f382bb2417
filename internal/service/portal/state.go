package portal

import (
	"github.com/zhouzirui/z-tavern/portal/internal/model/chat"
	"github.com/zhouzirui/z-tavern/portal/internal/model/persona"
)

// RequestState is the single in-flight guard shared by chat and transcription calls.
type RequestState int

const (
	RequestIdle RequestState = iota
	RequestChatPending
	RequestTranscribePending
)

func (r RequestState) String() string {
	switch r {
	case RequestIdle:
		return "idle"
	case RequestChatPending:
		return "chat-pending"
	case RequestTranscribePending:
		return "transcribe-pending"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of the portal used for rendering.
type State struct {
	Persona   persona.Persona
	Messages  []chat.Message
	Draft     string
	Request   RequestState
	Recording bool
}

// Busy reports whether a chat or transcription call is in flight.
func (s State) Busy() bool {
	return s.Request != RequestIdle
}

// Visible returns the transcript without the persona message.
func (s State) Visible() []chat.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[1:]
}
