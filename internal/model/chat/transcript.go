package chat

import "github.com/cloudwego/eino/schema"

// Transcript is the append-only, insertion-ordered message sequence of one portal session.
// Index 0 always holds the system message.
type Transcript struct {
	messages []Message
}

// NewTranscript starts a transcript containing only the persona message.
func NewTranscript(systemPrompt string) *Transcript {
	messages := make([]Message, 0, 16)
	messages = append(messages, NewSystemMessage(systemPrompt))
	return &Transcript{messages: messages}
}

// Append adds a message to the end of the transcript.
func (t *Transcript) Append(message Message) {
	t.messages = append(t.messages, message)
}

// Len returns the number of messages including the system message.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the sequence.
func (t *Transcript) Messages() []Message {
	copied := make([]Message, len(t.messages))
	copy(copied, t.messages)
	return copied
}

// Visible returns the messages rendered in the transcript view; the persona message is hidden.
func (t *Transcript) Visible() []Message {
	visible := make([]Message, 0, len(t.messages))
	for _, msg := range t.messages {
		if msg.Role == schema.System {
			continue
		}
		visible = append(visible, msg)
	}
	return visible
}

// LastOf returns the most recent message with the given role.
func (t *Transcript) LastOf(role schema.RoleType) (Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == role {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

// Wire reduces the whole history, system message included, to role/content pairs.
func (t *Transcript) Wire() []*schema.Message {
	wire := make([]*schema.Message, 0, len(t.messages))
	for _, msg := range t.messages {
		wire = append(wire, msg.Wire())
	}
	return wire
}
