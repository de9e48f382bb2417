package remote

import (
	"errors"
	"fmt"
)

var (
	ErrChatFailed  = errors.New("failed to get response")
	ErrRequest     = errors.New("collaborator request failed")
	ErrNotAudio    = errors.New("response was not audio format")
	ErrEmptyAudio  = errors.New("empty audio received")
	ErrBadResponse = errors.New("unexpected collaborator response")
)

// Error describes a failed collaborator call. Message is suitable for showing to the user as is.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s failed with status %d", e.Op, e.Status)
	}
	return e.Op + " failed"
}

func (e *Error) Unwrap() error {
	return e.Err
}
