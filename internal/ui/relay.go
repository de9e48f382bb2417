package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/z-tavern/portal/internal/service/portal"
)

// StateMsg carries a fresh conversation snapshot into the program.
type StateMsg struct {
	State portal.State
}

// NotifyMsg opens the blocking notification.
type NotifyMsg struct {
	Message string
}

// Relay forwards service callbacks to a running program in order.
// Publishing never blocks, so it is safe to trigger from inside Update.
type Relay struct {
	mu      sync.Mutex
	program *tea.Program
	queue   []tea.Msg
	wake    chan struct{}
	done    chan struct{}
}

// NewRelay creates a relay. Messages published before Attach are buffered.
func NewRelay() *Relay {
	return &Relay{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Attach starts delivering queued messages to p.
func (r *Relay) Attach(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()

	go r.pump()
	r.signal()
}

// Close stops delivery.
func (r *Relay) Close() {
	close(r.done)
}

// Publish is an OnChange listener.
func (r *Relay) Publish(state portal.State) {
	r.push(StateMsg{State: state})
}

// Notify implements portal.Notifier.
func (r *Relay) Notify(message string) {
	r.push(NotifyMsg{Message: message})
}

func (r *Relay) push(msg tea.Msg) {
	r.mu.Lock()
	r.queue = append(r.queue, msg)
	r.mu.Unlock()
	r.signal()
}

func (r *Relay) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Relay) pump() {
	for {
		select {
		case <-r.done:
			return
		case <-r.wake:
		}

		r.mu.Lock()
		pending := r.queue
		r.queue = nil
		program := r.program
		r.mu.Unlock()

		for _, msg := range pending {
			program.Send(msg)
		}
	}
}
