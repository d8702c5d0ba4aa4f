package mail

import (
	"context"
	"sync"
)

// Mock records sent messages for tests
type Mock struct {
	mu   sync.Mutex
	sent []Message

	// Err, when set, is returned by every Send
	Err error
}

// Send records the message or returns the configured error
func (m *Mock) Send(_ context.Context, msg Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of everything delivered so far
func (m *Mock) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}
