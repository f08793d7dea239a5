package email

import (
	"context"
	"sync"
)

// MockMailer captures invite emails for tests.
type MockMailer struct {
	mu   sync.Mutex
	sent []InviteEmail
	Err  error
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) SendInvite(ctx context.Context, msg InviteEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// SentInvites returns a copy of everything sent so far.
func (m *MockMailer) SentInvites() []InviteEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]InviteEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockMailer) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
