package testutil

import (
	"context"
	"sync"
)

// SentMessage is one message accepted by MockProducer
type SentMessage struct {
	Data           []byte
	EventTimestamp int64
}

// MockProducer records sent messages
type MockProducer struct {
	mu      sync.Mutex
	subject string
	sent    []SentMessage

	SendErr  error
	FlushErr error

	FlushCalls int
	CloseCalls int
}

// NewMockProducer creates a producer for subject
func NewMockProducer(subject string) *MockProducer {
	return &MockProducer{subject: subject}
}

// Subject returns the subject
func (p *MockProducer) Subject() string { return p.subject }

// Send records data unless SendErr is set
func (p *MockProducer) Send(_ context.Context, data []byte, eventTimestamp int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SendErr != nil {
		return p.SendErr
	}
	p.sent = append(p.sent, SentMessage{Data: append([]byte(nil), data...), EventTimestamp: eventTimestamp})
	return nil
}

// Flush records the call
func (p *MockProducer) Flush(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FlushCalls++
	return p.FlushErr
}

// Close records the call
func (p *MockProducer) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCalls++
	return nil
}

// Sent returns a copy of the sent messages
func (p *MockProducer) Sent() []SentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SentMessage(nil), p.sent...)
}
