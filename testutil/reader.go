package testutil

import (
	"context"
	"sync"

	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/message"
)

// MockReader replays a fixed list of envelopes
type MockReader struct {
	mu       sync.Mutex
	subject  string
	messages []*message.Envelope
	pos      int

	// HasMessageErr and ReadErr are returned by the matching calls when set
	HasMessageErr error
	ReadErr       error

	ReadCalls  int
	CloseCalls int
}

// NewMockReader creates a reader on subject holding messages
func NewMockReader(subject string, messages ...*message.Envelope) *MockReader {
	return &MockReader{subject: subject, messages: messages}
}

// Subject returns the subject
func (r *MockReader) Subject() string { return r.subject }

// HasMessageAvailable reports whether unread messages remain
func (r *MockReader) HasMessageAvailable(context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.HasMessageErr != nil {
		return false, r.HasMessageErr
	}
	return r.pos < len(r.messages), nil
}

// ReadNext returns the next message
func (r *MockReader) ReadNext(context.Context) (*message.Envelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReadCalls++
	if r.ReadErr != nil {
		return nil, r.ReadErr
	}
	if r.pos >= len(r.messages) {
		return nil, errors.WrapTransient(errors.ErrNoMessages, "MockReader", "ReadNext", "read "+r.subject)
	}
	env := r.messages[r.pos]
	r.pos++
	return env, nil
}

// Close records the call
func (r *MockReader) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CloseCalls++
	return nil
}

// Closed reports whether Close was called
func (r *MockReader) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.CloseCalls > 0
}
