package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/message"
	"github.com/waltti/apcprofiler/pkg/timestamp"
)

// EventTimestampHeader carries the application event time in Unix milliseconds.
const EventTimestampHeader = "Apc-Event-Timestamp"

// ErrNoMessages is returned by ReadNext when nothing arrived within the read timeout.
var ErrNoMessages = errors.ErrNoMessages

// ReaderConfig configures a LatestReader
type ReaderConfig struct {
	Subject     string
	Name        string
	ReadTimeout time.Duration
}

// LatestReader reads the newest message of one literal subject.
//
// It is backed by a pull consumer with DeliverLastPerSubject policy, so only
// the most recent message on the subject, plus anything published while the
// reader is open, is ever delivered. Draining the reader therefore yields the
// latest message without scanning stream history.
type LatestReader struct {
	client      *Client
	js          jetstream.JetStream
	stream      string
	consumer    jetstream.Consumer
	subject     string
	name        string
	readTimeout time.Duration
	closed      atomic.Bool
}

// NewLatestReader creates the consumer backing the reader. A consumer left
// behind by an earlier invocation under the same name is deleted first.
func NewLatestReader(ctx context.Context, client *Client, cfg ReaderConfig) (*LatestReader, error) {
	if cfg.Subject == "" || cfg.Name == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("subject and name are required"), "LatestReader", "NewLatestReader", "check config")
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}

	js, err := client.JetStream()
	if err != nil {
		return nil, err
	}

	stream, err := js.StreamNameBySubject(ctx, cfg.Subject)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrStreamNotFound) {
			return nil, errors.WrapFatal(err, "LatestReader", "NewLatestReader",
				fmt.Sprintf("find stream for subject %s", cfg.Subject))
		}
		return nil, errors.WrapTransient(err, "LatestReader", "NewLatestReader",
			fmt.Sprintf("find stream for subject %s", cfg.Subject))
	}

	if err := js.DeleteConsumer(ctx, stream, cfg.Name); err != nil && !stderrors.Is(err, jetstream.ErrConsumerNotFound) {
		return nil, errors.WrapTransient(err, "LatestReader", "NewLatestReader",
			fmt.Sprintf("delete stale consumer %s", cfg.Name))
	}

	consumer, err := js.CreateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Name:              cfg.Name,
		Description:       "latest message reader for " + cfg.Subject,
		FilterSubject:     cfg.Subject,
		DeliverPolicy:     jetstream.DeliverLastPerSubjectPolicy,
		AckPolicy:         jetstream.AckNonePolicy,
		InactiveThreshold: 5 * time.Minute,
		MemoryStorage:     true,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "LatestReader", "NewLatestReader",
			fmt.Sprintf("create consumer %s", cfg.Name))
	}

	client.logger.Debugf("Created latest reader %s on %s (stream %s)", cfg.Name, cfg.Subject, stream)

	return &LatestReader{
		client:      client,
		js:          js,
		stream:      stream,
		consumer:    consumer,
		subject:     cfg.Subject,
		name:        cfg.Name,
		readTimeout: cfg.ReadTimeout,
	}, nil
}

// Subject returns the subject the reader is bound to
func (r *LatestReader) Subject() string { return r.subject }

// Name returns the consumer name
func (r *LatestReader) Name() string { return r.name }

// HasMessageAvailable reports whether the consumer has undelivered messages
func (r *LatestReader) HasMessageAvailable(ctx context.Context) (bool, error) {
	if r.closed.Load() {
		return false, errors.WrapFatal(ErrClosed, "LatestReader", "HasMessageAvailable", "check state")
	}

	info, err := r.consumer.Info(ctx)
	if err != nil {
		return false, errors.WrapTransient(err, "LatestReader", "HasMessageAvailable",
			fmt.Sprintf("get consumer info for %s", r.name))
	}
	return info.NumPending > 0, nil
}

// ReadNext returns the next message, or ErrNoMessages after the read timeout
func (r *LatestReader) ReadNext(_ context.Context) (*message.Envelope, error) {
	if r.closed.Load() {
		return nil, errors.WrapFatal(ErrClosed, "LatestReader", "ReadNext", "check state")
	}

	msg, err := r.consumer.Next(jetstream.FetchMaxWait(r.readTimeout))
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoMessages) || stderrors.Is(err, nats.ErrTimeout) {
			return nil, errors.WrapTransient(ErrNoMessages, "LatestReader", "ReadNext",
				fmt.Sprintf("read from %s", r.subject))
		}
		return nil, errors.WrapTransient(err, "LatestReader", "ReadNext", fmt.Sprintf("read from %s", r.subject))
	}

	env, err := toEnvelope(msg)
	if err != nil {
		r.client.logger.Errorf("Ignoring malformed %s header on %s: %v", EventTimestampHeader, r.subject, err)
	}
	return env, nil
}

// Close deletes the backing consumer
func (r *LatestReader) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := r.js.DeleteConsumer(ctx, r.stream, r.name); err != nil && !stderrors.Is(err, jetstream.ErrConsumerNotFound) {
		return errors.Wrap(err, "LatestReader", "Close", fmt.Sprintf("delete consumer %s", r.name))
	}
	return nil
}

// toEnvelope converts a JetStream message. A malformed timestamp header is
// reported as an error alongside a usable envelope with EventTimestamp 0.
func toEnvelope(msg jetstream.Msg) (*message.Envelope, error) {
	env := &message.Envelope{
		Subject: msg.Subject(),
		Data:    msg.Data(),
	}
	if headers := msg.Headers(); len(headers) > 0 {
		env.Headers = make(map[string][]string, len(headers))
		for k, v := range headers {
			env.Headers[k] = append([]string(nil), v...)
		}
	}
	if meta, err := msg.Metadata(); err == nil {
		env.Sequence = meta.Sequence.Stream
	}

	ts, err := timestamp.ParseHeader(msg.Headers().Get(EventTimestampHeader))
	if err != nil {
		return env, err
	}
	env.EventTimestamp = ts
	return env, nil
}
