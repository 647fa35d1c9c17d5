package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/pkg/timestamp"
)

// Producer publishes to one subject of a JetStream stream.
type Producer struct {
	client  *Client
	js      jetstream.JetStream
	subject string
	closed  atomic.Bool
}

// NewProducer checks that a stream captures subject and returns a Producer for it.
func NewProducer(ctx context.Context, client *Client, subject string) (*Producer, error) {
	if subject == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("subject is required"), "Producer", "NewProducer", "check config")
	}

	js, err := client.JetStream()
	if err != nil {
		return nil, err
	}

	if _, err := js.StreamNameBySubject(ctx, subject); err != nil {
		if stderrors.Is(err, jetstream.ErrStreamNotFound) {
			return nil, errors.WrapFatal(err, "Producer", "NewProducer",
				fmt.Sprintf("find stream for subject %s", subject))
		}
		return nil, errors.WrapTransient(err, "Producer", "NewProducer",
			fmt.Sprintf("find stream for subject %s", subject))
	}

	return &Producer{client: client, js: js, subject: subject}, nil
}

// Subject returns the subject the producer publishes to
func (p *Producer) Subject() string { return p.subject }

// Send publishes data and waits for the stream acknowledgement.
// eventTimestamp is Unix milliseconds; 0 leaves the header unset.
func (p *Producer) Send(ctx context.Context, data []byte, eventTimestamp int64) error {
	if p.closed.Load() {
		return errors.WrapFatal(ErrClosed, "Producer", "Send", "check state")
	}
	if err := timestamp.Validate(eventTimestamp); err != nil {
		return errors.WrapInvalid(err, "Producer", "Send", "validate event timestamp")
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = data
	if eventTimestamp > 0 {
		msg.Header.Set(EventTimestampHeader, timestamp.FormatHeader(eventTimestamp))
	}

	ack, err := p.js.PublishMsg(ctx, msg)
	if err != nil {
		return errors.WrapTransient(err, "Producer", "Send", fmt.Sprintf("publish to %s", p.subject))
	}

	p.client.logger.Debugf("Published %d bytes to %s (stream %s, sequence %d)", len(data), p.subject, ack.Stream, ack.Sequence)
	return nil
}

// Flush waits until the server has processed everything sent so far
func (p *Producer) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// Close flushes and stops accepting sends
func (p *Producer) Close(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !p.client.IsConnected() {
		return nil
	}
	return p.Flush(ctx)
}
