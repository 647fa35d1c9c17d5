//go:build integration

package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/waltti/apcprofiler/message"
)

type JetStreamSuite struct {
	suite.Suite
	tc  *TestClient
	ctx context.Context
}

func TestJetStreamSuite(t *testing.T) {
	suite.Run(t, new(JetStreamSuite))
}

func (s *JetStreamSuite) SetupSuite() {
	s.ctx = context.Background()
	s.tc = NewTestClient(s.T(),
		WithStream("CATALOGUE", "catalogue.>"),
		WithStream("PROFILES", "apc.profiles"),
	)
}

func (s *JetStreamSuite) publish(subject string, payload string, ts int64) {
	producer, err := NewProducer(s.ctx, s.tc.Client, subject)
	s.Require().NoError(err)
	s.Require().NoError(producer.Send(s.ctx, []byte(payload), ts))
}

func (s *JetStreamSuite) drain(reader *LatestReader) (*message.Envelope, int) {
	var latest *message.Envelope
	reads := 0
	for {
		more, err := reader.HasMessageAvailable(s.ctx)
		s.Require().NoError(err)
		if !more {
			return latest, reads
		}
		env, err := reader.ReadNext(s.ctx)
		s.Require().NoError(err)
		latest = env
		reads++
	}
}

func (s *JetStreamSuite) TestLatestReader_OnlyLatestIsDelivered() {
	subject := "catalogue.fi.kuopio"
	for i := 1; i <= 3; i++ {
		s.publish(subject, fmt.Sprintf(`[{"n":%d}]`, i), int64(100*i))
	}

	reader, err := NewLatestReader(s.ctx, s.tc.Client, ReaderConfig{
		Subject: subject, Name: "test-kuopio", ReadTimeout: time.Second,
	})
	s.Require().NoError(err)
	defer reader.Close(s.ctx)

	latest, reads := s.drain(reader)
	s.Require().NotNil(latest)
	s.Equal(1, reads)
	s.Equal(`[{"n":3}]`, string(latest.Data))
	s.Equal(subject, latest.Subject)
	s.EqualValues(300, latest.EventTimestamp)
	s.True(latest.HasEventTimestamp())
	s.Positive(latest.Sequence)
}

func (s *JetStreamSuite) TestLatestReader_EmptySubject() {
	reader, err := NewLatestReader(s.ctx, s.tc.Client, ReaderConfig{
		Subject: "catalogue.fi.nobody", Name: "test-nobody", ReadTimeout: time.Second,
	})
	s.Require().NoError(err)
	defer reader.Close(s.ctx)

	more, err := reader.HasMessageAvailable(s.ctx)
	s.Require().NoError(err)
	s.False(more)

	_, err = reader.ReadNext(s.ctx)
	s.ErrorIs(err, ErrNoMessages)
}

func (s *JetStreamSuite) TestLatestReader_RecreatedConsumerStartsFresh() {
	subject := "catalogue.fi.jyvaskyla"
	s.publish(subject, `[]`, 234)

	for round := 0; round < 2; round++ {
		reader, err := NewLatestReader(s.ctx, s.tc.Client, ReaderConfig{
			Subject: subject, Name: "test-jyvaskyla", ReadTimeout: time.Second,
		})
		s.Require().NoError(err)

		latest, reads := s.drain(reader)
		s.Equal(1, reads, "round %d", round)
		s.Require().NotNil(latest)
		s.EqualValues(234, latest.EventTimestamp)
		// Leave the consumer behind on the first round.
		if round == 1 {
			s.NoError(reader.Close(s.ctx))
		}
	}
}

func (s *JetStreamSuite) TestProducer_WithoutTimestampLeavesHeaderUnset() {
	subject := "apc.profiles"
	s.publish(subject, `{"vehicleModels":{},"modelProfiles":{}}`, 0)

	reader, err := NewLatestReader(s.ctx, s.tc.Client, ReaderConfig{Subject: subject, Name: "test-profiles"})
	s.Require().NoError(err)
	defer reader.Close(s.ctx)

	latest, _ := s.drain(reader)
	s.Require().NotNil(latest)
	s.False(latest.HasEventTimestamp())
	s.NotContains(latest.Headers, EventTimestampHeader)
}

func (s *JetStreamSuite) TestProducer_UnknownSubjectIsFatal() {
	_, err := NewProducer(s.ctx, s.tc.Client, "nowhere.at.all")
	s.Require().Error(err)
}

func (s *JetStreamSuite) TestClient_CloseAndReconnect() {
	client := s.tc.Connect(s.T())
	s.True(client.IsConnected())

	s.NoError(client.Flush(s.ctx))

	s.NoError(client.Close(s.ctx))
	s.Equal(StatusClosed, client.Status())

	again := s.tc.Connect(s.T())
	s.True(again.IsConnected())
}

func TestSend_RejectsNegativeTimestamp(t *testing.T) {
	tc := NewTestClient(t, WithStream("NEG", "neg.test"))
	producer, err := NewProducer(context.Background(), tc.Client, "neg.test")
	require.NoError(t, err)

	err = producer.Send(context.Background(), []byte("x"), -1)
	assert.Error(t, err)
}
