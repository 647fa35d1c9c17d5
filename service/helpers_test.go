package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waltti/apcprofiler/config"
	"github.com/waltti/apcprofiler/logging"
	"github.com/waltti/apcprofiler/message"
	"github.com/waltti/apcprofiler/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type recordingReader struct {
	*testutil.MockReader
	name     string
	rec      *recorder
	closeErr error
}

func (r *recordingReader) Close(ctx context.Context) error {
	r.rec.add("close " + r.name)
	_ = r.MockReader.Close(ctx)
	return r.closeErr
}

type recordingProducer struct {
	*testutil.MockProducer
	name     string
	rec      *recorder
	closeErr error
}

func (p *recordingProducer) Flush(ctx context.Context) error {
	p.rec.add("flush " + p.name)
	return p.MockProducer.Flush(ctx)
}

func (p *recordingProducer) Close(ctx context.Context) error {
	p.rec.add("close " + p.name)
	_ = p.MockProducer.Close(ctx)
	return p.closeErr
}

type fakeConnection struct {
	name   string
	rec    *recorder
	mu     sync.Mutex
	closed bool
}

func (c *fakeConnection) Close(context.Context) error {
	c.rec.add("close " + c.name)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeHealth struct {
	rec      *recorder
	statuses []bool
	closed   bool
}

func (h *fakeHealth) SetHealthy(healthy bool) {
	h.rec.add(fmt.Sprintf("healthy %t", healthy))
	h.statuses = append(h.statuses, healthy)
}

func (h *fakeHealth) Close(context.Context) error {
	h.rec.add("close health")
	h.closed = true
	return nil
}

// fakeConnector serves readers preloaded with messages per subject
type fakeConnector struct {
	rec        *recorder
	messages   map[string][]*message.Envelope
	connectErr error
	sendErr    error

	connections []*fakeConnection
	producers   []*recordingProducer
	readers     map[string]*recordingReader
}

func newFakeConnector(rec *recorder) *fakeConnector {
	return &fakeConnector{
		rec:      rec,
		messages: map[string][]*message.Envelope{},
		readers:  map[string]*recordingReader{},
	}
}

func (c *fakeConnector) Connect(context.Context) (Connection, error) {
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	conn := &fakeConnection{name: fmt.Sprintf("connection#%d", len(c.connections)+1), rec: c.rec}
	c.connections = append(c.connections, conn)
	c.rec.add("open " + conn.name)
	return conn, nil
}

func (c *fakeConnector) OpenReader(_ context.Context, _ Connection, cfg config.ReaderConfig) (Reader, error) {
	r := &recordingReader{
		MockReader: testutil.NewMockReader(cfg.Subject, c.messages[cfg.Subject]...),
		name:       "reader " + cfg.Name,
		rec:        c.rec,
	}
	c.readers[cfg.Name] = r
	c.rec.add("open " + r.name)
	return r, nil
}

func (c *fakeConnector) OpenProducer(_ context.Context, _ Connection, subject string) (Producer, error) {
	p := &recordingProducer{
		MockProducer: testutil.NewMockProducer(subject),
		name:         fmt.Sprintf("producer#%d", len(c.producers)+1),
		rec:          c.rec,
	}
	p.SendErr = c.sendErr
	c.producers = append(c.producers, p)
	c.rec.add("open " + p.name)
	return p, nil
}

func (c *fakeConnector) openConnections() int {
	n := 0
	for _, conn := range c.connections {
		if !conn.isClosed() {
			n++
		}
	}
	return n
}

func newTestLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Output: &buf})
	require.NoError(t, err)
	return logger, &buf
}

func testConfig() *config.Config {
	return &config.Config{
		Processing:  config.ProcessingConfig{MissingProfilePolicy: config.PolicyDropVehicles},
		Producer:    config.ProducerConfig{Subject: testutil.SubjectProfiles},
		CacheReader: config.ReaderConfig{Subject: testutil.SubjectProfiles, Name: "cache"},
		CatalogReaders: []config.CatalogReaderConfig{
			{FeedPublisherID: testutil.FeedKuopio, Subject: testutil.SubjectKuopio, Name: "kuopio"},
			{FeedPublisherID: testutil.FeedJyvaskyla, Subject: testutil.SubjectJyvaskyla, Name: "jyvaskyla"},
		},
	}
}
