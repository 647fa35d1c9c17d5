package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/waltti/apcprofiler/config"
	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/metric"
	"github.com/waltti/apcprofiler/natsclient"
)

// Connector opens the transport resources of an invocation
type Connector interface {
	Connect(ctx context.Context) (Connection, error)
	OpenReader(ctx context.Context, conn Connection, cfg config.ReaderConfig) (Reader, error)
	OpenProducer(ctx context.Context, conn Connection, subject string) (Producer, error)
}

// NATSConnector opens JetStream readers and producers
type NATSConnector struct {
	cfg     config.NATSConfig
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewNATSConnector creates a NATSConnector
func NewNATSConnector(cfg config.NATSConfig, logger *slog.Logger, metrics *metric.Metrics) *NATSConnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSConnector{cfg: cfg, logger: logger, metrics: metrics}
}

type natsConnection struct {
	client  *natsclient.Client
	metrics *metric.Metrics
}

func (c *natsConnection) Close(ctx context.Context) error {
	defer c.metrics.RecordNATSStatus(false)
	return c.client.Close(ctx)
}

func (c *NATSConnector) clientOptions() []natsclient.ClientOption {
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(natsclient.NewSlogLogger(c.logger)),
		natsclient.WithName(c.cfg.ClientName),
		natsclient.WithCompression(c.cfg.Compression),
		natsclient.WithDisconnectCallback(func(error) { c.metrics.RecordNATSStatus(false) }),
		natsclient.WithReconnectCallback(func() { c.metrics.RecordNATSStatus(true) }),
	}
	if c.cfg.MaxReconnects >= -1 {
		opts = append(opts, natsclient.WithMaxReconnects(c.cfg.MaxReconnects))
	}
	if c.cfg.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(c.cfg.ReconnectWait))
	}
	if c.cfg.PingInterval > 0 {
		opts = append(opts, natsclient.WithPingInterval(c.cfg.PingInterval))
	}
	if c.cfg.ConnectTimeout > 0 {
		opts = append(opts, natsclient.WithTimeout(c.cfg.ConnectTimeout))
	}
	if c.cfg.DrainTimeout > 0 {
		opts = append(opts, natsclient.WithDrainTimeout(c.cfg.DrainTimeout))
	}
	if c.cfg.Token != "" {
		opts = append(opts, natsclient.WithToken(c.cfg.Token))
	}
	if c.cfg.CredentialsFile != "" {
		opts = append(opts, natsclient.WithCredentialsFile(c.cfg.CredentialsFile))
	}
	if c.cfg.TLS.Enabled() {
		opts = append(opts, natsclient.WithTLS(c.cfg.TLS.CertFile, c.cfg.TLS.KeyFile, c.cfg.TLS.CAFile))
	}
	return opts
}

func (c *NATSConnector) newClient() (*natsclient.Client, error) {
	return natsclient.NewClient(c.cfg.URLs, c.clientOptions()...)
}

// Connect creates and connects a NATS client
func (c *NATSConnector) Connect(ctx context.Context) (Connection, error) {
	client, err := c.newClient()
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "Connected to NATS",
		"url", client.URL(),
		"maxReconnects", client.MaxReconnects(),
		"reconnectWait", client.ReconnectWait().String(),
		"pingInterval", client.PingInterval().String())
	c.metrics.RecordNATSStatus(true)
	return &natsConnection{client: client, metrics: c.metrics}, nil
}

func (c *NATSConnector) client(conn Connection, method string) (*natsclient.Client, error) {
	nc, ok := conn.(*natsConnection)
	if !ok || nc == nil {
		return nil, errors.WrapFatal(fmt.Errorf("connection %T was not opened by NATSConnector", conn),
			"NATSConnector", method, "check connection")
	}
	return nc.client, nil
}

// OpenReader opens a latest-message reader on cfg.Subject
func (c *NATSConnector) OpenReader(ctx context.Context, conn Connection, cfg config.ReaderConfig) (Reader, error) {
	client, err := c.client(conn, "OpenReader")
	if err != nil {
		return nil, err
	}
	reader, err := natsclient.NewLatestReader(ctx, client, natsclient.ReaderConfig{
		Subject:     cfg.Subject,
		Name:        cfg.Name,
		ReadTimeout: c.cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return reader, nil
}

// OpenProducer opens a producer on subject
func (c *NATSConnector) OpenProducer(ctx context.Context, conn Connection, subject string) (Producer, error) {
	client, err := c.client(conn, "OpenProducer")
	if err != nil {
		return nil, err
	}
	producer, err := natsclient.NewProducer(ctx, client, subject)
	if err != nil {
		return nil, err
	}
	return producer, nil
}
