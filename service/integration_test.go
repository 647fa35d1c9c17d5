//go:build integration

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waltti/apcprofiler/config"
	"github.com/waltti/apcprofiler/message"
	"github.com/waltti/apcprofiler/metric"
	"github.com/waltti/apcprofiler/natsclient"
	"github.com/waltti/apcprofiler/profiler"
	"github.com/waltti/apcprofiler/schema"
	fixtures "github.com/waltti/apcprofiler/testutil"
)

func newNATSRunner(t *testing.T, cfg *config.Config, stub *fixtures.StubOracle) *Runner {
	t.Helper()
	logger, _ := newTestLogger(t)
	metrics := metric.NewMetrics()
	validator, err := schema.NewValidator()
	require.NoError(t, err)
	processor, err := profiler.NewProcessor(profiler.Config{
		Validator: validator,
		Oracle:    stub,
		WorkDir:   t.TempDir(),
		Logger:    logger,
		Metrics:   metrics,
	})
	require.NoError(t, err)

	return NewRunner(cfg,
		NewNATSConnector(cfg.NATS, logger, metrics),
		processor,
		&fakeHealth{rec: &recorder{}},
		WithLogger(logger),
		WithMetrics(metrics))
}

func TestIntegration_RunnerAgainstJetStream(t *testing.T) {
	ctx := context.Background()
	tc := natsclient.NewTestClient(t,
		natsclient.WithStream("CATALOGUE", "catalogue.>"),
		natsclient.WithStream("PROFILES", fixtures.SubjectProfiles),
	)

	for _, env := range []*message.Envelope{fixtures.KuopioEnvelope(), fixtures.JyvaskylaEnvelope()} {
		producer, err := natsclient.NewProducer(ctx, tc.Client, env.Subject)
		require.NoError(t, err)
		require.NoError(t, producer.Send(ctx, env.Data, env.EventTimestamp))
	}

	cfg := testConfig()
	cfg.NATS = config.NATSConfig{
		URLs:           []string{tc.URL},
		ClientName:     "apcprofiler-test",
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    time.Second,
		DrainTimeout:   5 * time.Second,
	}

	// First invocation computes every model and publishes
	stub := fixtures.NewStubOracle("foo")
	require.NoError(t, newNATSRunner(t, cfg, stub).Run(ctx))
	assert.Equal(t, 1, stub.Calls())

	reader, err := natsclient.NewLatestReader(ctx, tc.Client, natsclient.ReaderConfig{
		Subject:     fixtures.SubjectProfiles,
		Name:        "integration-check",
		ReadTimeout: time.Second,
	})
	require.NoError(t, err)
	defer reader.Close(ctx)

	latest, err := profiler.ReadLatest(ctx, reader)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, fixtures.KuopioEventTimestamp, latest.EventTimestamp)

	var collection message.ProfileCollection
	require.NoError(t, json.Unmarshal(latest.Data, &collection))
	assert.Equal(t, fixtures.ExpectedVehicleModels(), collection.VehicleModels)

	// Second invocation reads its own output as the cache and stays quiet
	second := fixtures.NewStubOracle("bar")
	require.NoError(t, newNATSRunner(t, cfg, second).Run(ctx))
	assert.Zero(t, second.Calls())
}
