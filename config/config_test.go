package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waltti/apcprofiler/errors"
)

func minimalEnv() map[string]string {
	return map[string]string{
		"ORACLE_COMMAND":    "/usr/local/bin/apc-anonymizer",
		"PRODUCER_SUBJECT":  "apc.anonymization-profiles",
		"CACHE_READER_NAME": "apcprofiler-cache",
		"CATALOG_READERS": `[
			{"feedPublisherId":"fi:kuopio","subject":"catalogue.fi.kuopio","name":"apcprofiler-kuopio"},
			{"feedPublisherId":"fi:jyvaskyla","subject":"catalogue.fi.jyvaskyla","name":"apcprofiler-jyvaskyla"}
		]`,
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(minimalEnv())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HealthCheck.Port)
	assert.False(t, cfg.Processing.IsFreshStart)
	assert.Equal(t, PolicyDropVehicles, cfg.Processing.MissingProfilePolicy)
	assert.Equal(t, "/usr/local/bin/apc-anonymizer", cfg.Oracle.Command)
	assert.Empty(t, cfg.Oracle.Args)
	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.NATS.URLs)
	assert.Equal(t, "apcprofiler", cfg.NATS.ClientName)
	assert.True(t, cfg.NATS.Compression)
	assert.Equal(t, 10*time.Second, cfg.NATS.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.NATS.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.NATS.DrainTimeout)
	assert.Equal(t, 5, cfg.NATS.MaxReconnects)
	assert.Equal(t, 2*time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, 30*time.Second, cfg.NATS.PingInterval)
	assert.False(t, cfg.NATS.TLS.Enabled())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, "apc.anonymization-profiles", cfg.Producer.Subject)
	assert.Equal(t, ReaderConfig{Subject: "apc.anonymization-profiles", Name: "apcprofiler-cache"}, cfg.CacheReader)
	require.Len(t, cfg.CatalogReaders, 2)
	assert.Equal(t, CatalogReaderConfig{
		FeedPublisherID: "fi:kuopio",
		Subject:         "catalogue.fi.kuopio",
		Name:            "apcprofiler-kuopio",
	}, cfg.CatalogReaders[0])
}

func TestLoad_Overrides(t *testing.T) {
	environ := minimalEnv()
	environ["HEALTH_CHECK_PORT"] = "9090"
	environ["IS_FRESH_START"] = "true"
	environ["MISSING_PROFILE_POLICY"] = "fail-cycle"
	environ["ORACLE_ARGS"] = "--config,-"
	environ["NATS_URL"] = "nats://a:4222, nats://b:4222"
	environ["NATS_COMPRESSION"] = "false"
	environ["NATS_READ_TIMEOUT"] = "250ms"
	environ["NATS_MAX_RECONNECTS"] = "-1"
	environ["NATS_RECONNECT_WAIT"] = "500ms"
	environ["NATS_PING_INTERVAL"] = "1m"
	environ["LOG_FORMAT"] = "text"

	cfg, err := Load(environ)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HealthCheck.Port)
	assert.True(t, cfg.Processing.IsFreshStart)
	assert.Equal(t, PolicyFailCycle, cfg.Processing.MissingProfilePolicy)
	assert.Equal(t, []string{"--config", "-"}, cfg.Oracle.Args)
	assert.Equal(t, []string{"nats://a:4222", "nats://b:4222"}, cfg.NATS.URLs)
	assert.False(t, cfg.NATS.Compression)
	assert.Equal(t, 250*time.Millisecond, cfg.NATS.ReadTimeout)
	assert.Equal(t, -1, cfg.NATS.MaxReconnects)
	assert.Equal(t, 500*time.Millisecond, cfg.NATS.ReconnectWait)
	assert.Equal(t, time.Minute, cfg.NATS.PingInterval)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_LogLevelPrecedence(t *testing.T) {
	environ := minimalEnv()
	environ["PINO_LOG_LEVEL"] = "debug"
	cfg, err := Load(environ)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level, "PINO_LOG_LEVEL is honoured on its own")

	environ["LOG_LEVEL"] = "warn"
	cfg, err = Load(environ)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level, "LOG_LEVEL wins over PINO_LOG_LEVEL")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		missing bool
	}{
		{"missing oracle command", func(e map[string]string) { delete(e, "ORACLE_COMMAND") }, true},
		{"missing producer subject", func(e map[string]string) { delete(e, "PRODUCER_SUBJECT") }, true},
		{"missing cache reader name", func(e map[string]string) { delete(e, "CACHE_READER_NAME") }, true},
		{"missing catalog readers", func(e map[string]string) { delete(e, "CATALOG_READERS") }, true},
		{"empty catalog readers", func(e map[string]string) { e["CATALOG_READERS"] = "[]" }, true},
		{"catalog reader without name", func(e map[string]string) {
			e["CATALOG_READERS"] = `[{"feedPublisherId":"fi:kuopio","subject":"catalogue.fi.kuopio"}]`
		}, true},
		{"catalog readers not json", func(e map[string]string) { e["CATALOG_READERS"] = "fi:kuopio" }, false},
		{"duplicate feed", func(e map[string]string) {
			e["CATALOG_READERS"] = `[
				{"feedPublisherId":"fi:kuopio","subject":"catalogue.a","name":"a"},
				{"feedPublisherId":"fi:kuopio","subject":"catalogue.b","name":"b"}]`
		}, false},
		{"duplicate reader name", func(e map[string]string) {
			e["CATALOG_READERS"] = `[{"feedPublisherId":"fi:kuopio","subject":"catalogue.a","name":"apcprofiler-cache"}]`
		}, false},
		{"catalog subject equals producer subject", func(e map[string]string) {
			e["CATALOG_READERS"] = `[{"feedPublisherId":"fi:kuopio","subject":"apc.anonymization-profiles","name":"a"}]`
		}, false},
		{"wildcard subject", func(e map[string]string) { e["PRODUCER_SUBJECT"] = "apc.>" }, false},
		{"empty subject token", func(e map[string]string) { e["PRODUCER_SUBJECT"] = "apc..profiles" }, false},
		{"port out of range", func(e map[string]string) { e["HEALTH_CHECK_PORT"] = "70000" }, false},
		{"port not a number", func(e map[string]string) { e["HEALTH_CHECK_PORT"] = "http" }, false},
		{"unknown policy", func(e map[string]string) { e["MISSING_PROFILE_POLICY"] = "ignore" }, false},
		{"unknown log level", func(e map[string]string) { e["LOG_LEVEL"] = "verbose" }, false},
		{"unknown log format", func(e map[string]string) { e["LOG_FORMAT"] = "xml" }, false},
		{"zero read timeout", func(e map[string]string) { e["NATS_READ_TIMEOUT"] = "0s" }, false},
		{"max reconnects below -1", func(e map[string]string) { e["NATS_MAX_RECONNECTS"] = "-2" }, false},
		{"max reconnects not a number", func(e map[string]string) { e["NATS_MAX_RECONNECTS"] = "many" }, false},
		{"negative reconnect wait", func(e map[string]string) { e["NATS_RECONNECT_WAIT"] = "-1s" }, false},
		{"zero ping interval", func(e map[string]string) { e["NATS_PING_INTERVAL"] = "0s" }, false},
		{"token and credentials", func(e map[string]string) {
			e["NATS_TOKEN"] = "secret"
			e["NATS_CREDENTIALS_FILE"] = "/does/not/matter"
		}, false},
		{"cert without key", func(e map[string]string) { e["NATS_TLS_CERT_FILE"] = "/etc/nats/cert.pem" }, false},
		{"missing ca file", func(e map[string]string) { e["NATS_TLS_CA_FILE"] = "/does/not/exist.pem" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			environ := minimalEnv()
			tt.mutate(environ)

			_, err := Load(environ)
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err))
			if tt.missing {
				assert.ErrorIs(t, err, errors.ErrMissingConfig)
			} else {
				assert.ErrorIs(t, err, errors.ErrInvalidConfig)
			}
		})
	}
}

func TestLoad_TLSFilesExist(t *testing.T) {
	dir := t.TempDir()
	ca := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(ca, []byte("ca"), 0o600))

	environ := minimalEnv()
	environ["NATS_TLS_CA_FILE"] = ca

	cfg, err := Load(environ)
	require.NoError(t, err)
	assert.True(t, cfg.NATS.TLS.Enabled())
}

func TestLoad_TLSFileErrorsReportedInOrder(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))

	tests := []struct {
		name     string
		files    map[string]string
		reported string
	}{
		{
			name: "every file missing",
			files: map[string]string{
				"NATS_TLS_CA_FILE":   filepath.Join(dir, "missing-ca.pem"),
				"NATS_TLS_CERT_FILE": filepath.Join(dir, "missing-cert.pem"),
				"NATS_TLS_KEY_FILE":  filepath.Join(dir, "missing-key.pem"),
			},
			reported: "NATS_TLS_CA_FILE",
		},
		{
			name: "cert and key missing",
			files: map[string]string{
				"NATS_TLS_CERT_FILE": filepath.Join(dir, "missing-cert.pem"),
				"NATS_TLS_KEY_FILE":  filepath.Join(dir, "missing-key.pem"),
			},
			reported: "NATS_TLS_CERT_FILE",
		},
		{
			name: "only key missing",
			files: map[string]string{
				"NATS_TLS_CERT_FILE": cert,
				"NATS_TLS_KEY_FILE":  filepath.Join(dir, "missing-key.pem"),
			},
			reported: "NATS_TLS_KEY_FILE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// repeated loads must agree on which file is reported
			for range 20 {
				environ := minimalEnv()
				for k, v := range tt.files {
					environ[k] = v
				}
				_, err := Load(environ)
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrInvalidConfig)
				require.Contains(t, err.Error(), tt.reported+":")
			}
		})
	}
}

func TestIsValidSubject(t *testing.T) {
	valid := []string{"apc", "catalogue.fi.kuopio", "apc.anonymization-profiles", "feed.fi:kuopio", "a_b.c-d"}
	invalid := []string{"", ".", "a.", ".a", "a..b", "a.*", "a.>", "a b", "a\tb"}

	for _, s := range valid {
		assert.True(t, isValidSubject(s), s)
	}
	for _, s := range invalid {
		assert.False(t, isValidSubject(s), s)
	}
}
