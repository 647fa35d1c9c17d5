package main

import (
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"--env-file=local.env", "--validate"})
	require.NoError(t, err)
	assert.Equal(t, "local.env", cfg.EnvFile)
	assert.True(t, cfg.Validate)
	assert.False(t, cfg.ShowVersion)

	cfg, err = parseFlags([]string{"-v"})
	require.NoError(t, err)
	assert.True(t, cfg.ShowVersion)
}

func TestParseFlags_EnvFallback(t *testing.T) {
	t.Setenv("APCPROFILER_ENV_FILE", "/etc/apcprofiler/env")
	cfg, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "/etc/apcprofiler/env", cfg.EnvFile)
}

func TestParseFlags_Rejects(t *testing.T) {
	_, err := parseFlags([]string{"--config=x.json"})
	require.Error(t, err)

	_, err = parseFlags([]string{"extra"})
	require.Error(t, err)
}

func TestSignalExitCode(t *testing.T) {
	tests := []struct {
		sig      os.Signal
		expected int
	}{
		{syscall.SIGINT, 130},
		{syscall.SIGQUIT, 131},
		{syscall.SIGTERM, 143},
		{os.Interrupt, 130},
	}
	for _, test := range tests {
		t.Run(test.sig.String(), func(t *testing.T) {
			assert.Equal(t, test.expected, signalExitCode(test.sig))
		})
	}
}

func TestRun_VersionAndHelp(t *testing.T) {
	assert.Equal(t, exitSuccess, run([]string{"--version"}))
	assert.Equal(t, exitSuccess, run([]string{"--help"}))
}

func TestRun_InvalidConfiguration(t *testing.T) {
	t.Setenv("PRODUCER_SUBJECT", "")
	t.Setenv("CATALOG_READERS", "")
	t.Setenv("LOG_LEVEL", "silent")
	assert.Equal(t, exitFailure, run(nil))
}

func TestRun_MissingEnvFile(t *testing.T) {
	assert.Equal(t, exitFailure, run([]string{"--env-file=" + t.TempDir() + "/missing.env"}))
}

func TestRun_ValidateOnly(t *testing.T) {
	envFile := t.TempDir() + "/apcprofiler.env"
	require.NoError(t, os.WriteFile(envFile, []byte(`PRODUCER_SUBJECT=apc.profiles
CACHE_READER_NAME=apcprofiler-cache
CATALOG_READERS='[{"feedPublisherId":"fi:kuopio","subject":"catalogue.fi.kuopio","name":"apcprofiler-kuopio"}]'
ORACLE_COMMAND=/usr/local/bin/apc-oracle
LOG_LEVEL=silent
`), 0o600))
	for _, key := range []string{"PRODUCER_SUBJECT", "CACHE_READER_NAME", "CATALOG_READERS", "ORACLE_COMMAND", "LOG_LEVEL", "PINO_LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	assert.Equal(t, exitSuccess, run([]string{"--env-file=" + envFile, "--validate"}))
}
