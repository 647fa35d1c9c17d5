package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/waltti/apcprofiler/errors"
)

// rawEnv holds raw env values before mapping onto Config.
type rawEnv struct {
	HealthCheckPort      int    `env:"HEALTH_CHECK_PORT"      envDefault:"8080"`
	IsFreshStart         bool   `env:"IS_FRESH_START"         envDefault:"false"`
	MissingProfilePolicy string `env:"MISSING_PROFILE_POLICY" envDefault:"drop-vehicles"`

	OracleCommand string   `env:"ORACLE_COMMAND"`
	OracleArgs    []string `env:"ORACLE_ARGS"    envSeparator:","`

	NATSURLs            []string      `env:"NATS_URL"              envDefault:"nats://localhost:4222" envSeparator:","`
	NATSClientName      string        `env:"NATS_CLIENT_NAME"      envDefault:"apcprofiler"`
	NATSToken           string        `env:"NATS_TOKEN"`
	NATSCredentialsFile string        `env:"NATS_CREDENTIALS_FILE"`
	NATSTLSCAFile       string        `env:"NATS_TLS_CA_FILE"`
	NATSTLSCertFile     string        `env:"NATS_TLS_CERT_FILE"`
	NATSTLSKeyFile      string        `env:"NATS_TLS_KEY_FILE"`
	NATSCompression     bool          `env:"NATS_COMPRESSION"      envDefault:"true"`
	NATSConnectTimeout  time.Duration `env:"NATS_CONNECT_TIMEOUT"  envDefault:"10s"`
	NATSReadTimeout     time.Duration `env:"NATS_READ_TIMEOUT"     envDefault:"5s"`
	NATSDrainTimeout    time.Duration `env:"NATS_DRAIN_TIMEOUT"    envDefault:"30s"`
	NATSMaxReconnects   int           `env:"NATS_MAX_RECONNECTS"   envDefault:"5"`
	NATSReconnectWait   time.Duration `env:"NATS_RECONNECT_WAIT"   envDefault:"2s"`
	NATSPingInterval    time.Duration `env:"NATS_PING_INTERVAL"    envDefault:"30s"`

	ProducerSubject    string `env:"PRODUCER_SUBJECT"`
	CacheReaderName    string `env:"CACHE_READER_NAME"`
	CatalogReadersJSON string `env:"CATALOG_READERS"`
	LogLevel           string `env:"LOG_LEVEL"`
	PinoLogLevel       string `env:"PINO_LOG_LEVEL"`
	LogFormat          string `env:"LOG_FORMAT"        envDefault:"json"`
}

// Load parses configuration from environ, or from the process environment
// when environ is nil, and validates it.
func Load(environ map[string]string) (*Config, error) {
	var raw rawEnv
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err), "Config", "Load", "parse env")
	}

	cfg, err := raw.toConfig()
	if err != nil {
		return nil, errors.WrapFatal(err, "Config", "Load", "map env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapFatal(err, "Config", "Load", "validate")
	}
	return cfg, nil
}

func (raw rawEnv) toConfig() (*Config, error) {
	cfg := &Config{
		HealthCheck: HealthCheckConfig{Port: raw.HealthCheckPort},
		Processing: ProcessingConfig{
			IsFreshStart:         raw.IsFreshStart,
			MissingProfilePolicy: strings.TrimSpace(raw.MissingProfilePolicy),
		},
		Oracle: OracleConfig{
			Command: strings.TrimSpace(raw.OracleCommand),
			Args:    raw.OracleArgs,
		},
		NATS: NATSConfig{
			URLs:            trimAll(raw.NATSURLs),
			ClientName:      raw.NATSClientName,
			Token:           raw.NATSToken,
			CredentialsFile: raw.NATSCredentialsFile,
			TLS: NATSTLSConfig{
				CAFile:   raw.NATSTLSCAFile,
				CertFile: raw.NATSTLSCertFile,
				KeyFile:  raw.NATSTLSKeyFile,
			},
			Compression:    raw.NATSCompression,
			ConnectTimeout: raw.NATSConnectTimeout,
			ReadTimeout:    raw.NATSReadTimeout,
			DrainTimeout:   raw.NATSDrainTimeout,
			MaxReconnects:  raw.NATSMaxReconnects,
			ReconnectWait:  raw.NATSReconnectWait,
			PingInterval:   raw.NATSPingInterval,
		},
		Producer: ProducerConfig{Subject: strings.TrimSpace(raw.ProducerSubject)},
		// The cache is this service's own output.
		CacheReader: ReaderConfig{
			Subject: strings.TrimSpace(raw.ProducerSubject),
			Name:    strings.TrimSpace(raw.CacheReaderName),
		},
		Logging: LoggingConfig{
			Level:  firstNonEmpty(raw.LogLevel, raw.PinoLogLevel, "info"),
			Format: raw.LogFormat,
		},
	}

	if strings.TrimSpace(raw.CatalogReadersJSON) != "" {
		if err := json.Unmarshal([]byte(raw.CatalogReadersJSON), &cfg.CatalogReaders); err != nil {
			return nil, fmt.Errorf("%w: CATALOG_READERS is not a JSON list of readers: %v", errors.ErrInvalidConfig, err)
		}
	}
	return cfg, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
