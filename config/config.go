package config

import (
	"time"
)

// Missing profile policies
const (
	// PolicyDropVehicles removes vehicles whose model has no profile.
	PolicyDropVehicles = "drop-vehicles"
	// PolicyFailCycle aborts the cycle without publishing.
	PolicyFailCycle = "fail-cycle"
)

// Config represents the complete application configuration
type Config struct {
	HealthCheck HealthCheckConfig
	Processing  ProcessingConfig
	Oracle      OracleConfig
	NATS        NATSConfig
	Producer    ProducerConfig
	CacheReader ReaderConfig
	// CatalogReaders has one entry per feed publisher.
	CatalogReaders []CatalogReaderConfig
	Logging        LoggingConfig
}

// HealthCheckConfig configures the liveness endpoint
type HealthCheckConfig struct {
	Port int
}

// ProcessingConfig configures one profiling cycle
type ProcessingConfig struct {
	// IsFreshStart skips reading the cache so every profile is recomputed.
	IsFreshStart         bool
	MissingProfilePolicy string
}

// OracleConfig names the executable that computes profiles
type OracleConfig struct {
	Command string
	Args    []string
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs            []string
	ClientName      string
	Token           string
	CredentialsFile string
	TLS             NATSTLSConfig
	Compression     bool
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	DrainTimeout    time.Duration
	// MaxReconnects is the reconnect attempt limit, -1 for no limit
	MaxReconnects int
	ReconnectWait time.Duration
	PingInterval  time.Duration
}

// NATSTLSConfig for secure NATS connections
type NATSTLSConfig struct {
	CAFile   string
	CertFile string
	KeyFile  string
}

// Enabled reports whether any TLS file is configured.
func (t NATSTLSConfig) Enabled() bool {
	return t.CAFile != "" || t.CertFile != "" || t.KeyFile != ""
}

// ProducerConfig names the subject the snapshot is published to
type ProducerConfig struct {
	Subject string
}

// ReaderConfig configures a latest-message reader
type ReaderConfig struct {
	Subject string
	Name    string
}

// CatalogReaderConfig configures the reader of one feed publisher
type CatalogReaderConfig struct {
	FeedPublisherID string `json:"feedPublisherId"`
	Subject         string `json:"subject"`
	Name            string `json:"name"`
}

// LoggingConfig configures the slog logger
type LoggingConfig struct {
	Level  string
	Format string
}
