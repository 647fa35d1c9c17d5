package config

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/logging"
)

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.HealthCheck.Port < 1 || c.HealthCheck.Port > 65535 {
		return fmt.Errorf("%w: HEALTH_CHECK_PORT must be between 1 and 65535, got %d",
			errors.ErrInvalidConfig, c.HealthCheck.Port)
	}

	switch c.Processing.MissingProfilePolicy {
	case PolicyDropVehicles, PolicyFailCycle:
	default:
		return fmt.Errorf("%w: MISSING_PROFILE_POLICY must be %s or %s, got %q",
			errors.ErrInvalidConfig, PolicyDropVehicles, PolicyFailCycle, c.Processing.MissingProfilePolicy)
	}

	if c.Oracle.Command == "" {
		return fmt.Errorf("%w: ORACLE_COMMAND is required", errors.ErrMissingConfig)
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	if c.Producer.Subject == "" {
		return fmt.Errorf("%w: PRODUCER_SUBJECT is required", errors.ErrMissingConfig)
	}
	if !isValidSubject(c.Producer.Subject) {
		return fmt.Errorf("%w: PRODUCER_SUBJECT %q is not a valid NATS subject without wildcards",
			errors.ErrInvalidConfig, c.Producer.Subject)
	}
	if c.CacheReader.Name == "" {
		return fmt.Errorf("%w: CACHE_READER_NAME is required", errors.ErrMissingConfig)
	}

	if err := c.validateCatalogReaders(); err != nil {
		return err
	}

	if _, _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: LOG_LEVEL: %v", errors.ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatJSON, logging.FormatText:
	default:
		return fmt.Errorf("%w: LOG_FORMAT must be json or text, got %q", errors.ErrInvalidConfig, c.Logging.Format)
	}

	return nil
}

func (c *Config) validateNATS() error {
	if len(c.NATS.URLs) == 0 {
		return fmt.Errorf("%w: NATS_URL is required", errors.ErrMissingConfig)
	}
	if c.NATS.ConnectTimeout <= 0 || c.NATS.ReadTimeout <= 0 || c.NATS.DrainTimeout <= 0 {
		return fmt.Errorf("%w: NATS timeouts must be positive", errors.ErrInvalidConfig)
	}
	if c.NATS.MaxReconnects < -1 {
		return fmt.Errorf("%w: NATS_MAX_RECONNECTS must be -1 or more, got %d", errors.ErrInvalidConfig, c.NATS.MaxReconnects)
	}
	if c.NATS.ReconnectWait < 0 {
		return fmt.Errorf("%w: NATS_RECONNECT_WAIT must not be negative", errors.ErrInvalidConfig)
	}
	if c.NATS.PingInterval <= 0 {
		return fmt.Errorf("%w: NATS_PING_INTERVAL must be positive", errors.ErrInvalidConfig)
	}
	if c.NATS.Token != "" && c.NATS.CredentialsFile != "" {
		return fmt.Errorf("%w: set only one of NATS_TOKEN and NATS_CREDENTIALS_FILE", errors.ErrInvalidConfig)
	}
	if c.NATS.CredentialsFile != "" {
		if _, err := os.Stat(c.NATS.CredentialsFile); err != nil {
			return fmt.Errorf("%w: NATS_CREDENTIALS_FILE: %v", errors.ErrInvalidConfig, err)
		}
	}

	tls := c.NATS.TLS
	if (tls.CertFile == "") != (tls.KeyFile == "") {
		return fmt.Errorf("%w: NATS_TLS_CERT_FILE and NATS_TLS_KEY_FILE must be set together", errors.ErrInvalidConfig)
	}
	for _, file := range []struct{ name, path string }{
		{"NATS_TLS_CA_FILE", tls.CAFile},
		{"NATS_TLS_CERT_FILE", tls.CertFile},
		{"NATS_TLS_KEY_FILE", tls.KeyFile},
	} {
		if file.path == "" {
			continue
		}
		if _, err := os.Stat(file.path); err != nil {
			return fmt.Errorf("%w: %s: %v", errors.ErrInvalidConfig, file.name, err)
		}
	}
	return nil
}

func (c *Config) validateCatalogReaders() error {
	if len(c.CatalogReaders) == 0 {
		return fmt.Errorf("%w: CATALOG_READERS must list at least one reader", errors.ErrMissingConfig)
	}

	feeds := make(map[string]struct{}, len(c.CatalogReaders))
	names := map[string]struct{}{c.CacheReader.Name: {}}
	for i, reader := range c.CatalogReaders {
		switch {
		case reader.FeedPublisherID == "":
			return fmt.Errorf("%w: CATALOG_READERS[%d].feedPublisherId is required", errors.ErrMissingConfig, i)
		case reader.Subject == "":
			return fmt.Errorf("%w: CATALOG_READERS[%d].subject is required", errors.ErrMissingConfig, i)
		case reader.Name == "":
			return fmt.Errorf("%w: CATALOG_READERS[%d].name is required", errors.ErrMissingConfig, i)
		}
		if !isValidSubject(reader.Subject) {
			return fmt.Errorf("%w: CATALOG_READERS[%d].subject %q is not a valid NATS subject without wildcards",
				errors.ErrInvalidConfig, i, reader.Subject)
		}
		if reader.Subject == c.Producer.Subject {
			return fmt.Errorf("%w: CATALOG_READERS[%d].subject must differ from PRODUCER_SUBJECT",
				errors.ErrInvalidConfig, i)
		}
		if _, dup := feeds[reader.FeedPublisherID]; dup {
			return fmt.Errorf("%w: feed publisher %q is listed twice in CATALOG_READERS",
				errors.ErrInvalidConfig, reader.FeedPublisherID)
		}
		feeds[reader.FeedPublisherID] = struct{}{}
		if _, dup := names[reader.Name]; dup {
			return fmt.Errorf("%w: reader name %q is used twice", errors.ErrInvalidConfig, reader.Name)
		}
		names[reader.Name] = struct{}{}
	}
	return nil
}

// isValidSubject checks that s is a literal NATS subject: dot-separated
// non-empty tokens of letters, digits, dashes, underscores and colons.
func isValidSubject(s string) bool {
	if s == "" {
		return false
	}
	for _, token := range strings.Split(s, ".") {
		if token == "" {
			return false
		}
		for _, r := range token {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
				r != '-' && r != '_' && r != ':' {
				return false
			}
		}
	}
	return true
}
