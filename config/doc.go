// Package config loads the profiler configuration from environment variables.
//
// Variables are parsed with github.com/caarlos0/env into a raw struct and
// then mapped onto Config, which carries typed values only. CATALOG_READERS
// is a JSON list naming one reader per feed publisher:
//
//	CATALOG_READERS='[{"feedPublisherId":"fi:kuopio","subject":"catalogue.fi.kuopio","name":"apcprofiler-kuopio"}]'
//
// Basic usage:
//
//	cfg, err := config.Load(nil) // nil reads the process environment
//	if err != nil {
//		return err
//	}
//
// Load validates the result; Validate can be called again after a caller
// changes fields by hand, as tests do.
package config
