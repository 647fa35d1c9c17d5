package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	EnvFile     string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags(args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EnvFile, "env-file",
		getEnv("APCPROFILER_ENV_FILE", ""),
		"Load environment variables from a .env file (env: APCPROFILER_ENV_FILE)")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - APC capacity profile computation

Usage: %s [options]

Options:
  --env-file=PATH   Load environment variables from a .env file
  --validate        Validate configuration and exit
  -v, --version     Show version information
  -h, --help        Show help information

Configuration is read from the environment:
  NATS_URL, PRODUCER_SUBJECT, CACHE_READER_NAME, CATALOG_READERS,
  ORACLE_COMMAND, ORACLE_ARGS, HEALTH_CHECK_PORT, IS_FRESH_START,
  MISSING_PROFILE_POLICY, LOG_LEVEL, LOG_FORMAT

Examples:
  # Run one invocation with a local env file
  %s --env-file=.env

  # Validate configuration only
  %s --validate

Version: %s
Build: %s
`, appName, os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
