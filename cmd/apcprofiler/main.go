// Package main implements the entry point for the APC profiler.
// One invocation reads the vehicle catalogues, computes the passenger count
// profiles of new capacity models, publishes the profile collection and
// exits. Scheduling is external.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/joho/godotenv"

	"github.com/waltti/apcprofiler/config"
	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/health"
	"github.com/waltti/apcprofiler/logging"
	"github.com/waltti/apcprofiler/metric"
	"github.com/waltti/apcprofiler/oracle"
	"github.com/waltti/apcprofiler/profiler"
	"github.com/waltti/apcprofiler/schema"
	"github.com/waltti/apcprofiler/service"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "apcprofiler"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitPanic   = 2
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(exitPanic)
		}
	}()

	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cliCfg, err := parseFlags(args)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid flags: %v\n", err)
		return exitFailure
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return exitSuccess
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return exitSuccess
	}

	if cliCfg.EnvFile != "" {
		if err := godotenv.Load(cliCfg.EnvFile); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "load env file %s: %v\n", cliCfg.EnvFile, err)
			return exitFailure
		}
	}

	cfg, err := config.Load(nil)
	if err != nil {
		bootstrap, _ := logging.New(logging.Options{Service: appName, Version: Version})
		logging.Fatal(context.Background(), bootstrap, "Configuration is invalid", "error", err)
		return exitFailure
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: appName,
		Version: Version,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		return exitFailure
	}
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("Configuration is valid")
		return exitSuccess
	}

	logger.Info("Starting APC profiler",
		"build_time", BuildTime,
		"is_fresh_start", cfg.Processing.IsFreshStart,
		"catalogue_readers", len(cfg.CatalogReaders))

	ctx, received, stop := notifyContext(context.Background())
	defer stop()

	err = execute(ctx, cfg, logger)

	if sig := received(); sig != nil {
		code := signalExitCode(sig)
		logger.Info("Exiting after signal", "signal", sig.String(), "exit_code", code)
		return code
	}
	if err != nil {
		logging.Fatal(ctx, logger, "Invocation failed",
			"error", err,
			"class", errors.Classify(err).String(),
			"exit_code", exitFailure)
		return exitFailure
	}

	logger.Info("Invocation finished")
	return exitSuccess
}

// execute wires the components of one invocation and runs it
func execute(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	validator, err := schema.NewValidator()
	if err != nil {
		return fmt.Errorf("create validator: %w", err)
	}

	policy, err := profiler.ParsePolicy(cfg.Processing.MissingProfilePolicy)
	if err != nil {
		return err
	}

	processor, err := profiler.NewProcessor(profiler.Config{
		Validator: validator,
		Oracle:    oracle.NewCommand(cfg.Oracle.Command, cfg.Oracle.Args, logger),
		Policy:    policy,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}

	healthServer := health.NewServer(cfg.HealthCheck.Port,
		health.WithMetricsHandler(registry.Handler()),
		health.WithLogger(logger),
		health.WithStatusCallback(metrics.RecordHealthStatus))
	if err := healthServer.Start(); err != nil {
		return err
	}
	logger.Debug("Health server listening", "addr", healthServer.Addr())

	runner := service.NewRunner(cfg,
		service.NewNATSConnector(cfg.NATS, logger, metrics),
		processor,
		healthServer,
		service.WithLogger(logger),
		service.WithMetrics(metrics))

	return runner.Run(ctx)
}
