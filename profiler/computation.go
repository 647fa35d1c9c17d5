package profiler

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/metric"
	"github.com/waltti/apcprofiler/oracle"
)

// Orchestrator runs one batched oracle call in a private working directory
// and reads the produced profiles back.
type Orchestrator struct {
	oracle  oracle.Oracle
	baseDir string
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewOrchestrator creates an Orchestrator. Working directories are created
// under baseDir, or the system temporary directory when baseDir is empty.
func NewOrchestrator(o oracle.Oracle, baseDir string, logger *slog.Logger, metrics *metric.Metrics) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{oracle: o, baseDir: baseDir, logger: logger, metrics: metrics}
}

// BuildRequest builds the oracle request for models, in the given order
func BuildRequest(dir string, models []CapacityModel) oracle.Request {
	entries := make([]oracle.VehicleModel, len(models))
	for i, m := range models {
		entries[i] = VehicleModelRequest(m)
	}
	return oracle.NewRequest(dir, entries)
}

// Compute asks the oracle for the profiles of models and returns the ones it
// produced, keyed by model string. Models without an output file are absent
// from the result. An oracle error is fatal.
func (o *Orchestrator) Compute(ctx context.Context, models []CapacityModel) (map[string]string, error) {
	if len(models) == 0 {
		return map[string]string{}, nil
	}

	dir, err := os.MkdirTemp(o.baseDir, "apcprofiler-")
	if err != nil {
		return nil, errors.WrapFatal(err, "Orchestrator", "Compute", "create working directory")
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			o.logger.Warn("Could not remove the working directory", "directory", dir, "error", err)
		}
	}()

	req := BuildRequest(dir, models)
	o.logger.DebugContext(ctx, "Created a configuration for profile computation",
		"tmpDir", dir,
		"computationConfiguration", req)
	o.logger.InfoContext(ctx,
		"Create anonymization profiles for the new vehicle models. This is going to take a while.",
		"models", modelStrings(models))

	start := time.Now()
	if err := o.oracle.Compute(ctx, req); err != nil {
		if !stderrors.Is(err, errors.ErrOracleFailed) {
			err = fmt.Errorf("%w: %w", errors.ErrOracleFailed, err)
		}
		return nil, errors.WrapFatal(err, "Orchestrator", "Compute", "run oracle")
	}
	elapsed := time.Since(start)
	o.logger.InfoContext(ctx, "Computing new anonymization profiles has finished", "duration", elapsed.String())

	profiles, err := o.readProfiles(ctx, dir, models)
	if err != nil {
		return nil, err
	}

	var absent []string
	for _, m := range models {
		if _, ok := profiles[m.String()]; !ok {
			absent = append(absent, m.String())
		}
	}
	if len(absent) > 0 {
		o.logger.ErrorContext(ctx, "The profile computation did not produce a profile for every requested model",
			"absentModels", absent)
	}
	o.metrics.RecordOracleRun(elapsed, len(profiles), len(absent))
	return profiles, nil
}

// readProfiles reads the profile files of the requested models from dir.
// Anything else found in dir is logged and skipped.
func (o *Orchestrator) readProfiles(ctx context.Context, dir string, models []CapacityModel) (map[string]string, error) {
	requested := make(map[string]struct{}, len(models))
	for _, m := range models {
		requested[m.String()] = struct{}{}
	}

	// ReadDir returns entries sorted by name
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapFatal(err, "Orchestrator", "readProfiles", "list working directory")
	}

	profiles := make(map[string]string, len(models))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !entry.Type().IsRegular() || filepath.Ext(entry.Name()) != ".csv" {
			o.logger.ErrorContext(ctx, "Something else than a CSV file was unexpectedly found in the directory",
				"directory", dir,
				"filePath", path)
			continue
		}

		stem := strings.TrimSuffix(entry.Name(), ".csv")
		if _, ok := requested[stem]; !ok {
			o.logger.ErrorContext(ctx, "The CSV file does not match any model we asked for",
				"csvFile", path,
				"models", modelStrings(models))
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			o.logger.ErrorContext(ctx, "Could not read the CSV file", "csvFile", path, "error", err)
			continue
		}
		if !utf8.Valid(data) {
			o.logger.ErrorContext(ctx, "The CSV file is not valid UTF-8", "csvFile", path)
			continue
		}
		profiles[stem] = string(data)
	}
	return profiles, nil
}
