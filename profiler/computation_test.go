package profiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waltti/apcprofiler/errors"
	"github.com/waltti/apcprofiler/oracle"
	"github.com/waltti/apcprofiler/testutil"
)

func TestBuildRequest(t *testing.T) {
	req := BuildRequest("/work", []CapacityModel{{39, 38}, {49, 77}})

	assert.Equal(t, oracle.ConfigurationVersion, req.ConfigurationVersion)
	assert.Equal(t, "/work", req.OutputDirectory)
	assert.Equal(t, oracle.MechanismSimple, req.Inference.Mechanism)
	require.Len(t, req.VehicleModels, 2)
	assert.Equal(t, "39-38.csv", req.VehicleModels[0].OutputFilename)
	assert.Equal(t, 126, req.VehicleModels[1].MaximumCount)
	assert.Equal(t, 110, req.VehicleModels[1].MinimumCounts.Full)
}

func TestOrchestrator_Compute(t *testing.T) {
	logger, _ := newTestLogger(t)
	stub := testutil.NewStubOracle("foo")
	base := t.TempDir()

	models := []CapacityModel{{39, 38}, {49, 68}, {49, 77}}
	profiles, err := NewOrchestrator(stub, base, logger, nil).Compute(context.Background(), models)

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"39-38": "foo", "49-68": "foo", "49-77": "foo"}, profiles)
	assert.Equal(t, 1, stub.Calls(), "one oracle call per batch")
	require.Len(t, stub.Requests()[0].VehicleModels, 3)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries, "working directory is removed")
}

func TestOrchestrator_NoModels(t *testing.T) {
	stub := testutil.NewStubOracle("foo")
	profiles, err := NewOrchestrator(stub, t.TempDir(), nil, nil).Compute(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.Zero(t, stub.Calls())
}

func TestOrchestrator_SkipsUnexpectedEntries(t *testing.T) {
	logger, buf := newTestLogger(t)

	o := oracle.Func(func(_ context.Context, req oracle.Request) error {
		dir := req.OutputDirectory
		files := map[string]string{
			"49-77.csv":  "profile",
			"39-38.csv":  string([]byte{0xff, 0xfe}),
			"1-1.csv":    "not requested",
			"notes.txt":  "hello",
			"49-77.json": "{}",
		}
		for name, content := range files {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
				return err
			}
		}
		return os.Mkdir(filepath.Join(dir, "49-68.csv"), 0o700)
	})

	profiles, err := NewOrchestrator(o, t.TempDir(), logger, nil).
		Compute(context.Background(), []CapacityModel{{39, 38}, {49, 68}, {49, 77}})

	require.NoError(t, err, "partial results are not an error")
	assert.Equal(t, map[string]string{"49-77": "profile"}, profiles)

	errorsLogged := linesWithLevel(logLines(t, buf), "ERROR")
	var messages []string
	for _, l := range errorsLogged {
		messages = append(messages, l["msg"].(string))
	}
	assert.Contains(t, messages, "The CSV file does not match any model we asked for")
	assert.Contains(t, messages, "Something else than a CSV file was unexpectedly found in the directory")
	assert.Contains(t, messages, "The CSV file is not valid UTF-8")
	assert.Contains(t, messages, "The profile computation did not produce a profile for every requested model")
}

func TestOrchestrator_OracleFailureIsFatal(t *testing.T) {
	base := t.TempDir()
	var workDir string
	o := oracle.Func(func(_ context.Context, req oracle.Request) error {
		workDir = req.OutputDirectory
		return fmt.Errorf("out of memory")
	})

	_, err := NewOrchestrator(o, base, nil, nil).Compute(context.Background(), []CapacityModel{{1, 2}})

	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.ErrorIs(t, err, errors.ErrOracleFailed)
	assert.NoDirExists(t, workDir, "working directory is removed on failure")
}

func TestOrchestrator_KeepsOracleSentinel(t *testing.T) {
	o := oracle.Func(func(context.Context, oracle.Request) error {
		return errors.WrapFatal(errors.ErrOracleFailed, "OracleCommand", "Compute", "run")
	})

	_, err := NewOrchestrator(o, t.TempDir(), nil, nil).Compute(context.Background(), []CapacityModel{{1, 2}})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrOracleFailed)
}
