package profiler

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waltti/apcprofiler/logging"
	"github.com/waltti/apcprofiler/message"
	"github.com/waltti/apcprofiler/schema"
	"github.com/waltti/apcprofiler/testutil"
)

func newTestLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Output: &buf})
	require.NoError(t, err)
	return logger, &buf
}

type logLine map[string]any

func logLines(t *testing.T, buf *bytes.Buffer) []logLine {
	t.Helper()
	var lines []logLine
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var line logLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	return lines
}

func linesWithLevel(lines []logLine, level string) []logLine {
	var out []logLine
	for _, l := range lines {
		if l["level"] == level {
			out = append(out, l)
		}
	}
	return out
}

func newTestValidator(t *testing.T) *schema.Validator {
	t.Helper()
	v, err := schema.NewValidator()
	require.NoError(t, err)
	return v
}

func decodeCatalog(t *testing.T, v *schema.Validator, data string) message.VehicleAPCMapping {
	t.Helper()
	catalog, ok := v.Validate(schema.KindVehicleAPCMapping, []byte(data)).Catalog()
	require.True(t, ok)
	return catalog
}

func fixtureFeeds(t *testing.T) []FeedCatalog {
	t.Helper()
	v := newTestValidator(t)
	kuopio := testutil.KuopioEnvelope()
	jyvaskyla := testutil.JyvaskylaEnvelope()
	return []FeedCatalog{
		{
			FeedPublisherID: testutil.FeedKuopio,
			Subject:         kuopio.Subject,
			Envelope:        kuopio,
			Vehicles:        decodeCatalog(t, v, testutil.KuopioCatalog),
			Valid:           true,
		},
		{
			FeedPublisherID: testutil.FeedJyvaskyla,
			Subject:         jyvaskyla.Subject,
			Envelope:        jyvaskyla,
			Vehicles:        decodeCatalog(t, v, testutil.JyvaskylaCatalog),
			Valid:           true,
		},
	}
}

func intPtr(n int) *int { return &n }

func apcVehicle(op, short string, seating, standing int) message.Vehicle {
	return message.Vehicle{
		OperatorID:       op,
		VehicleShortName: short,
		SeatingCapacity:  intPtr(seating),
		StandingCapacity: intPtr(standing),
		Equipment:        []message.Equipment{{Type: message.PassengerCounterType}},
	}
}

func modelsAsStrings(m map[VehicleKey]CapacityModel) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = v.String()
	}
	return out
}
