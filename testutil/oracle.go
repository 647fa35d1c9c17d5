package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/waltti/apcprofiler/oracle"
)

// StubOracle writes Content into every requested output file
type StubOracle struct {
	mu       sync.Mutex
	Content  string
	Skip     map[string]bool   // output filenames left unwritten
	Extra    map[string]string // additional files to write, by name
	Err      error             // returned after writing, when set
	requests []oracle.Request
}

// NewStubOracle creates a StubOracle writing content
func NewStubOracle(content string) *StubOracle {
	return &StubOracle{Content: content}
}

// Compute implements oracle.Oracle
func (o *StubOracle) Compute(_ context.Context, req oracle.Request) error {
	o.mu.Lock()
	o.requests = append(o.requests, req)
	o.mu.Unlock()

	for _, m := range req.VehicleModels {
		if o.Skip[m.OutputFilename] {
			continue
		}
		if err := os.WriteFile(filepath.Join(req.OutputDirectory, m.OutputFilename), []byte(o.Content), 0o600); err != nil {
			return err
		}
	}
	for name, content := range o.Extra {
		if err := os.WriteFile(filepath.Join(req.OutputDirectory, name), []byte(content), 0o600); err != nil {
			return err
		}
	}
	return o.Err
}

// Requests returns every request received
func (o *StubOracle) Requests() []oracle.Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]oracle.Request(nil), o.requests...)
}

// Calls returns the number of Compute calls
func (o *StubOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.requests)
}
