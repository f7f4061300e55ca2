// Package testutil provides shared test infrastructure for the qnetsim
// packages. It consolidates fixture lookup, golden dataset types and
// assertion helpers used across sim/ sub-package tests. It does not import
// sim, so any package may use it.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one scenario run with its expected outcome.
type GoldenTestCase struct {
	Name     string        `json:"name"`
	Scenario string        `json:"scenario"` // relative to testdata/
	Seed     int64         `json:"seed"`
	Metrics  GoldenMetrics `json:"metrics"`
}

// GoldenMetrics represents the expected outcome of a golden test case.
type GoldenMetrics struct {
	// Exact match metrics (integers)
	Executed       int `json:"executed"`
	Failed         int `json:"failed"`
	Delivered      int `json:"delivered"`
	Secured        int `json:"secured"`
	QubitsSent     int `json:"qubits_sent"`
	KeyExchanges   int `json:"key_exchanges"`
	Swaps          int `json:"swaps"`
	FinalTick      int `json:"final_tick"`
	HopRecords     int `json:"hop_records"`

	// Deterministic floating-point metrics
	MeanHops float64 `json:"mean_hops"`
}

// TestdataDir returns the repository testdata/ directory. The path is
// resolved relative to this source file: sim/internal/testutil/ → testdata/.
func TestdataDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata")
}

// FixturePath returns the path of a file under testdata/, failing the test
// if it does not exist.
func FixturePath(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(TestdataDir(t), name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Fixture %s: %v", name, err)
	}
	return path
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()
	data, err := os.ReadFile(FixturePath(t, "goldendataset.json"))
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
