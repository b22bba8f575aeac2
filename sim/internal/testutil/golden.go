// Package testutil provides shared test infrastructure for the colsim
// packages: the golden integral dataset and float assertion helpers.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// IntegralDataset represents the structure of testdata/integrals.json.
type IntegralDataset struct {
	Cases []IntegralCase `json:"cases"`
}

// IntegralCase is one integrand with a closed-form value over a box.
type IntegralCase struct {
	Name        string    `json:"name"`
	Integrand   string    `json:"integrand"` // key into Integrands
	Min         []float64 `json:"min"`
	Max         []float64 `json:"max"`
	Expected    float64   `json:"expected"`
	Seed        int64     `json:"seed"`
	Evaluations int64     `json:"evaluations"`
	RelTol      float64   `json:"rel_tol"`
}

// Integrands maps the dataset's integrand keys to their definitions.
var Integrands = map[string]func(x []float64) float64{
	"two_x": func(x []float64) float64 { return 2 * x[0] },
	"four_over_one_plus_x2": func(x []float64) float64 {
		return 4 / (1 + x[0]*x[0])
	},
	"sin": func(x []float64) float64 { return math.Sin(x[0]) },
	"gaussian": func(x []float64) float64 {
		return math.Exp(-(x[0]*x[0] + x[1]*x[1]))
	},
	"unit_ball": func(x []float64) float64 {
		if x[0]*x[0]+x[1]*x[1]+x[2]*x[2] < 1 {
			return 1
		}
		return 0
	},
}

// LoadIntegralDataset loads the golden integrals from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadIntegralDataset(t *testing.T) *IntegralDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "integrals.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read integral dataset: %v", err)
	}

	var dataset IntegralDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse integral dataset: %v", err)
	}
	for _, c := range dataset.Cases {
		if _, ok := Integrands[c.Integrand]; !ok {
			t.Fatalf("case %q: unknown integrand %q", c.Name, c.Integrand)
		}
		if len(c.Min) != len(c.Max) {
			t.Fatalf("case %q: %d lower bounds, %d upper bounds", c.Name, len(c.Min), len(c.Max))
		}
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
