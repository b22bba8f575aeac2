package record

import (
	"gonum.org/v1/gonum/stat"

	"github.com/colsim/colsim/sim/shower"
)

// Summary aggregates statistics from a Run.
type Summary struct {
	Events           int
	MeanEventWeight  float64
	StdEventWeight   float64
	DiagnosticMeans  []float64 // per diagnostic index, over events that report it
	Histories        int
	Emissions        int
	MeanEmissions    float64
	StdEmissions     float64
	ZeroEmissionFrac float64
	MeanFirstScale   float64 // √t of the hardest emission, over radiating histories
	MeanFirstPT      float64
	Terminations     map[shower.Termination]int
}

// Summarize computes aggregate statistics from a Run.
// Safe for nil or empty runs (returns zero-value fields).
func Summarize(r *Run) *Summary {
	summary := &Summary{
		Terminations: make(map[shower.Termination]int),
	}
	if r == nil {
		return summary
	}

	summary.Events = len(r.Events)
	if len(r.Events) > 0 {
		weights := make([]float64, len(r.Events))
		var diag [][]float64
		for i, ev := range r.Events {
			weights[i] = ev.Weight
			for k, d := range ev.Diagnostics {
				if k >= len(diag) {
					diag = append(diag, nil)
				}
				diag[k] = append(diag[k], d)
			}
		}
		summary.MeanEventWeight, summary.StdEventWeight = meanStdDev(weights)
		summary.DiagnosticMeans = make([]float64, len(diag))
		for k, col := range diag {
			summary.DiagnosticMeans[k] = stat.Mean(col, nil)
		}
	}

	summary.Histories = len(r.Histories)
	if len(r.Histories) > 0 {
		counts := make([]float64, len(r.Histories))
		var firstScales, firstPTs []float64
		zero := 0
		for i, h := range r.Histories {
			summary.Terminations[h.Termination]++
			n := len(h.Emissions)
			counts[i] = float64(n)
			summary.Emissions += n
			if n == 0 {
				zero++
				continue
			}
			firstScales = append(firstScales, h.Emissions[0].Scale())
			firstPTs = append(firstPTs, h.Emissions[0].PT())
		}
		summary.MeanEmissions, summary.StdEmissions = meanStdDev(counts)
		summary.ZeroEmissionFrac = float64(zero) / float64(len(r.Histories))
		if len(firstScales) > 0 {
			summary.MeanFirstScale = stat.Mean(firstScales, nil)
			summary.MeanFirstPT = stat.Mean(firstPTs, nil)
		}
	}

	return summary
}

// meanStdDev returns the mean and unbiased standard deviation, with a zero
// deviation for a single sample.
func meanStdDev(x []float64) (mean, std float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanStdDev(x, nil)
}
