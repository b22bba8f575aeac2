// Package rootfind solves scalar equations f(x) = 0.
// This package has no dependencies on sim/; every call is independent and
// side-effect-free besides evaluating f.
package rootfind

import (
	"errors"
	"fmt"
	"math"
)

// Func is a scalar function of one variable. Parameters are captured by closure.
type Func func(x float64) float64

// Status describes how a solve ended.
type Status string

const (
	// Converged means the tolerance was met.
	Converged Status = "converged"
	// NoSignChange means neither half of the bracket showed a sign change.
	NoSignChange Status = "no_sign_change"
	// MaxIterations means the iteration cap was reached first.
	MaxIterations Status = "max_iterations"
	// InvalidBracket means the bracket or options were unusable.
	InvalidBracket Status = "invalid_bracket"
	// ZeroDerivative means Newton-Raphson hit a flat or non-finite slope.
	ZeroDerivative Status = "zero_derivative"
)

// Sentinel errors matching the non-converged statuses.
var (
	ErrNoSignChange   = errors.New("rootfind: no sign change in bracket")
	ErrNotConverged   = errors.New("rootfind: iteration cap reached before tolerance")
	ErrInvalidBracket = errors.New("rootfind: invalid bracket or options")
	ErrZeroDerivative = errors.New("rootfind: zero derivative")
)

// Result carries the best estimate of a solve. It is populated even when the
// accompanying error is non-nil.
type Result struct {
	Root       float64
	Residual   float64 // f(Root)
	Iterations int
	Status     Status
}

// OK reports whether the solve converged.
func (r Result) OK() bool {
	return r.Status == Converged
}

// BisectionOptions controls Bisection.
type BisectionOptions struct {
	Tolerance     float64 // stop once hi - lo < Tolerance
	MaxIterations int
}

// NewtonOptions controls NewtonRaphson.
type NewtonOptions struct {
	Step          float64 // symmetric finite-difference step for f'
	Precision     float64 // stop once |f(x)| <= Precision
	MaxIterations int
}

// Bisection halves [lo, hi] toward the sign change of f until the bracket is
// narrower than opts.Tolerance. If neither half brackets a sign change the
// solve stops early with NoSignChange and the midpoint of the last bracket.
func Bisection(f Func, lo, hi float64, opts BisectionOptions) (Result, error) {
	if f == nil || !isFinite(lo) || !isFinite(hi) || lo >= hi {
		return Result{Root: lo, Status: InvalidBracket},
			fmt.Errorf("%w: bracket [%v, %v]", ErrInvalidBracket, lo, hi)
	}
	if !(opts.Tolerance > 0) || opts.MaxIterations <= 0 {
		return Result{Root: lo, Status: InvalidBracket},
			fmt.Errorf("%w: tolerance %v, max iterations %d", ErrInvalidBracket, opts.Tolerance, opts.MaxIterations)
	}

	flo, fhi := f(lo), f(hi)
	if flo == 0 {
		return Result{Root: lo, Status: Converged}, nil
	}
	if fhi == 0 {
		return Result{Root: hi, Status: Converged}, nil
	}

	for i := 1; i <= opts.MaxIterations; i++ {
		mid := lo + 0.5*(hi-lo)
		fmid := f(mid)
		if fmid == 0 {
			return Result{Root: mid, Iterations: i, Status: Converged}, nil
		}
		switch {
		case oppositeSigns(flo, fmid):
			hi, fhi = mid, fmid
		case oppositeSigns(fmid, fhi):
			lo, flo = mid, fmid
		default:
			return Result{Root: mid, Residual: fmid, Iterations: i, Status: NoSignChange},
				fmt.Errorf("%w: f(%v)=%v f(%v)=%v f(%v)=%v", ErrNoSignChange, lo, flo, mid, fmid, hi, fhi)
		}
		if hi-lo < opts.Tolerance {
			root := lo + 0.5*(hi-lo)
			return Result{Root: root, Residual: f(root), Iterations: i, Status: Converged}, nil
		}
	}

	root := lo + 0.5*(hi-lo)
	return Result{Root: root, Residual: f(root), Iterations: opts.MaxIterations, Status: MaxIterations},
		fmt.Errorf("%w: bracket width %v after %d iterations", ErrNotConverged, hi-lo, opts.MaxIterations)
}

// NewtonRaphson iterates x <- x - f(x)/f'(x) from x0, with f' taken as a
// symmetric finite difference, until |f(x)| <= opts.Precision.
func NewtonRaphson(f Func, x0 float64, opts NewtonOptions) (Result, error) {
	if f == nil || !isFinite(x0) || !(opts.Step > 0) || !(opts.Precision > 0) || opts.MaxIterations <= 0 {
		return Result{Root: x0, Status: InvalidBracket},
			fmt.Errorf("%w: x0 %v, step %v, precision %v, max iterations %d",
				ErrInvalidBracket, x0, opts.Step, opts.Precision, opts.MaxIterations)
	}

	x := x0
	fx := f(x)
	for i := 0; i < opts.MaxIterations; i++ {
		if math.Abs(fx) <= opts.Precision {
			return Result{Root: x, Residual: fx, Iterations: i, Status: Converged}, nil
		}
		df := (f(x+opts.Step) - f(x-opts.Step)) / (2 * opts.Step)
		if df == 0 || !isFinite(df) {
			return Result{Root: x, Residual: fx, Iterations: i, Status: ZeroDerivative},
				fmt.Errorf("%w: f'(%v) = %v", ErrZeroDerivative, x, df)
		}
		x -= fx / df
		fx = f(x)
	}
	if math.Abs(fx) <= opts.Precision {
		return Result{Root: x, Residual: fx, Iterations: opts.MaxIterations, Status: Converged}, nil
	}
	return Result{Root: x, Residual: fx, Iterations: opts.MaxIterations, Status: MaxIterations},
		fmt.Errorf("%w: |f(%v)| = %v after %d iterations", ErrNotConverged, x, math.Abs(fx), opts.MaxIterations)
}

func oppositeSigns(a, b float64) bool {
	return (a < 0 && b > 0) || (a > 0 && b < 0)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
