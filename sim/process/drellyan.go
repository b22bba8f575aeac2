package process

import (
	"fmt"
	"math"

	"github.com/colsim/colsim/sim"
)

// DrellYan is p p -> γ/Z -> l⁺l⁻ at leading order.
//
// Phase space is (cosθ, ρ, r_y): ŝ = E²·tan ρ + E² maps ρ onto the invariant
// mass with transformation energy E, and the rapidity is y = (2r_y - 1)·y_max.
// The weight includes the ρ and y Jacobians and is reported in pb.
type DrellYan struct {
	ecm    float64
	s      float64
	etr2   float64
	rhoMin float64
	rhoMax float64
	pdf    PDF
}

var _ Process = (*DrellYan)(nil)

// NewDrellYan validates opts and derives the ρ range from Q_min and √S.
func NewDrellYan(opts Options) (*DrellYan, error) {
	if !(opts.ECM > 0) || math.IsInf(opts.ECM, 0) {
		return nil, fmt.Errorf("%w: centre-of-mass energy must be positive, got %v", sim.ErrConfiguration, opts.ECM)
	}
	if !(opts.MinCutoffEnergy > 0) || opts.MinCutoffEnergy >= opts.ECM {
		return nil, fmt.Errorf("%w: minimum cutoff energy must be in (0, %v), got %v",
			sim.ErrConfiguration, opts.ECM, opts.MinCutoffEnergy)
	}
	etr := opts.TransformationEnergy
	if etr == 0 {
		etr = opts.MinCutoffEnergy
	}
	if !(etr > 0) || etr >= opts.ECM {
		return nil, fmt.Errorf("%w: transformation energy must be in (0, %v), got %v",
			sim.ErrConfiguration, opts.ECM, etr)
	}
	pdf := opts.PDF
	if pdf == nil {
		pdf = LesHouchesToyPDF{}
	}
	s := opts.ECM * opts.ECM
	etr2 := etr * etr
	qmin2 := opts.MinCutoffEnergy * opts.MinCutoffEnergy
	return &DrellYan{
		ecm:    opts.ECM,
		s:      s,
		etr2:   etr2,
		rhoMin: math.Atan((qmin2 - etr2) / etr2),
		rhoMax: math.Atan((s - etr2) / etr2),
		pdf:    pdf,
	}, nil
}

func (p *DrellYan) Name() string { return "pp2zg2ll" }

func (p *DrellYan) Bounds() []sim.Bound {
	return []sim.Bound{
		{Name: "cos_theta", Min: -1, Max: 1},
		{Name: "rho", Min: p.rhoMin, Max: p.rhoMax},
		{Name: "y", Min: 0, Max: 1},
	}
}

func (p *DrellYan) DiagnosticNames() []string {
	return []string{"q", "x1"}
}

// kinematics maps a point to (ŝ, x1, x2). ok is false when the momentum
// fractions leave (0, 1].
func (p *DrellYan) kinematics(pt sim.PhaseSpacePoint) (sHat, x1, x2 float64, ok bool) {
	rho, ry := pt[1], pt[2]
	sHat = p.etr2*math.Tan(rho) + p.etr2
	if !(sHat > 0) || sHat > p.s {
		return 0, 0, 0, false
	}
	ymax := -0.5 * math.Log(sHat/p.s)
	y := (2*ry - 1) * ymax
	tau := math.Sqrt(sHat / p.s)
	x1 = tau * math.Exp(y)
	x2 = tau * math.Exp(-y)
	if x1 <= 0 || x1 > 1 || x2 <= 0 || x2 > 1 {
		return 0, 0, 0, false
	}
	return sHat, x1, x2, true
}

// Evaluate returns the hadronic weight in pb with diagnostics (Q, x1).
func (p *DrellYan) Evaluate(pt sim.PhaseSpacePoint) sim.Evaluation {
	cosTheta, rho := pt[0], pt[1]
	sHat, x1, x2, ok := p.kinematics(pt)
	if !ok {
		return sim.Invalid()
	}
	cosRho := math.Cos(rho)
	jacobian := p.etr2 / (cosRho * cosRho * p.s)
	deltaY := -math.Log(sHat / p.s)

	w := p.partonic(sHat, x1, x2, cosTheta)
	w *= jacobian * deltaY / (x1 * x2)
	return sim.Valid(w*sim.GeV2ToPb, math.Sqrt(sHat), x1)
}

// channel is one oriented partonic initial state: pid1 from beam 1 (+z),
// pid2 from beam 2.
type channel struct {
	pid1, pid2 int
	weight     float64
}

// quarkNames labels the light quark flavours by PDG ID.
var quarkNames = map[int]string{1: "d", 2: "u", 3: "s", 4: "c"}

func partonName(pid int) string {
	if pid < 0 {
		return quarkNames[-pid] + "bar"
	}
	return quarkNames[pid]
}

// channels returns dσ̂·f·f for u, c, d, s initial states in both beam orientations.
func (p *DrellYan) channels(sHat, x1, x2, cosTheta float64) []channel {
	f := func(pid int, x float64) float64 { return p.pdf.XfxQ2(pid, x, sHat) }
	out := make([]channel, 0, 8)
	for _, flav := range []struct {
		f    fermion
		pids [2]int
	}{
		{upQuark, [2]int{2, 4}},
		{downQuark, [2]int{1, 3}},
	} {
		forward := dsigmaHat(flav.f, sHat, cosTheta, 3)
		backward := dsigmaHat(flav.f, sHat, -cosTheta, 3)
		for _, pid := range flav.pids {
			out = append(out,
				channel{pid, -pid, forward * f(pid, x1) * f(-pid, x2)},
				channel{-pid, pid, backward * f(-pid, x1) * f(pid, x2)},
			)
		}
	}
	return out
}

// partonic sums every channel.
func (p *DrellYan) partonic(sHat, x1, x2, cosTheta float64) float64 {
	var w float64
	for _, c := range p.channels(sHat, x1, x2, cosTheta) {
		w += c.weight
	}
	return w
}

// pickChannel draws a channel with probability proportional to its weight.
func pickChannel(chs []channel, u float64) (channel, bool) {
	var total float64
	for _, c := range chs {
		total += c.weight
	}
	if !(total > 0) {
		return channel{}, false
	}
	target := u * total
	for _, c := range chs {
		if target < c.weight {
			return c, true
		}
		target -= c.weight
	}
	// Rounding can leave target at the very end; take the last open channel.
	for i := len(chs) - 1; i >= 0; i-- {
		if chs[i].weight > 0 {
			return chs[i], true
		}
	}
	return channel{}, false
}

// BuildParticles returns the incoming partons along ±z, with the flavour
// drawn in proportion to each channel's contribution, and the lepton pair,
// generated at rest in the γ/Z frame and boosted to the lab.
func (p *DrellYan) BuildParticles(pt sim.PhaseSpacePoint, rng sim.RandomSource) ([]sim.Particle, error) {
	sHat, x1, x2, ok := p.kinematics(pt)
	if !ok {
		return nil, fmt.Errorf("%w: momentum fractions out of range at %v", sim.ErrInvalidSample, pt)
	}
	ch, ok := pickChannel(p.channels(sHat, x1, x2, pt[0]), rng.Float64())
	if !ok {
		return nil, fmt.Errorf("%w: no open partonic channel at %v", sim.ErrInvalidSample, pt)
	}
	beta := (x2 - x1) / (x1 + x2)
	l1, l2 := backToBack(math.Sqrt(sHat), pt[0], 2*math.Pi*rng.Float64())
	e1, e2 := 0.5*x1*p.ecm, 0.5*x2*p.ecm
	return []sim.Particle{
		{Momentum: sim.NewFourVector(e1, 0, 0, e1), PID: ch.pid1, Name: partonName(ch.pid1)},
		{Momentum: sim.NewFourVector(e2, 0, 0, -e2), PID: ch.pid2, Name: partonName(ch.pid2)},
		{Momentum: l1.ZBoost(beta), PID: 13, Name: "l-"},
		{Momentum: l2.ZBoost(beta), PID: -13, Name: "l+"},
	}, nil
}
