package sim

// Physical constants in natural units (GeV), PDG values.
const (
	// QCD colour factors.
	CF = 4.0 / 3.0
	CA = 3.0
	TR = 0.5

	// AlphaEM is the fine-structure constant at zero momentum transfer.
	AlphaEM = 7.2973525693e-3
	// FermiConstant in GeV⁻².
	FermiConstant = 1.1663788e-5
	// SinSqWeinberg is sin²θ_W in the on-shell scheme.
	SinSqWeinberg = 0.222246

	ZMass      = 91.1880
	ZWidth     = 2.4414
	CharmMass  = 1.273
	BottomMass = 4.183

	// AlphaSAtZ is α_s(M_Z²), the reference point for the running coupling.
	AlphaSAtZ = 0.118

	// GeV2ToPb converts a cross section in GeV⁻² to picobarn.
	GeV2ToPb = 3.893793721e8
)
