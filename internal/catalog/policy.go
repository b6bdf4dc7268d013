package catalog

import (
	"sort"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/modeling"
)

// LambdaConvention selects how a cutoff parameter is converted to lambda_.
type LambdaConvention int

const (
	// LambdaRaw takes the record as written.
	LambdaRaw LambdaConvention = iota
	// LambdaReciprocal takes 1e6/(value*scale): the catalog stores a cutoff
	// energy in MeV.
	LambdaReciprocal
	// LambdaMicro multiplies by scale*1e6: the catalog stores an inverse
	// energy in MeV-1.
	LambdaMicro
)

// Policy holds the per-family conversion rules for one catalog spectrum
// type. It is chosen once per entry.
type Policy struct {
	SpectrumType string
	Family       modeling.SpectralFamily
	// Index1 and Index2 are the canonical names of the raw index1/index2.
	Index1 string
	Index2 string
	Lambda LambdaConvention
	// AlphaFromFlag freezes alpha from the free flag alone, target or not.
	AlphaFromFlag bool
	// KeepSign skips the positive index convention.
	KeepSign bool
}

var (
	PolicyPLSuperExpCutoff = Policy{
		SpectrumType:  "PLSuperExpCutoff",
		Family:        modeling.ExpCutoffPowerLaw,
		Index1:        "index",
		Index2:        "alpha",
		Lambda:        LambdaReciprocal,
		AlphaFromFlag: true,
	}
	PolicyPLSuperExpCutoff2 = Policy{
		SpectrumType:  "PLSuperExpCutoff2",
		Family:        modeling.ExpCutoffPowerLaw,
		Index1:        "index",
		Index2:        "alpha",
		Lambda:        LambdaMicro,
		AlphaFromFlag: true,
	}
	PolicyPLSuperExpCutoff4 = Policy{
		SpectrumType: "PLSuperExpCutoff4",
		Family:       modeling.SuperExpCutoffPowerLaw4FGLDR3,
		Index1:       "index1",
		Index2:       "index_2",
	}
	PolicyLogParabola = Policy{
		SpectrumType: "LogParabola",
		Family:       modeling.LogParabola,
		Index1:       "index1",
		Index2:       "index2",
	}
	// PolicyAttenuatedLogParabola is LogParabola behind the attenuation
	// marker: fitted as a power law with signs kept.
	PolicyAttenuatedLogParabola = Policy{
		SpectrumType: "LogParabola",
		Family:       modeling.PowerLaw,
		Index1:       "index1",
		Index2:       "index2",
		KeepSign:     true,
	}
	PolicyPowerLaw       = genericPolicy("PowerLaw", modeling.PowerLaw)
	PolicyPowerLaw2      = genericPolicy("PowerLaw2", modeling.PowerLaw2)
	PolicyBrokenPowerLaw = genericPolicy("BrokenPowerLaw", modeling.BrokenPowerLaw)
)

func genericPolicy(spectrumType string, f modeling.SpectralFamily) Policy {
	return Policy{SpectrumType: spectrumType, Family: f, Index1: "index1", Index2: "index2"}
}

var policies = map[string]Policy{
	"PLSuperExpCutoff":  PolicyPLSuperExpCutoff,
	"PLSuperExpCutoff2": PolicyPLSuperExpCutoff2,
	"PLSuperExpCutoff4": PolicyPLSuperExpCutoff4,
	"LogParabola":       PolicyLogParabola,
	"PowerLaw":          PolicyPowerLaw,
	"PowerLaw2":         PolicyPowerLaw2,
	"BrokenPowerLaw":    PolicyBrokenPowerLaw,
}

// SpectrumTypes lists the catalog spectrum types with a named policy.
func SpectrumTypes() []string {
	out := make([]string, 0, len(policies))
	for k := range policies {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PolicyFor selects the policy for a raw spectrum type, marker included.
// Types without a named policy resolve to "<type>SpectralModel" in the
// registry with generic rules.
func PolicyFor(spectrumType string) (Policy, error) {
	spec := Spectrum{Type: spectrumType}
	base := spec.BaseType()

	if base == "LogParabola" && spec.Attenuated() {
		return PolicyAttenuatedLogParabola, nil
	}
	if p, ok := policies[base]; ok {
		return p, nil
	}

	f, err := modeling.ResolveSpectralFamily(base + "SpectralModel")
	if err != nil || !f.Analytic() {
		return Policy{}, errors.NewModelTypeError("spectral", spectrumType, SpectrumTypes())
	}
	return genericPolicy(base, f), nil
}
