package modeling

import (
	"math"
	"sort"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/units"
)

// SpectralFamily is the closed set of supported spectral model families.
type SpectralFamily int

const (
	PowerLaw SpectralFamily = iota + 1
	PowerLaw2
	BrokenPowerLaw
	SmoothBrokenPowerLaw
	LogParabola
	ExpCutoffPowerLaw
	ExpCutoffPowerLaw3FGL
	SuperExpCutoffPowerLaw4FGL
	SuperExpCutoffPowerLaw4FGLDR3
	PowerLawNorm
	ConstantSpectral
	ExpCutoffLogParabola
	TemplateSpectral
	EBLAbsorptionNorm
	CompoundSpectral
)

type evalFunc func(p Parameters, energy float64) float64

type spectralFamily struct {
	tags     []string
	defaults func() Parameters
	// eval is nil for families that need data beyond parameters.
	eval evalFunc
}

// Tag returns the canonical tag of the family.
func (f SpectralFamily) Tag() string {
	if def, ok := spectralFamilies[f]; ok {
		return def.tags[0]
	}
	return "UnknownSpectralModel"
}

func (f SpectralFamily) String() string { return f.Tag() }

// Analytic reports whether the family can be built from parameters alone.
func (f SpectralFamily) Analytic() bool {
	def, ok := spectralFamilies[f]
	return ok && def.eval != nil
}

var spectralFamilies = map[SpectralFamily]spectralFamily{
	PowerLaw: {
		tags: []string{"PowerLawSpectralModel", "PL", "pl"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("index", 2, ""),
				NewParameter("amplitude", 1e-12, units.DiffFlux).norm(),
				NewParameter("reference", 1, units.TeV).frozen(),
			}
		},
		eval: func(p Parameters, e float64) float64 {
			return p.Value("amplitude") * math.Pow(e/p.Value("reference"), -p.Value("index"))
		},
	},
	PowerLaw2: {
		tags: []string{"PowerLaw2SpectralModel", "PL2", "pl-2"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("amplitude", 1e-12, units.IntFlux).norm(),
				NewParameter("index", 2, ""),
				NewParameter("emin", 0.1, units.TeV).frozen(),
				NewParameter("emax", 100, units.TeV).frozen(),
			}
		},
		eval: func(p Parameters, e float64) float64 {
			amp, idx := p.Value("amplitude"), p.Value("index")
			emin, emax := p.Value("emin"), p.Value("emax")
			if idx == 1 {
				return amp / (math.Log(emax/emin) * e)
			}
			top := 1 - idx
			return amp * top / (math.Pow(emax, top) - math.Pow(emin, top)) * math.Pow(e, -idx)
		},
	},
	BrokenPowerLaw: {
		tags: []string{"BrokenPowerLawSpectralModel", "bpl"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("index1", 2, ""),
				NewParameter("index2", 2, ""),
				NewParameter("amplitude", 1e-12, units.DiffFlux).norm(),
				NewParameter("ebreak", 1, units.TeV),
			}
		},
		eval: func(p Parameters, e float64) float64 {
			x := e / p.Value("ebreak")
			if x < 1 {
				return p.Value("amplitude") * math.Pow(x, -p.Value("index1"))
			}
			return p.Value("amplitude") * math.Pow(x, -p.Value("index2"))
		},
	},
	SmoothBrokenPowerLaw: {
		tags: []string{"SmoothBrokenPowerLawSpectralModel", "sbpl"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("index1", 2, ""),
				NewParameter("index2", 2, ""),
				NewParameter("amplitude", 1e-12, units.DiffFlux).norm(),
				NewParameter("ebreak", 1, units.TeV),
				NewParameter("reference", 1, units.TeV).frozen(),
				NewParameter("beta", 1, "").frozen(),
			}
		},
		eval: func(p Parameters, e float64) float64 {
			i1, i2, beta := p.Value("index1"), p.Value("index2"), p.Value("beta")
			pwl := p.Value("amplitude") * math.Pow(e/p.Value("reference"), -i1)
			brk := math.Pow(1+math.Pow(e/p.Value("ebreak"), (i2-i1)/beta), -beta)
			return pwl * brk
		},
	},
	LogParabola: {
		tags: []string{"LogParabolaSpectralModel", "lp"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("amplitude", 1e-12, units.DiffFlux).norm(),
				NewParameter("reference", 10, units.TeV).frozen(),
				NewParameter("alpha", 2, ""),
				NewParameter("beta", 1, ""),
			}
		},
		eval: func(p Parameters, e float64) float64 {
			x := e / p.Value("reference")
			return p.Value("amplitude") * math.Pow(x, -p.Value("alpha")-p.Value("beta")*math.Log(x))
		},
	},
	ExpCutoffPowerLaw: {
		tags: []string{"ExpCutoffPowerLawSpectralModel", "ecpl"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("index", 1.5, ""),
				NewParameter("amplitude", 1e-12, units.DiffFlux).norm(),
				NewParameter("reference", 1, units.TeV).frozen(),
				NewParameter("lambda_", 0.1, units.InverseTeV),
				NewParameter("alpha", 1, "").frozen(),
			}
		},
		eval: func(p Parameters, e float64) float64 {
			pwl := p.Value("amplitude") * math.Pow(e/p.Value("reference"), -p.Value("index"))
			return pwl * math.Exp(-math.Pow(p.Value("lambda_")*e, p.Value("alpha")))
		},
	},
	ExpCutoffPowerLaw3FGL: {
		tags: []string{"ExpCutoffPowerLaw3FGLSpectralModel", "ecpl-3fgl"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("index", 1.5, ""),
				NewParameter("amplitude", 1e-12, units.DiffFlux).norm(),
				NewParameter("reference", 1, units.TeV).frozen(),
				NewParameter("ecut", 10, units.TeV),
			}
		},
		eval: func(p Parameters, e float64) float64 {
			ref := p.Value("reference")
			pwl := p.Value("amplitude") * math.Pow(e/ref, -p.Value("index"))
			return pwl * math.Exp((ref-e)/p.Value("ecut"))
		},
	},
	SuperExpCutoffPowerLaw4FGL: {
		tags: []string{"SuperExpCutoffPowerLaw4FGLSpectralModel", "secpl-4fgl"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("amplitude", 1e-12, units.DiffFlux).norm(),
				NewParameter("reference", 1, units.TeV).frozen(),
				NewParameter("expfactor", 1e-2, ""),
				NewParameter("index_1", 1.5, ""),
				NewParameter("index_2", 2, ""),
			}
		},
		eval: func(p Parameters, e float64) float64 {
			ref, i2 := p.Value("reference"), p.Value("index_2")
			pwl := p.Value("amplitude") * math.Pow(e/ref, -p.Value("index_1"))
			return pwl * math.Exp(p.Value("expfactor")*(math.Pow(ref, i2)-math.Pow(e, i2)))
		},
	},
	SuperExpCutoffPowerLaw4FGLDR3: {
		tags: []string{"SuperExpCutoffPowerLaw4FGLDR3SpectralModel", "secpl-4fgl-dr3"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("amplitude", 1e-12, units.DiffFlux).norm(),
				NewParameter("reference", 1, units.TeV).frozen(),
				NewParameter("expfactor", 1e-2, ""),
				NewParameter("index_1", 1.5, ""),
				NewParameter("index_2", 2, ""),
			}
		},
		eval: evalSECPL4FGLDR3,
	},
	PowerLawNorm: {
		tags: []string{"PowerLawNormSpectralModel", "pl-norm"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("norm", 1, "").norm(),
				NewParameter("tilt", 0, "").frozen(),
				NewParameter("reference", 1, units.TeV).frozen(),
			}
		},
		eval: func(p Parameters, e float64) float64 {
			return p.Value("norm") * math.Pow(e/p.Value("reference"), -p.Value("tilt"))
		},
	},
	ConstantSpectral: {
		tags: []string{"ConstantSpectralModel", "const"},
		defaults: func() Parameters {
			return Parameters{NewParameter("const", 1e-12, units.DiffFlux)}
		},
		eval: func(p Parameters, _ float64) float64 {
			return p.Value("const")
		},
	},
	ExpCutoffLogParabola: {
		tags: []string{"ExpCutoffLogParabolaSpectralModel", "ECLP"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("amplitude", 1e-12, units.DiffFlux).norm(),
				NewParameter("reference", 1, units.TeV).frozen(),
				NewParameter("alpha_1", -2, ""),
				NewParameter("alpha_2", 1, "").frozen(),
				NewParameter("beta", 1, ""),
				NewParameter("lambda_", 0.1, units.InverseTeV),
			}
		},
		eval: func(p Parameters, e float64) float64 {
			x := e / p.Value("reference")
			exponent := -p.Value("alpha_1") - p.Value("beta")*math.Log(x)
			cutoff := math.Exp(-math.Pow(e*p.Value("lambda_"), p.Value("alpha_2")))
			return p.Value("amplitude") * math.Pow(x, exponent) * cutoff
		},
	},
	TemplateSpectral: {
		tags: []string{"TemplateSpectralModel", "template"},
		defaults: func() Parameters {
			return Parameters{NewParameter("norm", 1, "").norm()}
		},
	},
	EBLAbsorptionNorm: {
		tags: []string{"EBLAbsorptionNormSpectralModel", "ebl-norm"},
		defaults: func() Parameters {
			return Parameters{
				NewParameter("alpha_norm", 1, "").frozen(),
				NewParameter("redshift", 0.1, "").frozen(),
			}
		},
	},
	CompoundSpectral: {
		tags: []string{"CompoundSpectralModel"},
	},
}

func evalSECPL4FGLDR3(p Parameters, e float64) float64 {
	ref := p.Value("reference")
	d, b := p.Value("expfactor"), p.Value("index_2")
	x := e / ref
	pwl := p.Value("amplitude") * math.Pow(x, -p.Value("index_1"))

	lnx := math.Log(x)
	if math.Abs(b*lnx) < 1e-2 {
		// series expansion; the closed form loses precision as b*ln(x) -> 0
		power := -d * (lnx/2 + b*lnx*lnx/6 + b*b*lnx*lnx*lnx/24)
		return pwl * math.Pow(x, power)
	}
	return pwl * math.Pow(x, d/b) * math.Exp(d/(b*b)*(1-math.Pow(x, b)))
}

var spectralByTag = func() map[string]SpectralFamily {
	out := make(map[string]SpectralFamily)
	for f, def := range spectralFamilies {
		for _, tag := range def.tags {
			out[tag] = f
		}
	}
	return out
}()

// SpectralTags lists the canonical tags of every spectral family.
func SpectralTags() []string {
	tags := make([]string, 0, len(spectralFamilies))
	for _, def := range spectralFamilies {
		tags = append(tags, def.tags[0])
	}
	sort.Strings(tags)
	return tags
}

// ResolveSpectralFamily maps a tag to its family, failing with
// MODEL_TYPE_ERROR for anything outside the registry.
func ResolveSpectralFamily(tag string) (SpectralFamily, error) {
	if f, ok := spectralByTag[tag]; ok {
		return f, nil
	}
	return 0, errors.NewModelTypeError("spectral", tag, SpectralTags())
}

// NewSpectralModel instantiates an analytic family with its default
// parameters.
func NewSpectralModel(f SpectralFamily) (*AnalyticSpectralModel, error) {
	def, ok := spectralFamilies[f]
	if !ok || def.eval == nil {
		return nil, errors.NewModelTypeError("spectral", f.Tag(), analyticTags())
	}
	return &AnalyticSpectralModel{
		family: f,
		params: def.defaults(),
		eval:   def.eval,
	}, nil
}

func analyticTags() []string {
	var tags []string
	for _, def := range spectralFamilies {
		if def.eval != nil {
			tags = append(tags, def.tags[0])
		}
	}
	sort.Strings(tags)
	return tags
}

// SpatialFamily is the closed set of supported spatial model families.
type SpatialFamily int

const (
	PointSpatial SpatialFamily = iota + 1
	GaussianSpatial
	DiskSpatial
	ConstantSpatial
	TemplateSpatial
)

var spatialTags = map[SpatialFamily][]string{
	PointSpatial:    {"PointSpatialModel", "point"},
	GaussianSpatial: {"GaussianSpatialModel", "gauss"},
	DiskSpatial:     {"DiskSpatialModel", "disk"},
	ConstantSpatial: {"ConstantSpatialModel", "const"},
	TemplateSpatial: {"TemplateSpatialModel", "template"},
}

func (f SpatialFamily) Tag() string {
	if tags, ok := spatialTags[f]; ok {
		return tags[0]
	}
	return "UnknownSpatialModel"
}

func (f SpatialFamily) String() string { return f.Tag() }

// SpatialTagList lists the canonical tags of every spatial family.
func SpatialTagList() []string {
	tags := make([]string, 0, len(spatialTags))
	for _, t := range spatialTags {
		tags = append(tags, t[0])
	}
	sort.Strings(tags)
	return tags
}

// ResolveSpatialFamily maps a tag to its family.
func ResolveSpatialFamily(tag string) (SpatialFamily, error) {
	for f, tags := range spatialTags {
		for _, t := range tags {
			if t == tag {
				return f, nil
			}
		}
	}
	return 0, errors.NewModelTypeError("spatial", tag, SpatialTagList())
}
