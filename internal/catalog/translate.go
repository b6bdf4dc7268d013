package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/common/logger"
	"skymodel-workers/internal/common/metrics"
	"skymodel-workers/internal/modeling"
	"skymodel-workers/internal/units"
)

// canonical names accepted as written (lowercased).
var passThrough = map[string]bool{
	"alpha":     true,
	"beta":      true,
	"amplitude": true,
	"reference": true,
	"index_1":   true,
	"index_2":   true,
	"ebreak":    true,
	"emin":      true,
	"emax":      true,
	"expfactor": true,
	"lambda_":   true,
	"ecut":      true,
	"tilt":      true,
}

func isEnergyLike(name string) bool {
	switch name {
	case "reference", "ebreak", "emin", "emax":
		return true
	}
	return false
}

func isIndexLike(name string) bool {
	switch name {
	case "index", "index_1", "index_2", "beta":
		return true
	}
	return false
}

// Translator converts catalog parameter records to canonical parameters.
type Translator struct {
	logger logger.Logger
}

func NewTranslator(log logger.Logger) *Translator {
	return &Translator{logger: logger.OrNoOp(log)}
}

// canonicalName maps a raw name under policy, or returns "" when the name
// has no canonical counterpart.
func canonicalName(raw string, policy Policy) string {
	switch name := strings.ToLower(strings.TrimSpace(raw)); name {
	case "norm", "prefactor", "integral":
		return "amplitude"
	case "scale", "eb":
		return "reference"
	case "breakvalue":
		return "ebreak"
	case "lowerlimit":
		return "emin"
	case "upperlimit":
		return "emax"
	case "cutoff", "expfactor":
		return "lambda_"
	case "index":
		return "index"
	case "index1":
		return policy.Index1
	case "indexs":
		return "index_1"
	case "index2":
		return policy.Index2
	case "expfactors":
		return "expfactor"
	default:
		if passThrough[name] {
			return name
		}
		return ""
	}
}

type rawValues struct {
	value, scale, min, max, err float64
	free                        string
}

func parseRecord(raw RawParameter) (rawValues, error) {
	var out rawValues
	if strings.TrimSpace(raw.Name) == "" {
		return out, errors.NewValidationError("name", "parameter record has no name")
	}
	fields := []struct {
		attr string
		text string
		dst  *float64
	}{
		{"value", raw.Value, &out.value},
		{"scale", raw.Scale, &out.scale},
		{"min", raw.Min, &out.min},
		{"max", raw.Max, &out.max},
	}
	for _, f := range fields {
		v, err := parseFloat(f.text)
		if err != nil {
			return out, errors.NewValidationError(raw.Name+"."+f.attr, err.Error())
		}
		*f.dst = v
	}
	out.free = strings.TrimSpace(raw.Free)
	if out.free == "" {
		return out, errors.NewValidationError(raw.Name+".free", "missing free flag")
	}
	if strings.TrimSpace(raw.Error) != "" {
		v, err := parseFloat(raw.Error)
		if err != nil {
			return out, errors.NewValidationError(raw.Name+".error", err.Error())
		}
		out.err = v
	}
	return out, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing attribute")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

// Translate converts one record. A nil parameter with a nil error means the
// record has no canonical counterpart and was dropped.
func (t *Translator) Translate(raw RawParameter, policy Policy, isTarget bool) (*modeling.Parameter, error) {
	rv, err := parseRecord(raw)
	if err != nil {
		return nil, err
	}

	name := canonicalName(raw.Name, policy)
	if name == "" {
		t.logger.Debug("Dropping catalog parameter without canonical name", map[string]interface{}{
			"parameter":    raw.Name,
			"spectrumType": policy.SpectrumType,
		})
		metrics.ParametersDropped.WithLabelValues(policy.SpectrumType).Inc()
		return nil, nil
	}

	p := &modeling.Parameter{Name: name}
	fixed := rv.free == "0"
	switch {
	case name == "reference":
		// the calibration anchor is never released, not even for the target
		p.Frozen = fixed
	case name == "alpha" && policy.AlphaFromFlag:
		p.Frozen = fixed
	default:
		p.Frozen = fixed && !isTarget
	}

	s := rv.scale
	switch {
	case isEnergyLike(name):
		p.Unit = units.TeV
		scaleAll(p, rv, s*1e-6)
	case name == "amplitude":
		p.Unit = units.DiffFlux
		p.IsNorm = true
		scaleAll(p, rv, s*1e6)
	case name == "lambda_":
		p.Unit = units.InverseTeV
		if err := convertLambda(p, rv, policy.Lambda); err != nil {
			return nil, err
		}
	case isIndexLike(name) && !policy.KeepSign:
		positiveIndex(p, rv)
	default:
		// shape parameters are taken as written
		scaleAll(p, rv, 1)
	}

	if p.Min > p.Max {
		p.Min, p.Max = p.Max, p.Min
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	metrics.ParametersTranslated.WithLabelValues(policy.SpectrumType, name).Inc()
	return p, nil
}

func scaleAll(p *modeling.Parameter, rv rawValues, factor float64) {
	p.Value = rv.value * factor
	p.Error = rv.err * factor
	p.Min = rv.min * factor
	p.Max = rv.max * factor
}

// positiveIndex keeps a non-negative record as written and otherwise moves
// it to the positive convention through value*scale.
func positiveIndex(p *modeling.Parameter, rv rawValues) {
	v := rv.value * rv.scale
	if rv.value >= 0 && v >= 0 {
		scaleAll(p, rv, 1)
		return
	}
	scaleAll(p, rv, rv.scale)
	if v < 0 {
		p.Value, p.Min, p.Max = -p.Value, -p.Min, -p.Max
	}
	p.Error = math.Abs(p.Error)
}

func convertLambda(p *modeling.Parameter, rv rawValues, conv LambdaConvention) error {
	switch conv {
	case LambdaReciprocal:
		v := rv.value * rv.scale
		lo, hi := rv.min*rv.scale, rv.max*rv.scale
		if v == 0 || lo == 0 || hi == 0 {
			return errors.NewValidationError("lambda_", "reciprocal cutoff of a zero value or bound")
		}
		p.Value = 1e6 / v
		p.Error = 1e6 * rv.err / (v * v)
		p.Min = 1e6 / lo
		p.Max = 1e6 / hi
	case LambdaMicro:
		scaleAll(p, rv, rv.scale*1e6)
	default:
		scaleAll(p, rv, 1)
	}
	return nil
}

// TranslateAll converts every record of a spectrum, skipping dropped ones.
func (t *Translator) TranslateAll(raws []RawParameter, policy Policy, isTarget bool) ([]modeling.Parameter, error) {
	out := make([]modeling.Parameter, 0, len(raws))
	for _, raw := range raws {
		p, err := t.Translate(raw, policy, isTarget)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

// SpectralModel builds the base spectral model of a catalog entry, without
// attenuation, and returns the policy it used.
func (t *Translator) SpectralModel(src Source, isTarget bool) (modeling.SpectralModel, Policy, error) {
	policy, err := PolicyFor(src.Spectrum.Type)
	if err != nil {
		return nil, Policy{}, err
	}
	model, err := modeling.NewSpectralModel(policy.Family)
	if err != nil {
		return nil, Policy{}, err
	}
	params, err := t.TranslateAll(src.Spectrum.Parameters, policy, isTarget)
	if err != nil {
		return nil, Policy{}, err
	}
	ignored, err := model.Parameters().Apply(params)
	if err != nil {
		return nil, Policy{}, err
	}
	if len(ignored) > 0 {
		t.logger.Debug("Catalog parameters not used by model", map[string]interface{}{
			"source":     src.Name,
			"family":     policy.Family.Tag(),
			"parameters": ignored,
		})
	}
	return model, policy, nil
}
