package modeling

import (
	"fmt"
	"math"
	"sort"
)

// SpectralModel is a differential flux model dN/dE over energy in TeV.
type SpectralModel interface {
	Family() SpectralFamily
	Name() string
	SetName(name string)
	Parameters() Parameters
	Evaluate(energy float64) float64
	Spec() ModelSpec
}

// AnalyticSpectralModel is any family whose shape is fully described by
// its parameters.
type AnalyticSpectralModel struct {
	family SpectralFamily
	name   string
	params Parameters
	eval   evalFunc
}

func (m *AnalyticSpectralModel) Family() SpectralFamily     { return m.family }
func (m *AnalyticSpectralModel) Name() string               { return m.name }
func (m *AnalyticSpectralModel) SetName(name string)        { m.name = name }
func (m *AnalyticSpectralModel) Parameters() Parameters     { return m.params }
func (m *AnalyticSpectralModel) Evaluate(e float64) float64 { return m.eval(m.params, e) }

func (m *AnalyticSpectralModel) Spec() ModelSpec {
	return ModelSpec{Type: m.family.Tag(), Parameters: m.params.Values()}
}

// CompoundSpectralModel is the product of two spectral models.
type CompoundSpectralModel struct {
	Model1 SpectralModel
	Model2 SpectralModel
	name   string
}

// Multiply returns model1 * model2.
func Multiply(model1, model2 SpectralModel) *CompoundSpectralModel {
	return &CompoundSpectralModel{Model1: model1, Model2: model2}
}

func (m *CompoundSpectralModel) Family() SpectralFamily { return CompoundSpectral }
func (m *CompoundSpectralModel) Name() string           { return m.name }
func (m *CompoundSpectralModel) SetName(name string)    { m.name = name }

// Parameters concatenates the parameters of both factors.
func (m *CompoundSpectralModel) Parameters() Parameters {
	out := append(Parameters{}, m.Model1.Parameters()...)
	return append(out, m.Model2.Parameters()...)
}

func (m *CompoundSpectralModel) Evaluate(e float64) float64 {
	return m.Model1.Evaluate(e) * m.Model2.Evaluate(e)
}

func (m *CompoundSpectralModel) Spec() ModelSpec {
	s1, s2 := m.Model1.Spec(), m.Model2.Spec()
	return ModelSpec{
		Type:     CompoundSpectral.Tag(),
		Model1:   &s1,
		Model2:   &s2,
		Operator: OperatorMul,
	}
}

// OperatorMul is the only supported compound operator.
const OperatorMul = "mul"

// TemplateSpectralModel interpolates tabulated values in log-log space,
// scaled by a norm parameter. Values outside the table are extrapolated.
type TemplateSpectralModel struct {
	name   string
	energy []float64 // TeV, ascending
	values []float64 // cm-2 s-1 TeV-1 (sr-1 for diffuse templates)
	params Parameters
}

// NewTemplateSpectralModel sorts the table by energy and validates it.
func NewTemplateSpectralModel(energy, values []float64) (*TemplateSpectralModel, error) {
	if len(energy) != len(values) {
		return nil, fmt.Errorf("template has %d energies and %d values", len(energy), len(values))
	}
	if len(energy) < 2 {
		return nil, fmt.Errorf("template needs at least two nodes, got %d", len(energy))
	}
	idx := make([]int, len(energy))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return energy[idx[a]] < energy[idx[b]] })

	m := &TemplateSpectralModel{
		energy: make([]float64, len(energy)),
		values: make([]float64, len(values)),
		params: spectralFamilies[TemplateSpectral].defaults(),
	}
	for i, j := range idx {
		if energy[j] <= 0 {
			return nil, fmt.Errorf("template energy %g is not positive", energy[j])
		}
		if i > 0 && energy[j] == m.energy[i-1] {
			return nil, fmt.Errorf("template energy %g is duplicated", energy[j])
		}
		m.energy[i] = energy[j]
		m.values[i] = values[j]
	}
	return m, nil
}

func (m *TemplateSpectralModel) Family() SpectralFamily { return TemplateSpectral }
func (m *TemplateSpectralModel) Name() string           { return m.name }
func (m *TemplateSpectralModel) SetName(name string)    { m.name = name }
func (m *TemplateSpectralModel) Parameters() Parameters { return m.params }

// Nodes returns copies of the tabulated energies and values.
func (m *TemplateSpectralModel) Nodes() ([]float64, []float64) {
	return append([]float64(nil), m.energy...), append([]float64(nil), m.values...)
}

func (m *TemplateSpectralModel) Evaluate(e float64) float64 {
	return m.params.Value("norm") * interpLogLog(m.energy, m.values, e)
}

func (m *TemplateSpectralModel) Spec() ModelSpec {
	e, v := m.Nodes()
	return ModelSpec{
		Type:       TemplateSpectral.Tag(),
		Energy:     e,
		Values:     v,
		Parameters: m.params.Values(),
	}
}

// interpLogLog interpolates y(x) linearly in (log x, log y), falling back to
// linear y for brackets with non-positive values.
func interpLogLog(xs, ys []float64, x float64) float64 {
	i := sort.SearchFloat64s(xs, x)
	switch {
	case i <= 0:
		i = 1
	case i >= len(xs):
		i = len(xs) - 1
	}
	x0, x1 := xs[i-1], xs[i]
	y0, y1 := ys[i-1], ys[i]
	t := (math.Log(x) - math.Log(x0)) / (math.Log(x1) - math.Log(x0))
	if y0 <= 0 || y1 <= 0 {
		return y0 + t*(y1-y0)
	}
	return math.Exp(math.Log(y0) + t*(math.Log(y1)-math.Log(y0)))
}
