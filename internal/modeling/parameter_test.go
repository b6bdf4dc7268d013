package modeling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/units"
)

func record(name string, value float64, unit string) Parameter {
	return Parameter{Name: name, Value: value, Unit: unit, Min: math.NaN(), Max: math.NaN()}
}

func TestParameters_Apply(t *testing.T) {
	tests := []struct {
		name      string
		record    Parameter
		param     string
		wantValue float64
		wantUnit  string
	}{
		{
			name:      "same unit",
			record:    record("index", 2.7, ""),
			param:     "index",
			wantValue: 2.7,
			wantUnit:  "",
		},
		{
			name:      "energy converted into model unit",
			record:    record("reference", 1e6, "MeV"),
			param:     "reference",
			wantValue: 1,
			wantUnit:  units.TeV,
		},
		{
			name:      "flux converted into model unit",
			record:    record("amplitude", 1e-18, "cm-2 s-1 MeV-1"),
			param:     "amplitude",
			wantValue: 1e-12,
			wantUnit:  units.DiffFlux,
		},
		{
			name:      "blank record unit keeps model unit",
			record:    record("reference", 3, ""),
			param:     "reference",
			wantValue: 3,
			wantUnit:  units.TeV,
		},
		{
			name:      "incompatible unit replaces wholesale",
			record:    record("amplitude", 5e-12, "cm-2 s-1"),
			param:     "amplitude",
			wantValue: 5e-12,
			wantUnit:  "cm-2 s-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := NewSpectralModel(PowerLaw)
			require.NoError(t, err)

			ignored, err := model.Parameters().Apply([]Parameter{tt.record})
			require.NoError(t, err)
			assert.Empty(t, ignored)

			p := model.Parameters().Get(tt.param)
			assert.InEpsilon(t, tt.wantValue, p.Value, 1e-12)
			assert.Equal(t, tt.wantUnit, p.Unit)
		})
	}
}

func TestParameters_ApplyCopiesBoundsAndFlags(t *testing.T) {
	model, err := NewSpectralModel(PowerLaw)
	require.NoError(t, err)

	rec := Parameter{Name: "index", Value: 2.5, Error: 0.1, Min: 1, Max: 5, Frozen: true}
	ignored, err := model.Parameters().Apply([]Parameter{rec, record("lambda_", 1, "")})
	require.NoError(t, err)
	assert.Equal(t, []string{"lambda_"}, ignored)

	p := model.Parameters().Get("index")
	assert.Equal(t, 2.5, p.Value)
	assert.Equal(t, 0.1, p.Error)
	assert.Equal(t, 1.0, p.Min)
	assert.Equal(t, 5.0, p.Max)
	assert.True(t, p.Frozen)

	// is_norm survives records that do not set it
	require.NoError(t, applyOne(model.Parameters(), record("amplitude", 1e-11, "")))
	assert.True(t, model.Parameters().Get("amplitude").IsNorm)
}

func applyOne(ps Parameters, rec Parameter) error {
	_, err := ps.Apply([]Parameter{rec})
	return err
}

func TestParameters_ApplyRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name   string
		record Parameter
	}{
		{"inverted bounds", Parameter{Name: "index", Value: 2, Min: 5, Max: 1}},
		{"non-finite value", Parameter{Name: "index", Value: math.Inf(1), Min: math.NaN(), Max: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := NewSpectralModel(PowerLaw)
			require.NoError(t, err)

			err = applyOne(model.Parameters(), tt.record)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
		})
	}
}

func TestParameters_FreezeAndFree(t *testing.T) {
	model, err := NewSpectralModel(PowerLaw)
	require.NoError(t, err)

	assert.Equal(t, []string{"index", "amplitude"}, model.Parameters().Free().Names())

	cp := model.Parameters().Clone()
	cp.Freeze()
	assert.Empty(t, cp.Free())
	assert.Len(t, model.Parameters().Free(), 2)

	assert.True(t, math.IsNaN(model.Parameters().Value("missing")))
}
