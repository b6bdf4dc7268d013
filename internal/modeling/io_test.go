package modeling

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/coords"
	"skymodel-workers/internal/units"
)

func createTestModels(t *testing.T, b *Builder) *Models {
	pl, err := b.Spectral(ModelSpec{
		Type: "PowerLawSpectralModel",
		Parameters: []Parameter{
			{Name: "index", Value: 2.6, Error: 0.05, Min: 1, Max: 4},
			record("amplitude", 3.5e-11, units.DiffFlux),
		},
	})
	require.NoError(t, err)
	ebl, err := b.Attenuation(AttenuationSpec{Reference: "dominguez", Redshift: 0.03})
	require.NoError(t, err)
	point, err := b.Spatial(ModelSpec{
		Type:       "PointSpatialModel",
		Frame:      coords.Galactic,
		Parameters: []Parameter{record("lon_0", 184.5575, units.Degree), record("lat_0", -5.7843, units.Degree)},
	})
	require.NoError(t, err)

	target := NewSkyModel("Crab Nebula", Multiply(pl, ebl), point)
	target.DatasetsNames = []string{"lat", "hess"}

	lp, err := b.Spectral(ModelSpec{Type: "LogParabolaSpectralModel"})
	require.NoError(t, err)
	other := NewSkyModel("4FGL J0534.5+2201s", lp, nil)

	ms, err := NewModels(target, other)
	require.NoError(t, err)
	return ms
}

func TestModels_WriteReadRoundTrip(t *testing.T) {
	b := createTestBuilder(t, &stubEBLLoader{table: createTestEBLTable()})
	in := createTestModels(t, b)

	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, WriteModels(path, in))

	out, err := ReadModels(path, b)
	require.NoError(t, err)
	assert.Equal(t, in.Names(), out.Names())

	crab := out.Get("Crab Nebula")
	require.NotNil(t, crab)
	assert.Equal(t, []string{"lat", "hess"}, crab.DatasetsNames)
	assert.Equal(t, "Crab Nebula", crab.Spectral.Name())

	compound, ok := crab.Spectral.(*CompoundSpectralModel)
	require.True(t, ok)
	assert.Equal(t, PowerLaw, compound.Model1.Family())
	assert.Equal(t, EBLAbsorptionNorm, compound.Model2.Family())
	assert.Equal(t, 0.03, compound.Model2.Parameters().Value("redshift"))

	index := compound.Model1.Parameters().Get("index")
	assert.Equal(t, 2.6, index.Value)
	assert.Equal(t, 1.0, index.Min)
	assert.Equal(t, 4.0, index.Max)
	assert.True(t, math.IsNaN(compound.Model1.Parameters().Get("amplitude").Min))

	require.NotNil(t, crab.Spatial)
	assert.Equal(t, coords.Galactic, crab.Spatial.Frame())
	assert.Equal(t, 184.5575, crab.Spatial.Parameters().Value("lon_0"))

	other := out.Get("4FGL J0534.5+2201s")
	require.NotNil(t, other)
	assert.Nil(t, other.Spatial)
	assert.Empty(t, other.DatasetsNames)
}

func TestParseModels_OmittedBoundsAreUnbounded(t *testing.T) {
	b := createTestBuilder(t, &stubEBLLoader{})
	doc := `
components:
  - name: src
    type: SkyModel
    spectral:
      type: PL
      parameters:
        - name: index
          value: 2.2
          frozen: true
`
	ms, err := ParseModels([]byte(doc), b)
	require.NoError(t, err)

	index := ms.Get("src").Spectral.Parameters().Get("index")
	assert.Equal(t, 2.2, index.Value)
	assert.True(t, index.Frozen)
	assert.True(t, math.IsNaN(index.Min))
	assert.True(t, math.IsNaN(index.Max))
}

func TestParseModels_Errors(t *testing.T) {
	b := createTestBuilder(t, &stubEBLLoader{})

	tests := []struct {
		name string
		doc  string
		code errors.ErrorCode
	}{
		{
			name: "unknown spectral type",
			doc:  "components:\n  - name: a\n    spectral:\n      type: Fancy\n",
			code: errors.ErrCodeModelType,
		},
		{
			name: "missing spectral",
			doc:  "components:\n  - name: a\n",
			code: errors.ErrCodeValidation,
		},
		{
			name: "duplicate names",
			doc:  "components:\n  - name: a\n    spectral: {type: PL}\n  - name: a\n    spectral: {type: PL}\n",
			code: errors.ErrCodeValidation,
		},
		{
			name: "not yaml",
			doc:  "components: [",
			code: errors.ErrCodeModelLoad,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModels([]byte(tt.doc), b)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), err.Error())
		})
	}
}

func TestParseModels_ErrorNamesSource(t *testing.T) {
	b := createTestBuilder(t, &stubEBLLoader{})
	_, err := ParseModels([]byte("components:\n  - name: Vela X\n    spectral:\n      type: Fancy\n"), b)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, "Vela X", stdErr.Source)
}

func TestReadModels_MissingFile(t *testing.T) {
	b := createTestBuilder(t, &stubEBLLoader{})
	_, err := ReadModels(filepath.Join(t.TempDir(), "none.yaml"), b)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelLoad))
}

func TestBuilder_SpectralTemplateAndCompound(t *testing.T) {
	b := createTestBuilder(t, &stubEBLLoader{table: createTestEBLTable()})

	m, err := b.Spectral(ModelSpec{
		Type: "CompoundSpectralModel",
		Model1: &ModelSpec{
			Type:       "TemplateSpectralModel",
			Energy:     []float64{1, 10},
			Values:     []float64{1e-12, 1e-14},
			Parameters: []Parameter{{Name: "norm", Value: 2, Min: 0.001, Max: 10}},
		},
		Model2:   &ModelSpec{Type: "EBLAbsorptionNormSpectralModel", Reference: "dominguez", Parameters: []Parameter{record("redshift", 0.5, "")}},
		Operator: OperatorMul,
	})
	require.NoError(t, err)
	assert.InEpsilon(t, 2e-12*0.75, m.Evaluate(1), 1e-9)

	_, err = b.Spectral(ModelSpec{Type: "TemplateSpectralModel", Energy: []float64{1}, Values: []float64{1}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = b.Spectral(ModelSpec{Type: "CompoundSpectralModel", Model1: &ModelSpec{Type: "PL"}, Model2: &ModelSpec{Type: "PL"}, Operator: "add"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelType))
}

func TestModels_Collection(t *testing.T) {
	b := createTestBuilder(t, &stubEBLLoader{table: createTestEBLTable()})
	ms := createTestModels(t, b)

	assert.Equal(t, 2, ms.Len())
	assert.Nil(t, ms.Get("nope"))

	items := ms.Items()
	items[0] = nil
	assert.NotNil(t, ms.Items()[0])

	err := ms.Append(NewSkyModel("Crab Nebula", nil, nil))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	crab := ms.Get("Crab Nebula")
	crab.Freeze("spatial")
	assert.Empty(t, crab.Spatial.Parameters().Free())
	assert.NotEmpty(t, crab.Spectral.Parameters().Free())
}

func TestWriteModels_BadPath(t *testing.T) {
	b := createTestBuilder(t, &stubEBLLoader{table: createTestEBLTable()})
	err := WriteModels(filepath.Join(t.TempDir(), "missing", "models.yaml"), createTestModels(t, b))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
