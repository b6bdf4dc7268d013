package target

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/modeling"
	"skymodel-workers/internal/skymap"
)

func createTestDiffuseMap() *skymap.Map {
	m := skymap.New(skymap.Geom{
		NX: 5, NY: 3, NZ: 2,
		CRVal1: 0, CRVal2: 0,
		CRPix1: 3, CRPix2: 2,
		CDelt1: -0.5, CDelt2: 0.5,
		CType1: "GLON-CAR", CType2: "GLAT-CAR",
	}, "cm-2 s-1 MeV-1 sr-1")
	for i := range m.Data {
		m.Data[i] = 1e-7
	}
	m.Filename = "/aux/gll_iem_v07.fits"
	return m
}

func TestReadIsotropicTemplate(t *testing.T) {
	energy, values, err := ReadIsotropicTemplate("testdata/iso.txt")
	require.NoError(t, err)
	require.Len(t, energy, 4)
	require.Len(t, values, 4)

	assert.InEpsilon(t, 58.5e-6, energy[0], 1e-12)
	assert.InEpsilon(t, 0.01, energy[3], 1e-12)
	assert.InEpsilon(t, 10.0, values[0], 1e-12)
	assert.InEpsilon(t, 2e-4, values[3], 1e-12)

	_, _, err = ReadIsotropicTemplate("testdata/missing.txt")
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelLoad))
}

func TestParseIsotropic_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single column", "100.0\n", "line 1"},
		{"bad energy", "# header\nabc 1e-5\n", "line 2: energy"},
		{"bad intensity", "100 x\n", "intensity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseIsotropic(strings.NewReader(tt.input))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestIsotropicDiffuse(t *testing.T) {
	m, err := IsotropicDiffuse("testdata/iso.txt", "00")
	require.NoError(t, err)
	assert.Equal(t, "fermi-diffuse-iso-00", m.Name)

	compound, ok := m.Spectral.(*modeling.CompoundSpectralModel)
	require.True(t, ok)
	assert.Equal(t, modeling.TemplateSpectral, compound.Model1.Family())
	assert.Equal(t, modeling.PowerLawNorm, compound.Model2.Family())

	norm := compound.Model1.Parameters().Get("norm")
	assert.Equal(t, 0.001, norm.Min)
	assert.Equal(t, 10.0, norm.Max)
	tilt := compound.Model2.Parameters().Get("tilt")
	assert.Equal(t, 0.0, tilt.Min)
	assert.Equal(t, 10.0, tilt.Max)

	require.NotNil(t, m.Spatial)
	assert.Equal(t, modeling.ConstantSpatial, m.Spatial.Family())

	// at a tabulated node the template returns the converted value
	assert.InEpsilon(t, 4.0, m.Spectral.Evaluate(1e-4), 1e-9)
}

func TestIsotropicDiffuse_Errors(t *testing.T) {
	_, err := IsotropicDiffuse("testdata/missing.txt", "00")
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelLoad))

	_, err = isotropicFromTable([]float64{1e-4}, []float64{1}, "one-row.txt", "01")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelLoad))
	assert.Equal(t, "fermi-diffuse-iso-01", errors.Normalize(err).Source)
}

func TestGalacticDiffuse(t *testing.T) {
	m, err := GalacticDiffuse(createTestDiffuseMap())
	require.NoError(t, err)
	assert.Equal(t, GalacticDiffuseName, m.Name)

	norm := m.Spectral.Parameters().Get("norm")
	assert.Equal(t, 0.0, norm.Min)
	assert.Equal(t, 10.0, norm.Max)
	assert.False(t, norm.Frozen)

	tpl, ok := m.Spatial.(*modeling.TemplateSpatialModel)
	require.True(t, ok)
	assert.False(t, tpl.Normalize())
	assert.Equal(t, "cm-2 s-1 MeV-1 sr-1", tpl.Map().Unit)
	assert.Equal(t, "/aux/gll_iem_v07.fits", tpl.Filename())
}

func TestGalacticDiffuseFile(t *testing.T) {
	maps := stubMaps{"/aux/gll_iem_v07.fits": createTestDiffuseMap()}

	m, err := GalacticDiffuseFile("/aux/gll_iem_v07.fits", maps)
	require.NoError(t, err)
	assert.Equal(t, GalacticDiffuseName, m.Name)

	_, err = GalacticDiffuseFile("/aux/missing.fits", maps)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelLoad))
	assert.Equal(t, GalacticDiffuseName, errors.Normalize(err).Source)
}

func TestGalacticDiffuseFile_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gll_iem_v07.fits")
	require.NoError(t, skymap.WriteFile(path, createTestDiffuseMap()))

	m, err := GalacticDiffuseFile(path, skymap.NewFITSReader())
	require.NoError(t, err)

	tpl, ok := m.Spatial.(*modeling.TemplateSpatialModel)
	require.True(t, ok)
	assert.Equal(t, path, tpl.Filename())
	assert.Equal(t, 2, tpl.Map().Geom.NZ)
	assert.InEpsilon(t, 1e-7, tpl.Map().At(4, 2, 1), 1e-12)
}
