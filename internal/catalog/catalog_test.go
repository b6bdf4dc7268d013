package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymodel-workers/internal/common/errors"
)

const testCatalog = `<?xml version="1.0" ?>
<source_library title="source library">
  <source name="4FGL J0534.5+2201i" type="PointSource">
    <spectrum type="PowerLaw" normPar="Prefactor">
      <parameter free="1" max="1000" min="0.001" name="Prefactor" scale="1e-12" value="5.5"/>
      <parameter free="1" max="-1" min="-5" name="Index" scale="1" value="-2.2"/>
      <parameter free="0" max="1e5" min="30" name="Scale" scale="1" value="1000"/>
    </spectrum>
    <spatialModel type="SkyDirFunction">
      <parameter free="0" max="360" min="-360" name="RA" scale="1" value="83.63308"/>
      <parameter free="0" max="90" min="-90" name="DEC" scale="1" value="22.0145"/>
    </spatialModel>
  </source>
  <source name="Mkn_421" type="PointSource">
    <spectrum type="EblAtten::LogParabola">
      <parameter free="1" max="100" min="0.01" name="norm" scale="1e-11" value="2"/>
      <parameter free="1" max="5" min="0" name="alpha" scale="1" value="1.8"/>
      <parameter free="1" max="1" min="-1" name="beta" scale="1" value="0.04"/>
      <parameter free="0" max="1e5" min="30" name="Eb" scale="1" value="1200"/>
      <parameter free="0" max="10" min="0" name="redshift" scale="1" value="0.031"/>
    </spectrum>
    <spatialModel type="SkyDirFunction">
      <parameter free="0" max="360" min="-360" name="RA" scale="1" value="166.1138"/>
      <parameter free="0" max="90" min="-90" name="DEC" scale="1" value="38.2088"/>
    </spatialModel>
  </source>
  <source name="IsoDiffModel" type="DiffuseSource">
    <spectrum file="iso_P8R3_SOURCE_V3_v1.txt" type="FileFunction">
      <parameter free="1" max="10" min="0" name="Normalization" scale="1" value="1"/>
    </spectrum>
    <spatialModel type="ConstantValue">
      <parameter free="0" max="10" min="0" name="Value" scale="1" value="1"/>
    </spatialModel>
  </source>
</source_library>
`

func TestParse(t *testing.T) {
	lib, err := Parse(strings.NewReader(testCatalog))
	require.NoError(t, err)
	require.Len(t, lib.Sources, 3)

	crab := lib.Sources[0]
	assert.Equal(t, "4FGL J0534.5+2201i", crab.Name)
	assert.Equal(t, "PowerLaw", crab.Spectrum.Type)
	require.Len(t, crab.Spectrum.Parameters, 3)
	assert.Equal(t, RawParameter{Name: "Prefactor", Value: "5.5", Scale: "1e-12", Min: "0.001", Max: "1000", Free: "1"}, crab.Spectrum.Parameters[0])
	assert.Equal(t, SkyDirFunction, crab.Spatial.Type)
	assert.False(t, crab.IsDiffuse())

	mkn := lib.Sources[1]
	assert.True(t, mkn.Spectrum.Attenuated())
	assert.Equal(t, "LogParabola", mkn.Spectrum.BaseType())

	assert.True(t, lib.Sources[2].IsDiffuse())
}

func TestLibrary_Find(t *testing.T) {
	lib, err := Parse(strings.NewReader(testCatalog))
	require.NoError(t, err)

	tests := []struct {
		query string
		want  string
		found bool
	}{
		{"Mkn 421", "Mkn_421", true},
		{"Mkn421", "Mkn_421", true},
		{"mkn 421", "", false},
		{"4FGL_J0534.5+2201i", "4FGL J0534.5+2201i", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			src, ok := lib.Find(tt.query)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, src.Name)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.xml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	lib, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, lib.Sources, 3)

	_, err = Load(filepath.Join(dir, "missing.xml"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeCatalogLoadFailed))

	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte("<source_library><source"), 0o644))
	_, err = Load(bad)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCatalogLoadFailed))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Mkn421", NormalizeName("Mkn _421"))
	assert.Equal(t, "CrabNebula", NormalizeName("Crab Nebula"))
}
