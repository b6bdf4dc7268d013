package modeling

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/common/logger"
	"skymodel-workers/internal/coords"
	"skymodel-workers/internal/skymap"
	"skymodel-workers/internal/units"
)

type stubMapReader struct {
	maps map[string]*skymap.Map
}

func (s *stubMapReader) Read(path string) (*skymap.Map, error) {
	m, ok := s.maps[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return m.Copy(""), nil
}

func createTestSkyMap(unit string) *skymap.Map {
	m := skymap.New(skymap.Geom{
		NX: 3, NY: 3,
		CRVal1: 184.5575, CRVal2: -5.7843,
		CRPix1: 2, CRPix2: 2,
		CDelt1: -0.5, CDelt2: 0.5,
		CType1: "GLON-CAR", CType2: "GLAT-CAR",
	}, unit)
	for i := range m.Data {
		m.Data[i] = 2
	}
	m.Filename = "/aux/Templates/crab.fits"
	return m
}

func TestSpatialModel_Defaults(t *testing.T) {
	tests := []struct {
		family SpatialFamily
		names  []string
	}{
		{PointSpatial, []string{"lon_0", "lat_0"}},
		{GaussianSpatial, []string{"lon_0", "lat_0", "sigma", "e", "phi"}},
		{DiskSpatial, []string{"lon_0", "lat_0", "r_0", "e", "phi", "edge_width"}},
		{ConstantSpatial, []string{"value"}},
	}

	for _, tt := range tests {
		t.Run(tt.family.Tag(), func(t *testing.T) {
			m, err := NewSpatialModel(tt.family, "")
			require.NoError(t, err)
			assert.Equal(t, tt.names, m.Parameters().Names())
			assert.Equal(t, coords.ICRS, m.Frame())
		})
	}

	_, err := NewSpatialModel(TemplateSpatial, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelType))
}

func TestGaussianSpatialModel_Evaluate(t *testing.T) {
	m, err := NewSpatialModel(GaussianSpatial, coords.Galactic)
	require.NoError(t, err)
	m.Parameters().Get("lon_0").Value = 10
	m.Parameters().Get("sigma").Value = 0.1

	sigma := 0.1 * math.Pi / 180
	assert.InEpsilon(t, 1/(2*math.Pi*sigma*sigma), m.Evaluate(10, 0), 1e-3)
	assert.InEpsilon(t, math.Exp(-0.5)*m.Evaluate(10, 0), m.Evaluate(10, 0.1), 1e-3)

	// elongated along north: a step north falls off slower than a step east
	m.Parameters().Get("e").Value = 0.8
	north := m.Evaluate(10, 0.1)
	east := m.Evaluate(10.1, 0)
	assert.Greater(t, north, east)
}

func TestDiskSpatialModel_Evaluate(t *testing.T) {
	m, err := NewSpatialModel(DiskSpatial, coords.ICRS)
	require.NoError(t, err)
	m.Parameters().Get("r_0").Value = 0.5

	norm := 1 / (2 * math.Pi * (1 - math.Cos(0.5*math.Pi/180)))
	assert.InEpsilon(t, norm, m.Evaluate(0, 0), 1e-12)
	assert.InEpsilon(t, norm, m.Evaluate(0.4, 0), 1e-12)
	assert.InEpsilon(t, 0.5*norm, m.Evaluate(0.5, 0), 1e-6)
	assert.Equal(t, 0.0, m.Evaluate(0.6, 0))

	m.Parameters().Get("edge_width").Value = 0
	assert.Equal(t, 0.0, m.Evaluate(0.51, 0))
}

func TestConstantSpatialModel(t *testing.T) {
	m, err := NewSpatialModel(ConstantSpatial, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Evaluate(123, -45))
	assert.Equal(t, units.InverseSr, m.Parameters().Get("value").Unit)
	assert.True(t, m.Parameters().Get("value").Frozen)
}

func TestTemplateSpatialModel(t *testing.T) {
	src := createTestSkyMap("cm-2 s-1 sr-1")

	normalized, err := NewTemplateSpatialModel(src, true)
	require.NoError(t, err)
	assert.InEpsilon(t, 1.0, normalized.Map().Integral(0), 1e-12)
	assert.Equal(t, units.InverseSr, normalized.Map().Unit)
	assert.Equal(t, coords.Galactic, normalized.Frame())
	assert.Equal(t, "/aux/Templates/crab.fits", normalized.Spec().Filename)
	// source map untouched
	assert.Equal(t, 2.0, src.At(0, 0, 0))

	raw, err := NewTemplateSpatialModel(src, false)
	require.NoError(t, err)
	assert.Equal(t, "cm-2 s-1 sr-1", raw.Map().Unit)
	assert.Equal(t, 2.0, raw.Evaluate(184.5575, -5.7843))
	assert.Equal(t, 0.0, raw.Evaluate(0, 60))
	require.NotNil(t, raw.Spec().Normalize)
	assert.False(t, *raw.Spec().Normalize)
}

func TestTemplateSpatialModel_ZeroMap(t *testing.T) {
	src := createTestSkyMap("")
	for i := range src.Data {
		src.Data[i] = 0
	}
	_, err := NewTemplateSpatialModel(src, true)
	assert.ErrorContains(t, err, "integrates to zero")
}

func TestBuilder_Spatial(t *testing.T) {
	maps := &stubMapReader{maps: map[string]*skymap.Map{"/aux/Templates/crab.fits": createTestSkyMap("")}}
	b := NewBuilder("", maps, &stubEBLLoader{}, logger.NewTestLogger(t))

	t.Run("parametric with records", func(t *testing.T) {
		m, err := b.Spatial(ModelSpec{
			Type:  "PointSpatialModel",
			Frame: coords.Galactic,
			Parameters: []Parameter{
				record("lon_0", 184.5575, units.Degree),
				record("lat_0", -5.7843, units.Degree),
				record("sigma", 1, units.Degree),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, coords.Galactic, m.Frame())
		assert.Equal(t, 184.5575, m.Parameters().Value("lon_0"))
		assert.Len(t, m.Parameters(), 2)
	})

	t.Run("template defaults to normalized", func(t *testing.T) {
		m, err := b.Spatial(ModelSpec{Type: "TemplateSpatialModel", Filename: "/aux/Templates/crab.fits"})
		require.NoError(t, err)
		tpl := m.(*TemplateSpatialModel)
		assert.True(t, tpl.Normalize())
	})

	t.Run("empty type yields no model", func(t *testing.T) {
		m, err := b.Spatial(ModelSpec{})
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	errCases := []struct {
		name string
		spec ModelSpec
		code errors.ErrorCode
	}{
		{"unknown type", ModelSpec{Type: "ShellSpatialModel"}, errors.ErrCodeModelType},
		{"template without file", ModelSpec{Type: "template"}, errors.ErrCodeValidation},
		{"missing template", ModelSpec{Type: "template", Filename: "/aux/Templates/none.fits"}, errors.ErrCodeModelLoad},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Spatial(tt.spec)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), err.Error())
		})
	}
}
