package catalog

import (
	"path/filepath"
	"strings"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/coords"
	"skymodel-workers/internal/modeling"
	"skymodel-workers/internal/skymap"
	"skymodel-workers/internal/units"
)

// Catalog spatial model types.
const (
	SkyDirFunction = "SkyDirFunction"
	SpatialMap     = "SpatialMap"
	RadialGaussian = "RadialGaussian"
)

// SpatialBuilder builds spatial models from catalog spatial blocks.
// Template maps resolve to TemplatesDir/<basename of file>.
type SpatialBuilder struct {
	TemplatesDir string
	maps         skymap.Reader
}

func NewSpatialBuilder(templatesDir string, maps skymap.Reader) *SpatialBuilder {
	if maps == nil {
		maps = skymap.NewFITSReader()
	}
	return &SpatialBuilder{TemplatesDir: templatesDir, maps: maps}
}

// Build converts a spatial block. The returned model is not frozen; the
// assembler decides that.
func (b *SpatialBuilder) Build(block SpatialBlock) (modeling.SpatialModel, error) {
	switch block.Type {
	case SkyDirFunction:
		ra, dec, err := position(block)
		if err != nil {
			return nil, err
		}
		gal, err := coords.ToGalactic(coords.SkyCoord{Lon: ra, Lat: dec, Frame: coords.FK5})
		if err != nil {
			return nil, err
		}
		m, err := modeling.NewSpatialModel(modeling.PointSpatial, coords.Galactic)
		if err != nil {
			return nil, err
		}
		setDeg(m.Parameters(), "lon_0", gal.Lon)
		setDeg(m.Parameters(), "lat_0", gal.Lat)
		return m, nil

	case SpatialMap:
		base := block.File
		if i := strings.LastIndex(base, "/"); i >= 0 {
			base = base[i+1:]
		}
		if base == "" {
			return nil, errors.NewValidationError("spatialModel.file", "spatial map without file")
		}
		path := filepath.Join(b.TemplatesDir, base)
		raw, err := b.maps.Read(path)
		if err != nil {
			return nil, errors.NewModelLoadError(path, err)
		}
		mp := raw.Copy(units.InverseSr)
		mp.Filename = path
		tpl, err := modeling.NewTemplateSpatialModel(mp, true)
		if err != nil {
			return nil, errors.NewModelLoadError(path, err)
		}
		return tpl, nil

	case RadialGaussian:
		ra, dec, err := position(block)
		if err != nil {
			return nil, err
		}
		sigma, err := blockValue(block, "Sigma")
		if err != nil {
			return nil, err
		}
		m, err := modeling.NewSpatialModel(modeling.GaussianSpatial, coords.FK5)
		if err != nil {
			return nil, err
		}
		setDeg(m.Parameters(), "lon_0", ra)
		setDeg(m.Parameters(), "lat_0", dec)
		setDeg(m.Parameters(), "sigma", sigma)
		return m, nil

	default:
		return nil, errors.NewModelTypeError("spatial", block.Type, []string{RadialGaussian, SkyDirFunction, SpatialMap})
	}
}

func setDeg(ps modeling.Parameters, name string, v float64) {
	p := ps.Get(name)
	p.Value = v
	p.Unit = units.Degree
}

func position(block SpatialBlock) (float64, float64, error) {
	ra, err := blockValue(block, "RA")
	if err != nil {
		return 0, 0, err
	}
	dec, err := blockValue(block, "DEC")
	if err != nil {
		return 0, 0, err
	}
	return ra, dec, nil
}

// blockValue reads the value attribute of a named spatial parameter.
func blockValue(block SpatialBlock, name string) (float64, error) {
	for _, p := range block.Parameters {
		if p.Name == name {
			v, err := parseFloat(p.Value)
			if err != nil {
				return 0, errors.NewValidationError(name+".value", err.Error())
			}
			return v, nil
		}
	}
	return 0, errors.NewValidationError(name, "missing spatial parameter "+name)
}
