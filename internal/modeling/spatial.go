package modeling

import (
	"fmt"
	"math"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/coords"
	"skymodel-workers/internal/skymap"
	"skymodel-workers/internal/units"
)

// SpatialModel is a surface brightness distribution in sr-1.
type SpatialModel interface {
	Family() SpatialFamily
	Frame() string
	Parameters() Parameters
	// Evaluate returns the brightness at (lon, lat) given in the model frame.
	Evaluate(lon, lat float64) float64
	Spec() ModelSpec
}

type spatialEval func(p Parameters, lon, lat float64) float64

// AnalyticSpatialModel is a parametric spatial family.
type AnalyticSpatialModel struct {
	family SpatialFamily
	frame  string
	params Parameters
	eval   spatialEval
}

// NewSpatialModel instantiates a parametric family with its default
// parameters in frame. Templates need a map; use NewTemplateSpatialModel.
func NewSpatialModel(f SpatialFamily, frame string) (*AnalyticSpatialModel, error) {
	if frame == "" {
		frame = coords.ICRS
	}
	m := &AnalyticSpatialModel{family: f, frame: frame}
	switch f {
	case PointSpatial:
		m.params = positionParams()
		m.eval = func(Parameters, float64, float64) float64 { return 0 }
	case GaussianSpatial:
		m.params = append(positionParams(),
			bounded(NewParameter("sigma", 1, units.Degree), 0, math.NaN()),
			bounded(NewParameter("e", 0, ""), 0, 1).frozen(),
			NewParameter("phi", 0, units.Degree).frozen(),
		)
		m.eval = evalGaussian
	case DiskSpatial:
		m.params = append(positionParams(),
			bounded(NewParameter("r_0", 1, units.Degree), 0, math.NaN()),
			bounded(NewParameter("e", 0, ""), 0, 1).frozen(),
			NewParameter("phi", 0, units.Degree).frozen(),
			bounded(NewParameter("edge_width", 0.01, ""), 0, 1).frozen(),
		)
		m.eval = evalDisk
	case ConstantSpatial:
		m.params = Parameters{NewParameter("value", 1, units.InverseSr).frozen()}
		m.eval = func(p Parameters, _, _ float64) float64 { return p.Value("value") }
	default:
		return nil, errors.NewModelTypeError("spatial", f.Tag(), []string{
			PointSpatial.Tag(), GaussianSpatial.Tag(), DiskSpatial.Tag(), ConstantSpatial.Tag(),
		})
	}
	return m, nil
}

func positionParams() Parameters {
	return Parameters{
		NewParameter("lon_0", 0, units.Degree),
		bounded(NewParameter("lat_0", 0, units.Degree), -90, 90),
	}
}

func bounded(p *Parameter, min, max float64) *Parameter {
	p.Min, p.Max = min, max
	return p
}

func (m *AnalyticSpatialModel) Family() SpatialFamily  { return m.family }
func (m *AnalyticSpatialModel) Frame() string          { return m.frame }
func (m *AnalyticSpatialModel) Parameters() Parameters { return m.params }

func (m *AnalyticSpatialModel) Evaluate(lon, lat float64) float64 {
	return m.eval(m.params, lon, lat)
}

// Position returns the model centre.
func (m *AnalyticSpatialModel) Position() coords.SkyCoord {
	return coords.SkyCoord{Lon: m.params.Value("lon_0"), Lat: m.params.Value("lat_0"), Frame: m.frame}
}

func (m *AnalyticSpatialModel) Spec() ModelSpec {
	return ModelSpec{Type: m.family.Tag(), Frame: m.frame, Parameters: m.params.Values()}
}

// effectiveRadius is the radius of an ellipse with semi-major axis major and
// eccentricity e along the direction from the centre to (lon, lat).
func effectiveRadius(p Parameters, major, lon, lat float64) float64 {
	e := p.Value("e")
	if e == 0 {
		return major
	}
	centre := coords.SkyCoord{Lon: p.Value("lon_0"), Lat: p.Value("lat_0")}
	pa := coords.PositionAngle(centre, coords.SkyCoord{Lon: lon, Lat: lat})
	dphi := (pa - p.Value("phi")) * math.Pi / 180
	return major * math.Sqrt((1-e*e)/(1-math.Pow(e*math.Cos(dphi), 2)))
}

func separation(p Parameters, lon, lat float64) float64 {
	return coords.Separation(
		coords.SkyCoord{Lon: p.Value("lon_0"), Lat: p.Value("lat_0")},
		coords.SkyCoord{Lon: lon, Lat: lat},
	)
}

func evalGaussian(p Parameters, lon, lat float64) float64 {
	d2r := math.Pi / 180
	sigma := p.Value("sigma") * d2r
	if sigma <= 0 {
		return 0
	}
	sigmaEff := effectiveRadius(p, p.Value("sigma"), lon, lat) * d2r
	sep := separation(p, lon, lat) * d2r

	a := 1 - math.Cos(sigma)
	norm := 1 / (4 * math.Pi * a * (1 - math.Exp(-1/a)))
	norm /= math.Sqrt(1 - math.Pow(p.Value("e"), 2))
	return norm * math.Exp(-0.5*(1-math.Cos(sep))/(1-math.Cos(sigmaEff)))
}

func evalDisk(p Parameters, lon, lat float64) float64 {
	d2r := math.Pi / 180
	r0 := p.Value("r_0")
	if r0 <= 0 {
		return 0
	}
	rEff := effectiveRadius(p, r0, lon, lat)
	sep := separation(p, lon, lat)

	norm := 1 / (2 * math.Pi * (1 - math.Cos(r0*d2r)))
	norm /= math.Sqrt(1 - math.Pow(p.Value("e"), 2))

	width := p.Value("edge_width") * rEff
	if width == 0 {
		if sep <= rEff {
			return norm
		}
		return 0
	}
	// linear ramp across the edge
	frac := 0.5 - (sep-rEff)/width
	return norm * math.Max(0, math.Min(1, frac))
}

// TemplateSpatialModel wraps a sky map. With normalize set each plane is
// scaled to integrate to one and the unit becomes sr-1.
type TemplateSpatialModel struct {
	m         *skymap.Map
	filename  string
	normalize bool
}

// NewTemplateSpatialModel wraps m. The map is copied.
func NewTemplateSpatialModel(m *skymap.Map, normalize bool) (*TemplateSpatialModel, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	cp := m.Copy("")
	if normalize {
		plane := cp.Geom.NX * cp.Geom.NY
		for k := 0; k < cp.Geom.NZ; k++ {
			total := cp.Integral(k)
			if total == 0 {
				return nil, fmt.Errorf("template plane %d integrates to zero", k)
			}
			for i := k * plane; i < (k+1)*plane; i++ {
				cp.Data[i] /= total
			}
		}
		cp.Unit = units.InverseSr
	}
	return &TemplateSpatialModel{m: cp, filename: m.Filename, normalize: normalize}, nil
}

func (t *TemplateSpatialModel) Family() SpatialFamily { return TemplateSpatial }
func (t *TemplateSpatialModel) Frame() string         { return t.m.Geom.Frame() }

// Parameters is empty; templates are fixed shapes.
func (t *TemplateSpatialModel) Parameters() Parameters { return Parameters{} }

// Map returns the underlying map.
func (t *TemplateSpatialModel) Map() *skymap.Map { return t.m }

func (t *TemplateSpatialModel) Normalize() bool  { return t.normalize }
func (t *TemplateSpatialModel) Filename() string { return t.filename }

// Evaluate samples the first plane; positions outside the map are zero.
func (t *TemplateSpatialModel) Evaluate(lon, lat float64) float64 {
	i, j, ok := t.m.Geom.Pixel(lon, lat)
	if !ok {
		return 0
	}
	return t.m.At(i, j, 0)
}

func (t *TemplateSpatialModel) Spec() ModelSpec {
	normalize := t.normalize
	return ModelSpec{
		Type:      TemplateSpatial.Tag(),
		Frame:     t.Frame(),
		Filename:  t.filename,
		Normalize: &normalize,
	}
}
