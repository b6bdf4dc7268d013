// Package coords holds sky positions and the equatorial to galactic rotation.
package coords

import (
	"fmt"
	"math"
	"strings"
)

// Frame names as used in model files.
const (
	ICRS     = "icrs"
	FK5      = "fk5"
	Galactic = "galactic"
)

// SkyCoord is a position on the sky in degrees.
type SkyCoord struct {
	Lon   float64 `yaml:"lon" json:"lon"`
	Lat   float64 `yaml:"lat" json:"lat"`
	Frame string  `yaml:"frame" json:"frame"`
}

// J2000 equatorial (FK5) to galactic rotation matrix.
var fk5ToGal = [3][3]float64{
	{-0.0548755604162154, -0.8734370902348850, -0.4838350155487132},
	{0.4941094278755837, -0.4448296299600112, 0.7469822444972189},
	{-0.8676661490190047, -0.1980763734312015, 0.4559837761750669},
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

func toCartesian(lon, lat float64) [3]float64 {
	lo, la := deg2rad(lon), deg2rad(lat)
	return [3]float64{math.Cos(la) * math.Cos(lo), math.Cos(la) * math.Sin(lo), math.Sin(la)}
}

func fromCartesian(v [3]float64) (float64, float64) {
	lon := rad2deg(math.Atan2(v[1], v[0]))
	if lon < 0 {
		lon += 360
	}
	lat := rad2deg(math.Asin(math.Max(-1, math.Min(1, v[2]))))
	return lon, lat
}

// ToGalactic transforms c into the galactic frame. ICRS and FK5 (J2000) are
// treated as the same frame; their offset is far below template pixel sizes.
func ToGalactic(c SkyCoord) (SkyCoord, error) {
	switch normalizeFrame(c.Frame) {
	case Galactic:
		return SkyCoord{Lon: c.Lon, Lat: c.Lat, Frame: Galactic}, nil
	case ICRS, FK5:
		v := toCartesian(c.Lon, c.Lat)
		var g [3]float64
		for i := 0; i < 3; i++ {
			g[i] = fk5ToGal[i][0]*v[0] + fk5ToGal[i][1]*v[1] + fk5ToGal[i][2]*v[2]
		}
		l, b := fromCartesian(g)
		return SkyCoord{Lon: l, Lat: b, Frame: Galactic}, nil
	default:
		return SkyCoord{}, fmt.Errorf("unsupported frame %q", c.Frame)
	}
}

// ToEquatorial transforms c into the given equatorial frame (icrs or fk5).
func ToEquatorial(c SkyCoord, frame string) (SkyCoord, error) {
	frame = normalizeFrame(frame)
	if frame != ICRS && frame != FK5 {
		return SkyCoord{}, fmt.Errorf("unsupported frame %q", frame)
	}
	switch normalizeFrame(c.Frame) {
	case ICRS, FK5:
		return SkyCoord{Lon: c.Lon, Lat: c.Lat, Frame: frame}, nil
	case Galactic:
		g := toCartesian(c.Lon, c.Lat)
		var v [3]float64
		// inverse of a rotation is its transpose
		for i := 0; i < 3; i++ {
			v[i] = fk5ToGal[0][i]*g[0] + fk5ToGal[1][i]*g[1] + fk5ToGal[2][i]*g[2]
		}
		ra, dec := fromCartesian(v)
		return SkyCoord{Lon: ra, Lat: dec, Frame: frame}, nil
	default:
		return SkyCoord{}, fmt.Errorf("unsupported frame %q", c.Frame)
	}
}

// Separation returns the angular distance between a and b in degrees. Both
// must be in the same frame.
func Separation(a, b SkyCoord) float64 {
	va, vb := toCartesian(a.Lon, a.Lat), toCartesian(b.Lon, b.Lat)
	cross := [3]float64{
		va[1]*vb[2] - va[2]*vb[1],
		va[2]*vb[0] - va[0]*vb[2],
		va[0]*vb[1] - va[1]*vb[0],
	}
	sin := math.Sqrt(cross[0]*cross[0] + cross[1]*cross[1] + cross[2]*cross[2])
	cos := va[0]*vb[0] + va[1]*vb[1] + va[2]*vb[2]
	return rad2deg(math.Atan2(sin, cos))
}

// PositionAngle returns the position angle of b seen from a, in degrees
// east of north. Both must be in the same frame.
func PositionAngle(a, b SkyCoord) float64 {
	lat1, lat2 := deg2rad(a.Lat), deg2rad(b.Lat)
	dlon := deg2rad(b.Lon - a.Lon)
	y := math.Sin(dlon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)
	return rad2deg(math.Atan2(y, x))
}

// Transform moves c into frame.
func Transform(c SkyCoord, frame string) (SkyCoord, error) {
	if normalizeFrame(frame) == Galactic {
		return ToGalactic(c)
	}
	return ToEquatorial(c, frame)
}

func normalizeFrame(f string) string {
	return strings.ToLower(strings.TrimSpace(f))
}
