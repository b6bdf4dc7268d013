// Package skymap holds WCS sky maps used as spatial templates.
package skymap

import (
	"fmt"
	"math"
	"strings"

	"skymodel-workers/internal/coords"
)

// Geom is a plate carrée style WCS geometry with an optional third
// (energy) axis.
type Geom struct {
	NX, NY, NZ     int
	CRVal1, CRVal2 float64
	CRPix1, CRPix2 float64 // FITS 1-based reference pixel
	CDelt1, CDelt2 float64
	CType1, CType2 string
}

// Frame derives the sky frame from the axis types.
func (g Geom) Frame() string {
	if strings.HasPrefix(strings.ToUpper(g.CType1), "GLON") {
		return coords.Galactic
	}
	return coords.ICRS
}

// PixelCenter returns the sky position of 0-based pixel (i, j).
func (g Geom) PixelCenter(i, j int) (float64, float64) {
	lon := g.CRVal1 + (float64(i+1)-g.CRPix1)*g.CDelt1
	lat := g.CRVal2 + (float64(j+1)-g.CRPix2)*g.CDelt2
	return lon, lat
}

// Pixel returns the 0-based pixel containing (lon, lat), or ok=false.
func (g Geom) Pixel(lon, lat float64) (int, int, bool) {
	if g.CDelt1 == 0 || g.CDelt2 == 0 {
		return 0, 0, false
	}
	dlon := lon - g.CRVal1
	// wrap into (-180, 180]
	dlon = math.Mod(dlon+540, 360) - 180
	i := int(math.Floor(dlon/g.CDelt1 + g.CRPix1 - 0.5)) // pixel centres sit at integer FITS coordinates
	j := int(math.Floor((lat-g.CRVal2)/g.CDelt2 + g.CRPix2 - 0.5))
	if i < 0 || j < 0 || i >= g.NX || j >= g.NY {
		return 0, 0, false
	}
	return i, j, true
}

// SolidAngle returns the solid angle of pixel (i, j) in steradians.
func (g Geom) SolidAngle(i, j int) float64 {
	_, lat := g.PixelCenter(i, j)
	d2r := math.Pi / 180
	return math.Abs(g.CDelt1*d2r*g.CDelt2*d2r) * math.Cos(lat*d2r)
}

// Map is a sky map. Data is laid out as [z][y][x].
type Map struct {
	Geom Geom
	Data []float64
	Unit string
	// Filename is set when the map was read from disk.
	Filename string
}

// New allocates an empty map.
func New(geom Geom, unit string) *Map {
	nz := geom.NZ
	if nz == 0 {
		nz = 1
	}
	geom.NZ = nz
	return &Map{Geom: geom, Data: make([]float64, geom.NX*geom.NY*nz), Unit: unit}
}

func (m *Map) index(i, j, k int) int {
	return (k*m.Geom.NY+j)*m.Geom.NX + i
}

// At returns the value of pixel (i, j) in plane k.
func (m *Map) At(i, j, k int) float64 {
	return m.Data[m.index(i, j, k)]
}

// Set assigns pixel (i, j) in plane k.
func (m *Map) Set(i, j, k int, v float64) {
	m.Data[m.index(i, j, k)] = v
}

// Copy returns a deep copy of the map carrying unit. An empty unit keeps the
// current one.
func (m *Map) Copy(unit string) *Map {
	cp := *m
	cp.Data = append([]float64(nil), m.Data...)
	if unit != "" {
		cp.Unit = unit
	}
	return &cp
}

// Integral returns sum(value * pixel solid angle) over plane k.
func (m *Map) Integral(k int) float64 {
	var total float64
	for j := 0; j < m.Geom.NY; j++ {
		for i := 0; i < m.Geom.NX; i++ {
			total += m.At(i, j, k) * m.Geom.SolidAngle(i, j)
		}
	}
	return total
}

// Validate checks the data length against the geometry.
func (m *Map) Validate() error {
	nz := m.Geom.NZ
	if nz == 0 {
		nz = 1
	}
	if m.Geom.NX <= 0 || m.Geom.NY <= 0 {
		return fmt.Errorf("map has empty spatial axes (%d x %d)", m.Geom.NX, m.Geom.NY)
	}
	if want := m.Geom.NX * m.Geom.NY * nz; len(m.Data) != want {
		return fmt.Errorf("map data has %d values, geometry needs %d", len(m.Data), want)
	}
	return nil
}
