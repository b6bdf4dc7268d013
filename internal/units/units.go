// Package units converts between the compound unit strings used on model
// parameters, e.g. "cm-2 s-1 TeV-1" to "m-2 s-1 GeV-1".
package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Canonical unit tags used by the model builders.
const (
	TeV           = "TeV"
	MeV           = "MeV"
	InverseTeV    = "TeV-1"
	DiffFlux      = "cm-2 s-1 TeV-1"
	IntFlux       = "cm-2 s-1"
	Degree        = "deg"
	InverseSr     = "sr-1"
	Dimensionless = ""
)

type dimension string

const (
	dimEnergy dimension = "energy"
	dimLength dimension = "length"
	dimTime   dimension = "time"
	dimAngle  dimension = "angle"
	dimSolid  dimension = "solid"
)

type base struct {
	dim    dimension
	factor float64 // in the reference unit of dim
}

// Reference units: TeV, cm, s, deg, sr.
var bases = map[string]base{
	"eV":     {dimEnergy, 1e-12},
	"keV":    {dimEnergy, 1e-9},
	"MeV":    {dimEnergy, 1e-6},
	"GeV":    {dimEnergy, 1e-3},
	"TeV":    {dimEnergy, 1},
	"PeV":    {dimEnergy, 1e3},
	"erg":    {dimEnergy, 0.624150907446076},
	"cm":     {dimLength, 1},
	"m":      {dimLength, 100},
	"s":      {dimTime, 1},
	"deg":    {dimAngle, 1},
	"rad":    {dimAngle, 180 / math.Pi},
	"arcmin": {dimAngle, 1.0 / 60},
	"arcsec": {dimAngle, 1.0 / 3600},
	"sr":     {dimSolid, 1},
}

// Unit is a parsed compound unit.
type Unit struct {
	factor float64
	dims   map[dimension]int
}

// Parse reads a space separated product of base units with optional
// integer powers ("cm-2 s-1 TeV-1", "TeV", "sr^-1"). Blank strings are
// dimensionless.
func Parse(s string) (Unit, error) {
	u := Unit{factor: 1, dims: map[dimension]int{}}
	for _, tok := range strings.Fields(s) {
		name, pow, err := splitPower(tok)
		if err != nil {
			return Unit{}, fmt.Errorf("unit %q: %w", s, err)
		}
		b, ok := bases[name]
		if !ok {
			return Unit{}, fmt.Errorf("unit %q: unknown unit %q", s, name)
		}
		u.factor *= math.Pow(b.factor, float64(pow))
		u.dims[b.dim] += pow
		if u.dims[b.dim] == 0 {
			delete(u.dims, b.dim)
		}
	}
	return u, nil
}

func splitPower(tok string) (string, int, error) {
	i := strings.IndexFunc(tok, func(r rune) bool {
		return r == '-' || r == '+' || r == '^' || unicode.IsDigit(r)
	})
	if i < 0 {
		return tok, 1, nil
	}
	name := tok[:i]
	p := strings.TrimPrefix(tok[i:], "^")
	pow, err := strconv.Atoi(p)
	if err != nil || name == "" {
		return "", 0, fmt.Errorf("malformed token %q", tok)
	}
	return name, pow, nil
}

// Compatible reports whether both units have the same dimensions.
func (u Unit) Compatible(o Unit) bool {
	if len(u.dims) != len(o.dims) {
		return false
	}
	for d, p := range u.dims {
		if o.dims[d] != p {
			return false
		}
	}
	return true
}

// Convert rescales value from unit `from` to unit `to`.
func Convert(value float64, from, to string) (float64, error) {
	if strings.TrimSpace(from) == strings.TrimSpace(to) {
		return value, nil
	}
	f, err := Parse(from)
	if err != nil {
		return 0, err
	}
	t, err := Parse(to)
	if err != nil {
		return 0, err
	}
	if !f.Compatible(t) {
		return 0, fmt.Errorf("cannot convert %q to %q", from, to)
	}
	return value * f.factor / t.factor, nil
}

// IsBlank reports whether a unit tag carries no unit.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Quantity is a value with a unit tag, as written in configs ("83.63 deg").
type Quantity struct {
	Value float64
	Unit  string
}

// ParseQuantity splits "<number> <unit>" into a Quantity. A bare number has
// no unit.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Quantity{}, fmt.Errorf("empty quantity")
	}
	num, unit := s, ""
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		num, unit = s[:i], strings.TrimSpace(s[i:])
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("quantity %q: %w", s, err)
	}
	return Quantity{Value: v, Unit: unit}, nil
}

// To converts the quantity to unit.
func (q Quantity) To(unit string) (float64, error) {
	if IsBlank(q.Unit) {
		return q.Value, nil
	}
	return Convert(q.Value, q.Unit, unit)
}
