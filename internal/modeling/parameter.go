package modeling

import (
	"fmt"
	"math"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/units"
)

// Parameter is one physical fit parameter in canonical units. Unbounded
// limits are NaN.
type Parameter struct {
	Name   string  `yaml:"name" mapstructure:"name" json:"name"`
	Value  float64 `yaml:"value" mapstructure:"value" json:"value"`
	Unit   string  `yaml:"unit" mapstructure:"unit" json:"unit"`
	Error  float64 `yaml:"error" mapstructure:"error" json:"error"`
	Min    float64 `yaml:"min" mapstructure:"min" json:"min"`
	Max    float64 `yaml:"max" mapstructure:"max" json:"max"`
	Frozen bool    `yaml:"frozen" mapstructure:"frozen" json:"frozen"`
	IsNorm bool    `yaml:"is_norm,omitempty" mapstructure:"is_norm" json:"isNorm,omitempty"`
}

// NewParameter returns an unbounded free parameter.
func NewParameter(name string, value float64, unit string) *Parameter {
	return &Parameter{Name: name, Value: value, Unit: unit, Min: math.NaN(), Max: math.NaN()}
}

func (p *Parameter) frozen() *Parameter {
	p.Frozen = true
	return p
}

func (p *Parameter) norm() *Parameter {
	p.IsNorm = true
	return p
}

// Validate checks that the value is finite and the bounds are ordered.
func (p *Parameter) Validate() error {
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return errors.NewValidationError(p.Name, fmt.Sprintf("value %v is not finite", p.Value))
	}
	if !math.IsNaN(p.Min) && !math.IsNaN(p.Max) && p.Min > p.Max {
		return errors.NewValidationError(p.Name, fmt.Sprintf("min %g is greater than max %g", p.Min, p.Max))
	}
	return nil
}

func (p *Parameter) Clone() *Parameter {
	cp := *p
	return &cp
}

// Parameters is an ordered parameter list; lookup is by name.
type Parameters []*Parameter

// Get returns the named parameter or nil.
func (ps Parameters) Get(name string) *Parameter {
	for _, p := range ps {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Value returns the value of the named parameter, NaN when absent.
func (ps Parameters) Value(name string) float64 {
	if p := ps.Get(name); p != nil {
		return p.Value
	}
	return math.NaN()
}

func (ps Parameters) Names() []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name
	}
	return names
}

func (ps Parameters) Clone() Parameters {
	out := make(Parameters, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

// Freeze marks every parameter frozen.
func (ps Parameters) Freeze() {
	for _, p := range ps {
		p.Frozen = true
	}
}

// Free returns the parameters that are not frozen.
func (ps Parameters) Free() Parameters {
	var out Parameters
	for _, p := range ps {
		if !p.Frozen {
			out = append(out, p)
		}
	}
	return out
}

// Values copies the parameters out by value, for serialization.
func (ps Parameters) Values() []Parameter {
	out := make([]Parameter, len(ps))
	for i, p := range ps {
		out[i] = *p
	}
	return out
}

// Apply copies each record onto the parameter of the same name. Records with
// no matching parameter are returned as ignored. Values are converted into
// the target parameter's unit when both units are set and compatible;
// otherwise the record replaces the parameter as given.
func (ps Parameters) Apply(records []Parameter) (ignored []string, err error) {
	for _, rec := range records {
		target := ps.Get(rec.Name)
		if target == nil {
			ignored = append(ignored, rec.Name)
			continue
		}

		factor := 1.0
		unit := target.Unit
		switch {
		case units.IsBlank(rec.Unit):
		case units.IsBlank(target.Unit):
			unit = rec.Unit
		default:
			f, convErr := units.Convert(1, rec.Unit, target.Unit)
			if convErr != nil {
				unit = rec.Unit
			} else {
				factor = f
			}
		}

		target.Value = rec.Value * factor
		target.Error = rec.Error * factor
		target.Min = rec.Min * factor
		target.Max = rec.Max * factor
		target.Unit = unit
		target.Frozen = rec.Frozen
		target.IsNorm = target.IsNorm || rec.IsNorm

		if err := target.Validate(); err != nil {
			return ignored, err
		}
	}
	return ignored, nil
}
