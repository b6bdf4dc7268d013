// Package target assembles the sky models of an analysis: the target from
// its config, the field sources from a legacy catalog, and the diffuse
// backgrounds. It also binds the result to a dataset collection.
package target

import (
	"fmt"

	"skymodel-workers/internal/coords"
	"skymodel-workers/internal/modeling"
	"skymodel-workers/internal/units"
)

// Target is the `target` section of an analysis config.
type Target struct {
	SourceName         string      `mapstructure:"source_name" yaml:"source_name" json:"sourceName"`
	SkyPosition        SkyPosition `mapstructure:"sky_position" yaml:"sky_position" json:"skyPosition"`
	UseUniformPosition bool        `mapstructure:"use_uniform_position" yaml:"use_uniform_position" json:"useUniformPosition"`
	ModelsFile         string      `mapstructure:"models_file" yaml:"models_file,omitempty" json:"modelsFile,omitempty"`
	Extended           bool        `mapstructure:"extended" yaml:"extended" json:"extended"`
	Components         []Component `mapstructure:"components" yaml:"components,omitempty" json:"components,omitempty"`
	Covariance         string      `mapstructure:"covariance" yaml:"covariance,omitempty" json:"covariance,omitempty"`
	From3D             bool        `mapstructure:"from_3d" yaml:"from_3d" json:"from3d"`
}

// SkyPosition holds angles as written in the config ("83.633 deg" or a
// bare number of degrees).
type SkyPosition struct {
	Frame  string `mapstructure:"frame" yaml:"frame" json:"frame"`
	Lon    string `mapstructure:"lon" yaml:"lon" json:"lon"`
	Lat    string `mapstructure:"lat" yaml:"lat" json:"lat"`
	Radius string `mapstructure:"radius" yaml:"radius,omitempty" json:"radius,omitempty"`
}

// Component is one sky model described in the config.
type Component struct {
	Name     string      `mapstructure:"name" yaml:"name" json:"name"`
	Type     string      `mapstructure:"type" yaml:"type" json:"type"`
	Spectral ModelConfig `mapstructure:"spectral" yaml:"spectral" json:"spectral"`
	Spatial  ModelConfig `mapstructure:"spatial" yaml:"spatial" json:"spatial"`
}

// ModelConfig is a spectral or spatial block. EBLAbs is only read on
// spectral blocks.
type ModelConfig struct {
	Type       string               `mapstructure:"type" yaml:"type" json:"type"`
	Frame      string               `mapstructure:"frame" yaml:"frame,omitempty" json:"frame,omitempty"`
	Filename   string               `mapstructure:"filename" yaml:"filename,omitempty" json:"filename,omitempty"`
	Parameters []modeling.Parameter `mapstructure:"parameters" yaml:"parameters" json:"parameters"`
	EBLAbs     *AttenuationConfig   `mapstructure:"ebl_abs" yaml:"ebl_abs,omitempty" json:"eblAbs,omitempty"`
}

// AttenuationConfig is the `ebl_abs` block.
type AttenuationConfig = modeling.AttenuationSpec

// DefaultParameter is the record a config parameter starts from before the
// fields it sets are applied.
func DefaultParameter() modeling.Parameter {
	return modeling.Parameter{
		Value:  1,
		Unit:   " ",
		Error:  0.1,
		Min:    0.1,
		Max:    10,
		Frozen: true,
	}
}

// DefaultTarget returns the field defaults of a target section.
func DefaultTarget() Target {
	return Target{UseUniformPosition: true}
}

// AttenuationRequested reports whether the block names an attenuation
// model to apply.
func (m ModelConfig) AttenuationRequested() bool {
	return m.EBLAbs != nil && (m.EBLAbs.Reference != "" || m.EBLAbs.Filename != "")
}

// ToSpec converts the block to a model spec, without attenuation.
func (m ModelConfig) ToSpec() modeling.ModelSpec {
	spec := modeling.ModelSpec{
		Type:     m.Type,
		Frame:    m.Frame,
		Filename: m.Filename,
	}
	if len(m.Parameters) > 0 {
		spec.Parameters = append([]modeling.Parameter(nil), m.Parameters...)
	}
	return spec
}

// ToDict renders the block as plain maps, in the layout of the config file.
func (m ModelConfig) ToDict() map[string]interface{} {
	params := make([]interface{}, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		params = append(params, map[string]interface{}{
			"name":   p.Name,
			"value":  p.Value,
			"unit":   p.Unit,
			"error":  p.Error,
			"min":    p.Min,
			"max":    p.Max,
			"frozen": p.Frozen,
		})
	}
	out := map[string]interface{}{
		"type":       m.Type,
		"parameters": params,
	}
	if m.Frame != "" {
		out["frame"] = m.Frame
	}
	if m.Filename != "" {
		out["filename"] = m.Filename
	}
	if m.EBLAbs != nil {
		out["ebl_abs"] = map[string]interface{}{
			"filename":   m.EBLAbs.Filename,
			"reference":  m.EBLAbs.Reference,
			"type":       m.EBLAbs.Type,
			"redshift":   m.EBLAbs.Redshift,
			"alpha_norm": m.EBLAbs.AlphaNorm,
		}
	}
	return out
}

// ToDict renders the target section as plain maps.
func (t Target) ToDict() map[string]interface{} {
	comps := make([]interface{}, 0, len(t.Components))
	for _, c := range t.Components {
		comps = append(comps, map[string]interface{}{
			"name":     c.Name,
			"type":     c.Type,
			"spectral": c.Spectral.ToDict(),
			"spatial":  c.Spatial.ToDict(),
		})
	}
	out := map[string]interface{}{
		"source_name":          t.SourceName,
		"use_uniform_position": t.UseUniformPosition,
		"extended":             t.Extended,
		"from_3d":              t.From3D,
		"components":           comps,
	}
	if t.SkyPosition != (SkyPosition{}) {
		out["sky_position"] = map[string]interface{}{
			"frame":  t.SkyPosition.Frame,
			"lon":    t.SkyPosition.Lon,
			"lat":    t.SkyPosition.Lat,
			"radius": t.SkyPosition.Radius,
		}
	}
	if t.ModelsFile != "" {
		out["models_file"] = t.ModelsFile
	}
	if t.Covariance != "" {
		out["covariance"] = t.Covariance
	}
	return out
}

// Coord parses the sky position. ok is false when no position is set.
func (p SkyPosition) Coord() (c coords.SkyCoord, ok bool, err error) {
	if p.Lon == "" && p.Lat == "" {
		return coords.SkyCoord{}, false, nil
	}
	lon, err := angle(p.Lon)
	if err != nil {
		return coords.SkyCoord{}, false, fmt.Errorf("sky_position.lon: %w", err)
	}
	lat, err := angle(p.Lat)
	if err != nil {
		return coords.SkyCoord{}, false, fmt.Errorf("sky_position.lat: %w", err)
	}
	frame := p.Frame
	if frame == "" {
		frame = coords.ICRS
	}
	return coords.SkyCoord{Lon: lon, Lat: lat, Frame: frame}, true, nil
}

func angle(s string) (float64, error) {
	q, err := units.ParseQuantity(s)
	if err != nil {
		return 0, err
	}
	return q.To(units.Degree)
}
