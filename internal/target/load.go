package target

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/common/validation"
	"skymodel-workers/internal/modeling"
)

const sectionKey = "target"

// LoadFile reads the `target` section of an analysis config file.
func LoadFile(path string) (*Target, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.NewConfigLoadFailedError(path, err)
	}

	raw := v.GetStringMap(sectionKey)
	if len(raw) == 0 {
		return nil, errors.NewConfigLoadFailedError(path, fmt.Errorf("no %q section", sectionKey))
	}
	return Decode(raw)
}

// Decode validates a loosely typed target section, fills defaults and
// decodes it. Job variables and config files both come through here.
func Decode(raw map[string]interface{}) (*Target, error) {
	result, err := validation.Validate(validation.TargetSchema(), raw)
	if err != nil {
		return nil, errors.NewValidationError(sectionKey, err.Error())
	}
	if !result.Valid {
		return nil, errors.NewValidationError(
			result.FirstField(), strings.Join(result.GetErrorMessages(), "; "))
	}

	v := viper.New()
	if err := v.MergeConfigMap(map[string]interface{}{sectionKey: withDefaults(raw)}); err != nil {
		return nil, errors.NewValidationError(sectionKey, err.Error())
	}

	t := DefaultTarget()
	if err := v.UnmarshalKey(sectionKey, &t); err != nil {
		return nil, errors.NewValidationError(sectionKey, err.Error())
	}
	return &t, nil
}

// withDefaults copies raw, filling the fields of parameter records and
// attenuation blocks the config leaves out.
func withDefaults(raw map[string]interface{}) map[string]interface{} {
	out := copyMap(raw)
	comps, ok := out["components"].([]interface{})
	if !ok {
		return out
	}
	filled := make([]interface{}, len(comps))
	for i, c := range comps {
		comp, ok := c.(map[string]interface{})
		if !ok {
			filled[i] = c
			continue
		}
		comp = copyMap(comp)
		for _, key := range []string{"spectral", "spatial"} {
			if block, ok := comp[key].(map[string]interface{}); ok {
				comp[key] = blockWithDefaults(block, key == "spectral")
			}
		}
		filled[i] = comp
	}
	out["components"] = filled
	return out
}

func blockWithDefaults(block map[string]interface{}, spectral bool) map[string]interface{} {
	out := copyMap(block)
	if params, ok := out["parameters"].([]interface{}); ok {
		def := DefaultParameter()
		filled := make([]interface{}, len(params))
		for i, p := range params {
			rec, ok := p.(map[string]interface{})
			if !ok {
				filled[i] = p
				continue
			}
			filled[i] = fill(rec, map[string]interface{}{
				"value":  def.Value,
				"unit":   def.Unit,
				"error":  def.Error,
				"min":    def.Min,
				"max":    def.Max,
				"frozen": def.Frozen,
			})
		}
		out["parameters"] = filled
	}
	if ebl, ok := out["ebl_abs"].(map[string]interface{}); ok && spectral {
		def := modeling.DefaultAttenuationSpec()
		out["ebl_abs"] = fill(ebl, map[string]interface{}{
			"filename":   def.Filename,
			"reference":  def.Reference,
			"type":       def.Type,
			"redshift":   def.Redshift,
			"alpha_norm": def.AlphaNorm,
		})
	}
	return out
}

func fill(rec, defaults map[string]interface{}) map[string]interface{} {
	out := copyMap(rec)
	for k, v := range defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
