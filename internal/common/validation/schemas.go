package validation

// ParameterSchema describes one structured-config parameter record.
func ParameterSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name":   map[string]interface{}{"type": "string", "minLength": 1},
			"value":  map[string]interface{}{"type": "number"},
			"unit":   map[string]interface{}{"type": "string"},
			"error":  map[string]interface{}{"type": "number"},
			"min":    map[string]interface{}{"type": "number"},
			"max":    map[string]interface{}{"type": "number"},
			"frozen": map[string]interface{}{"type": "boolean"},
		},
		"required": []interface{}{"name"},
	}
}

func modelSchema(withAttenuation bool) map[string]interface{} {
	props := map[string]interface{}{
		"type": map[string]interface{}{"type": "string"},
		"parameters": map[string]interface{}{
			"type":  "array",
			"items": ParameterSchema(),
		},
	}
	if withAttenuation {
		props["ebl_abs"] = map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"filename":   map[string]interface{}{"type": "string"},
				"reference":  map[string]interface{}{"type": "string"},
				"type":       map[string]interface{}{"type": "string"},
				"redshift":   map[string]interface{}{"type": "number", "minimum": 0},
				"alpha_norm": map[string]interface{}{"type": "number"},
			},
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
}

// TargetSchema describes the `target` section of an analysis config.
func TargetSchema() map[string]interface{} {
	angle := map[string]interface{}{"type": []interface{}{"string", "number"}}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"source_name": map[string]interface{}{"type": "string", "minLength": 1},
			"sky_position": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame":  map[string]interface{}{"type": "string"},
					"lon":    angle,
					"lat":    angle,
					"radius": angle,
				},
			},
			"use_uniform_position": map[string]interface{}{"type": "boolean"},
			"models_file":          map[string]interface{}{"type": "string"},
			"extended":             map[string]interface{}{"type": "boolean"},
			"covariance":           map[string]interface{}{"type": "string"},
			"from_3d":              map[string]interface{}{"type": "boolean"},
			"components": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"name":     map[string]interface{}{"type": "string"},
						"type":     map[string]interface{}{"type": "string"},
						"spectral": modelSchema(true),
						"spatial":  modelSchema(false),
					},
				},
			},
		},
		"required": []interface{}{"source_name"},
	}
}
