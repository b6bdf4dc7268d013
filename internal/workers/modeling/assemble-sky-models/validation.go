package assembleskymodels

import "skymodel-workers/internal/common/validation"

// GetInputSchema describes the job variables. The target section is checked
// again in full when it is decoded.
func GetInputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"target", "datasets"},
		"properties": map[string]interface{}{
			"target": validation.TargetSchema(),
			"datasets": map[string]interface{}{
				"type":     "array",
				"minItems": 1,
				"items": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"name"},
					"properties": map[string]interface{}{
						"name": map[string]interface{}{"type": "string", "minLength": 1},
						"kind": map[string]interface{}{"type": "string", "enum": []interface{}{"1d", "3d"}},
					},
				},
			},
			"catalogPath":    map[string]interface{}{"type": "string"},
			"catalogXml":     map[string]interface{}{"type": "string"},
			"modelsPath":     map[string]interface{}{"type": "string"},
			"isoFile":        map[string]interface{}{"type": "string"},
			"isoKey":         map[string]interface{}{"type": "string"},
			"galDiffuseFile": map[string]interface{}{"type": "string"},
			"outputPath":     map[string]interface{}{"type": "string"},
		},
	}
}
