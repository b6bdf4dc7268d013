package modeling

import (
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"skymodel-workers/internal/common/errors"
)

// UnmarshalYAML leaves omitted bounds unbounded rather than zero.
func (p *Parameter) UnmarshalYAML(node *yaml.Node) error {
	type plain Parameter
	raw := plain{Min: math.NaN(), Max: math.NaN()}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*p = Parameter(raw)
	return nil
}

// ReadModels reads a YAML models file and builds every component.
func ReadModels(path string, b *Builder) (*Models, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewModelLoadError(path, err)
	}
	return ParseModels(data, b)
}

// ParseModels builds models from YAML content.
func ParseModels(data []byte, b *Builder) (*Models, error) {
	var doc ModelsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewModelLoadError("models", err)
	}
	ms := &Models{}
	for _, spec := range doc.Components {
		m, err := b.SkyModel(spec)
		if err != nil {
			return nil, err
		}
		if err := ms.Append(m); err != nil {
			return nil, err
		}
	}
	return ms, nil
}

// MarshalModels renders the collection as YAML.
func MarshalModels(ms *Models) ([]byte, error) {
	return yaml.Marshal(ms.Document())
}

// WriteModels writes the collection to path as YAML.
func WriteModels(path string, ms *Models) error {
	data, err := MarshalModels(ms)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
