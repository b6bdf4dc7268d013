package modeling

import (
	"fmt"

	"skymodel-workers/internal/common/errors"
)

// SkyModel is an assembled source: a spectral model, an optional spatial
// model and the datasets it applies to.
type SkyModel struct {
	Name          string
	Spectral      SpectralModel
	Spatial       SpatialModel
	DatasetsNames []string
}

// NewSkyModel names the spectral model after the source.
func NewSkyModel(name string, spectral SpectralModel, spatial SpatialModel) *SkyModel {
	if spectral != nil {
		spectral.SetName(name)
	}
	return &SkyModel{Name: name, Spectral: spectral, Spatial: spatial}
}

// Parameters lists spectral parameters followed by spatial ones.
func (m *SkyModel) Parameters() Parameters {
	var out Parameters
	if m.Spectral != nil {
		out = append(out, m.Spectral.Parameters()...)
	}
	if m.Spatial != nil {
		out = append(out, m.Spatial.Parameters()...)
	}
	return out
}

// Freeze marks every parameter of the given kind ("spectral" or "spatial")
// frozen.
func (m *SkyModel) Freeze(kind string) {
	switch kind {
	case "spectral":
		if m.Spectral != nil {
			m.Spectral.Parameters().Freeze()
		}
	case "spatial":
		if m.Spatial != nil {
			m.Spatial.Parameters().Freeze()
		}
	default:
		m.Parameters().Freeze()
	}
}

func (m *SkyModel) Spec() SkyModelSpec {
	spec := SkyModelSpec{
		Name:          m.Name,
		Type:          skyModelType,
		DatasetsNames: append([]string(nil), m.DatasetsNames...),
	}
	if m.Spectral != nil {
		s := m.Spectral.Spec()
		spec.Spectral = &s
	}
	if m.Spatial != nil {
		s := m.Spatial.Spec()
		spec.Spatial = &s
	}
	return spec
}

// ModelsPath is a models file on disk, accepted wherever a model collection is.
type ModelsPath string

// Models is an ordered collection of sky models with unique names.
type Models struct {
	items []*SkyModel
}

// NewModels collects items, rejecting duplicate names.
func NewModels(items ...*SkyModel) (*Models, error) {
	ms := &Models{}
	for _, m := range items {
		if err := ms.Append(m); err != nil {
			return nil, err
		}
	}
	return ms, nil
}

// Append adds m, rejecting nil models and duplicate names.
func (ms *Models) Append(m *SkyModel) error {
	if m == nil {
		return errors.NewValidationError("models", "nil sky model")
	}
	if ms.Get(m.Name) != nil {
		return errors.NewValidationError("models", fmt.Sprintf("duplicate model name %q", m.Name))
	}
	ms.items = append(ms.items, m)
	return nil
}

func (ms *Models) Len() int { return len(ms.items) }

func (ms *Models) Names() []string {
	names := make([]string, len(ms.items))
	for i, m := range ms.items {
		names[i] = m.Name
	}
	return names
}

// Get returns the named model or nil.
func (ms *Models) Get(name string) *SkyModel {
	for _, m := range ms.items {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Items returns the models in order. The slice is a copy; the models are not.
func (ms *Models) Items() []*SkyModel {
	return append([]*SkyModel(nil), ms.items...)
}

// Document returns the serialized form of the collection.
func (ms *Models) Document() ModelsDocument {
	doc := ModelsDocument{Components: make([]SkyModelSpec, len(ms.items))}
	for i, m := range ms.items {
		doc.Components[i] = m.Spec()
	}
	return doc
}
