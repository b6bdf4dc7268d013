// Package dataset holds the named dataset collection models are bound to.
package dataset

import (
	"fmt"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/modeling"
)

// Dataset is a named observation dataset. Only its identity matters here.
type Dataset struct {
	Name string
	// Kind is informational, e.g. "1d" or "3d".
	Kind string
}

// Datasets is an ordered collection with unique names and one attached
// model set.
type Datasets struct {
	items  []Dataset
	models *modeling.Models
}

// New builds a collection, rejecting empty and duplicate names.
func New(items ...Dataset) (*Datasets, error) {
	seen := make(map[string]bool, len(items))
	for _, d := range items {
		if d.Name == "" {
			return nil, errors.NewValidationError("datasets", "dataset without name")
		}
		if seen[d.Name] {
			return nil, errors.NewValidationError("datasets", fmt.Sprintf("duplicate dataset name %q", d.Name))
		}
		seen[d.Name] = true
	}
	return &Datasets{items: append([]Dataset(nil), items...)}, nil
}

// Names lists dataset names in order.
func (ds *Datasets) Names() []string {
	names := make([]string, len(ds.items))
	for i, d := range ds.items {
		names[i] = d.Name
	}
	return names
}

func (ds *Datasets) Len() int { return len(ds.items) }

// SetModels replaces the attached model set.
func (ds *Datasets) SetModels(ms *modeling.Models) {
	ds.models = ms
}

// Models returns the attached model set, nil before SetModels.
func (ds *Datasets) Models() *modeling.Models {
	return ds.models
}

// ModelsFor returns the attached models that apply to the named dataset:
// those listing it, and those with no dataset names at all.
func (ds *Datasets) ModelsFor(name string) []*modeling.SkyModel {
	if ds.models == nil {
		return nil
	}
	var out []*modeling.SkyModel
	for _, m := range ds.models.Items() {
		if len(m.DatasetsNames) == 0 {
			out = append(out, m)
			continue
		}
		for _, n := range m.DatasetsNames {
			if n == name {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
