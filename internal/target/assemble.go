package target

import (
	"skymodel-workers/internal/catalog"
	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/common/logger"
	"skymodel-workers/internal/common/metrics"
	"skymodel-workers/internal/modeling"
)

// SpectralSource says where a source's spectral model comes from.
type SpectralSource int

const (
	// CatalogSourced translates the catalog entry's parameters.
	CatalogSourced SpectralSource = iota
	// ConfigSourced builds the spectral model from the target config.
	ConfigSourced
)

func (s SpectralSource) String() string {
	if s == ConfigSourced {
		return "config"
	}
	return "catalog"
}

// Assembler turns legacy catalog entries into sky models.
type Assembler struct {
	translator *catalog.Translator
	spatial    *catalog.SpatialBuilder
	builder    *modeling.Builder
	logger     logger.Logger
}

// NewAssembler returns an Assembler resolving spatial templates under
// templatesDir. It shares the builder's map reader.
func NewAssembler(builder *modeling.Builder, templatesDir string, log logger.Logger) *Assembler {
	log = logger.OrNoOp(log)
	return &Assembler{
		translator: catalog.NewTranslator(log),
		spatial:    catalog.NewSpatialBuilder(templatesDir, builder.Maps()),
		builder:    builder,
		logger:     log,
	}
}

// IsTarget compares names with underscores and spaces removed. The
// comparison stays case sensitive.
func IsTarget(t *Target, src catalog.Source) bool {
	return catalog.NormalizeName(src.Name) == catalog.NormalizeName(t.SourceName)
}

// SpectralSourceFor decides once per entry where its spectral model comes
// from.
func SpectralSourceFor(t *Target, isTarget bool) SpectralSource {
	if isTarget && !t.From3D && len(t.Components) > 0 {
		return ConfigSourced
	}
	return CatalogSourced
}

// AssembleSource builds the sky model of one catalog entry. The second
// return value reports whether the entry is the target. Errors carry the
// entry's name.
func (a *Assembler) AssembleSource(t *Target, src catalog.Source) (*modeling.SkyModel, bool, error) {
	isTarget := IsTarget(t, src)
	source := SpectralSourceFor(t, isTarget)

	model, err := a.assemble(t, src, isTarget, source)
	if err != nil {
		err = errors.WithSource(err, src.Name)
		metrics.AssemblyFailures.WithLabelValues(string(errors.Normalize(err).Code)).Inc()
		return nil, isTarget, err
	}

	metrics.SourcesAssembled.WithLabelValues(source.String(), boolLabel(isTarget)).Inc()
	return model, isTarget, nil
}

func (a *Assembler) assemble(t *Target, src catalog.Source, isTarget bool, source SpectralSource) (*modeling.SkyModel, error) {
	name := src.Name
	if isTarget {
		name = t.SourceName
		a.logger.Info("Catalog entry matches target", map[string]interface{}{
			"catalogName":    src.Name,
			"target":         t.SourceName,
			"spectralSource": source.String(),
		})
	}

	var (
		spectral modeling.SpectralModel
		err      error
	)
	switch source {
	case ConfigSourced:
		spectral, err = configSpectral(t, a.builder)
	case CatalogSourced:
		spectral, _, err = a.translator.SpectralModel(src, isTarget)
	}
	if err != nil {
		return nil, err
	}

	spatial, err := a.spatial.Build(src.Spatial)
	if err != nil {
		return nil, err
	}
	spatial.Parameters().Freeze()

	if isTarget {
		if spec, ok := a.attenuationFor(t, src); ok {
			ebl, err := a.builder.Attenuation(spec)
			if err != nil {
				return nil, err
			}
			spectral = modeling.Multiply(spectral, ebl)
		}
	}

	return modeling.NewSkyModel(name, spectral, spatial), nil
}

// attenuationFor picks the attenuation of the target: the config block
// when it names a model, otherwise the defaults when the catalog spectrum
// carries the attenuation marker.
func (a *Assembler) attenuationFor(t *Target, src catalog.Source) (modeling.AttenuationSpec, bool) {
	if len(t.Components) > 0 && t.Components[0].Spectral.AttenuationRequested() {
		return *t.Components[0].Spectral.EBLAbs, true
	}
	if src.Spectrum.Attenuated() {
		spec := modeling.DefaultAttenuationSpec()
		a.logger.Warn("Attenuated catalog spectrum without ebl_abs config, using defaults", map[string]interface{}{
			"source":    src.Name,
			"reference": spec.Reference,
			"redshift":  spec.Redshift,
		})
		return spec, true
	}
	return modeling.AttenuationSpec{}, false
}

// AssembleCatalog assembles every non-diffuse entry of lib, in catalog
// order. It stops at the first failing entry.
func (a *Assembler) AssembleCatalog(t *Target, lib *catalog.Library) (*modeling.Models, bool, error) {
	models, err := modeling.NewModels()
	if err != nil {
		return nil, false, err
	}
	found := false
	for _, src := range lib.Sources {
		if src.IsDiffuse() {
			a.logger.Debug("Skipping diffuse catalog entry", map[string]interface{}{"source": src.Name})
			continue
		}
		m, isTarget, err := a.AssembleSource(t, src)
		if err != nil {
			return nil, false, err
		}
		if err := models.Append(m); err != nil {
			return nil, false, errors.WithSource(err, src.Name)
		}
		found = found || isTarget
	}

	a.logger.Info("Catalog assembled", map[string]interface{}{
		"models":      models.Len(),
		"targetFound": found,
	})
	return models, found, nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
