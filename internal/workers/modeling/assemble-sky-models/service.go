package assembleskymodels

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"skymodel-workers/internal/catalog"
	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/common/logger"
	"skymodel-workers/internal/common/observability"
	"skymodel-workers/internal/dataset"
	"skymodel-workers/internal/modeling"
	"skymodel-workers/internal/target"
)

type ServiceDependencies struct {
	Builder       *modeling.Builder
	Observability *observability.Observability
	Logger        logger.Logger
}

// Service runs one assembly: decode the target, collect models, add the
// diffuse backgrounds and bind the result to the requested datasets.
type Service struct {
	builder   *modeling.Builder
	assembler *target.Assembler
	obs       *observability.Observability
	logger    logger.Logger
	config    *Config
}

func NewService(deps ServiceDependencies, cfg *Config) *Service {
	log := logger.OrNoOp(deps.Logger)
	builder := deps.Builder
	if builder == nil {
		builder = modeling.NewBuilder(cfg.EBLDataDir, nil, nil, log)
	}
	return &Service{
		builder:   builder,
		assembler: target.NewAssembler(builder, cfg.TemplatesDir, log),
		obs:       deps.Observability,
		logger:    log,
		config:    cfg,
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := s.logger.With(map[string]interface{}{"runId": runID})

	tgt, err := target.Decode(input.Target)
	if err != nil {
		return nil, err
	}

	items, found, err := s.collectModels(tgt, input)
	if err != nil {
		return nil, err
	}

	fromConfig := false
	if !found && len(tgt.Components) > 0 {
		m, err := target.SkyModelFromConfig(tgt, s.builder)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
		fromConfig = true
	}

	diffuse, err := s.diffuseModels(input)
	if err != nil {
		return nil, err
	}
	items = append(items, diffuse...)

	refs := make([]dataset.Dataset, len(input.Datasets))
	for i, d := range input.Datasets {
		refs[i] = dataset.Dataset{Name: d.Name, Kind: d.Kind}
	}
	ds, err := dataset.New(refs...)
	if err != nil {
		return nil, err
	}

	var models interface{}
	if len(items) > 0 {
		models = items
	}
	bound, err := target.SetModels(tgt, ds, nil, models,
		target.WithBuilder(s.builder), target.WithLogger(log))
	if err != nil {
		return nil, err
	}

	if input.OutputPath != "" {
		if err := modeling.WriteModels(input.OutputPath, bound); err != nil {
			return nil, err
		}
	}

	if s.obs != nil {
		s.obs.RecordAssembly(ctx, time.Since(start), bound.Len(), found)
	}

	log.Info("Sky models assembled", map[string]interface{}{
		"target":      tgt.SourceName,
		"models":      bound.Len(),
		"targetFound": found,
		"fromConfig":  fromConfig,
	})

	return &Output{
		RunID:            runID,
		TargetFound:      found,
		TargetFromConfig: fromConfig,
		Models:           summarize(bound),
		Datasets:         ds.Names(),
		ModelsFile:       input.OutputPath,
	}, nil
}

// collectModels returns the models of the models file or the catalog, and
// whether the target is among them.
func (s *Service) collectModels(tgt *target.Target, input *Input) ([]*modeling.SkyModel, bool, error) {
	switch {
	case input.ModelsPath != "":
		ms, err := modeling.ReadModels(input.ModelsPath, s.builder)
		if err != nil {
			return nil, false, err
		}
		return ms.Items(), ms.Get(tgt.SourceName) != nil, nil

	case input.CatalogPath != "" || input.CatalogXML != "":
		lib, err := loadCatalog(input)
		if err != nil {
			return nil, false, err
		}
		ms, found, err := s.assembler.AssembleCatalog(tgt, lib)
		if err != nil {
			return nil, false, err
		}
		return ms.Items(), found, nil
	}
	return nil, false, nil
}

func loadCatalog(input *Input) (*catalog.Library, error) {
	if input.CatalogPath != "" {
		return catalog.Load(input.CatalogPath)
	}
	lib, err := catalog.Parse(strings.NewReader(input.CatalogXML))
	if err != nil {
		return nil, errors.NewCatalogLoadFailedError("catalogXml", err)
	}
	return lib, nil
}

func (s *Service) diffuseModels(input *Input) ([]*modeling.SkyModel, error) {
	var out []*modeling.SkyModel
	if input.IsoFile != "" {
		key := input.IsoKey
		if key == "" && len(input.Datasets) > 0 {
			key = input.Datasets[0].Name
		}
		iso, err := target.IsotropicDiffuse(input.IsoFile, key)
		if err != nil {
			return nil, err
		}
		out = append(out, iso)
	}
	if input.GalDiffuseFile != "" {
		gal, err := target.GalacticDiffuseFile(input.GalDiffuseFile, s.builder.Maps())
		if err != nil {
			return nil, err
		}
		out = append(out, gal)
	}
	return out, nil
}

func summarize(ms *modeling.Models) []ModelSummary {
	items := ms.Items()
	out := make([]ModelSummary, len(items))
	for i, m := range items {
		sum := ModelSummary{
			Name:           m.Name,
			FreeParameters: len(m.Parameters().Free()),
			DatasetsNames:  m.DatasetsNames,
		}
		if m.Spectral != nil {
			sum.SpectralType = m.Spectral.Spec().Type
		}
		if m.Spatial != nil {
			sum.SpatialType = m.Spatial.Spec().Type
		}
		out[i] = sum
	}
	return out
}
