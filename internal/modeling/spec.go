package modeling

import (
	"fmt"
	"os"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/common/logger"
	"skymodel-workers/internal/skymap"
)

// ModelSpec is the serialized form of a spectral or spatial model.
type ModelSpec struct {
	Type       string      `yaml:"type"`
	Frame      string      `yaml:"frame,omitempty"`
	Filename   string      `yaml:"filename,omitempty"`
	Normalize  *bool       `yaml:"normalize,omitempty"`
	Reference  string      `yaml:"reference,omitempty"`
	Energy     []float64   `yaml:"energy,omitempty"`
	Values     []float64   `yaml:"values,omitempty"`
	Parameters []Parameter `yaml:"parameters,omitempty"`
	Model1     *ModelSpec  `yaml:"model1,omitempty"`
	Model2     *ModelSpec  `yaml:"model2,omitempty"`
	Operator   string      `yaml:"operator,omitempty"`
}

// SkyModelSpec is the serialized form of a SkyModel.
type SkyModelSpec struct {
	Name          string     `yaml:"name"`
	Type          string     `yaml:"type"`
	Spectral      *ModelSpec `yaml:"spectral,omitempty"`
	Spatial       *ModelSpec `yaml:"spatial,omitempty"`
	DatasetsNames []string   `yaml:"datasets_names,omitempty"`
}

const skyModelType = "SkyModel"

// ModelsDocument is the top level of a models file.
type ModelsDocument struct {
	Components []SkyModelSpec `yaml:"components"`
}

// Builder turns specs into models. File-backed models go through the map
// reader and EBL loader, which cache by path.
type Builder struct {
	maps       skymap.Reader
	ebl        EBLLoader
	eblDataDir string
	logger     logger.Logger
}

// NewBuilder returns a Builder; nil readers fall back to the FITS
// implementations and a nil logger to a no-op one.
func NewBuilder(eblDataDir string, maps skymap.Reader, ebl EBLLoader, log logger.Logger) *Builder {
	if maps == nil {
		maps = skymap.NewFITSReader()
	}
	if ebl == nil {
		ebl = NewFITSEBLLoader()
	}
	return &Builder{
		maps:       maps,
		ebl:        ebl,
		eblDataDir: eblDataDir,
		logger:     logger.OrNoOp(log),
	}
}

// Maps exposes the map reader so callers can share its cache.
func (b *Builder) Maps() skymap.Reader { return b.maps }

// Spectral builds a spectral model. Parameters are applied by name; names
// the family does not know are logged and ignored.
func (b *Builder) Spectral(spec ModelSpec) (SpectralModel, error) {
	if spec.Type == "" {
		return nil, errors.NewValidationError("spectral.type", "spectral model type is required")
	}
	family, err := ResolveSpectralFamily(spec.Type)
	if err != nil {
		return nil, err
	}

	var model SpectralModel
	switch family {
	case CompoundSpectral:
		return b.compound(spec)
	case TemplateSpectral:
		tpl, err := NewTemplateSpectralModel(spec.Energy, spec.Values)
		if err != nil {
			return nil, errors.NewValidationError("spectral.values", err.Error())
		}
		model = tpl
	case EBLAbsorptionNorm:
		ebl, err := b.Attenuation(AttenuationSpec{
			Filename:  spec.Filename,
			Reference: spec.Reference,
			Type:      spec.Type,
			Redshift:  spectralFamilies[EBLAbsorptionNorm].defaults().Value("redshift"),
		})
		if err != nil {
			return nil, err
		}
		model = ebl
	default:
		analytic, err := NewSpectralModel(family)
		if err != nil {
			return nil, err
		}
		model = analytic
	}

	if err := b.apply(family.Tag(), model.Parameters(), spec.Parameters); err != nil {
		return nil, err
	}
	return model, nil
}

func (b *Builder) compound(spec ModelSpec) (SpectralModel, error) {
	if spec.Model1 == nil || spec.Model2 == nil {
		return nil, errors.NewValidationError("spectral.model1", "compound model needs model1 and model2")
	}
	if spec.Operator != "" && spec.Operator != OperatorMul {
		return nil, errors.NewModelTypeError("operator", spec.Operator, []string{OperatorMul})
	}
	m1, err := b.Spectral(*spec.Model1)
	if err != nil {
		return nil, err
	}
	m2, err := b.Spectral(*spec.Model2)
	if err != nil {
		return nil, err
	}
	return Multiply(m1, m2), nil
}

func (b *Builder) apply(tag string, params Parameters, records []Parameter) error {
	ignored, err := params.Apply(records)
	if len(ignored) > 0 {
		b.logger.Debug("Ignoring parameters unknown to model", map[string]interface{}{
			"type":       tag,
			"parameters": ignored,
		})
	}
	return err
}

// Attenuation builds an EBL absorption model. An existing file named by
// spec.Filename wins over spec.Reference.
func (b *Builder) Attenuation(spec AttenuationSpec) (*EBLAbsorptionNormSpectralModel, error) {
	if spec.Type != "" && spec.Type != EBLAbsorptionNorm.Tag() {
		if f, err := ResolveSpectralFamily(spec.Type); err != nil || f != EBLAbsorptionNorm {
			return nil, errors.NewModelTypeError("attenuation", spec.Type, []string{EBLAbsorptionNorm.Tag()})
		}
	}

	path, reference, filename := "", spec.Reference, ""
	if spec.Filename != "" && isFile(spec.Filename) {
		path = spec.Filename
		filename = spec.Filename
		reference = ReferenceFromFilename(spec.Filename)
	} else {
		builtin, ok := BuiltinEBLPath(b.eblDataDir, spec.Reference)
		if !ok {
			return nil, errors.NewModelTypeError("attenuation", spec.Reference, EBLReferences())
		}
		path = builtin
	}

	table, err := b.ebl.Load(path)
	if err != nil {
		return nil, errors.NewModelLoadError(path, err)
	}

	model := NewEBLAbsorption(table, reference, filename, spec.Redshift)
	if spec.AlphaNorm != 0 {
		model.Parameters().Get("alpha_norm").Value = spec.AlphaNorm
	}
	for _, p := range model.Parameters() {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return model, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Spatial builds a spatial model. An empty type yields no model.
func (b *Builder) Spatial(spec ModelSpec) (SpatialModel, error) {
	if spec.Type == "" {
		return nil, nil
	}
	family, err := ResolveSpatialFamily(spec.Type)
	if err != nil {
		return nil, err
	}

	if family == TemplateSpatial {
		if spec.Filename == "" {
			return nil, errors.NewValidationError("spatial.filename", "template spatial model needs a filename")
		}
		m, err := b.maps.Read(spec.Filename)
		if err != nil {
			return nil, errors.NewModelLoadError(spec.Filename, err)
		}
		normalize := true
		if spec.Normalize != nil {
			normalize = *spec.Normalize
		}
		tpl, err := NewTemplateSpatialModel(m, normalize)
		if err != nil {
			return nil, errors.NewModelLoadError(spec.Filename, err)
		}
		return tpl, nil
	}

	model, err := NewSpatialModel(family, spec.Frame)
	if err != nil {
		return nil, err
	}
	if err := b.apply(family.Tag(), model.Parameters(), spec.Parameters); err != nil {
		return nil, err
	}
	return model, nil
}

// SkyModel builds a named sky model from its serialized form.
func (b *Builder) SkyModel(spec SkyModelSpec) (*SkyModel, error) {
	if spec.Type != "" && spec.Type != skyModelType {
		return nil, errors.NewModelTypeError("sky", spec.Type, []string{skyModelType})
	}
	if spec.Spectral == nil {
		return nil, errors.WithSource(
			errors.NewValidationError("spectral", "sky model needs a spectral model"), spec.Name)
	}
	spectral, err := b.Spectral(*spec.Spectral)
	if err != nil {
		return nil, errors.WithSource(err, spec.Name)
	}
	var spatial SpatialModel
	if spec.Spatial != nil {
		spatial, err = b.Spatial(*spec.Spatial)
		if err != nil {
			return nil, errors.WithSource(err, spec.Name)
		}
	}
	sm := NewSkyModel(spec.Name, spectral, spatial)
	sm.DatasetsNames = append([]string(nil), spec.DatasetsNames...)
	return sm, nil
}

func (s SkyModelSpec) String() string {
	spectral, spatial := "none", "none"
	if s.Spectral != nil {
		spectral = s.Spectral.Type
	}
	if s.Spatial != nil {
		spatial = s.Spatial.Type
	}
	return fmt.Sprintf("%s(spectral=%s, spatial=%s)", s.Name, spectral, spatial)
}
