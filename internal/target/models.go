package target

import (
	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/modeling"
)

// ReadModelsFromConfig builds the spectral and spatial models of the first
// component. Attenuation is multiplied in when the spectral block asks for
// it. The spatial model is nil when the component has none.
func ReadModelsFromConfig(t *Target, b *modeling.Builder) (modeling.SpectralModel, modeling.SpatialModel, error) {
	spectral, err := configSpectral(t, b)
	if err != nil {
		return nil, nil, err
	}
	comp := t.Components[0]
	if comp.Spectral.AttenuationRequested() {
		ebl, err := b.Attenuation(*comp.Spectral.EBLAbs)
		if err != nil {
			return nil, nil, errors.WithSource(err, t.SourceName)
		}
		spectral = modeling.Multiply(spectral, ebl)
	}
	spectral.SetName(t.SourceName)

	spatial, err := b.Spatial(comp.Spatial.ToSpec())
	if err != nil {
		return nil, nil, errors.WithSource(err, t.SourceName)
	}
	return spectral, spatial, nil
}

// configSpectral builds the base spectral model of the first component.
func configSpectral(t *Target, b *modeling.Builder) (modeling.SpectralModel, error) {
	if len(t.Components) == 0 {
		return nil, errors.WithSource(
			errors.NewValidationError("components", "target has no model components"), t.SourceName)
	}
	spectral, err := b.Spectral(t.Components[0].Spectral.ToSpec())
	if err != nil {
		return nil, errors.WithSource(err, t.SourceName)
	}
	return spectral, nil
}

// SkyModelFromConfig wraps ReadModelsFromConfig into a sky model named
// after the target.
func SkyModelFromConfig(t *Target, b *modeling.Builder) (*modeling.SkyModel, error) {
	spectral, spatial, err := ReadModelsFromConfig(t, b)
	if err != nil {
		return nil, err
	}
	return modeling.NewSkyModel(t.SourceName, spectral, spatial), nil
}
