package target

import (
	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/common/logger"
	"skymodel-workers/internal/modeling"
)

// DatasetCollection is what models get bound to.
type DatasetCollection interface {
	Names() []string
	SetModels(ms *modeling.Models)
}

type bindOptions struct {
	targetName string
	builder    *modeling.Builder
	logger     logger.Logger
}

// BindOption configures SetModels.
type BindOption func(*bindOptions)

// WithTargetName overrides the target model name, which defaults to the
// target's source name.
func WithTargetName(name string) BindOption {
	return func(o *bindOptions) { o.targetName = name }
}

// WithBuilder sets the builder used for models files and config models.
func WithBuilder(b *modeling.Builder) BindOption {
	return func(o *bindOptions) { o.builder = b }
}

func WithLogger(l logger.Logger) BindOption {
	return func(o *bindOptions) { o.logger = l }
}

// SetModels attaches models to datasets. models is one of nil (build the
// target from its config components), *modeling.Models,
// []*modeling.SkyModel or modeling.ModelsPath. names defaults to every
// dataset in the collection. With more than one model only the target
// model gets the names.
//
// datasets.SetModels is called once, after every check passed, so a
// failure leaves the collection as it was. Caller-owned models are copied
// before their dataset names are set.
func SetModels(t *Target, datasets DatasetCollection, names []string, models interface{}, opts ...BindOption) (*modeling.Models, error) {
	o := bindOptions{targetName: t.SourceName}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logger.OrNoOp(o.logger)
	if o.builder == nil {
		o.builder = modeling.NewBuilder("", nil, nil, o.logger)
	}
	if datasets == nil {
		return nil, errors.NewValidationError("datasets", "no dataset collection to bind to")
	}

	ms, err := resolveModels(t, models, o.builder)
	if err != nil {
		return nil, err
	}
	if ms.Len() == 0 {
		return nil, errors.NewValidationError("models", "model collection is empty")
	}
	if names == nil {
		names = datasets.Names()
	}

	receiver := ms.Items()[0].Name
	if ms.Len() > 1 {
		if ms.Get(o.targetName) == nil {
			return nil, errors.NewTargetModelMissingError(o.targetName, ms.Names())
		}
		receiver = o.targetName
	}

	bound, err := withDatasetNames(ms, receiver, names)
	if err != nil {
		return nil, err
	}

	datasets.SetModels(bound)
	o.logger.Info("Models bound to datasets", map[string]interface{}{
		"models":   bound.Names(),
		"receiver": receiver,
		"datasets": names,
	})
	return bound, nil
}

func resolveModels(t *Target, models interface{}, b *modeling.Builder) (*modeling.Models, error) {
	switch m := models.(type) {
	case *modeling.Models:
		if m == nil {
			return nil, errors.NewBindingTypeError(models)
		}
		return m, nil
	case []*modeling.SkyModel:
		return modeling.NewModels(m...)
	case modeling.ModelsPath:
		return modeling.ReadModels(string(m), b)
	case nil:
		if len(t.Components) == 0 {
			return nil, errors.NewBindingTypeError(models)
		}
		sm, err := SkyModelFromConfig(t, b)
		if err != nil {
			return nil, err
		}
		return modeling.NewModels(sm)
	default:
		return nil, errors.NewBindingTypeError(models)
	}
}

// withDatasetNames returns a collection of shallow copies where receiver
// carries names and every other model keeps its own list.
func withDatasetNames(ms *modeling.Models, receiver string, names []string) (*modeling.Models, error) {
	out, err := modeling.NewModels()
	if err != nil {
		return nil, err
	}
	for _, m := range ms.Items() {
		cp := *m
		if m.Name == receiver {
			cp.DatasetsNames = append([]string(nil), names...)
		} else {
			cp.DatasetsNames = append([]string(nil), m.DatasetsNames...)
		}
		if err := out.Append(&cp); err != nil {
			return nil, err
		}
	}
	return out, nil
}
