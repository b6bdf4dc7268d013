package target

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/modeling"
	"skymodel-workers/internal/skymap"
	"skymodel-workers/internal/units"
)

const (
	IsotropicDiffuseName = "fermi-diffuse-iso"
	GalacticDiffuseName  = "diffuse-iem"
)

// Fixed parameter bounds of the diffuse backgrounds.
const (
	isoNormMin = 0.001
	isoNormMax = 10
	isoTiltMin = 0
	isoTiltMax = 10
	galNormMin = 0
	galNormMax = 10
)

// ReadIsotropicTemplate reads a Fermi isotropic text template: whitespace
// separated energy (MeV) and intensity (cm-2 s-1 MeV-1 sr-1) columns, with
// any further columns ignored. Values are returned in TeV and
// cm-2 s-1 TeV-1 sr-1.
func ReadIsotropicTemplate(path string) ([]float64, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.NewModelLoadError(path, err)
	}
	defer f.Close()

	energy, values, err := parseIsotropic(f)
	if err != nil {
		return nil, nil, errors.NewModelLoadError(path, err)
	}
	return energy, values, nil
}

func parseIsotropic(r io.Reader) ([]float64, []float64, error) {
	perMeVToPerTeV, err := units.Convert(1, units.MeV+"-1", units.InverseTeV)
	if err != nil {
		return nil, nil, err
	}

	var energy, values []float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("line %d: want energy and intensity columns, got %q", line, text)
		}
		e, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: energy: %w", line, err)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: intensity: %w", line, err)
		}
		eTeV, err := units.Convert(e, units.MeV, units.TeV)
		if err != nil {
			return nil, nil, err
		}
		energy = append(energy, eTeV)
		values = append(values, v*perMeVToPerTeV)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return energy, values, nil
}

// IsotropicDiffuse builds the isotropic background for one observation
// key: a template spectrum times a PowerLawNorm, over a constant spatial
// model.
func IsotropicDiffuse(path, key string) (*modeling.SkyModel, error) {
	energy, values, err := ReadIsotropicTemplate(path)
	if err != nil {
		return nil, err
	}
	return isotropicFromTable(energy, values, path, key)
}

func isotropicFromTable(energy, values []float64, path, key string) (*modeling.SkyModel, error) {
	name := fmt.Sprintf("%s-%s", IsotropicDiffuseName, key)

	tpl, err := modeling.NewTemplateSpectralModel(energy, values)
	if err != nil {
		return nil, errors.WithSource(errors.NewModelLoadError(path, err), name)
	}
	setBounds(tpl.Parameters().Get("norm"), isoNormMin, isoNormMax)

	plNorm, err := modeling.NewSpectralModel(modeling.PowerLawNorm)
	if err != nil {
		return nil, err
	}
	setBounds(plNorm.Parameters().Get("tilt"), isoTiltMin, isoTiltMax)

	spatial, err := modeling.NewSpatialModel(modeling.ConstantSpatial, "")
	if err != nil {
		return nil, err
	}
	return modeling.NewSkyModel(name, modeling.Multiply(tpl, plNorm), spatial), nil
}

// GalacticDiffuse wraps a diffuse emission map as an unnormalized template
// with a free PowerLawNorm.
func GalacticDiffuse(m *skymap.Map) (*modeling.SkyModel, error) {
	spatial, err := modeling.NewTemplateSpatialModel(m, false)
	if err != nil {
		return nil, errors.WithSource(errors.NewModelLoadError(m.Filename, err), GalacticDiffuseName)
	}
	spectral, err := modeling.NewSpectralModel(modeling.PowerLawNorm)
	if err != nil {
		return nil, err
	}
	norm := spectral.Parameters().Get("norm")
	setBounds(norm, galNormMin, galNormMax)
	norm.Frozen = false

	return modeling.NewSkyModel(GalacticDiffuseName, spectral, spatial), nil
}

// GalacticDiffuseFile reads the diffuse map at path through maps.
func GalacticDiffuseFile(path string, maps skymap.Reader) (*modeling.SkyModel, error) {
	m, err := maps.Read(path)
	if err != nil {
		return nil, errors.WithSource(errors.NewModelLoadError(path, err), GalacticDiffuseName)
	}
	return GalacticDiffuse(m)
}

func setBounds(p *modeling.Parameter, min, max float64) {
	p.Min = min
	p.Max = max
}
