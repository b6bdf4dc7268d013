package modeling

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/astrogo/fitsio"

	"skymodel-workers/internal/skymap"
)

// AttenuationSpec selects an EBL absorption model. Filename wins over
// Reference when it names an existing file.
type AttenuationSpec struct {
	Filename  string  `yaml:"filename,omitempty" mapstructure:"filename" json:"filename,omitempty"`
	Reference string  `yaml:"reference" mapstructure:"reference" json:"reference"`
	Type      string  `yaml:"type" mapstructure:"type" json:"type"`
	Redshift  float64 `yaml:"redshift" mapstructure:"redshift" json:"redshift"`
	AlphaNorm float64 `yaml:"alpha_norm" mapstructure:"alpha_norm" json:"alphaNorm"`
}

// DefaultAttenuationSpec is used when a catalog entry carries the
// attenuation marker but the analysis config has no attenuation block.
func DefaultAttenuationSpec() AttenuationSpec {
	return AttenuationSpec{
		Reference: "dominguez",
		Type:      EBLAbsorptionNorm.Tag(),
		Redshift:  0.4,
		AlphaNorm: 1,
	}
}

// builtinEBL maps reference names to files under the EBL data directory.
var builtinEBL = map[string]string{
	"franceschini":    "ebl_franceschini.fits.gz",
	"dominguez":       "ebl_dominguez11.fits.gz",
	"finke":           "frd_abs.fits.gz",
	"franceschini17":  "ebl_franceschini_2017.fits.gz",
	"saldana-lopez21": "ebl_saldana-lopez_2021.fits.gz",
}

// EBLReferences lists the builtin reference names.
func EBLReferences() []string {
	out := make([]string, 0, len(builtinEBL))
	for k := range builtinEBL {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BuiltinEBLPath resolves a builtin reference name under dataDir.
func BuiltinEBLPath(dataDir, reference string) (string, bool) {
	file, ok := builtinEBL[reference]
	if !ok {
		return "", false
	}
	return filepath.Join(dataDir, file), true
}

// ReferenceFromFilename derives the reference name of a custom EBL file:
// the base name without ".fits.gz", with "-" replaced by "_".
func ReferenceFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".fits.gz")
	base = strings.TrimSuffix(base, ".fits")
	return strings.ReplaceAll(base, "-", "_")
}

// EBLTable is a tabulated absorption factor over energy and redshift.
type EBLTable struct {
	Energy   []float64   // TeV, ascending
	Redshift []float64   // ascending
	Values   [][]float64 // [redshift][energy]
}

// Validate checks the table shape and ordering.
func (t *EBLTable) Validate() error {
	if len(t.Energy) < 2 || len(t.Redshift) < 2 {
		return fmt.Errorf("ebl table needs at least 2 energies and 2 redshifts, got %d and %d", len(t.Energy), len(t.Redshift))
	}
	if len(t.Values) != len(t.Redshift) {
		return fmt.Errorf("ebl table has %d spectra for %d redshifts", len(t.Values), len(t.Redshift))
	}
	for i, row := range t.Values {
		if len(row) != len(t.Energy) {
			return fmt.Errorf("ebl spectrum %d has %d values for %d energies", i, len(row), len(t.Energy))
		}
	}
	if !sort.Float64sAreSorted(t.Energy) || !sort.Float64sAreSorted(t.Redshift) {
		return fmt.Errorf("ebl table axes must be ascending")
	}
	if t.Energy[0] <= 0 {
		return fmt.Errorf("ebl table energies must be positive")
	}
	return nil
}

// At interpolates the absorption at energy (TeV) and redshift, linear in
// log energy and redshift, extrapolating past the edges.
func (t *EBLTable) At(energy, z float64) float64 {
	i, ti := bracket(logAxis(t.Energy), math.Log(energy))
	j, tj := bracket(t.Redshift, z)

	v00, v01 := t.Values[j][i], t.Values[j][i+1]
	v10, v11 := t.Values[j+1][i], t.Values[j+1][i+1]
	low := v00 + ti*(v01-v00)
	high := v10 + ti*(v11-v10)
	return low + tj*(high-low)
}

func logAxis(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Log(x)
	}
	return out
}

// bracket returns the lower node index and fractional position of x.
func bracket(xs []float64, x float64) (int, float64) {
	i := sort.SearchFloat64s(xs, x) - 1
	if i < 0 {
		i = 0
	}
	if i > len(xs)-2 {
		i = len(xs) - 2
	}
	return i, (x - xs[i]) / (xs[i+1] - xs[i])
}

// EBLLoader reads EBL tables from disk.
type EBLLoader interface {
	Load(path string) (*EBLTable, error)
}

// FITSEBLLoader reads EBL tables in the XSPEC table-model layout
// (ENERGIES, PARAMETERS and SPECTRA extensions). Tables are read at most once
// per path.
type FITSEBLLoader struct {
	mu    sync.RWMutex
	cache map[string]*EBLTable
}

func NewFITSEBLLoader() *FITSEBLLoader {
	return &FITSEBLLoader{cache: make(map[string]*EBLTable)}
}

func (l *FITSEBLLoader) Load(path string) (*EBLTable, error) {
	l.mu.RLock()
	t, ok := l.cache[path]
	l.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := readEBLTable(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[path] = t
	l.mu.Unlock()
	return t, nil
}

const keVToTeV = 1e-9

func readEBLTable(path string) (*EBLTable, error) {
	ff, closer, err := skymap.OpenFITS(path)
	if err != nil {
		return nil, err
	}
	defer closer()

	lo, err := readColumn(ff, "ENERGIES", "ENERG_LO")
	if err != nil {
		return nil, err
	}
	hi, err := readColumn(ff, "ENERGIES", "ENERG_HI")
	if err != nil {
		return nil, err
	}
	if len(lo) != len(hi) {
		return nil, fmt.Errorf("ENERG_LO and ENERG_HI lengths differ")
	}
	energy := make([]float64, len(lo))
	for i := range lo {
		// energies are stored in keV without a unit keyword
		energy[i] = math.Sqrt(lo[i]*hi[i]) * keVToTeV
	}

	params, err := readColumn(ff, "PARAMETERS", "VALUE")
	if err != nil {
		return nil, err
	}
	spectra, err := readColumn(ff, "SPECTRA", "INTPSPEC")
	if err != nil {
		return nil, err
	}
	if len(spectra) != len(params)*len(energy) {
		return nil, fmt.Errorf("SPECTRA has %d values, want %d redshifts x %d energies", len(spectra), len(params), len(energy))
	}

	// the redshift grid may contain duplicates; keep the first spectrum of each
	type node struct {
		z   float64
		row int
	}
	seen := make(map[float64]bool)
	var nodes []node
	for row, z := range params {
		if !seen[z] {
			seen[z] = true
			nodes = append(nodes, node{z, row})
		}
	}
	sort.Slice(nodes, func(a, b int) bool { return nodes[a].z < nodes[b].z })

	t := &EBLTable{Energy: energy}
	for _, n := range nodes {
		t.Redshift = append(t.Redshift, n.z)
		start := n.row * len(energy)
		t.Values = append(t.Values, append([]float64(nil), spectra[start:start+len(energy)]...))
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// readColumn flattens a column over all rows. For PARAMETERS only the first
// row is read, which holds the redshift grid.
func readColumn(ff *fitsio.File, extension, column string) ([]float64, error) {
	if !ff.Has(extension) {
		return nil, fmt.Errorf("missing %s extension", extension)
	}
	tbl, ok := ff.Get(extension).(*fitsio.Table)
	if !ok {
		return nil, fmt.Errorf("%s is not a table", extension)
	}
	if tbl.Index(column) < 0 {
		return nil, fmt.Errorf("%s has no %s column", extension, column)
	}

	end := tbl.NumRows()
	if extension == "PARAMETERS" && end > 1 {
		end = 1
	}
	rows, err := tbl.Read(0, end)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", extension, err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		row := map[string]interface{}{column: nil}
		if err := rows.Scan(&row); err != nil {
			return nil, fmt.Errorf("scan %s.%s: %w", extension, column, err)
		}
		vals, ok := skymap.ToFloat64s(row[column])
		if !ok {
			return nil, fmt.Errorf("%s.%s has unsupported type %T", extension, column, row[column])
		}
		out = append(out, vals...)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// EBLAbsorptionNormSpectralModel is a multiplicative absorption factor with
// free-able redshift and alpha_norm parameters.
type EBLAbsorptionNormSpectralModel struct {
	name      string
	table     *EBLTable
	reference string
	filename  string
	params    Parameters
}

// NewEBLAbsorption builds an absorption model over table. reference and
// filename are recorded for serialization.
func NewEBLAbsorption(table *EBLTable, reference, filename string, redshift float64) *EBLAbsorptionNormSpectralModel {
	params := spectralFamilies[EBLAbsorptionNorm].defaults()
	params.Get("redshift").Value = redshift
	return &EBLAbsorptionNormSpectralModel{
		table:     table,
		reference: reference,
		filename:  filename,
		params:    params,
	}
}

func (m *EBLAbsorptionNormSpectralModel) Family() SpectralFamily { return EBLAbsorptionNorm }
func (m *EBLAbsorptionNormSpectralModel) Name() string           { return m.name }
func (m *EBLAbsorptionNormSpectralModel) SetName(name string)    { m.name = name }
func (m *EBLAbsorptionNormSpectralModel) Parameters() Parameters { return m.params }

// Reference is the builtin reference name, or the name derived from a custom file.
func (m *EBLAbsorptionNormSpectralModel) Reference() string { return m.reference }

func (m *EBLAbsorptionNormSpectralModel) Evaluate(e float64) float64 {
	abs := m.table.At(e, m.params.Value("redshift"))
	abs = math.Max(0, math.Min(1, abs))
	return math.Pow(abs, m.params.Value("alpha_norm"))
}

func (m *EBLAbsorptionNormSpectralModel) Spec() ModelSpec {
	spec := ModelSpec{
		Type:       EBLAbsorptionNorm.Tag(),
		Parameters: m.params.Values(),
	}
	if m.filename != "" {
		spec.Filename = m.filename
	} else {
		spec.Reference = m.reference
	}
	return spec
}
