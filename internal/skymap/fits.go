package skymap

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/astrogo/fitsio"
)

// Reader loads sky maps from disk.
type Reader interface {
	Read(path string) (*Map, error)
}

// FITSReader reads the primary image HDU of FITS files (optionally
// gzipped). Maps are cached by path; callers receive copies.
type FITSReader struct {
	mu    sync.RWMutex
	cache map[string]*Map
}

func NewFITSReader() *FITSReader {
	return &FITSReader{cache: make(map[string]*Map)}
}

func (r *FITSReader) Read(path string) (*Map, error) {
	r.mu.RLock()
	m, ok := r.cache[path]
	r.mu.RUnlock()
	if ok {
		return m.Copy(""), nil
	}

	m, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[path] = m
	r.mu.Unlock()
	return m.Copy(""), nil
}

// OpenFITS opens path as a FITS file, transparently gunzipping ".gz" files.
// The returned closer releases both the FITS handle and the file.
func OpenFITS(path string) (*fitsio.File, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	var rd io.Reader = f
	var gz *gzip.Reader
	if strings.HasSuffix(path, ".gz") {
		gz, err = gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("gunzip %s: %w", path, err)
		}
		rd = gz
	}
	ff, err := fitsio.Open(rd)
	if err != nil {
		if gz != nil {
			gz.Close()
		}
		f.Close()
		return nil, nil, fmt.Errorf("open fits %s: %w", path, err)
	}
	closer := func() {
		ff.Close()
		if gz != nil {
			gz.Close()
		}
		f.Close()
	}
	return ff, closer, nil
}

// ReadFile reads the first image HDU of a FITS file into a Map.
func ReadFile(path string) (*Map, error) {
	ff, closer, err := OpenFITS(path)
	if err != nil {
		return nil, err
	}
	defer closer()

	var img fitsio.Image
	for _, hdu := range ff.HDUs() {
		if im, ok := hdu.(fitsio.Image); ok && len(im.Header().Axes()) >= 2 {
			img = im
			break
		}
	}
	if img == nil {
		return nil, fmt.Errorf("%s: no image HDU with at least two axes", path)
	}

	hdr := img.Header()
	axes := hdr.Axes()
	geom := Geom{
		NX:     axes[0],
		NY:     axes[1],
		NZ:     1,
		CRVal1: cardFloat(hdr, "CRVAL1", 0),
		CRVal2: cardFloat(hdr, "CRVAL2", 0),
		CRPix1: cardFloat(hdr, "CRPIX1", 1),
		CRPix2: cardFloat(hdr, "CRPIX2", 1),
		CDelt1: cardFloat(hdr, "CDELT1", 1),
		CDelt2: cardFloat(hdr, "CDELT2", 1),
		CType1: cardString(hdr, "CTYPE1"),
		CType2: cardString(hdr, "CTYPE2"),
	}
	if len(axes) > 2 {
		geom.NZ = axes[2]
	}

	data, err := readImageData(img, hdr.Bitpix())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m := &Map{Geom: geom, Data: data, Unit: cardString(hdr, "BUNIT"), Filename: path}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func readImageData(img fitsio.Image, bitpix int) ([]float64, error) {
	n := 1
	for _, ax := range img.Header().Axes() {
		n *= ax
	}
	switch bitpix {
	case -64:
		raw := make([]float64, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		return raw, nil
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		return widen(raw), nil
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		return widen(raw), nil
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		return widen(raw), nil
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
}

func widen[T float32 | int32 | int16](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func cardFloat(hdr *fitsio.Header, name string, def float64) float64 {
	card := hdr.Get(name)
	if card == nil {
		return def
	}
	if v, ok := toFloat(card.Value); ok {
		return v
	}
	return def
}

func cardString(hdr *fitsio.Header, name string) string {
	card := hdr.Get(name)
	if card == nil {
		return ""
	}
	s, _ := card.Value.(string)
	return strings.TrimSpace(s)
}

// toFloat converts a decoded FITS value to float64.
func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case uint8:
		return float64(x), true
	default:
		return 0, false
	}
}

// ToFloat64s converts a decoded FITS column value (scalar or vector) to a
// float64 slice.
func ToFloat64s(v interface{}) ([]float64, bool) {
	switch x := v.(type) {
	case []float64:
		return x, true
	case []float32:
		return widen(x), true
	default:
		if f, ok := toFloat(v); ok {
			return []float64{f}, true
		}
	}
	// fixed-width vector columns decode to Go arrays
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Array && rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]float64, rv.Len())
	for i := range out {
		f, ok := toFloat(rv.Index(i).Interface())
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// WriteFile writes m as a single -64 BITPIX primary image.
func WriteFile(path string, m *Map) error {
	if err := m.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ff, err := fitsio.Create(f)
	if err != nil {
		return err
	}
	defer ff.Close()

	axes := []int{m.Geom.NX, m.Geom.NY}
	if m.Geom.NZ > 1 {
		axes = append(axes, m.Geom.NZ)
	}
	img := fitsio.NewImage(-64, axes)
	defer img.Close()

	cards := []fitsio.Card{
		{Name: "CRVAL1", Value: m.Geom.CRVal1},
		{Name: "CRVAL2", Value: m.Geom.CRVal2},
		{Name: "CRPIX1", Value: m.Geom.CRPix1},
		{Name: "CRPIX2", Value: m.Geom.CRPix2},
		{Name: "CDELT1", Value: m.Geom.CDelt1},
		{Name: "CDELT2", Value: m.Geom.CDelt2},
		{Name: "CTYPE1", Value: m.Geom.CType1},
		{Name: "CTYPE2", Value: m.Geom.CType2},
	}
	if m.Unit != "" {
		cards = append(cards, fitsio.Card{Name: "BUNIT", Value: m.Unit})
	}
	if err := img.Header().Append(cards...); err != nil {
		return err
	}

	data := append([]float64(nil), m.Data...)
	if err := img.Write(&data); err != nil {
		return err
	}
	return ff.Write(img)
}
