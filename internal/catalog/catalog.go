// Package catalog reads legacy XML source catalogs (Fermi-LAT model files)
// and translates their parameter conventions into canonical parameters.
package catalog

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"skymodel-workers/internal/common/errors"
)

// EBLMarker prefixes spectrum types of sources with EBL attenuation.
const EBLMarker = "EblAtten::"

// Names of the diffuse background entries carried in most catalogs.
const (
	GalDiffName = "GalDiffModel"
	IsoDiffName = "IsoDiffModel"
)

type Library struct {
	XMLName xml.Name `xml:"source_library"`
	Title   string   `xml:"title,attr"`
	Sources []Source `xml:"source"`
}

type Source struct {
	Name     string       `xml:"name,attr"`
	Type     string       `xml:"type,attr"`
	Spectrum Spectrum     `xml:"spectrum"`
	Spatial  SpatialBlock `xml:"spatialModel"`
}

type Spectrum struct {
	Type       string         `xml:"type,attr"`
	Parameters []RawParameter `xml:"parameter"`
}

type SpatialBlock struct {
	Type       string         `xml:"type,attr"`
	File       string         `xml:"file,attr"`
	Parameters []RawParameter `xml:"parameter"`
}

// RawParameter keeps every attribute as written; parsing happens in the
// translator so malformed records can be reported per field.
type RawParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
	Scale string `xml:"scale,attr"`
	Min   string `xml:"min,attr"`
	Max   string `xml:"max,attr"`
	Free  string `xml:"free,attr"`
	Error string `xml:"error,attr"`
}

// BaseType is the spectrum type without the attenuation marker.
func (s Spectrum) BaseType() string {
	if i := strings.LastIndex(s.Type, EBLMarker); i >= 0 {
		return s.Type[i+len(EBLMarker):]
	}
	return s.Type
}

// Attenuated reports whether the spectrum carries the attenuation marker.
func (s Spectrum) Attenuated() bool {
	return strings.Contains(s.Type, EBLMarker)
}

// IsDiffuse reports whether the entry is a diffuse background rather than a
// source. Backgrounds are built separately.
func (s Source) IsDiffuse() bool {
	switch s.Name {
	case GalDiffName, IsoDiffName:
		return true
	}
	switch s.Spatial.Type {
	case "ConstantValue", "MapCubeFunction":
		return true
	}
	return false
}

// NormalizeName strips underscores and spaces; comparison stays case-sensitive.
func NormalizeName(name string) string {
	return strings.NewReplacer("_", "", " ", "").Replace(name)
}

// Find returns the first source whose normalized name matches name.
func (l *Library) Find(name string) (*Source, bool) {
	want := NormalizeName(name)
	for i := range l.Sources {
		if NormalizeName(l.Sources[i].Name) == want {
			return &l.Sources[i], true
		}
	}
	return nil, false
}

// Parse decodes a catalog document.
func Parse(r io.Reader) (*Library, error) {
	var lib Library
	if err := xml.NewDecoder(r).Decode(&lib); err != nil {
		return nil, err
	}
	return &lib, nil
}

// Load reads a catalog file.
func Load(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewCatalogLoadFailedError(path, err)
	}
	defer f.Close()

	lib, err := Parse(f)
	if err != nil {
		return nil, errors.NewCatalogLoadFailedError(path, err)
	}
	return lib, nil
}
