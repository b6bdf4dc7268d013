package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		from, to string
		want     float64
	}{
		{"MeV to TeV", 1e7, "MeV", TeV, 10},
		{"GeV to TeV", 500, "GeV", TeV, 0.5},
		{"per MeV flux to per TeV", 1e-12, "cm-2 s-1 MeV-1", DiffFlux, 1e-6},
		{"inverse energy", 0.01, "GeV-1", InverseTeV, 10},
		{"square metre flux", 1, "m-2 s-1 TeV-1", DiffFlux, 1e-4},
		{"radians", 3.141592653589793, "rad", Degree, 180},
		{"caret power", 2, "sr^-1", InverseSr, 2},
		{"same string", 42, "TeV", "TeV", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.value, tt.from, tt.to)
			require.NoError(t, err)
			assert.InEpsilon(t, tt.want, got, 1e-12)
		})
	}
}

func TestConvert_Errors(t *testing.T) {
	_, err := Convert(1, "cm-2 s-1", DiffFlux)
	assert.ErrorContains(t, err, "cannot convert")

	_, err = Convert(1, "furlong", TeV)
	assert.ErrorContains(t, err, "unknown unit")

	_, err = Convert(1, "cm-x", "cm")
	assert.ErrorContains(t, err, "malformed")
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("83.633 deg")
	require.NoError(t, err)
	assert.Equal(t, Quantity{Value: 83.633, Unit: "deg"}, q)

	rad, err := ParseQuantity("0.5 rad")
	require.NoError(t, err)
	deg, err := rad.To(Degree)
	require.NoError(t, err)
	assert.InDelta(t, 28.6479, deg, 1e-4)

	bare, err := ParseQuantity("22.01")
	require.NoError(t, err)
	v, err := bare.To(Degree)
	require.NoError(t, err)
	assert.Equal(t, 22.01, v)

	_, err = ParseQuantity("")
	assert.Error(t, err)
	_, err = ParseQuantity("abc deg")
	assert.Error(t, err)
}
