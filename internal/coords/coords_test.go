package coords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGalactic(t *testing.T) {
	tests := []struct {
		name  string
		in    SkyCoord
		wantL float64
		wantB float64
	}{
		{"crab", SkyCoord{Lon: 83.63308, Lat: 22.01450, Frame: FK5}, 184.5575, -5.7843},
		{"vela pulsar", SkyCoord{Lon: 128.8361, Lat: -45.1764, Frame: ICRS}, 263.5520, -2.7872},
		{"north galactic pole", SkyCoord{Lon: 192.85948, Lat: 27.12825, Frame: FK5}, 0, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToGalactic(tt.in)
			require.NoError(t, err)
			assert.Equal(t, Galactic, got.Frame)
			assert.InDelta(t, tt.wantB, got.Lat, 1e-2)
			if tt.wantB < 89 {
				assert.InDelta(t, tt.wantL, got.Lon, 1e-2)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	in := SkyCoord{Lon: 329.71694, Lat: -30.22559, Frame: ICRS}
	gal, err := ToGalactic(in)
	require.NoError(t, err)

	back, err := ToEquatorial(gal, "ICRS")
	require.NoError(t, err)
	assert.InDelta(t, in.Lon, back.Lon, 1e-9)
	assert.InDelta(t, in.Lat, back.Lat, 1e-9)
	assert.Equal(t, ICRS, back.Frame)
}

func TestSeparation(t *testing.T) {
	a := SkyCoord{Lon: 10, Lat: 0}
	b := SkyCoord{Lon: 10, Lat: 1.5}
	assert.InDelta(t, 1.5, Separation(a, b), 1e-12)
	assert.InDelta(t, 0, Separation(a, a), 1e-12)
}

func TestUnsupportedFrame(t *testing.T) {
	_, err := ToGalactic(SkyCoord{Frame: "ecliptic"})
	assert.Error(t, err)

	_, err = Transform(SkyCoord{Frame: ICRS}, "altaz")
	assert.Error(t, err)
}

func TestPositionAngle(t *testing.T) {
	origin := SkyCoord{Lon: 0, Lat: 0}
	assert.InDelta(t, 0, PositionAngle(origin, SkyCoord{Lon: 0, Lat: 1}), 1e-9)
	assert.InDelta(t, 90, PositionAngle(origin, SkyCoord{Lon: 1, Lat: 0}), 1e-9)
	assert.InDelta(t, -90, PositionAngle(origin, SkyCoord{Lon: -1, Lat: 0}), 1e-9)
}
