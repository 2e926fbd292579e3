package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

func TestRoundTrip(t *testing.T) {
	// Berlin city center.
	p := NewProjector(13.405, 52.52)

	tests := []struct {
		name          string
		lon, lat, alt float64
	}{
		{"origin", 13.405, 52.52, 0},
		{"nearby", 13.41, 52.523, 34.5},
		{"west of origin", 13.39, 52.515, 12},
		{"across town", 13.5, 52.45, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := p.ToWorld(tt.lon, tt.lat, tt.alt)
			lon, lat, alt := p.ToGeo(w)

			if math.Abs(lon-tt.lon) > 1e-9 || math.Abs(lat-tt.lat) > 1e-9 {
				t.Errorf("round trip: got (%v, %v), want (%v, %v)", lon, lat, tt.lon, tt.lat)
			}
			if math.Abs(alt-tt.alt) > 1e-6 {
				t.Errorf("altitude round trip: got %v, want %v", alt, tt.alt)
			}
		})
	}
}

func TestOriginMapsToZero(t *testing.T) {
	p := NewProjector(-0.1276, 51.5072)
	w := p.ToWorld(-0.1276, 51.5072, 0)

	if math.Abs(float64(w.X)) > 1e-3 || math.Abs(float64(w.Y)) > 1e-3 || math.Abs(float64(w.Z)) > 1e-3 {
		t.Errorf("origin should project to world zero, got %v", w)
	}
}

func TestWorldUnitIsOneGroundMeter(t *testing.T) {
	p := NewProjector(13.405, 52.52)

	a := orb.Point{13.405, 52.52}
	b := orb.Point{13.412, 52.524}

	wa := p.ToWorld(a[0], a[1], 0)
	wb := p.ToWorld(b[0], b[1], 0)
	worldDist := float64(wa.DistanceXZ(wb))

	groundDist := orbgeo.Distance(a, b)

	// Allow 0.5% deviation: mercator stretch is only corrected exactly at
	// the origin latitude.
	if math.Abs(worldDist-groundDist)/groundDist > 0.005 {
		t.Errorf("world distance %v, ground distance %v", worldDist, groundDist)
	}
}

func TestAxisOrientation(t *testing.T) {
	p := NewProjector(10, 45)

	east := p.ToWorld(10.01, 45, 0)
	if east.X <= 0 {
		t.Errorf("east should be +X, got %v", east.X)
	}
	north := p.ToWorld(10, 45.01, 0)
	if north.Z >= 0 {
		t.Errorf("north should be -Z, got %v", north.Z)
	}
}
