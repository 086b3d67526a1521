package coordinates

import (
	"math"
	"testing"
)

// TestNormalizeAzimuth tests azimuth normalization
func TestNormalizeAzimuth(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{0.0, 0.0},
		{359.0, 359.0},
		{360.0, 0.0},
		{361.0, 1.0},
		{-1.0, 359.0},
		{-90.0, 270.0},
		{720.0, 0.0},
	}

	for _, tt := range tests {
		got := NormalizeAzimuth(tt.input)
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("NormalizeAzimuth(%.1f) = %.1f, want %.1f", tt.input, got, tt.want)
		}
	}
}

// TestAzimuthDelta tests the signed shortest-path azimuth change
func TestAzimuthDelta(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want float64
	}{
		{"no change", 90.0, 90.0, 0.0},
		{"simple clockwise", 10.0, 30.0, 20.0},
		{"simple counter-clockwise", 30.0, 10.0, -20.0},
		{"clockwise across north", 350.0, 10.0, 20.0},
		{"counter-clockwise across north", 10.0, 350.0, -20.0},
		{"half turn", 0.0, 180.0, 180.0},
		{"just past half turn", 0.0, 181.0, -179.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AzimuthDelta(tt.a, tt.b)
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("AzimuthDelta(%.1f, %.1f) = %.1f, want %.1f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// TestAzimuthDistance verifies the magnitude is always the short way around
func TestAzimuthDistance(t *testing.T) {
	tests := []struct {
		a, b float64
		want float64
	}{
		{359.0, 1.0, 2.0},
		{1.0, 359.0, 2.0},
		{0.0, 180.0, 180.0},
		{45.0, 45.0, 0.0},
	}

	for _, tt := range tests {
		got := AzimuthDistance(tt.a, tt.b)
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("AzimuthDistance(%.1f, %.1f) = %.1f, want %.1f", tt.a, tt.b, got, tt.want)
		}
	}
}

// TestInterpolate tests direction interpolation, including the wrap case
func TestInterpolate(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Horizontal
		frac   float64
		wantAz float64
		wantAl float64
	}{
		{
			name:   "midpoint without wrap",
			a:      Horizontal{Azimuth: 10.0, Altitude: 20.0},
			b:      Horizontal{Azimuth: 30.0, Altitude: 40.0},
			frac:   0.5,
			wantAz: 20.0,
			wantAl: 30.0,
		},
		{
			name:   "midpoint across north",
			a:      Horizontal{Azimuth: 350.0, Altitude: 10.0},
			b:      Horizontal{Azimuth: 10.0, Altitude: 10.0},
			frac:   0.5,
			wantAz: 0.0,
			wantAl: 10.0,
		},
		{
			name:   "frac 0 returns start",
			a:      Horizontal{Azimuth: 123.0, Altitude: 45.0},
			b:      Horizontal{Azimuth: 321.0, Altitude: 5.0},
			frac:   0.0,
			wantAz: 123.0,
			wantAl: 45.0,
		},
		{
			name:   "frac 1 returns end",
			a:      Horizontal{Azimuth: 350.0, Altitude: 10.0},
			b:      Horizontal{Azimuth: 10.0, Altitude: 30.0},
			frac:   1.0,
			wantAz: 10.0,
			wantAl: 30.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpolate(tt.a, tt.b, tt.frac)
			if math.Abs(got.Azimuth-tt.wantAz) > 0.0001 {
				t.Errorf("Azimuth = %.4f, want %.4f", got.Azimuth, tt.wantAz)
			}
			if math.Abs(got.Altitude-tt.wantAl) > 0.0001 {
				t.Errorf("Altitude = %.4f, want %.4f", got.Altitude, tt.wantAl)
			}
		})
	}
}
