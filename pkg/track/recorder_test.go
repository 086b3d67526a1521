package track

import (
	"math"
	"testing"
	"time"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
)

func TestRecorderSignedErrors(t *testing.T) {
	rec := NewRecorder()
	at := time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		commanded  coordinates.Horizontal
		observed   coordinates.Horizontal
		wantAzErr  float64
		wantAltErr float64
	}{
		{
			name:       "mount lagging east",
			commanded:  coordinates.Horizontal{Azimuth: 100, Altitude: 40},
			observed:   coordinates.Horizontal{Azimuth: 99.5, Altitude: 39.8},
			wantAzErr:  -0.5,
			wantAltErr: -0.2,
		},
		{
			name:       "mount ahead across north",
			commanded:  coordinates.Horizontal{Azimuth: 359.5, Altitude: 50},
			observed:   coordinates.Horizontal{Azimuth: 0.5, Altitude: 50},
			wantAzErr:  1.0,
			wantAltErr: 0.0,
		},
	}

	for i, tt := range tests {
		rec.Record(at.Add(time.Duration(i)*time.Second), tt.commanded, tt.observed)
	}

	samples := rec.Snapshot()
	if len(samples) != len(tests) {
		t.Fatalf("got %d samples, want %d", len(samples), len(tests))
	}
	for i, tt := range tests {
		s := samples[i]
		if math.Abs(s.AzError-tt.wantAzErr) > 1e-9 {
			t.Errorf("%s: AzError = %.4f, want %.4f", tt.name, s.AzError, tt.wantAzErr)
		}
		if math.Abs(s.AltError-tt.wantAltErr) > 1e-9 {
			t.Errorf("%s: AltError = %.4f, want %.4f", tt.name, s.AltError, tt.wantAltErr)
		}
	}
}

func TestRecorderSnapshotIsolation(t *testing.T) {
	rec := NewRecorder()
	at := time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC)
	rec.Record(at, coordinates.Horizontal{Azimuth: 10, Altitude: 10}, coordinates.Horizontal{Azimuth: 10, Altitude: 10})

	snap := rec.Snapshot()
	snap[0].AzError = 99

	if rec.Snapshot()[0].AzError != 0 {
		t.Error("mutating a snapshot changed the recorder's log")
	}
}

func TestRecorderStats(t *testing.T) {
	rec := NewRecorder()
	at := time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC)

	// Errors of 3 and 4 give an RMS of sqrt(12.5).
	rec.Record(at, coordinates.Horizontal{Azimuth: 100, Altitude: 40}, coordinates.Horizontal{Azimuth: 103, Altitude: 40})
	rec.Record(at.Add(time.Second), coordinates.Horizontal{Azimuth: 100, Altitude: 40}, coordinates.Horizontal{Azimuth: 96, Altitude: 40})

	st := rec.Stats()
	if st.Samples != 2 {
		t.Fatalf("Samples = %d, want 2", st.Samples)
	}
	if math.Abs(st.MaxAz-4.0) > 1e-9 {
		t.Errorf("MaxAz = %.4f, want 4.0", st.MaxAz)
	}
	if math.Abs(st.RMSAz-math.Sqrt(12.5)) > 1e-9 {
		t.Errorf("RMSAz = %.6f, want %.6f", st.RMSAz, math.Sqrt(12.5))
	}
	if st.MaxAlt != 0 || st.RMSAlt != 0 {
		t.Errorf("altitude stats = (%.4f, %.4f), want zero", st.MaxAlt, st.RMSAlt)
	}
}

func TestRecorderEmptyStats(t *testing.T) {
	st := NewRecorder().Stats()
	if st.Samples != 0 || st.MaxAz != 0 || st.RMSAz != 0 {
		t.Errorf("empty recorder stats = %+v, want zeros", st)
	}
}
