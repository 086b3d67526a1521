package ephemeris

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
	"github.com/skywatchdev/sattrack/pkg/tle"
)

const issTLE = `ISS (ZARYA)
1 25544U 98067A   24167.45833333  .00016717  00000-0  30777-3 0  9991
2 25544  51.6392 208.5194 0003580  75.5136  43.5273 15.49874161456581
`

func testOracle(t *testing.T) *Oracle {
	t.Helper()

	entries, err := tle.Parse(strings.NewReader(issTLE))
	if err != nil || len(entries) != 1 {
		t.Fatalf("parsing test element set: %v", err)
	}

	observer := coordinates.Observer{
		Location: coordinates.Geographic{
			Latitude:  49.2827, // Vancouver
			Longitude: -123.1207,
			Altitude:  70.0,
		},
	}

	oracle, err := New(entries[0], observer)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return oracle
}

// TestPositionAtRanges verifies positions stay in their angular ranges
// when sampled around the element set epoch
func TestPositionAtRanges(t *testing.T) {
	oracle := testOracle(t)
	epoch := time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC)

	for offset := time.Duration(0); offset < 2*time.Hour; offset += 5 * time.Minute {
		pos, err := oracle.PositionAt(epoch.Add(offset))
		if err != nil {
			t.Fatalf("PositionAt(+%v) failed: %v", offset, err)
		}
		if pos.Azimuth < 0 || pos.Azimuth >= 360 {
			t.Errorf("Azimuth %.3f out of [0,360) at +%v", pos.Azimuth, offset)
		}
		if pos.Altitude < -90 || pos.Altitude > 90 {
			t.Errorf("Altitude %.3f out of [-90,90] at +%v", pos.Altitude, offset)
		}
	}
}

// TestPositionAtDeterministic verifies repeated queries agree (pure function)
func TestPositionAtDeterministic(t *testing.T) {
	oracle := testOracle(t)
	at := time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)

	a, err := oracle.PositionAt(at)
	if err != nil {
		t.Fatalf("PositionAt failed: %v", err)
	}
	b, err := oracle.PositionAt(at)
	if err != nil {
		t.Fatalf("PositionAt failed: %v", err)
	}
	if a != b {
		t.Errorf("repeated queries differ: %+v vs %+v", a, b)
	}
}

// TestPositionAtOutsideWindow verifies the oracle refuses stale propagation
func TestPositionAtOutsideWindow(t *testing.T) {
	oracle := testOracle(t)

	tests := []struct {
		name string
		at   time.Time
	}{
		{"far future", time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)},
		{"far past", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := oracle.PositionAt(tt.at)
			if err == nil {
				t.Fatal("expected error outside propagation window")
			}
			var ephErr *Error
			if !errors.As(err, &ephErr) {
				t.Fatalf("error type = %T, want *ephemeris.Error", err)
			}
		})
	}
}
