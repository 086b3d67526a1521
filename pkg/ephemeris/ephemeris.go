// Package ephemeris computes topocentric look angles for a tracked satellite.
// It wraps the SGP4 propagator from github.com/joshuaferrara/go-satellite and
// exposes a single pure query: where is the satellite, as seen from a fixed
// observer, at a given UTC instant.
package ephemeris

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
	"github.com/skywatchdev/sattrack/pkg/tle"
)

// DefaultMaxPropagationAge bounds how far from the element set epoch the
// oracle will propagate. SGP4 accuracy degrades badly beyond a week or so
// for LEO objects, and a stale prediction is worse than a refusal.
const DefaultMaxPropagationAge = 7 * 24 * time.Hour

// Error reports that a position could not be computed for an instant.
type Error struct {
	// Satellite is the name of the tracked object
	Satellite string

	// Instant is the requested time
	Instant time.Time

	// Reason describes why propagation was refused or failed
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ephemeris: %s at %s: %s",
		e.Satellite, e.Instant.Format(time.RFC3339), e.Reason)
}

// Oracle answers topocentric position queries for one satellite and one
// observer. It is immutable after construction and safe for concurrent use:
// each query propagates independently from the captured element set.
type Oracle struct {
	name      string
	sat       satellite.Satellite
	obsCoords satellite.LatLong // radians
	obsAltKm  float64
	epoch     time.Time
	maxAge    time.Duration
}

// New constructs an Oracle from a parsed element set and an observer location.
func New(entry tle.Entry, observer coordinates.Observer) (*Oracle, error) {
	if !strings.HasPrefix(entry.Line1, "1 ") || !strings.HasPrefix(entry.Line2, "2 ") {
		return nil, fmt.Errorf("ephemeris: malformed element set for %q", entry.Name)
	}

	sat := satellite.TLEToSat(entry.Line1, entry.Line2, satellite.GravityWGS72)

	return &Oracle{
		name: entry.Name,
		sat:  sat,
		obsCoords: satellite.LatLong{
			Latitude:  observer.Location.Latitude * coordinates.DegreesToRadians,
			Longitude: observer.Location.Longitude * coordinates.DegreesToRadians,
		},
		obsAltKm: observer.Location.Altitude / 1000.0,
		epoch:    entry.Epoch,
		maxAge:   DefaultMaxPropagationAge,
	}, nil
}

// Name returns the tracked satellite's catalog name.
func (o *Oracle) Name() string {
	return o.name
}

// PositionAt returns the satellite's topocentric azimuth/altitude at t.
// It fails with *Error when t is outside the supported propagation window
// or the propagation does not produce a usable position.
func (o *Oracle) PositionAt(t time.Time) (coordinates.Horizontal, error) {
	t = t.UTC()

	if age := t.Sub(o.epoch); age > o.maxAge || age < -o.maxAge {
		return coordinates.Horizontal{}, &Error{
			Satellite: o.name,
			Instant:   t,
			Reason: fmt.Sprintf("instant is %.1f days from element set epoch (max %.1f)",
				math.Abs(age.Hours())/24.0, o.maxAge.Hours()/24.0),
		}
	}

	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(o.sat, year, int(month), day, hour, min, sec)
	jday := satellite.JDay(year, int(month), day, hour, min, sec)
	angles := satellite.ECIToLookAngles(posECI, o.obsCoords, o.obsAltKm, jday)

	az := angles.Az * coordinates.RadiansToDegrees
	alt := angles.El * coordinates.RadiansToDegrees

	if math.IsNaN(az) || math.IsNaN(alt) || math.IsInf(az, 0) || math.IsInf(alt, 0) {
		return coordinates.Horizontal{}, &Error{
			Satellite: o.name,
			Instant:   t,
			Reason:    "propagation produced no usable position",
		}
	}

	return coordinates.Horizontal{
		Azimuth:  coordinates.NormalizeAzimuth(az),
		Altitude: alt,
	}, nil
}
