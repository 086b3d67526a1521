package coordinates

import "math"

// Constants for angle conversions.
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// RadiansToDegrees converts radians to degrees
	RadiansToDegrees = 180.0 / math.Pi
)

// Geographic represents a position on Earth's surface.
// Uses the WGS84 coordinate system (same as GPS).
type Geographic struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64

	// Altitude in meters above mean sea level (MSL)
	Altitude float64
}

// Horizontal represents a direction in the local horizontal coordinate system,
// also known as Alt/Az (Altitude-Azimuth) coordinates. This is the natural
// coordinate system for alt-azimuth telescope mounts.
type Horizontal struct {
	// Azimuth in degrees from north (0-360)
	// 0/360 = North, 90 = East, 180 = South, 270 = West
	Azimuth float64

	// Altitude (elevation) in degrees above the horizon
	// 0 = horizon, 90 = zenith (straight up)
	// Negative values are below the horizon
	Altitude float64
}

// Observer represents the geographic location of the observer/telescope.
// Topocentric positions are always relative to an observer.
type Observer struct {
	// Location is the observer's position on Earth
	Location Geographic

	// Timezone is the IANA timezone name (e.g., "America/Vancouver")
	// Used for display only; all internal calculations use UTC
	Timezone string
}

// NormalizeAzimuth ensures azimuth is in the range [0, 360).
func NormalizeAzimuth(azimuth float64) float64 {
	az := math.Mod(azimuth, 360.0)
	if az < 0 {
		az += 360.0
	}
	return az
}

// AzimuthDelta returns the signed shortest-path angular change from azimuth a
// to azimuth b in degrees. The result is in (-180, 180]: positive means the
// shorter sweep is clockwise (increasing azimuth), negative counter-clockwise.
// Going from 350° to 10° yields +20°, not -340°.
func AzimuthDelta(a, b float64) float64 {
	delta := math.Mod(b-a, 360.0)
	if delta > 180.0 {
		delta -= 360.0
	} else if delta <= -180.0 {
		delta += 360.0
	}
	return delta
}

// AzimuthDistance returns the smallest angle between two azimuths in degrees.
// Handles wrap-around (e.g., 359° to 1° is 2°, not 358°).
func AzimuthDistance(a, b float64) float64 {
	return math.Abs(AzimuthDelta(a, b))
}

// Interpolate returns the direction a fraction of the way from a to b,
// taking the shorter azimuth path across the 0/360° boundary.
// frac=0 returns a, frac=1 returns b.
func Interpolate(a, b Horizontal, frac float64) Horizontal {
	return Horizontal{
		Azimuth:  NormalizeAzimuth(a.Azimuth + AzimuthDelta(a.Azimuth, b.Azimuth)*frac),
		Altitude: a.Altitude + (b.Altitude-a.Altitude)*frac,
	}
}
