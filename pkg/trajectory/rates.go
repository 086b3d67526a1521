package trajectory

import (
	"fmt"
	"math"
	"time"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
)

// Segment is the drivable link between two consecutive waypoints: the
// constant axis rates that carry the mount from one to the next.
type Segment struct {
	// From and To are the bounding waypoints
	From Waypoint
	To   Waypoint

	// AzRate and AltRate are signed axis rates in degrees per second.
	// Azimuth rate always follows the shorter circular path.
	AzRate  float64
	AltRate float64

	// Duration is the segment's time span
	Duration time.Duration

	// Unattainable marks a zenith-passage segment whose implied azimuth
	// rate exceeds the mount's maximum slew rate. It is surfaced, never
	// clamped: the caller decides whether to proceed, warn, or abort.
	Unattainable bool
}

// PositionAt returns the interpolated pointing target within the segment at
// time t, clamped to the segment's bounds.
func (s Segment) PositionAt(t time.Time) coordinates.Horizontal {
	if !t.After(s.From.Time) {
		return s.From.Position
	}
	if !t.Before(s.To.Time) {
		return s.To.Position
	}
	frac := float64(t.Sub(s.From.Time)) / float64(s.Duration)
	return coordinates.Interpolate(s.From.Position, s.To.Position, frac)
}

// Contains reports whether t falls within [From.Time, To.Time).
func (s Segment) Contains(t time.Time) bool {
	return !t.Before(s.From.Time) && t.Before(s.To.Time)
}

// RateModel derives per-segment slew rates from a trajectory and knows the
// physical limits of the mount it will drive.
type RateModel struct {
	// MaxSlewRate is the mount's maximum axis rate in degrees per second.
	// Zero or negative disables the unattainable-rate check.
	MaxSlewRate float64

	// ZenithMargin is how close to 90° altitude counts as a zenith
	// passage, in degrees
	ZenithMargin float64
}

// Segments computes the rate annotation for each consecutive waypoint pair.
// The trajectory itself is not modified.
func (m RateModel) Segments(traj Trajectory) ([]Segment, error) {
	if len(traj) < 2 {
		return nil, fmt.Errorf("trajectory: need at least 2 waypoints to compute rates, have %d", len(traj))
	}

	segments := make([]Segment, 0, len(traj)-1)
	for i := 1; i < len(traj); i++ {
		from, to := traj[i-1], traj[i]
		dt := to.Time.Sub(from.Time)

		seg := Segment{
			From:     from,
			To:       to,
			Duration: dt,
			AzRate:   coordinates.AzimuthDelta(from.Position.Azimuth, to.Position.Azimuth) / dt.Seconds(),
			AltRate:  (to.Position.Altitude - from.Position.Altitude) / dt.Seconds(),
		}

		// The classical alt-az failure mode: near zenith the azimuth
		// axis has to sweep faster than the motors can go. Flag it and
		// leave the decision to the consumer.
		if m.MaxSlewRate > 0 && m.nearZenith(seg) && math.Abs(seg.AzRate) > m.MaxSlewRate {
			seg.Unattainable = true
		}

		segments = append(segments, seg)
	}

	return segments, nil
}

// nearZenith reports whether either endpoint of the segment is within the
// zenith margin of straight up.
func (m RateModel) nearZenith(seg Segment) bool {
	limit := 90.0 - m.ZenithMargin
	return seg.From.Position.Altitude >= limit || seg.To.Position.Altitude >= limit
}

// UnattainableCount returns how many segments are flagged unattainable.
func UnattainableCount(segments []Segment) int {
	n := 0
	for _, s := range segments {
		if s.Unattainable {
			n++
		}
	}
	return n
}

// ActiveSegment returns the index of the segment containing t, searching
// forward from the given index only. Searching monotonically means a late
// loop wake-up can skip segments but never re-enter a past one. It returns
// len(segments) once t is past the final waypoint.
func ActiveSegment(segments []Segment, from int, t time.Time) int {
	i := from
	for i < len(segments) && !t.Before(segments[i].To.Time) {
		i++
	}
	return i
}
