// Package trajectory turns a satellite pass into a drivable pointing plan:
// an evenly stepped, padded sequence of az/alt waypoints plus per-segment
// slew rates a telescope mount can follow.
package trajectory

import (
	"fmt"
	"sort"
	"time"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
)

// Waypoint is a single timed pointing target. Immutable once produced.
type Waypoint struct {
	// Time is the absolute UTC instant the mount should point at Position
	Time time.Time

	// Position is the topocentric direction, azimuth normalized to [0,360)
	Position coordinates.Horizontal
}

// Trajectory is an ordered sequence of waypoints with strictly increasing
// timestamps. It is built once and read-only afterwards; consumers must not
// modify it.
type Trajectory []Waypoint

// Start returns the timestamp of the first waypoint (the lead-in point).
func (tr Trajectory) Start() time.Time { return tr[0].Time }

// End returns the timestamp of the last waypoint (the lead-out point).
func (tr Trajectory) End() time.Time { return tr[len(tr)-1].Time }

// Duration returns the total time span covered by the trajectory.
func (tr Trajectory) Duration() time.Duration { return tr.End().Sub(tr.Start()) }

// Oracle answers topocentric position queries for the tracked object.
// Implementations must be pure: the same instant always yields the same
// position.
type Oracle interface {
	PositionAt(t time.Time) (coordinates.Horizontal, error)
}

// PassWindow describes the pass to build a trajectory for.
type PassWindow struct {
	// Start and End bound the visible pass
	Start time.Time
	End   time.Time

	// Step is the sampling interval between core waypoints
	Step time.Duration

	// Pad is how far before Start and after End the synthetic
	// lead-in/lead-out waypoints are placed, giving the mount room to
	// reach pass speed before the first live waypoint
	Pad time.Duration

	// OffsetMultiplier scales the angular displacement applied to the
	// lead-in/lead-out waypoints; 1.0 extrapolates one step's motion
	OffsetMultiplier float64
}

// ConfigError reports an invalid pass window parameter. Validation happens
// before any ephemeris query, so a bad window never reaches hardware.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("trajectory: invalid %s: %s", e.Param, e.Reason)
}

// validate checks the window parameters.
func (w PassWindow) validate() error {
	if w.Step <= 0 {
		return &ConfigError{Param: "step", Reason: "must be positive"}
	}
	if w.Pad < 0 {
		return &ConfigError{Param: "pad", Reason: "must not be negative"}
	}
	if !w.End.After(w.Start) {
		return &ConfigError{Param: "end", Reason: "must be after start"}
	}
	if w.OffsetMultiplier <= 0 {
		return &ConfigError{Param: "offset_multiplier", Reason: "must be positive"}
	}
	return nil
}

// Build samples the oracle across the pass window and returns the padded
// trajectory. Construction is all-or-nothing: any oracle failure aborts
// without returning a partial trajectory.
func Build(oracle Oracle, window PassWindow) (Trajectory, error) {
	if err := window.validate(); err != nil {
		return nil, err
	}

	// Core waypoints: Start..End inclusive at Step intervals. When Step
	// doesn't divide the window evenly the final interval is shorter.
	var core Trajectory
	for t := window.Start; t.Before(window.End); t = t.Add(window.Step) {
		pos, err := oracle.PositionAt(t)
		if err != nil {
			return nil, err
		}
		core = append(core, Waypoint{Time: t, Position: pos})
	}
	endPos, err := oracle.PositionAt(window.End)
	if err != nil {
		return nil, err
	}
	core = append(core, Waypoint{Time: window.End, Position: endPos})

	// Extrapolate the pass's entry and exit motion to synthesize the
	// lead-in and lead-out waypoints. The mount is stationary at these
	// points but ramps toward the satellite's sky velocity while slewing
	// to the first live waypoint.
	first, second := core[0], core[1]
	leadIn := Waypoint{
		Time: first.Time.Add(-window.Pad),
		Position: offsetPosition(first.Position,
			second.Position, first.Position, window.OffsetMultiplier),
	}

	last, secondLast := core[len(core)-1], core[len(core)-2]
	leadOut := Waypoint{
		Time: last.Time.Add(window.Pad),
		Position: offsetPosition(last.Position,
			secondLast.Position, last.Position, window.OffsetMultiplier),
	}

	traj := make(Trajectory, 0, len(core)+2)
	traj = append(traj, leadIn)
	traj = append(traj, core...)
	traj = append(traj, leadOut)

	// Defensive: re-sort and verify strict monotonicity before handing
	// the trajectory downstream.
	sort.Slice(traj, func(i, j int) bool { return traj[i].Time.Before(traj[j].Time) })
	for i := 1; i < len(traj); i++ {
		if !traj[i].Time.After(traj[i-1].Time) {
			return nil, &ConfigError{
				Param:  "pad",
				Reason: fmt.Sprintf("waypoint timestamps not strictly increasing at index %d", i),
			}
		}
	}

	return traj, nil
}

// offsetPosition extends the motion from prev to cur beyond base by the
// given multiplier, taking the shorter azimuth path so a pass crossing the
// 0/360° boundary doesn't produce a wild synthetic waypoint.
func offsetPosition(base, prev, cur coordinates.Horizontal, multiplier float64) coordinates.Horizontal {
	dAz := coordinates.AzimuthDelta(prev.Azimuth, cur.Azimuth) * multiplier
	dAlt := (cur.Altitude - prev.Altitude) * multiplier
	return coordinates.Horizontal{
		Azimuth:  coordinates.NormalizeAzimuth(base.Azimuth + dAz),
		Altitude: base.Altitude + dAlt,
	}
}
