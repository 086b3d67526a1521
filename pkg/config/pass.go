package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/skywatchdev/sattrack/pkg/trajectory"
)

// PassConfig describes one satellite pass to track. Loaded from its own
// JSON file so a single station config can serve many passes.
type PassConfig struct {
	// Satellite is the catalog name of the object to track
	// (e.g., "ISS (ZARYA)")
	Satellite string `json:"satellite"`

	// Start and End bound the visible pass, RFC 3339
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// StepSeconds is the waypoint sampling interval
	StepSeconds float64 `json:"step_seconds"`

	// PadSeconds is how far outside the pass the synthetic lead-in and
	// lead-out waypoints sit
	PadSeconds float64 `json:"pad_seconds"`

	// OffsetMultiplier scales the angular displacement of the padding
	// waypoints; 1.0 extrapolates one step's motion
	OffsetMultiplier float64 `json:"offset_multiplier"`

	// TrackingPeriodSeconds is the rate-command tick interval
	TrackingPeriodSeconds float64 `json:"tracking_period_seconds"`

	// AllowUnattainable lets a session proceed despite zenith-passage
	// segments the mount cannot keep up with
	AllowUnattainable bool `json:"allow_unattainable"`
}

// LoadPass reads a pass description from a JSON file.
func LoadPass(path string) (*PassConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pass file: %w", err)
	}

	pass := &PassConfig{
		StepSeconds:           1.0,
		PadSeconds:            15.0,
		OffsetMultiplier:      1.0,
		TrackingPeriodSeconds: 1.0,
	}
	if err := json.Unmarshal(data, pass); err != nil {
		return nil, fmt.Errorf("failed to parse pass file: %w", err)
	}

	if err := pass.Validate(); err != nil {
		return nil, err
	}
	return pass, nil
}

// Validate checks the pass parameters. Window geometry is validated again
// by the trajectory builder; this catches file-level mistakes early with
// friendlier messages.
func (p *PassConfig) Validate() error {
	if p.Satellite == "" {
		return fmt.Errorf("pass: satellite name must be set")
	}
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("pass: start and end must be set")
	}
	if !p.End.After(p.Start) {
		return fmt.Errorf("pass: end %s is not after start %s", p.End.Format(time.RFC3339), p.Start.Format(time.RFC3339))
	}
	if p.StepSeconds <= 0 {
		return fmt.Errorf("pass: step_seconds must be positive")
	}
	if p.PadSeconds < 0 {
		return fmt.Errorf("pass: pad_seconds must not be negative")
	}
	if p.TrackingPeriodSeconds <= 0 {
		return fmt.Errorf("pass: tracking_period_seconds must be positive")
	}
	return nil
}

// Window converts the pass parameters to a trajectory pass window.
func (p *PassConfig) Window() trajectory.PassWindow {
	return trajectory.PassWindow{
		Start:            p.Start,
		End:              p.End,
		Step:             secondsToDuration(p.StepSeconds),
		Pad:              secondsToDuration(p.PadSeconds),
		OffsetMultiplier: p.OffsetMultiplier,
	}
}

// TrackingPeriod returns the tick interval as a duration.
func (p *PassConfig) TrackingPeriod() time.Duration {
	return secondsToDuration(p.TrackingPeriodSeconds)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
