// Package mount defines the boundary to the motorized telescope mount and
// provides a simulated implementation for dry runs. The real hardware
// driver lives in pkg/alpaca.
package mount

import (
	"context"
	"fmt"
	"time"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
)

// Driver is the command surface the tracking controller needs from a mount.
// The underlying channel (serial or HTTP) has no concurrency guarantees, so
// callers must sequence commands: exactly one in-flight call at a time.
type Driver interface {
	// SlewToAltAz commands a one-shot slew to an absolute direction.
	SlewToAltAz(ctx context.Context, target coordinates.Horizontal) error

	// Slewing reports whether a commanded slew is still in progress.
	Slewing(ctx context.Context) (bool, error)

	// SetRates commands continuous axis motion in degrees per second.
	// Each call fully replaces the previous rate pair.
	SetRates(ctx context.Context, azRate, altRate float64) error

	// Position reports the mount's current pointing direction.
	Position(ctx context.Context) (coordinates.Horizontal, error)

	// StopAxes halts motion on both axes.
	StopAxes(ctx context.Context) error

	// Tracking reports whether the mount's built-in tracking mode is on.
	Tracking(ctx context.Context) (bool, error)

	// SetTracking switches the mount's built-in tracking mode. Built-in
	// sidereal tracking fights rate commands and must be off while a
	// trajectory is driven.
	SetTracking(ctx context.Context, enabled bool) error

	// SetLocation programs the mount's site coordinates.
	SetLocation(ctx context.Context, latitude, longitude float64) error

	// SetUTCDate programs the mount's clock.
	SetUTCDate(ctx context.Context, t time.Time) error
}

// TimeoutError reports that the mount failed to acknowledge or complete an
// operation within its grace period.
type TimeoutError struct {
	// Op names the operation that timed out
	Op string

	// Grace is the period that elapsed without acknowledgment
	Grace time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("mount: %s not acknowledged within %s", e.Op, e.Grace)
}

// CommError reports repeated communication failure after bounded retries.
type CommError struct {
	// Op names the failed operation
	Op string

	// Attempts is how many times the operation was tried
	Attempts int

	// Err is the last underlying error
	Err error
}

func (e *CommError) Error() string {
	return fmt.Sprintf("mount: %s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *CommError) Unwrap() error { return e.Err }
