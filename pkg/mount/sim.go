package mount

import (
	"context"
	"sync"
	"time"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
)

// Simulator is an in-memory mount for dry runs and tests. It integrates the
// most recently commanded axis rates against an injected time source, so a
// controller driving it sees exactly the motion its commands imply. Slews
// complete instantly.
type Simulator struct {
	mu sync.Mutex

	now func() time.Time

	position  coordinates.Horizontal
	azRate    float64
	altRate   float64
	updatedAt time.Time

	tracking  bool
	latitude  float64
	longitude float64
	utc       time.Time
}

// NewSimulator returns a stationary simulated mount reading time from now.
func NewSimulator(now func() time.Time) *Simulator {
	return &Simulator{now: now, updatedAt: now()}
}

// advance integrates the commanded rates up to the current instant.
// Callers must hold mu.
func (s *Simulator) advance() {
	t := s.now()
	dt := t.Sub(s.updatedAt).Seconds()
	if dt > 0 {
		s.position.Azimuth = coordinates.NormalizeAzimuth(s.position.Azimuth + s.azRate*dt)
		s.position.Altitude += s.altRate * dt
	}
	s.updatedAt = t
}

func (s *Simulator) SlewToAltAz(_ context.Context, target coordinates.Horizontal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.position = coordinates.Horizontal{
		Azimuth:  coordinates.NormalizeAzimuth(target.Azimuth),
		Altitude: target.Altitude,
	}
	return nil
}

func (s *Simulator) Slewing(_ context.Context) (bool, error) {
	return false, nil
}

func (s *Simulator) SetRates(_ context.Context, azRate, altRate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.azRate = azRate
	s.altRate = altRate
	return nil
}

func (s *Simulator) Position(_ context.Context) (coordinates.Horizontal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	return s.position, nil
}

func (s *Simulator) StopAxes(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.azRate = 0
	s.altRate = 0
	return nil
}

func (s *Simulator) Tracking(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracking, nil
}

func (s *Simulator) SetTracking(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking = enabled
	return nil
}

func (s *Simulator) SetLocation(_ context.Context, latitude, longitude float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latitude = latitude
	s.longitude = longitude
	return nil
}

func (s *Simulator) SetUTCDate(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.utc = t
	return nil
}

// Location returns the site coordinates programmed via SetLocation.
func (s *Simulator) Location() (latitude, longitude float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latitude, s.longitude
}

// Rates returns the currently commanded axis rates.
func (s *Simulator) Rates() (azRate, altRate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.azRate, s.altRate
}
