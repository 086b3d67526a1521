package mount

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
)

// stepClock is a manually advanced time source.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSimulatorIntegratesRates(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC)}
	sim := NewSimulator(clock.Now)

	if err := sim.SlewToAltAz(ctx, coordinates.Horizontal{Azimuth: 100, Altitude: 20}); err != nil {
		t.Fatalf("SlewToAltAz failed: %v", err)
	}
	if err := sim.SetRates(ctx, 2.0, -0.5); err != nil {
		t.Fatalf("SetRates failed: %v", err)
	}

	clock.Advance(4 * time.Second)
	pos, err := sim.Position(ctx)
	if err != nil {
		t.Fatalf("Position failed: %v", err)
	}
	if math.Abs(pos.Azimuth-108.0) > 1e-9 {
		t.Errorf("azimuth = %.6f, want 108.0", pos.Azimuth)
	}
	if math.Abs(pos.Altitude-18.0) > 1e-9 {
		t.Errorf("altitude = %.6f, want 18.0", pos.Altitude)
	}

	// A new rate pair replaces the old one from this instant on.
	if err := sim.SetRates(ctx, -1.0, 0); err != nil {
		t.Fatalf("SetRates failed: %v", err)
	}
	clock.Advance(2 * time.Second)
	pos, _ = sim.Position(ctx)
	if math.Abs(pos.Azimuth-106.0) > 1e-9 {
		t.Errorf("azimuth after rate change = %.6f, want 106.0", pos.Azimuth)
	}
}

func TestSimulatorStopFreezesPosition(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC)}
	sim := NewSimulator(clock.Now)

	sim.SlewToAltAz(ctx, coordinates.Horizontal{Azimuth: 50, Altitude: 40})
	sim.SetRates(ctx, 3.0, 1.0)
	clock.Advance(time.Second)

	if err := sim.StopAxes(ctx); err != nil {
		t.Fatalf("StopAxes failed: %v", err)
	}
	clock.Advance(10 * time.Second)

	pos, _ := sim.Position(ctx)
	if math.Abs(pos.Azimuth-53.0) > 1e-9 || math.Abs(pos.Altitude-41.0) > 1e-9 {
		t.Errorf("position drifted after stop: %+v", pos)
	}
	azRate, altRate := sim.Rates()
	if azRate != 0 || altRate != 0 {
		t.Errorf("rates = (%f, %f) after stop, want zero", azRate, altRate)
	}
}

func TestSimulatorAzimuthWraps(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC)}
	sim := NewSimulator(clock.Now)

	sim.SlewToAltAz(ctx, coordinates.Horizontal{Azimuth: 358, Altitude: 30})
	sim.SetRates(ctx, 1.0, 0)
	clock.Advance(5 * time.Second)

	pos, _ := sim.Position(ctx)
	if math.Abs(pos.Azimuth-3.0) > 1e-9 {
		t.Errorf("azimuth = %.6f, want 3.0 (wrapped)", pos.Azimuth)
	}
}

func TestRetryCommandRecoversFromTransientFailure(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1.0}

	calls := 0
	err := RetryCommand(context.Background(), cfg, "set rates", func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryCommand failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestRetryCommandExhaustionWrapsCommError(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1.0}

	base := errors.New("no route to host")
	err := RetryCommand(context.Background(), cfg, "slew", func() error { return base })

	var commErr *CommError
	if !errors.As(err, &commErr) {
		t.Fatalf("error = %v, want *CommError", err)
	}
	if commErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", commErr.Attempts)
	}
	if !errors.Is(err, base) {
		t.Error("underlying error not reachable via errors.Is")
	}
}

func TestRetryCommandPassesThroughTimeout(t *testing.T) {
	cfg := DefaultRetryConfig()

	calls := 0
	timeout := &TimeoutError{Op: "slew to start", Grace: 90 * time.Second}
	err := RetryCommand(context.Background(), cfg, "slew to start", func() error {
		calls++
		return timeout
	})

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1 (timeouts are not retried)", calls)
	}
}

func TestRetryCommandHonorsCancellation(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1.0}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryCommand(ctx, cfg, "set rates", func() error { return errors.New("flaky") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
